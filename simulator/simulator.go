// Package simulator drives virtual-router agents that generate control and
// data plane traffic through their flow exporters.
package simulator

import (
	"fmt"
	"math/rand"
	"net/netip"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/exporter"
)

const (
	DefaultTickInterval = 1 * time.Second
	DefaultDataFlows    = 4

	ldpHelloTicks  = 5
	ospfHelloTicks = 10
)

// Config controls the pacing and volume of generated traffic.
type Config struct {
	TickInterval time.Duration
	DataFlows    int
}

func (c *Config) defaults() {
	if c.TickInterval == 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.DataFlows == 0 {
		c.DataFlows = DefaultDataFlows
	}
}

// Registry owns the set of agents. It is constructed once at startup and
// passed to consumers; there is no process-wide instance.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	order  []string
	cfg    Config
}

func NewRegistry(cfg Config) *Registry {
	cfg.defaults()
	return &Registry{
		agents: make(map[string]*Agent),
		cfg:    cfg,
	}
}

// AddAgent creates an agent around an exporter. The agent's router address
// and host subnet derive from its registration order.
func (r *Registry) AddAgent(name string, interfaces []string, exp *exporter.FlowExporter) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[name]; ok {
		return nil, fmt.Errorf("agent %s already registered", name)
	}

	n := byte(len(r.order) + 1)
	if len(interfaces) == 0 {
		interfaces = []string{"eth0"}
	}
	a := &Agent{
		Name:       name,
		RouterAddr: netip.AddrFrom4([4]byte{10, 0, n, 1}),
		hostNet:    n,
		Interfaces: interfaces,
		exporter:   exp,
		rnd:        rand.New(rand.NewSource(int64(exporter.ObservationDomainID(name)))),
		registry:   r,
	}
	r.agents[name] = a
	r.order = append(r.order, name)
	return a, nil
}

// Agent returns a registered agent by name.
func (r *Registry) Agent(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Agents returns agents in registration order.
func (r *Registry) Agents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.agents[name])
	}
	return out
}

// Start launches every agent's traffic loop.
func (r *Registry) Start() {
	for _, a := range r.Agents() {
		a.start(r.cfg)
	}
}

// Stop halts every agent's traffic loop.
func (r *Registry) Stop() {
	for _, a := range r.Agents() {
		a.stop()
	}
}

// Agent is one simulated router. Its traffic loop records flows into its
// exporter; it owns no sockets of its own.
type Agent struct {
	Name       string
	RouterAddr netip.Addr
	Interfaces []string

	hostNet  byte
	exporter *exporter.FlowExporter
	registry *Registry
	rnd      *rand.Rand

	mu    sync.Mutex
	peers []*Agent

	q  chan bool
	wg sync.WaitGroup
}

// Exporter exposes the agent's flow exporter for queries.
func (a *Agent) Exporter() *exporter.FlowExporter {
	return a.exporter
}

// Peer links this agent to another registered agent. Sessions are
// unidirectional; call on both agents for a full mesh.
func (a *Agent) Peer(name string) error {
	p, ok := a.registry.Agent(name)
	if !ok {
		return fmt.Errorf("unknown peer %s", name)
	}
	a.mu.Lock()
	a.peers = append(a.peers, p)
	a.mu.Unlock()
	return nil
}

func (a *Agent) start(cfg Config) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.q != nil {
		return
	}
	q := make(chan bool)
	a.q = q

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		var tick uint64
		for {
			select {
			case <-ticker.C:
				tick++
				a.controlPlaneTick(tick)
				a.dataPlaneTick(cfg.DataFlows)
			case <-q:
				return
			}
		}
	}()

	log.WithFields(log.Fields{
		"agent":  a.Name,
		"router": a.RouterAddr.String(),
	}).Info("simulator agent started")
}

func (a *Agent) stop() {
	a.mu.Lock()
	q := a.q
	a.q = nil
	a.mu.Unlock()
	if q == nil {
		return
	}
	close(q)
	a.wg.Wait()
}

// controlPlaneTick emits routing-protocol traffic toward every peer. BGP
// keepalives and BFD run every tick, LDP and OSPF hellos on slower cycles.
func (a *Agent) controlPlaneTick(tick uint64) {
	a.mu.Lock()
	peers := append([]*Agent(nil), a.peers...)
	a.mu.Unlock()

	iface := a.Interfaces[0]
	for _, p := range peers {
		a.exporter.RecordProtocolFlow("bgp", a.RouterAddr, p.RouterAddr, 64, iface, "egress")
		a.exporter.RecordProtocolFlow("bfd", a.RouterAddr, p.RouterAddr, 66, iface, "egress")
		if tick%ldpHelloTicks == 0 {
			a.exporter.RecordProtocolFlow("ldp", a.RouterAddr, p.RouterAddr, 62, iface, "egress")
		}
		if tick%ospfHelloTicks == 0 {
			a.exporter.RecordProtocolFlow("ospf", a.RouterAddr, p.RouterAddr, 76, iface, "egress")
		}
	}
}

var dataPorts = []uint16{80, 443, 53, 8080}

// dataPlaneTick records n transit flows between hosts behind this agent and
// hosts behind a random peer.
func (a *Agent) dataPlaneTick(n int) {
	a.mu.Lock()
	peers := append([]*Agent(nil), a.peers...)
	a.mu.Unlock()
	if len(peers) == 0 {
		return
	}

	for i := 0; i < n; i++ {
		p := peers[a.rnd.Intn(len(peers))]
		src := netip.AddrFrom4([4]byte{192, 168, a.hostNet, byte(2 + a.rnd.Intn(250))})
		dst := netip.AddrFrom4([4]byte{192, 168, p.hostNet, byte(2 + a.rnd.Intn(250))})

		proto := uint8(6)
		if a.rnd.Intn(4) == 0 {
			proto = 17
		}

		a.exporter.RecordFlow(exporter.FlowSample{
			SrcIP:            src,
			DstIP:            dst,
			SrcPort:          uint16(49152 + a.rnd.Intn(16384)),
			DstPort:          dataPorts[a.rnd.Intn(len(dataPorts))],
			Protocol:         proto,
			Bytes:            uint64(200 + a.rnd.Intn(1300)),
			IngressInterface: a.Interfaces[a.rnd.Intn(len(a.Interfaces))],
			EgressInterface:  a.Interfaces[a.rnd.Intn(len(a.Interfaces))],
			Direction:        "egress",
		})
	}
}
