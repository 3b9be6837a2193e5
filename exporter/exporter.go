// Package exporter implements the per-agent IPFIX flow exporter: an
// aggregation table keyed by 5-tuple, a time-based expiry sweep and a
// periodic export cycle sending messages to the configured collectors.
package exporter

import (
	"fmt"
	"hash/fnv"
	"net"
	"net/netip"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/decoders/ipfix"
	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/metrics"
)

// Defaults for the export schedule.
const (
	DefaultFlowTimeout     = 300 * time.Second
	DefaultExportInterval  = 60 * time.Second
	DefaultTemplateRefresh = 600 * time.Second
	DefaultHistorySize     = 1000

	// The one data template every exporter announces. Multi-schema export
	// would need per-exporter template id allocation; nothing here does.
	FlowTemplateID uint16 = 256
)

// Config tunes one exporter. Zero values fall back to the defaults above.
type Config struct {
	FlowTimeout     time.Duration
	ExportInterval  time.Duration
	TemplateRefresh time.Duration
	HistorySize     int
}

func (c *Config) defaults() {
	if c.FlowTimeout <= 0 {
		c.FlowTimeout = DefaultFlowTimeout
	}
	if c.ExportInterval <= 0 {
		c.ExportInterval = DefaultExportInterval
	}
	if c.TemplateRefresh <= 0 {
		c.TemplateRefresh = DefaultTemplateRefresh
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
}

// FlowSample is one observation folded into the flow table by RecordFlow.
// Zero-valued optional fields take the producer-interface defaults: one
// packet, service class "standard", direction "egress".
type FlowSample struct {
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8

	Bytes   uint64
	Packets uint64

	DSCP             uint8
	ServiceClass     string
	IngressInterface string
	EgressInterface  string
	Direction        string
	SrcAS            uint32
	DstAS            uint32
}

// FlowExporter owns one agent's active-flow table and export schedule. The
// table, history and socket are guarded by mu; RecordFlow callers may be
// truly parallel with the export loop.
type FlowExporter struct {
	AgentID string

	cfg      Config
	obsDomain uint32
	template  ipfix.TemplateRecord

	mu         sync.RWMutex
	active     map[flow.Key]*flow.Record
	history    []*flow.Record
	collectors []*net.UDPAddr
	conn       *net.UDPConn
	ifIndexes  map[string]uint32

	seq          uint32
	lastTemplate time.Time
	exportedMsgs uint64

	q  chan bool
	wg sync.WaitGroup

	// test hook, defaults to time.Now
	now func() time.Time
}

// ObservationDomainID derives the stable 32-bit observation domain id of an
// agent identifier. Stable within a process, and across processes for the
// same identifier.
func ObservationDomainID(agentID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(agentID))
	return h.Sum32()
}

// NewFlowExporter creates an exporter for one agent.
func NewFlowExporter(agentID string, cfg Config) *FlowExporter {
	cfg.defaults()
	return &FlowExporter{
		AgentID:   agentID,
		cfg:       cfg,
		obsDomain: ObservationDomainID(agentID),
		template:  ipfix.FlowTemplate(FlowTemplateID),
		active:    make(map[flow.Key]*flow.Record),
		ifIndexes: make(map[string]uint32),
		now:       time.Now,
	}
}

// AddCollector registers a collector endpoint. Every export cycle sends to
// all registered endpoints independently.
func (e *FlowExporter) AddCollector(ip string, port int) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", ip, port))
	if err != nil {
		return fmt.Errorf("resolving collector address: %w", err)
	}
	e.mu.Lock()
	e.collectors = append(e.collectors, addr)
	e.mu.Unlock()
	return nil
}

// RecordFlow folds one observation into the table, creating the record on
// first sight of its key. O(1) amortized.
func (e *FlowExporter) RecordFlow(s FlowSample) {
	if s.Packets == 0 {
		s.Packets = 1
	}
	key := flow.Key{
		SrcIP:    s.SrcIP,
		DstIP:    s.DstIP,
		SrcPort:  s.SrcPort,
		DstPort:  s.DstPort,
		Protocol: s.Protocol,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.active[key]
	if !ok {
		r = flow.NewRecord(key)
		r.ExporterID = e.AgentID
		r.ObservationDomain = e.obsDomain
		r.DSCP = s.DSCP
		if s.ServiceClass != "" {
			r.ServiceClass = s.ServiceClass
		}
		r.IngressInterface = s.IngressInterface
		r.EgressInterface = s.EgressInterface
		if s.Direction != "" {
			r.Direction = s.Direction
		}
		r.SrcAS = s.SrcAS
		r.DstAS = s.DstAS
		e.active[key] = r
		e.interfaceIndex(s.IngressInterface)
		e.interfaceIndex(s.EgressInterface)
		metrics.ExporterFlowsCreated.WithLabelValues(e.AgentID).Inc()
	}
	r.Update(s.Bytes, s.Packets, e.now())
}

// RecordProtocolFlow records one control-plane exchange by routing-protocol
// name: the name resolves to its IP protocol and well-known destination
// port, and the flow is marked DSCP CS6 / network_control.
func (e *FlowExporter) RecordProtocolFlow(protocol string, srcIP, dstIP netip.Addr, bytes uint64, iface, direction string) {
	cp := flow.LookupControlProtocol(protocol)
	sample := FlowSample{
		SrcIP:        srcIP,
		DstIP:        dstIP,
		DstPort:      cp.Port,
		Protocol:     cp.Protocol,
		Bytes:        bytes,
		DSCP:         48,
		ServiceClass: "network_control",
		Direction:    direction,
	}
	if cp.Port != 0 {
		sample.SrcPort = cp.Port
	}
	if direction == "ingress" {
		sample.IngressInterface = iface
	} else {
		sample.EgressInterface = iface
	}
	e.RecordFlow(sample)
}

// ExpireInactiveFlows sweeps the table: anything idle longer than the flow
// timeout moves to the bounded history and leaves the active table for good.
// Safe to call repeatedly; a sweep with nothing to do is a no-op.
func (e *FlowExporter) ExpireInactiveFlows() int {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	expired := 0
	for key, r := range e.active {
		if now.Sub(r.EndTime) > e.cfg.FlowTimeout {
			r.State = flow.StateExpired
			e.history = append(e.history, r)
			delete(e.active, key)
			expired++
		}
	}
	if over := len(e.history) - e.cfg.HistorySize; over > 0 {
		e.history = append(e.history[:0:0], e.history[over:]...)
	}
	if expired > 0 {
		metrics.ExporterFlowsExpired.WithLabelValues(e.AgentID).Add(float64(expired))
	}
	return expired
}

// Export builds one message for the current active flows and sends it to
// every collector. The template set is included only when the refresh is
// due. Nothing is sent when there are no flows and no template to announce.
func (e *FlowExporter) Export() error {
	now := e.now()

	e.mu.Lock()
	var tmpl *ipfix.TemplateRecord
	if now.Sub(e.lastTemplate) > e.cfg.TemplateRefresh {
		t := e.template
		tmpl = &t
		e.lastTemplate = now
	}

	records := make([][]byte, 0, len(e.active))
	for _, r := range e.active {
		records = append(records, ipfix.EncodeFlowRecord(e.template, r, e.interfaceIndex))
	}

	if tmpl == nil && len(records) == 0 {
		e.mu.Unlock()
		return nil
	}

	msg := ipfix.EncodeMessage(e.obsDomain, e.seq, uint32(now.Unix()), tmpl, FlowTemplateID, records)
	e.seq += uint32(len(records))
	e.exportedMsgs++
	collectors := append([]*net.UDPAddr(nil), e.collectors...)
	conn, err := e.socketLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	for _, addr := range collectors {
		if _, err := conn.WriteToUDP(msg, addr); err != nil {
			// one bad collector must not starve the others
			log.WithFields(log.Fields{
				"agent":     e.AgentID,
				"collector": addr.String(),
			}).Errorf("export send failed: %v", err)
			metrics.ExporterSendErrors.WithLabelValues(e.AgentID).Inc()
			continue
		}
		metrics.ExporterMessagesSent.WithLabelValues(e.AgentID).Inc()
		metrics.ExporterRecordsSent.WithLabelValues(e.AgentID).Add(float64(len(records)))
	}
	return nil
}

// socketLocked lazily opens the shared UDP socket. Callers hold mu, so a
// concurrent first-send and stop cannot race on the connection.
func (e *FlowExporter) socketLocked() (*net.UDPConn, error) {
	if e.conn != nil {
		return e.conn, nil
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("opening export socket: %w", err)
	}
	e.conn = conn
	return conn, nil
}

// interfaceIndex assigns a stable per-exporter numeric index to an interface
// name for wire encoding. Caller holds mu (RecordFlow) or the export lock.
func (e *FlowExporter) interfaceIndex(name string) uint32 {
	if name == "" {
		return 0
	}
	if idx, ok := e.ifIndexes[name]; ok {
		return idx
	}
	idx := uint32(len(e.ifIndexes) + 1)
	e.ifIndexes[name] = idx
	return idx
}

// Start launches the combined aging and export loop.
func (e *FlowExporter) Start() {
	e.mu.Lock()
	if e.q != nil {
		e.mu.Unlock()
		return
	}
	q := make(chan bool)
	e.q = q
	e.mu.Unlock()

	log.WithFields(log.Fields{
		"agent":  e.AgentID,
		"domain": e.obsDomain,
	}).Info("starting flow exporter")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.ExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.ExpireInactiveFlows()
				if err := e.Export(); err != nil {
					log.WithFields(log.Fields{"agent": e.AgentID}).Errorf("export cycle: %v", err)
				}
			case <-q:
				return
			}
		}
	}()
}

// Stop cancels the export loop and closes the socket. In-flight sends are
// abandoned, not drained.
func (e *FlowExporter) Stop() {
	e.mu.Lock()
	q := e.q
	e.q = nil
	e.mu.Unlock()

	if q != nil {
		close(q)
		e.wg.Wait()
	}

	e.mu.Lock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.mu.Unlock()
}

// SequenceNumber returns the current export sequence number: the count of
// flow records sent so far. Not persisted across restarts.
func (e *FlowExporter) SequenceNumber() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.seq
}
