package collector

import (
	"fmt"
	"net"
	"sync"

	reuseport "github.com/libp2p/go-reuseport"
	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/metrics"
)

type udpPacket struct {
	src     *net.UDPAddr
	size    int
	payload []byte
}

var packetPool = sync.Pool{
	New: func() interface{} {
		return &udpPacket{
			payload: make([]byte, 9000),
		}
	},
}

// Start binds the UDP socket and launches the receive loop and decode
// workers. A bind failure is fatal and returned to the caller; there is no
// collector without a bound socket.
func (c *FlowCollector) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}

	pconn, err := reuseport.ListenPacket("udp", fmt.Sprintf("%s:%d", c.cfg.Addr, c.cfg.Port))
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("binding collector socket: %w", err)
	}
	udpconn, ok := pconn.(*net.UDPConn)
	if !ok {
		pconn.Close()
		c.mu.Unlock()
		return fmt.Errorf("unexpected connection type %T", pconn)
	}

	c.q = make(chan bool)
	c.dispatch = make(chan *udpPacket, c.cfg.QueueSize)
	c.started = true
	q := c.q
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"addr": c.cfg.Addr,
		"port": c.cfg.Port,
	}).Info("starting flow collector")

	// closer: unblocks the reader on stop
	go func() {
		<-q
		udpconn.Close()
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.receive(udpconn, q)
	}()

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for pkt := range c.dispatch {
				if pkt == nil {
					return
				}
				c.ParseMessage(pkt.payload[:pkt.size], pkt.src.IP.String())
				packetPool.Put(pkt)
			}
		}()
	}
	return nil
}

func (c *FlowCollector) receive(conn *net.UDPConn, q chan bool) {
	for {
		pkt := packetPool.Get().(*udpPacket)
		var err error
		pkt.size, pkt.src, err = conn.ReadFromUDP(pkt.payload)
		if err != nil {
			select {
			case <-q:
			default:
				log.Errorf("collector receive: %v", err)
			}
			return
		}
		if pkt.size == 0 {
			packetPool.Put(pkt)
			continue
		}
		remote := pkt.src.IP.String()
		metrics.CollectorTrafficPackets.WithLabelValues(remote).Inc()
		metrics.CollectorTrafficBytes.WithLabelValues(remote).Add(float64(pkt.size))

		select {
		case c.dispatch <- pkt:
		case <-q:
			packetPool.Put(pkt)
			return
		default:
			// queue full: drop rather than block the socket
			packetPool.Put(pkt)
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
		}
	}
}

// Stop cancels the receive loop, closes the socket and drains the workers.
// Best-effort: in-flight datagrams may be abandoned.
func (c *FlowCollector) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.q)
	c.mu.Unlock()

	for i := 0; i < c.cfg.Workers; i++ {
		c.dispatch <- nil
	}
	c.wg.Wait()
}
