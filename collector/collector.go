// Package collector implements the IPFIX flow collector: a UDP receive loop,
// a per-(observation domain, template id) schema cache and per-source storage
// of reconstructed flow records.
package collector

import (
	"bytes"
	"errors"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/decoders/ipfix"
	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/format"
	"github.com/flowmesh/flowmesh/metrics"
	"github.com/flowmesh/flowmesh/transport"
)

// Storage bounds per source exporter: once a source holds more than
// MaxFlowsPerSource records it is trimmed to the most recent TrimTo.
const (
	MaxFlowsPerSource = 10000
	TrimTo            = 5000
)

// Config tunes one collector instance.
type Config struct {
	Addr    string
	Port    int
	Workers int
	// QueueSize bounds the dispatch channel between the socket reader and
	// the decode workers. Datagrams beyond it are dropped, not queued.
	QueueSize int
}

func (c *Config) defaults() {
	if c.Port == 0 {
		c.Port = 4739
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 10000
	}
}

// FlowCollector decodes inbound IPFIX datagrams from any exporter. The
// template cache and flow storage are guarded by mu; decode workers and
// query callers may run in parallel.
type FlowCollector struct {
	cfg Config

	templates *ipfix.BasicTemplateSystem

	mu       sync.RWMutex
	flows    map[string][]*flow.Record
	received uint64
	dropped  uint64

	// Optional downstream pipeline: every reconstructed record is
	// formatted and shipped when both are set.
	Format    format.FormatInterface
	Transport transport.TransportInterface

	q        chan bool
	wg       sync.WaitGroup
	dispatch chan *udpPacket
	started  bool
}

// NewFlowCollector creates a collector; Start binds the socket.
func NewFlowCollector(cfg Config) *FlowCollector {
	cfg.defaults()
	return &FlowCollector{
		cfg:       cfg,
		templates: ipfix.CreateTemplateSystem(),
		flows:     make(map[string][]*flow.Record),
	}
}

// ParseMessage decodes one datagram from the given source. Undersized or
// unsupported-version payloads are dropped with a log line; a data set
// referencing an unknown template is skipped while the rest of the message
// is processed. The reconstructed records are stored per source and
// returned. Never panics on untrusted input.
func (c *FlowCollector) ParseMessage(payload []byte, source string) []*flow.Record {
	start := time.Now()
	if len(payload) < ipfix.HeaderLength {
		log.WithFields(log.Fields{"source": source, "size": len(payload)}).
			Warn("dropping undersized datagram")
		metrics.CollectorDecoderErrors.WithLabelValues(source, "undersized").Inc()
		return nil
	}

	msg, err := ipfix.DecodeMessage(bytes.NewBuffer(payload), c.templates)
	if err != nil {
		if msg == nil {
			// header-level failure, e.g. wrong version: drop everything
			log.WithFields(log.Fields{"source": source}).
				Warnf("dropping datagram: %v", err)
			metrics.CollectorDecoderErrors.WithLabelValues(source, "decode").Inc()
			return nil
		}
		if errors.Is(err, ipfix.ErrTemplateNotFound) {
			log.WithFields(log.Fields{"source": source}).
				Warnf("skipping data set without template: %v", err)
			metrics.CollectorDecoderErrors.WithLabelValues(source, "template_not_found").Inc()
		} else {
			log.WithFields(log.Fields{"source": source}).
				Warnf("partial decode: %v", err)
			metrics.CollectorDecoderErrors.WithLabelValues(source, "decode").Inc()
		}
	}

	var records []*flow.Record
	for _, set := range msg.Sets {
		switch sc := set.(type) {
		case ipfix.TemplateSet:
			for _, tr := range sc.Records {
				metrics.CollectorTemplatesLearned.WithLabelValues(
					source,
					strconv.Itoa(int(msg.ObservationDomainID)),
					strconv.Itoa(int(tr.TemplateID)),
				).Inc()
			}
		case ipfix.DataSet:
			for _, dr := range sc.Records {
				records = append(records, ipfix.DecodeFlowRecord(dr, msg.ObservationDomainID))
			}
		}
	}

	if len(records) > 0 {
		c.store(source, records)
		metrics.CollectorFlowsDecoded.WithLabelValues(source).Add(float64(len(records)))
		c.ship(records)
	}
	metrics.CollectorDecodeTime.WithLabelValues("ipfix").
		Observe(float64(time.Since(start).Nanoseconds()) / 1000)
	return records
}

func (c *FlowCollector) store(source string, records []*flow.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := append(c.flows[source], records...)
	if len(stored) > MaxFlowsPerSource {
		stored = append(stored[:0:0], stored[len(stored)-TrimTo:]...)
	}
	c.flows[source] = stored
	c.received += uint64(len(records))
}

func (c *FlowCollector) ship(records []*flow.Record) {
	if c.Format == nil || c.Transport == nil {
		return
	}
	for _, r := range records {
		key, data, err := c.Format.Format(r)
		if err != nil {
			log.Errorf("formatting flow record: %v", err)
			continue
		}
		if err := c.Transport.Send(key, data); err != nil {
			log.Errorf("shipping flow record: %v", err)
		}
	}
}

// Templates exposes the schema cache, mainly for tests and the HTTP API.
func (c *FlowCollector) Templates() *ipfix.BasicTemplateSystem {
	return c.templates
}
