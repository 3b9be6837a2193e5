package collector

import (
	"github.com/flowmesh/flowmesh/flow"
)

// Statistics is a point-in-time summary of one collector.
type Statistics struct {
	Sources        int    `json:"sources"`
	StoredFlows    int    `json:"stored-flows"`
	ReceivedFlows  uint64 `json:"received-flows"`
	DroppedPackets uint64 `json:"dropped-packets"`
	Templates      int    `json:"templates"`
}

// GetSources lists the exporter addresses flows have been received from.
func (c *FlowCollector) GetSources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.flows))
	for src := range c.flows {
		out = append(out, src)
	}
	return out
}

// GetFlowsBySource returns independent copies of the stored flows for one
// source exporter, oldest first.
func (c *FlowCollector) GetFlowsBySource(source string) []*flow.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stored := c.flows[source]
	out := make([]*flow.Record, 0, len(stored))
	for _, r := range stored {
		out = append(out, r.Clone())
	}
	return out
}

// GetFlows returns independent copies of all stored flows across sources.
func (c *FlowCollector) GetFlows() []*flow.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*flow.Record
	for _, stored := range c.flows {
		for _, r := range stored {
			out = append(out, r.Clone())
		}
	}
	return out
}

// GetTopFlows returns the n busiest stored flows by the given sort field.
func (c *FlowCollector) GetTopFlows(n int, by flow.SortField) []*flow.Record {
	return flow.TopRecords(c.GetFlows(), n, by)
}

// GetStatistics summarizes the collector state.
func (c *FlowCollector) GetStatistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := Statistics{
		Sources:        len(c.flows),
		ReceivedFlows:  c.received,
		DroppedPackets: c.dropped,
		Templates:      c.templates.Count(),
	}
	for _, stored := range c.flows {
		stats.StoredFlows += len(stored)
	}
	return stats
}
