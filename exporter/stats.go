package exporter

import (
	"github.com/flowmesh/flowmesh/flow"
)

// Statistics is a point-in-time summary of one exporter.
type Statistics struct {
	AgentID           string `json:"agent-id"`
	ObservationDomain uint32 `json:"observation-domain"`
	ActiveFlows       int    `json:"active-flows"`
	HistoryFlows      int    `json:"history-flows"`
	TotalBytes        uint64 `json:"total-bytes"`
	TotalPackets      uint64 `json:"total-packets"`
	SequenceNumber    uint32 `json:"sequence-number"`
	MessagesExported  uint64 `json:"messages-exported"`
	Collectors        int    `json:"collectors"`
}

// GetActiveFlows returns independent copies of all active flow records.
func (e *FlowExporter) GetActiveFlows() []*flow.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*flow.Record, 0, len(e.active))
	for _, r := range e.active {
		out = append(out, r.Clone())
	}
	return out
}

// GetHistory returns independent copies of the expired-flow history, oldest
// first.
func (e *FlowExporter) GetHistory() []*flow.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*flow.Record, 0, len(e.history))
	for _, r := range e.history {
		out = append(out, r.Clone())
	}
	return out
}

// GetTopFlows returns the n busiest active flows by the given sort field.
func (e *FlowExporter) GetTopFlows(n int, by flow.SortField) []*flow.Record {
	return flow.TopRecords(e.GetActiveFlows(), n, by)
}

// GetFlowsByProtocol groups active flows by protocol display name.
func (e *FlowExporter) GetFlowsByProtocol() map[string][]*flow.Record {
	out := make(map[string][]*flow.Record)
	for _, r := range e.GetActiveFlows() {
		name := flow.ProtocolName(r.Key.Protocol)
		out[name] = append(out[name], r)
	}
	return out
}

// GetFlowsByServiceClass groups active flows by service class.
func (e *FlowExporter) GetFlowsByServiceClass() map[string][]*flow.Record {
	out := make(map[string][]*flow.Record)
	for _, r := range e.GetActiveFlows() {
		out[r.ServiceClass] = append(out[r.ServiceClass], r)
	}
	return out
}

// GetStatistics summarizes the exporter state.
func (e *FlowExporter) GetStatistics() Statistics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := Statistics{
		AgentID:           e.AgentID,
		ObservationDomain: e.obsDomain,
		ActiveFlows:       len(e.active),
		HistoryFlows:      len(e.history),
		SequenceNumber:    e.seq,
		MessagesExported:  e.exportedMsgs,
		Collectors:        len(e.collectors),
	}
	for _, r := range e.active {
		stats.TotalBytes += r.ByteCount
		stats.TotalPackets += r.PacketCount
	}
	return stats
}
