package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/collector"
	"github.com/flowmesh/flowmesh/exporter"
	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/simulator"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := simulator.NewRegistry(simulator.Config{})

	exp := exporter.NewFlowExporter("r1", exporter.Config{})
	exp.RecordFlow(exporter.FlowSample{
		SrcIP:    netip.MustParseAddr("10.0.0.1"),
		DstIP:    netip.MustParseAddr("10.0.0.2"),
		SrcPort:  49152,
		DstPort:  443,
		Protocol: flow.ProtoTCP,
		Bytes:    1500,
	})
	_, err := reg.AddAgent("r1", []string{"ge-0/0/0"}, exp)
	require.NoError(t, err)

	col := collector.NewFlowCollector(collector.Config{})
	return NewServer("127.0.0.1:0", reg, col)
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestAgentsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, "/api/v1/agents")
	require.Equal(t, http.StatusOK, rec.Code)

	var agents []agentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "r1", agents[0].Name)
	assert.Equal(t, "10.0.1.1", agents[0].RouterAddr)
}

func TestAgentFlowsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, "/api/v1/agents/r1/flows")
	require.Equal(t, http.StatusOK, rec.Code)

	var flows []*flow.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flows))
	require.Len(t, flows, 1)
	assert.Equal(t, uint64(1500), flows[0].ByteCount)
}

func TestAgentTopFlowsParams(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, "/api/v1/agents/r1/flows/top?n=5&by=packets")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownAgent(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, "/api/v1/agents/r9/flows")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectorEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/v1/collector/sources",
		"/api/v1/collector/flows",
		"/api/v1/collector/flows/top",
		"/api/v1/collector/statistics",
	} {
		rec := doRequest(t, s, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
