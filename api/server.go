// Package api serves the HTTP query interface for agents and the collector.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/flowmesh/flowmesh/collector"
	"github.com/flowmesh/flowmesh/flow"
	"github.com/flowmesh/flowmesh/simulator"
)

// Server exposes read-only snapshots over HTTP. All state lives in the
// registry and collector it was built with.
type Server struct {
	registry  *simulator.Registry
	collector *collector.FlowCollector
	srv       *http.Server
}

func NewServer(addr string, registry *simulator.Registry, col *collector.FlowCollector) *Server {
	s := &Server{
		registry:  registry,
		collector: col,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/agents", s.agentsHandler).Methods("GET")
	r.HandleFunc("/api/v1/agents/{name}/flows", s.agentFlowsHandler).Methods("GET")
	r.HandleFunc("/api/v1/agents/{name}/flows/top", s.agentTopFlowsHandler).Methods("GET")
	r.HandleFunc("/api/v1/agents/{name}/flows/by-protocol", s.agentFlowsByProtocolHandler).Methods("GET")
	r.HandleFunc("/api/v1/agents/{name}/flows/by-class", s.agentFlowsByClassHandler).Methods("GET")
	r.HandleFunc("/api/v1/agents/{name}/statistics", s.agentStatisticsHandler).Methods("GET")
	r.HandleFunc("/api/v1/collector/sources", s.collectorSourcesHandler).Methods("GET")
	r.HandleFunc("/api/v1/collector/flows", s.collectorFlowsHandler).Methods("GET")
	r.HandleFunc("/api/v1/collector/flows/top", s.collectorTopFlowsHandler).Methods("GET")
	r.HandleFunc("/api/v1/collector/statistics", s.collectorStatisticsHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the listener and serves in the background. Bind failures are
// returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("api server stopped")
		}
	}()
	log.WithFields(log.Fields{"addr": s.srv.Addr}).Info("api server listening")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode api response")
	}
}

func (s *Server) agent(w http.ResponseWriter, r *http.Request) (*simulator.Agent, bool) {
	name := mux.Vars(r)["name"]
	a, ok := s.registry.Agent(name)
	if !ok {
		http.Error(w, "unknown agent "+name, http.StatusNotFound)
		return nil, false
	}
	return a, true
}

type agentSummary struct {
	Name       string   `json:"name"`
	RouterAddr string   `json:"router-addr"`
	Interfaces []string `json:"interfaces"`
}

func (s *Server) agentsHandler(w http.ResponseWriter, r *http.Request) {
	agents := s.registry.Agents()
	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		out = append(out, agentSummary{
			Name:       a.Name,
			RouterAddr: a.RouterAddr.String(),
			Interfaces: a.Interfaces,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) agentFlowsHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Exporter().GetActiveFlows())
}

// topParams reads ?n= and ?by= with the defaults used across handlers.
func topParams(r *http.Request) (int, flow.SortField) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	by := flow.SortByBytes
	switch flow.SortField(r.URL.Query().Get("by")) {
	case flow.SortByPackets:
		by = flow.SortByPackets
	case flow.SortByRate:
		by = flow.SortByRate
	}
	return n, by
}

func (s *Server) agentTopFlowsHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	n, by := topParams(r)
	writeJSON(w, http.StatusOK, a.Exporter().GetTopFlows(n, by))
}

func (s *Server) agentFlowsByProtocolHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Exporter().GetFlowsByProtocol())
}

func (s *Server) agentFlowsByClassHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Exporter().GetFlowsByServiceClass())
}

func (s *Server) agentStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agent(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Exporter().GetStatistics())
}

func (s *Server) collectorSourcesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.GetSources())
}

func (s *Server) collectorFlowsHandler(w http.ResponseWriter, r *http.Request) {
	if source := r.URL.Query().Get("source"); source != "" {
		writeJSON(w, http.StatusOK, s.collector.GetFlowsBySource(source))
		return
	}
	writeJSON(w, http.StatusOK, s.collector.GetFlows())
}

func (s *Server) collectorTopFlowsHandler(w http.ResponseWriter, r *http.Request) {
	n, by := topParams(r)
	writeJSON(w, http.StatusOK, s.collector.GetTopFlows(n, by))
}

func (s *Server) collectorStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.GetStatistics())
}
