package hub

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthub-dev/agenthub/go/pkg/hub/adapter"
	"github.com/agenthub-dev/agenthub/go/pkg/hub/backend"
)

// OpsServer exposes the hub's local operational surface: health, backend
// status, session listings, and metrics.
type OpsServer struct {
	hub    *Hub
	router *mux.Router
}

// NewOpsServer creates the ops surface over a hub.
func NewOpsServer(h *Hub) *OpsServer {
	s := &OpsServer{hub: h, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

func (s *OpsServer) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/backends", s.handleBackends).Methods("GET")
	s.router.HandleFunc("/sessions", s.handleSessions).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(
		s.hub.Metrics().Registry, promhttp.HandlerOpts{}))
}

// Handler returns the routed handler, for tests and embedding.
func (s *OpsServer) Handler() http.Handler { return s.router }

// Build wraps the routes into an HTTP server on the given address.
func (s *OpsServer) Build(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

func (s *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

// backendStatus is one row of the /backends listing.
type backendStatus struct {
	ID           string               `json:"id"`
	DisplayName  string               `json:"display_name"`
	Kind         backend.Kind         `json:"kind"`
	Capabilities backend.Capabilities `json:"capabilities"`
	State        adapter.State        `json:"state"`
	Address      string               `json:"address,omitempty"`
	LastError    string               `json:"last_error,omitempty"`
}

func (s *OpsServer) handleBackends(w http.ResponseWriter, r *http.Request) {
	var out []backendStatus
	for _, a := range s.hub.Adapters() {
		desc := a.Descriptor()
		conn := a.Connection()
		out = append(out, backendStatus{
			ID:           desc.ID,
			DisplayName:  desc.DisplayName,
			Kind:         desc.Kind,
			Capabilities: desc.Capabilities,
			State:        conn.State(),
			Address:      conn.Address(),
			LastError:    conn.LastError(),
		})
	}
	writeJSON(w, out)
}

func (s *OpsServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	reg := s.hub.Registry()
	type row struct {
		Slot        string `json:"slot"`
		ContextID   string `json:"context_id"`
		ProjectPath string `json:"project_path,omitempty"`
	}
	out := []row{}
	for _, slot := range reg.Slots() {
		contextID, _ := reg.Lookup(slot)
		path, _ := reg.ProjectPath(contextID)
		out = append(out, row{Slot: slot, ContextID: contextID, ProjectPath: path})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
