package transport

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/hovernet-protocol/hovernet/internal/audit"
	"github.com/hovernet-protocol/hovernet/internal/registry"
	"github.com/hovernet-protocol/hovernet/pkg/hovernet"
)

// AskFunc answers a raw natural-language request submitted over HTTP.
type AskFunc func(ctx context.Context, query string) hovernet.RouterDecision

// Server exposes an agent's transport endpoint: a WebSocket for peer
// envelopes plus a small read-only HTTP surface.
type Server struct {
	agentID  string
	hub      *Hub
	registry *registry.Registry
	trail    *audit.Trail
	ask      AskFunc
	mux      *http.ServeMux
}

// NewServer creates a transport server. ask may be nil; the /api/ask
// endpoint is only mounted when it is provided.
func NewServer(agentID string, hub *Hub, reg *registry.Registry, trail *audit.Trail, ask AskFunc) *Server {
	s := &Server{
		agentID:  agentID,
		hub:      hub,
		registry: reg,
		trail:    trail,
		ask:      ask,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/agents", s.handleAgents)
	s.mux.HandleFunc("/api/audit", s.handleAudit)
	s.mux.HandleFunc("/api/v1/ws", s.handleWebSocket)
	if s.ask != nil {
		s.mux.HandleFunc("/api/ask", s.handleAsk)
	}
}

// Handler returns the HTTP handler for this server, for tests and for
// embedding under a custom listener.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves the transport endpoint on addr, blocking.
func (s *Server) Start(addr string) error {
	log.Printf("[transport] %s listening on %s", s.agentID, addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "agent": s.agentID})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	peers := s.registry.Peers()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"agents": peers,
		"count":  len(peers),
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries := s.trail.Recent(50)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	decision := s.ask(r.Context(), req.Query)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decision)
}

// handleWebSocket upgrades a peer connection. The peer identifies
// itself with agent_id and role query parameters and is registered as
// a known peer for the lifetime of the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		http.Error(w, "agent_id is required", http.StatusBadRequest)
		return
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		role = string(registry.RoleSpecialist)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[transport] upgrade failed for %s: %v", agentID, err)
		return
	}

	if err := s.registry.Register(registry.Peer{
		ID:      agentID,
		Role:    registry.Role(role),
		Address: r.RemoteAddr,
	}); err != nil {
		log.Printf("[transport] failed to register peer %s: %v", agentID, err)
	}

	peer := s.hub.attach(agentID, conn)
	go peer.writePump()
	go peer.readPump()
}
