// Package api serves read-only observation of the habitat over HTTP.
// Anyone can check in on the swarm; nothing here mutates it: agent
// control stays inside the process.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/swarmsim/internal/controller"
	"github.com/talgya/swarmsim/internal/engine"
	"github.com/talgya/swarmsim/internal/env"
	"github.com/talgya/swarmsim/internal/types"
)

// Server exposes habitat state over HTTP.
type Server struct {
	Env     *env.Environment
	Runtime *engine.Runtime
	Port    int
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	limiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.limited(limiter, s.handleStatus))
	mux.HandleFunc("/api/v1/agents", s.limited(limiter, s.handleAgents))
	mux.HandleFunc("/api/v1/agent/", s.limited(limiter, s.handleAgentDetail))
	mux.HandleFunc("/api/v1/resources", s.limited(limiter, s.handleResources))
	mux.HandleFunc("/api/v1/dynamics", s.limited(limiter, s.handleDynamics))
	mux.HandleFunc("/api/v1/events", s.limited(limiter, s.handleEvents))

	addr := fmt.Sprintf(":%d", s.Port)
	go func() {
		slog.Info("observation API listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("API server stopped", "error", err)
		}
	}()
}

// limited enforces GET-only access plus the rate limit.
func (s *Server) limited(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "read-only API", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entities := s.Env.Entities()
	status := map[string]any{
		"name":   "swarmsim",
		"uptime": humanize.Time(s.Env.StartedAt()),
		"agents": len(entities),
	}
	if s.Runtime != nil {
		status["tick"] = s.Runtime.Tick()
		status["speed"] = s.Runtime.Speed()
	}
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		ID         string             `json:"id"`
		Host       string             `json:"host"`
		Namespace  string             `json:"namespace"`
		Visibility string             `json:"visibility"`
		Holding    map[string]float64 `json:"holding,omitempty"`
		Joined     string             `json:"joined"`
	}

	var out []agentSummary
	for _, e := range s.Env.Entities() {
		out = append(out, agentSummary{
			ID:         e.ID,
			Host:       e.Location.Host,
			Namespace:  e.Location.Namespace,
			Visibility: string(e.Visibility),
			Holding:    e.Allocations,
			Joined:     humanize.Time(e.CreatedAt),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/agent/")
	if id == "" {
		http.Error(w, "agent id required", http.StatusBadRequest)
		return
	}

	var entity *types.Entity
	for _, e := range s.Env.Entities() {
		if e.ID == id {
			entity = &e
			break
		}
	}
	if entity == nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	detail := map[string]any{"entity": entity}
	if c := s.controllerFor(id); c != nil {
		state := c.State()
		detail["cognitive_threshold"] = state.CognitiveThreshold
		detail["success_rates"] = state.SuccessRates
		detail["mode_history"] = c.History(16)
	}
	writeJSON(w, detail)
}

func (s *Server) controllerFor(id string) *controller.Controller {
	if s.Runtime == nil {
		return nil
	}
	for _, c := range s.Runtime.Controllers() {
		if c.AgentID() == id {
			return c
		}
	}
	return nil
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Env.Resources.Usage())
}

func (s *Server) handleDynamics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Env.Dynamics.Snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Env.RecentEvents(env.EventRetention))
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
