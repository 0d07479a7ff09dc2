// Package api provides the HTTP API for observing the office.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/mini-office/internal/agents"
	"github.com/talgya/mini-office/internal/engine"
	"github.com/talgya/mini-office/internal/interaction"
	"github.com/talgya/mini-office/internal/needs"
	"github.com/talgya/mini-office/internal/persistence"
	"github.com/talgya/mini-office/internal/world"
)

const maxSSEConns = 4

// Server serves the office state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // Optional; enables snapshots
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for the SSE stream. Empty = stream open.

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	adminLimiter := NewRateLimiter(60, time.Minute)
	streamLimiter := NewRateLimiter(10, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentDetail)
	mux.HandleFunc("/api/v1/interactions", s.handleInteractions)
	mux.HandleFunc("/api/v1/work", s.handleWork)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	// SSE streaming endpoint.
	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(streamLimiter, s.handleStream))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleSnapshot)))
	mux.HandleFunc("/api/v1/intervention", s.adminOnly(RateLimitMiddleware(adminLimiter, s.handleIntervention)))

	return mux
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// checkBearer reports whether the request carries key as its bearer token.
func checkBearer(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no OFFICESIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !checkBearer(r, s.AdminKey) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var status map[string]any
	s.Sim.View(func(sim *engine.Simulation) {
		status = map[string]any{
			"name":        "Mini Office",
			"tick":        sim.LastTick,
			"sim_time":    engine.SimTime(sim.Clock),
			"population":  sim.Stats.Population,
			"performing":  sim.Stats.Performing,
			"traveling":   sim.Stats.Traveling,
			"needs_fine":  sim.Stats.NeedsFine,
			"objects":     sim.Catalog.Len(),
			"completions": sim.Stats.Completions,
		}
	})
	status["speed"] = s.Eng.Speed()
	status["running"] = s.Eng.Running()
	status["paused"] = s.Eng.Speed() == 0
	if p, ok := s.Sim.Board.Active(); ok {
		status["project"] = p
	}
	writeJSON(w, status)
}

type agentSummary struct {
	ID          agents.AgentID `json:"id"`
	Name        string         `json:"name"`
	Phase       agents.Phase   `json:"phase"`
	Interaction string         `json:"interaction,omitempty"`
	Position    world.Vec3     `json:"position"`
	Yaw         float64        `json:"yaw"`
	Skill       float64        `json:"skill"`
	NeedsFine   bool           `json:"needs_fine"`
	LowestNeed  string         `json:"lowest_need"`
}

func summarize(a *agents.Agent) agentSummary {
	lowest, lowestFrac := "", 2.0
	for _, k := range needs.Kinds() {
		if c := a.Needs.Cap(k); c > 0 {
			if f := a.Needs.Value(k) / c; f < lowestFrac {
				lowest, lowestFrac = k.String(), f
			}
		}
	}
	return agentSummary{
		ID:          a.ID,
		Name:        a.Name,
		Phase:       a.Decision.Phase,
		Interaction: a.Decision.CurrentName(),
		Position:    a.Position,
		Yaw:         a.Yaw,
		Skill:       a.Skill,
		NeedsFine:   a.Needs.IsAcceptable(),
		LowestNeed:  lowest,
	}
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	phase := r.URL.Query().Get("phase")

	result := []agentSummary{}
	s.Sim.View(func(sim *engine.Simulation) {
		for _, a := range sim.Agents {
			if phase != "" && a.Decision.Phase.String() != phase {
				continue
			}
			result = append(result, summarize(a))
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing agent id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	type claimView struct {
		Object      string      `json:"object"`
		Interaction string      `json:"interaction"`
		Category    string      `json:"category"`
		Status      string      `json:"status"`
		Elapsed     float64     `json:"elapsed"`
		Duration    float64     `json:"duration"`
		Target      world.Point `json:"target"`
	}
	type agentDetail struct {
		agentSummary
		Needs    map[string]needs.Level `json:"needs"`
		Decision agents.Decision        `json:"decision"`
		Claim    *claimView             `json:"claim,omitempty"`
		BornTick uint64                 `json:"born_tick"`
	}

	var detail *agentDetail
	s.Sim.View(func(sim *engine.Simulation) {
		a, ok := sim.AgentIndex[agents.AgentID(id)]
		if !ok {
			return
		}
		detail = &agentDetail{
			agentSummary: summarize(a),
			Needs:        a.NeedLevels(),
			Decision:     a.Decision,
			BornTick:     a.BornTick,
		}
		if c := a.Decision.Current; c != nil {
			detail.Claim = &claimView{
				Object:      c.Object.Name,
				Interaction: c.Interaction.Name(),
				Category:    c.Interaction.Category().String(),
				Status:      c.Interaction.Status().String(),
				Elapsed:     c.Interaction.Elapsed(),
				Duration:    c.Interaction.Duration(),
				Target:      c.Target,
			}
		}
	})
	if detail == nil {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	type interactionView struct {
		ID       string               `json:"id"`
		Name     string               `json:"name"`
		Category string               `json:"category"`
		Status   string               `json:"status"`
		Claimant *uint64              `json:"claimant,omitempty"`
		Elapsed  float64              `json:"elapsed"`
		Duration float64              `json:"duration"`
		Effects  []interaction.Effect `json:"effects"`
	}
	type objectView struct {
		ID           string            `json:"id"`
		Name         string            `json:"name"`
		Position     world.Vec3        `json:"position"`
		Points       []world.Point     `json:"points,omitempty"`
		Interactions []interactionView `json:"interactions"`
	}

	result := []objectView{}
	s.Sim.View(func(sim *engine.Simulation) {
		for _, obj := range sim.Catalog.Objects() {
			ov := objectView{
				ID:       obj.ID.String(),
				Name:     obj.Name,
				Position: obj.Position,
				Points:   obj.Points,
			}
			for _, it := range obj.Interactions() {
				if category != "" && it.Category().String() != category {
					continue
				}
				iv := interactionView{
					ID:       it.ID().String(),
					Name:     it.Name(),
					Category: it.Category().String(),
					Status:   it.Status().String(),
					Elapsed:  it.Elapsed(),
					Duration: it.Duration(),
					Effects:  it.Effects(),
				}
				if id, ok := it.Claimant(); ok {
					iv.Claimant = &id
				}
				ov.Interactions = append(ov.Interactions, iv)
			}
			if len(ov.Interactions) > 0 {
				result = append(result, ov)
			}
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	b := s.Sim.Board
	resp := map[string]any{
		"workers":        b.Workers(),
		"available_slot": b.HasAvailableSlot(),
		"queued":         b.Queued(),
	}
	if p, ok := b.Active(); ok {
		resp["active"] = p
	}

	done := b.Completed()
	if len(done) > 20 {
		done = done[len(done)-20:]
	}
	resp["completed"] = done
	writeJSON(w, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	var events []engine.Event
	s.Sim.View(func(sim *engine.Simulation) {
		for _, e := range sim.Events {
			if category != "" && e.Category != category {
				continue
			}
			events = append(events, e)
		}
	})

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, append([]engine.Event{}, events[start:]...))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats engine.SimStats
	s.Sim.View(func(sim *engine.Simulation) { stats = sim.Stats })
	writeJSON(w, stats)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.CurrentTick(),
		"message": "snapshot saved",
	})
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type        string                  `json:"type"`
		Description string                  `json:"description,omitempty"`
		Category    string                  `json:"category,omitempty"`
		Count       int                     `json:"count,omitempty"`
		AgentID     uint64                  `json:"agent_id,omitempty"`
		Object      string                  `json:"object,omitempty"`
		Definition  *interaction.Definition `json:"definition,omitempty"`
		Name        string                  `json:"name,omitempty"`
		Complexity  int                     `json:"complexity,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case "event":
		if req.Description == "" {
			http.Error(w, "description required for event type", http.StatusBadRequest)
			return
		}
		cat := req.Category
		if cat == "" {
			cat = "intervention"
		}
		s.Sim.Update(func(sim *engine.Simulation) {
			sim.EmitEvent(engine.Event{Tick: sim.LastTick, Description: req.Description, Category: cat})
		})
		writeJSON(w, map[string]any{"success": true, "details": "event injected"})

	case "hire":
		if req.Count <= 0 || req.Count > 50 {
			http.Error(w, "count must be 1-50 for hire type", http.StatusBadRequest)
			return
		}
		hired, err := s.Sim.Hire(req.Count)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"success": true, "details": fmt.Sprintf("%d agents hired", len(hired))})

	case "dismiss":
		if err := s.Sim.Dismiss(agents.AgentID(req.AgentID)); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"success": true, "details": fmt.Sprintf("agent %d dismissed", req.AgentID)})

	case "remove_object":
		desc, err := s.Sim.RemoveObject(req.Object)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"success": true, "details": desc})

	case "add_object":
		if req.Definition == nil {
			http.Error(w, "definition required for add_object type", http.StatusBadRequest)
			return
		}
		desc, err := s.Sim.AddObject(*req.Definition)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"success": true, "details": desc})

	case "post_project":
		desc, err := s.Sim.PostProject(req.Name, req.Complexity)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"success": true, "details": desc})

	default:
		http.Error(w, "unknown intervention type (use: event, hire, dismiss, remove_object, add_object, post_project)", http.StatusBadRequest)
	}
}

// handleStream provides an SSE endpoint for real-time event streaming.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey != "" && !checkBearer(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Catch-up: the last 50 events. Subscribing under the same read lock
	// means no event lands in both the backlog and the channel.
	var (
		subID   int
		ch      <-chan engine.Event
		backlog []engine.Event
	)
	s.Sim.View(func(sim *engine.Simulation) {
		subID, ch = sim.Subscribe()
		start := max(len(sim.Events)-50, 0)
		backlog = append(backlog, sim.Events[start:]...)
	})
	defer s.Sim.Unsubscribe(subID)
	for _, e := range backlog {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Category, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
