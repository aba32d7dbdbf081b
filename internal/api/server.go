// Package api provides the HTTP API for observing and steering the engine.
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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/idle-engine/internal/config"
	"github.com/talgya/idle-engine/internal/engine"
	"github.com/talgya/idle-engine/internal/persistence"
)

// maxSpeed bounds the speed an admin may set.
const maxSpeed = 1000

// Server serves the engine state over HTTP.
type Server struct {
	Eng      *engine.Engine
	DB       *persistence.DB // optional; nil serves in-memory history only
	Settings *config.Settings
	Save     func() error // manual save; nil disables POST /save
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	saveLimiter *RateLimiter
	streamConns int32
	httpServer  *http.Server
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.saveLimiter == nil {
		s.saveLimiter = NewRateLimiter(6, time.Minute)
	}

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/offline", s.handleOffline)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/save", s.adminOnly(RateLimitMiddleware(s.saveLimiter, s.handleSave)))
	mux.HandleFunc("/api/v1/settings", s.adminOnly(s.handleSettings))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no IDLE_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.Eng.Snapshot()
	resp := map[string]any{
		"status": status,
	}
	if summary, ok := s.Eng.LastSummary(); ok {
		resp["offline"] = summary.String()
	}
	writeJSON(w, resp)
}

func (s *Server) handleOffline(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.Eng.LastSummary()
	if !ok && s.DB != nil {
		var err error
		summary, ok, err = s.DB.LastOfflineSummary()
		if err != nil {
			slog.Error("load offline summary", "error", err)
			http.Error(w, "load failed", http.StatusInternalServerError)
			return
		}
	}
	if !ok {
		http.Error(w, "no offline summary yet", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"summary": summary,
		"text":    summary.String(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	// Saved history first, then events recorded since the last save.
	var events []engine.Event
	if s.DB != nil {
		saved, err := s.DB.RecentEvents(limit)
		if err != nil {
			slog.Error("load events", "error", err)
			http.Error(w, "load failed", http.StatusInternalServerError)
			return
		}
		events = saved
	}
	events = append(events, s.Eng.RecentEvents(limit)...)

	if category := r.URL.Query().Get("category"); category != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events[start:])
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
		if req.Speed < 0 || req.Speed > maxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%d", maxSpeed), http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Save == nil {
		http.Error(w, "saving disabled", http.StatusServiceUnavailable)
		return
	}
	start := time.Now()
	if err := s.Save(); err != nil {
		slog.Error("manual save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	slog.Info("manual save", "duration", time.Since(start))
	writeJSON(w, map[string]any{
		"saved":  true,
		"cycles": s.Eng.Cycles(),
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.Settings == nil {
		http.Error(w, "settings unavailable", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			AutosaveSeconds *int `json:"autosave_seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.AutosaveSeconds != nil {
			if *req.AutosaveSeconds < 0 {
				http.Error(w, "autosave_seconds must be >= 0 (0 disables autosave)", http.StatusBadRequest)
				return
			}
			s.Settings.SetAutosaveSeconds(*req.AutosaveSeconds)
			slog.Info("autosave interval changed", "seconds", *req.AutosaveSeconds)
		}
	}

	writeJSON(w, map[string]int{"autosave_seconds": s.Settings.AutosaveSeconds()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
