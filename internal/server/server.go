// Package server exposes health, metrics, the weekly report and strategy state over HTTP
// for the scheduled daemon.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"salgsmester/internal/interfaces"
	"salgsmester/internal/logger"
	"salgsmester/internal/metrics"
	"salgsmester/internal/types"
)

// TriggerFunc runs one cycle on demand.
type TriggerFunc func(ctx context.Context) (*types.CycleResult, error)

// Config holds server configuration
type Config struct {
	Addr    string
	Engine  interfaces.Engine
	Metrics *metrics.Metrics
	// Trigger enables POST /api/cycle when set.
	Trigger TriggerFunc
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	engine  interfaces.Engine
	metrics *metrics.Metrics
	trigger TriggerFunc
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		engine:  cfg.Engine,
		metrics: cfg.Metrics,
		trigger: cfg.Trigger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(loggingMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Get("/report", s.handleReport)
	s.router.Get("/state", s.handleState)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/trades", s.handleTrades)
		if s.trigger != nil {
			r.Post("/cycle", s.handleCycle)
		}
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info(context.Background(), "Starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.engine.WeeklySummary()))
}

type stateResponse struct {
	LastRebalance *time.Time `json:"last_rebalance"`
	Trades        int        `json:"trades"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	st := s.engine.State()
	resp := stateResponse{Trades: len(s.engine.TradeLog())}
	if !st.IsZero() {
		resp.LastRebalance = &st.LastRebalance
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrades(w http.ResponseWriter, _ *http.Request) {
	entries := s.engine.TradeLog()
	if entries == nil {
		entries = []types.TradeLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	res, err := s.trigger(r.Context())
	if err != nil {
		logger.ErrorWithErr(r.Context(), "On-demand cycle failed", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "result": res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
