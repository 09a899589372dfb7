// Package web serves the one-button page that triggers a run, shows its
// result and offers the scraped table for download.
package web

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fmarket_nav/internal/processing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Runner performs one scrape-and-sync run.
type Runner interface {
	Run(ctx context.Context) (*processing.Summary, error)
}

type Server struct {
	runner  Runner
	metrics http.Handler
	running *semaphore.Weighted
	busy    atomic.Bool
	router  chi.Router

	mu   sync.RWMutex
	last *processing.Summary
}

// NewServer builds the router. metrics may be nil, in which case /metrics is
// not served.
func NewServer(runner Runner, metrics http.Handler) *Server {
	s := &Server{
		runner:  runner,
		metrics: metrics,
		running: semaphore.NewWeighted(1),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/run", s.handleRun)
	r.Get("/export.csv", s.handleExportCSV)
	r.Get("/export.xlsx", s.handleExportXLSX)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/last", s.handleLast)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, map[string]interface{}{"status": "ok", "running": s.Busy()})
		})
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// Busy reports whether a run is in flight.
func (s *Server) Busy() bool {
	return s.busy.Load()
}

func (s *Server) lastSummary() *processing.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryAcquire(1) {
		log.Warn().Msg("Run requested while another run is in progress")
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]interface{}{"error": "a run is already in progress"})
		return
	}
	defer s.running.Release(1)
	s.busy.Store(true)
	defer s.busy.Store(false)

	// The run outlives a dropped connection so sheet writes are not cut short.
	summary, err := s.runner.Run(context.WithoutCancel(r.Context()))
	if summary != nil {
		s.mu.Lock()
		s.last = summary
		s.mu.Unlock()
	}

	if wantsJSON(r) {
		if err != nil {
			render.Status(r, http.StatusBadGateway)
		}
		render.JSON(w, r, newSummaryResponse(summary, err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	summary := s.lastSummary()
	if summary == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]interface{}{"error": "no run yet"})
		return
	}
	render.JSON(w, r, newSummaryResponse(summary, summary.Err))
}

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
