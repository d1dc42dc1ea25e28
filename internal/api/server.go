// Package api serves the published snapshot and run observability over
// HTTP: health, the three snapshot kinds, the run log, and an
// authenticated manual-refresh endpoint. Built on gorilla/mux, grounded
// on the same Server/commonMiddleware/registerRoutes shape as
// Outblock-flowindex's read API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/derickschaefer/undertow/internal/orchestrator"
	"github.com/derickschaefer/undertow/internal/store"
)

// Server wraps a gorilla/mux router and the underlying *http.Server.
type Server struct {
	store      *store.Store
	orch       *orchestrator.Orchestrator
	refreshTok string
	httpServer *http.Server
}

// New builds a Server listening on addr. refreshToken is the shared
// secret required by POST /api/refresh; an empty token means the
// endpoint rejects every caller.
func New(s *store.Store, orch *orchestrator.Orchestrator, refreshToken, addr string) *Server {
	srv := &Server{store: s, orch: orch, refreshTok: refreshToken}

	r := mux.NewRouter()
	r.Use(commonMiddleware)
	registerRoutes(r, srv)
	r.NotFoundHandler = http.HandlerFunc(notFound)

	srv.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return srv
}

// Start begins serving until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler, primarily for tests that
// want to drive routes with httptest without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found")
}

func registerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/indicators", s.handleIndicators).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/fred_raw", s.handleFredRaw).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/indeed_raw", s.handleIndeedRaw).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/runs", s.handleRuns).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost, http.MethodOptions)
}

func minutesSince(iso string) *float64 {
	if iso == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return nil
	}
	v := time.Since(t).Minutes()
	return &v
}
