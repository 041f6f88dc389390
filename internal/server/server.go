// Package server exposes the sync engine over HTTP: JSON mutation
// endpoints, an SSE change stream per trip, and the promotion webhook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/auth"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/observability"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/push"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/scheduler"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// Server is the HTTP server for the trip sync engine.
type Server struct {
	store      *store.Store
	gate       auth.Gate
	sweeper    *scheduler.Sweeper
	fanout     *push.Fanout
	jwtSecret  []byte
	httpServer *http.Server
	router     chi.Router
}

// New creates a new Server. sweeper and fanout may be nil: without a
// sweeper the promote endpoint reports the feature unavailable, and
// without a fanout promoted broadcasts are marked sent undelivered.
func New(s *store.Store, gate auth.Gate, sweeper *scheduler.Sweeper, fanout *push.Fanout, jwtSecret []byte, bindAddr string) *Server {
	srv := &Server{store: s, gate: gate, sweeper: sweeper, fanout: fanout, jwtSecret: jwtSecret}
	srv.router = srv.buildRouter()
	srv.httpServer = &http.Server{
		Addr:    bindAddr,
		Handler: srv.router,
	}
	return srv
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(structuredLogger)
	r.Use(observability.HTTPMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireActor)

		// Schedule
		r.Get("/trips/{trip_id}/schedule", s.handleListSchedule)
		r.Post("/trips/{trip_id}/schedule", s.handleCreateScheduleItem)
		r.Patch("/schedule/{id}", s.handleUpdateScheduleItem)
		r.Delete("/schedule/{id}", s.handleDeleteScheduleItem)
		r.Post("/trips/{trip_id}/schedule/reorder", s.handleReorderSchedule)
		r.Post("/trips/{trip_id}/schedule/batch", s.handleBatchUpdateSchedule)

		// Broadcasts
		r.Get("/trips/{trip_id}/broadcasts", s.handleListBroadcasts)
		r.Post("/trips/{trip_id}/broadcasts", s.handleCreateBroadcast)
		r.Patch("/broadcasts/{id}", s.handleUpdateBroadcast)
		r.Delete("/broadcasts/{id}", s.handleDeleteBroadcast)
		r.Post("/broadcasts/{id}/send", s.handleSendBroadcast)

		// Device registrations
		r.Put("/trips/{trip_id}/registrations", s.handleUpsertRegistration)
		r.Delete("/registrations", s.handleDeleteRegistration)

		// Trip views
		r.Get("/trips/{trip_id}/activity", s.handleActivity)
		r.Get("/trips/{trip_id}/events", s.handleTripEvents)

		// Promotion webhook for external cron
		r.Post("/admin/promote", s.handlePromote)
	})

	r.Get("/healthz", s.handleHealthz)

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}

// writeStoreError maps the store's error taxonomy onto HTTP statuses.
// Conflicts carry the current server record so clients can rebase.
func writeStoreError(w http.ResponseWriter, err error) {
	if ce, ok := store.AsConflict(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   err.Error(),
			"code":    "CONFLICT",
			"current": ce.Current,
		})
		return
	}
	if ve, ok := store.AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": err.Error(),
			"code":  "VALIDATION_FAILED",
			"items": ve.Items,
		})
		return
	}
	var te *store.TransportError
	switch {
	case errors.Is(err, store.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error(), "PERMISSION_DENIED")
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, store.ErrBroadcastSent):
		writeError(w, http.StatusConflict, err.Error(), "BROADCAST_SENT")
	case errors.As(err, &te):
		writeError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

// Middleware

func structuredLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
