package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/auth"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// Device registrations. One registration per user: re-registering on a
// new device or trip replaces the old row.

type registrationRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleUpsertRegistration(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	actorID, _, ok := s.requireMember(w, r, tripID)
	if !ok {
		return
	}

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "BAD_REQUEST")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required", "BAD_REQUEST")
		return
	}

	reg, err := s.store.UpsertRegistration(actorID, tripID, req.Token)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	actorID := auth.ActorFromContext(r.Context())
	if err := s.store.DeleteRegistration(actorID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Activity feed

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	if _, _, ok := s.requireMember(w, r, tripID); !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
			return
		}
		limit = v
	}

	events, err := s.store.ActivityFeed(tripID, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if events == nil {
		events = []store.ActivityEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
