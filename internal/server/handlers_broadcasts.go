package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// Broadcasts

func (s *Server) handleListBroadcasts(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	if _, _, ok := s.requireMember(w, r, tripID); !ok {
		return
	}
	items, err := s.store.ListBroadcasts(tripID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if items == nil {
		items = []store.Broadcast{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateBroadcast(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	actorID, ok := s.requireAdmin(w, r, tripID)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body", "BAD_REQUEST")
		return
	}
	if err := store.ValidatePayload("broadcast", body); err != nil {
		writeStoreError(w, err)
		return
	}

	var in store.BroadcastInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "BAD_REQUEST")
		return
	}
	in.TripID = tripID
	in.CreatedBy = actorID

	b, err := s.store.CreateBroadcast(in)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// No scheduled time means send immediately.
	if b.ScheduledFor == nil {
		s.promoteAndDeliver(w, r, b.ID, http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type broadcastPatchRequest struct {
	ExpectedVersion string               `json:"expected_version"`
	Patch           store.BroadcastPatch `json:"patch"`
}

func (s *Server) handleUpdateBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := s.store.GetBroadcast(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if _, ok := s.requireAdmin(w, r, b.TripID); !ok {
		return
	}

	var req broadcastPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "BAD_REQUEST")
		return
	}
	if req.ExpectedVersion == "" {
		writeError(w, http.StatusBadRequest, "expected_version is required", "BAD_REQUEST")
		return
	}

	updated, err := s.store.UpdateBroadcast(id, req.Patch, req.ExpectedVersion)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := s.store.GetBroadcast(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if _, ok := s.requireAdmin(w, r, b.TripID); !ok {
		return
	}
	if err := s.store.DeleteBroadcast(id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSendBroadcast(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := s.store.GetBroadcast(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if _, ok := s.requireAdmin(w, r, b.TripID); !ok {
		return
	}

	s.promoteAndDeliver(w, r, id, http.StatusOK)
}

// broadcastSendResponse is a sent broadcast plus the delivery outcome.
// DeliveryError is set when fanout failed after the promotion committed.
type broadcastSendResponse struct {
	store.Broadcast
	DeliveryError string `json:"delivery_error,omitempty"`
}

// promoteAndDeliver marks the broadcast sent and, when this call wins
// the promotion, fans it out. A lost promotion race is not an error:
// the broadcast is already sent and is returned as-is. The promotion is
// durable before delivery starts, so a delivery failure never fails the
// request; it is reported in the body next to the sent record.
func (s *Server) promoteAndDeliver(w http.ResponseWriter, r *http.Request, id string, status int) {
	b, promoted, err := s.store.MarkSent(id, time.Now().UTC())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resp := broadcastSendResponse{Broadcast: *b}
	if promoted && s.fanout != nil {
		if _, err := s.fanout.Deliver(r.Context(), b); err != nil {
			slog.Error("broadcast delivery failed", "broadcast_id", id, "error", err)
			resp.DeliveryError = err.Error()
		}
	}
	writeJSON(w, status, resp)
}
