package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// Schedule items

func (s *Server) handleListSchedule(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	if _, _, ok := s.requireMember(w, r, tripID); !ok {
		return
	}
	items, err := s.store.ListScheduleItems(tripID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if items == nil {
		items = []store.ScheduleItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateScheduleItem(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	if _, ok := s.requireAdmin(w, r, tripID); !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body", "BAD_REQUEST")
		return
	}
	if err := store.ValidatePayload("schedule_item", body); err != nil {
		writeStoreError(w, err)
		return
	}

	var in store.ScheduleItemInput
	if err := json.Unmarshal(body, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "BAD_REQUEST")
		return
	}
	in.TripID = tripID

	item, err := s.store.CreateScheduleItem(in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type schedulePatchRequest struct {
	ExpectedVersion string                  `json:"expected_version"`
	Patch           store.ScheduleItemPatch `json:"patch"`
}

func (s *Server) handleUpdateScheduleItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := s.store.GetScheduleItem(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if _, ok := s.requireAdmin(w, r, item.TripID); !ok {
		return
	}

	var req schedulePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "BAD_REQUEST")
		return
	}
	if req.ExpectedVersion == "" {
		writeError(w, http.StatusBadRequest, "expected_version is required", "BAD_REQUEST")
		return
	}

	updated, err := s.store.UpdateScheduleItem(id, req.Patch, req.ExpectedVersion)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteScheduleItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := s.store.GetScheduleItem(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if _, ok := s.requireAdmin(w, r, item.TripID); !ok {
		return
	}
	if err := s.store.DeleteScheduleItem(id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type reorderRequest struct {
	Items []store.IDOrder `json:"items"`
}

func (s *Server) handleReorderSchedule(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	if _, ok := s.requireAdmin(w, r, tripID); !ok {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "BAD_REQUEST")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required", "BAD_REQUEST")
		return
	}

	items, err := s.store.ReorderScheduleItems(tripID, req.Items)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type batchUpdateRequest struct {
	Patches []store.PatchWithID `json:"patches"`
}

func (s *Server) handleBatchUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "trip_id")
	if _, ok := s.requireAdmin(w, r, tripID); !ok {
		return
	}

	var req batchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "BAD_REQUEST")
		return
	}
	if len(req.Patches) == 0 {
		writeError(w, http.StatusBadRequest, "patches is required", "BAD_REQUEST")
		return
	}

	items, err := s.store.BatchUpdateScheduleItems(req.Patches)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
