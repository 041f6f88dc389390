package server

import (
	"net/http"
)

// handlePromote runs one promotion sweep. External cron can hit this
// instead of waiting for the in-process ticker.
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	if s.sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "promotion sweeper not configured", "UNAVAILABLE")
		return
	}

	res := s.sweeper.RunOnce(r.Context())
	errs := make([]string, 0, len(res.Errors))
	for _, err := range res.Errors {
		errs = append(errs, err.Error())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"promoted": res.Promoted,
		"errors":   errs,
	})
}
