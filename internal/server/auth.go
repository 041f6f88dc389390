package server

import (
	"net/http"
	"strings"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/auth"
)

// requireActor verifies the bearer token and stores the actor id in the
// request context. Every /api/v1 route runs behind it.
func (s *Server) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			// SSE clients cannot set headers; allow the token as a
			// query parameter there.
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token", "UNAUTHORIZED")
			return
		}
		actorID, err := auth.ParseToken(s.jwtSecret, raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid bearer token", "UNAUTHORIZED")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actorID)))
	})
}

// requireMember resolves the actor's role on the trip. An empty role
// means not a member; reads and registrations require at least member.
func (s *Server) requireMember(w http.ResponseWriter, r *http.Request, tripID string) (actorID, role string, ok bool) {
	actorID = auth.ActorFromContext(r.Context())
	role, err := s.store.MemberRole(tripID, actorID)
	if err != nil {
		writeStoreError(w, err)
		return "", "", false
	}
	if role == "" {
		writeError(w, http.StatusForbidden, "not a member of this trip", "PERMISSION_DENIED")
		return "", "", false
	}
	return actorID, role, true
}

// requireAdmin gates mutations: the actor must hold the admin role on
// the trip right now, checked against the database, never a cache.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request, tripID string) (actorID string, ok bool) {
	actorID = auth.ActorFromContext(r.Context())
	if !s.gate.CanMutate(r.Context(), tripID, actorID) {
		writeError(w, http.StatusForbidden, "admin role required", "PERMISSION_DENIED")
		return "", false
	}
	return actorID, true
}
