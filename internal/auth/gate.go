// Package auth resolves actor identity and answers permission checks.
// Admin rights can change between visits, so the gate re-evaluates
// membership on every call; cached answers are provisional only.
package auth

import (
	"context"
	"log/slog"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/cache"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// Gate decides whether an actor may mutate a trip's collections.
// Implementations return false rather than failing; callers translate
// false into a permission-denied error.
type Gate interface {
	CanMutate(ctx context.Context, tripID, actorID string) bool
}

// MembershipGate answers from the trip_members table with a fresh query
// per call.
type MembershipGate struct {
	store *store.Store
}

// NewMembershipGate creates a gate over s.
func NewMembershipGate(s *store.Store) *MembershipGate {
	return &MembershipGate{store: s}
}

// CanMutate reports whether actorID is an admin of tripID. Lookup
// failures deny access.
func (g *MembershipGate) CanMutate(ctx context.Context, tripID, actorID string) bool {
	if tripID == "" || actorID == "" {
		return false
	}
	role, err := g.store.MemberRole(tripID, actorID)
	if err != nil {
		slog.Error("permission check failed", "trip_id", tripID, "actor_id", actorID, "error", err)
		return false
	}
	return role == store.RoleAdmin
}

// ProvisionalGate wraps a Gate and mirrors its answers into the local
// cache. Provisional serves the cached flag for immediate feedback;
// CanMutate always asks the inner gate and refreshes the cache, so the
// cached value never gates a mutation.
type ProvisionalGate struct {
	inner Gate
	cache *cache.Cache
}

// NewProvisionalGate creates a caching wrapper around inner.
func NewProvisionalGate(inner Gate, c *cache.Cache) *ProvisionalGate {
	return &ProvisionalGate{inner: inner, cache: c}
}

// CanMutate consults the inner gate and records the result.
func (g *ProvisionalGate) CanMutate(ctx context.Context, tripID, actorID string) bool {
	ok := g.inner.CanMutate(ctx, tripID, actorID)
	if err := g.cache.SetAdminFlag(tripID, actorID, ok); err != nil {
		slog.Warn("cache admin flag", "error", err)
	}
	return ok
}

// Provisional returns the last-known admin flag without a fresh check.
// known=false means the question was never answered for this pair.
func (g *ProvisionalGate) Provisional(tripID, actorID string) (isAdmin, known bool) {
	isAdmin, known, err := g.cache.AdminFlag(tripID, actorID)
	if err != nil {
		slog.Warn("read cached admin flag", "error", err)
		return false, false
	}
	return isAdmin, known
}
