package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// ErrClosed reports a mutation attempted after Close.
var ErrClosed = errors.New("collection closed")

// Gate decides whether the acting identity may mutate the collection.
// It is re-evaluated on every operation; see auth.MembershipGate for the
// production implementation.
type Gate interface {
	CanMutate(ctx context.Context, tripID, actorID string) bool
}

var localSeq uint64

// newLocalID generates a provisional identity for an optimistic insert;
// the server-assigned id replaces it on confirmation.
func newLocalID() string {
	return fmt.Sprintf("pending_%d", atomic.AddUint64(&localSeq, 1))
}

// Config configures a Collection.
type Config[T Record] struct {
	TripID  string
	ActorID string
	Gate    Gate
	Less    func(a, b T) bool
	Equal   func(a, b T) bool
	// Decode extracts a record of this collection's type from a feed
	// event. ok=false skips the event.
	Decode func(ev feed.Event) (T, bool)
	// OnConflict receives the current authoritative record when an
	// update is rejected for carrying a stale version. The local store
	// has already been rolled back when it fires.
	OnConflict func(current T)
}

// Collection is the shared machinery behind both synchronized
// collections: the locally held ordered copy, the permission gate, the
// optimistic mutation protocol and the change-feed merge.
type Collection[T Record] struct {
	mu      sync.Mutex
	tripID  string
	actorID string
	gate    Gate
	local   *OrderedStore[T]
	decode  func(ev feed.Event) (T, bool)
	onConflict func(T)
	sub     *feed.Subscription
	merged  sync.WaitGroup
	closed  bool
}

func newCollection[T Record](cfg Config[T]) *Collection[T] {
	return &Collection[T]{
		tripID:  cfg.TripID,
		actorID: cfg.ActorID,
		gate:    cfg.Gate,
		local:   NewOrderedStore[T](cfg.Less, cfg.Equal),
		decode:  cfg.Decode,
		onConflict: cfg.OnConflict,
	}
}

// TripID returns the trip this collection is scoped to.
func (c *Collection[T]) TripID() string { return c.tripID }

// Items returns the collection in display order.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local.All()
}

// ByID returns one record by identity.
func (c *Collection[T]) ByID(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local.ByID(id)
}

// IsAdmin re-evaluates whether the acting identity may mutate this
// collection. Rights can change between visits, so the answer is never
// cached here.
func (c *Collection[T]) IsAdmin(ctx context.Context) bool {
	return c.gate.CanMutate(ctx, c.tripID, c.actorID)
}

// Merge folds one change-feed event into the local store. Merging is
// idempotent: a duplicate delivery of the same record is a no-op, and so
// is deleting an identity that is already gone.
func (c *Collection[T]) Merge(ev feed.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	switch ev.Type {
	case feed.Deleted:
		c.local.Remove(ev.ID)
	case feed.Inserted, feed.Updated:
		if rec, ok := c.decode(ev); ok {
			c.local.Upsert(rec)
		}
	}
}

// FollowFeed drains a feed subscription into Merge on its own goroutine
// until the subscription is cancelled or the collection closed.
func (c *Collection[T]) FollowFeed(sub *feed.Subscription) {
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	c.merged.Add(1)
	go func() {
		defer c.merged.Done()
		for ev := range sub.Events() {
			c.Merge(ev)
		}
	}()
}

// Close cancels the feed subscription and rejects further mutations.
// In-flight remote calls are not interrupted; their results are discarded.
func (c *Collection[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	c.merged.Wait()
}

// replaceAll swaps in a fresh authoritative listing.
func (c *Collection[T]) replaceAll(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.local.ReplaceAll(items)
}

// run executes the optimistic mutation protocol:
//
//  1. permission gate check — deny before any state change
//  2. snapshot, then apply the change locally
//  3. send the change to the authoritative store (lock released, so feed
//     merges keep flowing while the call is in flight)
//  4. on success reconcile with the server response; on failure restore
//     the snapshot and surface the error
func (c *Collection[T]) run(
	ctx context.Context,
	optimistic func(s *OrderedStore[T]) error,
	remote func() (reconcile func(s *OrderedStore[T]), err error),
) error {
	if !c.gate.CanMutate(ctx, c.tripID, c.actorID) {
		return store.ErrPermissionDenied
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	tx := beginTxn(c.local)
	if err := optimistic(c.local); err != nil {
		tx.Rollback()
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	reconcile, err := remote()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		tx.Rollback()
		if ce, ok := store.AsConflict(err); ok && c.onConflict != nil {
			if current, match := ce.Current.(T); match {
				c.onConflict(current)
			}
		}
		return err
	}
	if c.closed {
		// The store was disposed while the call was in flight; the
		// confirmed result is discarded.
		return ErrClosed
	}
	reconcile(c.local)
	tx.Confirm()
	return nil
}
