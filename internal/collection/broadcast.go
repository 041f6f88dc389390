package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// BroadcastRemote is the authoritative store surface the broadcast
// collection mutates against. SendNow promotes with the store's
// conditional write and triggers delivery.
type BroadcastRemote interface {
	List(ctx context.Context, tripID string) ([]store.Broadcast, error)
	Create(ctx context.Context, in store.BroadcastInput) (*store.Broadcast, error)
	Update(ctx context.Context, id string, patch store.BroadcastPatch, expectedVersion string) (*store.Broadcast, error)
	Delete(ctx context.Context, id string) error
	SendNow(ctx context.Context, id string) (*store.Broadcast, error)
}

// BroadcastCollection synchronizes one trip's broadcasts.
type BroadcastCollection struct {
	*Collection[store.Broadcast]
	remote BroadcastRemote
}

// BroadcastConfig configures a BroadcastCollection.
type BroadcastConfig struct {
	TripID     string
	ActorID    string
	Gate       Gate
	Remote     BroadcastRemote
	OnConflict func(current store.Broadcast)
}

// NewBroadcastCollection creates the collection. Call Refresh to load the
// initial listing and FollowFeed to keep it live.
func NewBroadcastCollection(cfg BroadcastConfig) *BroadcastCollection {
	return &BroadcastCollection{
		Collection: newCollection(Config[store.Broadcast]{
			TripID:  cfg.TripID,
			ActorID: cfg.ActorID,
			Gate:    cfg.Gate,
			Less:    store.Broadcast.Less,
			Equal:   store.Broadcast.ContentEquals,
			Decode: func(ev feed.Event) (store.Broadcast, bool) {
				b, ok := ev.Record.(store.Broadcast)
				return b, ok && ev.Entity == feed.EntityBroadcast
			},
			OnConflict: cfg.OnConflict,
		}),
		remote: cfg.Remote,
	}
}

// Refresh replaces the local copy with the authoritative listing.
func (c *BroadcastCollection) Refresh(ctx context.Context) error {
	items, err := c.remote.List(ctx, c.TripID())
	if err != nil {
		return err
	}
	c.replaceAll(items)
	return nil
}

// CreateItem adds a broadcast optimistically under a provisional
// identity; the server-assigned record replaces it on confirmation.
func (c *BroadcastCollection) CreateItem(ctx context.Context, in store.BroadcastInput) error {
	in.TripID = c.TripID()
	now := time.Now().UTC()
	provisional := store.Broadcast{
		ID:           newLocalID(),
		TripID:       in.TripID,
		Title:        in.Title,
		Body:         in.Body,
		Link:         in.Link,
		HighPriority: in.HighPriority,
		ScheduledFor: in.ScheduledFor,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	provisional.Version = provisional.RecordVersion()
	return c.run(ctx,
		func(s *OrderedStore[store.Broadcast]) error {
			s.Upsert(provisional)
			return nil
		},
		func() (func(s *OrderedStore[store.Broadcast]), error) {
			created, err := c.remote.Create(ctx, in)
			if err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.Broadcast]) {
				s.Remove(provisional.ID)
				s.Upsert(*created)
			}, nil
		},
	)
}

// UpdateItem applies a version-checked patch. Sent broadcasts are
// immutable and reject every edit.
func (c *BroadcastCollection) UpdateItem(ctx context.Context, id string, patch store.BroadcastPatch, expectedVersion string) error {
	return c.run(ctx,
		func(s *OrderedStore[store.Broadcast]) error {
			b, ok := s.ByID(id)
			if !ok {
				return fmt.Errorf("broadcast %q: %w", id, store.ErrNotFound)
			}
			if b.SentAt != nil {
				return fmt.Errorf("broadcast %q: %w", id, store.ErrBroadcastSent)
			}
			if err := patch.Apply(&b); err != nil {
				return err
			}
			s.Upsert(b)
			return nil
		},
		func() (func(s *OrderedStore[store.Broadcast]), error) {
			updated, err := c.remote.Update(ctx, id, patch, expectedVersion)
			if err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.Broadcast]) {
				s.Upsert(*updated)
			}, nil
		},
	)
}

// DeleteItem removes a broadcast; deletion stays allowed after sending.
func (c *BroadcastCollection) DeleteItem(ctx context.Context, id string) error {
	return c.run(ctx,
		func(s *OrderedStore[store.Broadcast]) error {
			if _, ok := s.ByID(id); !ok {
				return fmt.Errorf("broadcast %q: %w", id, store.ErrNotFound)
			}
			s.Remove(id)
			return nil
		},
		func() (func(s *OrderedStore[store.Broadcast]), error) {
			if err := c.remote.Delete(ctx, id); err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.Broadcast]) {}, nil
		},
	)
}

// SendNow promotes a broadcast immediately. The remote's conditional
// write guarantees at-most-one promotion even when a scheduler sweep
// races this call.
func (c *BroadcastCollection) SendNow(ctx context.Context, id string) error {
	return c.run(ctx,
		func(s *OrderedStore[store.Broadcast]) error {
			b, ok := s.ByID(id)
			if !ok {
				return fmt.Errorf("broadcast %q: %w", id, store.ErrNotFound)
			}
			if b.SentAt != nil {
				return fmt.Errorf("broadcast %q: %w", id, store.ErrBroadcastSent)
			}
			now := time.Now().UTC()
			b.SentAt = &now
			s.Upsert(b)
			return nil
		},
		func() (func(s *OrderedStore[store.Broadcast]), error) {
			sent, err := c.remote.SendNow(ctx, id)
			if err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.Broadcast]) {
				s.Upsert(*sent)
			}, nil
		},
	)
}
