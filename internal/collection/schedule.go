package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// ScheduleRemote is the authoritative store surface the schedule
// collection mutates against.
type ScheduleRemote interface {
	List(ctx context.Context, tripID string) ([]store.ScheduleItem, error)
	Create(ctx context.Context, in store.ScheduleItemInput) (*store.ScheduleItem, error)
	Update(ctx context.Context, id string, patch store.ScheduleItemPatch, expectedVersion string) (*store.ScheduleItem, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, tripID string, pairs []store.IDOrder) ([]store.ScheduleItem, error)
	BatchUpdate(ctx context.Context, patches []store.PatchWithID) ([]store.ScheduleItem, error)
}

// ScheduleCollection synchronizes one trip's schedule.
type ScheduleCollection struct {
	*Collection[store.ScheduleItem]
	remote ScheduleRemote
}

// ScheduleConfig configures a ScheduleCollection.
type ScheduleConfig struct {
	TripID     string
	ActorID    string
	Gate       Gate
	Remote     ScheduleRemote
	OnConflict func(current store.ScheduleItem)
}

// NewScheduleCollection creates the collection. Call Refresh to load the
// initial listing and FollowFeed to keep it live.
func NewScheduleCollection(cfg ScheduleConfig) *ScheduleCollection {
	return &ScheduleCollection{
		Collection: newCollection(Config[store.ScheduleItem]{
			TripID:  cfg.TripID,
			ActorID: cfg.ActorID,
			Gate:    cfg.Gate,
			Less:    store.ScheduleItem.Less,
			Equal:   store.ScheduleItem.ContentEquals,
			Decode: func(ev feed.Event) (store.ScheduleItem, bool) {
				item, ok := ev.Record.(store.ScheduleItem)
				return item, ok && ev.Entity == feed.EntityScheduleItem
			},
			OnConflict: cfg.OnConflict,
		}),
		remote: cfg.Remote,
	}
}

// Refresh replaces the local copy with the authoritative listing.
func (c *ScheduleCollection) Refresh(ctx context.Context) error {
	items, err := c.remote.List(ctx, c.TripID())
	if err != nil {
		return err
	}
	c.replaceAll(items)
	return nil
}

// CreateItem adds a schedule item optimistically under a provisional
// identity; the server-assigned record replaces it on confirmation.
func (c *ScheduleCollection) CreateItem(ctx context.Context, in store.ScheduleItemInput) error {
	in.TripID = c.TripID()
	provisional := store.ScheduleItem{
		ID:          newLocalID(),
		TripID:      in.TripID,
		Day:         in.Day,
		Start:       in.Start,
		End:         in.End,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		SortOrder:   in.SortOrder,
		UpdatedAt:   time.Now().UTC(),
	}
	provisional.Version = provisional.RecordVersion()
	return c.run(ctx,
		func(s *OrderedStore[store.ScheduleItem]) error {
			s.Upsert(provisional)
			return nil
		},
		func() (func(s *OrderedStore[store.ScheduleItem]), error) {
			created, err := c.remote.Create(ctx, in)
			if err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.ScheduleItem]) {
				s.Remove(provisional.ID)
				s.Upsert(*created)
			}, nil
		},
	)
}

// UpdateItem applies a version-checked patch. A stale version rolls the
// local store back and fires the conflict callback with the current
// authoritative record.
func (c *ScheduleCollection) UpdateItem(ctx context.Context, id string, patch store.ScheduleItemPatch, expectedVersion string) error {
	return c.run(ctx,
		func(s *OrderedStore[store.ScheduleItem]) error {
			item, ok := s.ByID(id)
			if !ok {
				return fmt.Errorf("schedule item %q: %w", id, store.ErrNotFound)
			}
			if err := patch.Apply(&item); err != nil {
				return err
			}
			s.Upsert(item)
			return nil
		},
		func() (func(s *OrderedStore[store.ScheduleItem]), error) {
			updated, err := c.remote.Update(ctx, id, patch, expectedVersion)
			if err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.ScheduleItem]) {
				s.Upsert(*updated)
			}, nil
		},
	)
}

// DeleteItem removes a schedule item.
func (c *ScheduleCollection) DeleteItem(ctx context.Context, id string) error {
	return c.run(ctx,
		func(s *OrderedStore[store.ScheduleItem]) error {
			if _, ok := s.ByID(id); !ok {
				return fmt.Errorf("schedule item %q: %w", id, store.ErrNotFound)
			}
			s.Remove(id)
			return nil
		},
		func() (func(s *OrderedStore[store.ScheduleItem]), error) {
			if err := c.remote.Delete(ctx, id); err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.ScheduleItem]) {}, nil
		},
	)
}

// ReorderItems updates sort orders atomically from the caller's
// perspective: either every position updates or the snapshot is restored.
func (c *ScheduleCollection) ReorderItems(ctx context.Context, pairs []store.IDOrder) error {
	return c.run(ctx,
		func(s *OrderedStore[store.ScheduleItem]) error {
			for _, p := range pairs {
				item, ok := s.ByID(p.ID)
				if !ok {
					return fmt.Errorf("schedule item %q: %w", p.ID, store.ErrNotFound)
				}
				item.SortOrder = p.SortOrder
				s.Upsert(item)
			}
			return nil
		},
		func() (func(s *OrderedStore[store.ScheduleItem]), error) {
			items, err := c.remote.Reorder(ctx, c.TripID(), pairs)
			if err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.ScheduleItem]) {
				s.ReplaceAll(items)
			}, nil
		},
	)
}

// BatchUpdate applies several version-checked patches as one atomic
// operation.
func (c *ScheduleCollection) BatchUpdate(ctx context.Context, patches []store.PatchWithID) error {
	return c.run(ctx,
		func(s *OrderedStore[store.ScheduleItem]) error {
			for _, p := range patches {
				item, ok := s.ByID(p.ID)
				if !ok {
					return fmt.Errorf("schedule item %q: %w", p.ID, store.ErrNotFound)
				}
				if err := p.Patch.Apply(&item); err != nil {
					return err
				}
				s.Upsert(item)
			}
			return nil
		},
		func() (func(s *OrderedStore[store.ScheduleItem]), error) {
			updated, err := c.remote.BatchUpdate(ctx, patches)
			if err != nil {
				return nil, err
			}
			return func(s *OrderedStore[store.ScheduleItem]) {
				for _, item := range updated {
					s.Upsert(item)
				}
			}, nil
		},
	)
}
