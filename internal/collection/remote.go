package collection

import (
	"context"
	"errors"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

// asTransport classifies a store failure: taxonomy errors (conflict,
// not-found, validation, sent-immutability) pass through untouched, and
// anything else becomes a TransportError.
func asTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := store.AsConflict(err); ok {
		return err
	}
	if _, ok := store.AsValidation(err); ok {
		return err
	}
	if store.IsNotFound(err) || errors.Is(err, store.ErrBroadcastSent) {
		return err
	}
	return &store.TransportError{Op: op, Err: err}
}

// StoreScheduleRemote adapts *store.Store to the ScheduleRemote surface.
type StoreScheduleRemote struct {
	Store *store.Store
}

func (r StoreScheduleRemote) List(ctx context.Context, tripID string) ([]store.ScheduleItem, error) {
	items, err := r.Store.ListScheduleItems(tripID)
	return items, asTransport("list schedule items", err)
}

func (r StoreScheduleRemote) Create(ctx context.Context, in store.ScheduleItemInput) (*store.ScheduleItem, error) {
	item, err := r.Store.CreateScheduleItem(in)
	return item, asTransport("create schedule item", err)
}

func (r StoreScheduleRemote) Update(ctx context.Context, id string, patch store.ScheduleItemPatch, expectedVersion string) (*store.ScheduleItem, error) {
	item, err := r.Store.UpdateScheduleItem(id, patch, expectedVersion)
	return item, asTransport("update schedule item", err)
}

func (r StoreScheduleRemote) Delete(ctx context.Context, id string) error {
	return asTransport("delete schedule item", r.Store.DeleteScheduleItem(id))
}

func (r StoreScheduleRemote) Reorder(ctx context.Context, tripID string, pairs []store.IDOrder) ([]store.ScheduleItem, error) {
	items, err := r.Store.ReorderScheduleItems(tripID, pairs)
	return items, asTransport("reorder schedule items", err)
}

func (r StoreScheduleRemote) BatchUpdate(ctx context.Context, patches []store.PatchWithID) ([]store.ScheduleItem, error) {
	items, err := r.Store.BatchUpdateScheduleItems(patches)
	return items, asTransport("batch update schedule items", err)
}

// StoreBroadcastRemote adapts *store.Store to the BroadcastRemote
// surface. Deliver, when set, runs after a successful promotion; delivery
// outcomes never fail the mutation itself.
type StoreBroadcastRemote struct {
	Store   *store.Store
	Deliver func(ctx context.Context, b *store.Broadcast)
}

func (r StoreBroadcastRemote) List(ctx context.Context, tripID string) ([]store.Broadcast, error) {
	items, err := r.Store.ListBroadcasts(tripID)
	return items, asTransport("list broadcasts", err)
}

func (r StoreBroadcastRemote) Create(ctx context.Context, in store.BroadcastInput) (*store.Broadcast, error) {
	b, err := r.Store.CreateBroadcast(in)
	return b, asTransport("create broadcast", err)
}

func (r StoreBroadcastRemote) Update(ctx context.Context, id string, patch store.BroadcastPatch, expectedVersion string) (*store.Broadcast, error) {
	b, err := r.Store.UpdateBroadcast(id, patch, expectedVersion)
	return b, asTransport("update broadcast", err)
}

func (r StoreBroadcastRemote) Delete(ctx context.Context, id string) error {
	return asTransport("delete broadcast", r.Store.DeleteBroadcast(id))
}

func (r StoreBroadcastRemote) SendNow(ctx context.Context, id string) (*store.Broadcast, error) {
	b, promoted, err := r.Store.MarkSent(id, time.Now().UTC())
	if err != nil {
		return nil, asTransport("send broadcast", err)
	}
	if promoted && r.Deliver != nil {
		r.Deliver(ctx, b)
	}
	return b, nil
}
