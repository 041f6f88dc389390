package collection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/auth"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/collection"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

func adminBroadcastCollection(t *testing.T, s *store.Store, trip *store.Trip) *collection.BroadcastCollection {
	t.Helper()
	col := collection.NewBroadcastCollection(collection.BroadcastConfig{
		TripID:  trip.ID,
		ActorID: "admin-1",
		Gate:    auth.NewMembershipGate(s),
		Remote:  collection.StoreBroadcastRemote{Store: s},
	})
	t.Cleanup(col.Close)
	return col
}

func seedBroadcast(t *testing.T, s *store.Store, tripID string, scheduledFor *time.Time) *store.Broadcast {
	t.Helper()
	b, err := s.CreateBroadcast(store.BroadcastInput{
		TripID:       tripID,
		Title:        "Departure reminder",
		Body:         "Buses leave in one hour.",
		ScheduledFor: scheduledFor,
		CreatedBy:    "admin-1",
	})
	if err != nil {
		t.Fatalf("CreateBroadcast: %v", err)
	}
	return b
}

func TestBroadcastCreateAndRefresh(t *testing.T) {
	s, trip := testBackend(t)
	col := adminBroadcastCollection(t, s, trip)
	ctx := context.Background()

	if err := col.CreateItem(ctx, store.BroadcastInput{
		Title:     "Departure reminder",
		Body:      "Buses leave in one hour.",
		CreatedBy: "admin-1",
	}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	items := col.Items()
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].ID == "" || items[0].SentAt != nil {
		t.Errorf("record = %+v, want unsent server record", items[0])
	}
}

func TestBroadcastSendNow(t *testing.T) {
	s, trip := testBackend(t)
	b := seedBroadcast(t, s, trip.ID, nil)
	col := adminBroadcastCollection(t, s, trip)
	ctx := context.Background()

	if err := col.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := col.SendNow(ctx, b.ID); err != nil {
		t.Fatalf("SendNow: %v", err)
	}

	local, ok := col.ByID(b.ID)
	if !ok || local.SentAt == nil {
		t.Fatalf("local record = %+v, want sent", local)
	}

	stored, err := s.GetBroadcast(b.ID)
	if err != nil {
		t.Fatalf("GetBroadcast: %v", err)
	}
	if stored.SentAt == nil {
		t.Fatal("store record not promoted")
	}

	// Sending again is rejected locally before any remote call.
	err = col.SendNow(ctx, b.ID)
	if !errors.Is(err, store.ErrBroadcastSent) {
		t.Fatalf("second SendNow error = %v, want ErrBroadcastSent", err)
	}
}

func TestBroadcastUpdateRejectedAfterSent(t *testing.T) {
	s, trip := testBackend(t)
	b := seedBroadcast(t, s, trip.ID, nil)
	if _, _, err := s.MarkSent(b.ID, time.Now().UTC()); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	col := adminBroadcastCollection(t, s, trip)
	ctx := context.Background()
	if err := col.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	body := "Too late to change this."
	err := col.UpdateItem(ctx, b.ID, store.BroadcastPatch{Body: &body}, b.RecordVersion())
	if !errors.Is(err, store.ErrBroadcastSent) {
		t.Fatalf("error = %v, want ErrBroadcastSent", err)
	}

	// The sent record stays deletable.
	if err := col.DeleteItem(ctx, b.ID); err != nil {
		t.Fatalf("DeleteItem after send: %v", err)
	}
	if _, ok := col.ByID(b.ID); ok {
		t.Error("record still present after delete")
	}
}

func TestBroadcastRescheduleThenClear(t *testing.T) {
	s, trip := testBackend(t)
	future := time.Now().UTC().Add(time.Hour)
	b := seedBroadcast(t, s, trip.ID, &future)

	col := adminBroadcastCollection(t, s, trip)
	ctx := context.Background()
	if err := col.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := col.UpdateItem(ctx, b.ID, store.BroadcastPatch{ClearScheduledFor: true}, b.RecordVersion()); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	local, ok := col.ByID(b.ID)
	if !ok {
		t.Fatal("record missing")
	}
	if local.ScheduledFor != nil {
		t.Errorf("scheduled_for = %v, want cleared", local.ScheduledFor)
	}
}
