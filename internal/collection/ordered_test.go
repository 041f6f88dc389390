package collection_test

import (
	"testing"
	"time"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/collection"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

func newItemStore() *collection.OrderedStore[store.ScheduleItem] {
	return collection.NewOrderedStore[store.ScheduleItem](store.ScheduleItem.Less, store.ScheduleItem.ContentEquals)
}

func scheduleItem(id, title string, start *time.Time, sortOrder int) store.ScheduleItem {
	day := "2026-03-10"
	return store.ScheduleItem{
		ID:        id,
		TripID:    "trip_a",
		Title:     title,
		Day:       &day,
		Start:     start,
		SortOrder: sortOrder,
		UpdatedAt: time.Now().UTC(),
	}
}

func timeAt(hour int) *time.Time {
	t := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
	return &t
}

func titles(items []store.ScheduleItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

func TestOrderedStoreSortsOnEveryMutation(t *testing.T) {
	s := newItemStore()

	s.Upsert(scheduleItem("item_1", "Lunch", timeAt(13), 0))
	s.Upsert(scheduleItem("item_2", "Fajr Prayer", timeAt(5), 1))
	s.Upsert(scheduleItem("item_3", "Breakfast", timeAt(7), 2))

	got := titles(s.All())
	want := []string{"Fajr Prayer", "Breakfast", "Lunch"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	// Moving an item re-sorts immediately.
	moved := scheduleItem("item_3", "Breakfast", timeAt(14), 2)
	s.Upsert(moved)
	got = titles(s.All())
	want = []string{"Fajr Prayer", "Lunch", "Breakfast"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after move = %v, want %v", got, want)
		}
	}
}

func TestOrderedStoreNoDuplicateIdentities(t *testing.T) {
	s := newItemStore()

	s.Upsert(scheduleItem("item_1", "Dinner", timeAt(19), 0))
	s.Upsert(scheduleItem("item_1", "Group dinner", timeAt(19), 0))

	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	item, ok := s.ByID("item_1")
	if !ok || item.Title != "Group dinner" {
		t.Errorf("item = %+v, want replaced record", item)
	}
}

func TestOrderedStoreContentEqualUpsertIsNoOp(t *testing.T) {
	s := newItemStore()

	rec := scheduleItem("item_1", "Dinner", timeAt(19), 0)
	if !s.Upsert(rec) {
		t.Fatal("first upsert reported no change")
	}
	if s.Upsert(rec) {
		t.Error("identical upsert reported a change")
	}
}

func TestOrderedStoreRemoveAbsentIsNoOp(t *testing.T) {
	s := newItemStore()

	if s.Remove("item_missing") {
		t.Error("removing an absent id reported a change")
	}
}

func TestOrderedStoreSnapshotRestore(t *testing.T) {
	s := newItemStore()
	s.Upsert(scheduleItem("item_1", "Dinner", timeAt(19), 0))

	snap := s.Snapshot()
	s.Upsert(scheduleItem("item_2", "Tea", timeAt(16), 1))
	s.Remove("item_1")

	s.Restore(snap)
	if s.Len() != 1 {
		t.Fatalf("Len after restore = %d, want 1", s.Len())
	}
	if _, ok := s.ByID("item_1"); !ok {
		t.Error("item_1 missing after restore")
	}
}

func TestOrderedStoreUndatedItemsSortLast(t *testing.T) {
	s := newItemStore()

	undated := scheduleItem("item_1", "Packing list", nil, 0)
	undated.Day = nil
	s.Upsert(undated)
	s.Upsert(scheduleItem("item_2", "Ziyarah tour", nil, 1))

	got := titles(s.All())
	if got[0] != "Ziyarah tour" || got[1] != "Packing list" {
		t.Errorf("order = %v, want dated before undated", got)
	}
}
