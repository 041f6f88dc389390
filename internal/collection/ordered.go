// Package collection implements the client-side synchronization core: a
// locally held ordered copy of one trip collection, mutated optimistically
// against the authoritative store and reconverged through the change feed.
package collection

import (
	"sort"
)

// Record is the minimal shape a synchronized entity exposes.
type Record interface {
	RecordID() string
	RecordVersion() string
}

// OrderedStore keeps records keyed by identity and iterable in display
// order. Insertion order never matters: the comparator is re-applied
// after every mutation, so All always yields the sorted sequence with no
// duplicate identities.
type OrderedStore[T Record] struct {
	less  func(a, b T) bool
	equal func(a, b T) bool
	items []T
}

// NewOrderedStore creates a store ordered by less. equal decides whether
// an upsert of identical content may be skipped.
func NewOrderedStore[T Record](less, equal func(a, b T) bool) *OrderedStore[T] {
	return &OrderedStore[T]{less: less, equal: equal}
}

// All returns the records in display order. The slice is a copy.
func (s *OrderedStore[T]) All() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// ByID returns the record with the given identity.
func (s *OrderedStore[T]) ByID(id string) (T, bool) {
	for _, item := range s.items {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of records.
func (s *OrderedStore[T]) Len() int {
	return len(s.items)
}

// Upsert inserts or replaces by identity and re-sorts. Replacing a record
// with identical content is a no-op; the return value reports whether the
// store changed.
func (s *OrderedStore[T]) Upsert(rec T) bool {
	id := rec.RecordID()
	for i, item := range s.items {
		if item.RecordID() == id {
			if s.equal(item, rec) {
				return false
			}
			s.items[i] = rec
			s.resort()
			return true
		}
	}
	s.items = append(s.items, rec)
	s.resort()
	return true
}

// Remove deletes by identity. Removing an absent identity is a no-op.
func (s *OrderedStore[T]) Remove(id string) bool {
	for i, item := range s.items {
		if item.RecordID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceAll swaps in a full authoritative listing.
func (s *OrderedStore[T]) ReplaceAll(items []T) {
	s.items = make([]T, len(items))
	copy(s.items, items)
	s.resort()
}

// Snapshot captures the current state for a later Restore.
func (s *OrderedStore[T]) Snapshot() []T {
	snap := make([]T, len(s.items))
	copy(snap, s.items)
	return snap
}

// Restore rewinds the store to a snapshot, discarding everything that
// happened since — including change-feed merges that arrived in between.
func (s *OrderedStore[T]) Restore(snap []T) {
	s.items = make([]T, len(snap))
	copy(s.items, snap)
}

func (s *OrderedStore[T]) resort() {
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.less(s.items[i], s.items[j])
	})
}
