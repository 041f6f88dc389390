package collection

// Txn is one optimistic mutation in flight: snapshot taken up front, local
// changes applied immediately, then either confirmed against the server
// response or rolled back to the snapshot. Rollback always rewinds to the
// pre-mutation state, not to "whatever is current now" — a failed mutation
// reverts even when feed events landed in between.
type Txn[T Record] struct {
	store    *OrderedStore[T]
	snapshot []T
	done     bool
}

func beginTxn[T Record](store *OrderedStore[T]) *Txn[T] {
	return &Txn[T]{store: store, snapshot: store.Snapshot()}
}

// Apply runs an optimistic local change.
func (t *Txn[T]) Apply(fn func(s *OrderedStore[T])) {
	if t.done {
		return
	}
	fn(t.store)
}

// Confirm finalizes the transaction; the snapshot is discarded.
func (t *Txn[T]) Confirm() {
	t.done = true
	t.snapshot = nil
}

// Rollback restores the pre-mutation snapshot.
func (t *Txn[T]) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.store.Restore(t.snapshot)
	t.snapshot = nil
}
