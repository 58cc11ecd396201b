package lease

import (
	"testing"
	"time"
)

// TestQueueOrdering verifies that entries pop soonest-first regardless of
// insertion order.
func TestQueueOrdering(t *testing.T) {
	q := newExpiryQueue()
	base := time.Now()

	q.upsert(3, base.Add(3*time.Second))
	q.upsert(1, base.Add(1*time.Second))
	q.upsert(2, base.Add(2*time.Second))

	for want := int64(1); want <= 3; want++ {
		id, ok := q.popSoonest()
		if !ok {
			t.Fatalf("queue empty, expected id %d", want)
		}
		if id != want {
			t.Errorf("expected id %d, got %d", want, id)
		}
	}
	if _, ok := q.popSoonest(); ok {
		t.Error("queue should be empty")
	}
}

// TestQueueUpsertMovesEntry verifies an update re-prioritizes in place.
func TestQueueUpsertMovesEntry(t *testing.T) {
	q := newExpiryQueue()
	base := time.Now()

	q.upsert(1, base.Add(1*time.Second))
	q.upsert(2, base.Add(2*time.Second))

	// Push lease 1 past lease 2.
	q.upsert(1, base.Add(5*time.Second))

	if q.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", q.Len())
	}
	id, _, ok := q.peek()
	if !ok || id != 2 {
		t.Errorf("expected lease 2 at the front, got %d (ok=%v)", id, ok)
	}
}

// TestQueueRemoveAndClear covers key-based removal and clearing.
func TestQueueRemoveAndClear(t *testing.T) {
	q := newExpiryQueue()
	base := time.Now()

	q.upsert(1, base.Add(1*time.Second))
	q.upsert(2, base.Add(2*time.Second))

	if !q.remove(1) {
		t.Error("remove of existing entry failed")
	}
	if q.remove(1) {
		t.Error("remove of missing entry succeeded")
	}

	id, _, ok := q.peek()
	if !ok || id != 2 {
		t.Errorf("expected lease 2 after removal, got %d (ok=%v)", id, ok)
	}

	q.clear()
	if q.Len() != 0 {
		t.Errorf("expected empty queue after clear, got %d entries", q.Len())
	}
}
