package lease

// This file provides the expiry priority queue for the lease collection.
//
// The implementation combines a binary min-heap ordered by expiry time with
// a hash map keyed by lease ID, giving O(log n) priority operations and
// O(1) lookups. It is not thread-safe on its own; the collection that owns
// it is guarded by a syncx container.

import (
	"container/heap"
	"time"
)

// entry represents a single lease in the expiry queue
type entry struct {
	id     int64 // lease ID
	expiry int64 // expiry as unix nanoseconds, heap priority
	index  int   // index in the heap, maintained by the heap package
}

// expiryQueue is a priority queue of lease expiries with both heap
// operations and ID-based access
type expiryQueue struct {
	entries []*entry         // the actual heap slice
	byID    map[int64]*entry // map for O(1) access by lease ID
}

func newExpiryQueue() *expiryQueue {
	return &expiryQueue{
		entries: make([]*entry, 0),
		byID:    make(map[int64]*entry),
	}
}

// Len returns the number of entries in the queue (part of heap.Interface)
func (q *expiryQueue) Len() int { return len(q.entries) }

// Less compares entries by expiry, soonest first (part of heap.Interface)
func (q *expiryQueue) Less(i, j int) bool {
	return q.entries[i].expiry < q.entries[j].expiry
}

// Swap exchanges entries at positions i and j (part of heap.Interface)
func (q *expiryQueue) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	q.entries[i].index = i
	q.entries[j].index = j
}

// Push adds an entry to the heap (part of heap.Interface)
func (q *expiryQueue) Push(x interface{}) {
	n := len(q.entries)
	e := x.(*entry)
	e.index = n
	q.entries = append(q.entries, e)
	q.byID[e.id] = e
}

// Pop removes and returns the soonest entry (part of heap.Interface)
func (q *expiryQueue) Pop() interface{} {
	old := q.entries
	n := len(old)
	e := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	e.index = -1    // For safety
	q.entries = old[:n-1]
	delete(q.byID, e.id)
	return e
}

// upsert inserts a lease's expiry or updates it in place
func (q *expiryQueue) upsert(id int64, expiry time.Time) {
	if e, exists := q.byID[id]; exists {
		e.expiry = expiry.UnixNano()
		heap.Fix(q, e.index)
		return
	}

	heap.Push(q, &entry{
		id:     id,
		expiry: expiry.UnixNano(),
	})
}

// remove drops a lease from the queue by ID
func (q *expiryQueue) remove(id int64) bool {
	e, exists := q.byID[id]
	if !exists {
		return false
	}
	heap.Remove(q, e.index)
	return true
}

// peek returns the soonest lease ID and expiry without removing it
func (q *expiryQueue) peek() (int64, time.Time, bool) {
	if len(q.entries) == 0 {
		return 0, time.Time{}, false
	}
	e := q.entries[0]
	return e.id, time.Unix(0, e.expiry), true
}

// popSoonest removes and returns the soonest lease ID
func (q *expiryQueue) popSoonest() (int64, bool) {
	if len(q.entries) == 0 {
		return 0, false
	}
	e := heap.Pop(q).(*entry)
	return e.id, true
}

// clear drops all entries
func (q *expiryQueue) clear() {
	q.entries = q.entries[:0]
	q.byID = make(map[int64]*entry)
}
