package lease

// This file provides the lock-free multi-producer single-consumer queue
// that carries revocation events from lease operations (and the expiry
// sweeper) to the dispatcher goroutine. Producers only CAS-append to a
// linked list, so events can be pushed while the lease collection is still
// write-locked without risking a callback re-entering the lock.

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// eventNode is a single element in the notifier's linked list
type eventNode struct {
	event *RevokedLease
	next  atomic.Pointer[eventNode]
}

// revokeNotifier is a lock-free MPSC queue of revocation events. Any number
// of goroutines may push concurrently; a single consumer drains the list
// into the Recv channel. Ordering under concurrent pushes is determined by
// which producer completes its CAS first.
type revokeNotifier struct {
	head     atomic.Pointer[eventNode]
	tail     atomic.Pointer[eventNode]
	out      chan *RevokedLease
	consumer sync.WaitGroup
	closed   atomic.Bool

	// Condition variable for efficient waiting
	mu   sync.Mutex
	cond *sync.Cond
}

// newRevokeNotifier creates the queue and starts its consumer goroutine.
func newRevokeNotifier() *revokeNotifier {
	// Sentinel node so producers never race on an empty list
	sentinel := &eventNode{}

	n := &revokeNotifier{
		out: make(chan *RevokedLease),
	}
	n.cond = sync.NewCond(&n.mu)

	n.head.Store(sentinel)
	n.tail.Store(sentinel)

	n.consumer.Add(1)
	go n.consume()

	return n
}

// push appends an event. Returns false if the notifier is closed.
//
// Thread-safety: safe for concurrent use.
func (n *revokeNotifier) push(event *RevokedLease) bool {
	if event == nil || n.closed.Load() {
		return false
	}

	newNode := &eventNode{event: event}

	var backoff uint8 = 0
	for {
		tailNode := n.tail.Load()

		next := tailNode.next.Load()
		if next == nil {
			// the tail has no next node yet, try to append our node
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// CAS on tail may fail if another producer helps, the
				// tail still converges
				n.tail.CompareAndSwap(tailNode, newNode)

				// Signal under the lock so the wake-up cannot fall into
				// the window between the consumer's empty check and its
				// Wait
				n.mu.Lock()
				n.cond.Signal()
				n.mu.Unlock()
				return true
			}
		} else {
			// help a producer that appended but has not updated tail yet
			n.tail.CompareAndSwap(tailNode, next)
		}

		// Exponential backoff under contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// consume moves events from the linked list to the output channel.
func (n *revokeNotifier) consume() {
	defer n.consumer.Done()
	defer close(n.out)

	for {
		hasItems := false

		for {
			head := n.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			hasItems = true

			event := next.event

			// move head pointer, freeing the old node
			n.head.Store(next)

			n.out <- event
			next.event = nil
		}

		if !hasItems && n.closed.Load() {
			return
		}

		if !hasItems {
			n.mu.Lock()
			// Double-check after acquiring the lock
			head := n.head.Load()
			if head.next.Load() == nil && !n.closed.Load() {
				n.cond.Wait()
			}
			n.mu.Unlock()
		}
	}
}

// recv returns the channel the consumer goroutine delivers events on. The
// channel is closed once the notifier is closed and drained.
func (n *revokeNotifier) recv() <-chan *RevokedLease {
	return n.out
}

// close stops the notifier. Events already queued are still delivered.
func (n *revokeNotifier) close() {
	n.closed.Store(true)
	n.mu.Lock()
	n.cond.Signal()
	n.mu.Unlock()
}
