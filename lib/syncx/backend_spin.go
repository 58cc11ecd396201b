//go:build sync_spin && !sync_suspend

// High-performance blocking backend (build tag "sync_spin"). Exclusive
// acquisition spins on a CAS with exponential backoff, optimized for short
// critical sections; shared acquisition uses a reader-biased RBMutex. No
// fairness guarantee under contention. The context argument is ignored.

package syncx

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	backendName = "spin"

	// Suspending reports whether Acquire* calls on this build are
	// suspension points that honor context cancellation.
	Suspending = false
)

const maxBackoff = 16

// exMutex backs ExclusiveContainer.
type exMutex struct {
	n atomic.Int64
}

func (m *exMutex) init() {}

func (m *exMutex) lock(_ context.Context) error {
	backoff := 1
	for !m.n.CompareAndSwap(0, 1) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
	return nil
}

func (m *exMutex) unlock() {
	m.n.Store(0)
}

// rToken carries per-reader state between rlock and runlock. RBMutex hands
// out a token per reader slot.
type rToken = *xsync.RToken

// rwMutex backs SharedContainer.
type rwMutex struct {
	mu *xsync.RBMutex
}

func (m *rwMutex) init() {
	m.mu = xsync.NewRBMutex()
}

func (m *rwMutex) lock(_ context.Context) error {
	m.mu.Lock()
	return nil
}

func (m *rwMutex) unlock() {
	m.mu.Unlock()
}

func (m *rwMutex) rlock(_ context.Context) (rToken, error) {
	return m.mu.RLock(), nil
}

func (m *rwMutex) runlock(t rToken) {
	m.mu.RUnlock(t)
}
