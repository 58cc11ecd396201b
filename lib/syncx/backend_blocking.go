//go:build !sync_spin && !sync_suspend

// Plain blocking backend. Acquisition blocks the calling goroutine on the
// platform's native primitives; the context argument is ignored. Fairness
// follows sync.Mutex's starvation mode (waiters stuck >1ms are served FIFO).

package syncx

import (
	"context"
	"sync"
)

const (
	backendName = "blocking"

	// Suspending reports whether Acquire* calls on this build are
	// suspension points that honor context cancellation.
	Suspending = false
)

// exMutex backs ExclusiveContainer.
type exMutex struct {
	mu sync.Mutex
}

func (m *exMutex) init() {}

func (m *exMutex) lock(_ context.Context) error {
	m.mu.Lock()
	return nil
}

func (m *exMutex) unlock() {
	m.mu.Unlock()
}

// rToken carries per-reader state between rlock and runlock. This backend
// needs none.
type rToken struct{}

// rwMutex backs SharedContainer.
type rwMutex struct {
	mu sync.RWMutex
}

func (m *rwMutex) init() {}

func (m *rwMutex) lock(_ context.Context) error {
	m.mu.Lock()
	return nil
}

func (m *rwMutex) unlock() {
	m.mu.Unlock()
}

func (m *rwMutex) rlock(_ context.Context) (rToken, error) {
	m.mu.RLock()
	return rToken{}, nil
}

func (m *rwMutex) runlock(_ rToken) {
	m.mu.RUnlock()
}
