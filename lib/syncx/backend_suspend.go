//go:build sync_suspend

// Suspending backend (build tag "sync_suspend"). A goroutine that cannot
// acquire immediately is parked by the runtime instead of spinning, and a
// pending acquisition is aborted when its context is cancelled or its
// deadline passes; the waiter is then removed without any observable effect
// on the container. Waiters are served in FIFO order (semaphore.Weighted).

package syncx

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const (
	backendName = "suspend"

	// Suspending reports whether Acquire* calls on this build are
	// suspension points that honor context cancellation.
	Suspending = true
)

// maxReaders bounds concurrent readers of one SharedContainer. A writer
// acquires the full weight.
const maxReaders = 1 << 30

// exMutex backs ExclusiveContainer.
type exMutex struct {
	sem *semaphore.Weighted
}

func (m *exMutex) init() {
	m.sem = semaphore.NewWeighted(1)
}

func (m *exMutex) lock(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

func (m *exMutex) unlock() {
	m.sem.Release(1)
}

// rToken carries per-reader state between rlock and runlock. This backend
// needs none.
type rToken struct{}

// rwMutex backs SharedContainer.
type rwMutex struct {
	sem *semaphore.Weighted
}

func (m *rwMutex) init() {
	m.sem = semaphore.NewWeighted(maxReaders)
}

func (m *rwMutex) lock(ctx context.Context) error {
	return m.sem.Acquire(ctx, maxReaders)
}

func (m *rwMutex) unlock() {
	m.sem.Release(maxReaders)
}

func (m *rwMutex) rlock(ctx context.Context) (rToken, error) {
	return rToken{}, m.sem.Acquire(ctx, 1)
}

func (m *rwMutex) runlock(_ rToken) {
	m.sem.Release(1)
}
