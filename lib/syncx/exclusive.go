package syncx

import (
	"context"
	"sync/atomic"
)

// Backend returns the name of the wait strategy compiled into this binary
// ("blocking", "spin" or "suspend").
func Backend() string {
	return backendName
}

// --------------------------------------------------------------------------
// ExclusiveContainer
// --------------------------------------------------------------------------

// ExclusiveContainer owns exactly one value of type T and grants access to
// at most one holder at a time. The zero value is not usable; containers
// must be created with NewExclusive and must not be copied after first use.
type ExclusiveContainer[T any] struct {
	mu       exMutex
	poisoned atomic.Bool
	ready    bool
	value    T
}

// NewExclusive creates an ExclusiveContainer owning the given value.
func NewExclusive[T any](value T) *ExclusiveContainer[T] {
	c := &ExclusiveContainer[T]{value: value, ready: true}
	c.mu.init()
	return c
}

// Acquire waits until no other guard of this container is outstanding and
// returns a guard granting mutable access to the wrapped value. On blocking
// backends the calling goroutine blocks and ctx is ignored; on the
// suspending backend this is a suspension point and a cancelled ctx aborts
// the wait with the context's error and a nil guard.
//
// If the container is poisoned, the guard is returned together with a
// RetCPoisoned error so the caller can inspect or recover the value. The
// error repeats on every acquisition until ClearPoison is called.
func (c *ExclusiveContainer[T]) Acquire(ctx context.Context) (*ExclusiveGuard[T], error) {
	if c == nil || !c.ready {
		return nil, NewError(RetCBackendUnavailable, "container not initialized, use NewExclusive")
	}
	if err := c.mu.lock(ctx); err != nil {
		return nil, err
	}
	g := &ExclusiveGuard[T]{container: c}
	if c.poisoned.Load() {
		return g, NewError(RetCPoisoned, "a previous holder did not release normally")
	}
	return g, nil
}

// Update acquires the container, runs fn on the protected value and
// releases on every exit path. If fn panics, the container is marked
// poisoned before the panic is re-raised. If the container is already
// poisoned, fn is not run and the poisoned error is returned.
func (c *ExclusiveContainer[T]) Update(ctx context.Context, fn func(value *T)) error {
	g, err := c.Acquire(ctx)
	if err != nil {
		g.Release()
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			c.poisoned.Store(true)
			g.Release()
			panic(r)
		}
		g.Release()
	}()
	fn(g.Value())
	return nil
}

// Poisoned reports whether the container is currently marked poisoned.
func (c *ExclusiveContainer[T]) Poisoned() bool {
	return c.poisoned.Load()
}

// ClearPoison acknowledges a poisoned state. Subsequent acquisitions
// succeed normally again. It is the caller's responsibility to have restored
// the value to a consistent state first.
func (c *ExclusiveContainer[T]) ClearPoison() {
	c.poisoned.Store(false)
}

// --------------------------------------------------------------------------
// ExclusiveGuard
// --------------------------------------------------------------------------

// ExclusiveGuard is a scoped handle granting mutable access to the value of
// an ExclusiveContainer. It must be released exactly once; Release is
// idempotent so `defer guard.Release()` is safe on every exit path. A guard
// never outlives its container.
//
// Thread-safety: a guard belongs to the goroutine that acquired it and must
// not be shared.
type ExclusiveGuard[T any] struct {
	container *ExclusiveContainer[T]
	released  bool
}

// Value returns a pointer to the protected value. It panics if the guard
// was already released.
func (g *ExclusiveGuard[T]) Value() *T {
	if g.released {
		panic("syncx: Value called on released ExclusiveGuard")
	}
	return &g.container.value
}

// Poison marks the parent container poisoned. Callers managing guards
// manually use this to signal that the value was left in an unknown state
// before releasing.
func (g *ExclusiveGuard[T]) Poison() {
	if g == nil || g.released {
		return
	}
	g.container.poisoned.Store(true)
}

// Release gives up the exclusive access right, unblocking at least one
// waiter (order backend-defined). Calling Release more than once, or on a
// nil guard, is a no-op.
func (g *ExclusiveGuard[T]) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.container.mu.unlock()
}
