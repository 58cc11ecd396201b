package syncx

import (
	"context"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// SharedContainer
// --------------------------------------------------------------------------

// SharedContainer owns exactly one value of type T and grants either any
// number of concurrent read-only accessors or exactly one exclusive writer,
// never both. The zero value is not usable; containers must be created with
// NewShared and must not be copied after first use.
type SharedContainer[T any] struct {
	mu       rwMutex
	poisoned atomic.Bool
	ready    bool
	value    T
}

// NewShared creates a SharedContainer owning the given value.
func NewShared[T any](value T) *SharedContainer[T] {
	c := &SharedContainer[T]{value: value, ready: true}
	c.mu.init()
	return c
}

// AcquireRead waits until no write guard is outstanding and returns a read
// guard. Any number of read guards may coexist. Context semantics match
// ExclusiveContainer.Acquire. A poisoned container still hands out the
// guard together with a RetCPoisoned error.
func (c *SharedContainer[T]) AcquireRead(ctx context.Context) (*ReadGuard[T], error) {
	if c == nil || !c.ready {
		return nil, NewError(RetCBackendUnavailable, "container not initialized, use NewShared")
	}
	tok, err := c.mu.rlock(ctx)
	if err != nil {
		return nil, err
	}
	g := &ReadGuard[T]{container: c, tok: tok}
	if c.poisoned.Load() {
		return g, NewError(RetCPoisoned, "a previous holder did not release normally")
	}
	return g, nil
}

// AcquireWrite waits until neither read nor write guards are outstanding
// and returns a guard granting mutable access. Context semantics match
// ExclusiveContainer.Acquire.
func (c *SharedContainer[T]) AcquireWrite(ctx context.Context) (*WriteGuard[T], error) {
	if c == nil || !c.ready {
		return nil, NewError(RetCBackendUnavailable, "container not initialized, use NewShared")
	}
	if err := c.mu.lock(ctx); err != nil {
		return nil, err
	}
	g := &WriteGuard[T]{container: c}
	if c.poisoned.Load() {
		return g, NewError(RetCPoisoned, "a previous holder did not release normally")
	}
	return g, nil
}

// Read acquires a read guard, runs fn on the protected value and releases
// on every exit path. fn must not mutate the value. A panic inside fn does
// not poison the container (readers cannot have corrupted the value).
func (c *SharedContainer[T]) Read(ctx context.Context, fn func(value *T)) error {
	g, err := c.AcquireRead(ctx)
	if err != nil {
		g.Release()
		return err
	}
	defer g.Release()
	fn(g.Value())
	return nil
}

// Update acquires a write guard, runs fn on the protected value and
// releases on every exit path. If fn panics, the container is marked
// poisoned before the panic is re-raised. If the container is already
// poisoned, fn is not run and the poisoned error is returned.
func (c *SharedContainer[T]) Update(ctx context.Context, fn func(value *T)) error {
	g, err := c.AcquireWrite(ctx)
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
func (c *SharedContainer[T]) Poisoned() bool {
	return c.poisoned.Load()
}

// ClearPoison acknowledges a poisoned state, see
// ExclusiveContainer.ClearPoison.
func (c *SharedContainer[T]) ClearPoison() {
	c.poisoned.Store(false)
}

// --------------------------------------------------------------------------
// ReadGuard
// --------------------------------------------------------------------------

// ReadGuard is a scoped handle granting read-only access to the value of a
// SharedContainer. The value must not be mutated through a ReadGuard.
// Release is idempotent.
type ReadGuard[T any] struct {
	container *SharedContainer[T]
	tok       rToken
	released  bool
}

// Value returns a pointer to the protected value for reading. It panics if
// the guard was already released.
func (g *ReadGuard[T]) Value() *T {
	if g.released {
		panic("syncx: Value called on released ReadGuard")
	}
	return &g.container.value
}

// Release gives up the shared read access right. Calling Release more than
// once, or on a nil guard, is a no-op.
func (g *ReadGuard[T]) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.container.mu.runlock(g.tok)
}

// --------------------------------------------------------------------------
// WriteGuard
// --------------------------------------------------------------------------

// WriteGuard is a scoped handle granting exclusive mutable access to the
// value of a SharedContainer. Release is idempotent.
type WriteGuard[T any] struct {
	container *SharedContainer[T]
	released  bool
}

// Value returns a pointer to the protected value. It panics if the guard
// was already released.
func (g *WriteGuard[T]) Value() *T {
	if g.released {
		panic("syncx: Value called on released WriteGuard")
	}
	return &g.container.value
}

// Poison marks the parent container poisoned, see ExclusiveGuard.Poison.
func (g *WriteGuard[T]) Poison() {
	if g == nil || g.released {
		return
	}
	g.container.poisoned.Store(true)
}

// Release gives up the exclusive write access right, unblocking at least
// one waiter (order backend-defined). Calling Release more than once, or on
// a nil guard, is a no-op.
func (g *WriteGuard[T]) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.container.mu.unlock()
}
