// Package syncx implements a unified synchronization abstraction layer:
// generic containers that own a single protected value and hand out scoped
// guards for exclusive or shared access.
//
// The concrete wait strategy (the "backend") is selected at build time via
// build tags, not at run time. All backends present an identical call
// contract, so code written against the containers compiles and behaves the
// same under every selection:
//
//   - default (no tag): plain blocking backend. Acquisition blocks the
//     calling goroutine on the platform's native primitives (sync.Mutex,
//     sync.RWMutex). The passed context is ignored.
//
//   - "sync_spin": high-performance blocking backend. Exclusive acquisition
//     spins with exponential backoff, optimized for short critical sections;
//     shared acquisition uses a reader-biased mutex (xsync.RBMutex). No
//     fairness guarantee under contention. The passed context is ignored.
//
//   - "sync_suspend": suspending backend. When the resource is unavailable
//     the calling goroutine is parked and rescheduled by the runtime instead
//     of spinning; a pending acquisition can be cancelled through its
//     context. Every Acquire* call on this backend is a suspension point.
//
// Exactly one backend is compiled into a binary. The module itself ships all
// three, so library consumers make the selection at their own build time.
// Backend() reports the active selection, Suspending reports whether
// acquisition calls may suspend and honor context cancellation.
//
// Core Types:
//   - ExclusiveContainer: owns one value, at most one holder at a time
//   - SharedContainer: owns one value, many readers or one writer
//   - ExclusiveGuard, ReadGuard, WriteGuard: scoped access handles
//
// Guarantees (identical across backends):
//   - While any guard of a container is outstanding, no conflicting
//     acquisition succeeds on that container.
//   - A release is visible to the next successful acquirer of the same
//     container (release-then-acquire is sequentially consistent per
//     container). No cross-container ordering is guaranteed.
//   - Releasing a guard unblocks at least one waiter; the order in which
//     waiters are served is backend-defined and unspecified unless the
//     backend documents otherwise.
//   - Cancelling a pending acquisition (suspending backend only) removes the
//     waiter without any observable effect on the container's state.
//
// Error Model:
//
//	Contention is never an error, only a wait. Acquisition produces exactly
//	two failure kinds: RetCPoisoned (a previous holder terminated abnormally
//	while holding a write-capable guard; the guard is still returned so the
//	caller can inspect or recover the value) and RetCBackendUnavailable (the
//	container was not initialized through its constructor). On the
//	suspending backend a cancelled acquisition additionally surfaces the
//	context's own error unchanged.
//
// Usage Example:
//
//	counter := syncx.NewExclusive(0)
//
//	guard, err := counter.Acquire(ctx)
//	if err != nil {
//	    // handle poisoned / unavailable
//	}
//	defer guard.Release()
//	*guard.Value()++
//
// Re-entrancy:
//
//	No backend is re-entrant. A holder that acquires the same container
//	again deadlocks (blocking backends) or suspends forever (suspending
//	backend), exactly like the primitives underneath.
//
// Copying:
//
//	Containers must not be copied after first use; share them by pointer
//	only. A copy would create two independent lock states over logically one
//	resource.
package syncx
