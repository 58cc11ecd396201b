// Package lockmgr implements named locks with ownership verification and
// automatic expiry. It provides a simple yet robust way to coordinate
// access to shared resources between the components of a process.
//
// Core Functionality:
//   - Lock acquisition with ownership verification
//   - Automatic lock expiration through configurable TTLs
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	Locks are held in a concurrent hash map keyed by lock name.
//	Specifically:
//
//	- Lock Acquisition: Attempts to publish an entry with LoadOrStore,
//	  which guarantees that only one requester can successfully create the
//	  entry. The entry carries a randomly generated owner ID that
//	  identifies the lock holder.
//
//	- TTLs: A lock acquired with a TTL is attached to a lease from
//	  lib/lease; when the lease expires, the lock is force-released. This
//	  prevents deadlocks if a holder crashes or forgets to release.
//
//	- Safe Release: ReleaseLock verifies that the requester is the
//	  legitimate owner by comparing owner IDs before removing the entry,
//	  atomically, so an expired-and-reacquired lock is never released by
//	  the stale owner.
//
// Contention:
//
//	AcquireLock does not wait. It reports whether the lock was obtained;
//	callers wanting blocking semantics should use the containers in
//	lib/syncx instead, which is also where the wait strategy (blocking,
//	spinning or suspending) is selected.
//
// Security Considerations:
//
//	Owner IDs are 256-bit random values, which protects against accidental
//	lock stealing. The mechanism is not designed to resist a malicious
//	component in the same process.
package lockmgr
