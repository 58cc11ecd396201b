// Package lease implements time-bounded leases: grants that expire unless
// renewed, with keys attached to them for automatic cleanup. It is the
// primary in-tree consumer of the synchronization containers in lib/syncx:
// the whole lease collection lives inside a single syncx.SharedContainer,
// so every operation goes through a read or write guard and the package
// behaves identically under every compiled lock backend.
//
// Core Functionality:
//   - Grant: create a lease with a clamped TTL and a fresh unique ID
//   - Renew: push a live lease's expiry into the future
//   - Revoke: drop a lease and report the keys that were attached to it
//   - Attach/Detach: associate keys with a lease; revocation and expiry
//     hand all attached keys to the revocation callback
//   - GetLease: reverse lookup from an attached key to its lease ID
//   - Demote/Promote: switch between "leases never expire here" (follower
//     duty) and "expiry is armed, optionally extended" (leader duty)
//
// Expiry:
//
//	A background sweeper scans a heap-backed expiry queue and revokes
//	overdue leases. Revocations (explicit or by expiry) are pushed through a
//	lock-free MPSC queue to a single dispatcher goroutine which invokes the
//	configured OnRevoke callback, so callbacks never run while the
//	collection is locked.
//
// Thread Safety:
//
//	All manager operations are safe for concurrent use; the collection is
//	protected by a syncx.SharedContainer. Operations accept a
//	context.Context which is honored when the suspending lock backend is
//	compiled in.
//
// Metrics:
//
//	Granted, revoked and expired counts are registered with a go-metrics
//	registry (the caller's, or a private one).
//
// Usage Example:
//
//	mgr := lease.NewLeaseManager(lease.ManagerConfig{
//	    OnRevoke: func(ev lease.RevokedLease) {
//	        // release resources attached to ev.Keys
//	    },
//	})
//	defer mgr.Close()
//
//	info, err := mgr.Grant(ctx, 30*time.Second)
//	if err != nil {
//	    // handle error
//	}
//	_ = mgr.Attach(ctx, info.ID, "resource:123")
package lease
