package lockmgr

import (
	"bytes"
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rcrowley/go-metrics"

	"github.com/myrfy001/Xline/lib/lease"
)

// lockEntry is the published holder state for one key.
type lockEntry struct {
	ownerID []byte
	leaseID int64 // 0 if the lock has no TTL
}

// ManagerConfig configures a lock manager.
type ManagerConfig struct {
	// SweepInterval is forwarded to the internal lease manager and bounds
	// how late a TTL lock may be force-released. Zero means
	// lease.DefaultSweepInterval.
	SweepInterval time.Duration
	// Registry receives the lease manager's counters. Nil means a private
	// registry.
	Registry metrics.Registry
}

type lockMgrImpl struct {
	locks  *xsync.MapOf[string, *lockEntry]
	leases lease.ILeaseManager
}

// NewLockManager creates a lock manager with its own lease manager behind
// the TTL mechanism.
func NewLockManager(cfg ManagerConfig) ILockManager {
	m := &lockMgrImpl{
		locks: xsync.NewMapOf[string, *lockEntry](),
	}
	m.leases = lease.NewLeaseManager(lease.ManagerConfig{
		SweepInterval: cfg.SweepInterval,
		Registry:      cfg.Registry,
		OnRevoke:      m.onLeaseRevoked,
	})
	return m
}

func (m *lockMgrImpl) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	// Generate the owner ID (256 bit random value)
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	// Arm the TTL first so the entry is complete before it is published.
	// An entry must never be mutated once it is in the map; the revocation
	// callback reads it from another goroutine.
	var leaseID int64
	if ttl > 0 {
		info, err := m.leases.Grant(ctx, ttl)
		if err == nil {
			err = m.leases.Attach(ctx, info.ID, key)
		}
		if err != nil {
			return false, nil, err
		}
		leaseID = info.ID
	}

	// Try to acquire the lock (publish the entry only if the key is free -
	// atomic CAS operation)
	entry := &lockEntry{ownerID: ownerID, leaseID: leaseID}
	if _, loaded := m.locks.LoadOrStore(key, entry); loaded {
		// Lock is held by someone else, the speculative lease is not needed
		if leaseID != 0 {
			if err := m.leases.Revoke(ctx, leaseID); err != nil && !lease.IsNotFound(err) {
				return false, nil, err
			}
		}
		return false, nil, nil
	}

	return true, ownerID, nil
}

func (m *lockMgrImpl) ReleaseLock(ctx context.Context, key string, ownerID []byte) (bool, error) {
	var (
		released bool
		leaseID  int64
	)

	// Remove the entry only if we still own it, atomically with respect to
	// expiry and re-acquisition.
	m.locks.Compute(key, func(old *lockEntry, loaded bool) (*lockEntry, bool) {
		if !loaded {
			// Lock did not exist, report released
			released = true
			return nil, true
		}
		if !bytes.Equal(ownerID, old.ownerID) {
			return old, false
		}
		released = true
		leaseID = old.leaseID
		return nil, true
	})

	if released && leaseID != 0 {
		// Drop the TTL lease; the lock itself is already gone.
		if err := m.leases.Revoke(ctx, leaseID); err != nil && !lease.IsNotFound(err) {
			return released, err
		}
	}
	return released, nil
}

func (m *lockMgrImpl) Held(key string) bool {
	_, ok := m.locks.Load(key)
	return ok
}

func (m *lockMgrImpl) Close() error {
	return m.leases.Close()
}

// onLeaseRevoked force-releases the keys of an expired lease. Explicit
// revocations are triggered by ReleaseLock after the entry is already
// removed, so only matching lease IDs are dropped here.
func (m *lockMgrImpl) onLeaseRevoked(ev lease.RevokedLease) {
	for _, key := range ev.Keys {
		m.locks.Compute(key, func(old *lockEntry, loaded bool) (*lockEntry, bool) {
			if !loaded || old.leaseID != ev.ID {
				// key re-acquired under a newer lease, keep it
				return old, false
			}
			return nil, true
		})
	}
}
