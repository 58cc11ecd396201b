package lockmgr

import (
	"context"
	"time"
)

// ILockManager defines the interface for a lockmgr provider.
type ILockManager interface {
	// AcquireLock tries to acquire the lock for the given key with an
	// optional TTL (zero means the lock never expires on its own).
	// Returns a boolean indicating whether the lock was acquired, an owner
	// ID, and an error if any. It does not wait for a held lock.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (ok bool, ownerID []byte, err error)

	// ReleaseLock releases the lock for the given key.
	// Returns a boolean indicating whether the lock was released, and an
	// error if any. The method also returns true if the lock did not exist.
	ReleaseLock(ctx context.Context, key string, ownerID []byte) (ok bool, err error)

	// Held reports whether the lock for the given key is currently held.
	Held(key string) bool

	// Close stops the expiry machinery behind TTL locks.
	Close() error
}
