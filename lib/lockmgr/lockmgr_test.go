package lockmgr

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/myrfy001/Xline/lib/lease"
)

func newTestManager(t *testing.T) ILockManager {
	t.Helper()
	m := NewLockManager(ManagerConfig{SweepInterval: 50 * time.Millisecond})
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return m
}

// TestAcquireRelease covers the basic acquire/conflict/release cycle.
func TestAcquireRelease(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	ok, ownerID, err := m.AcquireLock(ctx, "resource:1", 0)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if !ok {
		t.Fatal("failed to acquire free lock")
	}
	if len(ownerID) != ownerIDBytes {
		t.Errorf("expected %d byte owner ID, got %d", ownerIDBytes, len(ownerID))
	}
	if !m.Held("resource:1") {
		t.Error("Held reports an acquired lock as free")
	}

	// A second acquisition must fail without waiting.
	ok2, _, err := m.AcquireLock(ctx, "resource:1", 0)
	if err != nil {
		t.Fatalf("second AcquireLock failed: %v", err)
	}
	if ok2 {
		t.Error("acquired an already-held lock")
	}

	released, err := m.ReleaseLock(ctx, "resource:1", ownerID)
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if !released {
		t.Error("owner could not release its lock")
	}
	if m.Held("resource:1") {
		t.Error("lock still held after release")
	}
}

// TestReleaseVerifiesOwnership verifies a non-owner cannot release and that
// releasing a missing lock reports success.
func TestReleaseVerifiesOwnership(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	ok, ownerID, err := m.AcquireLock(ctx, "resource:2", 0)
	if err != nil || !ok {
		t.Fatalf("AcquireLock failed: ok=%v err=%v", ok, err)
	}

	released, err := m.ReleaseLock(ctx, "resource:2", []byte("not the owner"))
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if released {
		t.Error("non-owner released the lock")
	}
	if !m.Held("resource:2") {
		t.Error("lock vanished after failed release")
	}

	if released, err := m.ReleaseLock(ctx, "no-such-lock", ownerID); err != nil || !released {
		t.Errorf("releasing a missing lock: released=%v err=%v", released, err)
	}
}

// TestTTLExpiry verifies a TTL lock is force-released once its lease
// expires.
func TestTTLExpiry(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	ok, _, err := m.AcquireLock(ctx, "resource:3", lease.MinLeaseTTL)
	if err != nil || !ok {
		t.Fatalf("AcquireLock failed: ok=%v err=%v", ok, err)
	}

	deadline := time.Now().Add(lease.MinLeaseTTL + 3*time.Second)
	for m.Held("resource:3") {
		if time.Now().After(deadline) {
			t.Fatal("TTL lock never expired")
		}
		time.Sleep(50 * time.Millisecond)
	}

	// The key must be acquirable again.
	ok, _, err = m.AcquireLock(ctx, "resource:3", 0)
	if err != nil || !ok {
		t.Errorf("re-acquire after expiry failed: ok=%v err=%v", ok, err)
	}
}

// TestTTLExpiryConcurrent verifies that TTL locks acquired from many
// goroutines are all force-released once their leases expire, with the
// revocation dispatcher reading the entries concurrently. None of them may
// stay held because the dispatcher saw an entry without its lease ID.
func TestTTLExpiryConcurrent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	const numKeys = 32

	var wg sync.WaitGroup
	wg.Add(numKeys)
	for i := 0; i < numKeys; i++ {
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("resource:ttl:%d", i)
			ok, _, err := m.AcquireLock(ctx, key, lease.MinLeaseTTL)
			if err != nil || !ok {
				t.Errorf("AcquireLock(%q) failed: ok=%v err=%v", key, ok, err)
			}
		}(i)
	}
	wg.Wait()

	deadline := time.Now().Add(lease.MinLeaseTTL + 5*time.Second)
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("resource:ttl:%d", i)
		for m.Held(key) {
			if time.Now().After(deadline) {
				t.Fatalf("TTL lock %q never expired", key)
			}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// TestContestedTTLAcquire verifies a failed TTL acquisition cleans up its
// speculative lease and leaves the holder's lock untouched past the TTL.
func TestContestedTTLAcquire(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	ok, ownerID, err := m.AcquireLock(ctx, "resource:5", 0)
	if err != nil || !ok {
		t.Fatalf("AcquireLock failed: ok=%v err=%v", ok, err)
	}

	ok2, _, err := m.AcquireLock(ctx, "resource:5", lease.MinLeaseTTL)
	if err != nil {
		t.Fatalf("contested AcquireLock failed: %v", err)
	}
	if ok2 {
		t.Fatal("acquired an already-held lock")
	}

	// Well past the loser's TTL the holder must still own the lock.
	time.Sleep(lease.MinLeaseTTL + 500*time.Millisecond)
	if !m.Held("resource:5") {
		t.Fatal("holder's lock vanished after a contested TTL acquisition")
	}

	released, err := m.ReleaseLock(ctx, "resource:5", ownerID)
	if err != nil || !released {
		t.Errorf("holder could not release: released=%v err=%v", released, err)
	}
}

// TestStaleOwnerCannotRelease verifies that after expiry and re-acquisition
// the original owner's release is rejected.
func TestStaleOwnerCannotRelease(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	ok, staleOwner, err := m.AcquireLock(ctx, "resource:4", lease.MinLeaseTTL)
	if err != nil || !ok {
		t.Fatalf("AcquireLock failed: ok=%v err=%v", ok, err)
	}

	deadline := time.Now().Add(lease.MinLeaseTTL + 3*time.Second)
	for m.Held("resource:4") {
		if time.Now().After(deadline) {
			t.Fatal("TTL lock never expired")
		}
		time.Sleep(50 * time.Millisecond)
	}

	ok, _, err = m.AcquireLock(ctx, "resource:4", 0)
	if err != nil || !ok {
		t.Fatalf("re-acquire failed: ok=%v err=%v", ok, err)
	}

	released, err := m.ReleaseLock(ctx, "resource:4", staleOwner)
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if released {
		t.Error("stale owner released a re-acquired lock")
	}
	if !m.Held("resource:4") {
		t.Error("lock vanished after stale release attempt")
	}
}

// TestConcurrentAcquisition verifies exactly one of many concurrent
// requesters wins a free lock.
func TestConcurrentAcquisition(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	const numWorkers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			ok, _, err := m.AcquireLock(ctx, "contested", 0)
			if err != nil {
				t.Errorf("AcquireLock failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}
}
