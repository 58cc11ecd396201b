package lease

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T, cfg ManagerConfig) ILeaseManager {
	t.Helper()
	m := NewLeaseManager(cfg)
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return m
}

// TestGrantLookUpRevoke covers the basic lease lifecycle.
func TestGrantLookUpRevoke(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	info, err := m.Grant(ctx, 10*time.Second)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if info.TTL != 10*time.Second {
		t.Errorf("expected TTL 10s, got %v", info.TTL)
	}
	if info.RemainingTTL <= 0 || info.RemainingTTL > 10*time.Second {
		t.Errorf("implausible remaining TTL %v", info.RemainingTTL)
	}

	got, err := m.LookUp(ctx, info.ID)
	if err != nil {
		t.Fatalf("LookUp failed: %v", err)
	}
	if got.ID != info.ID {
		t.Errorf("LookUp returned wrong lease: %d != %d", got.ID, info.ID)
	}

	if err := m.Revoke(ctx, info.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := m.LookUp(ctx, info.ID); !IsNotFound(err) {
		t.Errorf("expected not-found after revoke, got %v", err)
	}
	if err := m.Revoke(ctx, info.ID); !IsNotFound(err) {
		t.Errorf("expected not-found on double revoke, got %v", err)
	}
}

// TestTTLClamping verifies granted TTLs are clamped to the allowed range.
func TestTTLClamping(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	info, err := m.Grant(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if info.TTL != MinLeaseTTL {
		t.Errorf("expected TTL clamped to %v, got %v", MinLeaseTTL, info.TTL)
	}
}

// TestRenew verifies renewal pushes expiry forward and rejects unknown
// leases.
func TestRenew(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	info, err := m.Grant(ctx, 2*time.Second)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	ttl, err := m.Renew(ctx, info.ID)
	if err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if ttl != 2*time.Second {
		t.Errorf("expected TTL 2s, got %v", ttl)
	}

	got, err := m.LookUp(ctx, info.ID)
	if err != nil {
		t.Fatalf("LookUp failed: %v", err)
	}
	// after sleeping 100ms a renewed lease must have close to the full TTL
	if got.RemainingTTL < 1900*time.Millisecond {
		t.Errorf("renewal did not push expiry: remaining %v", got.RemainingTTL)
	}

	if _, err := m.Renew(ctx, info.ID+1); !IsNotFound(err) {
		t.Errorf("expected not-found for unknown lease, got %v", err)
	}
}

// TestAttachDetach verifies key bookkeeping and that revocation reports the
// attached keys.
func TestAttachDetach(t *testing.T) {
	events := make(chan RevokedLease, 1)
	m := newTestManager(t, ManagerConfig{
		OnRevoke: func(ev RevokedLease) { events <- ev },
	})
	ctx := context.Background()

	info, err := m.Grant(ctx, 10*time.Second)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	for _, key := range []string{"a", "b", "c"} {
		if err := m.Attach(ctx, info.ID, key); err != nil {
			t.Fatalf("Attach(%q) failed: %v", key, err)
		}
	}
	if err := m.Detach(ctx, info.ID, "b"); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	got, err := m.LookUp(ctx, info.ID)
	if err != nil {
		t.Fatalf("LookUp failed: %v", err)
	}
	if len(got.Keys) != 2 || got.Keys[0] != "a" || got.Keys[1] != "c" {
		t.Errorf("unexpected keys %v", got.Keys)
	}

	if err := m.Revoke(ctx, info.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	select {
	case ev := <-events:
		if ev.ID != info.ID || ev.Expired {
			t.Errorf("unexpected event %+v", ev)
		}
		if len(ev.Keys) != 2 {
			t.Errorf("expected 2 keys in revocation event, got %v", ev.Keys)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("revocation event not delivered")
	}

	if err := m.Attach(ctx, info.ID, "d"); !IsNotFound(err) {
		t.Errorf("expected not-found attaching to revoked lease, got %v", err)
	}
}

// TestGetLease verifies the reverse lookup from an attached key to its
// lease ID.
func TestGetLease(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	info, err := m.Grant(ctx, 10*time.Second)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := m.Attach(ctx, info.ID, "resource:1"); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	id, err := m.GetLease(ctx, "resource:1")
	if err != nil {
		t.Fatalf("GetLease failed: %v", err)
	}
	if id != info.ID {
		t.Errorf("expected lease %d, got %d", info.ID, id)
	}

	if _, err := m.GetLease(ctx, "resource:unattached"); !IsNotFound(err) {
		t.Errorf("expected not-found for unattached key, got %v", err)
	}

	if err := m.Detach(ctx, info.ID, "resource:1"); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if _, err := m.GetLease(ctx, "resource:1"); !IsNotFound(err) {
		t.Errorf("expected not-found after detach, got %v", err)
	}

	if err := m.Attach(ctx, info.ID, "resource:1"); err != nil {
		t.Fatalf("re-Attach failed: %v", err)
	}
	if err := m.Revoke(ctx, info.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := m.GetLease(ctx, "resource:1"); !IsNotFound(err) {
		t.Errorf("expected not-found after revoke, got %v", err)
	}
}

// TestErrorPredicatesMatchWrapped verifies the predicates see through
// error wrapping.
func TestErrorPredicatesMatchWrapped(t *testing.T) {
	notFound := fmt.Errorf("looking up lease: %w", NewError(RetCLeaseNotFound, "no such lease"))
	if !IsNotFound(notFound) {
		t.Error("IsNotFound failed on a wrapped error")
	}
	if IsExpired(notFound) {
		t.Error("IsExpired matched a wrapped not-found error")
	}

	expired := fmt.Errorf("renewing lease: %w", NewError(RetCLeaseExpired, "lease is past its expiry"))
	if !IsExpired(expired) {
		t.Error("IsExpired failed on a wrapped error")
	}

	if IsNotFound(nil) || IsExpired(nil) {
		t.Error("predicates matched nil error")
	}
}

// TestExpiry verifies the sweeper revokes an overdue lease and reports it as
// expired.
func TestExpiry(t *testing.T) {
	events := make(chan RevokedLease, 4)
	m := newTestManager(t, ManagerConfig{
		SweepInterval: 50 * time.Millisecond,
		OnRevoke:      func(ev RevokedLease) { events <- ev },
	})
	ctx := context.Background()

	// MinLeaseTTL is the shortest lease we can get.
	info, err := m.Grant(ctx, MinLeaseTTL)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := m.Attach(ctx, info.ID, "guarded"); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	select {
	case ev := <-events:
		if !ev.Expired {
			t.Errorf("expected an expiry event, got %+v", ev)
		}
		if len(ev.Keys) != 1 || ev.Keys[0] != "guarded" {
			t.Errorf("expected attached key in expiry event, got %v", ev.Keys)
		}
	case <-time.After(MinLeaseTTL + 3*time.Second):
		t.Fatal("lease never expired")
	}

	if _, err := m.LookUp(ctx, info.ID); !IsNotFound(err) {
		t.Errorf("expected not-found after expiry, got %v", err)
	}
}

// TestDemotePromote verifies demote disarms expiry and promote re-arms it.
func TestDemotePromote(t *testing.T) {
	m := newTestManager(t, ManagerConfig{SweepInterval: 50 * time.Millisecond})
	ctx := context.Background()

	info, err := m.Grant(ctx, MinLeaseTTL)
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := m.Demote(ctx); err != nil {
		t.Fatalf("Demote failed: %v", err)
	}

	// Well past the TTL the lease must still be there.
	time.Sleep(MinLeaseTTL + 500*time.Millisecond)
	if _, err := m.LookUp(ctx, info.ID); err != nil {
		t.Fatalf("lease expired while demoted: %v", err)
	}

	if err := m.Promote(ctx, 0); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	deadline := time.Now().Add(MinLeaseTTL + 3*time.Second)
	for {
		if _, err := m.LookUp(ctx, info.ID); IsNotFound(err) {
			break // expired after promotion re-armed the queue
		}
		if time.Now().After(deadline) {
			t.Fatal("lease never expired after Promote")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// TestConcurrentGrants verifies IDs are unique under concurrency.
func TestConcurrentGrants(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	ctx := context.Background()

	const numWorkers = 8
	const grantsPerWorker = 50

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < grantsPerWorker; j++ {
				info, err := m.Grant(ctx, 10*time.Second)
				if err != nil {
					t.Errorf("Grant failed: %v", err)
					return
				}
				mu.Lock()
				if seen[info.ID] {
					t.Errorf("duplicate lease ID %d", info.ID)
				}
				seen[info.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	infos, err := m.Leases(ctx)
	if err != nil {
		t.Fatalf("Leases failed: %v", err)
	}
	if len(infos) != numWorkers*grantsPerWorker {
		t.Errorf("expected %d leases, got %d", numWorkers*grantsPerWorker, len(infos))
	}
}

// TestClosedManager verifies operations after Close are rejected.
func TestClosedManager(t *testing.T) {
	m := NewLeaseManager(ManagerConfig{})
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := m.Grant(context.Background(), time.Second); err == nil {
		t.Error("Grant on closed manager succeeded")
	}
}
