package testing

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/myrfy001/Xline/lib/syncx"
)

// RunContainerTests runs the full contract test suite against the backend
// compiled into this build. The suite is identical for every backend;
// cancellation subtests run only where acquisition is a suspension point.
func RunContainerTests(t *testing.T) {
	t.Run(syncx.Backend(), func(t *testing.T) {
		t.Run("ExclusiveCounter", testExclusiveCounter)

		t.Run("MutualExclusionStress", testMutualExclusionStress)

		t.Run("ReadWriteExclusivity", testReadWriteExclusivity)

		t.Run("ReadersCoexist", testReadersCoexist)

		t.Run("ReleaseUnblocksWaiter", testReleaseUnblocksWaiter)

		t.Run("PoisoningPropagation", testPoisoningPropagation)

		t.Run("ManualPoisoning", testManualPoisoning)

		t.Run("BackendUnavailable", testBackendUnavailable)

		t.Run("ClosureHelpers", testClosureHelpers)

		if syncx.Suspending {
			t.Run("CancellationSafety", testCancellationSafety)
		}
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

// testExclusiveCounter is the canonical scenario: five concurrent workers
// each acquire exclusively, read, add one, release. The final value must be
// five regardless of backend or interleaving.
func testExclusiveCounter(t *testing.T) {
	c := syncx.NewExclusive(0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := c.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			defer g.Release()
			*g.Value()++
		}()
	}
	wg.Wait()

	g, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("final Acquire failed: %v", err)
	}
	defer g.Release()
	if *g.Value() != 5 {
		t.Errorf("expected final value 5, got %d", *g.Value())
	}
}

// testMutualExclusionStress verifies that at most one exclusive guard is
// live at any instant and that no increments are lost.
func testMutualExclusionStress(t *testing.T) {
	const (
		numWorkers          = 16
		incrementsPerWorker = 500
	)

	c := syncx.NewExclusive(0)
	var holders atomic.Int32

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < incrementsPerWorker; j++ {
				g, err := c.Acquire(context.Background())
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}

				if n := holders.Add(1); n != 1 {
					t.Errorf("%d exclusive holders live at once", n)
				}
				*g.Value()++
				holders.Add(-1)

				g.Release()
			}
		}()
	}
	wg.Wait()

	g, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("final Acquire failed: %v", err)
	}
	defer g.Release()
	if want := numWorkers * incrementsPerWorker; *g.Value() != want {
		t.Errorf("lost updates: expected %d, got %d", want, *g.Value())
	}
}

// testReadWriteExclusivity runs randomized interleavings of read and write
// acquisitions and asserts that a live write guard excludes all readers and
// other writers, and vice versa.
func testReadWriteExclusivity(t *testing.T) {
	const (
		numWorkers   = 12
		opsPerWorker = 300
		readFraction = 70 // percent
	)

	c := syncx.NewShared(0)
	var (
		activeReaders atomic.Int32
		activeWriters atomic.Int32
	)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for j := 0; j < opsPerWorker; j++ {
				if rng.Intn(100) < readFraction {
					g, err := c.AcquireRead(context.Background())
					if err != nil {
						t.Errorf("AcquireRead failed: %v", err)
						return
					}
					activeReaders.Add(1)
					if w := activeWriters.Load(); w != 0 {
						t.Errorf("reader live while %d writers active", w)
					}
					_ = *g.Value()
					activeReaders.Add(-1)
					g.Release()
				} else {
					g, err := c.AcquireWrite(context.Background())
					if err != nil {
						t.Errorf("AcquireWrite failed: %v", err)
						return
					}
					if n := activeWriters.Add(1); n != 1 {
						t.Errorf("%d writers live at once", n)
					}
					if r := activeReaders.Load(); r != 0 {
						t.Errorf("writer live while %d readers active", r)
					}
					*g.Value()++
					activeWriters.Add(-1)
					g.Release()
				}
			}
		}(int64(i))
	}
	wg.Wait()
}

// testReadersCoexist verifies that two read guards can be held at the same
// time.
func testReadersCoexist(t *testing.T) {
	c := syncx.NewShared("shared")

	g1, err := c.AcquireRead(context.Background())
	if err != nil {
		t.Fatalf("first AcquireRead failed: %v", err)
	}
	defer g1.Release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		g2, err := c.AcquireRead(context.Background())
		if err != nil {
			t.Errorf("second AcquireRead failed: %v", err)
			return
		}
		g2.Release()
	}()

	select {
	case <-done:
		// second reader got in while the first is still held
	case <-time.After(2 * time.Second):
		t.Fatal("second reader blocked by outstanding read guard")
	}
}

// testReleaseUnblocksWaiter verifies that dropping the holder's guard lets a
// pending acquisition complete.
func testReleaseUnblocksWaiter(t *testing.T) {
	c := syncx.NewExclusive(0)

	g, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		g2, err := c.Acquire(context.Background())
		if err != nil {
			t.Errorf("waiter Acquire failed: %v", err)
			return
		}
		close(acquired)
		g2.Release()
	}()

	// The waiter must actually be waiting.
	select {
	case <-acquired:
		t.Fatal("waiter acquired while the lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not unblocked by release")
	}
}

// testPoisoningPropagation verifies that a panic inside Update marks the
// container poisoned, that the condition repeats until cleared, and that the
// guard is still handed out so the value can be recovered.
func testPoisoningPropagation(t *testing.T) {
	c := syncx.NewExclusive(41)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate out of Update")
			}
		}()
		_ = c.Update(context.Background(), func(value *int) {
			*value = -1 // half-done mutation
			panic("holder terminated abnormally")
		})
	}()

	if !c.Poisoned() {
		t.Fatal("container not poisoned after panicking holder")
	}

	// Acquisition still succeeds but reports the condition, twice in a row.
	for i := 0; i < 2; i++ {
		g, err := c.Acquire(context.Background())
		if !syncx.IsPoisoned(err) {
			t.Fatalf("expected poisoned error, got %v", err)
		}
		if g == nil {
			t.Fatal("expected a usable guard alongside the poisoned error")
		}
		g.Release()
	}

	// Recover the value, acknowledge, and check the error is gone.
	g, err := c.Acquire(context.Background())
	if !syncx.IsPoisoned(err) {
		t.Fatalf("expected poisoned error, got %v", err)
	}
	*g.Value() = 42
	c.ClearPoison()
	g.Release()

	g, err = c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after ClearPoison failed: %v", err)
	}
	defer g.Release()
	if *g.Value() != 42 {
		t.Errorf("expected recovered value 42, got %d", *g.Value())
	}
}

// testManualPoisoning covers the explicit Poison call on a write guard.
func testManualPoisoning(t *testing.T) {
	c := syncx.NewShared(0)

	g, err := c.AcquireWrite(context.Background())
	if err != nil {
		t.Fatalf("AcquireWrite failed: %v", err)
	}
	g.Poison()
	g.Release()

	r, err := c.AcquireRead(context.Background())
	if !syncx.IsPoisoned(err) {
		t.Fatalf("expected poisoned error on read, got %v", err)
	}
	r.Release()

	c.ClearPoison()
	if err := c.Read(context.Background(), func(*int) {}); err != nil {
		t.Errorf("Read after ClearPoison failed: %v", err)
	}
}

// testBackendUnavailable verifies that containers not built through their
// constructors report the uninitialized backend primitive.
func testBackendUnavailable(t *testing.T) {
	var ec syncx.ExclusiveContainer[int]
	if _, err := ec.Acquire(context.Background()); !syncx.IsBackendUnavailable(err) {
		t.Errorf("expected backend unavailable from zero-value ExclusiveContainer, got %v", err)
	}

	var sc syncx.SharedContainer[int]
	if _, err := sc.AcquireRead(context.Background()); !syncx.IsBackendUnavailable(err) {
		t.Errorf("expected backend unavailable from zero-value SharedContainer (read), got %v", err)
	}
	if _, err := sc.AcquireWrite(context.Background()); !syncx.IsBackendUnavailable(err) {
		t.Errorf("expected backend unavailable from zero-value SharedContainer (write), got %v", err)
	}
}

// testClosureHelpers covers the Update/Read convenience paths.
func testClosureHelpers(t *testing.T) {
	ec := syncx.NewExclusive(10)
	if err := ec.Update(context.Background(), func(value *int) { *value *= 2 }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	sc := syncx.NewShared(10)
	if err := sc.Update(context.Background(), func(value *int) { *value *= 3 }); err != nil {
		t.Fatalf("shared Update failed: %v", err)
	}

	var got int
	if err := sc.Read(context.Background(), func(value *int) { got = *value }); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
}

// testCancellationSafety verifies (suspending backend only) that cancelling
// a pending acquisition removes the waiter without a phantom acquisition.
func testCancellationSafety(t *testing.T) {
	c := syncx.NewExclusive(0)

	g, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		g2, err := c.Acquire(ctx)
		if g2 != nil {
			g2.Release()
		}
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond) // let the waiter suspend
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter never returned")
	}

	// The holder is unaffected; after release the container must be
	// immediately acquirable (no phantom holder left behind).
	g.Release()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	g3, err := c.Acquire(ctx2)
	if err != nil {
		t.Fatalf("Acquire after cancelled waiter failed: %v", err)
	}
	g3.Release()

	// A deadline that expires while waiting surfaces DeadlineExceeded.
	g4, err := c.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	ctx3, cancel3 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel3()
	if _, err := c.Acquire(ctx3); err != context.DeadlineExceeded {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	g4.Release()
}
