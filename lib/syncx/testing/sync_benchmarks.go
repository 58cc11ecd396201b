package testing

import (
	"context"
	"testing"

	"github.com/myrfy001/Xline/lib/syncx"
)

// RunContainerBenchmarks runs all benchmarks against the backend compiled
// into this build.
func RunContainerBenchmarks(b *testing.B) {
	b.Run("AcquireRelease", benchmarkAcquireRelease)

	b.Run("AcquireReleaseContended", benchmarkAcquireReleaseContended)

	b.Run("Update", benchmarkUpdate)

	b.Run("ReadParallel", benchmarkReadParallel)

	b.Run("MixedReadWrite", benchmarkMixedReadWrite)
}

// benchmarkAcquireRelease measures an uncontended acquire/release pair.
func benchmarkAcquireRelease(b *testing.B) {
	c := syncx.NewExclusive(0)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g, err := c.Acquire(ctx)
		if err != nil {
			b.Fatalf("Acquire failed: %v", err)
		}
		g.Release()
	}
}

// benchmarkAcquireReleaseContended measures acquire/release under contention
// from all available procs.
func benchmarkAcquireReleaseContended(b *testing.B) {
	c := syncx.NewExclusive(0)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g, err := c.Acquire(ctx)
			if err != nil {
				b.Errorf("Acquire failed: %v", err)
				return
			}
			*g.Value()++
			g.Release()
		}
	})
}

// benchmarkUpdate measures the closure helper path.
func benchmarkUpdate(b *testing.B) {
	c := syncx.NewExclusive(0)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Update(ctx, func(value *int) { *value++ }); err != nil {
			b.Fatalf("Update failed: %v", err)
		}
	}
}

// benchmarkReadParallel measures concurrent shared reads with no writers.
func benchmarkReadParallel(b *testing.B) {
	c := syncx.NewShared(42)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g, err := c.AcquireRead(ctx)
			if err != nil {
				b.Errorf("AcquireRead failed: %v", err)
				return
			}
			_ = *g.Value()
			g.Release()
		}
	})
}

// benchmarkMixedReadWrite measures a read-heavy mix (one write per 16 ops).
func benchmarkMixedReadWrite(b *testing.B) {
	c := syncx.NewShared(0)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if counter%16 == 0 {
				g, err := c.AcquireWrite(ctx)
				if err != nil {
					b.Errorf("AcquireWrite failed: %v", err)
					return
				}
				*g.Value()++
				g.Release()
			} else {
				g, err := c.AcquireRead(ctx)
				if err != nil {
					b.Errorf("AcquireRead failed: %v", err)
					return
				}
				_ = *g.Value()
				g.Release()
			}
			counter++
		}
	})
}
