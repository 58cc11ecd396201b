package perf

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/myrfy001/Xline/cmd/util"
	"github.com/myrfy001/Xline/lib/lockmgr"
	"github.com/myrfy001/Xline/lib/syncx"
)

var (
	// PerfCmd represents the perf command group
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Benchmark the compiled lock backend",
		Long:    "Runs the container and lock manager workloads against the lock backend compiled into this binary and reports ns/op per workload.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}

	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Workloads to skip (comma separated - e.g. exclusive,lockmgr)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the lockmgr workload"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to dump acquisition latency histograms in Prometheus text format"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfKeySpread = viper.GetInt("keys")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Benchmark tool for the xline-utils lock abstraction")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Backend: %s (suspending: %v)\n", syncx.Backend(), syncx.Suspending)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Keys:    %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting workloads...")

	ctx := context.Background()

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	exclusiveResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("exclusive") {
			return
		}

		c := syncx.NewExclusive(0)
		hist := acquireHistogram("exclusive")

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				start := time.Now()
				g, err := c.Acquire(ctx)
				if err != nil {
					b.Errorf("(exclusive) - error acquiring: %v", err)
					return
				}
				hist.UpdateDuration(start)
				*g.Value()++
				g.Release()
			}
		})
	})

	results["exclusive"] = exclusiveResult
	printResult("exclusive", exclusiveResult)

	updateResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("update") {
			return
		}

		c := syncx.NewExclusive(0)

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if err := c.Update(ctx, func(value *int) { *value++ }); err != nil {
					b.Errorf("(update) - error updating: %v", err)
					return
				}
			}
		})
	})

	results["update"] = updateResult
	printResult("update", updateResult)

	sharedReadResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("shared-read") {
			return
		}

		c := syncx.NewShared(42)
		hist := acquireHistogram("shared-read")

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				start := time.Now()
				g, err := c.AcquireRead(ctx)
				if err != nil {
					b.Errorf("(shared-read) - error acquiring: %v", err)
					return
				}
				hist.UpdateDuration(start)
				_ = *g.Value()
				g.Release()
			}
		})
	})

	results["shared-read"] = sharedReadResult
	printResult("shared-read", sharedReadResult)

	sharedMixedResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("shared-mixed") {
			return
		}

		c := syncx.NewShared(0)

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				var err error
				if counter%16 == 0 {
					err = c.Update(ctx, func(value *int) { *value++ })
				} else {
					err = c.Read(ctx, func(value *int) { _ = *value })
				}
				if err != nil {
					b.Errorf("(shared-mixed) - error performing operation: %v", err)
					return
				}
				counter++
			}
		})
	})

	results["shared-mixed"] = sharedMixedResult
	printResult("shared-mixed", sharedMixedResult)

	lockMgrResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("lockmgr") {
			return
		}

		m := lockmgr.NewLockManager(lockmgr.ManagerConfig{})
		b.Cleanup(func() {
			if err := m.Close(); err != nil {
				b.Errorf("(lockmgr) - error closing manager: %v", err)
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("__perf-%d", counter%perfKeySpread)
				ok, ownerID, err := m.AcquireLock(ctx, key, 0)
				if err != nil {
					b.Errorf("(lockmgr) - error acquiring: %v", err)
					return
				}
				if ok {
					if _, err := m.ReleaseLock(ctx, key, ownerID); err != nil {
						b.Errorf("(lockmgr) - error releasing: %v", err)
						return
					}
				}
				counter++
			}
		})
	})

	results["lockmgr"] = lockMgrResult
	printResult("lockmgr", lockMgrResult)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	// Write latency histograms if specified
	if metricsPath := viper.GetString("metrics"); metricsPath != "" {
		fmt.Printf("\nExporting latency histograms: %s\n", metricsPath)
		f, err := os.Create(metricsPath)
		if err != nil {
			return fmt.Errorf("failed to create metrics file: %v", err)
		}
		defer f.Close()
		vmetrics.WritePrometheus(f, false)
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// acquireHistogram returns the latency histogram for a workload, labeled
// with the compiled backend.
func acquireHistogram(workload string) *vmetrics.Histogram {
	return vmetrics.GetOrCreateHistogram(
		fmt.Sprintf(`sync_acquire_duration_seconds{workload=%q,backend=%q}`, workload, syncx.Backend()))
}

func shouldSkip(workload string) bool {
	// Check if the workload is in the skip list
	for _, skip := range perfSkip {
		if workload == skip {
			return true
		}
	}
	return false
}

func printResult(name string, r testing.BenchmarkResult) {
	if r.N == 0 {
		fmt.Printf("%-12s : skipped\n", name)
		return
	}
	fmt.Printf("%-12s : %12d ops, %10.1f ns/op\n", name, r.N, float64(r.T.Nanoseconds())/float64(r.N))
}

func writeResultsToCSV(path string, results map[string]testing.BenchmarkResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"workload", "backend", "threads", "iterations", "ns_per_op"}); err != nil {
		return err
	}

	for name, r := range results {
		if r.N == 0 {
			continue
		}
		row := []string{
			name,
			syncx.Backend(),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(r.N),
			strconv.FormatFloat(float64(r.T.Nanoseconds())/float64(r.N), 'f', 1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}
