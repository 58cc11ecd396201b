// Package testing provides a standardised test suite and benchmarks for the
// synchronization containers in lib/syncx.
//
// The suite exercises the full container contract: mutual exclusion,
// read/write exclusivity, waiter wake-up, poisoning, backend availability
// and (where the compiled backend supports it) cancellation of pending
// acquisitions. Because backend selection happens at build time, running the
// suite under each build tag demonstrates that all backends present
// identical external behavior:
//
//	go test ./lib/syncx/...
//	go test -tags sync_spin ./lib/syncx/...
//	go test -tags sync_suspend ./lib/syncx/...
//
// Example usage:
//
//	func Test(t *testing.T) {
//		synctesting.RunContainerTests(t)
//	}
//
//	func Benchmark(b *testing.B) {
//		synctesting.RunContainerBenchmarks(b)
//	}
package testing
