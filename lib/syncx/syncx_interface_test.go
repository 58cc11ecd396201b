package syncx_test

import (
	"testing"

	synctesting "github.com/myrfy001/Xline/lib/syncx/testing"
)

func Test(t *testing.T) {
	synctesting.RunContainerTests(t)
}

func Benchmark(b *testing.B) {
	synctesting.RunContainerBenchmarks(b)
}
