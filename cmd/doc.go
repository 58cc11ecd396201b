// Package cmd implements the command-line interface for the Xline
// synchronization utilities. It provides a hierarchical command structure
// with operations for inspecting the compiled lock backend and measuring
// its performance.
//
// The package is organized into several subpackages:
//
//   - perf: Commands for benchmarking the lock containers and lock manager
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See xline-utils -help for a list of all commands.
package cmd
