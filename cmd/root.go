package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/myrfy001/Xline/cmd/perf"
	"github.com/myrfy001/Xline/lib/syncx"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "xline-utils",
		Short: "synchronization and coordination utilities",
		Long: fmt.Sprintf(`xline-utils (v%s)

Synchronization utilities underlying the Xline coordination service:
lock containers with a build-time selectable wait strategy, leases,
and a named lock manager.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of xline-utils",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xline-utils v%s\n", Version)
		},
	}

	// backendCmd reports which lock backend this binary was built with
	backendCmd = &cobra.Command{
		Use:   "backend",
		Short: "Print the compiled lock backend",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("backend: %s (suspending: %v)\n", syncx.Backend(), syncx.Suspending)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(backendCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
