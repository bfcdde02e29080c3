// Package main provides the entry point for tectl.
//
// tectl is a developer-workflow CLI for the Transformer Engine build/test
// cycle. Builds and test suites run as detached background processes that
// survive the invocation that started them; later invocations inspect,
// tail, and stop them through durable on-disk task records.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/ui"
)

// Version information set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tectl",
	Short: "Transformer Engine developer workflow",
	Long: `tectl drives the Transformer Engine build/test cycle.

Builds and test suites launch as detached background tasks: start one, close
the terminal, and check on it later from any shell. Task state lives on disk,
so 'tectl ps', 'tectl logs' and 'tectl stop' work from fresh invocations.

EXAMPLES:
  tectl build python            # Incremental Python build in the background
  tectl build cpp               # Build the C++ unit tests
  tectl test l0-cpp             # Run the L0 C++ suite
  tectl ps                      # Show all tasks and their status
  tectl logs build-cpp-tests -f # Follow a build log
  tectl stop test-l0-cpp        # Stop a running suite`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		if debug {
			log.SetLevel(log.DebugLevel)
			log.Debug("Debug logging enabled")
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		ui.SetQuietMode(quiet)
	},
}

// Execute runs the root command and converts the returned error into the
// stable exit-code taxonomy scripts depend on.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON (where supported)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(psCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		ui.PrintInfo("tectl %s", version)
		ui.PrintDim("commit: %s, built: %s", commit, date)
	},
}

func main() {
	Execute()
}
