// Package main: log tailing.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/logtail"
	"github.com/te-tools/tectl/internal/ui"
)

var (
	logsFollow bool
	logsLines  int
)

// logsCmd tails the log of a task.
var logsCmd = &cobra.Command{
	Use:   "logs <task>",
	Short: "Show or follow a task's log",
	Long: `Print the last lines of a task's log, or stream it with --follow.

Following a log never affects the task: Ctrl-C stops reading and nothing
else. The log survives the task, so completed and failed runs can be
inspected until 'tectl clean --logs'.

EXAMPLES:
  tectl logs build-cpp-tests           # Last 50 lines
  tectl logs python -n 200             # Aliases work too
  tectl logs test-l0-cpp -f            # Stream until Ctrl-C`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream new output until interrupted")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of trailing lines to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	kind, err := kindFromArg(args[0])
	if err != nil {
		return err
	}
	sup, _, err := newSupervisor()
	if err != nil {
		return err
	}
	rec, err := sup.Current(kind)
	if err != nil {
		return err
	}

	if logsFollow {
		// Cancelling the tail must only stop reading, never the task.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ui.PrintDim("Following %s (Ctrl-C to stop reading)", rec.LogPath)
		return logtail.Follow(ctx, rec.LogPath, logsLines, os.Stdout)
	}

	lines, err := logtail.Tail(rec.LogPath, logsLines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		os.Stdout.WriteString(line + "\n")
	}
	return nil
}
