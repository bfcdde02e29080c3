// Package main: task termination and reconciliation.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/task"
	"github.com/te-tools/tectl/internal/ui"
)

var (
	stopTimeout time.Duration
	stopYes     bool
)

// stopCmd terminates a running task's whole process group.
var stopCmd = &cobra.Command{
	Use:   "stop <task>",
	Short: "Stop a running task",
	Long: `Stop a running task and every process it spawned.

The entire process group receives SIGTERM first; anything still alive after
the grace period (--timeout) receives SIGKILL. A hung compiler or test
worker is always reclaimable this way, without hunting for PIDs manually.`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

func init() {
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 10*time.Second, "Grace period before SIGKILL")
	stopCmd.Flags().BoolVarP(&stopYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runStop(cmd *cobra.Command, args []string) error {
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
	if rec.Status != task.StatusRunning {
		return &task.NotRunningError{Kind: kind, Status: rec.Status}
	}

	if !stopYes {
		prompt := fmt.Sprintf("Kill %s (pid %d, running %s)?", rec.Kind, rec.PID, rec.Elapsed(time.Now()))
		if !ui.Confirm(prompt, true) {
			ui.PrintDim("Cancelled.")
			return nil
		}
	}

	rec, err = sup.Stop(kind, stopTimeout)
	if err != nil {
		return err
	}
	ui.PrintSuccess("%s killed", rec.Kind)
	return nil
}

var resolveAs string

// resolveCmd reconciles a task whose liveness could not be proven.
var resolveCmd = &cobra.Command{
	Use:   "resolve <task>",
	Short: "Resolve a task stuck in unknown status",
	Long: `Mark an unverifiable task as completed, failed, or killed.

A task becomes unknown when its recorded pid is gone (or was recycled by an
unrelated process) and no exit status was captured - typically after a
reboot or a crash. tectl never guesses the outcome; inspect the log with
'tectl logs <task>' and resolve it explicitly. Without --as, the end of the
log is checked for the build scripts' completion markers.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAs, "as", "", "Terminal status to record: completed, failed, or killed")
}

func runResolve(cmd *cobra.Command, args []string) error {
	kind, err := kindFromArg(args[0])
	if err != nil {
		return err
	}
	sup, _, err := newSupervisor()
	if err != nil {
		return err
	}

	target := task.Status(resolveAs)
	if resolveAs == "" {
		rec, err := sup.Current(kind)
		if err != nil {
			return err
		}
		inferred, ok := sup.InferOutcome(rec)
		if !ok {
			return fmt.Errorf("log for %s is inconclusive; pass --as completed|failed|killed", kind)
		}
		ui.PrintDim("Log suggests: %s", inferred)
		target = inferred
	}

	rec, err := sup.Resolve(kind, target)
	if err != nil {
		return err
	}
	ui.PrintSuccess("%s resolved as %s", rec.Kind, rec.Status)
	return nil
}
