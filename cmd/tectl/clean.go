// Package main: record and log cleanup.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/ui"
)

var cleanLogs bool

// cleanCmd removes finished task records, and optionally their logs.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove finished task records",
	Long: `Delete the records of completed, failed, and killed tasks.

Running and unknown tasks are left alone. Log files are kept for postmortem
inspection unless --logs is given.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanLogs, "logs", false, "Also delete the tasks' log files")
}

func runClean(cmd *cobra.Command, args []string) error {
	sup, _, err := newSupervisor()
	if err != nil {
		return err
	}
	records, err := sup.List()
	if err != nil {
		return err
	}

	removed := 0
	for _, rec := range records {
		if !rec.Status.Terminal() {
			continue
		}
		if err := sup.Store().Delete(rec.ID); err != nil {
			return err
		}
		if cleanLogs {
			if err := os.Remove(rec.LogPath); err != nil && !os.IsNotExist(err) {
				ui.PrintWarning("Could not remove %s: %v", rec.LogPath, err)
			}
			// Exit sidecars are only useful while the record exists.
			_ = os.Remove(rec.ExitPath)
		}
		removed++
	}

	if removed == 0 {
		ui.PrintDim("Nothing to clean.")
		return nil
	}
	ui.PrintSuccess("Removed %d finished task(s)", removed)
	return nil
}
