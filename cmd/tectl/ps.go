// Package main: task status listing.
package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/task"
	"github.com/te-tools/tectl/internal/ui"
)

// psCmd lists all task records with freshly probed status.
var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "Show tasks and their status",
	Long: `Show all tasks, most recent first.

Every listed record is re-checked against the OS first, so a build that
finished since the last invocation shows as completed or failed, not as a
stale "running". Tasks whose process cannot be verified show as unknown and
should be resolved with 'tectl resolve <task>'.`,
	RunE: runPs,
}

func runPs(cmd *cobra.Command, args []string) error {
	sup, _, err := newSupervisor()
	if err != nil {
		return err
	}
	records, err := sup.List()
	if err != nil {
		return err
	}

	if jsonOutput() {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		ui.PrintDim("No tasks found.")
		return nil
	}

	fmt.Printf("%s\n", ui.TableHeaderStyle.Render(
		fmt.Sprintf("%-26s %-10s %-8s %-10s %-6s", "TASK", "STATUS", "PID", "ELAPSED", "EXIT")))
	now := time.Now()
	unknown := 0
	for _, rec := range records {
		exit := "-"
		if rec.ExitCode != nil {
			exit = strconv.Itoa(*rec.ExitCode)
		}
		pid := "-"
		if rec.Status == task.StatusRunning {
			pid = strconv.Itoa(rec.PID)
		}
		if rec.Status == task.StatusUnknown {
			unknown++
		}
		fmt.Printf("%-26s %s %-8s %-10s %-6s\n",
			rec.Kind,
			ui.StatusStyle(string(rec.Status)).Render(fmt.Sprintf("%-10s", rec.Status)),
			pid,
			rec.Elapsed(now).String(),
			exit)
	}

	if unknown > 0 {
		ui.PrintWarning("%d task(s) could not be verified; inspect the log and run 'tectl resolve <task> --as <status>'", unknown)
	}
	return nil
}
