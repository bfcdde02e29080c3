// Package main: environment diagnostics.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/config"
	"github.com/te-tools/tectl/internal/envcheck"
	"github.com/te-tools/tectl/internal/ui"
)

// doctorCmd runs the environment checks against the current configuration.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the build environment",
	Long: `Run diagnostic checks on the build environment.

CHECKS PERFORMED:
  - Repository and workspace paths
  - Init script presence
  - DTK toolkit installation
  - cmake, ninja, python3, pip availability and versions

Required failures also block 'tectl build' and 'tectl test' launches.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	healthy, results := envcheck.NewChecker(cfg).CheckAll()

	if jsonOutput() {
		out := struct {
			Healthy bool                   `json:"healthy"`
			Checks  []envcheck.CheckResult `json:"checks"`
		}{Healthy: healthy, Checks: results}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		if !healthy {
			return fmt.Errorf("environment checks failed")
		}
		return nil
	}

	for _, r := range results {
		mark := ui.SuccessStyle.Render("✓")
		if !r.OK {
			if r.Required {
				mark = ui.ErrorStyle.Render("✗")
			} else {
				mark = ui.WarningStyle.Render("⚠")
			}
		}
		req := "optional"
		if r.Required {
			req = "required"
		}
		fmt.Printf("%s %-12s %-10s %s\n", mark, r.Name, ui.DimStyle.Render(req), r.Message)
	}

	if !healthy {
		ui.PrintError("Environment is not ready; fix the required checks above")
		return fmt.Errorf("environment checks failed")
	}
	ui.PrintSuccess("Environment is ready")
	return nil
}
