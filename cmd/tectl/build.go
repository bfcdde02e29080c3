// Package main: build command group.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/command"
	"github.com/te-tools/tectl/internal/config"
	"github.com/te-tools/tectl/internal/task"
	"github.com/te-tools/tectl/internal/ui"
)

// buildCmd is the parent command for build tasks.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Start a build task in the background",
	Long: `Start a Transformer Engine build as a detached background task.

The build keeps running after this command returns (and after the terminal
closes). Check progress with 'tectl ps', follow output with
'tectl logs <task> -f', and stop it with 'tectl stop <task>'.

At most one task per build family runs at a time: starting a second Python
build while one is running fails with a conflict.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var buildPythonClean bool

// buildPythonCmd builds the Python package.
var buildPythonCmd = &cobra.Command{
	Use:   "python",
	Short: "Build the Python package (incremental by default)",
	Long: `Build the Transformer Engine Python package in the background.

By default the build is incremental. With --clean, build artifacts and the
egg-info directory are removed first for a from-scratch build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := task.KindBuildPythonIncremental
		if buildPythonClean {
			kind = task.KindBuildPythonClean
		}
		return startTask(kind)
	},
}

var buildCppCleanFirst bool

// buildCppCmd builds the C++ unit tests.
var buildCppCmd = &cobra.Command{
	Use:   "cpp",
	Short: "Build the C++ unit tests",
	Long: `Build the Transformer Engine C++ unit tests with CMake/Ninja in the
background. With --clean-first, the tests/cpp/build directory is removed
before the build starts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if buildCppCleanFirst {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			buildDir := filepath.Join(cfg.RepoPath, "tests", "cpp", "build")
			ui.PrintDim("Removing %s", buildDir)
			if err := os.RemoveAll(buildDir); err != nil {
				return err
			}
		}
		return startTask(task.KindBuildCppTests)
	},
}

// buildAllCmd wipes every artifact and rebuilds Python then C++.
var buildAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Full clean and rebuild (Python + C++ tests)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startTask(task.KindBuildAll)
	},
}

// rebuildCmd is the fast development rebuild: touch hot files, then run the
// incremental Python and C++ builds back to back.
var rebuildCmd = &cobra.Command{
	Use:   "rebuild [files...]",
	Short: "Incremental dev rebuild (Python + C++ tests)",
	Long: `Touch the hot kernel sources and run the incremental Python and C++
builds in sequence, as one background task.

Any extra file arguments are touched as well, forcing their recompilation:

  tectl rebuild transformer_engine/common/gemm/rocm_gemm.cu`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		builder := command.NewBuilder(cfg)
		builder.TouchFiles = args

		sup, _, err := newSupervisorWith(cfg, builder)
		if err != nil {
			return err
		}
		rec, err := sup.Start(task.KindRebuild)
		if err != nil {
			return err
		}
		printStarted(rec)
		return nil
	},
}

func init() {
	buildPythonCmd.Flags().BoolVar(&buildPythonClean, "clean", false, "Remove build artifacts before building")
	buildCppCmd.Flags().BoolVar(&buildCppCleanFirst, "clean-first", false, "Remove tests/cpp/build before building")

	buildCmd.AddCommand(buildPythonCmd)
	buildCmd.AddCommand(buildCppCmd)
	buildCmd.AddCommand(buildAllCmd)
}

// startTask launches a kind through a fresh supervisor and reports it.
func startTask(kind task.Kind) error {
	sup, _, err := newSupervisor()
	if err != nil {
		return err
	}
	rec, err := sup.Start(kind)
	if err != nil {
		return err
	}
	printStarted(rec)
	return nil
}

// printStarted reports a freshly launched task with follow-up hints.
func printStarted(rec task.Record) {
	ui.PrintSuccess("%s started (pid %d)", rec.Kind, rec.PID)
	ui.PrintPath("log", rec.LogPath)
	ui.PrintPath("view", "tectl logs "+string(rec.Kind)+" -f")
	ui.PrintPath("stop", "tectl stop "+string(rec.Kind))
}
