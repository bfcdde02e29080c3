// Package main: test command group.
package main

import (
	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/task"
)

// testCmd is the parent command for test-suite tasks.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Start a test suite in the background",
	Long: `Run a Transformer Engine qa/ test suite as a detached background task.

Suites of different kinds run concurrently; starting a suite that is already
running fails with a conflict. Follow progress with 'tectl logs <task> -f'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// testL0CppCmd runs the L0 C++ unit test suite.
var testL0CppCmd = &cobra.Command{
	Use:   "l0-cpp",
	Short: "Run the L0 C++ unit tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startTask(task.KindTestL0Cpp)
	},
}

// testL0TorchCmd runs the L0 PyTorch unit test suite.
var testL0TorchCmd = &cobra.Command{
	Use:   "l0-torch",
	Short: "Run the L0 PyTorch unit tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startTask(task.KindTestL0PyTorch)
	},
}

// testL1DistCmd runs the L1 distributed PyTorch suite.
var testL1DistCmd = &cobra.Command{
	Use:   "l1-dist",
	Short: "Run the L1 PyTorch distributed tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startTask(task.KindTestL1Distributed)
	},
}

func init() {
	testCmd.AddCommand(testL0CppCmd)
	testCmd.AddCommand(testL0TorchCmd)
	testCmd.AddCommand(testL1DistCmd)
}
