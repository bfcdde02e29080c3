// Package main: configuration inspection and editing.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/te-tools/tectl/internal/config"
	"github.com/te-tools/tectl/internal/ui"
)

// configCmd is the parent command for configuration management.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change tectl configuration",
	Long: `Show or change the tectl configuration.

Settings resolve in three layers, strongest last: built-in defaults, the
per-user config file, and environment variables (TE_PATH, TE_WORKSPACE,
TE_INIT_SCRIPT). 'config set' writes the per-user file; environment
variables still win at runtime.

KEYS:
  repo         Transformer Engine checkout to build
  workspace    Parent directory test suites execute from
  init-script  Environment script sourced by every build`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// configGetCmd prints the effective configuration.
var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if jsonOutput() {
			out := struct {
				Repo       string `json:"repo"`
				Workspace  string `json:"workspace"`
				InitScript string `json:"init_script"`
				DTK        string `json:"dtk"`
			}{cfg.RepoPath, cfg.Workspace, cfg.InitScriptPath(), cfg.DTKBase}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		ui.PrintPath("repo", cfg.RepoPath)
		ui.PrintPath("workspace", cfg.Workspace)
		ui.PrintPath("init-script", cfg.InitScriptPath())
		ui.PrintPath("dtk", cfg.DTKBase)
		return nil
	},
}

// configSetCmd updates one key in the per-user config file.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		key, value := args[0], args[1]
		switch key {
		case "repo":
			cfg.RepoPath = value
		case "workspace":
			cfg.Workspace = value
		case "init-script":
			cfg.InitScript = value
		default:
			return fmt.Errorf("unknown config key %q (valid: repo, workspace, init-script)", key)
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		ui.PrintSuccess("%s = %s", key, value)
		return nil
	},
}

// configPathCmd prints where the config file lives.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}
