// Package config provides tectl configuration management.
//
// Configuration resolves in three layers, strongest last: built-in defaults,
// the per-user config.yaml, and environment variables (TE_PATH,
// TE_WORKSPACE, TE_INIT_SCRIPT). A .env file in the working directory is
// loaded into the environment first, so per-repo overrides work without
// exporting anything.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the paths the build and test commands operate on.
type Config struct {
	// RepoPath is the Transformer Engine checkout the commands build.
	RepoPath string `yaml:"repo_path"`

	// Workspace is the parent directory test suites execute from.
	Workspace string `yaml:"workspace"`

	// InitScript is the environment init script sourced by every build
	// script. Empty means <repo_path>/te_init.sh.
	InitScript string `yaml:"init_script,omitempty"`

	// DTKBase is the default DTK toolkit installation.
	DTKBase string `yaml:"dtk_base,omitempty"`

	// DTK26Path is probed at script runtime and preferred when present.
	DTK26Path string `yaml:"dtk_26_path,omitempty"`
}

// defaults returns the built-in configuration.
func defaults() *Config {
	return &Config{
		RepoPath:  "/workspace/TransformerEngine",
		Workspace: "/workspace",
		DTKBase:   "/opt/dtk-25.04.2",
		DTK26Path: "/opt/dtk-26.04",
	}
}

// Path returns the per-user config file location.
//
// Returns:
//   - string: Path to config.yaml under the user config dir.
//   - error: Any error resolving the user config dir.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(base, "tectl", "config.yaml"), nil
}

// Load resolves the effective configuration.
//
// Returns:
//   - *Config: The merged configuration.
//   - error: Any error reading an existing config file. A missing file is
//     not an error; defaults apply.
func Load() (*Config, error) {
	// Best-effort: absent .env files are the normal case.
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded .env overrides")
	}

	cfg := defaults()

	path, err := Path()
	if err == nil {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
			log.Debug("Loaded config", "path", path)
		}
	}

	if v := os.Getenv("TE_PATH"); v != "" {
		cfg.RepoPath = v
	}
	if v := os.Getenv("TE_WORKSPACE"); v != "" {
		cfg.Workspace = v
	}
	if v := os.Getenv("TE_INIT_SCRIPT"); v != "" {
		cfg.InitScript = v
	}
	return cfg, nil
}

// Save writes the configuration to the per-user config file.
//
// Returns:
//   - error: Any error encoding or writing the file.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	log.Debug("Saved config", "path", path)
	return nil
}

// InitScriptPath returns the effective init script location.
func (c *Config) InitScriptPath() string {
	if c.InitScript != "" {
		return c.InitScript
	}
	return filepath.Join(c.RepoPath, "te_init.sh")
}

// StateDir returns the directory holding task records, exit sidecars, and
// log files. Honors XDG_STATE_HOME; defaults to ~/.local/state/tectl.
//
// Returns:
//   - string: The state directory path (not created here; the store
//     creates it).
//   - error: Any error resolving the home directory.
func StateDir() (string, error) {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return filepath.Join(v, "tectl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "tectl"), nil
}
