// Package envcheck validates the build environment before tasks launch and
// powers the doctor diagnostics.
package envcheck

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/te-tools/tectl/internal/config"
	"github.com/te-tools/tectl/internal/task"
)

// CheckResult is one diagnostic check outcome.
type CheckResult struct {
	// Name is the check name (e.g., "CMake", "Repository").
	Name string `json:"name"`

	// Required marks checks whose failure blocks launches.
	Required bool `json:"required"`

	// OK is true if the check passed.
	OK bool `json:"ok"`

	// Message is the human-readable result (path, version, or what is
	// missing).
	Message string `json:"message"`
}

// Checker validates tools and paths against the configuration. It implements
// task.Prechecker.
type Checker struct {
	cfg *config.Config
}

// NewChecker creates a checker for the given configuration.
func NewChecker(cfg *config.Config) *Checker {
	return &Checker{cfg: cfg}
}

// Precheck returns nil if the environment can run the given kind. A failing
// precheck blocks the launch before any process is spawned or record
// created.
//
// Parameters:
//   - kind: The task kind about to launch.
//
// Returns:
//   - error: A MissingDependencyError naming the first missing piece.
func (c *Checker) Precheck(kind task.Kind) error {
	if err := c.requireDir("repository", c.cfg.RepoPath); err != nil {
		return err
	}

	switch kind {
	case task.KindBuildPythonIncremental, task.KindBuildPythonClean:
		return c.requireAll(c.requireInit, c.tool("python3"), c.pipModule)
	case task.KindBuildCppTests:
		return c.requireAll(c.requireInit, c.tool("cmake"), c.tool("ninja"))
	case task.KindRebuild, task.KindBuildAll:
		return c.requireAll(c.requireInit,
			c.tool("python3"), c.pipModule, c.tool("cmake"), c.tool("ninja"))
	case task.KindTestL0Cpp:
		return c.requireSuite("qa/L0_cppunittest/test.sh")
	case task.KindTestL0PyTorch:
		return c.requireSuite("qa/L0_pytorch_unittest/test.sh")
	case task.KindTestL1Distributed:
		return c.requireSuite("qa/L1_pytorch_distributed_unittest/test.sh")
	}
	return &task.UnsupportedKindError{Kind: kind}
}

// requireAll runs checks in order and returns the first failure.
func (c *Checker) requireAll(checks ...func() error) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// tool returns a check that the named executable is on PATH.
func (c *Checker) tool(name string) func() error {
	return func() error {
		if _, err := exec.LookPath(name); err != nil {
			return &task.MissingDependencyError{Tool: name}
		}
		return nil
	}
}

// pipModule checks pip is importable through the interpreter. The build
// scripts invoke "python3 -m pip", so a standalone pip binary is neither
// necessary nor sufficient.
func (c *Checker) pipModule() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "python3", "-m", "pip", "--version").Run(); err != nil {
		return &task.MissingDependencyError{Tool: "python3 -m pip"}
	}
	return nil
}

// requireInit checks the init script exists.
func (c *Checker) requireInit() error {
	path := c.cfg.InitScriptPath()
	if _, err := os.Stat(path); err != nil {
		return &task.MissingDependencyError{Tool: "init script " + path}
	}
	return nil
}

// requireDir checks a directory exists.
func (c *Checker) requireDir(name, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return &task.MissingDependencyError{Tool: fmt.Sprintf("%s at %s", name, path)}
	}
	return nil
}

// requireSuite checks a qa test suite script exists in the repo.
func (c *Checker) requireSuite(rel string) error {
	path := filepath.Join(c.cfg.RepoPath, rel)
	if _, err := os.Stat(path); err != nil {
		return &task.MissingDependencyError{Tool: "test suite " + path}
	}
	return nil
}

// CheckAll runs every diagnostic check for the doctor command.
//
// Returns:
//   - bool: True if all required checks passed.
//   - []CheckResult: All individual results, required checks first.
func (c *Checker) CheckAll() (bool, []CheckResult) {
	var results []CheckResult

	results = append(results, c.pathCheck("Repository", c.cfg.RepoPath, true))
	results = append(results, c.pathCheck("Workspace", c.cfg.Workspace, true))
	results = append(results, c.fileCheck("Init script", c.cfg.InitScriptPath(), true))
	results = append(results, c.pathCheck("DTK", c.cfg.DTKBase, true))

	results = append(results, c.toolCheck("CMake", "cmake", true))
	results = append(results, c.toolCheck("Ninja", "ninja", false))
	results = append(results, c.toolCheck("Python3", "python3", true))
	results = append(results, c.pipCheck(true))

	healthy := true
	for _, r := range results {
		if r.Required && !r.OK {
			healthy = false
		}
	}
	return healthy, results
}

// pathCheck verifies a directory exists.
func (c *Checker) pathCheck(name, path string, required bool) CheckResult {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return CheckResult{Name: name, Required: required, Message: "not found: " + path}
	}
	return CheckResult{Name: name, Required: required, OK: true, Message: path}
}

// fileCheck verifies a file exists.
func (c *Checker) fileCheck(name, path string, required bool) CheckResult {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return CheckResult{Name: name, Required: required, Message: "not found: " + path}
	}
	return CheckResult{Name: name, Required: required, OK: true, Message: path}
}

// pipCheck verifies the pip module through the interpreter, matching how the
// build scripts invoke it, and grabs its version line.
func (c *Checker) pipCheck(required bool) CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "python3", "-m", "pip", "--version").Output()
	if err != nil {
		return CheckResult{Name: "pip", Required: required, Message: "python3 -m pip not available"}
	}
	msg := "python3 -m pip"
	if line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n"); line != "" {
		msg = line
	}
	return CheckResult{Name: "pip", Required: required, OK: true, Message: msg}
}

// toolCheck verifies an executable is on PATH and grabs its version line.
func (c *Checker) toolCheck(name, bin string, required bool) CheckResult {
	path, err := exec.LookPath(bin)
	if err != nil {
		return CheckResult{Name: name, Required: required, Message: "command not found: " + bin}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	msg := path
	if err == nil {
		if line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n"); line != "" {
			msg = line
		}
	}
	return CheckResult{Name: name, Required: required, OK: true, Message: msg}
}
