package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/te-tools/tectl/internal/command"
	"github.com/te-tools/tectl/internal/config"
	"github.com/te-tools/tectl/internal/envcheck"
	"github.com/te-tools/tectl/internal/task"
)

// newSupervisor wires a fresh supervisor for this invocation. Nothing is
// cached between invocations; all shared state lives in the store.
func newSupervisor() (*task.Supervisor, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return newSupervisorWith(cfg, command.NewBuilder(cfg))
}

// newSupervisorWith builds a supervisor around an already-configured command
// builder (the rebuild command injects extra touch files).
func newSupervisorWith(cfg *config.Config, builder *command.Builder) (*task.Supervisor, *config.Config, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, nil, err
	}
	store, err := task.NewStore(stateDir)
	if err != nil {
		return nil, nil, err
	}
	return task.NewSupervisor(store, builder, envcheck.NewChecker(cfg)), cfg, nil
}

// kindAliases maps the short names used on the command line to task kinds.
// The canonical kind names are accepted too.
var kindAliases = map[string]task.Kind{
	"python":   task.KindBuildPythonIncremental,
	"cpp":      task.KindBuildCppTests,
	"rebuild":  task.KindRebuild,
	"all":      task.KindBuildAll,
	"l0-cpp":   task.KindTestL0Cpp,
	"l0-torch": task.KindTestL0PyTorch,
	"l1-dist":  task.KindTestL1Distributed,
}

// kindFromArg resolves a user-supplied task name, accepting both aliases and
// canonical kind names.
//
// Parameters:
//   - arg: The name given on the command line.
//
// Returns:
//   - task.Kind: The resolved kind.
//   - error: An error listing valid names if nothing matched.
func kindFromArg(arg string) (task.Kind, error) {
	if kind, ok := kindAliases[arg]; ok {
		return kind, nil
	}
	if kind, err := task.ParseKind(arg); err == nil {
		return kind, nil
	}

	names := make([]string, 0, len(kindAliases)+len(task.Kinds()))
	for alias := range kindAliases {
		names = append(names, alias)
	}
	for _, k := range task.Kinds() {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return "", fmt.Errorf("unknown task %q (valid: %s)", arg, strings.Join(names, ", "))
}

// jsonOutput reports whether the global --json flag is set.
func jsonOutput() bool {
	v, _ := rootCmd.PersistentFlags().GetBool("json")
	return v
}
