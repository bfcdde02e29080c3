package command

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/te-tools/tectl/internal/config"
	"github.com/te-tools/tectl/internal/task"
)

func testConfig() *config.Config {
	return &config.Config{
		RepoPath:   "/workspace/TransformerEngine",
		Workspace:  "/workspace",
		DTKBase:    "/opt/dtk-25.04.2",
		DTK26Path:  "/opt/dtk-26.04",
		InitScript: "/workspace/TransformerEngine/te_init.sh",
	}
}

func scriptFor(t *testing.T, b *Builder, kind task.Kind) (string, string) {
	t.Helper()
	argv, workDir, err := b.Command(kind)
	if err != nil {
		t.Fatalf("Command(%s) error: %v", kind, err)
	}
	if len(argv) != 3 || argv[0] != "/bin/bash" || argv[1] != "-c" {
		t.Fatalf("Command(%s) argv = %v, want /bin/bash -c <script>", kind, argv)
	}
	return argv[2], workDir
}

func TestBuildScriptsShareEnvPreamble(t *testing.T) {
	b := NewBuilder(testConfig())
	for _, kind := range []task.Kind{
		task.KindBuildPythonIncremental,
		task.KindBuildPythonClean,
		task.KindBuildCppTests,
		task.KindRebuild,
		task.KindBuildAll,
	} {
		script, workDir := scriptFor(t, b, kind)
		if !strings.Contains(script, "NVTE_USE_ROCM=1") {
			t.Errorf("%s: script missing ROCm environment", kind)
		}
		if !strings.Contains(script, "CXX=hipcc") {
			t.Errorf("%s: script missing compiler selection", kind)
		}
		if !strings.Contains(script, "te_init.sh") {
			t.Errorf("%s: script does not source the init script", kind)
		}
		if workDir != "/workspace/TransformerEngine" {
			t.Errorf("%s: workDir = %s, want repo path", kind, workDir)
		}
	}
}

func TestPythonBuildVariants(t *testing.T) {
	b := NewBuilder(testConfig())

	incremental, _ := scriptFor(t, b, task.KindBuildPythonIncremental)
	if strings.Contains(incremental, "rm -rf build") {
		t.Errorf("incremental build wipes the build tree")
	}
	if !strings.Contains(incremental, "pip install -e .") {
		t.Errorf("incremental build missing pip install")
	}
	if !strings.Contains(incremental, "Python Build Completed") {
		t.Errorf("incremental build missing completion marker")
	}

	clean, _ := scriptFor(t, b, task.KindBuildPythonClean)
	if !strings.Contains(clean, "rm -rf build transformer_engine.egg-info/") {
		t.Errorf("clean build does not remove artifacts")
	}
	if !strings.Contains(clean, "Python Clean Build Completed") {
		t.Errorf("clean build missing completion marker")
	}
}

func TestCppBuildScript(t *testing.T) {
	b := NewBuilder(testConfig())
	script, _ := scriptFor(t, b, task.KindBuildCppTests)

	if !strings.Contains(script, "tests/cpp") {
		t.Errorf("script does not enter tests/cpp")
	}
	if !strings.Contains(script, "cmake -GNinja -Bbuild") {
		t.Errorf("script missing Ninja configure step")
	}
	if !strings.Contains(script, "cmake --build build") {
		t.Errorf("script missing build step")
	}
}

func TestRebuildTouchesExtraFiles(t *testing.T) {
	b := NewBuilder(testConfig())
	b.TouchFiles = []string{"/workspace/TransformerEngine/transformer_engine/common/gemm file.cu"}

	script, _ := scriptFor(t, b, task.KindRebuild)

	if !strings.Contains(script, "swizzle.cu") {
		t.Errorf("rebuild does not touch the default kernel")
	}
	// Paths with spaces must survive as a single shell word.
	if !strings.Contains(script, "'/workspace/TransformerEngine/transformer_engine/common/gemm file.cu'") {
		t.Errorf("extra touch file not quoted:\n%s", script)
	}
	if !strings.Contains(script, "Python Build Failed") {
		t.Errorf("rebuild missing failure marker for the Python phase")
	}
	if !strings.Contains(script, "Rebuild Completed") {
		t.Errorf("rebuild missing completion marker")
	}
}

func TestFullBuildCleansEverything(t *testing.T) {
	b := NewBuilder(testConfig())
	script, _ := scriptFor(t, b, task.KindBuildAll)

	for _, fragment := range []string{
		"rm -rf build transformer_engine.egg-info/ tests/cpp/build dist",
		`find . -name "*.so" -type f -delete`,
		"Full Build Completed",
	} {
		if !strings.Contains(script, fragment) {
			t.Errorf("full build script missing %q", fragment)
		}
	}
}

func TestTestScriptsRunFromWorkspaceParent(t *testing.T) {
	cfg := testConfig()
	b := NewBuilder(cfg)

	tests := []struct {
		kind  task.Kind
		suite string
		conda bool
	}{
		{task.KindTestL0Cpp, "qa/L0_cppunittest/test.sh", true},
		{task.KindTestL0PyTorch, "qa/L0_pytorch_unittest/test.sh", true},
		{task.KindTestL1Distributed, "qa/L1_pytorch_distributed_unittest/test.sh", false},
	}
	for _, tt := range tests {
		script, workDir := scriptFor(t, b, tt.kind)
		if want := filepath.Dir(cfg.RepoPath); workDir != want {
			t.Errorf("%s: workDir = %s, want %s", tt.kind, workDir, want)
		}
		if !strings.Contains(script, tt.suite) {
			t.Errorf("%s: script does not run %s", tt.kind, tt.suite)
		}
		if got := strings.Contains(script, "conda activate te27"); got != tt.conda {
			t.Errorf("%s: conda activation = %v, want %v", tt.kind, got, tt.conda)
		}
	}
}

func TestCommandUnsupportedKind(t *testing.T) {
	b := NewBuilder(testConfig())
	_, _, err := b.Command(task.Kind("deploy"))
	var unsupported *task.UnsupportedKindError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Command(deploy) error = %v, want UnsupportedKindError", err)
	}
}
