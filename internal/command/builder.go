// Package command translates task kinds into the concrete shell commands
// that build and test the Transformer Engine tree.
//
// Building a command has no side effects: the Builder only formats scripts
// from configuration. Spawning and supervision live in internal/task.
package command

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/te-tools/tectl/internal/config"
	"github.com/te-tools/tectl/internal/task"
)

// commonEnv is the environment preamble shared by every build script.
const commonEnv = `export NVTE_BUILD_SUPPRESS_UNUSED_WARNING=1
export NVTE_BUILD_SUPPRESS_RETURN_TYPE_WARNING=1
export NVTE_BUILD_SUPPRESS_SIGN_COMPARE_WARNING=1
export NVTE_FRAMEWORK=pytorch
export NVTE_USE_ROCM=1
export NVTE_USE_HIPBLASLT=1
export NVTE_USE_ROCBLAS=1
export NVTE_UB_WITH_MPI=0
export CXX=hipcc
export VERBOSE=1`

// condaActivation drops the test scripts into the te27 conda environment
// when one is installed.
const condaActivation = `if [ -f '/opt/miniconda3/etc/profile.d/conda.sh' ]; then
    source /opt/miniconda3/etc/profile.d/conda.sh
    if conda env list | grep -q '^te27 '; then conda activate te27; fi
fi`

// Builder formats task commands from configuration. It implements
// task.CommandSource.
type Builder struct {
	cfg *config.Config

	// TouchFiles are extra source files the rebuild kind touches to force
	// recompilation, in addition to the default swizzle kernel.
	TouchFiles []string
}

// NewBuilder creates a command builder for the given configuration.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Command returns the argument vector and working directory for a kind.
//
// Parameters:
//   - kind: The task kind.
//
// Returns:
//   - []string: The argv to execute ("/bin/bash -c <script>").
//   - string: The working directory.
//   - error: An UnsupportedKindError for unknown kinds.
func (b *Builder) Command(kind task.Kind) ([]string, string, error) {
	var script string
	workDir := b.cfg.RepoPath

	switch kind {
	case task.KindBuildPythonIncremental:
		script = b.pythonBuildScript(false)
	case task.KindBuildPythonClean:
		script = b.pythonBuildScript(true)
	case task.KindBuildCppTests:
		script = b.cppBuildScript()
	case task.KindRebuild:
		script = b.rebuildScript()
	case task.KindBuildAll:
		script = b.fullBuildScript()
	case task.KindTestL0Cpp:
		script = b.testScript("qa/L0_cppunittest/test.sh", true)
		workDir = filepath.Dir(b.cfg.RepoPath)
	case task.KindTestL0PyTorch:
		script = b.testScript("qa/L0_pytorch_unittest/test.sh", true)
		workDir = filepath.Dir(b.cfg.RepoPath)
	case task.KindTestL1Distributed:
		script = b.testScript("qa/L1_pytorch_distributed_unittest/test.sh", false)
		workDir = filepath.Dir(b.cfg.RepoPath)
	default:
		return nil, "", &task.UnsupportedKindError{Kind: kind}
	}

	return []string{"/bin/bash", "-c", script}, workDir, nil
}

// header emits the shared script prologue: timing, init script sourcing,
// DTK toolchain selection, and the common environment.
func (b *Builder) header() string {
	return fmt.Sprintf(`start_time=$(date +%%s)

INIT_SCRIPT=%s
if [ -f "$INIT_SCRIPT" ]; then
    source "$INIT_SCRIPT"
else
    echo "Error: init script not found at: $INIT_SCRIPT"
    exit 1
fi

DTK_BASE=%s
CMAKE_SUFFIX="lib64/cmake/amd_comgr"
if [ -d %s ]; then
    DTK_BASE=%s
    CMAKE_SUFFIX="dcc/comgr/lib/cmake/amd_comgr"
fi
export CMAKE_PREFIX_PATH="${DTK_BASE}/${CMAKE_SUFFIX}"
export MPI_HOME=/opt/mpi

%s`,
		shellquote.Join(b.cfg.InitScriptPath()),
		shellquote.Join(b.cfg.DTKBase),
		shellquote.Join(b.cfg.DTK26Path),
		shellquote.Join(b.cfg.DTK26Path),
		commonEnv)
}

// pythonBuildScript builds the Python package, optionally from a clean tree.
func (b *Builder) pythonBuildScript(clean bool) string {
	repo := shellquote.Join(b.cfg.RepoPath)
	cleanCmd := fmt.Sprintf("cd %s || exit 2", repo)
	label := "Python Build Completed"
	if clean {
		cleanCmd = fmt.Sprintf("cd %s && rm -rf build transformer_engine.egg-info/", repo)
		label = "Python Clean Build Completed"
	}

	return fmt.Sprintf(`%s

%s

export PYTHONPATH=%s/3rdparty/hipify_torch:$PYTHONPATH

python3 -m pip install -e . -vv --no-build-isolation 2>&1

end_time=$(date +%%s)
echo ""
echo "%s (Duration: $((end_time - start_time))s)"`,
		b.header(), cleanCmd, repo, label)
}

// cppBuildScript configures and builds the C++ unit tests with Ninja.
func (b *Builder) cppBuildScript() string {
	repo := shellquote.Join(b.cfg.RepoPath)
	return fmt.Sprintf(`%s

cd %s/tests/cpp || exit 2

export PYTHONPATH=%s/3rdparty/hipify_torch:$PYTHONPATH

cmake -GNinja -Bbuild . 2>&1
cmake --build build 2>&1

end_time=$(date +%%s)
echo ""
echo "C++ Build Completed (Duration: $((end_time - start_time))s)"`,
		b.header(), repo, repo)
}

// rebuildScript touches hot files then runs the incremental Python and C++
// builds back to back.
func (b *Builder) rebuildScript() string {
	repo := shellquote.Join(b.cfg.RepoPath)
	touch := []string{b.cfg.RepoPath + "/transformer_engine/common/swizzle/swizzle.cu"}
	touch = append(touch, b.TouchFiles...)

	var touches strings.Builder
	for _, f := range touch {
		fmt.Fprintf(&touches, "if [ -f %s ]; then touch -c %s; echo \"Touched: %s\"; fi\n",
			shellquote.Join(f), shellquote.Join(f), f)
	}

	return fmt.Sprintf(`%s

%s
echo "=== [Phase 1] Python Incremental Build ==="
cd %s || exit 1
python3 -m pip install --no-build-isolation -v -e . 2>&1
py_status=$?

if [ $py_status -eq 0 ]; then
    echo "=== [Phase 2] C++ Tests Incremental Build ==="
    cd %s/tests/cpp || exit 1
    cmake -B build -G Ninja . 2>&1
    cmake --build build 2>&1
else
    echo "Python Build Failed"
    exit $py_status
fi

end_time=$(date +%%s)
echo ""
echo "Rebuild Completed (Duration: $((end_time - start_time))s)"`,
		b.header(), touches.String(), repo, repo)
}

// fullBuildScript wipes every build artifact and rebuilds Python then C++.
func (b *Builder) fullBuildScript() string {
	repo := shellquote.Join(b.cfg.RepoPath)
	return fmt.Sprintf(`%s

echo "Full Clean & Build Started"
cd %s || exit 2
rm -rf build transformer_engine.egg-info/ tests/cpp/build dist
find . -name "*.so" -type f -delete
find . -name "__pycache__" -type d -exec rm -rf {} +

export PYTHONPATH=%s/3rdparty/hipify_torch:$PYTHONPATH
python3 -m pip install -e . -vv --no-build-isolation 2>&1
py_status=$?

if [ $py_status -eq 0 ]; then
    cd %s/tests/cpp || exit 2
    cmake -GNinja -Bbuild . 2>&1
    cmake --build build 2>&1
else
    echo "Python Build Failed"
    exit $py_status
fi

end_time=$(date +%%s)
echo ""
echo "Full Build Completed (Duration: $((end_time - start_time))s)"`,
		b.header(), repo, repo, repo)
}

// testScript runs one of the qa/ suite scripts, optionally inside the conda
// environment. The suites print their own summaries, so no completion marker
// is appended beyond the suite's exit code.
func (b *Builder) testScript(suite string, conda bool) string {
	full := shellquote.Join(filepath.Join(b.cfg.RepoPath, suite))
	if conda {
		return fmt.Sprintf("%s\nbash %s", condaActivation, full)
	}
	return fmt.Sprintf("bash %s", full)
}
