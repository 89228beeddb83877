package suite

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/apiharness/internal/scenario"
)

// mockUnitCommand runs this test binary as the child process; the helper
// exits with the code given in HELPER_EXIT_CODE
func mockUnitCommand(t *testing.T, exitCode int) {
	t.Helper()
	original := execCommandContext
	execCommandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_EXIT_CODE=" + strconv.Itoa(exitCode)}
		return cmd
	}
	t.Cleanup(func() { execCommandContext = original })
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	code, _ := strconv.Atoi(os.Getenv("HELPER_EXIT_CODE"))
	fmt.Fprintf(os.Stdout, "ok  \texample.com/users\t0.01s\n")
	os.Exit(code)
}

func TestUnit_PassesOnZeroExit(t *testing.T) {
	mockUnitCommand(t, 0)
	var out bytes.Buffer

	result := (&Unit{Command: "go test ./...", Stdout: &out, Stderr: &out}).Run(context.Background())

	assert.Equal(t, StatusPassed, result.Status)
	assert.Contains(t, out.String(), "example.com/users")
}

func TestUnit_FailsOnNonZeroExit(t *testing.T) {
	mockUnitCommand(t, 3)

	result := (&Unit{Command: "go test ./...", Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}).Run(context.Background())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "go exited with status 3", result.Reason)
}

func TestUnit_EmptyCommand(t *testing.T) {
	result := (&Unit{Command: "   "}).Run(context.Background())
	assert.True(t, result.Failed())
}

func TestUnit_MissingBinary(t *testing.T) {
	result := (&Unit{Command: "definitely-not-a-real-binary-4242"}).Run(context.Background())
	assert.True(t, result.Failed())
	assert.Contains(t, result.Reason, "failed to run")
}

// TestRunner_NoEndpointExitsZero: live suites are skipped and only the unit
// suite decides the exit code
func TestRunner_NoEndpointExitsZero(t *testing.T) {
	mockUnitCommand(t, 0)
	env := scenario.Env{Logger: zerolog.Nop()}

	summary := NewRunner(
		&Unit{Command: "go test ./...", Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}},
		&Integration{Logger: zerolog.Nop()},
		&Performance{Scenarios: scenario.Catalog(nil), Env: env},
	).WithLogger(zerolog.Nop()).Run(context.Background())

	require.Len(t, summary.Suites, 3)
	assert.Equal(t, StatusPassed, summary.Suites[0].Status)
	assert.Equal(t, StatusSkipped, summary.Suites[1].Status)
	assert.Equal(t, StatusSkipped, summary.Suites[2].Status)
	assert.Equal(t, scenario.SkipReason, summary.Suites[1].Reason)
	assert.True(t, summary.Passed())
	assert.Equal(t, 0, summary.ExitCode())
}

func TestRunner_UnitFailureExitsOne(t *testing.T) {
	mockUnitCommand(t, 1)

	summary := NewRunner(
		&Unit{Command: "go test ./...", Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}},
		&Integration{},
	).WithLogger(zerolog.Nop()).Run(context.Background())

	require.Len(t, summary.Suites, 2)
	assert.Equal(t, StatusSkipped, summary.Suites[1].Status)
	assert.False(t, summary.Passed())
	assert.Equal(t, 1, summary.ExitCode())
}

type stubSuite struct {
	name   string
	status string
}

func (s stubSuite) Name() string { return s.name }

func (s stubSuite) Run(ctx context.Context) *Result {
	return &Result{Status: s.status}
}

func TestRunner_RunsEverySuiteInOrder(t *testing.T) {
	summary := NewRunner(
		stubSuite{"a", StatusFailed},
		stubSuite{"b", StatusPassed},
		stubSuite{"c", StatusSkipped},
	).WithLogger(zerolog.Nop()).Run(context.Background())

	require.Len(t, summary.Suites, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, summary.Suites[i].Name)
	}
	assert.Equal(t, 1, summary.ExitCode())
}
