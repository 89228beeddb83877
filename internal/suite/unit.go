package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Unit runs the project's unit tests as a child process
type Unit struct {
	Command string // split on whitespace, e.g. "go test ./..."
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Name implements Suite
func (u *Unit) Name() string {
	return NameUnit
}

// Run streams the command output and passes on exit status 0
func (u *Unit) Run(ctx context.Context) *Result {
	result := &Result{Name: NameUnit}

	fields := strings.Fields(u.Command)
	if len(fields) == 0 {
		result.Status = StatusFailed
		result.Reason = "no unit test command configured"
		return result
	}

	cmd := execCommandContext(ctx, fields[0], fields[1:]...)
	cmd.Dir = u.Dir
	cmd.Stdout = writerOr(u.Stdout, os.Stdout)
	cmd.Stderr = writerOr(u.Stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		result.Status = StatusFailed
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Reason = fmt.Sprintf("%s exited with status %d", fields[0], exitErr.ExitCode())
		} else {
			result.Reason = fmt.Sprintf("failed to run %s: %v", fields[0], err)
		}
		return result
	}

	result.Status = StatusPassed
	return result
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
