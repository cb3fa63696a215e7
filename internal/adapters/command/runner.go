// Package command provides the command execution adapter.
package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/airig-sh/airig/internal/ports"
)

// errLockContention marks a run that failed on the apt/dpkg lock and should
// be retried.
var errLockContention = errors.New("package manager lock contention")

// lockMarkers identify transient apt/dpkg lock failures in tool output.
var lockMarkers = []string{
	"could not get lock",
	"unable to acquire the dpkg frontend lock",
	"is another process using it",
}

// RealRunner executes external tools. Transient apt/dpkg lock contention is
// retried with exponential backoff; everything else is returned as-is.
type RealRunner struct {
	maxRetries uint64
}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{maxRetries: 4}
}

// WithMaxRetries returns a runner retrying lock contention up to n times.
func (r *RealRunner) WithMaxRetries(n uint64) *RealRunner {
	return &RealRunner{maxRetries: n}
}

// Run executes a command and returns the result.
func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	var result ports.CommandResult

	operation := func() error {
		res, err := runOnce(ctx, command, args...)
		if err != nil {
			// Tool missing or unstartable: retrying will not help.
			return backoff.Permanent(err)
		}
		result = res
		if !res.Success() && isLockContention(res) {
			return errLockContention
		}
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if errors.Is(err, errLockContention) {
			// Retries exhausted: surface the last failing result.
			return result, nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return result, perm.Err
		}
		return result, err
	}

	return result, nil
}

// runOnce executes the command a single time.
func runOnce(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := ports.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// isLockContention reports whether the failed result looks like apt/dpkg
// lock contention.
func isLockContention(res ports.CommandResult) bool {
	out := strings.ToLower(res.Output())
	for _, marker := range lockMarkers {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}

// Ensure RealRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*RealRunner)(nil)
