// Package ports defines interfaces for external collaborators: the external
// tools wrapped by steps, the filesystem, and structured logging.
package ports

import "context"

// CommandResult represents the result of executing an external tool.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the tool exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns combined stdout and stderr for log capture.
func (r CommandResult) Output() string {
	switch {
	case r.Stdout == "":
		return r.Stderr
	case r.Stderr == "":
		return r.Stdout
	default:
		return r.Stdout + r.Stderr
	}
}

// CommandRunner executes external tools (apt-get, systemctl, sysctl, ufw...).
// Implementations must return a CommandResult carrying the exit code for
// tools that ran and failed, and an error only when the tool could not be
// started at all.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}
