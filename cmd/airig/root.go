package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/airig-sh/airig/internal/adapters/logging"
	"github.com/airig-sh/airig/internal/app"
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
)

// Exit codes. Step failures are ordinary results, not crashes;
// configuration and precondition problems abort before execution.
const (
	exitOK          = 0
	exitStepFailed  = 1
	exitConfigError = 2
)

// errStepsFailed marks a run that completed with failed steps.
var errStepsFailed = errors.New("one or more steps failed")

var (
	// Global flags
	manifestPath string
	logPath      string
	backupDir    string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "airig",
	Short: "A declarative provisioner for local AI hosts",
	Long: `Airig converges an Ubuntu host onto a declared state for running
local AI workloads: packages, kernel tuning, container runtime, GPU
driver, firewall and maintenance jobs.

Every run evaluates each step's current state first and applies only
what differs, so re-running is always safe.`,
	SilenceErrors: true, // We format errors ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaults := app.DefaultSettings()

	rootCmd.PersistentFlags().StringVarP(&manifestPath, "config", "c", defaults.ManifestPath, "path to the manifest")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", defaults.LogPath, "append-only run log (JSONL)")
	rootCmd.PersistentFlags().StringVar(&backupDir, "backup-dir", defaults.BackupDir, "snapshot area for rollback")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func settings() app.Settings {
	return app.Settings{
		ManifestPath: manifestPath,
		LogPath:      logPath,
		BackupDir:    backupDir,
	}
}

// newApp builds the application. Human-facing output goes to out;
// structured log lines go to stderr.
var newApp = func(out io.Writer) *app.App {
	level := ports.LevelWarn
	if verbose {
		level = ports.LevelDebug
	}
	logger := logging.NewConsoleLogger(
		logging.WithOutput(os.Stderr),
		logging.WithLevel(level),
	)
	return app.New(out, settings(), logger)
}

// formatError returns a user-friendly error message. Typed errors carry a
// suggestion; verbose adds the underlying cause.
func formatError(err error) string {
	var userErr *manifest.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}

	var cfgErr *step.ConfigError
	if errors.As(err, &cfgErr) {
		if verbose {
			return cfgErr.Format()
		}
		msg := cfgErr.Error()
		if cfgErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", cfgErr.Suggestion)
		}
		return msg
	}

	var preErr *app.PreconditionError
	if errors.As(err, &preErr) {
		msg := preErr.Message
		if preErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", preErr.Suggestion)
		}
		return msg
	}

	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	if errors.Is(err, errStepsFailed) {
		return // already reported in the run output
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", formatError(err))
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var userErr *manifest.UserError
	var cfgErr *step.ConfigError
	var preErr *app.PreconditionError
	switch {
	case errors.As(err, &userErr), errors.As(err, &cfgErr), errors.As(err, &preErr):
		return exitConfigError
	}
	return exitStepFailed
}
