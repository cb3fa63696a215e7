// Package app wires providers, planner, runner and rollback coordinator
// into the airig application.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/airig-sh/airig/internal/adapters/command"
	"github.com/airig-sh/airig/internal/adapters/filesystem"
	"github.com/airig-sh/airig/internal/domain/backup"
	"github.com/airig-sh/airig/internal/domain/execution"
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/report"
	"github.com/airig-sh/airig/internal/domain/rollback"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
	"github.com/airig-sh/airig/internal/provider/apt"
	"github.com/airig-sh/airig/internal/provider/cron"
	"github.com/airig-sh/airig/internal/provider/docker"
	"github.com/airig-sh/airig/internal/provider/firewall"
	"github.com/airig-sh/airig/internal/provider/gpu"
	"github.com/airig-sh/airig/internal/provider/pip"
	"github.com/airig-sh/airig/internal/provider/service"
	"github.com/airig-sh/airig/internal/provider/sysctl"
)

// Settings locates the manifest and the state the engine keeps on disk.
type Settings struct {
	ManifestPath string
	LogPath      string
	BackupDir    string
}

// DefaultSettings returns the standard on-disk locations.
func DefaultSettings() Settings {
	return Settings{
		ManifestPath: "airig.yaml",
		LogPath:      "/var/lib/airig/runs.jsonl",
		BackupDir:    "/var/lib/airig/backups",
	}
}

// PreconditionError reports an unmet runtime precondition detected before
// any step executes.
type PreconditionError struct {
	Message    string
	Suggestion string
}

// Error returns the error message.
func (e *PreconditionError) Error() string {
	return e.Message
}

// NewRootRequiredError reports a real apply attempted without root.
func NewRootRequiredError() *PreconditionError {
	return &PreconditionError{
		Message:    "root privileges are required to apply changes",
		Suggestion: "Re-run with sudo, or use --dry-run to preview without applying.",
	}
}

// App is the application orchestrator behind every CLI command.
type App struct {
	settings Settings
	runner   ports.CommandRunner
	fs       ports.FileSystem
	logger   ports.Logger
	out      io.Writer
	euid     func() int
}

// New creates an App backed by the real command runner and filesystem.
func New(out io.Writer, settings Settings, logger ports.Logger) *App {
	return NewWith(out, settings, logger, command.NewRealRunner(), filesystem.NewRealFileSystem())
}

// NewWith creates an App with explicit adapters. Tests use this to inject
// mocks.
func NewWith(out io.Writer, settings Settings, logger ports.Logger, runner ports.CommandRunner, fs ports.FileSystem) *App {
	return &App{
		settings: settings,
		runner:   runner,
		fs:       fs,
		logger:   logger,
		out:      out,
		euid:     os.Geteuid,
	}
}

// providers returns the compile pipeline in registration order. The order
// is deliberate: it is the tie-break for steps with no dependency between
// them.
func (a *App) providers() []provider.Provider {
	return []provider.Provider{
		apt.NewProvider(a.runner, a.fs),
		pip.NewProvider(a.runner),
		sysctl.NewProvider(a.runner, a.fs),
		docker.NewProvider(a.fs),
		service.NewProvider(a.runner),
		firewall.NewProvider(a.runner, a.fs),
		cron.NewProvider(a.fs),
		gpu.NewProvider(a.runner),
	}
}

// Registry loads the manifest, compiles every provider section and
// validates the resulting step graph.
func (a *App) Registry() (*step.Registry, error) {
	m, err := manifest.NewLoader().Load(a.settings.ManifestPath)
	if err != nil {
		return nil, err
	}

	registry := step.NewRegistry()
	for _, p := range a.providers() {
		steps, err := p.Compile(m)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name(), err)
		}
		for _, s := range steps {
			if err := registry.Register(s); err != nil {
				return nil, err
			}
		}
	}

	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// Plan evaluates every step's satisfaction and returns the execution plan.
// When only is non-empty the plan is limited to the named steps plus their
// transitive dependencies.
func (a *App) Plan(ctx context.Context, only []string) (*execution.Plan, error) {
	registry, err := a.Registry()
	if err != nil {
		return nil, err
	}

	if len(only) > 0 {
		ids, err := parseStepIDs(only)
		if err != nil {
			return nil, err
		}
		registry, err = registry.Subset(ids)
		if err != nil {
			return nil, err
		}
	}

	return execution.NewPlanner().Plan(ctx, registry)
}

// Apply plans and executes. A real apply requires root; dry runs do not,
// and record to memory instead of the durable log.
func (a *App) Apply(ctx context.Context, opts execution.Options, only []string) (*execution.Result, error) {
	if !opts.DryRun && a.euid() != 0 {
		return nil, NewRootRequiredError()
	}

	plan, err := a.Plan(ctx, only)
	if err != nil {
		return nil, err
	}

	reporter, err := a.reporter(opts.DryRun)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reporter.Close() }()

	if opts.RunID == "" {
		opts.RunID = execution.NewRunID()
	}

	backups := backup.NewManager(a.settings.BackupDir, a.fs)
	runner := execution.NewRunner(backups, reporter, a.logger)
	return runner.Execute(ctx, plan, opts)
}

// Rollback restores the snapshots of a previous run in reverse order.
func (a *App) Rollback(ctx context.Context, runID string) (*rollback.Result, error) {
	if a.euid() != 0 {
		return nil, NewRootRequiredError()
	}

	reporter, err := report.NewFileReporter(a.settings.LogPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reporter.Close() }()

	backups := backup.NewManager(a.settings.BackupDir, a.fs)
	return rollback.NewCoordinator(backups, reporter, a.logger).Rollback(ctx, runID)
}

// Runs returns a summary per recorded run, oldest first.
func (a *App) Runs() ([]report.Summary, error) {
	reporter, err := report.NewFileReporter(a.settings.LogPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reporter.Close() }()

	runIDs, err := reporter.Runs()
	if err != nil {
		return nil, err
	}

	summaries := make([]report.Summary, 0, len(runIDs))
	for _, runID := range runIDs {
		records, err := reporter.Records(runID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, report.Summarize(runID, records))
	}
	return summaries, nil
}

func (a *App) reporter(dryRun bool) (report.Reporter, error) {
	if dryRun {
		return report.NewMemoryReporter(), nil
	}
	return report.NewFileReporter(a.settings.LogPath)
}

func parseStepIDs(values []string) ([]step.StepID, error) {
	ids := make([]step.StepID, 0, len(values))
	for _, v := range values {
		id, err := step.NewStepID(v)
		if err != nil {
			return nil, fmt.Errorf("invalid step id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
