package gpu

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/validation"
)

// DriverStepID is the well-known ID GPU runtime steps depend on.
var DriverStepID = step.MustNewStepID("gpu:driver")

// DriverStep installs the NVIDIA driver package when nvidia-smi is absent
// or reports a version below the configured minimum.
type DriverStep struct {
	pkg       string
	minVer    string
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewDriverStep creates the gpu:driver step.
func NewDriverStep(pkg, minVersion string, dependsOn []step.StepID, runner ports.CommandRunner) *DriverStep {
	return &DriverStep{pkg: pkg, minVer: minVersion, dependsOn: dependsOn, runner: runner}
}

// ID returns the step identifier.
func (s *DriverStep) ID() step.StepID {
	return DriverStepID
}

// Description returns a human-readable summary.
func (s *DriverStep) Description() string {
	if s.minVer != "" {
		return fmt.Sprintf("NVIDIA driver %s (>= %s)", s.pkg, s.minVer)
	}
	return "NVIDIA driver " + s.pkg
}

// DependsOn returns the step dependencies.
func (s *DriverStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check queries nvidia-smi for the installed driver version. A missing
// nvidia-smi means no driver, not a broken check.
func (s *DriverStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader")
	if err != nil {
		// Tool absent: the driver is simply not installed yet.
		return step.StatusNeedsApply, nil
	}
	if !result.Success() {
		return step.StatusNeedsApply, nil
	}

	installed := strings.TrimSpace(strings.SplitN(result.Stdout, "\n", 2)[0])
	if installed == "" {
		return step.StatusNeedsApply, nil
	}
	if s.minVer == "" {
		return step.StatusSatisfied, nil
	}

	if driverAtLeast(installed, s.minVer) {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *DriverStep) Plan(_ step.RunContext) (step.Diff, error) {
	detail := "install " + s.pkg
	if s.minVer != "" {
		detail += " (minimum driver " + s.minVer + ")"
	}
	return step.NewDiff(step.DiffTypeAdd, "gpu-driver", s.pkg, detail), nil
}

// Apply installs the driver package. A reboot may still be needed before
// the new driver loads; that is out of scope here.
func (s *DriverStep) Apply(ctx step.RunContext) error {
	if err := validation.ValidatePackageName(s.pkg); err != nil {
		return fmt.Errorf("invalid driver package: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "apt-get", "install", "-y", s.pkg)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get install %s failed: %s", s.pkg, result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing.
func (s *DriverStep) MutatesPaths() []string {
	return nil
}

// Reversible reports false; a driver install is not undone by file restore.
func (s *DriverStep) Reversible() bool {
	return false
}

// PersistenceStep keeps the GPU initialized between CUDA clients, which cuts
// model cold-start latency.
type PersistenceStep struct {
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewPersistenceStep creates the gpu:persistence-mode step.
func NewPersistenceStep(dependsOn []step.StepID, runner ports.CommandRunner) *PersistenceStep {
	return &PersistenceStep{dependsOn: dependsOn, runner: runner}
}

// ID returns the step identifier.
func (s *PersistenceStep) ID() step.StepID {
	return step.MustNewStepID("gpu:persistence-mode")
}

// Description returns a human-readable summary.
func (s *PersistenceStep) Description() string {
	return "enable GPU persistence mode"
}

// DependsOn returns the step dependencies.
func (s *PersistenceStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check queries the current persistence mode.
func (s *PersistenceStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "nvidia-smi", "--query-gpu=persistence_mode", "--format=csv,noheader")
	if err != nil {
		return step.StatusUnknown, err
	}
	if !result.Success() {
		return step.StatusNeedsApply, nil
	}
	if strings.Contains(result.Stdout, "Enabled") {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *PersistenceStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeModify, "gpu", "persistence-mode", "enable"), nil
}

// Apply turns persistence mode on.
func (s *PersistenceStep) Apply(ctx step.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "nvidia-smi", "-pm", "1")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("nvidia-smi -pm 1 failed: %s", result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing.
func (s *PersistenceStep) MutatesPaths() []string {
	return nil
}

// Reversible reports true; persistence mode resets on reboot anyway.
func (s *PersistenceStep) Reversible() bool {
	return true
}

// driverAtLeast compares dotted NVIDIA driver versions ("550.54.14").
func driverAtLeast(installed, min string) bool {
	return semver.Compare(canonical(installed), canonical(min)) >= 0
}

// canonical turns an NVIDIA driver version into a comparable semver string.
func canonical(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}

var (
	_ step.Step = (*DriverStep)(nil)
	_ step.Step = (*PersistenceStep)(nil)
)
