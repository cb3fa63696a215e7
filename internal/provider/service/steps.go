package service

import (
	"fmt"
	"strings"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/validation"
)

// EnableStep enables a systemd unit at boot.
type EnableStep struct {
	unit      string
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewEnableStep creates a service:enable:<unit> step.
func NewEnableStep(unit string, dependsOn []step.StepID, runner ports.CommandRunner) *EnableStep {
	return &EnableStep{unit: unit, dependsOn: dependsOn, runner: runner}
}

// ID returns the step identifier.
func (s *EnableStep) ID() step.StepID {
	return step.MustNewStepID("service:enable:" + s.unit)
}

// Description returns a human-readable summary.
func (s *EnableStep) Description() string {
	return "enable systemd unit " + s.unit
}

// DependsOn returns the step dependencies.
func (s *EnableStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check asks systemctl whether the unit is enabled.
func (s *EnableStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "systemctl", "is-enabled", s.unit)
	if err != nil {
		return step.StatusUnknown, err
	}
	if result.Success() && strings.TrimSpace(result.Stdout) == "enabled" {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *EnableStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeModify, "service", s.unit, "enable at boot"), nil
}

// Apply enables the unit.
func (s *EnableStep) Apply(ctx step.RunContext) error {
	if err := validation.ValidateUnitName(s.unit); err != nil {
		return fmt.Errorf("invalid unit: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "systemctl", "enable", s.unit)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("systemctl enable %s failed: %s", s.unit, result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing: enablement symlinks live under
// /etc/systemd/system and are cheap to undo with systemctl disable, not by
// file restore.
func (s *EnableStep) MutatesPaths() []string {
	return nil
}

// Reversible reports true; disable undoes enable.
func (s *EnableStep) Reversible() bool {
	return true
}

// StartStep starts a systemd unit now.
type StartStep struct {
	unit      string
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewStartStep creates a service:start:<unit> step.
func NewStartStep(unit string, dependsOn []step.StepID, runner ports.CommandRunner) *StartStep {
	return &StartStep{unit: unit, dependsOn: dependsOn, runner: runner}
}

// ID returns the step identifier.
func (s *StartStep) ID() step.StepID {
	return step.MustNewStepID("service:start:" + s.unit)
}

// Description returns a human-readable summary.
func (s *StartStep) Description() string {
	return "start systemd unit " + s.unit
}

// DependsOn returns the step dependencies.
func (s *StartStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check asks systemctl whether the unit is active.
func (s *StartStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "systemctl", "is-active", s.unit)
	if err != nil {
		return step.StatusUnknown, err
	}
	if result.Success() && strings.TrimSpace(result.Stdout) == "active" {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *StartStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeModify, "service", s.unit, "start now"), nil
}

// Apply starts the unit.
func (s *StartStep) Apply(ctx step.RunContext) error {
	if err := validation.ValidateUnitName(s.unit); err != nil {
		return fmt.Errorf("invalid unit: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "systemctl", "start", s.unit)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("systemctl start %s failed: %s", s.unit, result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing; starting a unit touches no config files.
func (s *StartStep) MutatesPaths() []string {
	return nil
}

// Reversible reports true; stop undoes start.
func (s *StartStep) Reversible() bool {
	return true
}

var (
	_ step.Step = (*EnableStep)(nil)
	_ step.Step = (*StartStep)(nil)
)
