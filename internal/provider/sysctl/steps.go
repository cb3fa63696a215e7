package sysctl

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/ini.v1"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/validation"
)

// SettingsStep renders the kernel parameters into a sysctl.d drop-in and
// reloads them.
type SettingsStep struct {
	cfg    *Config
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewSettingsStep creates the sysctl:settings step.
func NewSettingsStep(cfg *Config, runner ports.CommandRunner, fs ports.FileSystem) *SettingsStep {
	return &SettingsStep{cfg: cfg, runner: runner, fs: fs}
}

// ID returns the step identifier.
func (s *SettingsStep) ID() step.StepID {
	return step.MustNewStepID("sysctl:settings")
}

// Description returns a human-readable summary.
func (s *SettingsStep) Description() string {
	return fmt.Sprintf("render %d kernel parameters into %s", len(s.cfg.Settings), s.cfg.File)
}

// DependsOn returns the step dependencies.
func (s *SettingsStep) DependsOn() []step.StepID {
	return nil
}

// Check compares the rendered drop-in against what is on disk.
func (s *SettingsStep) Check(_ step.RunContext) (step.Status, error) {
	want, err := s.render()
	if err != nil {
		return step.StatusUnknown, err
	}

	current, err := s.fs.ReadFile(s.cfg.File)
	if err != nil {
		return step.StatusNeedsApply, nil
	}
	if bytes.Equal(current, want) {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *SettingsStep) Plan(_ step.RunContext) (step.Diff, error) {
	diffType := step.DiffTypeModify
	if !s.fs.Exists(s.cfg.File) {
		diffType = step.DiffTypeAdd
	}
	return step.NewDiff(diffType, "sysctl", s.cfg.File,
		fmt.Sprintf("%d settings", len(s.cfg.Settings))), nil
}

// Apply writes the drop-in and reloads all sysctl configuration.
func (s *SettingsStep) Apply(ctx step.RunContext) error {
	data, err := s.render()
	if err != nil {
		return err
	}

	if err := s.fs.WriteFile(s.cfg.File, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.cfg.File, err)
	}

	result, err := s.runner.Run(ctx.Context(), "sysctl", "--system")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("sysctl --system failed: %s", result.Stderr)
	}
	return nil
}

// MutatesPaths returns the drop-in path so it is snapshotted before Apply.
func (s *SettingsStep) MutatesPaths() []string {
	return []string{s.cfg.File}
}

// Reversible reports true: restoring the drop-in and reloading undoes the step.
func (s *SettingsStep) Reversible() bool {
	return true
}

// render produces the drop-in content, keys sorted for stable output.
func (s *SettingsStep) render() ([]byte, error) {
	keys := make([]string, 0, len(s.cfg.Settings))
	for key := range s.cfg.Settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	file := ini.Empty()
	section := file.Section("")
	for _, key := range keys {
		value := s.cfg.Settings[key]
		if err := validation.ValidateSysctlKey(key); err != nil {
			return nil, err
		}
		if err := validation.ValidateSysctlValue(value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
		if _, err := section.NewKey(key, value); err != nil {
			return nil, fmt.Errorf("render %s: %w", key, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# Managed by airig. Manual edits will be overwritten.\n")
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render sysctl drop-in: %w", err)
	}
	return buf.Bytes(), nil
}

var _ step.Step = (*SettingsStep)(nil)
