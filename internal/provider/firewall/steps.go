package firewall

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/validation"
)

// DefaultsStep sets the ufw default policies.
type DefaultsStep struct {
	cfg    *UFWConfig
	runner ports.CommandRunner
}

// NewDefaultsStep creates the firewall:ufw:defaults step.
func NewDefaultsStep(cfg *UFWConfig, runner ports.CommandRunner) *DefaultsStep {
	return &DefaultsStep{cfg: cfg, runner: runner}
}

// ID returns the step identifier.
func (s *DefaultsStep) ID() step.StepID {
	return step.MustNewStepID("firewall:ufw:defaults")
}

// Description returns a human-readable summary.
func (s *DefaultsStep) Description() string {
	return fmt.Sprintf("ufw default policies: incoming %s, outgoing %s",
		s.cfg.DefaultIncoming, s.cfg.DefaultOutgoing)
}

// DependsOn returns the step dependencies.
func (s *DefaultsStep) DependsOn() []step.StepID {
	return nil
}

// Check parses `ufw status verbose` for the configured default policies.
func (s *DefaultsStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "ufw", "status", "verbose")
	if err != nil {
		return step.StatusUnknown, err
	}
	if !result.Success() {
		return step.StatusNeedsApply, nil
	}

	out := result.Stdout
	if strings.Contains(out, s.cfg.DefaultIncoming+" (incoming)") &&
		strings.Contains(out, s.cfg.DefaultOutgoing+" (outgoing)") {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *DefaultsStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeModify, "ufw", "defaults",
		fmt.Sprintf("incoming=%s outgoing=%s", s.cfg.DefaultIncoming, s.cfg.DefaultOutgoing)), nil
}

// Apply sets both default policies.
func (s *DefaultsStep) Apply(ctx step.RunContext) error {
	for _, pair := range [][2]string{
		{s.cfg.DefaultIncoming, "incoming"},
		{s.cfg.DefaultOutgoing, "outgoing"},
	} {
		result, err := s.runner.Run(ctx.Context(), "ufw", "default", pair[0], pair[1])
		if err != nil {
			return err
		}
		if !result.Success() {
			return fmt.Errorf("ufw default %s %s failed: %s", pair[0], pair[1], result.Stderr)
		}
	}
	return nil
}

// MutatesPaths returns nothing; ufw owns its rule files.
func (s *DefaultsStep) MutatesPaths() []string {
	return nil
}

// Reversible reports false; the previous policy is not recorded anywhere a
// snapshot could restore.
func (s *DefaultsStep) Reversible() bool {
	return false
}

// AllowStep opens one port through ufw.
type AllowStep struct {
	spec      string
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewAllowStep creates a firewall:ufw:allow:<spec> step.
func NewAllowStep(spec string, dependsOn []step.StepID, runner ports.CommandRunner) *AllowStep {
	return &AllowStep{spec: spec, dependsOn: dependsOn, runner: runner}
}

// ID returns the step identifier.
func (s *AllowStep) ID() step.StepID {
	return step.MustNewStepID("firewall:ufw:allow:" + s.spec)
}

// Description returns a human-readable summary.
func (s *AllowStep) Description() string {
	return "allow " + s.spec + " through ufw"
}

// DependsOn returns the step dependencies.
func (s *AllowStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check greps `ufw status` for the rule.
func (s *AllowStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "ufw", "status")
	if err != nil {
		return step.StatusUnknown, err
	}
	if !result.Success() {
		return step.StatusNeedsApply, nil
	}
	for _, line := range strings.Split(result.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == s.spec && fields[1] == "ALLOW" {
			return step.StatusSatisfied, nil
		}
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *AllowStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeAdd, "ufw-rule", s.spec, "allow"), nil
}

// Apply adds the allow rule.
func (s *AllowStep) Apply(ctx step.RunContext) error {
	if err := validation.ValidatePortSpec(s.spec); err != nil {
		return fmt.Errorf("invalid port spec: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "ufw", "allow", s.spec)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("ufw allow %s failed: %s", s.spec, result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing.
func (s *AllowStep) MutatesPaths() []string {
	return nil
}

// Reversible reports false.
func (s *AllowStep) Reversible() bool {
	return false
}

// EnableStep turns the firewall on.
type EnableStep struct {
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewEnableStep creates the firewall:ufw:enable step. It depends on the
// allow rules so enabling never races an SSH lockout.
func NewEnableStep(dependsOn []step.StepID, runner ports.CommandRunner) *EnableStep {
	return &EnableStep{dependsOn: dependsOn, runner: runner}
}

// ID returns the step identifier.
func (s *EnableStep) ID() step.StepID {
	return step.MustNewStepID("firewall:ufw:enable")
}

// Description returns a human-readable summary.
func (s *EnableStep) Description() string {
	return "enable ufw"
}

// DependsOn returns the step dependencies.
func (s *EnableStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check parses `ufw status` for the active marker.
func (s *EnableStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "ufw", "status")
	if err != nil {
		return step.StatusUnknown, err
	}
	if result.Success() && strings.Contains(result.Stdout, "Status: active") {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *EnableStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeModify, "ufw", "enable", "activate firewall"), nil
}

// Apply enables ufw non-interactively.
func (s *EnableStep) Apply(ctx step.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "ufw", "--force", "enable")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("ufw enable failed: %s", result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing.
func (s *EnableStep) MutatesPaths() []string {
	return nil
}

// Reversible reports false.
func (s *EnableStep) Reversible() bool {
	return false
}

// Fail2banStep renders jail.local.
type Fail2banStep struct {
	cfg       *Fail2banConfig
	dependsOn []step.StepID
	fs        ports.FileSystem
}

// NewFail2banStep creates the firewall:fail2ban step.
func NewFail2banStep(cfg *Fail2banConfig, dependsOn []step.StepID, fs ports.FileSystem) *Fail2banStep {
	return &Fail2banStep{cfg: cfg, dependsOn: dependsOn, fs: fs}
}

// ID returns the step identifier.
func (s *Fail2banStep) ID() step.StepID {
	return step.MustNewStepID("firewall:fail2ban")
}

// Description returns a human-readable summary.
func (s *Fail2banStep) Description() string {
	return fmt.Sprintf("render %d fail2ban jails into %s", len(s.cfg.Jails), s.cfg.Path)
}

// DependsOn returns the step dependencies.
func (s *Fail2banStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check compares the rendered jail.local against disk.
func (s *Fail2banStep) Check(_ step.RunContext) (step.Status, error) {
	want, err := s.render()
	if err != nil {
		return step.StatusUnknown, err
	}
	current, err := s.fs.ReadFile(s.cfg.Path)
	if err != nil {
		return step.StatusNeedsApply, nil
	}
	if bytes.Equal(current, want) {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *Fail2banStep) Plan(_ step.RunContext) (step.Diff, error) {
	diffType := step.DiffTypeModify
	if !s.fs.Exists(s.cfg.Path) {
		diffType = step.DiffTypeAdd
	}
	return step.NewDiff(diffType, "fail2ban", s.cfg.Path,
		fmt.Sprintf("%d jails", len(s.cfg.Jails))), nil
}

// Apply writes jail.local. fail2ban reloads via the service provider.
func (s *Fail2banStep) Apply(_ step.RunContext) error {
	data, err := s.render()
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.cfg.Path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.cfg.Path, err)
	}
	return nil
}

// MutatesPaths returns the jail.local path.
func (s *Fail2banStep) MutatesPaths() []string {
	return []string{s.cfg.Path}
}

// Reversible reports true.
func (s *Fail2banStep) Reversible() bool {
	return true
}

// render produces jail.local, sections and keys sorted for stable output.
func (s *Fail2banStep) render() ([]byte, error) {
	file := ini.Empty()
	for _, name := range s.cfg.JailNames() {
		section, err := file.NewSection(name)
		if err != nil {
			return nil, fmt.Errorf("render jail %s: %w", name, err)
		}

		jail := s.cfg.Jails[name]
		keys := make([]string, 0, len(jail))
		for key := range jail {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if strings.ContainsAny(jail[key], "\n\r") {
				return nil, fmt.Errorf("jail %s: %s contains newlines", name, key)
			}
			if _, err := section.NewKey(key, jail[key]); err != nil {
				return nil, fmt.Errorf("render jail %s: %w", name, err)
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# Managed by airig. Manual edits will be overwritten.\n")
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render jail.local: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	_ step.Step = (*DefaultsStep)(nil)
	_ step.Step = (*AllowStep)(nil)
	_ step.Step = (*EnableStep)(nil)
	_ step.Step = (*Fail2banStep)(nil)
)
