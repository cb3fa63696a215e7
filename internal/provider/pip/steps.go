package pip

import (
	"fmt"
	"strings"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/validation"
)

// PackageStep installs one pip package.
type PackageStep struct {
	spec      string
	binary    string
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewPackageStep creates a pip:package:<name> step. The spec may carry a
// version constraint ("vllm==0.6.3").
func NewPackageStep(spec, binary string, dependsOn []step.StepID, runner ports.CommandRunner) *PackageStep {
	return &PackageStep{spec: spec, binary: binary, dependsOn: dependsOn, runner: runner}
}

// ID returns the step identifier.
func (s *PackageStep) ID() step.StepID {
	return step.MustNewStepID("pip:package:" + baseName(s.spec))
}

// Description returns a human-readable summary.
func (s *PackageStep) Description() string {
	return "install python package " + s.spec
}

// DependsOn returns the step dependencies.
func (s *PackageStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check asks pip whether the package is installed. Version constraints are
// not re-verified once the package is present; pip handles upgrades on
// install, and re-pinning belongs to the manifest author.
func (s *PackageStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), s.binary, "show", "--quiet", baseName(s.spec))
	if err != nil {
		return step.StatusUnknown, err
	}
	if result.Success() {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *PackageStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeAdd, "python-package", s.spec, ""), nil
}

// Apply installs the package.
func (s *PackageStep) Apply(ctx step.RunContext) error {
	if err := validation.ValidatePipPackage(s.spec); err != nil {
		return fmt.Errorf("invalid pip package: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), s.binary, "install", s.spec)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("%s install %s failed: %s", s.binary, s.spec, result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing; site-packages is not snapshot material.
func (s *PackageStep) MutatesPaths() []string {
	return nil
}

// Reversible reports false.
func (s *PackageStep) Reversible() bool {
	return false
}

// baseName strips any version constraint from a package spec.
func baseName(spec string) string {
	if i := strings.IndexAny(spec, "=<>!~"); i >= 0 {
		return spec[:i]
	}
	return spec
}

var _ step.Step = (*PackageStep)(nil)
