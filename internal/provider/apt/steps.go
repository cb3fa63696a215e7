package apt

import (
	"fmt"
	"strings"
	"time"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/validation"
)

// UpdateStepID is the well-known ID package steps depend on.
var UpdateStepID = step.MustNewStepID("apt:update")

// aptListsDir is the package index directory whose mtime tells us when
// apt-get update last ran.
const aptListsDir = "/var/lib/apt/lists"

// UpdateStep refreshes the apt package index.
type UpdateStep struct {
	maxAge time.Duration
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewUpdateStep creates the apt:update step.
func NewUpdateStep(maxAgeHours int, runner ports.CommandRunner, fs ports.FileSystem) *UpdateStep {
	return &UpdateStep{
		maxAge: time.Duration(maxAgeHours) * time.Hour,
		runner: runner,
		fs:     fs,
	}
}

// ID returns the step identifier.
func (s *UpdateStep) ID() step.StepID {
	return UpdateStepID
}

// Description returns a human-readable summary.
func (s *UpdateStep) Description() string {
	return "refresh apt package index"
}

// DependsOn returns the step dependencies.
func (s *UpdateStep) DependsOn() []step.StepID {
	return nil
}

// Check considers the index satisfied while it is younger than maxAge.
func (s *UpdateStep) Check(_ step.RunContext) (step.Status, error) {
	info, err := s.fs.GetFileInfo(aptListsDir)
	if err != nil {
		// No index yet; an update is due.
		return step.StatusNeedsApply, nil
	}
	if time.Since(info.ModTime) < s.maxAge {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *UpdateStep) Plan(_ step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeModify, "apt-index", "update", "refresh package lists"), nil
}

// Apply runs apt-get update.
func (s *UpdateStep) Apply(ctx step.RunContext) error {
	result, err := s.runner.Run(ctx.Context(), "apt-get", "update", "-q")
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get update failed: %s", result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing; the package index is not worth snapshotting.
func (s *UpdateStep) MutatesPaths() []string {
	return nil
}

// Reversible reports false: there is no meaningful way to un-refresh an index.
func (s *UpdateStep) Reversible() bool {
	return false
}

// PackageStep installs one apt package.
type PackageStep struct {
	pkg       Package
	id        step.StepID
	dependsOn []step.StepID
	runner    ports.CommandRunner
}

// NewPackageStep creates a step installing pkg. When withUpdate is set the
// step depends on apt:update.
func NewPackageStep(pkg Package, withUpdate bool, runner ports.CommandRunner) *PackageStep {
	s := &PackageStep{
		pkg:    pkg,
		id:     step.MustNewStepID("apt:package:" + pkg.Name),
		runner: runner,
	}
	if withUpdate {
		s.dependsOn = []step.StepID{UpdateStepID}
	}
	return s
}

// ID returns the step identifier.
func (s *PackageStep) ID() step.StepID {
	return s.id
}

// Description returns a human-readable summary.
func (s *PackageStep) Description() string {
	return "install apt package " + s.pkg.Name
}

// DependsOn returns the step dependencies.
func (s *PackageStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check determines if the package is already installed.
func (s *PackageStep) Check(ctx step.RunContext) (step.Status, error) {
	result, err := s.runner.Run(ctx.Context(), "dpkg-query", "-W", "-f=${Package}\t${Version}\t${db:Status-Status}\n", s.pkg.Name)
	if err != nil {
		return step.StatusUnknown, err
	}

	// dpkg-query exits 1 when the package is unknown
	if !result.Success() {
		return step.StatusNeedsApply, nil
	}
	if strings.Contains(result.Stdout, "installed") {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *PackageStep) Plan(_ step.RunContext) (step.Diff, error) {
	version := "latest"
	if s.pkg.Version != "" {
		version = s.pkg.Version
	}
	return step.NewDiff(step.DiffTypeAdd, "package", s.pkg.Name, version), nil
}

// Apply installs the package.
func (s *PackageStep) Apply(ctx step.RunContext) error {
	// Validate package name before execution to prevent command injection
	if err := validation.ValidatePackageName(s.pkg.Name); err != nil {
		return fmt.Errorf("invalid package name: %w", err)
	}

	result, err := s.runner.Run(ctx.Context(), "apt-get", "install", "-y", "--no-install-recommends", s.pkg.FullName())
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("apt-get install %s failed: %s", s.pkg.FullName(), result.Stderr)
	}
	return nil
}

// MutatesPaths returns nothing: dpkg scatters files across the tree, so a
// path snapshot could never restore the pre-install state.
func (s *PackageStep) MutatesPaths() []string {
	return nil
}

// Reversible reports false; package installs are not undone by rollback.
func (s *PackageStep) Reversible() bool {
	return false
}

var (
	_ step.Step = (*UpdateStep)(nil)
	_ step.Step = (*PackageStep)(nil)
)
