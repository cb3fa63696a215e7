package docker

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
)

// DaemonStep renders /etc/docker/daemon.json.
type DaemonStep struct {
	path      string
	options   map[string]interface{}
	dependsOn []step.StepID
	fs        ports.FileSystem
}

// NewDaemonStep creates the docker:daemon-config step.
func NewDaemonStep(path string, options map[string]interface{}, dependsOn []step.StepID, fs ports.FileSystem) *DaemonStep {
	return &DaemonStep{path: path, options: options, dependsOn: dependsOn, fs: fs}
}

// ID returns the step identifier.
func (s *DaemonStep) ID() step.StepID {
	return step.MustNewStepID("docker:daemon-config")
}

// Description returns a human-readable summary.
func (s *DaemonStep) Description() string {
	return "render dockerd configuration " + s.path
}

// DependsOn returns the step dependencies.
func (s *DaemonStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check compares the rendered daemon.json against disk.
func (s *DaemonStep) Check(_ step.RunContext) (step.Status, error) {
	want, err := s.render()
	if err != nil {
		return step.StatusUnknown, err
	}
	current, err := s.fs.ReadFile(s.path)
	if err != nil {
		return step.StatusNeedsApply, nil
	}
	if bytes.Equal(current, want) {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *DaemonStep) Plan(_ step.RunContext) (step.Diff, error) {
	diffType := step.DiffTypeModify
	if !s.fs.Exists(s.path) {
		diffType = step.DiffTypeAdd
	}
	return step.NewDiff(diffType, "docker", s.path,
		fmt.Sprintf("%d dockerd options", len(s.options))), nil
}

// Apply writes daemon.json. dockerd picks it up on the next service restart,
// which the service provider handles.
func (s *DaemonStep) Apply(_ step.RunContext) error {
	data, err := s.render()
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// MutatesPaths returns the daemon.json path.
func (s *DaemonStep) MutatesPaths() []string {
	return []string{s.path}
}

// Reversible reports true.
func (s *DaemonStep) Reversible() bool {
	return true
}

func (s *DaemonStep) render() ([]byte, error) {
	data, err := json.MarshalIndent(s.options, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render daemon.json: %w", err)
	}
	return append(data, '\n'), nil
}

// ContainerdStep renders /etc/containerd/config.toml.
type ContainerdStep struct {
	path      string
	options   map[string]interface{}
	dependsOn []step.StepID
	fs        ports.FileSystem
}

// NewContainerdStep creates the docker:containerd-config step.
func NewContainerdStep(path string, options map[string]interface{}, dependsOn []step.StepID, fs ports.FileSystem) *ContainerdStep {
	return &ContainerdStep{path: path, options: options, dependsOn: dependsOn, fs: fs}
}

// ID returns the step identifier.
func (s *ContainerdStep) ID() step.StepID {
	return step.MustNewStepID("docker:containerd-config")
}

// Description returns a human-readable summary.
func (s *ContainerdStep) Description() string {
	return "render containerd configuration " + s.path
}

// DependsOn returns the step dependencies.
func (s *ContainerdStep) DependsOn() []step.StepID {
	return s.dependsOn
}

// Check compares the rendered config.toml against disk.
func (s *ContainerdStep) Check(_ step.RunContext) (step.Status, error) {
	want, err := s.render()
	if err != nil {
		return step.StatusUnknown, err
	}
	current, err := s.fs.ReadFile(s.path)
	if err != nil {
		return step.StatusNeedsApply, nil
	}
	if bytes.Equal(current, want) {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *ContainerdStep) Plan(_ step.RunContext) (step.Diff, error) {
	diffType := step.DiffTypeModify
	if !s.fs.Exists(s.path) {
		diffType = step.DiffTypeAdd
	}
	return step.NewDiff(diffType, "containerd", s.path, "rendered from manifest"), nil
}

// Apply writes config.toml.
func (s *ContainerdStep) Apply(_ step.RunContext) error {
	data, err := s.render()
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// MutatesPaths returns the config.toml path.
func (s *ContainerdStep) MutatesPaths() []string {
	return []string{s.path}
}

// Reversible reports true.
func (s *ContainerdStep) Reversible() bool {
	return true
}

func (s *ContainerdStep) render() ([]byte, error) {
	data, err := toml.Marshal(s.options)
	if err != nil {
		return nil, fmt.Errorf("render config.toml: %w", err)
	}
	return data, nil
}

var (
	_ step.Step = (*DaemonStep)(nil)
	_ step.Step = (*ContainerdStep)(nil)
)
