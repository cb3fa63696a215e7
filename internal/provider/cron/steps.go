package cron

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/validation"
)

// JobStep renders one /etc/cron.d job file.
type JobStep struct {
	job Job
	dir string
	fs  ports.FileSystem
}

// NewJobStep creates a cron:job:<name> step.
func NewJobStep(job Job, dir string, fs ports.FileSystem) *JobStep {
	return &JobStep{job: job, dir: dir, fs: fs}
}

// ID returns the step identifier.
func (s *JobStep) ID() step.StepID {
	return step.MustNewStepID("cron:job:" + s.job.Name)
}

// Description returns a human-readable summary.
func (s *JobStep) Description() string {
	return fmt.Sprintf("schedule %s (%s)", s.job.Name, s.job.Schedule)
}

// DependsOn returns the step dependencies.
func (s *JobStep) DependsOn() []step.StepID {
	return nil
}

// Check compares the rendered job file against disk.
func (s *JobStep) Check(_ step.RunContext) (step.Status, error) {
	want, err := s.render()
	if err != nil {
		return step.StatusUnknown, err
	}
	current, err := s.fs.ReadFile(s.path())
	if err != nil {
		return step.StatusNeedsApply, nil
	}
	if bytes.Equal(current, want) {
		return step.StatusSatisfied, nil
	}
	return step.StatusNeedsApply, nil
}

// Plan returns the diff for this step.
func (s *JobStep) Plan(_ step.RunContext) (step.Diff, error) {
	diffType := step.DiffTypeModify
	if !s.fs.Exists(s.path()) {
		diffType = step.DiffTypeAdd
	}
	return step.NewDiff(diffType, "cron", s.path(), s.job.Schedule+" "+s.job.Command), nil
}

// Apply writes the job file. cron picks up cron.d changes by itself.
func (s *JobStep) Apply(_ step.RunContext) error {
	data, err := s.render()
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.path(), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path(), err)
	}
	return nil
}

// MutatesPaths returns the job file path.
func (s *JobStep) MutatesPaths() []string {
	return []string{s.path()}
}

// Reversible reports true.
func (s *JobStep) Reversible() bool {
	return true
}

func (s *JobStep) path() string {
	return filepath.Join(s.dir, s.job.Name)
}

func (s *JobStep) render() ([]byte, error) {
	if err := validation.ValidateCronSchedule(s.job.Schedule); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(s.job.User); err != nil {
		return nil, err
	}
	if err := validation.ValidateCommandLine(s.job.Command); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("# Managed by airig. Manual edits will be overwritten.\n")
	buf.WriteString("SHELL=/bin/sh\n")
	buf.WriteString("PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin\n")
	fmt.Fprintf(&buf, "%s %s %s\n", s.job.Schedule, s.job.User, s.job.Command)
	return buf.Bytes(), nil
}

var _ step.Step = (*JobStep)(nil)
