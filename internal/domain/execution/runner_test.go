package execution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airig-sh/airig/internal/adapters/filesystem"
	"github.com/airig-sh/airig/internal/adapters/logging"
	"github.com/airig-sh/airig/internal/domain/backup"
	"github.com/airig-sh/airig/internal/domain/report"
	"github.com/airig-sh/airig/internal/domain/step"
)

// stubStep is a configurable step for execution tests.
type stubStep struct {
	id         string
	deps       []string
	status     step.Status
	checkErr   error
	applyErr   error
	applyFn    func(ctx step.RunContext) error
	paths      []string
	reversible bool
	applied    int
}

func (s *stubStep) ID() step.StepID        { return step.MustNewStepID(s.id) }
func (s *stubStep) Description() string    { return s.id }
func (s *stubStep) MutatesPaths() []string { return s.paths }
func (s *stubStep) Reversible() bool       { return s.reversible }

func (s *stubStep) DependsOn() []step.StepID {
	out := make([]step.StepID, 0, len(s.deps))
	for _, d := range s.deps {
		out = append(out, step.MustNewStepID(d))
	}
	return out
}

func (s *stubStep) Check(ctx step.RunContext) (step.Status, error) {
	if s.checkErr != nil {
		return step.StatusUnknown, s.checkErr
	}
	return s.status, nil
}

func (s *stubStep) Plan(ctx step.RunContext) (step.Diff, error) {
	return step.NewDiff(step.DiffTypeModify, "stub", s.id, ""), nil
}

func (s *stubStep) Apply(ctx step.RunContext) error {
	s.applied++
	if s.applyFn != nil {
		return s.applyFn(ctx)
	}
	return s.applyErr
}

func newTestRunner(t *testing.T) (*Runner, *report.MemoryReporter, *backup.Manager) {
	t.Helper()
	reporter := report.NewMemoryReporter()
	backups := backup.NewManager(t.TempDir(), filesystem.NewRealFileSystem())
	return NewRunner(backups, reporter, logging.NewNopLogger()), reporter, backups
}

func planOf(steps ...*stubStep) *Plan {
	p := NewPlan()
	for _, s := range steps {
		p.Add(NewPlanEntry(s, s.status, step.Diff{}))
	}
	return p
}

func TestRunnerSkipsSatisfiedSteps(t *testing.T) {
	r, _, _ := newTestRunner(t)
	a := &stubStep{id: "apt:update", status: step.StatusSatisfied}
	b := &stubStep{id: "apt:package:curl", status: step.StatusSatisfied}

	result, err := r.Execute(context.Background(), planOf(a, b), NewOptions())
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	for _, rec := range result.Records {
		assert.Equal(t, report.OutcomeSkipped, rec.Outcome)
		assert.Equal(t, report.ReasonSatisfied, rec.Reason)
	}
	assert.Equal(t, 0, a.applied)
	assert.Equal(t, 2, result.Summary.Skipped)
	assert.False(t, result.Failed())
}

func TestRunnerAppliesUnsatisfiedStep(t *testing.T) {
	r, reporter, _ := newTestRunner(t)

	target := filepath.Join(t.TempDir(), "daemon.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	s := &stubStep{
		id:         "docker:daemon-config",
		status:     step.StatusNeedsApply,
		paths:      []string{target},
		reversible: true,
	}

	result, err := r.Execute(context.Background(), planOf(s), NewOptions())
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, report.OutcomeSucceeded, rec.Outcome)
	assert.Len(t, rec.BackupIDs, 1)
	assert.True(t, rec.Reversible)
	assert.Equal(t, 1, s.applied)
	assert.Equal(t, 1, result.Summary.Succeeded)

	// The record is durable before Execute returns.
	assert.Len(t, reporter.All(), 1)
}

func TestRunnerDryRunTouchesNothing(t *testing.T) {
	r, _, backups := newTestRunner(t)

	s := &stubStep{
		id:     "sysctl:limits",
		status: step.StatusNeedsApply,
		paths:  []string{"/etc/sysctl.d/99-airig.conf"},
	}

	opts := NewOptions()
	opts.DryRun = true
	opts.RunID = "dry"
	result, err := r.Execute(context.Background(), planOf(s), opts)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, report.OutcomeWouldRun, result.Records[0].Outcome)
	assert.Empty(t, result.Records[0].BackupIDs)
	assert.Equal(t, 0, s.applied)
	assert.Equal(t, 1, result.Summary.WouldRun)

	_, err = backups.Snapshots("dry")
	assert.ErrorIs(t, err, backup.ErrRunNotFound)
}

func TestRunnerStopsOnFirstFailure(t *testing.T) {
	r, reporter, _ := newTestRunner(t)

	a := &stubStep{id: "apt:update", status: step.StatusNeedsApply}
	b := &stubStep{id: "apt:package:docker-ce", status: step.StatusNeedsApply, applyErr: errors.New("exit status 100")}
	c := &stubStep{id: "service:enable:docker", status: step.StatusNeedsApply}

	result, err := r.Execute(context.Background(), planOf(a, b, c), NewOptions())
	require.NoError(t, err)

	// The step after the failure is never attempted and leaves no record.
	require.Len(t, result.Records, 2)
	assert.Equal(t, report.OutcomeSucceeded, result.Records[0].Outcome)
	assert.Equal(t, report.OutcomeFailed, result.Records[1].Outcome)
	assert.Equal(t, string(KindToolFailed), result.Records[1].ErrorKind)
	assert.Equal(t, 0, c.applied)
	assert.True(t, result.Halted)
	assert.True(t, result.Failed())
	assert.Equal(t, 1, result.Summary.Succeeded)
	assert.Equal(t, 1, result.Summary.Failed)

	// the tool output behind the failure lands in the log as free-form lines
	require.NotEmpty(t, reporter.OutputLines())
	assert.Contains(t, reporter.OutputLines()[0], "exit status 100")
}

func TestRunnerContinuesPastFailure(t *testing.T) {
	r, _, _ := newTestRunner(t)

	a := &stubStep{id: "apt:package:docker-ce", status: step.StatusNeedsApply, applyErr: errors.New("exit status 100")}
	b := &stubStep{id: "service:enable:docker", deps: []string{"apt:package:docker-ce"}, status: step.StatusNeedsApply}
	c := &stubStep{id: "sysctl:limits", status: step.StatusNeedsApply}

	opts := NewOptions()
	opts.StopOnFailure = false
	result, err := r.Execute(context.Background(), planOf(a, b, c), opts)
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	assert.Equal(t, report.OutcomeFailed, result.Records[0].Outcome)

	// A dependent of the failed step is skipped, not attempted.
	assert.Equal(t, report.OutcomeSkipped, result.Records[1].Outcome)
	assert.Equal(t, report.ReasonDepFailed, result.Records[1].Reason)
	assert.Equal(t, 0, b.applied)

	// An independent step still runs.
	assert.Equal(t, report.OutcomeSucceeded, result.Records[2].Outcome)
	assert.Equal(t, 1, c.applied)
	assert.False(t, result.Halted)
}

func TestRunnerResumeFromIsInclusive(t *testing.T) {
	r, _, _ := newTestRunner(t)

	a := &stubStep{id: "apt:update", status: step.StatusNeedsApply}
	b := &stubStep{id: "apt:package:curl", status: step.StatusNeedsApply}
	c := &stubStep{id: "sysctl:limits", status: step.StatusNeedsApply}

	opts := NewOptions()
	opts.ResumeFrom = "apt:package:curl"
	result, err := r.Execute(context.Background(), planOf(a, b, c), opts)
	require.NoError(t, err)

	require.Len(t, result.Records, 3)
	assert.Equal(t, report.OutcomeSkipped, result.Records[0].Outcome)
	assert.Equal(t, report.ReasonResume, result.Records[0].Reason)
	assert.Equal(t, 0, a.applied)

	// The named step itself runs.
	assert.Equal(t, report.OutcomeSucceeded, result.Records[1].Outcome)
	assert.Equal(t, 1, b.applied)
	assert.Equal(t, 1, c.applied)
}

func TestRunnerResumeFromUnknownStep(t *testing.T) {
	r, _, _ := newTestRunner(t)

	a := &stubStep{id: "apt:update", status: step.StatusNeedsApply}
	b := &stubStep{id: "apt:package:curl", status: step.StatusNeedsApply}

	opts := NewOptions()
	opts.ResumeFrom = "apt:package:curll"
	result, err := r.Execute(context.Background(), planOf(a, b), opts)

	// A typo'd resume point must fail loudly, not skip the whole plan.
	require.Error(t, err)
	assert.ErrorIs(t, err, step.ErrUnknownStep)
	var cfgErr *step.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, step.ErrCodeStepUnknown, cfgErr.Code)

	assert.Nil(t, result)
	assert.Equal(t, 0, a.applied)
	assert.Equal(t, 0, b.applied)
}

func TestRunnerBackupFailurePreventsApply(t *testing.T) {
	r, _, _ := newTestRunner(t)

	// Directories cannot be snapshotted, so the backup fails.
	s := &stubStep{
		id:     "docker:daemon-config",
		status: step.StatusNeedsApply,
		paths:  []string{t.TempDir()},
	}

	result, err := r.Execute(context.Background(), planOf(s), NewOptions())
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, report.OutcomeFailed, rec.Outcome)
	assert.Equal(t, string(KindBackup), rec.ErrorKind)
	assert.Equal(t, 0, s.applied)
	assert.True(t, result.Halted)
}

func TestRunnerStepTimeout(t *testing.T) {
	r, _, _ := newTestRunner(t)

	s := &stubStep{
		id:     "apt:update",
		status: step.StatusNeedsApply,
		applyFn: func(ctx step.RunContext) error {
			<-ctx.Context().Done()
			return ctx.Context().Err()
		},
	}

	opts := NewOptions()
	opts.StepTimeout = 20 * time.Millisecond
	result, err := r.Execute(context.Background(), planOf(s), opts)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, report.OutcomeFailed, result.Records[0].Outcome)
	assert.Equal(t, string(KindTimeout), result.Records[0].ErrorKind)
}

func TestRunnerCancellationStopsAtStepBoundary(t *testing.T) {
	r, _, _ := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	a := &stubStep{
		id:     "apt:update",
		status: step.StatusNeedsApply,
		applyFn: func(step.RunContext) error {
			cancel()
			return nil
		},
	}
	b := &stubStep{id: "apt:package:curl", status: step.StatusNeedsApply}

	result, err := r.Execute(ctx, planOf(a, b), NewOptions())
	require.ErrorIs(t, err, context.Canceled)

	// The in-flight step completed; the next was never started.
	require.Len(t, result.Records, 1)
	assert.Equal(t, report.OutcomeSucceeded, result.Records[0].Outcome)
	assert.Equal(t, 0, b.applied)
}

func TestRunnerCheckFailureIsAStepFailure(t *testing.T) {
	r, _, _ := newTestRunner(t)

	s := &stubStep{id: "gpu:driver", checkErr: errors.New("nvidia-smi: not found")}

	result, err := r.Execute(context.Background(), planOf(s), NewOptions())
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, report.OutcomeFailed, result.Records[0].Outcome)
	assert.Equal(t, string(KindCheck), result.Records[0].ErrorKind)
	assert.Equal(t, 0, s.applied)
}

func TestRunnerGeneratedRunID(t *testing.T) {
	r, _, _ := newTestRunner(t)

	result, err := r.Execute(context.Background(), NewPlan(), NewOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, result.RunID, result.Summary.RunID)
}

var _ step.Step = (*stubStep)(nil)
