package execution

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/airig-sh/airig/internal/domain/backup"
	"github.com/airig-sh/airig/internal/domain/report"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
)

// Options controls one execution of a plan. The zero value is not useful;
// construct with NewOptions.
type Options struct {
	// RunID identifies the run; backup and log entries are keyed by it.
	// Empty means a fresh timestamp-based ID is generated.
	RunID string
	// DryRun records what would run without snapshotting or applying.
	DryRun bool
	// StopOnFailure halts the plan at the first failed step. Default true.
	StopOnFailure bool
	// ResumeFrom skips steps before the named one; the named step runs.
	ResumeFrom string
	// StepTimeout bounds each step's Apply. Zero means unbounded.
	StepTimeout time.Duration
}

// NewOptions returns the default options: stop on failure, no timeout.
func NewOptions() Options {
	return Options{StopOnFailure: true}
}

// NewRunID derives a run ID from the wall clock. The backup directory for
// the run carries the same name.
func NewRunID() string {
	return time.Now().UTC().Format("20060102-150405")
}

// Result aggregates one execution of a plan.
type Result struct {
	RunID   string
	Records []report.Record
	Summary report.Summary
	Halted  bool // true when StopOnFailure cut the plan short
}

// Failed reports whether any step failed.
func (r *Result) Failed() bool {
	return r.Summary.Failed > 0
}

// Runner executes a Plan one step at a time in dependency order. Step-level
// errors never propagate out of Execute; they become records. Only reporter
// I/O failures (which break the durability guarantee) and context
// cancellation abort the run.
type Runner struct {
	backups  *backup.Manager
	reporter report.Reporter
	logger   ports.Logger
}

// NewRunner creates a Runner.
func NewRunner(backups *backup.Manager, reporter report.Reporter, logger ports.Logger) *Runner {
	return &Runner{backups: backups, reporter: reporter, logger: logger}
}

// Execute runs all steps in the plan in order.
func (r *Runner) Execute(ctx context.Context, plan *Plan, opts Options) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}

	result := &Result{RunID: runID}
	failed := make(map[string]bool)
	reached := opts.ResumeFrom == ""

	// A resume point that names no step would silently skip the whole plan.
	if !reached && !planContains(plan, opts.ResumeFrom) {
		return nil, step.NewUnknownStepError(opts.ResumeFrom)
	}

	for _, entry := range plan.Entries() {
		// Cancellation is honored only at step boundaries; a running
		// external tool is never interrupted mid-step.
		if err := ctx.Err(); err != nil {
			result.Summary = report.Summarize(runID, result.Records)
			return result, err
		}

		s := entry.Step()
		id := s.ID().String()

		if !reached {
			if id == opts.ResumeFrom {
				reached = true
			} else {
				if err := r.record(result, skipRecord(runID, s, report.ReasonResume)); err != nil {
					return result, err
				}
				continue
			}
		}

		if depFailed(s, failed) {
			failed[id] = true
			if err := r.record(result, skipRecord(runID, s, report.ReasonDepFailed)); err != nil {
				return result, err
			}
			continue
		}

		rec, stepFailed, err := r.executeStep(ctx, runID, s, opts)
		if err != nil {
			return result, err
		}
		if err := r.record(result, rec); err != nil {
			return result, err
		}

		if stepFailed {
			failed[id] = true
			if opts.StopOnFailure {
				result.Halted = true
				break
			}
		}
	}

	result.Summary = report.Summarize(runID, result.Records)
	return result, nil
}

// executeStep drives one step through its lifecycle and produces its record.
// The returned error is reserved for machine construction failures; step
// failures come back in the record.
func (r *Runner) executeStep(ctx context.Context, runID string, s step.Step, opts Options) (report.Record, bool, error) {
	lc, err := newLifecycle(s.ID())
	if err != nil {
		return report.Record{}, false, err
	}

	rec := baseRecord(runID, s)
	runCtx := step.NewRunContext(ctx).WithDryRun(opts.DryRun)

	lc.send(eventEvaluate)
	status, checkErr := s.Check(runCtx)
	if checkErr != nil {
		lc.send(eventFail)
		return r.failRecord(ctx, rec, Classify(s.ID(), &checkError{checkErr})), true, nil
	}

	if status.Satisfied() {
		lc.send(eventSatisfied)
		rec.Outcome = report.OutcomeSkipped
		rec.Reason = report.ReasonSatisfied
		r.logger.Debug(ctx, "step already satisfied", ports.F("step", rec.StepID))
		return rec, false, nil
	}

	lc.send(eventNeedsRun)

	if opts.DryRun {
		// Dry run touches neither the backup manager nor Apply.
		rec.Outcome = report.OutcomeWouldRun
		r.logger.Info(ctx, "would run", ports.F("step", rec.StepID))
		return rec, false, nil
	}

	if paths := s.MutatesPaths(); len(paths) > 0 {
		snaps, err := r.backups.Snapshot(runID, rec.StepID, paths)
		if err != nil {
			// No backup, no mutation: rollback would be impossible.
			lc.send(eventFail)
			return r.failRecord(ctx, rec, Classify(s.ID(), err)), true, nil
		}
		for _, snap := range snaps {
			rec.BackupIDs = append(rec.BackupIDs, snap.ID)
		}
	}

	lc.send(eventStart)
	applyCtx := ctx
	var cancel context.CancelFunc
	if opts.StepTimeout > 0 {
		applyCtx, cancel = context.WithTimeout(ctx, opts.StepTimeout)
		defer cancel()
	}

	start := time.Now()
	applyErr := s.Apply(runCtx.WithContext(applyCtx))
	rec.DurationMs = time.Since(start).Milliseconds()

	if applyErr != nil {
		if applyCtx.Err() != nil && errors.Is(applyCtx.Err(), context.DeadlineExceeded) {
			applyErr = context.DeadlineExceeded
		}
		lc.send(eventFail)
		return r.failRecord(ctx, rec, Classify(s.ID(), applyErr)), true, nil
	}

	lc.send(eventSucceed)
	if lc.state() == stateSucceeded {
		rec.Outcome = report.OutcomeSucceeded
	}
	r.logger.Info(ctx, "step applied",
		ports.F("step", rec.StepID), ports.F("duration_ms", rec.DurationMs))
	return rec, false, nil
}

// record appends rec durably and tracks it in the result.
func (r *Runner) record(result *Result, rec report.Record) error {
	if err := r.reporter.Record(rec); err != nil {
		return err
	}
	result.Records = append(result.Records, rec)
	return nil
}

// failRecord fills in failure fields from a classified error. The error
// text, which carries the external tool's output, is also appended to the
// log as free-form lines.
func (r *Runner) failRecord(ctx context.Context, rec report.Record, stepErr *StepError) report.Record {
	rec.Outcome = report.OutcomeFailed
	rec.Error = stepErr.Err.Error()
	rec.ErrorKind = string(stepErr.Kind)
	for _, line := range strings.Split(rec.Error, "\n") {
		if line == "" {
			continue
		}
		_ = r.reporter.Output(rec.RunID, rec.StepID, line)
	}
	r.logger.Error(ctx, "step failed",
		ports.F("step", rec.StepID),
		ports.F("kind", rec.ErrorKind),
		ports.F("error", rec.Error))
	return rec
}

// baseRecord seeds a record for one step attempt.
func baseRecord(runID string, s step.Step) report.Record {
	return report.Record{
		RunID:      runID,
		StepID:     s.ID().String(),
		Timestamp:  time.Now().UTC(),
		Reversible: s.Reversible(),
	}
}

// skipRecord builds a skipped record with the given reason.
func skipRecord(runID string, s step.Step, reason string) report.Record {
	rec := baseRecord(runID, s)
	rec.Outcome = report.OutcomeSkipped
	rec.Reason = reason
	return rec
}

// planContains reports whether the plan has a step with the given ID.
func planContains(plan *Plan, id string) bool {
	for _, entry := range plan.Entries() {
		if entry.Step().ID().String() == id {
			return true
		}
	}
	return false
}

// depFailed reports whether any dependency of s failed or was skipped as a
// consequence of a failure.
func depFailed(s step.Step, failed map[string]bool) bool {
	for _, dep := range s.DependsOn() {
		if failed[dep.String()] {
			return true
		}
	}
	return false
}

// checkError marks a failure of the satisfaction predicate itself.
type checkError struct {
	err error
}

func (e *checkError) Error() string {
	return "check failed: " + e.err.Error()
}

func (e *checkError) Unwrap() error {
	return e.err
}
