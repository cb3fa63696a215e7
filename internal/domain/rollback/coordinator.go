// Package rollback restores the file snapshots of a previous run, walking
// the run's steps in reverse execution order.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/airig-sh/airig/internal/domain/backup"
	"github.com/airig-sh/airig/internal/domain/report"
	"github.com/airig-sh/airig/internal/ports"
)

// ErrNothingToRollback indicates the run has no succeeded steps with
// snapshots.
var ErrNothingToRollback = errors.New("nothing to roll back")

// Result describes one rollback attempt.
type Result struct {
	RunID      string
	RolledBack []string // step IDs restored, in rollback order
	HaltedAt   string   // first irreversible step, empty if none
}

// Complete reports whether every succeeded step was rolled back.
func (r *Result) Complete() bool {
	return r.HaltedAt == ""
}

// Coordinator undoes the filesystem effects of a run. Steps are visited
// newest first; the walk stops at the first irreversible step because
// anything beneath it may depend on state that cannot be restored.
type Coordinator struct {
	backups  *backup.Manager
	reporter report.Reporter
	logger   ports.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(backups *backup.Manager, reporter report.Reporter, logger ports.Logger) *Coordinator {
	return &Coordinator{backups: backups, reporter: reporter, logger: logger}
}

// Rollback restores all snapshots taken during runID, in reverse execution
// order. A restore conflict (a newer run snapshotted the same path) aborts
// the rollback with the conflict error.
func (c *Coordinator) Rollback(ctx context.Context, runID string) (*Result, error) {
	records, err := c.reporter.Records(runID)
	if err != nil {
		return nil, err
	}

	snaps, err := c.backups.Snapshots(runID)
	if err != nil && !errors.Is(err, backup.ErrRunNotFound) {
		return nil, err
	}

	byStep := make(map[string][]backup.Snapshot)
	for _, snap := range snaps {
		byStep[snap.StepID] = append(byStep[snap.StepID], snap)
	}

	result := &Result{RunID: runID}
	restored := false

	for i := len(records) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rec := records[i]
		if rec.Outcome != report.OutcomeSucceeded {
			continue
		}

		if !rec.Reversible {
			result.HaltedAt = rec.StepID
			c.logger.Warn(ctx, "rollback halted at irreversible step",
				ports.F("run", runID), ports.F("step", rec.StepID))
			break
		}

		stepSnaps := byStep[rec.StepID]
		// Within a step, undo in reverse snapshot order.
		sort.Slice(stepSnaps, func(a, b int) bool {
			return stepSnaps[a].Seq > stepSnaps[b].Seq
		})

		stepRestored := false
		for _, snap := range stepSnaps {
			if snap.Restored {
				continue
			}
			if err := c.backups.Restore(snap); err != nil {
				return result, fmt.Errorf("restore %s for step %s: %w", snap.Path, rec.StepID, err)
			}
			stepRestored = true
			c.logger.Info(ctx, "restored",
				ports.F("run", runID),
				ports.F("step", rec.StepID),
				ports.F("path", snap.Path))
		}

		// A step whose snapshots were all restored by an earlier rollback
		// (or that never mutated anything) was not rolled back now.
		if stepRestored {
			restored = true
			result.RolledBack = append(result.RolledBack, rec.StepID)
		}
	}

	if !restored {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNothingToRollback)
	}
	return result, nil
}
