package rollback

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airig-sh/airig/internal/adapters/filesystem"
	"github.com/airig-sh/airig/internal/adapters/logging"
	"github.com/airig-sh/airig/internal/domain/backup"
	"github.com/airig-sh/airig/internal/domain/report"
)

type fixture struct {
	coord    *Coordinator
	backups  *backup.Manager
	reporter *report.MemoryReporter
	work     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reporter := report.NewMemoryReporter()
	backups := backup.NewManager(t.TempDir(), filesystem.NewRealFileSystem())
	return &fixture{
		coord:    NewCoordinator(backups, reporter, logging.NewNopLogger()),
		backups:  backups,
		reporter: reporter,
		work:     t.TempDir(),
	}
}

// applyStep simulates one succeeded step: snapshot the path, then mutate it.
func (f *fixture) applyStep(t *testing.T, runID, stepID, path, before, after string, reversible bool) {
	t.Helper()
	if before != "" {
		require.NoError(t, os.WriteFile(path, []byte(before), 0o644))
	}
	_, err := f.backups.Snapshot(runID, stepID, []string{path})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(after), 0o644))
	require.NoError(t, f.reporter.Record(report.Record{
		RunID:      runID,
		StepID:     stepID,
		Outcome:    report.OutcomeSucceeded,
		Reversible: reversible,
	}))
}

func TestRollbackRestoresInReverseOrder(t *testing.T) {
	f := newFixture(t)
	sysctl := filepath.Join(f.work, "99-airig.conf")
	daemon := filepath.Join(f.work, "daemon.json")

	f.applyStep(t, "run1", "sysctl:limits", sysctl, "old-sysctl", "new-sysctl", true)
	f.applyStep(t, "run1", "docker:daemon-config", daemon, "", "{}", true)

	result, err := f.coord.Rollback(context.Background(), "run1")
	require.NoError(t, err)

	assert.True(t, result.Complete())
	assert.Equal(t, []string{"docker:daemon-config", "sysctl:limits"}, result.RolledBack)

	restored, err := os.ReadFile(sysctl)
	require.NoError(t, err)
	assert.Equal(t, "old-sysctl", string(restored))

	// daemon.json did not exist before the run, so restore removes it.
	_, err = os.Stat(daemon)
	assert.True(t, os.IsNotExist(err))
}

func TestRollbackHaltsAtIrreversibleStep(t *testing.T) {
	f := newFixture(t)
	conf := filepath.Join(f.work, "jail.local")
	sources := filepath.Join(f.work, "docker.list")

	f.applyStep(t, "run1", "apt:package:docker-ce", sources, "old-list", "new-list", false)
	f.applyStep(t, "run1", "firewall:fail2ban", conf, "old-jail", "new-jail", true)

	result, err := f.coord.Rollback(context.Background(), "run1")
	require.NoError(t, err)

	assert.False(t, result.Complete())
	assert.Equal(t, "apt:package:docker-ce", result.HaltedAt)
	assert.Equal(t, []string{"firewall:fail2ban"}, result.RolledBack)

	// The reversible step above the halt point was restored.
	restored, err := os.ReadFile(conf)
	require.NoError(t, err)
	assert.Equal(t, "old-jail", string(restored))

	// The irreversible step's file was left alone.
	left, err := os.ReadFile(sources)
	require.NoError(t, err)
	assert.Equal(t, "new-list", string(left))
}

func TestRollbackSkipsStepsThatNeverMutated(t *testing.T) {
	f := newFixture(t)
	conf := filepath.Join(f.work, "daemon.json")

	require.NoError(t, f.reporter.Record(report.Record{
		RunID: "run1", StepID: "apt:update", Outcome: report.OutcomeSkipped, Reason: report.ReasonSatisfied,
	}))
	f.applyStep(t, "run1", "docker:daemon-config", conf, "old", "new", true)
	require.NoError(t, f.reporter.Record(report.Record{
		RunID: "run1", StepID: "service:enable:docker", Outcome: report.OutcomeFailed,
	}))

	result, err := f.coord.Rollback(context.Background(), "run1")
	require.NoError(t, err)

	assert.Equal(t, []string{"docker:daemon-config"}, result.RolledBack)
}

func TestRollbackSurfacesRestoreConflict(t *testing.T) {
	f := newFixture(t)
	conf := filepath.Join(f.work, "daemon.json")

	// Two steps in the same run snapshot the same path; restoring the
	// earlier snapshot while the later one is live is a conflict.
	f.applyStep(t, "run1", "docker:daemon-config", conf, "v0", "v1", true)

	snaps, err := f.backups.Snapshots("run1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	_, err = f.backups.Snapshot("run1", "docker:registry-mirror", []string{conf})
	require.NoError(t, err)

	err = f.backups.Restore(snaps[0])
	require.ErrorIs(t, err, backup.ErrRestoreConflict)
	assert.Contains(t, err.Error(), "docker:registry-mirror")
}

func TestRollbackUnknownRun(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.Rollback(context.Background(), "never-ran")
	require.Error(t, err)
}

func TestRollbackTwiceReportsNothingLeft(t *testing.T) {
	f := newFixture(t)
	conf := filepath.Join(f.work, "99-airig.conf")

	f.applyStep(t, "run1", "sysctl:settings", conf, "old", "new", true)

	first, err := f.coord.Rollback(context.Background(), "run1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sysctl:settings"}, first.RolledBack)

	// Everything is already restored; a second rollback must say so
	// instead of claiming the same steps again.
	require.NoError(t, os.WriteFile(conf, []byte("edited afterwards"), 0o644))
	_, err = f.coord.Rollback(context.Background(), "run1")
	require.ErrorIs(t, err, ErrNothingToRollback)

	data, err := os.ReadFile(conf)
	require.NoError(t, err)
	assert.Equal(t, "edited afterwards", string(data))
}

func TestRollbackNothingToDo(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reporter.Record(report.Record{
		RunID: "run1", StepID: "apt:update", Outcome: report.OutcomeSkipped, Reason: report.ReasonSatisfied,
	}))
	_, err := f.coord.Rollback(context.Background(), "run1")
	require.ErrorIs(t, err, ErrNothingToRollback)
}
