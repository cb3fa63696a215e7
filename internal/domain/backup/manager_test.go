package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airig-sh/airig/internal/adapters/filesystem"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	return NewManager(filepath.Join(dir, "backups"), filesystem.NewRealFileSystem()), dir
}

func TestManager_Snapshot_ExistingFile(t *testing.T) {
	m, dir := newTestManager(t)

	target := filepath.Join(dir, "etc", "sysctl.d", "99-airig.conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("vm.swappiness = 60\n"), 0o644))

	snaps, err := m.Snapshot("20260830-120000", "sysctl:render", []string{target})
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	snap := snaps[0]
	assert.True(t, snap.Existed)
	assert.NotEmpty(t, snap.ID)
	assert.NotEmpty(t, snap.Hash)
	assert.Equal(t, "sysctl:render", snap.StepID)
	assert.Equal(t, 0, snap.Seq)

	// The backup mirrors the original's relative structure under the
	// snapshot's sequence number.
	stored := filepath.Join(m.BaseDir(), "20260830-120000", "files", "0",
		filepath.Clean(target)[1:])
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "vm.swappiness = 60\n", string(data))
}

func TestManager_Snapshot_MissingFileRecordsNonexistence(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "etc", "cron.d", "airig-maintenance")

	snaps, err := m.Snapshot("run1", "cron:job:autoclean", []string{target})
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.False(t, snaps[0].Existed)
}

func TestManager_Restore_RewritesContent(t *testing.T) {
	m, dir := newTestManager(t)

	target := filepath.Join(dir, "daemon.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	snaps, err := m.Snapshot("run1", "docker:daemon-config", []string{target})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("new"), 0o644))
	require.NoError(t, m.Restore(snaps[0]))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestManager_Restore_RemovesCreatedFile(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "created.conf")

	snaps, err := m.Snapshot("run1", "sysctl:render", []string{target})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("content"), 0o644))
	require.NoError(t, m.Restore(snaps[0]))

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestManager_Restore_ConflictWithLaterOwner(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "shared.conf")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))

	first, err := m.Snapshot("run1", "step-one", []string{target})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("v2"), 0o644))
	second, err := m.Snapshot("run1", "step-two", []string{target})
	require.NoError(t, err)

	// Restoring the earlier snapshot while the later owner is still applied
	// must fail.
	err = m.Restore(first[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRestoreConflict)
	assert.Contains(t, err.Error(), "step-two")

	// After the later snapshot is restored, the earlier one succeeds.
	require.NoError(t, m.Restore(second[0]))
	require.NoError(t, m.Restore(first[0]))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestManager_Snapshot_SamePathTwiceKeepsBothVersions(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "daemon.json")

	require.NoError(t, os.WriteFile(target, []byte("first"), 0o644))
	first, err := m.Snapshot("run1", "step-one", []string{target})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("second"), 0o644))
	second, err := m.Snapshot("run1", "step-two", []string{target})
	require.NoError(t, err)

	// The second snapshot must not clobber the first one's saved content.
	require.NoError(t, os.WriteFile(target, []byte("third"), 0o644))
	require.NoError(t, m.Restore(second[0]))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	require.NoError(t, m.Restore(first[0]))
	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestManager_Snapshots_OrderedBySeq(t *testing.T) {
	m, dir := newTestManager(t)

	a := filepath.Join(dir, "a.conf")
	b := filepath.Join(dir, "b.conf")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))

	_, err := m.Snapshot("run1", "step-a", []string{a})
	require.NoError(t, err)
	_, err = m.Snapshot("run1", "step-b", []string{b})
	require.NoError(t, err)

	snaps, err := m.Snapshots("run1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "step-a", snaps[0].StepID)
	assert.Equal(t, "step-b", snaps[1].StepID)
	assert.Less(t, snaps[0].Seq, snaps[1].Seq)
}

func TestManager_Snapshots_UnknownRun(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Snapshots("never-ran")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestManager_Snapshot_DirectoryFails(t *testing.T) {
	m, dir := newTestManager(t)

	_, err := m.Snapshot("run1", "bad-step", []string{dir})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackupIO)
}

func TestManager_Prune(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "x.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	_, err := m.Snapshot("run1", "s", []string{target})
	require.NoError(t, err)

	require.NoError(t, m.Prune("run1"))

	_, err = m.Snapshots("run1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestManager_Runs(t *testing.T) {
	m, dir := newTestManager(t)
	target := filepath.Join(dir, "x.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	_, err := m.Snapshot("20260830-110000", "s", []string{target})
	require.NoError(t, err)
	_, err = m.Snapshot("20260830-120000", "s", []string{target})
	require.NoError(t, err)

	runs, err := m.Runs()
	require.NoError(t, err)
	assert.Equal(t, []string{"20260830-110000", "20260830-120000"}, runs)
}
