package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airig-sh/airig/internal/ports"
)

// Errors for backup operations.
var (
	// ErrBackupIO indicates a snapshot could not be taken. A step whose
	// prior state cannot be captured must not run.
	ErrBackupIO = errors.New("backup snapshot failed")

	// ErrRestoreConflict indicates the live path is owned by a later,
	// still-applied step of the same run.
	ErrRestoreConflict = errors.New("restore conflict")

	// ErrRunNotFound indicates no backups exist for the given run.
	ErrRunNotFound = errors.New("no backups recorded for run")
)

// runIndex is the per-run snapshot index persisted as index.json.
type runIndex struct {
	Snapshots []Snapshot `json:"snapshots"`
}

// Manager owns the backup area. All snapshots for one run live under
// <baseDir>/<runID>/, one content subtree per snapshot sequence number,
// preserving each file's relative structure. Snapshots are deleted only by
// explicit Prune.
type Manager struct {
	baseDir string
	fs      ports.FileSystem
	mu      sync.Mutex
}

// NewManager creates a Manager rooted at baseDir.
func NewManager(baseDir string, fs ports.FileSystem) *Manager {
	return &Manager{baseDir: baseDir, fs: fs}
}

// BaseDir returns the backup area root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Snapshot captures the current content/existence state of each path before
// a step mutates it. Returns one Snapshot per path, in order. Any I/O
// failure returns an error wrapping ErrBackupIO and leaves no partial index
// entry for the failed path.
func (m *Manager) Snapshot(runID, stepID string, paths []string) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex(runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupIO, err)
	}

	taken := make([]Snapshot, 0, len(paths))
	seq := len(index.Snapshots)

	for _, path := range paths {
		snap := Snapshot{
			ID:        uuid.New().String(),
			RunID:     runID,
			StepID:    stepID,
			Path:      path,
			Seq:       seq,
			CreatedAt: time.Now().UTC(),
		}

		if m.fs.Exists(path) {
			if m.fs.IsDir(path) {
				return nil, fmt.Errorf("%w: %s is a directory", ErrBackupIO, path)
			}
			snap.Existed = true

			hash, err := m.fs.FileHash(path)
			if err != nil {
				return nil, fmt.Errorf("%w: hash %s: %v", ErrBackupIO, path, err)
			}
			snap.Hash = hash

			info, err := m.fs.GetFileInfo(path)
			if err != nil {
				return nil, fmt.Errorf("%w: stat %s: %v", ErrBackupIO, path, err)
			}
			snap.Size = info.Size

			if err := m.fs.CopyFile(path, m.contentPath(runID, seq, path)); err != nil {
				return nil, fmt.Errorf("%w: copy %s: %v", ErrBackupIO, path, err)
			}
		}

		index.Snapshots = append(index.Snapshots, snap)
		taken = append(taken, snap)
		seq++
	}

	if err := m.saveIndex(runID, index); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackupIO, err)
	}

	return taken, nil
}

// Snapshots returns all snapshots recorded for a run, ordered by sequence.
func (m *Manager) Snapshots(runID string) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fs.Exists(m.indexPath(runID)) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	index, err := m.loadIndex(runID)
	if err != nil {
		return nil, err
	}

	snaps := append([]Snapshot{}, index.Snapshots...)
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Seq < snaps[j].Seq })
	return snaps, nil
}

// Restore reverses exactly one snapshot: the saved content is written back,
// or the path is removed if it did not exist when snapshotted. Fails with
// ErrRestoreConflict when a later, not-yet-restored snapshot of the same run
// owns the path. The snapshot is marked restored in the index on success.
func (m *Manager) Restore(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex(snap.RunID)
	if err != nil {
		return err
	}

	for _, other := range index.Snapshots {
		if other.Path == snap.Path && other.Seq > snap.Seq && !other.Restored {
			return fmt.Errorf("%w: %s is still owned by step %s",
				ErrRestoreConflict, snap.Path, other.StepID)
		}
	}

	if snap.Existed {
		if err := m.fs.CopyFile(m.contentPath(snap.RunID, snap.Seq, snap.Path), snap.Path); err != nil {
			return fmt.Errorf("restore %s: %w", snap.Path, err)
		}
	} else if m.fs.Exists(snap.Path) {
		if err := m.fs.Remove(snap.Path); err != nil {
			return fmt.Errorf("restore %s: %w", snap.Path, err)
		}
	}

	for i := range index.Snapshots {
		if index.Snapshots[i].ID == snap.ID {
			index.Snapshots[i].Restored = true
		}
	}
	return m.saveIndex(snap.RunID, index)
}

// Prune removes the entire backup area for a run. Never called implicitly.
func (m *Manager) Prune(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return os.RemoveAll(m.runDir(runID))
}

// Runs lists run IDs that have a backup area, oldest first.
func (m *Manager) Runs() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	runs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

func (m *Manager) runDir(runID string) string {
	return filepath.Join(m.baseDir, runID)
}

func (m *Manager) indexPath(runID string) string {
	return filepath.Join(m.runDir(runID), "index.json")
}

// contentPath maps one snapshot of an absolute path to its location inside
// the run's backup directory, preserving relative structure. The sequence
// number keys the content so two steps snapshotting the same path within a
// run do not overwrite each other.
func (m *Manager) contentPath(runID string, seq int, path string) string {
	rel := strings.TrimPrefix(filepath.Clean(path), string(filepath.Separator))
	return filepath.Join(m.runDir(runID), "files", strconv.Itoa(seq), rel)
}

func (m *Manager) loadIndex(runID string) (*runIndex, error) {
	path := m.indexPath(runID)
	if !m.fs.Exists(path) {
		return &runIndex{Snapshots: []Snapshot{}}, nil
	}

	data, err := m.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var index runIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	if index.Snapshots == nil {
		index.Snapshots = []Snapshot{}
	}
	return &index, nil
}

func (m *Manager) saveIndex(runID string, index *runIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return m.fs.WriteFile(m.indexPath(runID), data, 0o600)
}
