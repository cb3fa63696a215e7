// Package backup snapshots files before steps mutate them and restores them
// on rollback. Snapshots are run-scoped: one directory per run, named by the
// run timestamp, mirroring the relative structure of the snapshotted paths.
package backup

import "time"

// Snapshot records the prior state of one path, owned by one step of a run.
// A snapshot of a path that did not exist yet (Existed=false) restores as
// a deletion.
type Snapshot struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	StepID    string    `json:"step_id"`
	Path      string    `json:"path"`
	Existed   bool      `json:"existed"`
	Hash      string    `json:"hash,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	Restored  bool      `json:"restored,omitempty"`
}
