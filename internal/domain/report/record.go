// Package report provides the append-only run log: one structured line per
// execution record plus free-form lines capturing external tool output, and
// the per-run summary derived from them.
package report

import "time"

// Outcome is the terminal result of one step attempt.
type Outcome string

const (
	// OutcomeSucceeded indicates the step applied cleanly.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSkipped indicates the step was not attempted (already
	// satisfied, before the resume point, or after an earlier failure).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed indicates the step was attempted and failed, or its
	// backup could not be taken.
	OutcomeFailed Outcome = "failed"
	// OutcomeWouldRun indicates a dry run recorded the step without
	// executing it.
	OutcomeWouldRun Outcome = "would-run"
)

// Skip reasons recorded alongside OutcomeSkipped.
const (
	ReasonSatisfied = "satisfied"
	ReasonResume    = "resume"
	ReasonDepFailed = "dependency-failed"
)

// Record is one immutable entry per step attempt. Appended exactly once per
// step per run.
type Record struct {
	RunID      string    `json:"run_id"`
	StepID     string    `json:"step_id"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	BackupIDs  []string  `json:"backup_ids,omitempty"`
	Reversible bool      `json:"reversible"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Summary aggregates the records of one run.
type Summary struct {
	RunID        string
	Succeeded    int
	Skipped      int
	Failed       int
	WouldRun     int
	Irreversible []string // irreversible steps that actually applied
}

// Total returns the number of steps the run touched.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed + s.WouldRun
}

// Summarize folds records into a Summary.
func Summarize(runID string, records []Record) Summary {
	summary := Summary{RunID: runID}
	for _, rec := range records {
		switch rec.Outcome {
		case OutcomeSucceeded:
			summary.Succeeded++
			if !rec.Reversible {
				summary.Irreversible = append(summary.Irreversible, rec.StepID)
			}
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
		case OutcomeWouldRun:
			summary.WouldRun++
		}
	}
	return summary
}
