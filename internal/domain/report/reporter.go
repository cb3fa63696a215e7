package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Reporter records step outcomes and captured tool output.
type Reporter interface {
	// Record appends one execution record. The entry is durable before the
	// call returns, so a crash mid-plan leaves a truthful partial log.
	Record(rec Record) error

	// Output appends a free-form line of captured external tool output.
	Output(runID, stepID, line string) error

	// Records returns the execution records for a run, in append order.
	Records(runID string) ([]Record, error)

	// Close releases any resources.
	Close() error
}

// FileReporter implements Reporter on a single append-only log file.
// Records are JSONL; tool output is written as free-form lines and skipped
// when reading records back.
type FileReporter struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewFileReporter opens (or creates) the log file at path.
func NewFileReporter(path string) (*FileReporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	return &FileReporter{path: path, file: file}, nil
}

// Path returns the log file path.
func (r *FileReporter) Path() string {
	return r.path
}

// Record appends and fsyncs one execution record.
func (r *FileReporter) Record(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	if _, err := r.file.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	// Flushed before returning so resume can trust the log after a crash.
	return r.file.Sync()
}

// Output appends captured tool output, one prefixed line at a time.
func (r *FileReporter) Output(runID, stepID, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range strings.Split(strings.TrimRight(line, "\n"), "\n") {
		if _, err := r.file.WriteString(fmt.Sprintf("# [%s] %s: %s\n", runID, stepID, l)); err != nil {
			return err
		}
	}
	return nil
}

// Records reads back the records for a run, skipping free-form lines.
func (r *FileReporter) Records(runID string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.RunID == runID {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Runs returns the distinct run IDs present in the log, in first-seen order.
func (r *FileReporter) Runs() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	seen := make(map[string]bool)
	var runs []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.RunID != "" && !seen[rec.RunID] {
			seen[rec.RunID] = true
			runs = append(runs, rec.RunID)
		}
	}
	return runs, scanner.Err()
}

// Close closes the log file.
func (r *FileReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// MemoryReporter implements Reporter in memory (for tests).
type MemoryReporter struct {
	mu      sync.RWMutex
	records []Record
	output  []string
}

// NewMemoryReporter creates an in-memory reporter.
func NewMemoryReporter() *MemoryReporter {
	return &MemoryReporter{}
}

// Record appends a record.
func (r *MemoryReporter) Record(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Output appends a free-form line.
func (r *MemoryReporter) Output(runID, stepID, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output = append(r.output, fmt.Sprintf("[%s] %s: %s", runID, stepID, line))
	return nil
}

// Records returns records for a run.
func (r *MemoryReporter) Records(runID string) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every record (for tests).
func (r *MemoryReporter) All() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// OutputLines returns captured output lines (for tests).
func (r *MemoryReporter) OutputLines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.output))
	copy(out, r.output)
	return out
}

// Close is a no-op.
func (r *MemoryReporter) Close() error {
	return nil
}

// Ensure implementations satisfy Reporter.
var (
	_ Reporter = (*FileReporter)(nil)
	_ Reporter = (*MemoryReporter)(nil)
)
