package ports

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// MockCall records one invocation of the mock runner.
type MockCall struct {
	Command string
	Args    []string
}

// MockCommandRunner is an in-memory CommandRunner for tests. Results are
// registered per exact command line; unregistered commands fail like a
// missing executable.
type MockCommandRunner struct {
	mu      sync.Mutex
	results map[string]CommandResult
	calls   []MockCall
}

// NewMockCommandRunner creates an empty mock runner.
func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{results: make(map[string]CommandResult)}
}

// AddResult registers the result returned for one exact command line.
func (m *MockCommandRunner) AddResult(command string, args []string, result CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[callKey(command, args)] = result
}

// Run returns the registered result, recording the call.
func (m *MockCommandRunner) Run(_ context.Context, command string, args ...string) (CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Command: command, Args: args})

	result, ok := m.results[callKey(command, args)]
	if !ok {
		return CommandResult{}, &exec.Error{Name: command, Err: exec.ErrNotFound}
	}
	return result, nil
}

// Calls returns every invocation in order.
func (m *MockCommandRunner) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func callKey(command string, args []string) string {
	return command + " " + strings.Join(args, " ")
}

// MockFileSystem is an in-memory FileSystem for tests.
type MockFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
	modes map[string]os.FileMode
	dirs  map[string]bool
}

// NewMockFileSystem creates an empty mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string][]byte),
		modes: make(map[string]os.FileMode),
		dirs:  make(map[string]bool),
	}
}

// ReadFile returns the stored content.
func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile stores content in memory.
func (m *MockFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	m.modes[path] = perm
	return nil
}

// Exists reports whether the path holds a file or directory.
func (m *MockFileSystem) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, file := m.files[path]
	return file || m.dirs[path]
}

// IsDir reports whether the path was created as a directory.
func (m *MockFileSystem) IsDir(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[path]
}

// MkdirAll records a directory.
func (m *MockFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	return nil
}

// Remove deletes a file or directory entry.
func (m *MockFileSystem) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok && !m.dirs[path] {
		return fmt.Errorf("remove %s: %w", path, os.ErrNotExist)
	}
	delete(m.files, path)
	delete(m.modes, path)
	delete(m.dirs, path)
	return nil
}

// CopyFile copies stored content.
func (m *MockFileSystem) CopyFile(src, dest string) error {
	data, err := m.ReadFile(src)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[dest] = data
	m.modes[dest] = m.modes[src]
	return nil
}

// FileHash returns a stable fake hash of the content.
func (m *MockFileSystem) FileHash(path string) (string, error) {
	data, err := m.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("mock-%d", len(data)), nil
}

// GetFileInfo returns metadata for a stored entry.
func (m *MockFileSystem) GetFileInfo(path string) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirs[path] {
		return FileInfo{IsDir: true, ModTime: time.Now()}, nil
	}
	data, ok := m.files[path]
	if !ok {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, os.ErrNotExist)
	}
	return FileInfo{
		Size:    int64(len(data)),
		Mode:    m.modes[path],
		ModTime: time.Now(),
	}, nil
}

var (
	_ CommandRunner = (*MockCommandRunner)(nil)
	_ FileSystem    = (*MockFileSystem)(nil)
)
