package sysctl_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider/sysctl"
)

func testConfig() *sysctl.Config {
	return &sysctl.Config{
		File: sysctl.DefaultDropInPath,
		Settings: map[string]string{
			"vm.swappiness":               "10",
			"fs.inotify.max_user_watches": "1048576",
		},
	}
}

func runCtx() step.RunContext {
	return step.NewRunContext(context.Background())
}

func TestSettingsStep_CheckMissingFile(t *testing.T) {
	t.Parallel()

	s := sysctl.NewSettingsStep(testConfig(), ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	status, err := s.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, step.StatusNeedsApply, status)
}

func TestSettingsStep_ApplyThenSatisfied(t *testing.T) {
	t.Parallel()

	runner := ports.NewMockCommandRunner()
	runner.AddResult("sysctl", []string{"--system"}, ports.CommandResult{ExitCode: 0})
	fs := ports.NewMockFileSystem()

	s := sysctl.NewSettingsStep(testConfig(), runner, fs)
	require.NoError(t, s.Apply(runCtx()))

	// The rendered drop-in is deterministic, so a second check is satisfied.
	status, err := s.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, step.StatusSatisfied, status)

	data, err := fs.ReadFile(sysctl.DefaultDropInPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "vm.swappiness")
	assert.Contains(t, content, "1048576")
	// Sorted keys: fs.* renders before vm.*
	assert.Less(t, strings.Index(content, "fs.inotify"), strings.Index(content, "vm.swappiness"))
}

func TestSettingsStep_CheckDrift(t *testing.T) {
	t.Parallel()

	fs := ports.NewMockFileSystem()
	require.NoError(t, fs.WriteFile(sysctl.DefaultDropInPath, []byte("vm.swappiness = 60\n"), 0o644))

	s := sysctl.NewSettingsStep(testConfig(), ports.NewMockCommandRunner(), fs)
	status, err := s.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, step.StatusNeedsApply, status)
}

func TestSettingsStep_ApplyRejectsBadKey(t *testing.T) {
	t.Parallel()

	cfg := &sysctl.Config{
		File:     sysctl.DefaultDropInPath,
		Settings: map[string]string{"not-a-dotted-key": "1"},
	}
	s := sysctl.NewSettingsStep(cfg, ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	err := s.Apply(runCtx())
	require.Error(t, err)
}

func TestSettingsStep_Reversible(t *testing.T) {
	t.Parallel()

	s := sysctl.NewSettingsStep(testConfig(), ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	assert.True(t, s.Reversible())
	assert.Equal(t, []string{sysctl.DefaultDropInPath}, s.MutatesPaths())
}

func TestProviderCompile(t *testing.T) {
	t.Parallel()

	m, err := manifest.Parse([]byte(`
sysctl:
  settings:
    vm.swappiness: "10"
`))
	require.NoError(t, err)

	p := sysctl.NewProvider(ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	steps, err := p.Compile(m)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "sysctl:settings", steps[0].ID().String())
}

func TestProviderCompileEmptySettings(t *testing.T) {
	t.Parallel()

	m, err := manifest.Parse([]byte("sysctl:\n  settings: {}\n"))
	require.NoError(t, err)

	p := sysctl.NewProvider(ports.NewMockCommandRunner(), ports.NewMockFileSystem())
	steps, err := p.Compile(m)
	require.NoError(t, err)
	assert.Empty(t, steps)
}
