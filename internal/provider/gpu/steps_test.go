package gpu_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider/gpu"
)

func runCtx() step.RunContext {
	return step.NewRunContext(context.Background())
}

func TestDriverStep_CheckNoTool(t *testing.T) {
	t.Parallel()

	// nvidia-smi is unregistered, so the mock fails like a missing binary.
	s := gpu.NewDriverStep("nvidia-driver-550", "550.54", nil, ports.NewMockCommandRunner())
	status, err := s.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, step.StatusNeedsApply, status)
}

func TestDriverStep_CheckVersionTooOld(t *testing.T) {
	t.Parallel()

	runner := ports.NewMockCommandRunner()
	runner.AddResult("nvidia-smi", []string{"--query-gpu=driver_version", "--format=csv,noheader"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "535.183.01\n",
	})

	s := gpu.NewDriverStep("nvidia-driver-550", "550.54", nil, runner)
	status, err := s.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, step.StatusNeedsApply, status)
}

func TestDriverStep_CheckVersionSatisfied(t *testing.T) {
	t.Parallel()

	runner := ports.NewMockCommandRunner()
	runner.AddResult("nvidia-smi", []string{"--query-gpu=driver_version", "--format=csv,noheader"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "550.54.14\n",
	})

	s := gpu.NewDriverStep("nvidia-driver-550", "550.54", nil, runner)
	status, err := s.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, step.StatusSatisfied, status)
}

func TestDriverStep_Apply(t *testing.T) {
	t.Parallel()

	runner := ports.NewMockCommandRunner()
	runner.AddResult("apt-get", []string{"install", "-y", "nvidia-driver-550"}, ports.CommandResult{ExitCode: 0})

	s := gpu.NewDriverStep("nvidia-driver-550", "", nil, runner)
	require.NoError(t, s.Apply(runCtx()))
	assert.False(t, s.Reversible())
}

func TestPersistenceStep_CheckEnabled(t *testing.T) {
	t.Parallel()

	runner := ports.NewMockCommandRunner()
	runner.AddResult("nvidia-smi", []string{"--query-gpu=persistence_mode", "--format=csv,noheader"}, ports.CommandResult{
		ExitCode: 0,
		Stdout:   "Enabled\n",
	})

	s := gpu.NewPersistenceStep(nil, runner)
	status, err := s.Check(runCtx())
	require.NoError(t, err)
	assert.Equal(t, step.StatusSatisfied, status)
}

func TestProviderCompile(t *testing.T) {
	t.Parallel()

	m, err := manifest.Parse([]byte(`
apt:
  packages: [curl]
gpu:
  driver:
    package: nvidia-driver-550
    min_version: "550.54"
  persistence_mode: true
`))
	require.NoError(t, err)

	p := gpu.NewProvider(ports.NewMockCommandRunner())
	steps, err := p.Compile(m)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, "gpu:driver", steps[0].ID().String())
	require.Len(t, steps[0].DependsOn(), 1)
	assert.Equal(t, "apt:update", steps[0].DependsOn()[0].String())

	assert.Equal(t, "gpu:persistence-mode", steps[1].ID().String())
	require.Len(t, steps[1].DependsOn(), 1)
	assert.Equal(t, "gpu:driver", steps[1].DependsOn()[0].String())
}
