package gpu

import (
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
	"github.com/airig-sh/airig/internal/provider/apt"
)

// Provider compiles the gpu manifest section into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new gpu Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gpu"
}

// Compile transforms the gpu section into executable steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("gpu")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("gpu", err)
	}

	var steps []step.Step
	if cfg.DriverPackage != "" {
		var deps []step.StepID
		if m.HasSection("apt") {
			deps = append(deps, apt.UpdateStepID)
		}
		steps = append(steps, NewDriverStep(cfg.DriverPackage, cfg.MinVersion, deps, p.runner))
	}
	if cfg.PersistenceMode {
		var deps []step.StepID
		if cfg.DriverPackage != "" {
			deps = append(deps, DriverStepID)
		}
		steps = append(steps, NewPersistenceStep(deps, p.runner))
	}
	return steps, nil
}

var _ provider.Provider = (*Provider)(nil)
