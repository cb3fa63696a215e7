package pip

import (
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
	"github.com/airig-sh/airig/internal/provider/apt"
)

// Provider compiles the pip manifest section into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new pip Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "pip"
}

// Compile transforms the pip section into executable steps. When apt also
// installs python3-pip, every pip step waits for it.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("pip")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("pip", err)
	}

	deps := pipToolDeps(m)
	steps := make([]step.Step, 0, len(cfg.Packages))
	for _, spec := range cfg.Packages {
		steps = append(steps, NewPackageStep(spec, cfg.Binary, deps, p.runner))
	}
	return steps, nil
}

// pipToolDeps waits for the python3-pip package when apt installs it.
func pipToolDeps(m *manifest.Manifest) []step.StepID {
	raw := m.GetSection("apt")
	if raw == nil {
		return nil
	}
	cfg, err := apt.ParseConfig(raw)
	if err != nil {
		return nil
	}
	for _, pkg := range cfg.Packages {
		if pkg.Name == "python3-pip" {
			return []step.StepID{step.MustNewStepID("apt:package:python3-pip")}
		}
	}
	return nil
}

var _ provider.Provider = (*Provider)(nil)
