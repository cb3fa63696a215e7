package apt

import (
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
)

// Provider compiles the apt manifest section into executable steps.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new apt Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "apt"
}

// Compile transforms the apt section into executable steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("apt")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("apt", err)
	}

	withUpdate := cfg.Update || len(cfg.Packages) > 0

	steps := make([]step.Step, 0, len(cfg.Packages)+1)
	if withUpdate {
		steps = append(steps, NewUpdateStep(cfg.MaxAgeHours, p.runner, p.fs))
	}
	for _, pkg := range cfg.Packages {
		steps = append(steps, NewPackageStep(pkg, withUpdate, p.runner))
	}

	return steps, nil
}

var _ provider.Provider = (*Provider)(nil)
