package sysctl

import (
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
)

// Provider compiles the sysctl manifest section into executable steps.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new sysctl Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "sysctl"
}

// Compile transforms the sysctl section into executable steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("sysctl")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("sysctl", err)
	}
	if len(cfg.Settings) == 0 {
		return nil, nil
	}

	return []step.Step{NewSettingsStep(cfg, p.runner, p.fs)}, nil
}

var _ provider.Provider = (*Provider)(nil)
