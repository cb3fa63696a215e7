package cron

import (
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
)

// Provider compiles the cron manifest section into executable steps.
type Provider struct {
	fs ports.FileSystem
}

// NewProvider creates a new cron Provider.
func NewProvider(fs ports.FileSystem) *Provider {
	return &Provider{fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "cron"
}

// Compile transforms the cron section into executable steps.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("cron")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("cron", err)
	}

	steps := make([]step.Step, 0, len(cfg.Jobs))
	for _, job := range cfg.Jobs {
		steps = append(steps, NewJobStep(job, cfg.Dir, p.fs))
	}
	return steps, nil
}

var _ provider.Provider = (*Provider)(nil)
