package firewall

import (
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
	"github.com/airig-sh/airig/internal/provider/apt"
)

// Provider compiles the firewall manifest section into executable steps.
type Provider struct {
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewProvider creates a new firewall Provider.
func NewProvider(runner ports.CommandRunner, fs ports.FileSystem) *Provider {
	return &Provider{runner: runner, fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "firewall"
}

// Compile transforms the firewall section into executable steps. The enable
// step runs after defaults and every allow rule, so turning the firewall on
// can never cut off a port the manifest wanted open.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("firewall")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("firewall", err)
	}

	var steps []step.Step
	if cfg.UFW != nil {
		defaults := NewDefaultsStep(cfg.UFW, p.runner)
		steps = append(steps, defaults)

		enableDeps := []step.StepID{defaults.ID()}
		for _, spec := range cfg.UFW.Allow {
			allow := NewAllowStep(spec, []step.StepID{defaults.ID()}, p.runner)
			steps = append(steps, allow)
			enableDeps = append(enableDeps, allow.ID())
		}

		if cfg.UFW.Enabled {
			steps = append(steps, NewEnableStep(enableDeps, p.runner))
		}
	}

	if cfg.Fail2ban != nil {
		steps = append(steps, NewFail2banStep(cfg.Fail2ban, fail2banDeps(m), p.fs))
	}

	return steps, nil
}

// fail2banDeps waits for the fail2ban package when apt installs it.
func fail2banDeps(m *manifest.Manifest) []step.StepID {
	raw := m.GetSection("apt")
	if raw == nil {
		return nil
	}
	cfg, err := apt.ParseConfig(raw)
	if err != nil {
		return nil
	}
	for _, pkg := range cfg.Packages {
		if pkg.Name == "fail2ban" {
			return []step.StepID{step.MustNewStepID("apt:package:fail2ban")}
		}
	}
	return nil
}

var _ provider.Provider = (*Provider)(nil)
