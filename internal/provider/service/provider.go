package service

import (
	"strings"

	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
	"github.com/airig-sh/airig/internal/provider/apt"
)

// Provider compiles the service manifest section into executable steps.
type Provider struct {
	runner ports.CommandRunner
}

// NewProvider creates a new service Provider.
func NewProvider(runner ports.CommandRunner) *Provider {
	return &Provider{runner: runner}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "service"
}

// Compile transforms the service section into executable steps. A start step
// for a unit depends on its enable step when both are requested; both depend
// on whatever installs or configures the unit elsewhere in the manifest.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("service")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("service", err)
	}

	enabled := make(map[string]bool, len(cfg.Enable))
	var steps []step.Step
	for _, unit := range cfg.Enable {
		enabled[unit] = true
		steps = append(steps, NewEnableStep(unit, unitDeps(m, unit), p.runner))
	}
	for _, unit := range cfg.Start {
		deps := unitDeps(m, unit)
		if enabled[unit] {
			deps = append(deps, step.MustNewStepID("service:enable:"+unit))
		}
		steps = append(steps, NewStartStep(unit, deps, p.runner))
	}
	return steps, nil
}

// unitDeps wires a unit's steps behind the manifest entries that install or
// configure it: an apt package of the same name, and for docker, the
// rendered daemon and containerd configs.
func unitDeps(m *manifest.Manifest, unit string) []step.StepID {
	base := strings.TrimSuffix(unit, ".service")
	var deps []step.StepID

	if rawApt := m.GetSection("apt"); rawApt != nil {
		if cfg, err := apt.ParseConfig(rawApt); err == nil {
			for _, pkg := range cfg.Packages {
				if pkg.Name == base || strings.HasPrefix(pkg.Name, base+"-") {
					deps = append(deps, step.MustNewStepID("apt:package:"+pkg.Name))
				}
			}
		}
	}

	if base == "docker" {
		if rawDocker := m.GetSection("docker"); rawDocker != nil {
			if _, ok := rawDocker["daemon"]; ok {
				deps = append(deps, step.MustNewStepID("docker:daemon-config"))
			}
			if _, ok := rawDocker["containerd"]; ok {
				deps = append(deps, step.MustNewStepID("docker:containerd-config"))
			}
		}
	}

	return deps
}

var _ provider.Provider = (*Provider)(nil)
