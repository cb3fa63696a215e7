package docker

import (
	"strings"

	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
	"github.com/airig-sh/airig/internal/ports"
	"github.com/airig-sh/airig/internal/provider"
	"github.com/airig-sh/airig/internal/provider/apt"
)

// Provider compiles the docker manifest section into executable steps.
type Provider struct {
	fs ports.FileSystem
}

// NewProvider creates a new docker Provider.
func NewProvider(fs ports.FileSystem) *Provider {
	return &Provider{fs: fs}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "docker"
}

// Compile transforms the docker section into executable steps. When the apt
// section also installs docker packages, the config steps depend on them so
// the engine installs before configuring.
func (p *Provider) Compile(m *manifest.Manifest) ([]step.Step, error) {
	raw := m.GetSection("docker")
	if raw == nil {
		return nil, nil
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, manifest.NewSectionError("docker", err)
	}

	deps := dockerPackageDeps(m)

	var steps []step.Step
	if cfg.Daemon != nil {
		steps = append(steps, NewDaemonStep(cfg.DaemonPath, cfg.Daemon, deps, p.fs))
	}
	if cfg.Containerd != nil {
		steps = append(steps, NewContainerdStep(cfg.ContainerdPath, cfg.Containerd, deps, p.fs))
	}
	return steps, nil
}

// dockerPackageDeps finds apt packages that look like docker/containerd
// installs and returns their step IDs.
func dockerPackageDeps(m *manifest.Manifest) []step.StepID {
	raw := m.GetSection("apt")
	if raw == nil {
		return nil
	}
	cfg, err := apt.ParseConfig(raw)
	if err != nil {
		return nil
	}

	var deps []step.StepID
	for _, pkg := range cfg.Packages {
		if strings.HasPrefix(pkg.Name, "docker") || strings.HasPrefix(pkg.Name, "containerd") {
			deps = append(deps, step.MustNewStepID("apt:package:"+pkg.Name))
		}
	}
	return deps
}

var _ provider.Provider = (*Provider)(nil)
