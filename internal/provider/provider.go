// Package provider defines the contract between the host manifest and the
// step registry: each provider compiles its manifest section into steps.
package provider

import (
	"github.com/airig-sh/airig/internal/domain/manifest"
	"github.com/airig-sh/airig/internal/domain/step"
)

// Provider compiles a section of the manifest into executable steps.
// Each provider handles one resource type (apt, sysctl, docker, ...).
type Provider interface {
	// Name returns the provider's identifier and manifest section key.
	Name() string

	// Compile transforms the provider's manifest section into steps.
	// A missing section compiles to no steps. Cross-provider dependencies
	// are expressed through Step.DependsOn().
	Compile(m *manifest.Manifest) ([]step.Step, error)
}
