// Package manifest loads and exposes the airig.yaml host manifest. The
// manifest is a map of provider sections; each provider parses its own
// section into steps.
package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed host manifest.
type Manifest struct {
	// Host is an optional free-form name for the machine being provisioned.
	Host string

	sections map[string]interface{}
}

// Parse parses manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	m := &Manifest{sections: raw}
	if host, ok := raw["host"].(string); ok {
		m.Host = host
	}
	return m, nil
}

// GetSection returns a provider section by key. Returns nil if the section
// doesn't exist or isn't a map.
func (m *Manifest) GetSection(key string) map[string]interface{} {
	if m.sections == nil {
		return nil
	}
	section, ok := m.sections[key]
	if !ok {
		return nil
	}
	sectionMap, ok := section.(map[string]interface{})
	if !ok {
		return nil
	}
	return sectionMap
}

// HasSection reports whether a provider section is present at all.
func (m *Manifest) HasSection(key string) bool {
	if m.sections == nil {
		return false
	}
	_, ok := m.sections[key]
	return ok
}
