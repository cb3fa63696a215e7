// Package pip provides the pip provider for Python packages used by the
// model-serving stack.
package pip

import (
	"fmt"
)

// DefaultBinary is the pip executable used when the manifest names none.
const DefaultBinary = "pip3"

// Config represents the pip section of the manifest.
type Config struct {
	Binary   string
	Packages []string
}

// ParseConfig parses the pip configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{Binary: DefaultBinary}

	if binary, ok := raw["binary"]; ok {
		s, ok := binary.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("binary must be a non-empty string")
		}
		cfg.Binary = s
	}

	if packages, ok := raw["packages"]; ok {
		list, ok := packages.([]interface{})
		if !ok {
			return nil, fmt.Errorf("packages must be a list")
		}
		for _, item := range list {
			pkg, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("package entries must be strings")
			}
			cfg.Packages = append(cfg.Packages, pkg)
		}
	}

	return cfg, nil
}
