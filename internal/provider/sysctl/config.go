// Package sysctl provides the sysctl provider: kernel parameters rendered
// into a sysctl.d drop-in and loaded with sysctl --system.
package sysctl

import (
	"fmt"
)

// DefaultDropInPath is where the rendered kernel parameters land.
const DefaultDropInPath = "/etc/sysctl.d/99-airig.conf"

// Config represents the sysctl section of the manifest.
type Config struct {
	File     string
	Settings map[string]string
}

// ParseConfig parses the sysctl configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		File:     DefaultDropInPath,
		Settings: make(map[string]string),
	}

	if file, ok := raw["file"]; ok {
		s, ok := file.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("file must be a non-empty string")
		}
		cfg.File = s
	}

	settings, ok := raw["settings"]
	if !ok {
		return cfg, nil
	}
	settingsMap, ok := settings.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("settings must be a map")
	}

	for key, value := range settingsMap {
		switch v := value.(type) {
		case string:
			cfg.Settings[key] = v
		case int:
			cfg.Settings[key] = fmt.Sprintf("%d", v)
		case bool:
			if v {
				cfg.Settings[key] = "1"
			} else {
				cfg.Settings[key] = "0"
			}
		default:
			return nil, fmt.Errorf("setting %s must be a string, integer or boolean", key)
		}
	}

	return cfg, nil
}
