// Package gpu provides the gpu provider: NVIDIA driver installation and
// GPU runtime settings for local model serving.
package gpu

import (
	"fmt"
)

// Config represents the gpu section of the manifest.
type Config struct {
	DriverPackage   string
	MinVersion      string
	PersistenceMode bool
}

// ParseConfig parses the gpu configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	rawDriver, ok := raw["driver"]
	if ok {
		driverMap, ok := rawDriver.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("driver must be a map")
		}
		pkg, ok := driverMap["package"].(string)
		if !ok || pkg == "" {
			return nil, fmt.Errorf("driver must name a package")
		}
		cfg.DriverPackage = pkg
		if min, ok := driverMap["min_version"].(string); ok {
			cfg.MinVersion = min
		}
	}

	if pm, ok := raw["persistence_mode"]; ok {
		b, ok := pm.(bool)
		if !ok {
			return nil, fmt.Errorf("persistence_mode must be a boolean")
		}
		cfg.PersistenceMode = b
	}

	return cfg, nil
}
