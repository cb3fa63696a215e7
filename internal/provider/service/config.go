// Package service provides the systemd service provider: units enabled at
// boot and started now, via systemctl.
package service

import (
	"fmt"
)

// Config represents the service section of the manifest.
type Config struct {
	Enable []string
	Start  []string
}

// ParseConfig parses the service configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	var err error
	if cfg.Enable, err = parseUnitList(raw, "enable"); err != nil {
		return nil, err
	}
	if cfg.Start, err = parseUnitList(raw, "start"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseUnitList(raw map[string]interface{}, key string) ([]string, error) {
	value, ok := raw[key]
	if !ok {
		return nil, nil
	}
	list, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a list of unit names", key)
	}

	units := make([]string, 0, len(list))
	for _, item := range list {
		unit, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s entries must be strings", key)
		}
		units = append(units, unit)
	}
	return units, nil
}
