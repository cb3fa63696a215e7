// Package docker provides the docker provider: the dockerd daemon.json and
// the containerd config.toml, both rendered declaratively.
package docker

import (
	"fmt"
)

// Default config file locations.
const (
	DefaultDaemonPath     = "/etc/docker/daemon.json"
	DefaultContainerdPath = "/etc/containerd/config.toml"
)

// Config represents the docker section of the manifest.
type Config struct {
	DaemonPath     string
	Daemon         map[string]interface{}
	ContainerdPath string
	Containerd     map[string]interface{}
}

// ParseConfig parses the docker configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		DaemonPath:     DefaultDaemonPath,
		ContainerdPath: DefaultContainerdPath,
	}

	if daemon, ok := raw["daemon"]; ok {
		m, ok := daemon.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("daemon must be a map of dockerd options")
		}
		cfg.Daemon = m
	}

	if containerd, ok := raw["containerd"]; ok {
		m, ok := containerd.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("containerd must be a map of containerd options")
		}
		cfg.Containerd = m
	}

	if path, ok := raw["daemon_path"]; ok {
		s, ok := path.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("daemon_path must be a non-empty string")
		}
		cfg.DaemonPath = s
	}

	if path, ok := raw["containerd_path"]; ok {
		s, ok := path.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("containerd_path must be a non-empty string")
		}
		cfg.ContainerdPath = s
	}

	return cfg, nil
}
