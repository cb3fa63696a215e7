// Package firewall provides the firewall provider: ufw policies and rules,
// and a rendered fail2ban jail.local.
package firewall

import (
	"fmt"
	"sort"
)

// DefaultJailLocalPath is where the rendered fail2ban configuration lands.
const DefaultJailLocalPath = "/etc/fail2ban/jail.local"

// Valid ufw default policies.
const (
	PolicyAllow = "allow"
	PolicyDeny  = "deny"
)

// UFWConfig represents the ufw subsection.
type UFWConfig struct {
	Enabled         bool
	DefaultIncoming string
	DefaultOutgoing string
	Allow           []string
}

// Fail2banConfig represents the fail2ban subsection.
type Fail2banConfig struct {
	Path  string
	Jails map[string]map[string]string
}

// JailNames returns the jail names sorted for deterministic rendering.
func (c *Fail2banConfig) JailNames() []string {
	names := make([]string, 0, len(c.Jails))
	for name := range c.Jails {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config represents the firewall section of the manifest.
type Config struct {
	UFW      *UFWConfig
	Fail2ban *Fail2banConfig
}

// ParseConfig parses the firewall configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{}

	if rawUFW, ok := raw["ufw"]; ok {
		m, ok := rawUFW.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("ufw must be a map")
		}
		ufw, err := parseUFW(m)
		if err != nil {
			return nil, err
		}
		cfg.UFW = ufw
	}

	if rawF2B, ok := raw["fail2ban"]; ok {
		m, ok := rawF2B.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("fail2ban must be a map")
		}
		f2b, err := parseFail2ban(m)
		if err != nil {
			return nil, err
		}
		cfg.Fail2ban = f2b
	}

	return cfg, nil
}

func parseUFW(raw map[string]interface{}) (*UFWConfig, error) {
	cfg := &UFWConfig{
		Enabled:         true,
		DefaultIncoming: PolicyDeny,
		DefaultOutgoing: PolicyAllow,
	}

	if enabled, ok := raw["enabled"]; ok {
		b, ok := enabled.(bool)
		if !ok {
			return nil, fmt.Errorf("ufw enabled must be a boolean")
		}
		cfg.Enabled = b
	}

	if v, ok := raw["default_incoming"]; ok {
		policy, err := parsePolicy("default_incoming", v)
		if err != nil {
			return nil, err
		}
		cfg.DefaultIncoming = policy
	}
	if v, ok := raw["default_outgoing"]; ok {
		policy, err := parsePolicy("default_outgoing", v)
		if err != nil {
			return nil, err
		}
		cfg.DefaultOutgoing = policy
	}

	if rawAllow, ok := raw["allow"]; ok {
		list, ok := rawAllow.([]interface{})
		if !ok {
			return nil, fmt.Errorf("allow must be a list of port specs")
		}
		for _, item := range list {
			switch v := item.(type) {
			case string:
				cfg.Allow = append(cfg.Allow, v)
			case int:
				cfg.Allow = append(cfg.Allow, fmt.Sprintf("%d", v))
			default:
				return nil, fmt.Errorf("allow entries must be strings or ports")
			}
		}
	}

	return cfg, nil
}

func parsePolicy(key string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok || (s != PolicyAllow && s != PolicyDeny) {
		return "", fmt.Errorf("%s must be %q or %q", key, PolicyAllow, PolicyDeny)
	}
	return s, nil
}

func parseFail2ban(raw map[string]interface{}) (*Fail2banConfig, error) {
	cfg := &Fail2banConfig{
		Path:  DefaultJailLocalPath,
		Jails: make(map[string]map[string]string),
	}

	if path, ok := raw["path"]; ok {
		s, ok := path.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("fail2ban path must be a non-empty string")
		}
		cfg.Path = s
	}

	rawJails, ok := raw["jails"]
	if !ok {
		return cfg, nil
	}
	jailsMap, ok := rawJails.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("jails must be a map")
	}

	for name, rawJail := range jailsMap {
		jailMap, ok := rawJail.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("jail %s must be a map", name)
		}
		jail := make(map[string]string, len(jailMap))
		for key, value := range jailMap {
			switch v := value.(type) {
			case string:
				jail[key] = v
			case int:
				jail[key] = fmt.Sprintf("%d", v)
			case bool:
				if v {
					jail[key] = "true"
				} else {
					jail[key] = "false"
				}
			default:
				return nil, fmt.Errorf("jail %s: %s must be a scalar", name, key)
			}
		}
		cfg.Jails[name] = jail
	}

	return cfg, nil
}
