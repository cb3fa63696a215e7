// Package validation provides input validation for values that end up in
// external tool invocations or rendered config files, preventing command
// injection and config-line injection.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput          = errors.New("input cannot be empty")
	ErrInvalidPackageName  = errors.New("invalid package name")
	ErrInvalidPipPackage   = errors.New("invalid pip package name")
	ErrInvalidUnitName     = errors.New("invalid systemd unit name")
	ErrInvalidSysctlKey    = errors.New("invalid sysctl key")
	ErrInvalidCronSchedule = errors.New("invalid cron schedule")
	ErrInvalidUsername     = errors.New("invalid username")
	ErrInvalidPort         = errors.New("invalid port specification")
	ErrCommandInjection    = errors.New("potential command injection detected")
	ErrNewlineInjection    = errors.New("newline injection detected")
)

// Compiled regex patterns for validation (compiled once for performance).
var (
	// packageNameRegex matches valid apt package names.
	// Examples: "docker-ce", "python3.11", "nvidia-driver-550", "g++"
	packageNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.+-]*$`)

	// pipPackageRegex matches valid pip package names with optional version specifier.
	// Examples: "requests", "vllm==0.6.3", "huggingface-hub>=0.24"
	pipPackageRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*([=<>!~]=?[a-zA-Z0-9._*-]+)?$`)

	// unitNameRegex matches valid systemd unit names, with or without a
	// type suffix. Examples: "docker", "docker.service", "fail2ban"
	unitNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9@._\\-]*(\.(service|socket|timer|target))?$`)

	// sysctlKeyRegex matches dotted sysctl keys.
	// Examples: "vm.swappiness", "net.core.somaxconn", "fs.inotify.max_user_watches"
	sysctlKeyRegex = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_-]+)+$`)

	// cronFieldRegex matches one field of a five-field cron expression.
	// Examples: "*", "*/15", "0", "1-5", "0,30"
	cronFieldRegex = regexp.MustCompile(`^(\*|[0-9]+(-[0-9]+)?)(/[0-9]+)?(,(\*|[0-9]+(-[0-9]+)?)(/[0-9]+)?)*$`)

	// usernameRegex matches POSIX usernames.
	usernameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

	// portSpecRegex matches ufw port specs: a port or port/proto.
	// Examples: "22", "8080/tcp", "11434/tcp"
	portSpecRegex = regexp.MustCompile(`^[0-9]{1,5}(/(tcp|udp))?$`)

	// shellMetaChars contains shell metacharacters that could enable injection
	shellMetaChars = []string{";", "|", "&", "$", "`", "(", ")", "{", "}", "<", ">", "\n", "\r", "\\"}
)

// ValidatePackageName validates an apt package name.
func ValidatePackageName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > 256 {
		return fmt.Errorf("%w: name too long (max 256 characters)", ErrInvalidPackageName)
	}

	if !packageNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidPackageName, name)
	}

	// Check for shell metacharacters (defense in depth)
	if containsShellMeta(name) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, name)
	}

	return nil
}

// ValidatePipPackage validates a pip package name with optional version specifier.
// Examples: "requests", "vllm==0.6.3", "huggingface-hub>=0.24"
func ValidatePipPackage(pkg string) error {
	if pkg == "" {
		return ErrEmptyInput
	}

	if len(pkg) > 256 {
		return fmt.Errorf("%w: package name too long", ErrInvalidPipPackage)
	}

	// The regex alone constrains the charset; version comparators (>=, <=)
	// are legitimate here and arguments never pass through a shell.
	if !pipPackageRegex.MatchString(pkg) {
		return fmt.Errorf("%w: %q is not a valid pip package name", ErrInvalidPipPackage, pkg)
	}

	return nil
}

// ValidateUnitName validates a systemd unit name as passed to systemctl.
func ValidateUnitName(unit string) error {
	if unit == "" {
		return ErrEmptyInput
	}

	if len(unit) > 256 {
		return fmt.Errorf("%w: unit name too long", ErrInvalidUnitName)
	}

	if !unitNameRegex.MatchString(unit) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidUnitName, unit)
	}

	if containsShellMeta(unit) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, unit)
	}

	return nil
}

// ValidateSysctlKey validates a dotted sysctl key.
func ValidateSysctlKey(key string) error {
	if key == "" {
		return ErrEmptyInput
	}

	if !sysctlKeyRegex.MatchString(key) {
		return fmt.Errorf("%w: %q is not a dotted kernel parameter", ErrInvalidSysctlKey, key)
	}

	return nil
}

// ValidateSysctlValue validates a sysctl value destined for a rendered
// sysctl.d file. Newlines would inject additional settings.
func ValidateSysctlValue(value string) error {
	if value == "" {
		return ErrEmptyInput
	}

	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("%w: sysctl value contains newlines", ErrNewlineInjection)
	}

	return nil
}

// ValidateCronSchedule validates a five-field cron expression as written
// into /etc/cron.d. The @-shortcuts (@daily, @reboot, ...) are accepted too.
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return ErrEmptyInput
	}

	if strings.ContainsAny(schedule, "\n\r") {
		return fmt.Errorf("%w: schedule contains newlines", ErrNewlineInjection)
	}

	if strings.HasPrefix(schedule, "@") {
		switch schedule {
		case "@reboot", "@yearly", "@annually", "@monthly", "@weekly", "@daily", "@hourly":
			return nil
		}
		return fmt.Errorf("%w: unknown shortcut %q", ErrInvalidCronSchedule, schedule)
	}

	fields := strings.Fields(schedule)
	if len(fields) != 5 {
		return fmt.Errorf("%w: %q has %d fields, want 5", ErrInvalidCronSchedule, schedule, len(fields))
	}
	for _, f := range fields {
		if !cronFieldRegex.MatchString(f) {
			return fmt.Errorf("%w: bad field %q", ErrInvalidCronSchedule, f)
		}
	}

	return nil
}

// ValidateUsername validates a POSIX username as passed to external tools
// and written into cron.d entries.
func ValidateUsername(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > 32 {
		return fmt.Errorf("%w: username too long", ErrInvalidUsername)
	}

	if !usernameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidUsername, name)
	}

	return nil
}

// ValidatePortSpec validates a ufw port specification ("22", "8080/tcp").
func ValidatePortSpec(spec string) error {
	if spec == "" {
		return ErrEmptyInput
	}

	if !portSpecRegex.MatchString(spec) {
		return fmt.Errorf("%w: %q must be a port or port/proto", ErrInvalidPort, spec)
	}

	return nil
}

// ValidateCommandLine validates a free-form command line destined for a
// cron.d entry. It may contain spaces and flags but not newlines, which
// would inject additional cron entries.
func ValidateCommandLine(cmd string) error {
	if cmd == "" {
		return ErrEmptyInput
	}

	if strings.ContainsAny(cmd, "\n\r") {
		return fmt.Errorf("%w: command contains newlines", ErrNewlineInjection)
	}

	return nil
}

// containsShellMeta checks if a string contains shell metacharacters.
func containsShellMeta(s string) bool {
	for _, char := range shellMetaChars {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}
