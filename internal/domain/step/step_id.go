package step

import (
	"errors"
	"regexp"
	"strings"
)

// StepID names one step, colon-separated by convention:
// provider, action, resource — "apt:package:curl", "service:enable:docker".
// The value is what dependency edges, records and backups key on.
type StepID struct {
	value string
}

// Errors for StepID validation.
var (
	ErrEmptyStepID   = errors.New("step ID cannot be empty")
	ErrInvalidStepID = errors.New("step ID format invalid: must be alphanumeric with colons, hyphens, underscores, dots, or slashes")
)

// Segments are alphanumeric plus hyphen, underscore, dot and slash (dots
// for unit names like docker.service, slashes for port specs); colons
// separate segments. No spaces, no leading or trailing colon.
var stepIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_./-]*(?::[a-zA-Z0-9][a-zA-Z0-9_./-]*)*$`)

// NewStepID validates value and wraps it.
func NewStepID(value string) (StepID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StepID{}, ErrEmptyStepID
	}

	if !stepIDPattern.MatchString(trimmed) {
		return StepID{}, ErrInvalidStepID
	}

	return StepID{value: trimmed}, nil
}

// MustNewStepID is NewStepID for IDs fixed at compile time; it panics on a
// malformed value, which can only mean a programming error in a provider.
func MustNewStepID(value string) StepID {
	id, err := NewStepID(value)
	if err != nil {
		panic("invalid step ID: " + value + ": " + err.Error())
	}
	return id
}

// String returns the string representation.
func (id StepID) String() string {
	return id.value
}

// Equals checks equality with another StepID.
func (id StepID) Equals(other StepID) bool {
	return id.value == other.value
}

// Provider returns the first segment, the provider that compiled the step.
func (id StepID) Provider() string {
	parts := strings.SplitN(id.value, ":", 2)
	return parts[0]
}

// IsZero reports whether this is the zero value.
func (id StepID) IsZero() bool {
	return id.value == ""
}
