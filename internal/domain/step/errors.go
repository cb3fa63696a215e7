package step

import (
	"errors"
	"fmt"
	"strings"
)

// Errors for Registry operations.
var (
	ErrDuplicateStep    = errors.New("step with this ID already exists")
	ErrCyclicDependency = errors.New("cyclic dependency detected")
	ErrMissingDep       = errors.New("step depends on nonexistent step")
	ErrUnknownStep      = errors.New("no step with this ID")
)

// Error codes for step configuration failures.
const (
	ErrCodeStepDuplicate     = "STEP_DUPLICATE"
	ErrCodeDependencyMissing = "DEPENDENCY_MISSING"
	ErrCodeCyclicDependency  = "CYCLIC_DEPENDENCY"
	ErrCodeStepUnknown       = "STEP_UNKNOWN"
)

// ConfigError represents a configuration-time failure (duplicate step, cycle,
// missing dependency) detected before any execution begins.
type ConfigError struct {
	Code       string // Error code for categorization
	Message    string // User-friendly error message
	StepID     string // Step ID if applicable
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step %q: %s", e.StepID, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// Format returns a fully formatted error with all details.
func (e *ConfigError) Format() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.StepID != "" {
		b.WriteString(fmt.Sprintf("\n  Step: %s", e.StepID))
	}
	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  Suggestion: %s", e.Suggestion))
	}
	if e.Underlying != nil {
		b.WriteString(fmt.Sprintf("\n  Cause: %s", e.Underlying.Error()))
	}

	return b.String()
}

// NewDuplicateStepError creates an error for a duplicate step ID.
func NewDuplicateStepError(stepID string) *ConfigError {
	return &ConfigError{
		Code:       ErrCodeStepDuplicate,
		Message:    "step with this ID is already registered",
		StepID:     stepID,
		Suggestion: "Each step must have a unique ID. Check for duplicate packages or conflicting manifest entries.",
		Underlying: ErrDuplicateStep,
	}
}

// NewMissingDepError creates an error for a missing step dependency.
func NewMissingDepError(stepID, dependsOn string) *ConfigError {
	return &ConfigError{
		Code:       ErrCodeDependencyMissing,
		Message:    fmt.Sprintf("depends on %q which is not registered", dependsOn),
		StepID:     stepID,
		Suggestion: "Ensure every dependency names a registered step. This may indicate a missing manifest section.",
		Underlying: ErrMissingDep,
	}
}

// NewUnknownStepError creates an error for a step ID that matches nothing.
func NewUnknownStepError(stepID string) *ConfigError {
	return &ConfigError{
		Code:       ErrCodeStepUnknown,
		Message:    "does not name a step in this plan",
		StepID:     stepID,
		Suggestion: "Check the step ID for typos; 'airig plan' lists every step.",
		Underlying: ErrUnknownStep,
	}
}

// NewCyclicDependencyError creates an error naming the detected cycle.
func NewCyclicDependencyError(cycle []string) *ConfigError {
	return &ConfigError{
		Code:       ErrCodeCyclicDependency,
		Message:    fmt.Sprintf("cyclic dependency: %s", strings.Join(cycle, " -> ")),
		Suggestion: "Review step dependencies to break the circular chain.",
		Underlying: ErrCyclicDependency,
	}
}
