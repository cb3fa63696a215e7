package manifest

import (
	"fmt"
	"strings"
)

// Error codes for categorization.
const (
	ErrCodeManifestNotFound = "MANIFEST_NOT_FOUND"
	ErrCodeManifestParse    = "MANIFEST_PARSE"
	ErrCodeManifestInvalid  = "MANIFEST_INVALID"
	ErrCodeSectionInvalid   = "SECTION_INVALID"
)

// UserError represents a user-friendly manifest error with an actionable
// suggestion.
type UserError struct {
	Code       string
	Message    string
	Context    string // file path or section name
	Suggestion string
	Underlying error
}

// Error returns the formatted error message.
func (e *UserError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// Is supports errors.Is() for comparing error codes.
func (e *UserError) Is(target error) bool {
	if t, ok := target.(*UserError); ok {
		return e.Code == t.Code
	}
	return false
}

// Format returns a fully formatted error with all details.
func (e *UserError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, "\n  Location: %s", e.Context)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	return b.String()
}

// NewManifestNotFoundError creates an error for a missing manifest file.
func NewManifestNotFoundError(path string) *UserError {
	return &UserError{
		Code:       ErrCodeManifestNotFound,
		Message:    "manifest not found",
		Context:    path,
		Suggestion: "create an airig.yaml or pass --config with the manifest path",
	}
}

// NewYAMLParseError creates an error for a manifest that is not valid YAML.
func NewYAMLParseError(path string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeManifestParse,
		Message:    "manifest is not valid YAML",
		Context:    path,
		Suggestion: "check indentation and quoting near the reported line",
		Underlying: err,
	}
}

// NewSectionError creates an error for a malformed provider section.
func NewSectionError(section string, err error) *UserError {
	return &UserError{
		Code:       ErrCodeSectionInvalid,
		Message:    fmt.Sprintf("invalid %q section", section),
		Context:    section,
		Suggestion: "compare the section against the reference manifest in the README",
		Underlying: err,
	}
}
