// Package execution plans and runs steps: it evaluates satisfaction
// predicates, interposes backups before mutation, applies steps one at a
// time, and converts every outcome into an execution record.
package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/airig-sh/airig/internal/domain/backup"
	"github.com/airig-sh/airig/internal/domain/step"
)

// ErrorKind categorizes a step execution failure. None of these are
// swallowed: every failure surfaces as a typed, recorded outcome.
type ErrorKind string

const (
	// KindToolMissing indicates the external tool was not found.
	KindToolMissing ErrorKind = "tool-missing"
	// KindToolFailed indicates the external tool ran and exited non-zero.
	KindToolFailed ErrorKind = "tool-failed"
	// KindPermissionDenied indicates insufficient privileges.
	KindPermissionDenied ErrorKind = "permission-denied"
	// KindTimeout indicates the step exceeded its configured timeout.
	KindTimeout ErrorKind = "timeout"
	// KindBackup indicates the pre-apply snapshot failed; the step was
	// not attempted.
	KindBackup ErrorKind = "backup"
	// KindCheck indicates the satisfaction predicate itself failed.
	KindCheck ErrorKind = "check"
)

// StepError is a typed step execution failure.
type StepError struct {
	Kind   ErrorKind
	StepID step.StepID
	Err    error
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %s: %v", e.StepID.String(), e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Classify wraps err in a StepError with the kind inferred from the error
// chain.
func Classify(stepID step.StepID, err error) *StepError {
	kind := KindToolFailed
	var ce *checkError
	switch {
	case errors.As(err, &ce):
		kind = KindCheck
	case isToolMissing(err):
		kind = KindToolMissing
	case errors.Is(err, os.ErrPermission):
		kind = KindPermissionDenied
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, backup.ErrBackupIO):
		kind = KindBackup
	}
	return &StepError{Kind: kind, StepID: stepID, Err: err}
}

// isToolMissing reports whether an error indicates a missing executable.
func isToolMissing(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var execErr *exec.Error
	return errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}
