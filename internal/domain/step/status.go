package step

// Status represents the evaluated state of a step.
type Status string

const (
	// StatusSatisfied indicates the step's desired state already holds.
	StatusSatisfied Status = "satisfied"
	// StatusNeedsApply indicates the step needs to be applied.
	StatusNeedsApply Status = "needs-apply"
	// StatusUnknown indicates the step's state could not be determined.
	StatusUnknown Status = "unknown"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Satisfied reports whether the step can be skipped.
func (s Status) Satisfied() bool {
	return s == StatusSatisfied
}
