// Package step defines the provisioning step model: the Step interface,
// step identity and status, and the Registry that orders steps for a run.
package step

// Step represents one atomic, idempotent provisioning action.
// Each step can check whether its desired state already holds, describe the
// change it would make, and apply it.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() StepID

	// Description returns the human-readable purpose of the step.
	Description() string

	// DependsOn returns the IDs of steps that must complete (or be skipped
	// as already satisfied) before this one.
	DependsOn() []StepID

	// Check determines the current status of this step without side effects.
	// Returns StatusSatisfied if no action is needed, StatusNeedsApply if
	// changes are required.
	Check(ctx RunContext) (Status, error)

	// Plan returns the diff describing what changes this step will make.
	Plan(ctx RunContext) (Diff, error)

	// Apply executes the step's changes. Applying a satisfied step must be
	// a no-op.
	Apply(ctx RunContext) error

	// MutatesPaths returns the filesystem paths this step may alter.
	// The backup manager snapshots these before Apply runs. Empty for
	// steps whose state lives outside the filesystem (package databases,
	// service state).
	MutatesPaths() []string

	// Reversible reports whether restoring this step's path snapshots
	// actually undoes it. Package installs and driver changes are not
	// reversible; config file renders are.
	Reversible() bool
}
