package execution

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/airig-sh/airig/internal/domain/step"
)

// Per-step lifecycle states.
const (
	statePending   = "pending"
	stateChecking  = "checking"
	stateSatisfied = "satisfied"
	stateNeedsRun  = "needs-run"
	stateRunning   = "running"
	stateSucceeded = "succeeded"
	stateFailed    = "failed"
)

// Lifecycle events.
const (
	eventEvaluate  = "EVALUATE"
	eventSatisfied = "SATISFIED"
	eventNeedsRun  = "NEEDS_RUN"
	eventStart     = "START"
	eventSucceed   = "SUCCEED"
	eventFail      = "FAIL"
)

// lifecycleContext is the statekit context for one step's lifecycle.
type lifecycleContext struct {
	StepID string
}

// lifecycle tracks one step through
// pending -> checking -> {satisfied, needs-run} -> running -> {succeeded, failed}.
type lifecycle struct {
	interp *statekit.Interpreter[lifecycleContext]
}

// newLifecycle builds the per-step state machine.
func newLifecycle(id step.StepID) (*lifecycle, error) {
	machine, err := statekit.NewMachine[lifecycleContext]("step-lifecycle").
		WithInitial(statePending).
		WithContext(lifecycleContext{StepID: id.String()}).
		State(statePending).
		On(eventEvaluate).Target(stateChecking).Done().
		State(stateChecking).
		On(eventSatisfied).Target(stateSatisfied).
		On(eventNeedsRun).Target(stateNeedsRun).
		On(eventFail).Target(stateFailed).Done().
		State(stateSatisfied).Done().
		State(stateNeedsRun).
		On(eventStart).Target(stateRunning).
		On(eventFail).Target(stateFailed).Done().
		State(stateRunning).
		On(eventSucceed).Target(stateSucceeded).
		On(eventFail).Target(stateFailed).Done().
		State(stateSucceeded).Done().
		State(stateFailed).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build step lifecycle: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &lifecycle{interp: interp}, nil
}

// send fires an event into the machine.
func (l *lifecycle) send(event string) {
	l.interp.Send(statekit.Event{Type: statekit.EventType(event)})
}

// state returns the current lifecycle state.
func (l *lifecycle) state() string {
	return string(l.interp.State().Value)
}
