package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airig-sh/airig/internal/domain/step"
)

func TestLifecycleHappyPath(t *testing.T) {
	lc, err := newLifecycle(step.MustNewStepID("apt:update"))
	require.NoError(t, err)

	assert.Equal(t, statePending, lc.state())
	lc.send(eventEvaluate)
	assert.Equal(t, stateChecking, lc.state())
	lc.send(eventNeedsRun)
	assert.Equal(t, stateNeedsRun, lc.state())
	lc.send(eventStart)
	assert.Equal(t, stateRunning, lc.state())
	lc.send(eventSucceed)
	assert.Equal(t, stateSucceeded, lc.state())
}

func TestLifecycleSatisfiedIsTerminal(t *testing.T) {
	lc, err := newLifecycle(step.MustNewStepID("apt:update"))
	require.NoError(t, err)

	lc.send(eventEvaluate)
	lc.send(eventSatisfied)
	assert.Equal(t, stateSatisfied, lc.state())

	// Terminal states ignore further events.
	lc.send(eventStart)
	assert.Equal(t, stateSatisfied, lc.state())
}

func TestLifecycleFailureFromAnyActiveState(t *testing.T) {
	tests := []struct {
		name   string
		events []string
	}{
		{name: "during check", events: []string{eventEvaluate, eventFail}},
		{name: "during apply", events: []string{eventEvaluate, eventNeedsRun, eventStart, eventFail}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc, err := newLifecycle(step.MustNewStepID("x"))
			require.NoError(t, err)
			for _, ev := range tt.events {
				lc.send(ev)
			}
			assert.Equal(t, stateFailed, lc.state())
		})
	}
}

func TestLifecycleRejectsOutOfOrderEvents(t *testing.T) {
	lc, err := newLifecycle(step.MustNewStepID("x"))
	require.NoError(t, err)

	// Apply cannot start before the check ran.
	lc.send(eventStart)
	assert.Equal(t, statePending, lc.state())
}
