package execution

import (
	"context"
	"fmt"

	"github.com/airig-sh/airig/internal/domain/step"
)

// Planner generates a Plan from a step Registry by resolving dependency
// order and checking each step's current status.
type Planner struct{}

// NewPlanner creates a new Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan resolves the registry into dependency order and evaluates every
// step's satisfaction predicate. Configuration errors (cycles, duplicates,
// missing dependencies) surface here, before any execution.
func (p *Planner) Plan(ctx context.Context, registry *step.Registry) (*Plan, error) {
	steps, err := registry.ResolveOrder()
	if err != nil {
		return nil, err
	}

	plan := NewPlan()
	runCtx := step.NewRunContext(ctx)

	for _, s := range steps {
		entry, err := p.planStep(s, runCtx)
		if err != nil {
			return nil, fmt.Errorf("plan step %q: %w", s.ID().String(), err)
		}
		plan.Add(entry)
	}

	return plan, nil
}

// planStep checks a single step and generates a PlanEntry.
func (p *Planner) planStep(s step.Step, ctx step.RunContext) (PlanEntry, error) {
	status, err := s.Check(ctx)
	if err != nil {
		// A failing check is not fatal at plan time; the step's state is
		// unknown until execution re-evaluates it.
		return NewPlanEntry(s, step.StatusUnknown, step.Diff{}), nil
	}

	var diff step.Diff
	if status == step.StatusNeedsApply {
		diff, err = s.Plan(ctx)
		if err != nil {
			return PlanEntry{}, fmt.Errorf("diff failed: %w", err)
		}
	}

	return NewPlanEntry(s, status, diff), nil
}
