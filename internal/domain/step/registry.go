package step

// Registry holds the ordered, named set of steps selected for a run and
// resolves their execution order.
//
// Registration order matters: steps with no ordering constraint between them
// are emitted in registration order, so ResolveOrder is deterministic for a
// given manifest.
type Registry struct {
	steps      map[string]Step
	order      []string            // registration order of step IDs
	dependsOn  map[string][]string // step ID -> dependency IDs
	dependedBy map[string][]string // step ID -> dependent IDs
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		steps:      make(map[string]Step),
		order:      make([]string, 0),
		dependsOn:  make(map[string][]string),
		dependedBy: make(map[string][]string),
	}
}

// Len returns the number of registered steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Register adds a step. Returns a ConfigError wrapping ErrDuplicateStep if a
// step with the same ID is already registered.
func (r *Registry) Register(s Step) error {
	id := s.ID().String()

	if _, exists := r.steps[id]; exists {
		return NewDuplicateStepError(id)
	}

	r.steps[id] = s
	r.order = append(r.order, id)

	deps := s.DependsOn()
	depIDs := make([]string, len(deps))
	for i, dep := range deps {
		depID := dep.String()
		depIDs[i] = depID
		r.dependedBy[depID] = append(r.dependedBy[depID], id)
	}
	r.dependsOn[id] = depIDs

	return nil
}

// Get retrieves a step by ID.
func (r *Registry) Get(id StepID) (Step, bool) {
	s, ok := r.steps[id.String()]
	return s, ok
}

// Steps returns all registered steps in registration order.
func (r *Registry) Steps() []Step {
	steps := make([]Step, 0, len(r.order))
	for _, id := range r.order {
		steps = append(steps, r.steps[id])
	}
	return steps
}

// Validate checks that every declared dependency names a registered step.
func (r *Registry) Validate() error {
	for _, id := range r.order {
		for _, depID := range r.dependsOn[id] {
			if _, exists := r.steps[depID]; !exists {
				return NewMissingDepError(id, depID)
			}
		}
	}
	return nil
}

// ResolveOrder returns steps in dependency order via topological sort.
// Steps with no ordering constraint between them keep registration order.
// Returns a ConfigError wrapping ErrMissingDep for unknown dependencies and
// ErrCyclicDependency (naming the cycle) when the graph is not a DAG.
func (r *Registry) ResolveOrder() ([]Step, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	// Kahn's algorithm, always taking the ready step that was registered
	// earliest so the output is stable.
	regIndex := make(map[string]int, len(r.order))
	for i, id := range r.order {
		regIndex[id] = i
	}

	inDegree := make(map[string]int, len(r.steps))
	for _, id := range r.order {
		inDegree[id] = len(r.dependsOn[id])
	}

	ready := make([]string, 0)
	for _, id := range r.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	sorted := make([]Step, 0, len(r.steps))

	for len(ready) > 0 {
		// Pick the earliest-registered ready step.
		best := 0
		for i := 1; i < len(ready); i++ {
			if regIndex[ready[i]] < regIndex[ready[best]] {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)

		sorted = append(sorted, r.steps[id])

		for _, dependentID := range r.dependedBy[id] {
			if _, exists := r.steps[dependentID]; !exists {
				continue
			}
			inDegree[dependentID]--
			if inDegree[dependentID] == 0 {
				ready = append(ready, dependentID)
			}
		}
	}

	if len(sorted) != len(r.steps) {
		return nil, NewCyclicDependencyError(r.findCycle(inDegree))
	}

	return sorted, nil
}

// Subset returns a new Registry containing the named steps plus all of their
// transitive dependencies, preserving registration order.
func (r *Registry) Subset(ids []StepID) (*Registry, error) {
	keep := make(map[string]bool)
	var mark func(id string) error
	mark = func(id string) error {
		if keep[id] {
			return nil
		}
		if _, exists := r.steps[id]; !exists {
			return NewMissingDepError(id, id)
		}
		keep[id] = true
		for _, depID := range r.dependsOn[id] {
			if err := mark(depID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range ids {
		if err := mark(id.String()); err != nil {
			return nil, err
		}
	}

	sub := NewRegistry()
	for _, id := range r.order {
		if keep[id] {
			if err := sub.Register(r.steps[id]); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

// findCycle walks the unresolved remainder of the graph and returns one
// concrete cycle as a list of step IDs, closed (first element repeated last).
func (r *Registry) findCycle(inDegree map[string]int) []string {
	remaining := make(map[string]bool)
	for id, deg := range inDegree {
		if deg > 0 {
			remaining[id] = true
		}
	}

	for _, start := range r.order {
		if !remaining[start] {
			continue
		}

		// Follow dependency edges within the remainder until a node repeats.
		seen := make(map[string]int)
		path := []string{}
		cur := start
		for {
			if pos, ok := seen[cur]; ok {
				cycle := append([]string{}, path[pos:]...)
				cycle = append(cycle, cur)
				return cycle
			}
			seen[cur] = len(path)
			path = append(path, cur)

			next := ""
			for _, depID := range r.dependsOn[cur] {
				if remaining[depID] {
					next = depID
					break
				}
			}
			if next == "" {
				break
			}
			cur = next
		}
	}

	return nil
}
