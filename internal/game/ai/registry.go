package ai

import (
	"fmt"
	"sort"
)

// Registry holds one Planner per AI domain, keyed by domain ID. A battle
// builds it once and shares it across every AI-controlled unit.
type Registry struct {
	planners map[string]*Planner
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planners: make(map[string]*Planner)}
}

// Register builds domain's Planner. Lua preconditions resolve in the script
// scope named after the domain.
//
// Precondition: caller must not be nil.
// Postcondition: Returns an error for a nil domain or a duplicate domain ID.
func (r *Registry) Register(domain *Domain, caller ScriptCaller) error {
	if domain == nil {
		return fmt.Errorf("ai.Registry: domain must not be nil")
	}
	if _, dup := r.planners[domain.ID]; dup {
		return fmt.Errorf("ai.Registry: domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, caller, domain.ID)
	return nil
}

// PlannerFor returns the Planner for domainID.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	p, ok := r.planners[domainID]
	return p, ok
}

// IDs returns the registered domain IDs, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.planners))
	for id := range r.planners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
