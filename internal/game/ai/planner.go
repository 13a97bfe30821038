package ai

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/gridtactics/internal/game/action"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
)

const (
	canCastPrefix  = "can_cast:"
	negationPrefix = "not:"
)

// ScriptCaller is the interface required by the Planner to evaluate Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	Action string
	Skill  string // cast only
	Target string // resolved unit ID; empty when the selector found nobody
}

// Planner evaluates an HTN domain for a single unit and produces an ordered
// action plan for its current turn.
//
// Invariant: domain and caller must not be nil.
type Planner struct {
	domain *Domain
	caller ScriptCaller
	scope  string
}

// NewPlanner constructs a Planner.
//
// Precondition: domain and caller must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, scope string) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if caller == nil {
		panic("ai.NewPlanner: caller must not be nil")
	}
	return &Planner{domain: domain, caller: caller, scope: scope}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan evaluates the HTN domain against state and returns an ordered plan.
//
// Precondition: state and state.Self must not be nil.
// Postcondition: returns non-nil slice (may be empty); Lua failures are
// treated as precondition-false.
func (p *Planner) Plan(state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.Self == nil {
		return nil, fmt.Errorf("ai.Planner.Plan: state and state.Self must not be nil")
	}

	taskQueue := []string{RootTask}
	result := []PlannedAction{}

	const maxDepth = 32
	steps := 0

	for len(taskQueue) > 0 && steps < maxDepth {
		steps++
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			pa := PlannedAction{Action: op.Action, Skill: op.Skill}
			if t := state.ResolveTarget(op.Target); t != nil {
				pa.Target = t.ID
			}
			result = append(result, pa)
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}

		next := make([]string, 0, len(method.Subtasks)+len(taskQueue))
		next = append(next, method.Subtasks...)
		taskQueue = append(next, taskQueue...)
	}
	return result, nil
}

// findApplicableMethod returns the first Method for taskID whose precondition
// passes, or nil if none applies.
func (p *Planner) findApplicableMethod(taskID string, state *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if p.Check(m.Precondition, state) {
			return m
		}
	}
	return nil
}

// Check evaluates a precondition. Built-in predicates are answered from the
// world state; a "not:" prefix negates; any other name is a Lua hook called
// with Self's ID.
//
// Postcondition: an empty name is true; an undefined or failing hook is false.
func (p *Planner) Check(name string, state *WorldState) bool {
	if name == "" {
		return true
	}
	if inner, ok := strings.CutPrefix(name, negationPrefix); ok {
		return !p.Check(inner, state)
	}
	if v, ok := builtin(name, state); ok {
		return v
	}
	val, err := p.caller.CallHook(p.scope, name, lua.LString(state.Self.ID))
	if err != nil {
		return false
	}
	return val == lua.LTrue
}

func builtin(name string, ws *WorldState) (value, known bool) {
	self := ws.Self
	switch name {
	case "has_enemy":
		return ws.HasLivingEnemies(), true
	case "enemy_in_range":
		for _, e := range ws.Enemies() {
			if grid.Manhattan(self.Pos, e.Pos) <= self.Range {
				return true, true
			}
		}
		return false, true
	case "wounded":
		return Wounded(self), true
	case "ally_wounded":
		for _, a := range ws.Allies() {
			if Wounded(a) {
				return true, true
			}
		}
		return false, true
	}
	if id, ok := strings.CutPrefix(name, canCastPrefix); ok {
		s := self.Skill(id)
		if s == nil || !self.CanAfford(s) {
			return false, true
		}
		return len(action.SkillTargets(self, s, ws.Units)) > 0, true
	}
	return false, false
}
