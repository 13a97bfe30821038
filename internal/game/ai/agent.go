package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/action"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/nav"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// StepKind names what an AI unit does next.
type StepKind int

const (
	StepWait StepKind = iota
	StepMove
	StepAttack
	StepSkill
)

// String returns the step name.
func (k StepKind) String() string {
	switch k {
	case StepWait:
		return "wait"
	case StepMove:
		return "move"
	case StepAttack:
		return "attack"
	case StepSkill:
		return "skill"
	default:
		return "unknown"
	}
}

// Step is one concrete action for the active AI unit.
type Step struct {
	Kind   StepKind
	Path   []grid.Cell // move only; starts at the unit's cell
	Target *unit.Unit  // attack and skill
	Skill  *ruleset.Skill
}

// fallbackPlan is used for units without a registered domain, or whose domain
// produced no actions.
var fallbackPlan = []PlannedAction{
	{Action: ActionAttack},
	{Action: ActionApproach},
}

// Agent turns plans into feasible steps.
type Agent struct {
	registry *Registry
	terrain  grid.TerrainSource
	logger   *zap.Logger
}

// NewAgent creates an Agent.
//
// Precondition: registry, terrain and logger must be non-nil.
func NewAgent(registry *Registry, terrain grid.TerrainSource, logger *zap.Logger) *Agent {
	if registry == nil || terrain == nil || logger == nil {
		panic("ai.NewAgent: registry, terrain and logger must not be nil")
	}
	return &Agent{registry: registry, terrain: terrain, logger: logger}
}

// Next chooses self's next step: the first feasible action of its plan. A
// unit that has already acted waits.
//
// Precondition: self must be alive; occupants reports every living unit's cell.
// Postcondition: returns a Step whose action is legal right now.
func (a *Agent) Next(self *unit.Unit, living []*unit.Unit, occupants nav.OccupantFunc) Step {
	if self.Acted {
		return Step{Kind: StepWait}
	}
	ws := BuildWorldState(self, living)
	for _, pa := range a.plan(ws) {
		if step, ok := a.realize(ws, pa, occupants); ok {
			a.logger.Debug("ai step",
				zap.String("unit", self.Name),
				zap.Stringer("kind", step.Kind),
				zap.String("action", pa.Action),
			)
			return step
		}
	}
	return Step{Kind: StepWait}
}

func (a *Agent) plan(ws *WorldState) []PlannedAction {
	p, ok := a.registry.PlannerFor(ws.Self.AIDomain)
	if !ok {
		return resolveFallback(ws)
	}
	plan, err := p.Plan(ws)
	if err != nil || len(plan) == 0 {
		return resolveFallback(ws)
	}
	return plan
}

func resolveFallback(ws *WorldState) []PlannedAction {
	out := make([]PlannedAction, len(fallbackPlan))
	copy(out, fallbackPlan)
	if e := ws.NearestEnemy(); e != nil {
		for i := range out {
			out[i].Target = e.ID
		}
	}
	return out
}

func (a *Agent) realize(ws *WorldState, pa PlannedAction, occupants nav.OccupantFunc) (Step, bool) {
	self := ws.Self
	target := ws.Find(pa.Target)
	switch pa.Action {
	case ActionWait:
		return Step{Kind: StepWait}, true
	case ActionAttack:
		if self.Acted || target == nil {
			return Step{}, false
		}
		for _, t := range action.AttackTargets(self, ws.Units) {
			if t == target {
				return Step{Kind: StepAttack, Target: target}, true
			}
		}
	case ActionCast:
		s := self.Skill(pa.Skill)
		if self.Acted || target == nil || s == nil || !self.CanAfford(s) {
			return Step{}, false
		}
		for _, t := range action.SkillTargets(self, s, ws.Units) {
			if t == target {
				return Step{Kind: StepSkill, Target: target, Skill: s}, true
			}
		}
	case ActionApproach:
		if self.Moved || target == nil {
			return Step{}, false
		}
		if path := a.Approach(self, target.Pos, occupants); len(path) >= 2 {
			return Step{Kind: StepMove, Path: path}, true
		}
	}
	return Step{}, false
}

// Approach returns a path toward goal ending on the reachable cell that
// minimises Manhattan distance to goal, breaking ties by lower path cost and
// then cell order. It returns nil unless that cell is strictly closer than
// self's current cell.
func (a *Agent) Approach(self *unit.Unit, goal grid.Cell, occupants nav.OccupantFunc) []grid.Cell {
	others := func(c grid.Cell) (string, bool) {
		id, ok := occupants(c)
		if ok && id == self.ID {
			return "", false
		}
		return id, ok
	}
	reach := nav.Reachable(a.terrain, self.Pos, self.EffectiveMove(), self.ID, occupants)
	bestD := grid.Manhattan(self.Pos, goal)
	var best []grid.Cell
	bestCost := 0
	for _, c := range reach.Sorted() {
		d := grid.Manhattan(c, goal)
		if d > bestD || (d == bestD && best == nil) {
			continue
		}
		path := nav.FindPath(a.terrain, self.Pos, c, others)
		if len(path) < 2 {
			continue
		}
		cost := nav.PathCost(a.terrain, path)
		if best == nil || d < bestD || cost < bestCost {
			best, bestD, bestCost = path, d, cost
		}
	}
	return best
}
