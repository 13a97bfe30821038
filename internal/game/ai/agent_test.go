package ai_test

import (
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// field returns a w x h grass map.
func field(t testing.TB, w, h int) *grid.Index {
	t.Helper()
	ix := grid.NewIndex("field", 1, grid.Point{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if err := ix.Place(cell(x, y), grid.Terrain{Name: "grass", Walkable: true, MoveCost: 1}); err != nil {
				t.Fatal(err)
			}
		}
	}
	return ix
}

func occupantsOf(units ...*unit.Unit) func(grid.Cell) (string, bool) {
	return func(c grid.Cell) (string, bool) {
		for _, u := range units {
			if u.Alive() && u.Pos == c {
				return u.ID, true
			}
		}
		return "", false
	}
}

func newAgent(t testing.TB, reg *ai.Registry) *ai.Agent {
	return ai.NewAgent(reg, field(t, 6, 6), zap.NewNop())
}

func TestAgent_Fallback_AttacksAdjacentEnemy(t *testing.T) {
	self := newUnit("orc", "red", cell(0, 0))
	foe := newUnit("knight", "blue", cell(1, 0))
	step := newAgent(t, ai.NewRegistry()).Next(self, []*unit.Unit{self, foe}, occupantsOf(self, foe))
	if step.Kind != ai.StepAttack || step.Target != foe {
		t.Fatalf("expected attack on knight, got %v", step.Kind)
	}
}

func TestAgent_Fallback_ApproachesDistantEnemy(t *testing.T) {
	self := newUnit("orc", "red", cell(0, 0))
	foe := newUnit("knight", "blue", cell(5, 0))
	step := newAgent(t, ai.NewRegistry()).Next(self, []*unit.Unit{self, foe}, occupantsOf(self, foe))
	if step.Kind != ai.StepMove {
		t.Fatalf("expected move, got %v", step.Kind)
	}
	if step.Path[0] != self.Pos || step.Path[len(step.Path)-1] != cell(3, 0) {
		t.Fatalf("expected path from (0,0) to (3,0), got %v", step.Path)
	}
}

func TestAgent_WaitsOnceActed(t *testing.T) {
	self := newUnit("orc", "red", cell(0, 0))
	foe := newUnit("knight", "blue", cell(1, 0))
	self.Acted = true
	step := newAgent(t, ai.NewRegistry()).Next(self, []*unit.Unit{self, foe}, occupantsOf(self, foe))
	if step.Kind != ai.StepWait {
		t.Fatalf("expected wait, got %v", step.Kind)
	}
}

func TestAgent_WaitsWhenMovedAndOutOfRange(t *testing.T) {
	self := newUnit("orc", "red", cell(0, 0))
	foe := newUnit("knight", "blue", cell(5, 5))
	self.Moved = true
	step := newAgent(t, ai.NewRegistry()).Next(self, []*unit.Unit{self, foe}, occupantsOf(self, foe))
	if step.Kind != ai.StepWait {
		t.Fatalf("expected wait, got %v", step.Kind)
	}
}

func TestAgent_WaitsWithoutEnemies(t *testing.T) {
	self := newUnit("orc", "red", cell(0, 0))
	step := newAgent(t, ai.NewRegistry()).Next(self, []*unit.Unit{self}, occupantsOf(self))
	if step.Kind != ai.StepWait {
		t.Fatalf("expected wait, got %v", step.Kind)
	}
}

func healerDomain() *ai.Domain {
	return &ai.Domain{
		ID:    "healer",
		Tasks: []*ai.Task{{ID: ai.RootTask}},
		Methods: []*ai.Method{
			{TaskID: ai.RootTask, ID: "patch_up", Precondition: "can_cast:mend", Subtasks: []string{"mend_weakest"}},
			{TaskID: ai.RootTask, ID: "skirmish", Subtasks: []string{"hit", "advance"}},
		},
		Operators: []*ai.Operator{
			{ID: "mend_weakest", Action: ai.ActionCast, Skill: "mend", Target: ai.TargetWeakestAlly},
			{ID: "hit", Action: ai.ActionAttack, Target: ai.TargetNearestEnemy},
			{ID: "advance", Action: ai.ActionApproach, Target: ai.TargetNearestEnemy},
		},
	}
}

func TestAgent_Domain_CastsOnWeakestAlly(t *testing.T) {
	reg := ai.NewRegistry()
	if err := reg.Register(healerDomain(), &mockScriptCaller{}); err != nil {
		t.Fatal(err)
	}
	self := newUnit("priest", "blue", cell(0, 0))
	self.AIDomain = "healer"
	self.Skills = []*ruleset.Skill{mendSkill}
	ally := newUnit("knight", "blue", cell(1, 1))
	ally.CurrentHP = 4
	foe := newUnit("orc", "red", cell(5, 5))

	step := newAgent(t, reg).Next(self, []*unit.Unit{self, ally, foe}, occupantsOf(self, ally, foe))
	if step.Kind != ai.StepSkill || step.Skill != mendSkill || step.Target != ally {
		t.Fatalf("expected mend on knight, got %v %v", step.Kind, step.Target)
	}
}

func TestAgent_Domain_InfeasibleCastFallsThroughPlan(t *testing.T) {
	reg := ai.NewRegistry()
	if err := reg.Register(healerDomain(), &mockScriptCaller{}); err != nil {
		t.Fatal(err)
	}
	self := newUnit("priest", "blue", cell(0, 0))
	self.AIDomain = "healer"
	self.Skills = []*ruleset.Skill{mendSkill}
	self.CurrentMP = 0
	foe := newUnit("orc", "red", cell(4, 0))

	step := newAgent(t, reg).Next(self, []*unit.Unit{self, foe}, occupantsOf(self, foe))
	if step.Kind != ai.StepMove {
		t.Fatalf("expected approach, got %v", step.Kind)
	}
	if end := step.Path[len(step.Path)-1]; end != cell(3, 0) {
		t.Fatalf("expected to stop adjacent at (3,0), got %v", end)
	}
}

func TestAgent_Approach_NoImprovementReturnsNil(t *testing.T) {
	self := newUnit("orc", "red", cell(0, 0))
	foe := newUnit("knight", "blue", cell(1, 0))
	if path := newAgent(t, ai.NewRegistry()).Approach(self, foe.Pos, occupantsOf(self, foe)); path != nil {
		t.Fatalf("expected no path when already adjacent, got %v", path)
	}
}

func TestAgent_Approach_TiesBreakByCellOrder(t *testing.T) {
	self := newUnit("orc", "red", cell(0, 0))
	path := newAgent(t, ai.NewRegistry()).Approach(self, cell(4, 4), occupantsOf(self))
	if len(path) == 0 || path[len(path)-1] != cell(3, 0) {
		t.Fatalf("expected row-major first of the closest cells (3,0), got %v", path)
	}
}

func TestProperty_Agent_ApproachStrictlyCloser(t *testing.T) {
	ix := field(t, 8, 8)
	agent := ai.NewAgent(ai.NewRegistry(), ix, zap.NewNop())
	rapid.Check(t, func(rt *rapid.T) {
		self := newUnit("a", "red", cell(rapid.IntRange(0, 7).Draw(rt, "sx"), rapid.IntRange(0, 7).Draw(rt, "sy")))
		goal := cell(rapid.IntRange(0, 7).Draw(rt, "gx"), rapid.IntRange(0, 7).Draw(rt, "gy"))
		path := agent.Approach(self, goal, occupantsOf(self))
		if path == nil {
			return
		}
		end := path[len(path)-1]
		if grid.Manhattan(end, goal) >= grid.Manhattan(self.Pos, goal) {
			rt.Fatalf("approach from %v ended at %v, not closer to %v", self.Pos, end, goal)
		}
		if len(path)-1 > self.Move {
			rt.Fatalf("path of %d steps exceeds move %d", len(path)-1, self.Move)
		}
	})
}
