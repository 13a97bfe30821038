package action_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gridtactics/internal/game/action"
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/condition"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/turn"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

var (
	bolt = &ruleset.Skill{ID: "bolt", Name: "Bolt", Range: 3, Harmful: true, Power: 10, MPCost: 4}
	mend = &ruleset.Skill{ID: "mend", Name: "Mend", Range: 2, Power: 5, MPCost: 3, SelfTarget: true}
)

type fixture struct {
	m     *action.Machine
	sched *turn.Scheduler
	ix    *grid.Index
	hero  *unit.Unit
	foe   *unit.Unit
	ally  *unit.Unit
}

func c(x, y int) grid.Cell { return grid.Cell{X: x, Y: y} }

func newUnit(id, team string, pos grid.Cell) *unit.Unit {
	return &unit.Unit{
		ID: id, Name: id, Team: team, Pos: pos,
		CurrentHP: 20, MaxHP: 20, CurrentMP: 10, MaxMP: 10,
		Attack: 8, Defense: 3, Move: 4, Range: 1, Speed: 10,
		Effects: condition.NewActiveSet(),
	}
}

// newFixture builds a 6x6 grass field with a wall at (3,3):
// hero (blue) at (0,0), foe (red) at (1,0), ally (blue) at (0,2).
func newFixture(t require.TestingT) *fixture {
	ix := grid.NewIndex("field", 1, grid.Point{})
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			terr := grid.Terrain{Name: "grass", Walkable: true, MoveCost: 1}
			if x == 3 && y == 3 {
				terr = grid.Terrain{Name: "wall"}
			}
			require.NoError(t, ix.Place(c(x, y), terr))
		}
	}
	f := &fixture{
		ix:   ix,
		hero: newUnit("hero", "blue", c(0, 0)),
		foe:  newUnit("foe", "red", c(1, 0)),
		ally: newUnit("ally", "blue", c(0, 2)),
	}
	f.ally.CurrentHP = 10
	f.hero.Skills = []*ruleset.Skill{bolt, mend}
	f.sched = turn.NewScheduler(turn.Config{}, zap.NewNop())
	require.NoError(t, f.sched.Spawn(f.hero, f.foe, f.ally))
	f.m = action.NewMachine(ix, f.sched, zap.NewNop())
	f.sched.Subscribe(f.m)
	require.NoError(t, f.m.Activate(f.hero))
	return f
}

func (f *fixture) selectHero(t *testing.T) {
	t.Helper()
	res, err := f.m.Select(f.hero.Pos)
	require.NoError(t, err)
	require.Equal(t, action.UnitSelected, res.State)
}

func rejected(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, action.ErrRejected), "expected ErrRejected, got %v", err)
}

func TestActivate_StartsInNone(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, action.None, f.m.State())
	assert.Same(t, f.hero, f.m.Active())

	f.foe.CurrentHP = 0
	rejected(t, f.m.Activate(f.foe))
}

func TestSelect_NoneInspectsOthersAndSelectsActive(t *testing.T) {
	f := newFixture(t)
	res, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	assert.Equal(t, action.EventInspect, res.Event)
	assert.Same(t, f.foe, res.Inspected)
	assert.Equal(t, action.None, f.m.State())

	_, err = f.m.Select(c(5, 5))
	rejected(t, err)

	f.selectHero(t)
	assert.Contains(t, f.m.MoveCells(), c(0, 1))
	assert.NotContains(t, f.m.MoveCells(), f.foe.Pos)
	assert.NotContains(t, f.m.MoveCells(), c(3, 3))
	assert.Equal(t, []*unit.Unit{f.foe}, f.m.Targets())
}

func TestAttack_ForecastThenConfirm(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)

	res, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	require.Equal(t, action.ConfirmingAttack, res.State)
	require.NotNil(t, res.Forecast)
	assert.Equal(t, 5, res.Forecast.Damage)
	assert.Equal(t, "hero", res.Forecast.AttackerName)
	assert.Equal(t, "foe", res.Forecast.TargetName)
	assert.Equal(t, 20, f.foe.CurrentHP, "forecast must not mutate")

	res2, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	require.Equal(t, action.EventResolved, res2.Event)
	assert.Equal(t, *res.Forecast, res2.Outcome.Forecast)
	assert.Equal(t, 15, f.foe.CurrentHP)
	assert.True(t, f.hero.Acted)
	assert.False(t, f.m.Done(), "hero may still move")
	assert.Equal(t, action.UnitSelected, f.m.State())
	assert.Empty(t, f.m.Targets())
}

func TestAttack_OtherClickCancelsToUnitSelected(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)

	res, err := f.m.Select(c(4, 4))
	require.NoError(t, err)
	assert.Equal(t, action.UnitSelected, res.State)
	assert.Nil(t, f.m.Pending())
	assert.Nil(t, f.m.Forecast())
	assert.Equal(t, 20, f.foe.CurrentHP)
	assert.False(t, f.hero.Acted)
}

func TestMove_OutsideReachRejectedWithoutChange(t *testing.T) {
	f := newFixture(t)
	f.hero.Charge = 37
	f.selectHero(t)

	_, err := f.m.Select(c(5, 5))
	rejected(t, err)
	assert.Equal(t, c(0, 0), f.hero.Pos)
	assert.Equal(t, 37, f.hero.Charge)
	assert.False(t, f.hero.Acted)
	assert.False(t, f.hero.Moved)
	assert.Equal(t, action.UnitSelected, f.m.State())
}

func TestMove_SuspendsUntilComplete(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)

	res, err := f.m.Select(c(1, 3))
	require.NoError(t, err)
	require.Equal(t, action.EventMoveStarted, res.Event)
	assert.Equal(t, action.Moving, f.m.State())
	assert.Equal(t, c(0, 0), res.Path[0])
	assert.Equal(t, c(1, 3), res.Path[len(res.Path)-1])
	assert.NotContains(t, res.Path, f.ally.Pos)

	_, err = f.m.Cancel()
	rejected(t, err)
	_, err = f.m.Select(c(1, 1))
	rejected(t, err)

	_, err = f.m.MovementComplete()
	require.NoError(t, err)
	assert.Equal(t, c(1, 3), f.hero.Pos)
	assert.True(t, f.hero.Moved)
	assert.False(t, f.hero.Acted)
	assert.Equal(t, action.UnitSelected, f.m.State())
	assert.Empty(t, f.m.MoveCells(), "one move per turn")
}

func TestMoveThenAttackEndsTurn(t *testing.T) {
	f := newFixture(t)
	f.foe.Pos = c(2, 2)
	f.selectHero(t)
	_, err := f.m.Select(c(1, 2))
	require.NoError(t, err)
	_, err = f.m.MovementComplete()
	require.NoError(t, err)
	require.Equal(t, []*unit.Unit{f.foe}, f.m.Targets())

	_, err = f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	res, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	assert.Equal(t, action.EventResolved, res.Event)
	assert.True(t, f.m.Done())
	assert.Equal(t, action.None, f.m.State())

	_, err = f.m.Select(f.hero.Pos)
	rejected(t, err)
}

func TestSkill_PanelTargetConfirm(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)

	res, err := f.m.BeginSkill()
	require.NoError(t, err)
	assert.Equal(t, action.SelectingSkillFromPanel, res.State)

	_, err = f.m.ChooseSkill("nope")
	rejected(t, err)
	_, err = f.m.ChooseSkill("bolt")
	require.NoError(t, err)
	assert.Equal(t, action.SelectingSkillTarget, f.m.State())
	assert.Equal(t, []*unit.Unit{f.foe}, f.m.Targets())

	_, err = f.m.Select(f.ally.Pos)
	rejected(t, err)

	res, err = f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	require.Equal(t, action.ConfirmingSkill, res.State)
	assert.Equal(t, 15, res.Forecast.Damage)
	assert.Equal(t, 4, res.Forecast.MPCost)

	res2, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	assert.Equal(t, *res.Forecast, res2.Outcome.Forecast)
	assert.Equal(t, 5, f.foe.CurrentHP)
	assert.Equal(t, 6, f.hero.CurrentMP)
	assert.True(t, f.hero.Acted)
}

func TestSkill_SingleAffordableSkipsPanel(t *testing.T) {
	f := newFixture(t)
	f.hero.CurrentMP = 3
	f.selectHero(t)
	res, err := f.m.BeginSkill()
	require.NoError(t, err)
	assert.Equal(t, action.SelectingSkillTarget, res.State)
	require.NotNil(t, f.m.Skill())
	assert.Equal(t, "mend", f.m.Skill().ID)
	assert.ElementsMatch(t, []*unit.Unit{f.hero, f.ally}, f.m.Targets())

	_, err = f.m.Cancel()
	require.NoError(t, err)
	assert.Equal(t, action.UnitSelected, f.m.State(), "no panel to return to")
}

func TestSkill_NoneAffordableRejected(t *testing.T) {
	f := newFixture(t)
	f.hero.CurrentMP = 0
	f.selectHero(t)
	_, err := f.m.BeginSkill()
	rejected(t, err)
	assert.Equal(t, action.UnitSelected, f.m.State())
}

func TestSkill_OtherClickReturnsToTargetingKeepingSkill(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.BeginSkill()
	require.NoError(t, err)
	_, err = f.m.ChooseSkill("mend")
	require.NoError(t, err)
	_, err = f.m.Select(f.ally.Pos)
	require.NoError(t, err)

	res, err := f.m.Select(c(5, 0))
	require.NoError(t, err)
	assert.Equal(t, action.SelectingSkillTarget, res.State)
	assert.Equal(t, "mend", f.m.Skill().ID)
	assert.Equal(t, 10, f.ally.CurrentHP)

	res, err = f.m.Select(f.hero.Pos)
	require.NoError(t, err)
	assert.Equal(t, action.ConfirmingSkill, res.State)
	assert.Equal(t, 0, res.Forecast.Heal, "hero is at full HP")
}

func TestCancel_UnwindsOneLevelAtATime(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.BeginSkill()
	require.NoError(t, err)
	_, err = f.m.ChooseSkill("bolt")
	require.NoError(t, err)
	_, err = f.m.Select(f.foe.Pos)
	require.NoError(t, err)

	want := []action.State{
		action.SelectingSkillTarget,
		action.SelectingSkillFromPanel,
		action.UnitSelected,
		action.None,
	}
	for _, st := range want {
		res, err := f.m.Cancel()
		require.NoError(t, err)
		assert.Equal(t, st, res.State)
	}
	_, err = f.m.Cancel()
	rejected(t, err)
	assert.Equal(t, 20, f.foe.CurrentHP)
	assert.Equal(t, 10, f.hero.CurrentMP)
}

func TestCancel_ConfirmingAttackReturnsToUnitSelected(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	res, err := f.m.Cancel()
	require.NoError(t, err)
	assert.Equal(t, action.UnitSelected, res.State)
}

func TestWait_EndsTurn(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	res, err := f.m.Wait()
	require.NoError(t, err)
	assert.Equal(t, action.EventTurnEnded, res.Event)
	assert.True(t, f.hero.Acted)
	assert.True(t, f.m.Done())

	_, err = f.m.BeginSkill()
	rejected(t, err)
}

func TestWait_RejectedMidFlow(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)
	_, err = f.m.Wait()
	rejected(t, err)
	assert.False(t, f.hero.Acted)
}

func TestDeath_PendingTargetCancelsConfirmation(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)

	f.foe.CurrentHP = 0
	f.sched.Reap()
	assert.Equal(t, action.UnitSelected, f.m.State())
	assert.Nil(t, f.m.Pending())
	assert.Empty(t, f.m.Targets())
}

func TestDeath_SkillTargetReturnsToTargeting(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.BeginSkill()
	require.NoError(t, err)
	_, err = f.m.ChooseSkill("bolt")
	require.NoError(t, err)
	_, err = f.m.Select(f.foe.Pos)
	require.NoError(t, err)

	f.foe.ApplyDamage(100)
	f.sched.Reap()
	assert.Equal(t, action.SelectingSkillTarget, f.m.State())
	assert.Equal(t, "bolt", f.m.Skill().ID)
	assert.Empty(t, f.m.Targets())
}

func TestDeath_ActorResetsEverything(t *testing.T) {
	f := newFixture(t)
	f.selectHero(t)
	_, err := f.m.Select(f.foe.Pos)
	require.NoError(t, err)

	f.hero.ApplyDamage(100)
	f.sched.Reap()
	assert.Equal(t, action.None, f.m.State())
	assert.Nil(t, f.m.Active())
	assert.True(t, f.m.Done())
	_, err = f.m.Select(c(0, 0))
	rejected(t, err)
}

func TestAttackTargets_RangeAndTeams(t *testing.T) {
	a := newUnit("a", "blue", c(0, 0))
	a.Range = 2
	near := newUnit("near", "red", c(1, 1))
	far := newUnit("far", "red", c(2, 1))
	friend := newUnit("friend", "blue", c(0, 1))
	dead := newUnit("dead", "red", c(1, 0))
	dead.CurrentHP = 0
	got := action.AttackTargets(a, []*unit.Unit{a, near, far, friend, dead})
	assert.Equal(t, []*unit.Unit{near}, got)
}

// Property: a rejected input never changes the machine's state or any unit.
func TestPropertyMachine_RejectionsNeverMutate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(rt)
		for i := 0; i < 20; i++ {
			before := snapshot(f)
			var err error
			switch rapid.IntRange(0, 5).Draw(rt, "op") {
			case 0, 1:
				_, err = f.m.Select(c(rapid.IntRange(-1, 6).Draw(rt, "x"), rapid.IntRange(-1, 6).Draw(rt, "y")))
			case 2:
				_, err = f.m.Cancel()
			case 3:
				_, err = f.m.BeginSkill()
			case 4:
				_, err = f.m.ChooseSkill(rapid.SampledFrom([]string{"bolt", "mend", "nope"}).Draw(rt, "skill"))
			case 5:
				if f.m.State() == action.Moving {
					_, err = f.m.MovementComplete()
				}
			}
			if err != nil {
				if !errors.Is(err, action.ErrRejected) {
					rt.Fatalf("unexpected error type: %v", err)
				}
				if after := snapshot(f); after != before {
					rt.Fatalf("rejected input mutated state:\nbefore %+v\nafter  %+v", before, after)
				}
			}
			for _, u := range f.sched.Roster() {
				if u.CurrentHP < 0 || u.CurrentHP > u.MaxHP || u.CurrentMP < 0 || u.CurrentMP > u.MaxMP {
					rt.Fatalf("pool out of bounds for %s", u.ID)
				}
			}
			f.sched.Reap()
		}
	})
}

type state struct {
	st                    action.State
	heroPos               grid.Cell
	heroMP, foeHP, allyHP int
	acted, moved          bool
	pending               *unit.Unit
	skill                 *ruleset.Skill
	forecast              *combat.Forecast
}

func snapshot(f *fixture) state {
	return state{
		st: f.m.State(), heroPos: f.hero.Pos,
		heroMP: f.hero.CurrentMP, foeHP: f.foe.CurrentHP, allyHP: f.ally.CurrentHP,
		acted: f.hero.Acted, moved: f.hero.Moved,
		pending: f.m.Pending(), skill: f.m.Skill(), forecast: f.m.Forecast(),
	}
}
