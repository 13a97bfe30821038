package unit_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gridtactics/internal/game/condition"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

func templates() (*ruleset.Race, *ruleset.Class) {
	race := &ruleset.Race{ID: "human", Name: "Human", Modifiers: ruleset.StatBlock{HP: 2, Attack: 1}}
	heal := &ruleset.Skill{ID: "heal", Name: "Heal", Range: 2, Power: 6, MPCost: 3}
	class := &ruleset.Class{ID: "cleric", Name: "Cleric", Modifiers: ruleset.StatBlock{MP: 4}, SkillIDs: []string{"heal"}, Skills: []*ruleset.Skill{heal}}
	return race, class
}

func spawn(t *testing.T) *unit.Unit {
	t.Helper()
	race, class := templates()
	u, err := unit.Spawn(unit.SpawnSpec{Team: "blue", Race: race, Class: class, Pos: grid.Cell{X: 1, Y: 2}})
	require.NoError(t, err)
	return u
}

func TestSpawn_CombinesTemplates(t *testing.T) {
	u := spawn(t)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Human Cleric", u.Name)
	assert.Equal(t, ruleset.BaseStats.HP+2, u.MaxHP)
	assert.Equal(t, u.MaxHP, u.CurrentHP)
	assert.Equal(t, ruleset.BaseStats.MP+4, u.MaxMP)
	assert.Equal(t, u.MaxMP, u.CurrentMP)
	assert.Equal(t, ruleset.BaseStats.Attack+1, u.Attack)
	assert.Equal(t, grid.Cell{X: 1, Y: 2}, u.Pos)
	assert.True(t, u.Alive())
	require.Len(t, u.Skills, 1)
}

func TestSpawn_UniqueIDs(t *testing.T) {
	assert.NotEqual(t, spawn(t).ID, spawn(t).ID)
}

func TestSpawn_RejectsIncompleteTemplates(t *testing.T) {
	race, class := templates()
	_, err := unit.Spawn(unit.SpawnSpec{Team: "blue", Class: class})
	assert.Error(t, err)
	_, err = unit.Spawn(unit.SpawnSpec{Team: "blue", Race: race})
	assert.Error(t, err)
	_, err = unit.Spawn(unit.SpawnSpec{Race: race, Class: class})
	assert.Error(t, err)

	unlinked := &ruleset.Class{ID: "mage", Name: "Mage", SkillIDs: []string{"fireball"}}
	_, err = unit.Spawn(unit.SpawnSpec{Team: "blue", Race: race, Class: unlinked})
	assert.Error(t, err)

	noEffect := &ruleset.Skill{ID: "dart", Name: "Dart", EffectID: "poison"}
	broken := &ruleset.Class{ID: "archer", Name: "Archer", SkillIDs: []string{"dart"}, Skills: []*ruleset.Skill{noEffect}}
	_, err = unit.Spawn(unit.SpawnSpec{Team: "blue", Race: race, Class: broken})
	assert.ErrorContains(t, err, "no effect data")
}

func TestParseControl(t *testing.T) {
	c, err := unit.ParseControl("AI")
	require.NoError(t, err)
	assert.Equal(t, unit.ControlAI, c)
	c, err = unit.ParseControl("human")
	require.NoError(t, err)
	assert.Equal(t, unit.ControlHuman, c)
	_, err = unit.ParseControl("robot")
	assert.Error(t, err)
}

func TestApplyDamage_FloorsAtZero(t *testing.T) {
	u := spawn(t)
	u.CurrentHP = 3
	assert.Equal(t, 3, u.ApplyDamage(10))
	assert.Equal(t, 0, u.CurrentHP)
	assert.False(t, u.Alive())
	assert.Equal(t, 0, u.ApplyDamage(-4))
}

func TestHeal_CapsAtMaxAndSkipsDead(t *testing.T) {
	u := spawn(t)
	u.CurrentHP = u.MaxHP - 2
	assert.Equal(t, 2, u.Heal(10))
	assert.Equal(t, u.MaxHP, u.CurrentHP)

	u.CurrentHP = 0
	assert.Equal(t, 0, u.Heal(5))
	assert.Equal(t, 0, u.CurrentHP)
}

func TestSpendMP(t *testing.T) {
	u := spawn(t)
	u.CurrentMP = 2
	err := u.SpendMP(3)
	assert.True(t, errors.Is(err, unit.ErrInsufficientMP))
	assert.Equal(t, 2, u.CurrentMP)
	require.NoError(t, u.SpendMP(2))
	assert.Equal(t, 0, u.CurrentMP)
	assert.Error(t, u.SpendMP(-1))
}

func TestEffectiveStats_ApplyModifiersWithFloor(t *testing.T) {
	u := spawn(t)
	u.Defense = 2
	u.Move = 3
	guard := &condition.EffectDef{ID: "guard", Name: "Guard", Stat: condition.StatDefense, Modifier: 3, Buff: true, Duration: 2}
	slow := &condition.EffectDef{ID: "slow", Name: "Slow", Stat: condition.StatMovement, Modifier: 5, Duration: 2}
	require.NoError(t, u.Effects.Apply(guard, 2))
	require.NoError(t, u.Effects.Apply(slow, 2))
	assert.Equal(t, 5, u.EffectiveDefense())
	assert.Equal(t, 0, u.EffectiveMove())
	assert.Equal(t, u.Attack, u.EffectiveAttack())

	v := u.View()
	assert.Equal(t, 5, v.Defense)
	require.Len(t, v.Effects, 2)
	assert.Equal(t, "guard", v.Effects[0].ID)
}

func TestAffordableSkills(t *testing.T) {
	u := spawn(t)
	u.CurrentMP = 2
	assert.Empty(t, u.AffordableSkills())
	u.CurrentMP = 3
	assert.Len(t, u.AffordableSkills(), 1)
	assert.NotNil(t, u.Skill("heal"))
	assert.Nil(t, u.Skill("fireball"))
}

func TestIsEnemy(t *testing.T) {
	a, b := spawn(t), spawn(t)
	assert.False(t, a.IsEnemy(b))
	b.Team = "red"
	assert.True(t, a.IsEnemy(b))
}

// Property: HP and MP stay within their bounds under any sequence of changes.
func TestPropertyUnit_PoolsStayInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		race, class := templates()
		u, err := unit.Spawn(unit.SpawnSpec{Team: "blue", Race: race, Class: class})
		if err != nil {
			rt.Fatal(err)
		}
		steps := rapid.IntRange(0, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			n := rapid.IntRange(-5, 40).Draw(rt, "n")
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				u.ApplyDamage(n)
			case 1:
				u.Heal(n)
			case 2:
				_ = u.SpendMP(n)
			}
			if u.CurrentHP < 0 || u.CurrentHP > u.MaxHP {
				rt.Fatalf("HP out of bounds: %d/%d", u.CurrentHP, u.MaxHP)
			}
			if u.CurrentMP < 0 || u.CurrentMP > u.MaxMP {
				rt.Fatalf("MP out of bounds: %d/%d", u.CurrentMP, u.MaxMP)
			}
		}
	})
}
