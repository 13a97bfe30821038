package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gridtactics/internal/game/condition"
)

func TestStatModifier_NilSet(t *testing.T) {
	assert.Equal(t, 0, condition.StatModifier(nil, condition.StatAttack))
	assert.Equal(t, 0, condition.DamageOverTime(nil))
}

func TestStatModifier_SumsSignedContributions(t *testing.T) {
	rally := &condition.EffectDef{ID: "rally", Name: "Rally", Stat: condition.StatDefense, Modifier: 1, Buff: true, Duration: 1}
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(guardDef, 2))
	require.NoError(t, s.Apply(rally, 2))
	require.NoError(t, s.Apply(slowDef, 2))
	require.NoError(t, s.Apply(poisonDef, 2))

	assert.Equal(t, 5, condition.StatModifier(s, condition.StatDefense))
	assert.Equal(t, -1, condition.StatModifier(s, condition.StatMovement))
	assert.Equal(t, 0, condition.StatModifier(s, condition.StatAttack))
	assert.Equal(t, 0, condition.StatModifier(s, condition.StatNone))
}

func TestDamageOverTime_OnlyDebuffsWithoutStat(t *testing.T) {
	burn := &condition.EffectDef{ID: "burn", Name: "Burn", Modifier: 2, Duration: 1}
	regen := &condition.EffectDef{ID: "regen", Name: "Regen", Modifier: 5, Buff: true, Duration: 1}
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisonDef, 1))
	require.NoError(t, s.Apply(burn, 1))
	require.NoError(t, s.Apply(regen, 1))
	require.NoError(t, s.Apply(slowDef, 1))
	assert.Equal(t, 5, condition.DamageOverTime(s))
}
