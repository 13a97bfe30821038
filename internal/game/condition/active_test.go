package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gridtactics/internal/game/condition"
)

var (
	poisonDef = &condition.EffectDef{ID: "poison", Name: "Poison", Stat: condition.StatNone, Modifier: 3, Duration: 3}
	guardDef  = &condition.EffectDef{ID: "guard", Name: "Guard", Stat: condition.StatDefense, Modifier: 4, Buff: true, Duration: 2}
	slowDef   = &condition.EffectDef{ID: "slow", Name: "Slow", Stat: condition.StatMovement, Modifier: 1, Duration: 2}
)

func ids(effects []*condition.ActiveEffect) []string {
	out := make([]string, len(effects))
	for i, ae := range effects {
		out[i] = ae.Def.ID
	}
	return out
}

func TestActiveSet_ApplyPreservesOrder(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(guardDef, 2))
	require.NoError(t, s.Apply(poisonDef, 3))
	require.NoError(t, s.Apply(slowDef, 1))
	assert.Equal(t, []string{"guard", "poison", "slow"}, ids(s.All()))
}

func TestActiveSet_ReapplyRefreshesToMax(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisonDef, 2))
	require.NoError(t, s.Apply(guardDef, 2))

	require.NoError(t, s.Apply(poisonDef, 5))
	assert.Equal(t, 5, s.Get("poison").Remaining)
	require.NoError(t, s.Apply(poisonDef, 1))
	assert.Equal(t, 5, s.Get("poison").Remaining)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"poison", "guard"}, ids(s.All()))
}

func TestActiveSet_ApplyRejectsBadInput(t *testing.T) {
	s := condition.NewActiveSet()
	assert.Error(t, s.Apply(nil, 1))
	assert.Error(t, s.Apply(poisonDef, 0))
	assert.Equal(t, 0, s.Len())
}

func TestActiveSet_Remove(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisonDef, 2))
	require.NoError(t, s.Apply(guardDef, 2))
	s.Remove("poison")
	s.Remove("missing")
	assert.False(t, s.Has("poison"))
	assert.Equal(t, []string{"guard"}, ids(s.All()))
}

func TestActiveSet_DecrementExpires(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(guardDef, 1))
	require.NoError(t, s.Apply(poisonDef, 2))
	require.NoError(t, s.Apply(slowDef, 1))

	expired := s.Decrement()
	assert.Equal(t, []string{"guard", "slow"}, expired)
	assert.Equal(t, []string{"poison"}, ids(s.All()))
	assert.Equal(t, 1, s.Get("poison").Remaining)

	assert.Equal(t, []string{"poison"}, s.Decrement())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Decrement())
}

func TestActiveSet_CloneIsIndependent(t *testing.T) {
	s := condition.NewActiveSet()
	require.NoError(t, s.Apply(poisonDef, 3))
	cp := s.Clone()
	cp.Decrement()
	assert.Equal(t, 3, s.Get("poison").Remaining)
	assert.Equal(t, 2, cp.Get("poison").Remaining)
}

func TestPropertyActiveSet_DecrementNeverLeavesNonPositive(t *testing.T) {
	defs := []*condition.EffectDef{poisonDef, guardDef, slowDef}
	rapid.Check(t, func(rt *rapid.T) {
		s := condition.NewActiveSet()
		n := rapid.IntRange(0, 10).Draw(rt, "n")
		for i := 0; i < n; i++ {
			def := rapid.SampledFrom(defs).Draw(rt, "def")
			dur := rapid.IntRange(1, 5).Draw(rt, "dur")
			if err := s.Apply(def, dur); err != nil {
				rt.Fatalf("apply: %v", err)
			}
		}
		before := s.Len()
		expired := s.Decrement()
		assert.Equal(rt, before, s.Len()+len(expired))
		for _, ae := range s.All() {
			assert.GreaterOrEqual(rt, ae.Remaining, 1)
		}
		for _, id := range expired {
			assert.False(rt, s.Has(id))
		}
	})
}
