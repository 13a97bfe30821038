package combat

import (
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// EffectHit records damage dealt by one damage-over-time effect.
type EffectHit struct {
	EffectID string
	Damage   int
}

// TickReport is the result of one status-effect tick on a unit.
type TickReport struct {
	UnitID  string
	Hits    []EffectHit
	Damage  int
	Expired []string
	Died    bool
}

// TickStatusEffects runs the start-of-turn tick for u. Damage-over-time
// effects deal their modifier first, in application order; if that kills the
// unit the tick stops there. Otherwise every effect then loses one turn and
// those at zero are removed, so a one-turn effect both hits and expires here.
//
// Precondition: u must be non-nil.
// Postcondition: If Died is false, every remaining effect has Remaining >= 1.
func TickStatusEffects(u *unit.Unit) TickReport {
	r := TickReport{UnitID: u.ID}
	if !u.Alive() {
		r.Died = true
		return r
	}
	for _, ae := range u.Effects.All() {
		if !ae.Def.IsDamageOverTime() {
			continue
		}
		dealt := u.ApplyDamage(ae.Def.Modifier)
		r.Hits = append(r.Hits, EffectHit{EffectID: ae.Def.ID, Damage: dealt})
		r.Damage += dealt
		if !u.Alive() {
			r.Died = true
			return r
		}
	}
	r.Expired = u.Effects.Decrement()
	return r
}
