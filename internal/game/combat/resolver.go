// Package combat resolves attacks, skills, and status-effect ticks between
// units. Every function here is deterministic: the same unit state always
// produces the same result, so a forecast is exactly what execution applies.
package combat

import (
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// MinDamage is the floor for every harmful action.
const MinDamage = 1

// BasicAttackDamage returns the damage attacker deals to defender with a
// basic attack: max(1, effective attack - effective defense).
//
// Precondition: attacker and defender must be non-nil.
// Postcondition: Returns >= MinDamage.
func BasicAttackDamage(attacker, defender *unit.Unit) int {
	return atLeastMin(attacker.EffectiveAttack() - defender.EffectiveDefense())
}

// SkillDamage returns the damage a harmful skill deals:
// max(1, effective attack + power - effective defense).
//
// Precondition: caster, target and s must be non-nil.
// Postcondition: Returns >= MinDamage when s.Harmful; 0 otherwise.
func SkillDamage(caster, target *unit.Unit, s *ruleset.Skill) int {
	if !s.Harmful {
		return 0
	}
	return atLeastMin(caster.EffectiveAttack() + s.Power - target.EffectiveDefense())
}

// SkillHeal returns the raw heal of a non-harmful skill, before capping at
// the target's missing HP.
//
// Postcondition: Returns max(0, s.Power) for non-harmful skills; 0 otherwise.
func SkillHeal(s *ruleset.Skill) int {
	if s.Harmful || s.Power < 0 {
		return 0
	}
	return s.Power
}

func atLeastMin(v int) int {
	if v < MinDamage {
		return MinDamage
	}
	return v
}
