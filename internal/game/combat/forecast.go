package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// ErrInsufficientMP is returned by ExecuteSkill when the caster cannot pay.
var ErrInsufficientMP = unit.ErrInsufficientMP

// ErrNotAlive is returned when either side of an action is already dead.
var ErrNotAlive = errors.New("combatant is not alive")

// Kind identifies the action a Forecast describes.
type Kind int

const (
	KindAttack Kind = iota
	KindSkill
)

// String returns "attack" or "skill".
func (k Kind) String() string {
	if k == KindSkill {
		return "skill"
	}
	return "attack"
}

// EffectPreview describes a status effect an action will apply.
type EffectPreview struct {
	ID    string
	Name  string
	Turns int
	Buff  bool
}

// Forecast is the read-only preview of an action. Execution applies exactly
// these numbers.
type Forecast struct {
	Kind         Kind
	AttackerID   string
	AttackerName string
	TargetID     string
	TargetName   string
	SkillID      string
	Damage       int
	Heal         int
	MPCost       int
	Effects      []EffectPreview
	// Lethal is true when Damage reduces the target to 0 HP.
	Lethal bool
}

// Outcome is the applied result of an action.
type Outcome struct {
	Forecast
	// TargetHP is the target's HP after the action.
	TargetHP int
	// CasterMP is the attacker's MP after the action.
	CasterMP int
}

// ForecastAttack previews a basic attack.
//
// Precondition: attacker and target must be non-nil.
func ForecastAttack(attacker, target *unit.Unit) Forecast {
	dmg := BasicAttackDamage(attacker, target)
	return Forecast{
		Kind:         KindAttack,
		AttackerID:   attacker.ID,
		AttackerName: attacker.Name,
		TargetID:     target.ID,
		TargetName:   target.Name,
		Damage:       dmg,
		Lethal:       dmg >= target.CurrentHP,
	}
}

// ForecastSkill previews caster using s on target. Heal is capped at the
// target's missing HP. The effect preview is included only when the target
// will survive to receive it.
//
// Precondition: caster, target and s must be non-nil.
func ForecastSkill(caster, target *unit.Unit, s *ruleset.Skill) Forecast {
	f := Forecast{
		Kind:         KindSkill,
		AttackerID:   caster.ID,
		AttackerName: caster.Name,
		TargetID:     target.ID,
		TargetName:   target.Name,
		SkillID:      s.ID,
		MPCost:       s.MPCost,
	}
	if s.Harmful {
		f.Damage = SkillDamage(caster, target, s)
		f.Lethal = f.Damage >= target.CurrentHP
	} else {
		f.Heal = SkillHeal(s)
		if missing := target.MissingHP(); f.Heal > missing {
			f.Heal = missing
		}
	}
	if s.Effect != nil && !f.Lethal && target.Alive() {
		f.Effects = []EffectPreview{{
			ID:    s.Effect.ID,
			Name:  s.Effect.Name,
			Turns: s.EffectTurns(),
			Buff:  s.Effect.Buff,
		}}
	}
	return f
}

// ExecuteAttack applies a basic attack.
//
// Postcondition: On success the target lost exactly ForecastAttack's Damage
// (floored at 0 HP). Returns ErrNotAlive without mutating anything if either
// unit is dead.
func ExecuteAttack(attacker, target *unit.Unit) (Outcome, error) {
	if !attacker.Alive() || !target.Alive() {
		return Outcome{}, fmt.Errorf("attack %s -> %s: %w", attacker.Name, target.Name, ErrNotAlive)
	}
	f := ForecastAttack(attacker, target)
	target.ApplyDamage(f.Damage)
	return Outcome{Forecast: f, TargetHP: target.CurrentHP, CasterMP: attacker.CurrentMP}, nil
}

// ExecuteSkill spends MP and applies s to target: damage or heal first, then
// the status effect if the target is still alive.
//
// Postcondition: On success the result equals ForecastSkill taken just before
// the call. Returns ErrInsufficientMP or ErrNotAlive without mutating anything.
func ExecuteSkill(caster, target *unit.Unit, s *ruleset.Skill) (Outcome, error) {
	if !caster.Alive() || !target.Alive() {
		return Outcome{}, fmt.Errorf("skill %s %s -> %s: %w", s.ID, caster.Name, target.Name, ErrNotAlive)
	}
	f := ForecastSkill(caster, target, s)
	if err := caster.SpendMP(f.MPCost); err != nil {
		return Outcome{}, fmt.Errorf("skill %s: %w", s.ID, err)
	}
	if f.Damage > 0 {
		target.ApplyDamage(f.Damage)
	}
	if f.Heal > 0 {
		target.Heal(f.Heal)
	}
	if s.Effect != nil && target.Alive() {
		if err := target.Effects.Apply(s.Effect, s.EffectTurns()); err != nil {
			return Outcome{}, fmt.Errorf("skill %s: %w", s.ID, err)
		}
	}
	return Outcome{Forecast: f, TargetHP: target.CurrentHP, CasterMP: caster.CurrentMP}, nil
}
