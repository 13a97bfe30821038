package action

import (
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// AttackTargets returns the living enemies of attacker within its attack
// range, in roster order.
func AttackTargets(attacker *unit.Unit, living []*unit.Unit) []*unit.Unit {
	var out []*unit.Unit
	for _, u := range living {
		if !u.Alive() || !attacker.IsEnemy(u) {
			continue
		}
		if grid.Manhattan(attacker.Pos, u.Pos) <= attacker.Range {
			out = append(out, u)
		}
	}
	return out
}

// SkillTargets returns the living units caster may target with s: enemies
// for a harmful skill, otherwise allies, including the caster only when
// s.SelfTarget is set.
func SkillTargets(caster *unit.Unit, s *ruleset.Skill, living []*unit.Unit) []*unit.Unit {
	var out []*unit.Unit
	for _, u := range living {
		if !u.Alive() || grid.Manhattan(caster.Pos, u.Pos) > s.Range {
			continue
		}
		if s.Harmful {
			if caster.IsEnemy(u) {
				out = append(out, u)
			}
			continue
		}
		if caster.IsEnemy(u) {
			continue
		}
		if u == caster && !s.SelfTarget {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (m *Machine) attackTargets() []*unit.Unit {
	if m.active.Acted {
		return nil
	}
	return AttackTargets(m.active, m.roster.Living())
}

func (m *Machine) skillTargets(s *ruleset.Skill) []*unit.Unit {
	if s == nil {
		return nil
	}
	return SkillTargets(m.active, s, m.roster.Living())
}

func containsUnit(units []*unit.Unit, u *unit.Unit) bool {
	for _, x := range units {
		if x == u {
			return true
		}
	}
	return false
}
