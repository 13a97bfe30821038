package ai

import (
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// WorldState is the snapshot passed to the HTN planner for one unit.
//
// Invariant: Self must not be nil; Units holds only living units, in roster
// order, and includes Self.
type WorldState struct {
	Self  *unit.Unit
	Units []*unit.Unit
}

func hpPercent(u *unit.Unit) float64 {
	if u.MaxHP <= 0 {
		return 0
	}
	return float64(u.CurrentHP) / float64(u.MaxHP) * 100
}

// Wounded reports whether u is below half its maximum HP.
func Wounded(u *unit.Unit) bool {
	return hpPercent(u) < 50
}

// Enemies returns the living units on a different team from Self.
func (ws *WorldState) Enemies() []*unit.Unit {
	var out []*unit.Unit
	for _, u := range ws.Units {
		if ws.Self.IsEnemy(u) {
			out = append(out, u)
		}
	}
	return out
}

// Allies returns Self's living teammates, excluding Self.
func (ws *WorldState) Allies() []*unit.Unit {
	var out []*unit.Unit
	for _, u := range ws.Units {
		if u != ws.Self && !ws.Self.IsEnemy(u) {
			out = append(out, u)
		}
	}
	return out
}

// HasLivingEnemies returns true when at least one living enemy exists.
func (ws *WorldState) HasLivingEnemies() bool {
	return len(ws.Enemies()) > 0
}

// NearestEnemy returns the living enemy closest to Self by Manhattan
// distance, or nil.
//
// Postcondition: ties broken by roster order.
func (ws *WorldState) NearestEnemy() *unit.Unit {
	var best *unit.Unit
	bestD := 0
	for _, e := range ws.Enemies() {
		d := grid.Manhattan(ws.Self.Pos, e.Pos)
		if best == nil || d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

// WeakestEnemy returns the living enemy with the lowest HP percentage, or nil.
//
// Postcondition: ties broken by roster order.
func (ws *WorldState) WeakestEnemy() *unit.Unit {
	return weakest(ws.Enemies())
}

// WeakestAlly returns the teammate, Self included, with the lowest HP
// percentage.
func (ws *WorldState) WeakestAlly() *unit.Unit {
	return weakest(append([]*unit.Unit{ws.Self}, ws.Allies()...))
}

func weakest(units []*unit.Unit) *unit.Unit {
	var out *unit.Unit
	for _, u := range units {
		if out == nil || hpPercent(u) < hpPercent(out) {
			out = u
		}
	}
	return out
}

// ResolveTarget maps a target selector to a unit. Unknown or empty selectors
// resolve to nil.
func (ws *WorldState) ResolveTarget(token string) *unit.Unit {
	switch token {
	case TargetNearestEnemy:
		return ws.NearestEnemy()
	case TargetWeakestEnemy:
		return ws.WeakestEnemy()
	case TargetWeakestAlly:
		return ws.WeakestAlly()
	case TargetSelf:
		return ws.Self
	default:
		return nil
	}
}

// Find returns the living unit with id, or nil.
func (ws *WorldState) Find(id string) *unit.Unit {
	for _, u := range ws.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}
