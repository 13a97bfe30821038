package ai

import (
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
	"github.com/cory-johannsen/gridtactics/internal/scripting"
)

// BuildWorldState snapshots the living roster for self.
//
// Precondition: self must not be nil.
// Postcondition: later roster changes do not alter ws.Units membership.
func BuildWorldState(self *unit.Unit, living []*unit.Unit) *WorldState {
	ws := &WorldState{Self: self}
	for _, u := range living {
		if u.Alive() {
			ws.Units = append(ws.Units, u)
		}
	}
	return ws
}

// UnitInfo converts u into the snapshot handed to Lua scripts.
func UnitInfo(u *unit.Unit) *scripting.UnitInfo {
	info := &scripting.UnitInfo{
		ID:    u.ID,
		Name:  u.Name,
		Team:  u.Team,
		HP:    u.CurrentHP,
		MaxHP: u.MaxHP,
		MP:    u.CurrentMP,
		MaxMP: u.MaxMP,
		X:     u.Pos.X,
		Y:     u.Pos.Y,
		Range: u.Range,
	}
	if u.Effects != nil {
		for _, e := range u.Effects.All() {
			info.Effects = append(info.Effects, e.Def.ID)
		}
	}
	return info
}

// BindScripts wires mgr's engine.* callbacks to the roster returned by
// living. living is consulted on every call so scripts always see the
// current battle.
//
// Precondition: mgr and living must not be nil.
func BindScripts(mgr *scripting.Manager, living func() []*unit.Unit) {
	find := func(id string) *unit.Unit {
		for _, u := range living() {
			if u.ID == id {
				return u
			}
		}
		return nil
	}
	mgr.GetUnit = func(id string) *scripting.UnitInfo {
		if u := find(id); u != nil {
			return UnitInfo(u)
		}
		return nil
	}
	mgr.Distance = func(a, b string) (int, bool) {
		ua, ub := find(a), find(b)
		if ua == nil || ub == nil {
			return 0, false
		}
		return grid.Manhattan(ua.Pos, ub.Pos), true
	}
	mgr.Enemies = func(id string) []string {
		self := find(id)
		if self == nil {
			return nil
		}
		var out []string
		for _, e := range BuildWorldState(self, living()).Enemies() {
			out = append(out, e.ID)
		}
		return out
	}
	mgr.Allies = func(id string) []string {
		self := find(id)
		if self == nil {
			return nil
		}
		var out []string
		for _, a := range BuildWorldState(self, living()).Allies() {
			out = append(out, a.ID)
		}
		return out
	}
}
