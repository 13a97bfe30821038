package unit

import "github.com/cory-johannsen/gridtactics/internal/game/grid"

// EffectView is a read-only snapshot of one active effect.
type EffectView struct {
	ID        string
	Name      string
	Remaining int
	Buff      bool
}

// View is a read-only snapshot of a unit's display stats for presentation.
type View struct {
	ID        string
	Name      string
	Team      string
	Pos       grid.Cell
	HP, MaxHP int
	MP, MaxMP int
	Attack    int
	Defense   int
	Move      int
	Range     int
	Speed     int
	Charge    int
	Acted     bool
	Effects   []EffectView
}

// View snapshots u. Attack, Defense and Move are effective values.
func (u *Unit) View() View {
	v := View{
		ID:      u.ID,
		Name:    u.Name,
		Team:    u.Team,
		Pos:     u.Pos,
		HP:      u.CurrentHP,
		MaxHP:   u.MaxHP,
		MP:      u.CurrentMP,
		MaxMP:   u.MaxMP,
		Attack:  u.EffectiveAttack(),
		Defense: u.EffectiveDefense(),
		Move:    u.EffectiveMove(),
		Range:   u.Range,
		Speed:   u.Speed,
		Charge:  u.Charge,
		Acted:   u.Acted,
	}
	for _, ae := range u.Effects.All() {
		v.Effects = append(v.Effects, EffectView{
			ID:        ae.Def.ID,
			Name:      ae.Def.Name,
			Remaining: ae.Remaining,
			Buff:      ae.Def.Buff,
		})
	}
	return v
}
