// Package unit holds per-unit mutable battle state.
package unit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/gridtactics/internal/game/condition"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
)

// ErrInsufficientMP is returned when a unit cannot pay an MP cost.
var ErrInsufficientMP = errors.New("insufficient MP")

// Control names who decides a unit's actions.
type Control int

const (
	ControlHuman Control = iota
	ControlAI
)

// String returns the configuration spelling of c.
func (c Control) String() string {
	if c == ControlAI {
		return "ai"
	}
	return "human"
}

// ParseControl converts "human" or "ai" into a Control.
func ParseControl(s string) (Control, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human", "player":
		return ControlHuman, nil
	case "ai":
		return ControlAI, nil
	default:
		return ControlHuman, fmt.Errorf("unknown control %q", s)
	}
}

// Unit is a live combatant. The turn scheduler owns every Unit; other
// components hold non-owning pointers into its roster.
type Unit struct {
	// ID uniquely identifies this unit for the lifetime of the battle.
	ID string
	// Name is the display name.
	Name string
	// Team groups allies; units on different teams are enemies.
	Team string
	// Control is who chooses this unit's actions.
	Control Control
	// RaceID and ClassID name the templates the unit was built from.
	RaceID  string
	ClassID string
	// AIDomain is the HTN domain ID used when Control is ControlAI.
	AIDomain string

	Pos grid.Cell

	CurrentHP int
	MaxHP     int
	CurrentMP int
	MaxMP     int

	Attack  int
	Defense int
	Move    int
	Range   int
	Speed   int

	// Charge accumulates Speed each scheduler tick; the unit acts at the threshold.
	Charge int
	// Acted is set once per turn by an attack, a skill, or waiting.
	Acted bool
	// Moved is set once the unit has moved this turn.
	Moved bool

	Effects *condition.ActiveSet
	Skills  []*ruleset.Skill
}

// SpawnSpec describes a unit to create from templates.
type SpawnSpec struct {
	Name     string
	Team     string
	Control  Control
	Race     *ruleset.Race
	Class    *ruleset.Class
	Pos      grid.Cell
	AIDomain string
}

// Spawn builds a unit at full HP and MP from spec's race and class.
//
// Precondition: spec.Race and spec.Class must be non-nil; spec.Team must be non-empty.
// Postcondition: Returns a unit with a fresh uuid, CurrentHP == MaxHP and
// CurrentMP == MaxMP, or an error if any template data is missing. Every
// skill that names an effect must have it linked.
func Spawn(spec SpawnSpec) (*Unit, error) {
	if spec.Race == nil {
		return nil, fmt.Errorf("spawning %q: race template is missing", spec.Name)
	}
	if spec.Class == nil {
		return nil, fmt.Errorf("spawning %q: class template is missing", spec.Name)
	}
	if spec.Team == "" {
		return nil, fmt.Errorf("spawning %q: team must not be empty", spec.Name)
	}
	if len(spec.Class.Skills) != len(spec.Class.SkillIDs) {
		return nil, fmt.Errorf("spawning %q: class %q skills are not linked", spec.Name, spec.Class.ID)
	}
	for _, s := range spec.Class.Skills {
		if s.EffectID != "" && s.Effect == nil {
			return nil, fmt.Errorf("spawning %q: skill %q has no effect data for %q", spec.Name, s.ID, s.EffectID)
		}
	}
	name := spec.Name
	if name == "" {
		name = spec.Race.Name + " " + spec.Class.Name
	}
	stats := ruleset.Combine(spec.Race, spec.Class)
	skills := make([]*ruleset.Skill, len(spec.Class.Skills))
	copy(skills, spec.Class.Skills)
	return &Unit{
		ID:        uuid.NewString(),
		Name:      name,
		Team:      spec.Team,
		Control:   spec.Control,
		RaceID:    spec.Race.ID,
		ClassID:   spec.Class.ID,
		AIDomain:  spec.AIDomain,
		Pos:       spec.Pos,
		CurrentHP: stats.HP,
		MaxHP:     stats.HP,
		CurrentMP: stats.MP,
		MaxMP:     stats.MP,
		Attack:    stats.Attack,
		Defense:   stats.Defense,
		Move:      stats.Move,
		Range:     stats.Range,
		Speed:     stats.Speed,
		Effects:   condition.NewActiveSet(),
		Skills:    skills,
	}, nil
}

// Alive reports whether the unit has HP remaining. A dead unit is excluded
// from targeting, movement, and turn selection.
func (u *Unit) Alive() bool { return u.CurrentHP > 0 }

// ApplyDamage reduces CurrentHP by n, flooring at 0.
//
// Precondition: n >= 0.
// Postcondition: Returns the HP actually removed.
func (u *Unit) ApplyDamage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > u.CurrentHP {
		n = u.CurrentHP
	}
	u.CurrentHP -= n
	return n
}

// Heal raises CurrentHP by n, capped at MaxHP. Dead units cannot be healed.
//
// Postcondition: Returns the HP actually restored.
func (u *Unit) Heal(n int) int {
	if n <= 0 || !u.Alive() {
		return 0
	}
	if missing := u.MaxHP - u.CurrentHP; n > missing {
		n = missing
	}
	u.CurrentHP += n
	return n
}

// MissingHP returns MaxHP - CurrentHP.
func (u *Unit) MissingHP() int { return u.MaxHP - u.CurrentHP }

// SpendMP deducts n MP.
//
// Postcondition: Returns ErrInsufficientMP and leaves CurrentMP unchanged if
// n > CurrentMP.
func (u *Unit) SpendMP(n int) error {
	if n < 0 {
		return fmt.Errorf("SpendMP: negative cost %d", n)
	}
	if n > u.CurrentMP {
		return fmt.Errorf("%s needs %d MP, has %d: %w", u.Name, n, u.CurrentMP, ErrInsufficientMP)
	}
	u.CurrentMP -= n
	return nil
}

// EffectiveAttack returns Attack plus attack effect modifiers, floored at 0.
func (u *Unit) EffectiveAttack() int {
	return floor0(u.Attack + condition.StatModifier(u.Effects, condition.StatAttack))
}

// EffectiveDefense returns Defense plus defense effect modifiers, floored at 0.
func (u *Unit) EffectiveDefense() int {
	return floor0(u.Defense + condition.StatModifier(u.Effects, condition.StatDefense))
}

// EffectiveMove returns Move plus movement effect modifiers, floored at 0.
func (u *Unit) EffectiveMove() int {
	return floor0(u.Move + condition.StatModifier(u.Effects, condition.StatMovement))
}

// IsEnemy reports whether o is on a different team.
func (u *Unit) IsEnemy(o *Unit) bool { return u.Team != o.Team }

// CanAfford reports whether the unit has the MP to cast s.
func (u *Unit) CanAfford(s *ruleset.Skill) bool { return s.MPCost <= u.CurrentMP }

// AffordableSkills returns the skills the unit can currently pay for, in class order.
func (u *Unit) AffordableSkills() []*ruleset.Skill {
	var out []*ruleset.Skill
	for _, s := range u.Skills {
		if u.CanAfford(s) {
			out = append(out, s)
		}
	}
	return out
}

// Skill returns the unit's skill with id, or nil.
func (u *Unit) Skill(id string) *ruleset.Skill {
	for _, s := range u.Skills {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// BeginTurn clears the per-turn flags.
func (u *Unit) BeginTurn() {
	u.Acted = false
	u.Moved = false
}

// String returns "Name(team)".
func (u *Unit) String() string {
	return fmt.Sprintf("%s(%s)", u.Name, u.Team)
}

func floor0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
