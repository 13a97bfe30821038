// Package action implements the state machine that governs a human-controlled
// unit's turn: selection, movement, attack and skill targeting, confirmation,
// and cancellation.
package action

import (
	"errors"

	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// ErrRejected wraps every illegal input. A rejected input never changes state.
var ErrRejected = errors.New("action rejected")

// State is the machine's current interaction phase.
type State int

const (
	None State = iota
	UnitSelected
	Moving
	SelectingSkillFromPanel
	SelectingSkillTarget
	ConfirmingAttack
	ConfirmingSkill
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case None:
		return "none"
	case UnitSelected:
		return "unit_selected"
	case Moving:
		return "moving"
	case SelectingSkillFromPanel:
		return "selecting_skill_from_panel"
	case SelectingSkillTarget:
		return "selecting_skill_target"
	case ConfirmingAttack:
		return "confirming_attack"
	case ConfirmingSkill:
		return "confirming_skill"
	default:
		return "unknown"
	}
}

// Event names what an accepted input produced.
type Event int

const (
	// EventStateChanged is a plain transition (selection, cancel, skill choice).
	EventStateChanged Event = iota
	// EventInspect reports a unit the player looked at without selecting it.
	EventInspect
	// EventMoveStarted suspends the turn until MovementComplete.
	EventMoveStarted
	// EventForecast entered a confirmation state.
	EventForecast
	// EventResolved applied an attack or skill.
	EventResolved
	// EventTurnEnded is returned by Wait.
	EventTurnEnded
)

// Result describes an accepted input.
type Result struct {
	Event     Event
	State     State
	Path      []grid.Cell
	Forecast  *combat.Forecast
	Outcome   *combat.Outcome
	Inspected *unit.Unit
}
