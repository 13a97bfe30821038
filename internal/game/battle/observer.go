package battle

import (
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// Observer is the presentation contract. Every callback runs synchronously on
// the goroutine driving the battle and must not call back into input methods.
type Observer interface {
	// TurnStarted fires after the active unit's status tick.
	TurnStarted(u *unit.Unit, tick combat.TickReport)
	// TurnOrderChanged carries the predicted upcoming turns.
	TurnOrderChanged(order []*unit.Unit)
	ForecastShown(f combat.Forecast)
	// MoveStarted fires when a move suspends the turn; path starts at the
	// unit's cell.
	MoveStarted(u *unit.Unit, path []grid.Cell)
	// UnitStepped fires each time the moving unit enters the next cell.
	UnitStepped(u *unit.Unit, to grid.Cell)
	ActionResolved(out combat.Outcome)
	UnitDied(u *unit.Unit)
	TurnEnded(u *unit.Unit)
	// GameOver fires once; winner is empty for a draw.
	GameOver(winner string)
}

// NopObserver ignores every event. Embed it to implement only some callbacks.
type NopObserver struct{}

func (NopObserver) TurnStarted(*unit.Unit, combat.TickReport) {}
func (NopObserver) TurnOrderChanged([]*unit.Unit)             {}
func (NopObserver) ForecastShown(combat.Forecast)             {}
func (NopObserver) MoveStarted(*unit.Unit, []grid.Cell)       {}
func (NopObserver) UnitStepped(*unit.Unit, grid.Cell)         {}
func (NopObserver) ActionResolved(combat.Outcome)             {}
func (NopObserver) UnitDied(*unit.Unit)                       {}
func (NopObserver) TurnEnded(*unit.Unit)                      {}
func (NopObserver) GameOver(string)                           {}

var _ Observer = NopObserver{}
