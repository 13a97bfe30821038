package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/action"
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// Select forwards a resolved grid cell to the action state machine.
//
// Precondition: a human-controlled unit must be awaiting input.
// Postcondition: A rejected input changes nothing and wraps action.ErrRejected.
func (b *Battle) Select(c grid.Cell) error {
	return b.input(func() (action.Result, error) { return b.machine.Select(c) })
}

// Cancel unwinds the action state machine one level.
func (b *Battle) Cancel() error {
	return b.input(b.machine.Cancel)
}

// BeginSkill opens skill selection for the selected unit.
func (b *Battle) BeginSkill() error {
	return b.input(b.machine.BeginSkill)
}

// ChooseSkill picks a skill from the open skill panel.
func (b *Battle) ChooseSkill(id string) error {
	return b.input(func() (action.Result, error) { return b.machine.ChooseSkill(id) })
}

// Wait ends the active unit's turn.
func (b *Battle) Wait() error {
	return b.input(b.machine.Wait)
}

func (b *Battle) input(fn func() (action.Result, error)) error {
	switch {
	case b.phase == PhaseOver:
		return ErrGameOver
	case b.phase != PhaseAwaitingInput || b.current == nil || b.current.Control != unit.ControlHuman:
		return ErrNotAwaitingInput
	}
	res, err := fn()
	if err != nil {
		return err
	}
	b.handle(res)
	if b.phase == PhaseRunning {
		b.Advance()
	}
	return nil
}

// handle applies the consequences of an accepted human input.
func (b *Battle) handle(res action.Result) {
	switch res.Event {
	case action.EventForecast:
		b.observer.ForecastShown(*res.Forecast)
	case action.EventMoveStarted:
		b.startMove(res.Path, b.afterHumanStep)
	case action.EventResolved:
		b.resolved(*res.Outcome)
		if b.phase != PhaseOver && b.machine.Done() {
			b.endTurn()
		}
	case action.EventTurnEnded:
		b.record(b.current, "wait", "", 0)
		b.endTurn()
	}
}

func (b *Battle) afterHumanStep() {
	if b.machine.Done() {
		b.endTurn()
		return
	}
	b.phase = PhaseAwaitingInput
}

// resolved records an applied action, reaps the dead, and checks for the end
// of the battle.
func (b *Battle) resolved(out combat.Outcome) {
	act := "attack"
	amount := out.Damage
	if out.Kind == combat.KindSkill {
		act = "skill:" + out.SkillID
		if out.Heal > 0 {
			amount = out.Heal
		}
	}
	b.record(b.current, act, out.TargetName, amount)
	b.observer.ActionResolved(out)
	if dead := b.sched.Reap(); len(dead) > 0 {
		b.logger.Debug("reaped", zap.Int("count", len(dead)))
	}
	b.checkOver()
}

func (b *Battle) rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{action.ErrRejected}, args...)...)
}
