package battle

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/action"
	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// aiStep asks the agent for the active AI unit's next step and plays it
// through the action state machine, so AI units obey the same rules as
// players.
func (b *Battle) aiStep() {
	u := b.current
	if u == nil || !u.Alive() {
		b.endTurn()
		return
	}
	step := b.agent.Next(u, b.sched.Living(), b.sched.OccupantAt)
	if err := b.play(step); err != nil {
		b.logger.Warn("ai step rejected, waiting",
			zap.String("unit", u.Name),
			zap.Stringer("kind", step.Kind),
			zap.Error(err),
		)
		b.aiWait()
	}
}

func (b *Battle) play(step ai.Step) error {
	switch step.Kind {
	case ai.StepWait:
		b.aiWait()
		return nil
	case ai.StepMove:
		if err := b.selectActive(); err != nil {
			return err
		}
		res, err := b.machine.Select(step.Path[len(step.Path)-1])
		if err != nil {
			return err
		}
		if res.Event != action.EventMoveStarted {
			return b.rejectf("expected a move, machine is in %s", res.State)
		}
		b.startMove(res.Path, b.afterAIStep)
		return nil
	case ai.StepAttack:
		if err := b.selectActive(); err != nil {
			return err
		}
		return b.aim(step.Target)
	case ai.StepSkill:
		if err := b.selectActive(); err != nil {
			return err
		}
		if _, err := b.machine.BeginSkill(); err != nil {
			return err
		}
		if b.machine.State() == action.SelectingSkillFromPanel {
			if _, err := b.machine.ChooseSkill(step.Skill.ID); err != nil {
				return err
			}
		}
		if s := b.machine.Skill(); s == nil || s.ID != step.Skill.ID {
			return b.rejectf("skill %s was not selected", step.Skill.ID)
		}
		return b.aim(step.Target)
	default:
		return b.rejectf("unknown ai step %s", step.Kind)
	}
}

// aim selects target for the pending attack or skill, shows the forecast for
// the action delay, then confirms it.
func (b *Battle) aim(target *unit.Unit) error {
	res, err := b.machine.Select(target.Pos)
	if err != nil {
		return err
	}
	if res.Event != action.EventForecast {
		return b.rejectf("expected a forecast, machine is in %s", res.State)
	}
	b.observer.ForecastShown(*res.Forecast)
	b.pause(b.cfg.AIActionDelay, func() { b.confirm(target) })
	return nil
}

func (b *Battle) confirm(target *unit.Unit) {
	res, err := b.machine.Select(target.Pos)
	if err == nil && res.Event != action.EventResolved {
		err = b.rejectf("expected a resolution, machine is in %s", res.State)
	}
	if err != nil {
		b.logger.Warn("ai confirmation rejected, waiting", zap.String("unit", b.current.Name), zap.Error(err))
		b.aiWait()
		return
	}
	b.resolved(*res.Outcome)
	if b.phase == PhaseOver {
		return
	}
	b.afterAIStep()
}

func (b *Battle) afterAIStep() {
	if b.current == nil || b.machine.Done() {
		b.endTurn()
		return
	}
	b.pause(b.cfg.AIThinkDelay, b.aiStep)
}

// selectActive puts the machine in UnitSelected for the active unit.
func (b *Battle) selectActive() error {
	if b.machine.State() == action.None {
		if _, err := b.machine.Select(b.current.Pos); err != nil {
			return err
		}
	}
	if b.machine.State() != action.UnitSelected {
		return b.rejectf("cannot act from %s", b.machine.State())
	}
	return nil
}

// aiWait unwinds any open selection and ends the turn.
func (b *Battle) aiWait() {
	for st := b.machine.State(); st != action.None && st != action.UnitSelected; st = b.machine.State() {
		if _, err := b.machine.Cancel(); err != nil {
			break
		}
	}
	if _, err := b.machine.Wait(); err != nil {
		b.logger.Warn("ai wait rejected", zap.String("unit", b.current.Name), zap.Error(err))
	}
	b.record(b.current, "wait", "", 0)
	b.endTurn()
}
