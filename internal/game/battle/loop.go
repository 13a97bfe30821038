package battle

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// SuspensionKind names why a turn is suspended.
type SuspensionKind int

const (
	// SuspendMove animates a unit along Path, one cell per step duration.
	SuspendMove SuspensionKind = iota + 1
	// SuspendPause waits out Remaining.
	SuspendPause
)

// String returns the suspension name.
func (k SuspensionKind) String() string {
	switch k {
	case SuspendMove:
		return "move"
	case SuspendPause:
		return "pause"
	default:
		return "unknown"
	}
}

// Suspension is a turn paused until the host has advanced enough time.
type Suspension struct {
	Kind SuspensionKind
	// Path is the move's cells, starting at the unit's original cell.
	Path []grid.Cell
	// Step indexes the cell the unit currently stands on.
	Step int
	// Remaining is the pause time left.
	Remaining time.Duration

	elapsed time.Duration
}

// Tick advances a suspension by dt and then runs the battle as far as it can.
// It returns false once the battle is over or not initialised.
func (b *Battle) Tick(dt time.Duration) bool {
	switch b.phase {
	case PhaseIdle, PhaseOver:
		return false
	case PhaseSuspended:
		b.stepSuspension(dt)
	}
	if b.phase == PhaseRunning {
		b.Advance()
	}
	return b.phase != PhaseOver
}

// Advance runs turns until the battle needs human input, hits a suspension,
// or is over. It also returns after a bounded number of turns so a headless
// battle stays responsive to its host.
func (b *Battle) Advance() {
	started := 0
	for b.phase == PhaseRunning {
		if next := b.next; next != nil {
			b.next = nil
			next()
			continue
		}
		if started == maxTurnsPerAdvance {
			return
		}
		started++
		b.startTurn()
	}
}

func (b *Battle) startTurn() {
	if b.checkOver() {
		return
	}
	if b.cfg.MaxTurns > 0 && b.turns >= b.cfg.MaxTurns {
		b.finish("", "turn limit reached")
		return
	}
	u, report := b.sched.StartTurn()
	if u == nil {
		b.finish("", "no unit can act")
		return
	}
	b.turns++
	b.current = u
	for _, hit := range report.Hits {
		b.record(u, "effect:"+hit.EffectID, "", hit.Damage)
	}
	b.logger.Info("turn started",
		zap.Int("turn", b.turns),
		zap.String("unit", u.Name),
		zap.String("team", u.Team),
		zap.Stringer("control", u.Control),
		zap.Int("hp", u.CurrentHP),
	)
	b.observer.TurnStarted(u, report)
	b.observer.TurnOrderChanged(b.sched.Predict(b.cfg.PredictionLength))

	if report.Died {
		b.endTurn()
		return
	}
	if err := b.machine.Activate(u); err != nil {
		b.logger.Error("activating unit", zap.String("unit", u.Name), zap.Error(err))
		b.endTurn()
		return
	}
	if u.Control == unit.ControlHuman {
		b.phase = PhaseAwaitingInput
		return
	}
	b.pause(b.cfg.AIThinkDelay, b.aiStep)
}

// endTurn closes the current turn; the next Advance iteration starts another.
func (b *Battle) endTurn() {
	u := b.current
	b.machine.Deactivate()
	b.sched.EndTurn(u)
	b.current = nil
	if b.phase != PhaseOver {
		b.phase = PhaseRunning
	}
	if u != nil {
		b.observer.TurnEnded(u)
	}
}

// pause suspends the turn for d, then runs then. A non-positive d runs then
// on the next Advance iteration without suspending.
func (b *Battle) pause(d time.Duration, then func()) {
	b.phase = PhaseRunning
	if d <= 0 {
		b.next = then
		return
	}
	b.susp = &Suspension{Kind: SuspendPause, Remaining: d}
	b.next = then
	b.phase = PhaseSuspended
}

// startMove suspends the turn while the active unit walks path, then runs then.
func (b *Battle) startMove(path []grid.Cell, then func()) {
	b.susp = &Suspension{Kind: SuspendMove, Path: path}
	b.next = then
	b.phase = PhaseSuspended
	b.observer.MoveStarted(b.current, path)
	if b.cfg.MoveStepDuration <= 0 {
		b.stepSuspension(0)
	}
}

// stepSuspension advances the suspension by dt; only the moving unit's
// position changes. On completion the battle resumes with the stored
// continuation.
func (b *Battle) stepSuspension(dt time.Duration) {
	s := b.susp
	if s == nil {
		b.phase = PhaseRunning
		return
	}
	switch s.Kind {
	case SuspendPause:
		s.Remaining -= dt
		if s.Remaining > 0 {
			return
		}
	case SuspendMove:
		u := b.current
		step := b.cfg.MoveStepDuration
		s.elapsed += dt
		for s.Step < len(s.Path)-1 && (step <= 0 || s.elapsed >= step) {
			if step > 0 {
				s.elapsed -= step
			}
			s.Step++
			u.Pos = s.Path[s.Step]
			b.observer.UnitStepped(u, u.Pos)
		}
		if s.Step < len(s.Path)-1 {
			return
		}
		if _, err := b.machine.MovementComplete(); err != nil {
			b.logger.Error("completing move", zap.String("unit", u.Name), zap.Error(err))
		}
		b.record(u, "move", u.Pos.String(), len(s.Path)-1)
		b.logger.Debug("move finished", zap.String("unit", u.Name), zap.Stringer("at", u.Pos))
	}
	b.susp = nil
	b.phase = PhaseRunning
}

// checkOver ends the battle when at most one team has living units.
func (b *Battle) checkOver() bool {
	if b.phase == PhaseOver {
		return true
	}
	teams := b.sched.Teams()
	if len(teams) > 1 {
		return false
	}
	winner := ""
	if len(teams) == 1 {
		winner = teams[0]
	}
	b.finish(winner, "one team remains")
	return true
}

func (b *Battle) finish(winner, reason string) {
	b.phase = PhaseOver
	b.winner = winner
	b.endedAt = b.now().UTC()
	b.susp = nil
	b.next = nil
	b.current = nil
	b.machine.Deactivate()
	b.logger.Info("battle over",
		zap.String("winner", winner),
		zap.String("reason", reason),
		zap.Int("turns", b.turns),
		zap.Int("ticks", b.sched.Elapsed()),
	)
	b.observer.GameOver(winner)
}
