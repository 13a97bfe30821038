// Package turn implements the charge-time (CT) turn scheduler. Every living
// unit accumulates its speed each simulated tick; a unit acts once its charge
// reaches the threshold, so faster units act proportionally more often.
package turn

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

const (
	// DefaultThreshold is the charge a unit needs to act.
	DefaultThreshold = 100
	// DefaultHistorySize bounds the completed-turn history.
	DefaultHistorySize = 8
)

// DeathListener is notified by the scheduler when a unit is removed from the
// roster because it died.
type DeathListener interface {
	UnitDied(u *unit.Unit)
}

// DeathListenerFunc adapts a function to DeathListener.
type DeathListenerFunc func(u *unit.Unit)

// UnitDied calls f(u).
func (f DeathListenerFunc) UnitDied(u *unit.Unit) { f(u) }

// Config parameterises a Scheduler.
type Config struct {
	Threshold   int
	HistorySize int
}

// Scheduler owns the battle roster and decides which unit acts next.
// It is not safe for concurrent use; the battle loop drives it from one goroutine.
type Scheduler struct {
	threshold   int
	historySize int
	roster      []*unit.Unit
	history     []*unit.Unit
	listeners   []DeathListener
	active      *unit.Unit
	elapsed     int
	logger      *zap.Logger
}

// NewScheduler creates an empty Scheduler. Non-positive config values fall
// back to the defaults.
//
// Precondition: logger must be non-nil.
func NewScheduler(cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		panic("turn.NewScheduler: logger must not be nil")
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	return &Scheduler{
		threshold:   cfg.Threshold,
		historySize: cfg.HistorySize,
		logger:      logger,
	}
}

// Threshold returns the charge a unit needs to act.
func (s *Scheduler) Threshold() int { return s.threshold }

// Elapsed returns the number of simulated ticks advanced so far.
func (s *Scheduler) Elapsed() int { return s.elapsed }

// Spawn adds units to the roster in order. The whole batch is rejected if any
// unit is nil, dead, or shares an ID with a roster entry or another batch member.
//
// Postcondition: On success every unit is in the roster after existing entries.
func (s *Scheduler) Spawn(units ...*unit.Unit) error {
	seen := make(map[string]bool, len(s.roster)+len(units))
	for _, u := range s.roster {
		seen[u.ID] = true
	}
	for _, u := range units {
		if u == nil {
			return fmt.Errorf("spawn: nil unit")
		}
		if !u.Alive() {
			return fmt.Errorf("spawn: unit %s is not alive", u.Name)
		}
		if seen[u.ID] {
			return fmt.Errorf("spawn: duplicate unit id %s", u.ID)
		}
		seen[u.ID] = true
	}
	s.roster = append(s.roster, units...)
	return nil
}

// Subscribe registers l to be told about every unit removed by Reap.
func (s *Scheduler) Subscribe(l DeathListener) {
	s.listeners = append(s.listeners, l)
}

// Roster returns a snapshot of every unit in the roster, in spawn order.
func (s *Scheduler) Roster() []*unit.Unit {
	out := make([]*unit.Unit, len(s.roster))
	copy(out, s.roster)
	return out
}

// Living returns a snapshot of the roster's living units, in spawn order.
func (s *Scheduler) Living() []*unit.Unit {
	out := make([]*unit.Unit, 0, len(s.roster))
	for _, u := range s.roster {
		if u.Alive() {
			out = append(out, u)
		}
	}
	return out
}

// Unit returns the roster entry with id, or nil.
func (s *Scheduler) Unit(id string) *unit.Unit {
	for _, u := range s.roster {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// UnitAt returns the living unit standing on c, or nil.
func (s *Scheduler) UnitAt(c grid.Cell) *unit.Unit {
	for _, u := range s.roster {
		if u.Alive() && u.Pos == c {
			return u
		}
	}
	return nil
}

// OccupantAt reports the ID of the living unit on c. It satisfies nav.OccupantFunc.
func (s *Scheduler) OccupantAt(c grid.Cell) (string, bool) {
	if u := s.UnitAt(c); u != nil {
		return u.ID, true
	}
	return "", false
}

// Active returns the unit whose turn is in progress, or nil.
func (s *Scheduler) Active() *unit.Unit { return s.active }

// Next advances simulated time until a living unit reaches the threshold,
// selects it, and subtracts the threshold from its charge. Among ready units
// the highest charge wins, then the higher speed, then roster order.
//
// Postcondition: Returns nil, advancing nothing, if no living unit can ever
// reach the threshold.
func (s *Scheduler) Next() *unit.Unit {
	for {
		if u := s.ready(); u != nil {
			u.Charge -= s.threshold
			return u
		}
		if !s.canCharge() {
			return nil
		}
		for _, u := range s.roster {
			if u.Alive() {
				u.Charge += u.Speed
			}
		}
		s.elapsed++
	}
}

func (s *Scheduler) ready() *unit.Unit {
	var best *unit.Unit
	for _, u := range s.roster {
		if !u.Alive() || u.Charge < s.threshold {
			continue
		}
		if best == nil || u.Charge > best.Charge || (u.Charge == best.Charge && u.Speed > best.Speed) {
			best = u
		}
	}
	return best
}

func (s *Scheduler) canCharge() bool {
	for _, u := range s.roster {
		if u.Alive() && u.Speed > 0 {
			return true
		}
	}
	return false
}

// StartTurn selects the next unit, clears its per-turn flags, and ticks its
// status effects before it may act. If the tick kills the unit it is reaped
// immediately and the returned unit is no longer alive; the caller must skip
// its action phase.
//
// Postcondition: Returns (nil, zero report) when no unit can act.
func (s *Scheduler) StartTurn() (*unit.Unit, combat.TickReport) {
	u := s.Next()
	if u == nil {
		s.active = nil
		return nil, combat.TickReport{}
	}
	u.BeginTurn()
	s.active = u
	report := combat.TickStatusEffects(u)
	s.logger.Debug("turn started",
		zap.String("unit", u.Name),
		zap.String("team", u.Team),
		zap.Int("tick", s.elapsed),
		zap.Int("charge", u.Charge),
		zap.Int("dot_damage", report.Damage),
		zap.Strings("expired", report.Expired),
	)
	if report.Died {
		s.Reap()
	}
	return u, report
}

// EndTurn records u's completed turn at the head of the history and clears the
// active unit. Dead units are never recorded.
func (s *Scheduler) EndTurn(u *unit.Unit) {
	if s.active == u {
		s.active = nil
	}
	if u == nil || !u.Alive() {
		return
	}
	s.history = append([]*unit.Unit{u}, s.history...)
	if len(s.history) > s.historySize {
		s.history = s.history[:s.historySize]
	}
}

// History returns the most recent completed turns, most recent first.
func (s *Scheduler) History() []*unit.Unit {
	out := make([]*unit.Unit, len(s.history))
	copy(out, s.history)
	return out
}

// Reap removes every dead unit from the roster and history, then notifies
// each subscriber once per removed unit, in roster order.
//
// Postcondition: Roster and History contain only living units.
func (s *Scheduler) Reap() []*unit.Unit {
	var dead []*unit.Unit
	kept := s.roster[:0]
	for _, u := range s.roster {
		if u.Alive() {
			kept = append(kept, u)
			continue
		}
		dead = append(dead, u)
	}
	for i := len(kept); i < len(s.roster); i++ {
		s.roster[i] = nil
	}
	s.roster = kept
	if len(dead) == 0 {
		return nil
	}

	hist := s.history[:0]
	for _, u := range s.history {
		if u.Alive() {
			hist = append(hist, u)
		}
	}
	s.history = hist
	if s.active != nil && !s.active.Alive() {
		s.active = nil
	}

	for _, u := range dead {
		s.logger.Info("unit died", zap.String("unit", u.Name), zap.String("team", u.Team), zap.String("id", u.ID))
		for _, l := range s.listeners {
			l.UnitDied(u)
		}
	}
	return dead
}

// Teams returns the distinct teams with at least one living unit, in roster order.
func (s *Scheduler) Teams() []string {
	var teams []string
	seen := map[string]bool{}
	for _, u := range s.roster {
		if u.Alive() && !seen[u.Team] {
			seen[u.Team] = true
			teams = append(teams, u.Team)
		}
	}
	return teams
}

// Reset clears the roster, history, listeners, and simulated clock.
func (s *Scheduler) Reset() {
	s.roster = nil
	s.history = nil
	s.listeners = nil
	s.active = nil
	s.elapsed = 0
}
