// Package battle runs one tactical battle: it owns the roster, steps turns
// through the CT scheduler, routes player input to the action state machine,
// drives AI units through the same machine, and suspends for movement and
// pacing so a host loop can animate them.
package battle

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/config"
	"github.com/cory-johannsen/gridtactics/internal/content"
	"github.com/cory-johannsen/gridtactics/internal/game/action"
	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/turn"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
	"github.com/cory-johannsen/gridtactics/internal/observability"
	"github.com/cory-johannsen/gridtactics/internal/scripting"
	"github.com/cory-johannsen/gridtactics/internal/storage"
)

// ErrNotAwaitingInput rejects player input while no human-controlled unit is
// waiting for it.
var ErrNotAwaitingInput = fmt.Errorf("%w: not awaiting player input", action.ErrRejected)

// ErrGameOver rejects player input after the battle has ended.
var ErrGameOver = fmt.Errorf("%w: battle is over", action.ErrRejected)

// maxTurnsPerAdvance bounds the turns one Advance call may run, so an
// all-AI battle with no pacing still yields to the host loop.
const maxTurnsPerAdvance = 64

// Phase is the battle's coarse execution state.
type Phase int

const (
	// PhaseIdle is before Init and after Teardown.
	PhaseIdle Phase = iota
	// PhaseRunning means Advance can make progress.
	PhaseRunning
	// PhaseAwaitingInput means a human-controlled unit is waiting for input.
	PhaseAwaitingInput
	// PhaseSuspended means a move or pause is in progress; Tick resumes it.
	PhaseSuspended
	// PhaseOver means at most one team remains or the turn limit was hit.
	PhaseOver
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseAwaitingInput:
		return "awaiting_input"
	case PhaseSuspended:
		return "suspended"
	case PhaseOver:
		return "over"
	default:
		return "unknown"
	}
}

// Deps are a battle's collaborators.
type Deps struct {
	Library  *content.Library
	Scenario string
	Config   config.BattleConfig
	Logger   *zap.Logger
	// Scripts answers Lua preconditions of AI domains; nil disables them.
	Scripts *scripting.Manager
	// Observer receives presentation events; nil ignores them.
	Observer Observer
	// AutoPlay hands every unit to the AI, for headless simulation.
	AutoPlay bool
	// Now stamps the finished battle; nil uses time.Now.
	Now func() time.Time
}

// Battle is one running scenario. It is not safe for concurrent use; the
// host loop drives it from a single goroutine.
type Battle struct {
	deps     Deps
	cfg      config.BattleConfig
	scenario *content.Scenario
	terrain  *grid.Index
	registry *ai.Registry
	observer Observer
	now      func() time.Time

	id      string
	logger  *zap.Logger
	sched   *turn.Scheduler
	machine *action.Machine
	agent   *ai.Agent

	phase   Phase
	current *unit.Unit
	susp    *Suspension
	next    func()
	turns   int
	winner  string
	log     []storage.Entry
	endedAt time.Time
}

// noScripts answers every Lua precondition with nil (false).
type noScripts struct{}

func (noScripts) CallHook(string, string, ...lua.LValue) (lua.LValue, error) {
	return lua.LNil, nil
}

// New validates deps and registers every AI domain of the library. The
// battle is idle until Init.
//
// Precondition: deps.Library and deps.Logger must be non-nil.
// Postcondition: Returns an error if the scenario is unknown or a domain
// cannot be registered.
func New(deps Deps) (*Battle, error) {
	if deps.Library == nil || deps.Logger == nil {
		return nil, errors.New("battle.New: library and logger must not be nil")
	}
	sc, ix, err := deps.Library.Scenario(deps.Scenario)
	if err != nil {
		return nil, fmt.Errorf("battle.New: %w", err)
	}
	if ix == nil {
		return nil, fmt.Errorf("battle.New: scenario %q has no map", sc.ID)
	}

	var caller ai.ScriptCaller = noScripts{}
	if deps.Scripts != nil {
		caller = deps.Scripts
	}
	registry := ai.NewRegistry()
	ids := make([]string, 0, len(deps.Library.Domains))
	for id := range deps.Library.Domains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := registry.Register(deps.Library.Domains[id], caller); err != nil {
			return nil, fmt.Errorf("battle.New: %w", err)
		}
	}

	b := &Battle{
		deps:     deps,
		cfg:      deps.Config,
		scenario: sc,
		terrain:  ix,
		registry: registry,
		observer: deps.Observer,
		now:      deps.Now,
		logger:   deps.Logger,
	}
	if b.observer == nil {
		b.observer = NopObserver{}
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b, nil
}

// Init spawns the scenario's units and readies the first turn.
//
// Postcondition: Phase() == PhaseRunning with a fresh battle ID and every
// unit at full HP and MP.
func (b *Battle) Init() error {
	units, err := b.deps.Library.SpawnUnits(b.scenario)
	if err != nil {
		return fmt.Errorf("battle.Init: %w", err)
	}
	if b.deps.AutoPlay {
		for _, u := range units {
			u.Control = unit.ControlAI
		}
	}

	b.id = uuid.NewString()
	b.logger = observability.ForBattle(b.deps.Logger, b.id, b.scenario.ID)
	b.sched = turn.NewScheduler(turn.Config{
		Threshold:   b.cfg.ChargeThreshold,
		HistorySize: b.cfg.HistorySize,
	}, b.logger)
	if err := b.sched.Spawn(units...); err != nil {
		return fmt.Errorf("battle.Init: %w", err)
	}
	b.machine = action.NewMachine(b.terrain, b.sched, b.logger)
	b.sched.Subscribe(b.machine)
	b.sched.Subscribe(turn.DeathListenerFunc(b.unitDied))
	b.agent = ai.NewAgent(b.registry, b.terrain, b.logger)
	if b.deps.Scripts != nil {
		ai.BindScripts(b.deps.Scripts, b.sched.Living)
	}

	b.phase = PhaseRunning
	b.current = nil
	b.susp = nil
	b.next = nil
	b.turns = 0
	b.winner = ""
	b.log = nil
	b.endedAt = time.Time{}

	b.logger.Info("battle initialised",
		zap.String("map", b.terrain.ID()),
		zap.Int("units", len(units)),
		zap.Strings("teams", b.sched.Teams()),
		zap.Strings("ai_domains", b.registry.IDs()),
		zap.Bool("autoplay", b.deps.AutoPlay),
	)
	return nil
}

// Teardown releases the roster and any in-flight turn.
//
// Postcondition: Phase() == PhaseIdle.
func (b *Battle) Teardown() {
	if b.machine != nil {
		b.machine.Deactivate()
	}
	if b.sched != nil {
		b.sched.Reset()
	}
	b.phase = PhaseIdle
	b.current = nil
	b.susp = nil
	b.next = nil
	b.logger.Debug("battle torn down")
}

// Restart re-initialises the battle from its scenario.
func (b *Battle) Restart() error {
	b.Teardown()
	return b.Init()
}

// ID returns the current battle's ID; it changes on every Init.
func (b *Battle) ID() string { return b.id }

// Phase returns the execution phase.
func (b *Battle) Phase() Phase { return b.phase }

// Winner returns the surviving team once the battle is over; empty for a draw.
func (b *Battle) Winner() string { return b.winner }

// Turns returns the number of turns started so far.
func (b *Battle) Turns() int { return b.turns }

// Terrain returns the battle map.
func (b *Battle) Terrain() *grid.Index { return b.terrain }

// ActiveUnit returns the unit whose turn is in progress, or nil.
func (b *Battle) ActiveUnit() *unit.Unit {
	if b.phase == PhaseIdle || b.phase == PhaseOver {
		return nil
	}
	return b.current
}

// Units returns the living units in roster order.
func (b *Battle) Units() []*unit.Unit {
	if b.sched == nil {
		return nil
	}
	return b.sched.Living()
}

// TurnOrder predicts the next turns, starting with the one after the
// current turn.
func (b *Battle) TurnOrder() []*unit.Unit {
	if b.sched == nil || b.phase == PhaseIdle || b.phase == PhaseOver {
		return nil
	}
	return b.sched.Predict(b.cfg.PredictionLength)
}

// History returns the most recent completed turns, most recent first.
func (b *Battle) History() []*unit.Unit {
	if b.sched == nil {
		return nil
	}
	return b.sched.History()
}

// State returns the action state machine's state.
func (b *Battle) State() action.State {
	if b.machine == nil {
		return action.None
	}
	return b.machine.State()
}

// MoveCells returns the legal move destinations while awaiting input.
func (b *Battle) MoveCells() []grid.Cell {
	if b.phase != PhaseAwaitingInput {
		return nil
	}
	return b.machine.MoveCells()
}

// TargetUnits returns the legal attack or skill targets while awaiting input.
func (b *Battle) TargetUnits() []*unit.Unit {
	if b.phase != PhaseAwaitingInput {
		return nil
	}
	return b.machine.Targets()
}

// Forecast returns the forecast awaiting confirmation, or nil.
func (b *Battle) Forecast() *combat.Forecast {
	if b.machine == nil {
		return nil
	}
	return b.machine.Forecast()
}

// Suspension returns a copy of the suspension in progress.
func (b *Battle) Suspension() (Suspension, bool) {
	if b.susp == nil {
		return Suspension{}, false
	}
	s := *b.susp
	s.Path = append([]grid.Cell(nil), b.susp.Path...)
	return s, true
}

// Log returns a copy of the turn log.
func (b *Battle) Log() []storage.Entry {
	out := make([]storage.Entry, len(b.log))
	copy(out, b.log)
	return out
}

// Summary returns the archive record of the battle.
//
// Precondition: Phase() == PhaseOver for a complete record.
func (b *Battle) Summary() storage.BattleRecord {
	ticks := 0
	if b.sched != nil {
		ticks = b.sched.Elapsed()
	}
	return storage.BattleRecord{
		ID:         b.id,
		Scenario:   b.scenario.ID,
		Winner:     b.winner,
		Turns:      b.turns,
		Ticks:      ticks,
		Log:        b.Log(),
		FinishedAt: b.endedAt,
	}
}

func (b *Battle) record(u *unit.Unit, act, target string, amount int) {
	b.log = append(b.log, storage.Entry{
		Turn:   b.turns,
		Unit:   u.Name,
		Team:   u.Team,
		Action: act,
		Target: target,
		Amount: amount,
	})
}

func (b *Battle) unitDied(u *unit.Unit) {
	b.record(u, "died", "", 0)
	b.observer.UnitDied(u)
}
