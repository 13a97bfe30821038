package action

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/combat"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/nav"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

// Roster is the view of the battle's units the machine needs. The turn
// scheduler satisfies it.
type Roster interface {
	Living() []*unit.Unit
	UnitAt(c grid.Cell) *unit.Unit
	OccupantAt(c grid.Cell) (string, bool)
}

// Machine drives one human-controlled unit's turn. It holds non-owning
// pointers into the roster and never copies units.
type Machine struct {
	terrain grid.TerrainSource
	roster  Roster
	logger  *zap.Logger

	state  State
	active *unit.Unit
	ended  bool

	skill     *ruleset.Skill
	usedPanel bool
	moveCells nav.CellSet
	targets   []*unit.Unit
	pending   *unit.Unit
	forecast  *combat.Forecast
	path      []grid.Cell
}

// NewMachine creates an idle machine.
//
// Precondition: terrain, roster and logger must be non-nil.
func NewMachine(terrain grid.TerrainSource, roster Roster, logger *zap.Logger) *Machine {
	if terrain == nil || roster == nil || logger == nil {
		panic("action.NewMachine: terrain, roster and logger must not be nil")
	}
	return &Machine{terrain: terrain, roster: roster, logger: logger}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Active returns the unit whose turn the machine is driving, or nil.
func (m *Machine) Active() *unit.Unit { return m.active }

// Skill returns the chosen skill while targeting or confirming one, or nil.
func (m *Machine) Skill() *ruleset.Skill { return m.skill }

// Pending returns the unit awaiting confirmation, or nil.
func (m *Machine) Pending() *unit.Unit { return m.pending }

// Forecast returns the forecast shown for the pending confirmation, or nil.
func (m *Machine) Forecast() *combat.Forecast { return m.forecast }

// Path returns the path of the move in progress, or nil.
func (m *Machine) Path() []grid.Cell { return m.path }

// MoveCells returns the legal destination cells, sorted. Empty unless a unit
// is selected and has not moved this turn.
func (m *Machine) MoveCells() []grid.Cell {
	if m.moveCells == nil {
		return nil
	}
	return m.moveCells.Sorted()
}

// Targets returns a snapshot of the legal targets for the current state:
// attack targets in UnitSelected, skill targets while targeting a skill.
func (m *Machine) Targets() []*unit.Unit {
	out := make([]*unit.Unit, len(m.targets))
	copy(out, m.targets)
	return out
}

// Done reports whether the active unit's turn is over: it waited, it both
// acted and moved, it died, or there is no active unit.
func (m *Machine) Done() bool {
	if m.active == nil || !m.active.Alive() {
		return true
	}
	return m.ended || (m.active.Acted && m.active.Moved)
}

// Activate hands u's turn to the machine. Any previous flow is discarded.
//
// Precondition: u must be alive.
// Postcondition: State() == None and Active() == u.
func (m *Machine) Activate(u *unit.Unit) error {
	if u == nil || !u.Alive() {
		return fmt.Errorf("%w: cannot activate a dead or missing unit", ErrRejected)
	}
	m.reset()
	m.active = u
	m.logger.Debug("unit activated", zap.String("unit", u.Name))
	return nil
}

// Deactivate clears the active unit and every pending selection.
func (m *Machine) Deactivate() {
	m.reset()
}

func (m *Machine) reset() {
	m.state = None
	m.active = nil
	m.ended = false
	m.clearSelection()
}

func (m *Machine) clearSelection() {
	m.skill = nil
	m.usedPanel = false
	m.moveCells = nil
	m.targets = nil
	m.clearPending()
	m.path = nil
}

func (m *Machine) clearPending() {
	m.pending = nil
	m.forecast = nil
}

// Select handles a select/confirm click on cell c.
//
// Postcondition: On error, no state has changed and the error wraps ErrRejected.
func (m *Machine) Select(c grid.Cell) (Result, error) {
	if m.active == nil {
		return Result{}, m.reject("no active unit")
	}
	switch m.state {
	case None:
		return m.selectFromNone(c)
	case UnitSelected:
		return m.selectFromUnitSelected(c)
	case SelectingSkillTarget:
		return m.selectSkillTarget(c)
	case ConfirmingAttack:
		if m.roster.UnitAt(c) == m.pending {
			return m.commitAttack()
		}
		m.toUnitSelected()
		return m.changed(), nil
	case ConfirmingSkill:
		if m.roster.UnitAt(c) == m.pending {
			return m.commitSkill()
		}
		m.toSkillTarget()
		return m.changed(), nil
	default:
		return Result{}, m.reject("select not accepted in %s", m.state)
	}
}

func (m *Machine) selectFromNone(c grid.Cell) (Result, error) {
	u := m.roster.UnitAt(c)
	if u == nil {
		return Result{}, m.reject("no unit at %s", c)
	}
	if u != m.active {
		return Result{Event: EventInspect, State: m.state, Inspected: u}, nil
	}
	if m.Done() {
		return Result{}, m.reject("%s has finished its turn", u.Name)
	}
	m.toUnitSelected()
	return m.changed(), nil
}

func (m *Machine) selectFromUnitSelected(c grid.Cell) (Result, error) {
	if target := m.roster.UnitAt(c); target != nil && containsUnit(m.targets, target) {
		f := combat.ForecastAttack(m.active, target)
		m.pending = target
		m.forecast = &f
		m.state = ConfirmingAttack
		m.logger.Debug("attack forecast", zap.String("attacker", f.AttackerName), zap.String("target", f.TargetName), zap.Int("damage", f.Damage))
		return Result{Event: EventForecast, State: m.state, Forecast: m.forecast}, nil
	}
	if c == m.active.Pos || m.moveCells == nil || !m.moveCells.Has(c) {
		return Result{}, m.reject("%s is not a legal move or target", c)
	}
	path := nav.FindPath(m.terrain, m.active.Pos, c, m.othersOnly())
	if len(path) < 2 {
		return Result{}, m.reject("no path to %s", c)
	}
	m.path = path
	m.moveCells = nil
	m.targets = nil
	m.state = Moving
	m.logger.Debug("move started", zap.String("unit", m.active.Name), zap.Stringer("to", c), zap.Int("steps", len(path)-1))
	return Result{Event: EventMoveStarted, State: m.state, Path: path}, nil
}

func (m *Machine) selectSkillTarget(c grid.Cell) (Result, error) {
	target := m.roster.UnitAt(c)
	if target == nil || !containsUnit(m.targets, target) {
		return Result{}, m.reject("%s is not a legal target for %s", c, m.skill.ID)
	}
	f := combat.ForecastSkill(m.active, target, m.skill)
	m.pending = target
	m.forecast = &f
	m.state = ConfirmingSkill
	m.logger.Debug("skill forecast", zap.String("skill", m.skill.ID), zap.String("target", f.TargetName), zap.Int("damage", f.Damage), zap.Int("heal", f.Heal))
	return Result{Event: EventForecast, State: m.state, Forecast: m.forecast}, nil
}

func (m *Machine) commitAttack() (Result, error) {
	out, err := combat.ExecuteAttack(m.active, m.pending)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	m.active.Acted = true
	m.logger.Info("attack resolved", zap.String("attacker", out.AttackerName), zap.String("target", out.TargetName), zap.Int("damage", out.Damage), zap.Int("target_hp", out.TargetHP))
	return m.afterAction(out), nil
}

func (m *Machine) commitSkill() (Result, error) {
	out, err := combat.ExecuteSkill(m.active, m.pending, m.skill)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	m.active.Acted = true
	m.logger.Info("skill resolved", zap.String("caster", out.AttackerName), zap.String("skill", out.SkillID), zap.String("target", out.TargetName), zap.Int("damage", out.Damage), zap.Int("heal", out.Heal))
	return m.afterAction(out), nil
}

func (m *Machine) afterAction(out combat.Outcome) Result {
	if m.Done() {
		m.state = None
		m.clearSelection()
	} else {
		m.toUnitSelected()
	}
	return Result{Event: EventResolved, State: m.state, Outcome: &out}
}

// BeginSkill opens skill selection from UnitSelected. With one affordable
// skill it goes straight to targeting; with several it opens the panel.
func (m *Machine) BeginSkill() (Result, error) {
	if m.state != UnitSelected {
		return Result{}, m.reject("skills are only available with a unit selected")
	}
	if m.active.Acted {
		return Result{}, m.reject("%s has already acted", m.active.Name)
	}
	skills := m.active.AffordableSkills()
	switch len(skills) {
	case 0:
		return Result{}, m.reject("%s has no affordable skills", m.active.Name)
	case 1:
		m.usedPanel = false
		m.skill = skills[0]
		m.toSkillTarget()
	default:
		m.usedPanel = true
		m.skill = nil
		m.targets = nil
		m.state = SelectingSkillFromPanel
	}
	return m.changed(), nil
}

// ChooseSkill picks a skill from the open panel.
func (m *Machine) ChooseSkill(id string) (Result, error) {
	if m.state != SelectingSkillFromPanel {
		return Result{}, m.reject("no skill panel is open")
	}
	s := m.active.Skill(id)
	if s == nil {
		return Result{}, m.reject("%s does not know %q", m.active.Name, id)
	}
	if !m.active.CanAfford(s) {
		return Result{}, m.reject("%s: %v", s.ID, unit.ErrInsufficientMP)
	}
	m.skill = s
	m.toSkillTarget()
	return m.changed(), nil
}

// Wait ends the active unit's turn.
func (m *Machine) Wait() (Result, error) {
	if m.active == nil {
		return Result{}, m.reject("no active unit")
	}
	if m.state != None && m.state != UnitSelected {
		return Result{}, m.reject("cannot wait in %s", m.state)
	}
	m.active.Acted = true
	m.ended = true
	m.state = None
	m.clearSelection()
	m.logger.Debug("unit waited", zap.String("unit", m.active.Name))
	return Result{Event: EventTurnEnded, State: m.state}, nil
}

// MovementComplete finishes the move in progress: the unit stands on the
// path's last cell and may not move again this turn.
func (m *Machine) MovementComplete() (Result, error) {
	if m.state != Moving {
		return Result{}, m.reject("no move in progress")
	}
	m.active.Pos = m.path[len(m.path)-1]
	m.active.Moved = true
	m.path = nil
	if m.Done() {
		m.state = None
		m.clearSelection()
	} else {
		m.toUnitSelected()
	}
	return m.changed(), nil
}

// Cancel unwinds exactly one level.
func (m *Machine) Cancel() (Result, error) {
	switch m.state {
	case ConfirmingAttack:
		m.toUnitSelected()
	case ConfirmingSkill:
		m.toSkillTarget()
	case SelectingSkillTarget:
		if m.usedPanel {
			m.clearPending()
			m.skill = nil
			m.targets = nil
			m.state = SelectingSkillFromPanel
		} else {
			m.toUnitSelected()
		}
	case SelectingSkillFromPanel:
		m.toUnitSelected()
	case UnitSelected:
		m.state = None
		m.clearSelection()
	default:
		return Result{}, m.reject("nothing to cancel in %s", m.state)
	}
	return m.changed(), nil
}

// UnitDied reacts to a death reported by the roster owner: the actor's death
// resets everything; the pending target's death cancels one level; any other
// death refreshes the target lists. It satisfies turn.DeathListener.
func (m *Machine) UnitDied(u *unit.Unit) {
	if m.active == nil {
		return
	}
	if u == m.active {
		m.logger.Debug("active unit died, resetting", zap.String("unit", u.Name))
		m.reset()
		return
	}
	if u == m.pending {
		if m.state == ConfirmingSkill {
			m.toSkillTarget()
		} else {
			m.toUnitSelected()
		}
		return
	}
	switch m.state {
	case UnitSelected:
		m.targets = m.attackTargets()
		m.moveCells = m.reachable()
	case SelectingSkillTarget:
		m.targets = m.skillTargets(m.skill)
	}
}

func (m *Machine) toUnitSelected() {
	m.clearPending()
	m.skill = nil
	m.usedPanel = false
	m.path = nil
	m.moveCells = m.reachable()
	m.targets = m.attackTargets()
	m.state = UnitSelected
}

func (m *Machine) toSkillTarget() {
	m.clearPending()
	m.moveCells = nil
	m.targets = m.skillTargets(m.skill)
	m.state = SelectingSkillTarget
}

func (m *Machine) reachable() nav.CellSet {
	if m.active.Moved {
		return nil
	}
	return nav.Reachable(m.terrain, m.active.Pos, m.active.EffectiveMove(), m.active.ID, m.roster.OccupantAt)
}

func (m *Machine) othersOnly() nav.OccupantFunc {
	self := m.active.ID
	return func(c grid.Cell) (string, bool) {
		id, ok := m.roster.OccupantAt(c)
		if ok && id == self {
			return "", false
		}
		return id, ok
	}
}

func (m *Machine) changed() Result {
	return Result{Event: EventStateChanged, State: m.state}
}

func (m *Machine) reject(format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{ErrRejected}, args...)...)
	m.logger.Debug("input rejected", zap.Stringer("state", m.state), zap.Error(err))
	return err
}
