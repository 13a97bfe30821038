// Package content loads and cross-validates every piece of battle
// configuration: status effects, races, classes, skills, maps, scenarios, AI
// domains and AI scripts.
package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cory-johannsen/gridtactics/internal/game/ai"
	"github.com/cory-johannsen/gridtactics/internal/game/condition"
	"github.com/cory-johannsen/gridtactics/internal/game/grid"
	"github.com/cory-johannsen/gridtactics/internal/game/ruleset"
	"github.com/cory-johannsen/gridtactics/internal/game/unit"
	"github.com/cory-johannsen/gridtactics/internal/scripting"
)

// Library is the loaded, linked content. It is read-only after Load.
type Library struct {
	Root      string
	Effects   *condition.Registry
	Skills    map[string]*ruleset.Skill
	Classes   map[string]*ruleset.Class
	Races     map[string]*ruleset.Race
	Maps      map[string]*grid.Index
	Scenarios map[string]*Scenario
	Domains   map[string]*ai.Domain
}

// Load reads root's effects, skills, classes, races, maps, ai and scenarios
// subdirectories, links skills to effects and classes to skills, and checks
// every cross-reference.
//
// Precondition: root must contain every subdirectory listed above.
// Postcondition: Returns a fully linked Library or the first integrity error.
func Load(root string) (*Library, error) {
	lib := &Library{
		Root:    root,
		Skills:  make(map[string]*ruleset.Skill),
		Classes: make(map[string]*ruleset.Class),
		Races:   make(map[string]*ruleset.Race),
		Domains: make(map[string]*ai.Domain),
	}
	var err error

	if lib.Effects, err = condition.LoadDirectory(filepath.Join(root, "effects")); err != nil {
		return nil, fmt.Errorf("content: effects: %w", err)
	}

	skills, err := ruleset.LoadSkills(filepath.Join(root, "skills"))
	if err != nil {
		return nil, fmt.Errorf("content: skills: %w", err)
	}
	for _, s := range skills {
		if _, dup := lib.Skills[s.ID]; dup {
			return nil, fmt.Errorf("content: duplicate skill id %q", s.ID)
		}
		if err := s.Link(lib.Effects); err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		lib.Skills[s.ID] = s
	}

	classes, err := ruleset.LoadClasses(filepath.Join(root, "classes"))
	if err != nil {
		return nil, fmt.Errorf("content: classes: %w", err)
	}
	for _, c := range classes {
		if _, dup := lib.Classes[c.ID]; dup {
			return nil, fmt.Errorf("content: duplicate class id %q", c.ID)
		}
		if err := c.Link(lib.Skills); err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		lib.Classes[c.ID] = c
	}

	races, err := ruleset.LoadRaces(filepath.Join(root, "races"))
	if err != nil {
		return nil, fmt.Errorf("content: races: %w", err)
	}
	for _, r := range races {
		if _, dup := lib.Races[r.ID]; dup {
			return nil, fmt.Errorf("content: duplicate race id %q", r.ID)
		}
		lib.Races[r.ID] = r
	}

	if lib.Maps, err = grid.LoadMapsFromDir(filepath.Join(root, "maps")); err != nil {
		return nil, fmt.Errorf("content: maps: %w", err)
	}

	domains, err := ai.LoadDomains(filepath.Join(root, "ai"))
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	for _, d := range domains {
		if _, dup := lib.Domains[d.ID]; dup {
			return nil, fmt.Errorf("content: duplicate ai domain %q", d.ID)
		}
		for _, id := range d.SkillIDs() {
			if _, ok := lib.Skills[id]; !ok {
				return nil, fmt.Errorf("content: ai domain %q references unknown skill %q", d.ID, id)
			}
		}
		lib.Domains[d.ID] = d
	}

	if lib.Scenarios, err = LoadScenarios(filepath.Join(root, "scenarios")); err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	for _, id := range sortedKeys(lib.Scenarios) {
		if err := lib.checkScenario(lib.Scenarios[id]); err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
	}
	return lib, nil
}

func (l *Library) checkScenario(sc *Scenario) error {
	ix, ok := l.Maps[sc.Map]
	if !ok {
		return fmt.Errorf("scenario %q: unknown map %q", sc.ID, sc.Map)
	}
	taken := make(map[grid.Cell]int, len(sc.Spawns))
	for i, sp := range sc.Spawns {
		if _, ok := l.Races[sp.Race]; !ok {
			return fmt.Errorf("scenario %q spawn %d: unknown race %q", sc.ID, i, sp.Race)
		}
		if _, ok := l.Classes[sp.Class]; !ok {
			return fmt.Errorf("scenario %q spawn %d: unknown class %q", sc.ID, i, sp.Class)
		}
		if _, err := unit.ParseControl(sp.Control); err != nil {
			return fmt.Errorf("scenario %q spawn %d: %w", sc.ID, i, err)
		}
		if sp.AI != "" {
			if _, ok := l.Domains[sp.AI]; !ok {
				return fmt.Errorf("scenario %q spawn %d: unknown ai domain %q", sc.ID, i, sp.AI)
			}
		}
		c := sp.Cell()
		if !ix.Walkable(c) {
			return fmt.Errorf("scenario %q spawn %d: cell %s is off-map or unwalkable", sc.ID, i, c)
		}
		if prev, dup := taken[c]; dup {
			return fmt.Errorf("scenario %q spawn %d: cell %s already taken by spawn %d", sc.ID, i, c, prev)
		}
		taken[c] = i
	}
	return nil
}

// Scenario returns the scenario with id and its map.
func (l *Library) Scenario(id string) (*Scenario, *grid.Index, error) {
	sc, ok := l.Scenarios[id]
	if !ok {
		return nil, nil, fmt.Errorf("unknown scenario %q", id)
	}
	return sc, l.Maps[sc.Map], nil
}

// SpawnUnits creates fresh units for every spawn in sc, in spawn order.
//
// Postcondition: every unit is at full HP and MP with a new ID.
func (l *Library) SpawnUnits(sc *Scenario) ([]*unit.Unit, error) {
	units := make([]*unit.Unit, 0, len(sc.Spawns))
	for i, sp := range sc.Spawns {
		ctl, err := unit.ParseControl(sp.Control)
		if err != nil {
			return nil, fmt.Errorf("scenario %q spawn %d: %w", sc.ID, i, err)
		}
		u, err := unit.Spawn(unit.SpawnSpec{
			Name:     sp.Name,
			Team:     sp.Team,
			Control:  ctl,
			Race:     l.Races[sp.Race],
			Class:    l.Classes[sp.Class],
			Pos:      sp.Cell(),
			AIDomain: sp.AI,
		})
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.ID, err)
		}
		units = append(units, u)
	}
	return units, nil
}

// LoadScripts loads root/scripts/ai into mgr: *.lua files directly in that
// directory form the global scope, and each subdirectory named after an AI
// domain forms that domain's scope. A missing scripts directory is not an
// error.
func (l *Library) LoadScripts(mgr *scripting.Manager, instLimit int) error {
	dir := filepath.Join(l.Root, "scripts", "ai")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("content: reading scripts: %w", err)
	}
	if err := mgr.LoadGlobal(dir, instLimit); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := l.Domains[e.Name()]; !ok {
			return fmt.Errorf("content: script directory %q matches no ai domain", e.Name())
		}
		if err := mgr.LoadScope(e.Name(), filepath.Join(dir, e.Name()), instLimit); err != nil {
			return fmt.Errorf("content: %w", err)
		}
	}
	return nil
}

// ScenarioIDs returns every scenario ID, sorted.
func (l *Library) ScenarioIDs() []string {
	return sortedKeys(l.Scenarios)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
