package content

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gridtactics/internal/game/grid"
)

// Spawn places one unit in a scenario.
type Spawn struct {
	Name    string `yaml:"name"`
	Team    string `yaml:"team"`
	Control string `yaml:"control"`
	Race    string `yaml:"race"`
	Class   string `yaml:"class"`
	// Pos is [x, y].
	Pos [2]int `yaml:"pos"`
	// AI names the HTN domain for AI-controlled units; empty uses the
	// built-in fallback plan.
	AI string `yaml:"ai"`
}

// Cell returns the spawn position as a grid cell.
func (s Spawn) Cell() grid.Cell { return grid.Cell{X: s.Pos[0], Y: s.Pos[1]} }

// Scenario is a playable battle: a map and the units that start on it.
//
// Precondition: ID, Map and at least two teams' spawns are required.
type Scenario struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Map         string  `yaml:"map"`
	Spawns      []Spawn `yaml:"spawns"`
}

// Teams returns the distinct teams in spawn order.
func (s *Scenario) Teams() []string {
	var teams []string
	seen := map[string]bool{}
	for _, sp := range s.Spawns {
		if !seen[sp.Team] {
			seen[sp.Team] = true
			teams = append(teams, sp.Team)
		}
	}
	return teams
}

// Validate checks the scenario's own fields; references to other content are
// checked by Load.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scenario: id must not be empty")
	}
	if s.Map == "" {
		return fmt.Errorf("scenario %q: map must not be empty", s.ID)
	}
	if len(s.Spawns) == 0 {
		return fmt.Errorf("scenario %q: spawns must not be empty", s.ID)
	}
	for i, sp := range s.Spawns {
		if sp.Team == "" || sp.Race == "" || sp.Class == "" {
			return fmt.Errorf("scenario %q spawn %d: team, race and class are required", s.ID, i)
		}
	}
	if len(s.Teams()) < 2 {
		return fmt.Errorf("scenario %q: at least two teams are required", s.ID)
	}
	return nil
}

// LoadScenarios reads every *.yaml file in dir as a Scenario.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns scenarios keyed by ID; duplicate IDs are an error.
func LoadScenarios(dir string) (map[string]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario dir %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make(map[string]*Scenario, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var sc Scenario
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, dup := out[sc.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario id %q in %q", sc.ID, path)
		}
		out[sc.ID] = &sc
	}
	return out, nil
}
