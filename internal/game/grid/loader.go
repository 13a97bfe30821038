package grid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// tomlMap is the on-disk TOML representation of a battle map.
type tomlMap struct {
	ID       string                 `toml:"id"`
	CellSize float64                `toml:"cell_size"`
	OriginX  float64                `toml:"origin_x"`
	OriginY  float64                `toml:"origin_y"`
	Legend   map[string]tomlTerrain `toml:"legend"`
	Rows     []string               `toml:"rows"`
}

type tomlTerrain struct {
	Name     string `toml:"name"`
	Walkable bool   `toml:"walkable"`
	Cost     int    `toml:"cost"`
}

// LoadMapFromBytes parses a TOML map. Row i of the file is grid row Y == i and
// column j is X == j; a space leaves the cell empty (off-map).
//
// Precondition: data must be a TOML document conforming to the map schema.
// Postcondition: Returns a populated Index, or an error naming the first
// integrity violation (unknown keys, unknown symbols, bad costs).
func LoadMapFromBytes(data []byte) (*Index, error) {
	var m tomlMap
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parsing map TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("map %q: unknown keys %v", m.ID, undecoded)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("map: id must not be empty")
	}
	if m.CellSize <= 0 {
		return nil, fmt.Errorf("map %q: cell_size must be > 0, got %v", m.ID, m.CellSize)
	}
	if len(m.Rows) == 0 {
		return nil, fmt.Errorf("map %q: rows must not be empty", m.ID)
	}

	legend := make(map[rune]Terrain, len(m.Legend))
	for sym, lt := range m.Legend {
		runes := []rune(sym)
		if len(runes) != 1 {
			return nil, fmt.Errorf("map %q: legend symbol %q must be a single character", m.ID, sym)
		}
		if runes[0] == ' ' {
			return nil, fmt.Errorf("map %q: legend symbol must not be a space", m.ID)
		}
		name := lt.Name
		if name == "" {
			name = sym
		}
		legend[runes[0]] = Terrain{Name: name, Walkable: lt.Walkable, MoveCost: lt.Cost}
	}

	ix := NewIndex(m.ID, m.CellSize, Point{X: m.OriginX, Y: m.OriginY})
	for y, row := range m.Rows {
		for x, sym := range []rune(row) {
			if sym == ' ' {
				continue
			}
			t, ok := legend[sym]
			if !ok {
				return nil, fmt.Errorf("map %q: unknown symbol %q at (%d,%d)", m.ID, sym, x, y)
			}
			if err := ix.Place(Cell{X: x, Y: y}, t); err != nil {
				return nil, err
			}
		}
	}
	return ix, nil
}

// LoadMapFile reads and parses a single TOML map file.
//
// Precondition: path must point to a readable TOML map file.
// Postcondition: Returns a populated Index or a non-nil error.
func LoadMapFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file %s: %w", path, err)
	}
	ix, err := LoadMapFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading map %s: %w", path, err)
	}
	return ix, nil
}

// LoadMapsFromDir loads every *.toml file in dir, keyed by map ID.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all maps or the first error; duplicate IDs are an error.
func LoadMapsFromDir(dir string) (map[string]*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading map directory %s: %w", dir, err)
	}
	maps := make(map[string]*Index)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		ix, err := LoadMapFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := maps[ix.ID()]; dup {
			return nil, fmt.Errorf("duplicate map id %q in %s", ix.ID(), e.Name())
		}
		maps[ix.ID()] = ix
	}
	return maps, nil
}
