package grid

import (
	"fmt"
	"math"
	"sort"
)

// Terrain is the immutable per-tile record.
type Terrain struct {
	Name     string
	Walkable bool
	// MoveCost is the cost of entering the tile; >= 1 for walkable terrain.
	MoveCost int
}

// TerrainSource is the read-only terrain lookup consumed by the search
// algorithms.
type TerrainSource interface {
	// TerrainAt returns the terrain of c, or (Terrain{}, false) for an off-map cell.
	TerrainAt(c Cell) (Terrain, bool)
}

// Index converts between world and grid coordinates and owns the terrain of
// one battle map. It is populated once by Place during load and is read-only
// afterwards.
type Index struct {
	id       string
	cellSize float64
	origin   Point
	tiles    map[Cell]Terrain
	min, max Cell
}

// NewIndex creates an empty Index.
//
// Precondition: cellSize > 0.
// Postcondition: Returns a non-nil Index with no tiles.
func NewIndex(id string, cellSize float64, origin Point) *Index {
	if cellSize <= 0 {
		panic("grid.NewIndex: cellSize must be > 0")
	}
	return &Index{
		id:       id,
		cellSize: cellSize,
		origin:   origin,
		tiles:    make(map[Cell]Terrain),
	}
}

// ID returns the map identifier.
func (ix *Index) ID() string { return ix.id }

// Place stores terrain for c. Placing the same cell twice is an error.
//
// Precondition: walkable terrain must have MoveCost >= 1.
// Postcondition: TerrainAt(c) returns t on success.
func (ix *Index) Place(c Cell, t Terrain) error {
	if _, exists := ix.tiles[c]; exists {
		return fmt.Errorf("map %q: cell %s placed twice", ix.id, c)
	}
	if t.Walkable && t.MoveCost < 1 {
		return fmt.Errorf("map %q: walkable terrain %q at %s must have move cost >= 1, got %d", ix.id, t.Name, c, t.MoveCost)
	}
	if len(ix.tiles) == 0 {
		ix.min, ix.max = c, c
	} else {
		ix.min = Cell{X: min(ix.min.X, c.X), Y: min(ix.min.Y, c.Y)}
		ix.max = Cell{X: max(ix.max.X, c.X), Y: max(ix.max.Y, c.Y)}
	}
	ix.tiles[c] = t
	return nil
}

// TerrainAt returns the terrain of c. An absent tile is a valid "no data"
// result, not an error.
func (ix *Index) TerrainAt(c Cell) (Terrain, bool) {
	t, ok := ix.tiles[c]
	return t, ok
}

// Walkable reports whether c has terrain and that terrain is walkable.
func (ix *Index) Walkable(c Cell) bool {
	t, ok := ix.tiles[c]
	return ok && t.Walkable
}

// WorldToGrid returns the cell containing p.
func (ix *Index) WorldToGrid(p Point) Cell {
	return Cell{
		X: int(math.Floor((p.X - ix.origin.X) / ix.cellSize)),
		Y: int(math.Floor((p.Y - ix.origin.Y) / ix.cellSize)),
	}
}

// GridToWorld returns the world position of the centre of c.
//
// Postcondition: WorldToGrid(GridToWorld(c)) == c.
func (ix *Index) GridToWorld(c Cell) Point {
	return Point{
		X: ix.origin.X + (float64(c.X)+0.5)*ix.cellSize,
		Y: ix.origin.Y + (float64(c.Y)+0.5)*ix.cellSize,
	}
}

// Bounds returns the inclusive bounding box of all placed tiles.
// Both values are the zero Cell when the index is empty.
func (ix *Index) Bounds() (Cell, Cell) {
	return ix.min, ix.max
}

// Len returns the number of placed tiles.
func (ix *Index) Len() int { return len(ix.tiles) }

// Cells returns every placed cell in row-major order.
func (ix *Index) Cells() []Cell {
	out := make([]Cell, 0, len(ix.tiles))
	for c := range ix.tiles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
