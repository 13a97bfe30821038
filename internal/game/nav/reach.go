// Package nav implements the grid search algorithms: movement reachability
// and A* pathfinding over a grid.TerrainSource with dynamic occupancy.
package nav

import (
	"sort"

	"github.com/cory-johannsen/gridtactics/internal/game/grid"
)

// OccupantFunc reports the ID of the unit standing on c, if any.
// A nil OccupantFunc means no cell is occupied.
type OccupantFunc func(c grid.Cell) (id string, occupied bool)

// CellSet is an unordered set of grid cells.
type CellSet map[grid.Cell]struct{}

// Has reports whether c is in the set.
func (s CellSet) Has(c grid.Cell) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in row-major order.
func (s CellSet) Sorted() []grid.Cell {
	out := make([]grid.Cell, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

type reachNode struct {
	cell grid.Cell
	cost int
}

// Reachable returns the cells a unit standing on start can move to with the
// given movement budget.
//
// The search is breadth-first over 4-connected neighbours, accumulating the
// terrain move cost of every entered cell. A cell is examined at most once:
// the first time it is checked it is frozen, whether it was accepted or not.
// With non-uniform costs this can omit a cell that a cheaper, later-discovered
// path would reach; callers rely on that behaviour.
//
// Precondition: self is the ID of the moving unit; its own cell never blocks it.
// Postcondition: Returns an empty set if start is off-map, unwalkable, or held
// by another unit. Otherwise the result contains start and no cell occupied by
// another unit.
func Reachable(terrain grid.TerrainSource, start grid.Cell, budget int, self string, occupants OccupantFunc) CellSet {
	result := CellSet{}
	if !walkable(terrain, start) || blockedFor(occupants, start, self) {
		return result
	}

	result[start] = struct{}{}
	visited := map[grid.Cell]bool{start: true}
	queue := []reachNode{{cell: start, cost: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range cur.cell.Neighbors() {
			if visited[n] {
				continue
			}
			visited[n] = true
			t, ok := terrain.TerrainAt(n)
			if !ok || !t.Walkable {
				continue
			}
			if blockedFor(occupants, n, self) {
				continue
			}
			cost := cur.cost + t.MoveCost
			if cost > budget {
				continue
			}
			result[n] = struct{}{}
			queue = append(queue, reachNode{cell: n, cost: cost})
		}
	}
	return result
}

func walkable(terrain grid.TerrainSource, c grid.Cell) bool {
	t, ok := terrain.TerrainAt(c)
	return ok && t.Walkable
}

// blockedFor reports whether c holds a unit other than self.
func blockedFor(occupants OccupantFunc, c grid.Cell, self string) bool {
	if occupants == nil {
		return false
	}
	id, ok := occupants(c)
	return ok && id != self
}
