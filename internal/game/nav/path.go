package nav

import (
	"container/heap"

	"github.com/cory-johannsen/gridtactics/internal/game/grid"
)

type pathNode struct {
	cell grid.Cell
	g    int
	h    int
	seq  int
	idx  int
}

func (n *pathNode) f() int { return n.g + n.h }

// openSet is a min-heap on f, then h, then insertion order.
type openSet []*pathNode

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if o[i].f() != o[j].f() {
		return o[i].f() < o[j].f()
	}
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].idx = i
	o[j].idx = j
}

func (o *openSet) Push(x any) {
	n := x.(*pathNode)
	n.idx = len(*o)
	*o = append(*o, n)
}

func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	n.idx = -1
	return n
}

// FindPath returns the cheapest 4-connected path from start to target,
// inclusive of both ends, using A* with the Manhattan heuristic. g is the
// cumulative move cost of entered cells; ties on f prefer the lower h.
//
// The target only needs terrain: it is neither walkability- nor
// occupancy-checked, so callers may path onto a unit they intend to attack.
// Every other occupied cell is a hard obstacle.
//
// Precondition: terrain must not be nil.
// Postcondition: Returns [start] when start == target; an empty slice when
// start is not walkable, target is off-map, or no path exists.
func FindPath(terrain grid.TerrainSource, start, target grid.Cell, occupants OccupantFunc) []grid.Cell {
	if !walkable(terrain, start) {
		return []grid.Cell{}
	}
	if start == target {
		return []grid.Cell{start}
	}
	if _, ok := terrain.TerrainAt(target); !ok {
		return []grid.Cell{}
	}

	seq := 0
	startNode := &pathNode{cell: start, g: 0, h: grid.Manhattan(start, target), seq: seq}
	open := &openSet{}
	heap.Push(open, startNode)
	nodes := map[grid.Cell]*pathNode{start: startNode}
	cameFrom := map[grid.Cell]grid.Cell{}
	closed := map[grid.Cell]bool{}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if cur.cell == target {
			return reconstruct(cameFrom, start, target)
		}
		closed[cur.cell] = true

		for _, n := range cur.cell.Neighbors() {
			if closed[n] {
				continue
			}
			t, ok := terrain.TerrainAt(n)
			if !ok {
				continue
			}
			if n != target {
				if !t.Walkable {
					continue
				}
				if occupants != nil {
					if _, occupied := occupants(n); occupied {
						continue
					}
				}
			}
			g := cur.g + stepCost(t)
			if existing, seen := nodes[n]; seen {
				if g >= existing.g {
					continue
				}
				existing.g = g
				cameFrom[n] = cur.cell
				heap.Fix(open, existing.idx)
				continue
			}
			seq++
			node := &pathNode{cell: n, g: g, h: grid.Manhattan(n, target), seq: seq}
			nodes[n] = node
			cameFrom[n] = cur.cell
			heap.Push(open, node)
		}
	}
	return []grid.Cell{}
}

// PathCost returns the summed move cost of every cell entered along path
// (the first cell is where the walker already stands).
//
// Postcondition: Returns 0 for paths of length <= 1.
func PathCost(terrain grid.TerrainSource, path []grid.Cell) int {
	total := 0
	for i := 1; i < len(path); i++ {
		t, ok := terrain.TerrainAt(path[i])
		if !ok {
			continue
		}
		total += stepCost(t)
	}
	return total
}

func stepCost(t grid.Terrain) int {
	if t.MoveCost < 1 {
		return 1
	}
	return t.MoveCost
}

func reconstruct(cameFrom map[grid.Cell]grid.Cell, start, target grid.Cell) []grid.Cell {
	path := []grid.Cell{target}
	for cur := target; cur != start; {
		cur = cameFrom[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
