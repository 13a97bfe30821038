// Package grid provides battle-map coordinates and per-cell terrain lookup.
package grid

import "fmt"

// Cell is an integer grid coordinate.
type Cell struct {
	X int
	Y int
}

// String returns the cell as "(x,y)".
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns c offset by d.
func (c Cell) Add(d Cell) Cell {
	return Cell{X: c.X + d.X, Y: c.Y + d.Y}
}

// Less orders cells row-major (Y, then X). Used wherever a deterministic
// iteration order over cell sets is required.
func (c Cell) Less(o Cell) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// directions lists the four neighbour offsets in expansion order.
var directions = [4]Cell{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Neighbors returns the four orthogonal neighbours of c in the fixed order
// +x, -x, +y, -y.
//
// Postcondition: Manhattan(c, n) == 1 for every returned n.
func (c Cell) Neighbors() [4]Cell {
	var out [4]Cell
	for i, d := range directions {
		out[i] = c.Add(d)
	}
	return out
}

// Manhattan returns |dx| + |dy| between a and b.
//
// Postcondition: Returns >= 0; Manhattan(a, b) == Manhattan(b, a).
func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Point is a world-space position.
type Point struct {
	X float64
	Y float64
}
