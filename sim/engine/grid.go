package engine

import "fmt"

// Grid is the static traversability and cost map. It is built once by world
// generation or scenario loading and never mutated while a simulation runs.
type Grid struct {
	size      int
	roughCost int
	cells     [][]CellType // indexed [y][x]
}

// NewGrid creates an all-free square grid of the given size.
func NewGrid(size, roughCost int) (*Grid, error) {
	if size < MinGridSize || size > MaxGridSize {
		return nil, fmt.Errorf("grid size must be between %d and %d, got %d", MinGridSize, MaxGridSize, size)
	}
	if roughCost < MinRoughCost || roughCost > MaxRoughCost {
		return nil, fmt.Errorf("rough cost must be between %d and %d, got %d", MinRoughCost, MaxRoughCost, roughCost)
	}

	cells := make([][]CellType, size)
	for y := range cells {
		cells[y] = make([]CellType, size)
		for x := range cells[y] {
			cells[y][x] = CellFree
		}
	}

	return &Grid{size: size, roughCost: roughCost, cells: cells}, nil
}

// Size returns the grid dimension N (the grid is N x N).
func (g *Grid) Size() int {
	return g.size
}

// RoughCost returns the configured movement cost for rough cells.
func (g *Grid) RoughCost() int {
	return g.roughCost
}

// InBounds reports whether the position lies on the grid.
func (g *Grid) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < g.size && pos.Y >= 0 && pos.Y < g.size
}

// CellAt returns the cell type at pos. Out-of-bounds positions read as wall.
func (g *Grid) CellAt(pos Position) CellType {
	if !g.InBounds(pos) {
		return CellWall
	}
	return g.cells[pos.Y][pos.X]
}

// SetCell changes a cell type. Only valid during world construction.
func (g *Grid) SetCell(pos Position, t CellType) error {
	if !g.InBounds(pos) {
		return fmt.Errorf("position (%d,%d) out of bounds for grid size %d", pos.X, pos.Y, g.size)
	}
	g.cells[pos.Y][pos.X] = t
	return nil
}

// IsTraversable reports whether the agent may occupy pos. Out-of-bounds and
// wall cells are not traversable.
func (g *Grid) IsTraversable(pos Position) bool {
	return g.InBounds(pos) && g.cells[pos.Y][pos.X] != CellWall
}

// MovementCost returns the battery/score cost of stepping onto pos: 1 for
// free, the configured rough cost for rough. It is never consulted for wall
// cells since they are not traversable.
func (g *Grid) MovementCost(pos Position) int {
	if g.CellAt(pos) == CellRough {
		return g.roughCost
	}
	return 1
}

// CountCells returns the number of cells of the given type.
func (g *Grid) CountCells(t CellType) int {
	count := 0
	for _, row := range g.cells {
		for _, cell := range row {
			if cell == t {
				count++
			}
		}
	}
	return count
}
