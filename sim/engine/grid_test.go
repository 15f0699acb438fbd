package engine

import "testing"

// buildTestGrid turns ASCII rows into a grid: '#' wall, '~' rough, anything
// else free. Shared by the pathfinder, planner and simulation tests.
func buildTestGrid(t *testing.T, rows []string, roughCost int) *Grid {
	t.Helper()
	grid, err := NewGrid(len(rows), roughCost)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	for y, row := range rows {
		for x, ch := range row {
			pos := Position{X: x, Y: y}
			switch ch {
			case '#':
				if err := grid.SetCell(pos, CellWall); err != nil {
					t.Fatalf("Failed to set wall at (%d,%d): %v", x, y, err)
				}
			case '~':
				if err := grid.SetCell(pos, CellRough); err != nil {
					t.Fatalf("Failed to set rough at (%d,%d): %v", x, y, err)
				}
			}
		}
	}
	return grid
}

func TestNewGrid(t *testing.T) {
	grid, err := NewGrid(10, 3)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	if grid.Size() != 10 {
		t.Errorf("Expected size 10, got %d", grid.Size())
	}
	if grid.RoughCost() != 3 {
		t.Errorf("Expected rough cost 3, got %d", grid.RoughCost())
	}
	if grid.CountCells(CellFree) != 100 {
		t.Errorf("Expected 100 free cells, got %d", grid.CountCells(CellFree))
	}
}

func TestNewGrid_InvalidSize(t *testing.T) {
	if _, err := NewGrid(MinGridSize-1, 3); err == nil {
		t.Error("Expected error for grid below minimum size")
	}
	if _, err := NewGrid(MaxGridSize+1, 3); err == nil {
		t.Error("Expected error for grid above maximum size")
	}
}

func TestNewGrid_InvalidRoughCost(t *testing.T) {
	if _, err := NewGrid(10, 1); err == nil {
		t.Error("Expected error for rough cost below minimum")
	}
	if _, err := NewGrid(10, MaxRoughCost+1); err == nil {
		t.Error("Expected error for rough cost above maximum")
	}
}

func TestGrid_IsTraversable(t *testing.T) {
	grid := buildTestGrid(t, []string{
		".....",
		".#...",
		".....",
		"...~.",
		".....",
	}, 3)

	if !grid.IsTraversable(Position{X: 0, Y: 0}) {
		t.Error("Expected free cell to be traversable")
	}
	if grid.IsTraversable(Position{X: 1, Y: 1}) {
		t.Error("Expected wall cell not to be traversable")
	}
	if !grid.IsTraversable(Position{X: 3, Y: 3}) {
		t.Error("Expected rough cell to be traversable")
	}
	if grid.IsTraversable(Position{X: -1, Y: 0}) {
		t.Error("Expected out-of-bounds cell not to be traversable")
	}
	if grid.IsTraversable(Position{X: 0, Y: 5}) {
		t.Error("Expected out-of-bounds cell not to be traversable")
	}
}

func TestGrid_MovementCost(t *testing.T) {
	grid := buildTestGrid(t, []string{
		".....",
		".....",
		"..~..",
		".....",
		".....",
	}, 3)

	if cost := grid.MovementCost(Position{X: 0, Y: 0}); cost != 1 {
		t.Errorf("Expected free cell cost 1, got %d", cost)
	}
	if cost := grid.MovementCost(Position{X: 2, Y: 2}); cost != 3 {
		t.Errorf("Expected rough cell cost 3, got %d", cost)
	}
}

func TestGrid_CellAt_OutOfBounds(t *testing.T) {
	grid, err := NewGrid(5, 2)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}
	if cell := grid.CellAt(Position{X: 7, Y: 7}); cell != CellWall {
		t.Errorf("Expected out-of-bounds cell to read as wall, got %s", cell)
	}
}

func TestGrid_SetCell(t *testing.T) {
	grid, err := NewGrid(5, 2)
	if err != nil {
		t.Fatalf("Failed to create grid: %v", err)
	}

	pos := Position{X: 2, Y: 3}
	if err := grid.SetCell(pos, CellRough); err != nil {
		t.Fatalf("Failed to set cell: %v", err)
	}
	if grid.CellAt(pos) != CellRough {
		t.Errorf("Expected rough cell after SetCell, got %s", grid.CellAt(pos))
	}

	if err := grid.SetCell(Position{X: 9, Y: 0}, CellWall); err == nil {
		t.Error("Expected error setting out-of-bounds cell")
	}
}
