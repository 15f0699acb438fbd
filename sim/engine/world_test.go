package engine

import "testing"

func TestPositionSet_Order(t *testing.T) {
	set := NewPositionSet()
	positions := []Position{{X: 3, Y: 1}, {X: 0, Y: 0}, {X: 2, Y: 4}}
	for _, pos := range positions {
		set.Add(pos)
	}

	if set.Len() != 3 {
		t.Fatalf("Expected 3 members, got %d", set.Len())
	}
	got := set.Positions()
	for i, pos := range positions {
		if got[i] != pos {
			t.Errorf("Expected position %d to be (%d,%d), got (%d,%d)",
				i, pos.X, pos.Y, got[i].X, got[i].Y)
		}
	}
}

func TestPositionSet_AddDuplicate(t *testing.T) {
	set := NewPositionSet()
	set.Add(Position{X: 1, Y: 1})
	set.Add(Position{X: 1, Y: 1})

	if set.Len() != 1 {
		t.Errorf("Expected 1 member after duplicate add, got %d", set.Len())
	}
}

func TestPositionSet_Remove(t *testing.T) {
	set := NewPositionSet()
	set.Add(Position{X: 1, Y: 1})
	set.Add(Position{X: 2, Y: 2})
	set.Add(Position{X: 3, Y: 3})

	if !set.Remove(Position{X: 2, Y: 2}) {
		t.Error("Expected Remove to report the member was present")
	}
	if set.Contains(Position{X: 2, Y: 2}) {
		t.Error("Expected member to be gone after Remove")
	}
	if set.Remove(Position{X: 9, Y: 9}) {
		t.Error("Expected Remove of absent member to report false")
	}

	// Order of the survivors is preserved.
	got := set.Positions()
	if len(got) != 2 || got[0] != (Position{X: 1, Y: 1}) || got[1] != (Position{X: 3, Y: 3}) {
		t.Errorf("Expected survivors [(1,1) (3,3)], got %v", got)
	}
}

// buildTestWorld assembles a world over the given grid. Packages and goals
// keep their slice order, which is the discovery order planners see.
func buildTestWorld(t *testing.T, grid *Grid, start, recharger Position, packages, goals []Position) *World {
	t.Helper()
	world := &World{
		Grid:            grid,
		Packages:        NewPositionSet(),
		Goals:           NewPositionSet(),
		Recharger:       recharger,
		Start:           start,
		TotalDeliveries: len(goals),
	}
	for _, pos := range packages {
		world.Packages.Add(pos)
	}
	for _, pos := range goals {
		world.Goals.Add(pos)
	}
	return world
}

func TestWorld_Validate(t *testing.T) {
	grid := buildTestGrid(t, []string{
		".....",
		".....",
		".....",
		".....",
		".....",
	}, 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 2, Y: 2},
		[]Position{{X: 4, Y: 4}}, []Position{{X: 0, Y: 4}})

	if err := world.Validate(); err != nil {
		t.Errorf("Expected valid world, got %v", err)
	}
}

func TestWorld_Validate_CountMismatch(t *testing.T) {
	grid := buildTestGrid(t, []string{
		".....",
		".....",
		".....",
		".....",
		".....",
	}, 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 2, Y: 2},
		[]Position{{X: 4, Y: 4}, {X: 3, Y: 3}}, []Position{{X: 0, Y: 4}})

	if err := world.Validate(); err == nil {
		t.Error("Expected error for package/goal count mismatch")
	}
}

func TestWorld_Validate_Overlap(t *testing.T) {
	grid := buildTestGrid(t, []string{
		".....",
		".....",
		".....",
		".....",
		".....",
	}, 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 2, Y: 2},
		[]Position{{X: 2, Y: 2}}, []Position{{X: 0, Y: 4}})

	if err := world.Validate(); err == nil {
		t.Error("Expected error for package overlapping recharger")
	}
}

func TestWorld_Validate_EntityOnWall(t *testing.T) {
	grid := buildTestGrid(t, []string{
		".....",
		".#...",
		".....",
		".....",
		".....",
	}, 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 2, Y: 2},
		[]Position{{X: 1, Y: 1}}, []Position{{X: 0, Y: 4}})

	if err := world.Validate(); err == nil {
		t.Error("Expected error for package on wall")
	}
}

func TestWorld_Validate_RechargerUnreachable(t *testing.T) {
	grid := buildTestGrid(t, []string{
		"...#.",
		"...#.",
		"...#.",
		"...#.",
		"...#.",
	}, 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 4, Y: 2},
		[]Position{{X: 1, Y: 1}}, []Position{{X: 2, Y: 4}})

	if err := world.Validate(); err == nil {
		t.Error("Expected error for recharger walled off from the start")
	}
}
