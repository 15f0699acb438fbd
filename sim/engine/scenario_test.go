package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createValidScenario() *Scenario {
	return &Scenario{
		Name:        "crossing",
		Description: "A small crossing with one delivery",
		GridSize:    5,
		Layout: []string{
			"S....",
			".#...",
			"..R..",
			"...~.",
			"P...G",
		},
		Legend: map[string]string{
			".": "free",
			"#": "wall",
			"~": "rough",
			"P": "package",
			"G": "goal",
			"R": "recharger",
			"S": "start",
		},
	}
}

func TestValidateScenario_Valid(t *testing.T) {
	s := createValidScenario()
	if err := ValidateScenario(s); err != nil {
		t.Errorf("Expected valid scenario to pass validation, got: %v", err)
	}
}

func TestValidateScenario_MissingName(t *testing.T) {
	s := createValidScenario()
	s.Name = ""
	err := ValidateScenario(s)
	if err == nil {
		t.Error("Expected error for missing name")
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("Expected name validation error, got: %v", err)
	}
}

func TestValidateScenario_InvalidGridSize(t *testing.T) {
	tests := []struct {
		name     string
		gridSize int
	}{
		{"too small", 4},
		{"too large", 51},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := createValidScenario()
			s.GridSize = test.gridSize
			err := ValidateScenario(s)
			if err == nil {
				t.Errorf("Expected error for grid size %d", test.gridSize)
			}
			if !strings.Contains(err.Error(), "grid_size must be between") {
				t.Errorf("Expected grid size validation error, got: %v", err)
			}
		})
	}
}

func TestValidateScenario_RowLengthMismatch(t *testing.T) {
	s := createValidScenario()
	s.Layout[1] = ".#." // Row too short
	err := ValidateScenario(s)
	if err == nil {
		t.Error("Expected error for short row")
	}
	if !strings.Contains(err.Error(), "row 2 must have 5 characters") {
		t.Errorf("Expected row length validation error, got: %v", err)
	}
}

func TestValidateScenario_InvalidCharacter(t *testing.T) {
	s := createValidScenario()
	s.Layout[1] = ".#X.." // X is invalid
	err := ValidateScenario(s)
	if err == nil {
		t.Error("Expected error for invalid character")
	}
	if !strings.Contains(err.Error(), "invalid character 'X'") {
		t.Errorf("Expected character validation error, got: %v", err)
	}
}

func TestValidateScenario_MissingStart(t *testing.T) {
	s := createValidScenario()
	s.Layout[0] = "....."
	err := ValidateScenario(s)
	if err == nil {
		t.Error("Expected error for missing start")
	}
	if !strings.Contains(err.Error(), "exactly one start") {
		t.Errorf("Expected start validation error, got: %v", err)
	}
}

func TestValidateScenario_DuplicateRecharger(t *testing.T) {
	s := createValidScenario()
	s.Layout[3] = "R..~."
	err := ValidateScenario(s)
	if err == nil {
		t.Error("Expected error for a second recharger")
	}
	if !strings.Contains(err.Error(), "exactly one recharger") {
		t.Errorf("Expected recharger validation error, got: %v", err)
	}
}

func TestValidateScenario_PackageGoalMismatch(t *testing.T) {
	s := createValidScenario()
	s.Layout[4] = "P..PG" // Two packages, one goal
	err := ValidateScenario(s)
	if err == nil {
		t.Error("Expected error for unbalanced packages and goals")
	}
	if !strings.Contains(err.Error(), "must match goal count") {
		t.Errorf("Expected count validation error, got: %v", err)
	}
}

func TestValidateScenario_InvalidLegend(t *testing.T) {
	s := createValidScenario()
	s.Legend["#"] = "wrong" // Should be "wall"
	err := ValidateScenario(s)
	if err == nil {
		t.Error("Expected error for wrong legend value")
	}
	if !strings.Contains(err.Error(), "legend['#']") {
		t.Errorf("Expected legend validation error, got: %v", err)
	}
}

func TestBuildWorld(t *testing.T) {
	s := createValidScenario()
	world, err := BuildWorld(s, 3)
	if err != nil {
		t.Fatalf("BuildWorld failed: %v", err)
	}

	if world.Start != (Position{X: 0, Y: 0}) {
		t.Errorf("Expected start (0,0), got (%d,%d)", world.Start.X, world.Start.Y)
	}
	if world.Recharger != (Position{X: 2, Y: 2}) {
		t.Errorf("Expected recharger (2,2), got (%d,%d)", world.Recharger.X, world.Recharger.Y)
	}
	if world.Grid.CellAt(Position{X: 1, Y: 1}) != CellWall {
		t.Errorf("Expected wall at (1,1), got %q", world.Grid.CellAt(Position{X: 1, Y: 1}))
	}
	if world.Grid.CellAt(Position{X: 3, Y: 3}) != CellRough {
		t.Errorf("Expected rough at (3,3), got %q", world.Grid.CellAt(Position{X: 3, Y: 3}))
	}
	// Entity cells stay plain free terrain.
	if world.Grid.CellAt(world.Start) != CellFree {
		t.Errorf("Expected free cell under the start, got %q", world.Grid.CellAt(world.Start))
	}
	if !world.Packages.Contains(Position{X: 0, Y: 4}) {
		t.Error("Expected package at (0,4)")
	}
	if !world.Goals.Contains(Position{X: 4, Y: 4}) {
		t.Error("Expected goal at (4,4)")
	}
	if world.TotalDeliveries != 1 {
		t.Errorf("Expected 1 total delivery, got %d", world.TotalDeliveries)
	}
}

func TestBuildWorld_RoughCostFallback(t *testing.T) {
	s := createValidScenario()
	world, err := BuildWorld(s, 4)
	if err != nil {
		t.Fatalf("BuildWorld failed: %v", err)
	}
	if world.Grid.RoughCost() != 4 {
		t.Errorf("Expected fallback rough cost 4, got %d", world.Grid.RoughCost())
	}

	s.RoughCost = 2
	world, err = BuildWorld(s, 4)
	if err != nil {
		t.Fatalf("BuildWorld failed with explicit rough cost: %v", err)
	}
	if world.Grid.RoughCost() != 2 {
		t.Errorf("Expected explicit rough cost 2, got %d", world.Grid.RoughCost())
	}
}

func TestBuildWorld_UnreachableRecharger(t *testing.T) {
	s := createValidScenario()
	s.Layout = []string{
		"S.#..",
		"..#..",
		"..#R.",
		"..#..",
		"P.#.G",
	}
	_, err := BuildWorld(s, 3)
	if err == nil {
		t.Error("Expected error for a recharger cut off from the start")
	}
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crossing.json")
	data := []byte(`{
		"name": "crossing",
		"description": "A small crossing with one delivery",
		"grid_size": 5,
		"layout": ["S....", ".#...", "..R..", "...~.", "P...G"],
		"legend": {
			".": "free", "#": "wall", "~": "rough",
			"P": "package", "G": "goal", "R": "recharger", "S": "start"
		}
	}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write scenario file: %v", err)
	}

	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if s.Name != "crossing" {
		t.Errorf("Expected name 'crossing', got %q", s.Name)
	}
	if s.GridSize != 5 {
		t.Errorf("Expected grid size 5, got %d", s.GridSize)
	}
}

func TestLoadScenario_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write scenario file: %v", err)
	}

	if _, err := LoadScenario(path); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestLoadScenario_Missing(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Expected error for a missing file")
	}
}
