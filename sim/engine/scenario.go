package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// Scenario describes a hand-authored world as a character layout plus
// metadata. Each layout cell is one rune: terrain ('.', '#', '~') or an
// entity standing on plain ground ('P' package, 'G' goal, 'R' recharger,
// 'S' start).
type Scenario struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	GridSize    int               `json:"grid_size"`
	RoughCost   int               `json:"rough_cost,omitempty"`
	Layout      []string          `json:"layout"`
	Legend      map[string]string `json:"legend"`
}

// ValidateScenario validates a scenario for correctness before any world is
// built from it.
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario validation: name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("scenario validation: description is required")
	}

	if s.GridSize < MinGridSize || s.GridSize > MaxGridSize {
		return fmt.Errorf("scenario validation: grid_size must be between %d and %d, got %d",
			MinGridSize, MaxGridSize, s.GridSize)
	}
	if s.RoughCost != 0 && (s.RoughCost < MinRoughCost || s.RoughCost > MaxRoughCost) {
		return fmt.Errorf("scenario validation: rough_cost must be 0 or between %d and %d, got %d",
			MinRoughCost, MaxRoughCost, s.RoughCost)
	}

	if len(s.Layout) != s.GridSize {
		return fmt.Errorf("scenario validation: layout must have %d rows to match grid_size, got %d",
			s.GridSize, len(s.Layout))
	}

	starts := 0
	rechargers := 0
	packages := 0
	goals := 0
	for i, row := range s.Layout {
		if len(row) != s.GridSize {
			return fmt.Errorf("scenario validation: row %d must have %d characters to match grid_size, got %d",
				i+1, s.GridSize, len(row))
		}
		for j, char := range row {
			switch char {
			case '.', '#', '~':
			case 'S':
				starts++
			case 'R':
				rechargers++
			case 'P':
				packages++
			case 'G':
				goals++
			default:
				return fmt.Errorf("scenario validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
		}
	}

	if starts != 1 {
		return fmt.Errorf("scenario validation: layout must contain exactly one start (S) cell, got %d", starts)
	}
	if rechargers != 1 {
		return fmt.Errorf("scenario validation: layout must contain exactly one recharger (R) cell, got %d", rechargers)
	}
	if packages == 0 {
		return fmt.Errorf("scenario validation: layout must contain at least one package (P) cell")
	}
	if packages != goals {
		return fmt.Errorf("scenario validation: package count %d must match goal count %d", packages, goals)
	}

	requiredLegend := map[string]string{
		".": "free",
		"#": "wall",
		"~": "rough",
		"P": "package",
		"G": "goal",
		"R": "recharger",
		"S": "start",
	}
	for key, expectedValue := range requiredLegend {
		if value, ok := s.Legend[key]; !ok || value != expectedValue {
			return fmt.Errorf("scenario validation: legend['%s'] must be '%s', got '%s'", key, expectedValue, value)
		}
	}

	return nil
}

// BuildWorld constructs a validated world from the scenario. Entity cells
// become plain free terrain under their entity. A zero rough_cost falls back
// to defaultRoughCost.
func BuildWorld(s *Scenario, defaultRoughCost int) (*World, error) {
	if err := ValidateScenario(s); err != nil {
		return nil, err
	}

	roughCost := s.RoughCost
	if roughCost == 0 {
		roughCost = defaultRoughCost
	}
	grid, err := NewGrid(s.GridSize, roughCost)
	if err != nil {
		return nil, err
	}

	world := &World{
		Grid:     grid,
		Packages: NewPositionSet(),
		Goals:    NewPositionSet(),
	}
	for y, row := range s.Layout {
		for x, char := range row {
			pos := Position{X: x, Y: y}
			switch char {
			case '#':
				_ = grid.SetCell(pos, CellWall)
			case '~':
				_ = grid.SetCell(pos, CellRough)
			case 'P':
				world.Packages.Add(pos)
			case 'G':
				world.Goals.Add(pos)
			case 'R':
				world.Recharger = pos
			case 'S':
				world.Start = pos
			}
		}
	}
	world.TotalDeliveries = world.Packages.Len()

	if err := world.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q builds an invalid world: %w", s.Name, err)
	}
	return world, nil
}

// LoadScenario loads and validates a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := ValidateScenario(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
