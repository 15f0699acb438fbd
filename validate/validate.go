// Command validate provides a small CLI that validates scenario JSON files
// in the ../configs directory. It checks:
//   - JSON structure and required fields
//   - Grid consistency and allowed characters (., #, ~, P, G, R, S)
//   - Exactly one start (S) and one recharger (R)
//   - At least one package (P) and a matching number of goals (G)
//   - Required legend keys
//   - Connectivity: packages, goals and the recharger are reachable from the
//     start via passable cells
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scenario mirrors the JSON schema for a scenario file.
type Scenario struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	GridSize    int               `json:"grid_size"`
	RoughCost   int               `json:"rough_cost"`
	Layout      []string          `json:"layout"`
	Legend      map[string]string `json:"legend"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateScenario loads and validates a single scenario JSON file.
// It performs structural checks, grid/legend validation, and reachability
// analysis for packages, goals and the recharger.
func validateScenario(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var scenario Scenario
	if err := json.Unmarshal(data, &scenario); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if scenario.Name == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Name is required")
	}
	if scenario.Description == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Description is required")
	}

	// Validate grid
	if len(scenario.Layout) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "Layout is empty")
	}

	if scenario.GridSize > 0 && len(scenario.Layout) > 0 && len(scenario.Layout) != scenario.GridSize {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Layout has %d rows but grid_size is %d", len(scenario.Layout), scenario.GridSize))
	}

	gridWidth := -1
	startCount := 0
	rechargerCount := 0
	packageCount := 0
	goalCount := 0
	roughCount := 0
	validChars := map[rune]bool{
		'.': true, // Free
		'#': true, // Wall
		'~': true, // Rough
		'P': true, // Package
		'G': true, // Goal
		'R': true, // Recharger
		'S': true, // Start
	}

	for i, row := range scenario.Layout {
		if gridWidth == -1 {
			gridWidth = len(row)
		} else if len(row) != gridWidth {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Inconsistent grid width at row %d: expected %d, got %d", i+1, gridWidth, len(row)))
		}

		for j, char := range row {
			if !validChars[char] {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Invalid character '%c' at position [%d,%d]", char, i+1, j+1))
			}
			switch char {
			case 'S':
				startCount++
			case 'R':
				rechargerCount++
			case 'P':
				packageCount++
			case 'G':
				goalCount++
			case '~':
				roughCount++
			}
		}
	}

	// Validate world elements
	if startCount != 1 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Must have exactly 1 start (S) cell, got %d", startCount))
	}

	if rechargerCount != 1 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Must have exactly 1 recharger (R) cell, got %d", rechargerCount))
	}

	if packageCount == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "Must have at least 1 package (P)")
	}

	if packageCount != goalCount {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Package count (%d) must match goal count (%d)", packageCount, goalCount))
	}

	// Validate rough cost (0 means the default applies)
	if scenario.RoughCost != 0 && (scenario.RoughCost < 2 || scenario.RoughCost > 9) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("rough_cost must be between 2 and 9, got %d", scenario.RoughCost))
	}

	// Validate legend
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
		if value, exists := scenario.Legend[key]; !exists || value != expectedValue {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Legend key '%s' must map to '%s'", key, expectedValue))
		}
	}

	// Connectivity validation - check if packages, goals and the recharger
	// are reachable from the start
	if result.Valid {
		reachabilityResult := validateConnectivity(scenario.Layout)
		if !reachabilityResult.Valid {
			result.Valid = false
			result.Errors = append(result.Errors, reachabilityResult.Errors...)
		} else {
			result.Errors = append(result.Errors, reachabilityResult.Errors...)
		}
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", scenario.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", len(scenario.Layout), gridWidth))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Packages: %d", packageCount))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Goals: %d", goalCount))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Rough cells: %d", roughCount))
	}

	return result
}

// validateConnectivity ensures packages, goals and the recharger are
// reachable from the start using 4-directional movement over passable cells
// (everything except '#'). It reports any unreachable objectives and returns
// an aggregated ValidationResult.
func validateConnectivity(layout []string) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	if len(layout) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "Cannot validate connectivity: empty layout")
		return result
	}

	height := len(layout)
	width := len(layout[0])

	// Find the start and every objective cell
	var start []int
	var objectives [][]int
	objectiveNames := map[string]string{}

	for y := 0; y < height; y++ {
		for x := 0; x < width && x < len(layout[y]); x++ {
			cell := rune(layout[y][x])
			switch cell {
			case 'S':
				start = []int{x, y}
			case 'P':
				objectives = append(objectives, []int{x, y})
				objectiveNames[fmt.Sprintf("%d,%d", x, y)] = "Package"
			case 'G':
				objectives = append(objectives, []int{x, y})
				objectiveNames[fmt.Sprintf("%d,%d", x, y)] = "Goal"
			case 'R':
				objectives = append(objectives, []int{x, y})
				objectiveNames[fmt.Sprintf("%d,%d", x, y)] = "Recharger"
			}
		}
	}

	if start == nil {
		result.Valid = false
		result.Errors = append(result.Errors, "No start position found for connectivity test")
		return result
	}

	if len(objectives) == 0 {
		// Already validated elsewhere, but just in case
		result.Valid = false
		result.Errors = append(result.Errors, "No objectives found for connectivity test")
		return result
	}

	// Flood fill from the start to find all reachable cells
	visited := make(map[string]bool)
	queue := [][]int{start}

	// Helper function to check if a cell is passable
	isPassable := func(x, y int) bool {
		if x < 0 || y < 0 || y >= height || x >= width || x >= len(layout[y]) {
			return false
		}
		return rune(layout[y][x]) != '#'
	}

	// Flood fill algorithm
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		x, y := current[0], current[1]
		key := fmt.Sprintf("%d,%d", x, y)

		if visited[key] {
			continue
		}
		visited[key] = true

		// Check all 4 directions
		directions := [][]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
		for _, dir := range directions {
			nx, ny := x+dir[0], y+dir[1]
			nkey := fmt.Sprintf("%d,%d", nx, ny)

			if !visited[nkey] && isPassable(nx, ny) {
				queue = append(queue, []int{nx, ny})
			}
		}
	}

	// Check that every objective is reachable
	unreachable := []string{}
	for _, obj := range objectives {
		ox, oy := obj[0], obj[1]
		key := fmt.Sprintf("%d,%d", ox, oy)
		if !visited[key] {
			unreachable = append(unreachable, fmt.Sprintf("%s at (%d,%d)", objectiveNames[key], ox, oy))
		}
	}

	if len(unreachable) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Connectivity failure: %d/%d objectives unreachable from start", len(unreachable), len(objectives)))
		for _, obj := range unreachable {
			result.Errors = append(result.Errors, fmt.Sprintf("Unreachable: %s", obj))
		}
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Connectivity: All %d objectives reachable from start", len(objectives)))
	}

	return result
}

// main scans ../configs for *.json files and validates each one, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding scenario files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateScenario(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All scenarios are valid!")
	} else {
		fmt.Println("❌ Some scenarios have errors")
		os.Exit(1)
	}
}
