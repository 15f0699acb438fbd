package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/service"
	"github.com/gridsim/deliverybot/sim/worldgen"
)

// FilePersistence implements RunPersistence using file system storage
type FilePersistence struct {
	runsDir   string
	scenarios service.ScenarioManager
}

// NewFilePersistence creates a new file-based run persistence layer
func NewFilePersistence(runsDir string, scenarios service.ScenarioManager) (*FilePersistence, error) {
	// Create runs directory if it doesn't exist
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	return &FilePersistence{
		runsDir:   runsDir,
		scenarios: scenarios,
	}, nil
}

// Save persists a run to a JSON file. The write goes to a temp file first
// and renames into place, so a crash mid-write never corrupts a run file.
func (fp *FilePersistence) Save(run *service.Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	// Create persisted data structure
	data := PersistedRunData{
		ID:             run.ID,
		Policy:         run.Policy,
		Scenario:       run.Scenario,
		Seed:           run.Seed,
		Params:         run.Params,
		Tuning:         run.Tuning,
		CreatedAt:      run.CreatedAt,
		LastAccessedAt: run.LastAccessedAt,
		Snapshot:       run.Sim.Snapshot(),
	}

	// Marshal to JSON with indentation for readability
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run data: %w", err)
	}

	filePath := fp.getFilePath(run.ID)
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize run file: %w", err)
	}

	return nil
}

// Load retrieves a run from a JSON file, rebuilding its world from the
// scenario or seed and restoring the persisted state on top.
func (fp *FilePersistence) Load(id string) (*service.Run, error) {
	filePath := fp.getFilePath(id)

	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, service.ErrRunNotFound
	}

	// Read file
	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	// Unmarshal JSON
	var data PersistedRunData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run data: %w", err)
	}

	// Rebuild the world
	world, err := fp.buildWorld(&data)
	if err != nil {
		return nil, err
	}

	// Recreate planner and simulation against the rebuilt world
	planner, err := engine.NewPlanner(data.Policy, engine.NewPathFinder(world.Grid), data.Tuning.FeasibilityMargin)
	if err != nil {
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}
	sim := engine.NewSimulation(world, planner, data.Tuning)

	// Restore the persisted state
	if err := sim.Restore(data.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to restore run state: %w", err)
	}

	// Create run
	run := &service.Run{
		ID:             data.ID,
		Sim:            sim,
		Policy:         data.Policy,
		Scenario:       data.Scenario,
		Seed:           data.Seed,
		Params:         data.Params,
		Tuning:         data.Tuning,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}

	return run, nil
}

// Delete removes a run file
func (fp *FilePersistence) Delete(id string) error {
	filePath := fp.getFilePath(id)

	// Check if file exists
	if !fp.Exists(id) {
		return service.ErrRunNotFound
	}

	// Remove file
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to remove run file: %w", err)
	}

	return nil
}

// ListAll returns all persisted run IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var runIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			// Remove .json extension to get run ID
			runID := strings.TrimSuffix(name, ".json")
			runIDs = append(runIDs, runID)
		}
	}

	return runIDs, nil
}

// Exists checks if a run file exists
func (fp *FilePersistence) Exists(id string) bool {
	filePath := fp.getFilePath(id)
	_, err := os.Stat(filePath)
	return err == nil
}

// getFilePath returns the full file path for a run ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.runsDir, fmt.Sprintf("%s.json", strings.ToLower(id)))
}

// buildWorld reconstructs the run's world. Scenario runs load and build the
// named scenario; generated runs replay the seed through the generator.
func (fp *FilePersistence) buildWorld(data *PersistedRunData) (*engine.World, error) {
	if data.Scenario != "" {
		if fp.scenarios == nil {
			return nil, fmt.Errorf("no scenario manager configured to rebuild scenario '%s'", data.Scenario)
		}
		sc, err := fp.scenarios.LoadScenario(data.Scenario)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario '%s': %w", data.Scenario, err)
		}
		world, err := engine.BuildWorld(sc, data.Tuning.RoughCost)
		if err != nil {
			return nil, fmt.Errorf("failed to build world from scenario '%s': %w", data.Scenario, err)
		}
		return world, nil
	}

	world, err := worldgen.FromSeed(data.Params, data.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate world for seed %d: %w", data.Seed, err)
	}
	return world, nil
}
