package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/service"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// cachedScenario pairs a parsed scenario with the modification time of its
// source file. Entries whose file changed on disk are reloaded on access.
type cachedScenario struct {
	scenario *engine.Scenario
	modTime  time.Time
}

// Manager handles scenario loading and caching
type Manager struct {
	scenarioDir string
	scenarios   map[string]cachedScenario
	mu          sync.RWMutex
}

// NewManager creates a new scenario manager
func NewManager(scenarioDir string) (*Manager, error) {
	// Ensure scenario directory exists
	if _, err := os.Stat(scenarioDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario directory does not exist: %s", scenarioDir)
	}

	return &Manager{
		scenarioDir: scenarioDir,
		scenarios:   make(map[string]cachedScenario),
	}, nil
}

// LoadScenario loads a scenario by name
func (m *Manager) LoadScenario(name string) (*engine.Scenario, error) {
	path := m.scenarioPath(name)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, service.ErrScenarioNotFound
		}
		return nil, fmt.Errorf("failed to stat scenario file: %w", err)
	}

	m.mu.RLock()
	// Check cache first; a stale mtime forces a reload
	if entry, exists := m.scenarios[name]; exists && entry.modTime.Equal(info.ModTime()) {
		m.mu.RUnlock()
		return entry.scenario, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists := m.scenarios[name]; exists && entry.modTime.Equal(info.ModTime()) {
		return entry.scenario, nil
	}

	// Read scenario file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, service.ErrScenarioNotFound
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse scenario
	var sc engine.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	// Validate scenario
	if err := engine.ValidateScenario(&sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	// Cache the scenario
	m.scenarios[name] = cachedScenario{scenario: &sc, modTime: info.ModTime()}
	return &sc, nil
}

// ListScenarios returns information about all available scenarios
func (m *Manager) ListScenarios() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.scenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var infos []*service.ScenarioInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		// Remove .json extension for scenario name
		name := strings.TrimSuffix(entry.Name(), ".json")

		// Try to load the scenario to get details
		sc, err := m.LoadScenario(name)
		if err != nil {
			// Skip invalid scenarios
			continue
		}

		infos = append(infos, &service.ScenarioInfo{
			Filename:    entry.Name(),
			ScenarioID:  name, // This is the identifier to use for run creation
			Name:        sc.Name,
			Description: sc.Description,
			GridSize:    sc.GridSize,
			Packages:    countPackages(sc),
		})
	}

	return infos, nil
}

// SaveScenario saves a scenario to disk
func (m *Manager) SaveScenario(name string, sc *engine.Scenario) error {
	// Validate scenario before saving
	if err := engine.ValidateScenario(sc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	path := m.scenarioPath(name)

	// Marshal scenario to JSON with indentation
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	// Update cache with the fresh mtime
	info, statErr := os.Stat(path)
	m.mu.Lock()
	if statErr == nil {
		m.scenarios[name] = cachedScenario{scenario: sc, modTime: info.ModTime()}
	} else {
		delete(m.scenarios, name)
	}
	m.mu.Unlock()

	return nil
}

// scenarioPath resolves a name to its file path in the scenario directory.
func (m *Manager) scenarioPath(name string) string {
	// Add .json extension if not present
	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}
	return filepath.Join(m.scenarioDir, filename)
}

func countPackages(sc *engine.Scenario) int {
	count := 0
	for _, row := range sc.Layout {
		count += strings.Count(row, "P")
	}
	return count
}
