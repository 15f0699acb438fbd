package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gridsim/deliverybot/sim/service"
)

var ErrRunAlreadyExists = errors.New("run already exists")

// Manager handles run lifecycle
type Manager struct {
	runs        map[string]*service.Run
	persistence RunPersistence
	mu          sync.RWMutex
}

// NewManager creates a new run manager
func NewManager() *Manager {
	return &Manager{
		runs: make(map[string]*service.Run),
	}
}

// NewManagerWithPersistence creates a new run manager with persistence
func NewManagerWithPersistence(persistence RunPersistence) *Manager {
	return &Manager{
		runs:        make(map[string]*service.Run),
		persistence: persistence,
	}
}

// Create registers a run, assigning a fresh ID when the run carries none.
// Persistence is not touched here; the caller decides when to Save.
func (m *Manager) Create(run *service.Run) (*service.Run, error) {
	if run == nil {
		return nil, errors.New("run cannot be nil")
	}
	if run.ID == "" {
		run.ID = m.generateRunID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if run already exists (case-insensitive)
	if m.runExists(run.ID) {
		return nil, ErrRunAlreadyExists
	}

	now := time.Now()
	run.CreatedAt = now
	run.LastAccessedAt = now

	m.runs[strings.ToLower(run.ID)] = run

	return run, nil
}

// Get retrieves a run by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Run, error) {
	m.mu.RLock()
	run, exists := m.runs[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return run, nil
	}

	// Try loading from persistence if not in memory
	if m.persistence != nil && m.persistence.Exists(id) {
		run, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted run: %w", err)
		}

		// Add to memory cache
		m.mu.Lock()
		// Double-check after acquiring write lock
		if cached, ok := m.runs[strings.ToLower(id)]; ok {
			m.mu.Unlock()
			return cached, nil
		}
		m.runs[strings.ToLower(id)] = run
		m.mu.Unlock()

		return run, nil
	}

	return nil, service.ErrRunNotFound
}

// List returns all active runs
func (m *Manager) List() []*service.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run)
	}

	return result
}

// Delete removes a run from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	inMemory := false

	if _, exists := m.runs[lowerID]; exists {
		delete(m.runs, lowerID)
		inMemory = true
	}

	// Delete from persistence if it exists
	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted run: %w", err)
		}
		return nil
	}

	// If not in persistence and not in memory, it doesn't exist
	if !inMemory {
		return service.ErrRunNotFound
	}

	return nil
}

// DeleteFromMemory removes a run from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := strings.ToLower(id)
	if _, exists := m.runs[lowerID]; exists {
		delete(m.runs, lowerID)
		return nil
	}

	return service.ErrRunNotFound
}

// UpdateLastAccessed updates the last accessed time for a run. The new
// timestamp reaches disk with the next Save.
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[strings.ToLower(id)]
	if !exists {
		return service.ErrRunNotFound
	}

	run.LastAccessedAt = time.Now()
	return nil
}

// Save saves a specific run to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	m.mu.RLock()
	run, exists := m.runs[strings.ToLower(id)]
	m.mu.RUnlock()

	if !exists {
		return service.ErrRunNotFound
	}

	return m.persistence.Save(run)
}

// CleanupExpiredRuns evicts runs that haven't been accessed in the given
// duration from memory, closing their traces. Persisted runs stay on disk
// and reload on the next access.
func (m *Manager) CleanupExpiredRuns(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, run := range m.runs {
		if run.LastAccessedAt.Before(cutoff) {
			if run.Trace != nil {
				if err := run.Trace.Close(); err != nil {
					fmt.Printf("Warning: Failed to close trace for run %s: %v\n", run.ID, err)
				}
				run.Trace = nil
			}
			delete(m.runs, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of active runs
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// generateRunID generates a random 8-character run ID
func (m *Manager) generateRunID() string {
	// Generate 4 random bytes (8 hex characters)
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// runExists checks if a run exists (case-insensitive)
func (m *Manager) runExists(id string) bool {
	_, exists := m.runs[strings.ToLower(id)]
	return exists
}

// LoadPersistedRuns loads all persisted runs into memory
func (m *Manager) LoadPersistedRuns() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	runIDs, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted runs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, id := range runIDs {
		// Skip if already loaded in memory
		if _, exists := m.runs[strings.ToLower(id)]; exists {
			continue
		}

		run, err := m.persistence.Load(id)
		if err != nil {
			fmt.Printf("Warning: Failed to load persisted run %s: %v\n", id, err)
			continue
		}

		m.runs[strings.ToLower(id)] = run
		loadedCount++
	}

	if loadedCount > 0 {
		fmt.Printf("Loaded %d persisted runs from storage\n", loadedCount)
	}

	return nil
}

// SaveAllRuns saves all in-memory runs to persistence
func (m *Manager) SaveAllRuns() error {
	if m.persistence == nil {
		return nil // No persistence configured
	}

	m.mu.RLock()
	runs := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	m.mu.RUnlock()

	errorCount := 0
	for _, run := range runs {
		if err := m.persistence.Save(run); err != nil {
			fmt.Printf("Warning: Failed to save run %s: %v\n", run.ID, err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d runs", errorCount)
	}

	return nil
}
