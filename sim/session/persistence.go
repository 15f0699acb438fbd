package session

import (
	"time"

	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/service"
	"github.com/gridsim/deliverybot/sim/tuning"
	"github.com/gridsim/deliverybot/sim/worldgen"
)

// RunPersistence defines the interface for persisting runs
type RunPersistence interface {
	// Save persists a run to storage
	Save(run *service.Run) error

	// Load retrieves a run from storage by ID
	Load(id string) (*service.Run, error)

	// Delete removes a run from storage
	Delete(id string) error

	// ListAll returns all persisted run IDs
	ListAll() ([]string, error)

	// Exists checks if a run exists in storage
	Exists(id string) bool
}

// PersistedRunData represents the JSON structure for persisted runs. The
// world itself is never stored: Scenario or Seed plus Params rebuild it
// deterministically, and Snapshot restores the mutable state on top.
type PersistedRunData struct {
	ID             string             `json:"id"`
	Policy         string             `json:"policy"`
	Scenario       string             `json:"scenario,omitempty"`
	Seed           int64              `json:"seed,omitempty"`
	Params         worldgen.Params    `json:"params"`
	Tuning         tuning.Tuning      `json:"tuning"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Snapshot       engine.SimSnapshot `json:"snapshot"`
}
