package session

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gridsim/deliverybot/sim/service"
)

func TestManagerWithPersistence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "manager_persistence_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	persistence, err := NewFilePersistence(tempDir, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	manager := NewManagerWithPersistence(persistence)

	t.Run("Save Persists Run", func(t *testing.T) {
		run := newSeededRun(t, 42)
		run.ID = "auto1"
		if _, err := manager.Create(run); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}

		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}

		if !persistence.Exists("auto1") {
			t.Error("Run should exist in persistence after save")
		}

		loaded, err := persistence.Load("auto1")
		if err != nil {
			t.Fatalf("Failed to load saved run: %v", err)
		}
		if loaded.ID != run.ID {
			t.Errorf("Expected ID %s, got %s", run.ID, loaded.ID)
		}
	})

	t.Run("Get Run Loads from Persistence", func(t *testing.T) {
		// Create new manager (no in-memory runs) to simulate a restart
		manager2 := NewManagerWithPersistence(persistence)

		run, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get run from persistence: %v", err)
		}
		if run.ID != "auto1" {
			t.Errorf("Expected ID auto1, got %s", run.ID)
		}

		// The loaded run must be cached in memory afterwards
		cached, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get run from memory: %v", err)
		}
		if cached != run {
			t.Error("Run should be cached in memory after loading from persistence")
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		run, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get run: %v", err)
		}

		// Advance the run so there is state to persist
		before := run.Sim.Observation().Step
		for i := 0; i < 5; i++ {
			run.Sim.Step()
		}

		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}

		manager3 := NewManagerWithPersistence(persistence)
		loaded, err := manager3.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to load run after save: %v", err)
		}

		if loaded.Sim.Observation().Step != before+5 {
			t.Errorf("Expected %d persisted steps, got %d", before+5, loaded.Sim.Observation().Step)
		}
	})

	t.Run("Delete Removes from Persistence", func(t *testing.T) {
		run := newSeededRun(t, 7)
		run.ID = "delete_test"
		if _, err := manager.Create(run); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		if err := manager.Save("delete_test"); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}

		if !persistence.Exists("delete_test") {
			t.Error("Run should exist in persistence")
		}

		if err := manager.Delete("delete_test"); err != nil {
			t.Fatalf("Failed to delete run: %v", err)
		}

		if persistence.Exists("delete_test") {
			t.Error("Run should be removed from persistence on delete")
		}
		if _, err := manager.Get("delete_test"); err == nil {
			t.Error("Should not be able to get deleted run")
		}
	})

	t.Run("Load Persisted Runs on Startup", func(t *testing.T) {
		ids := []string{"startup1", "startup2", "startup3"}
		for i, id := range ids {
			run := newSeededRun(t, int64(50+i))
			run.ID = id
			if _, err := manager.Create(run); err != nil {
				t.Fatalf("Failed to create run %s: %v", id, err)
			}
			if err := manager.Save(id); err != nil {
				t.Fatalf("Failed to save run %s: %v", id, err)
			}
		}

		// Create new manager (simulates server restart)
		manager4 := NewManagerWithPersistence(persistence)
		if err := manager4.LoadPersistedRuns(); err != nil {
			t.Fatalf("Failed to load persisted runs: %v", err)
		}

		for _, id := range ids {
			run, err := manager4.Get(id)
			if err != nil {
				t.Errorf("Failed to get run %s after loading persisted runs: %v", id, err)
				continue
			}
			if run.ID != id {
				t.Errorf("Expected ID %s, got %s", id, run.ID)
			}
		}

		if manager4.Count() < len(ids) {
			t.Errorf("Expected at least %d runs in memory, got %d", len(ids), manager4.Count())
		}
	})

	t.Run("Save All Runs", func(t *testing.T) {
		run := newSeededRun(t, 60)
		run.ID = "saveall"
		if _, err := manager.Create(run); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}

		if err := manager.SaveAllRuns(); err != nil {
			t.Fatalf("Failed to save all runs: %v", err)
		}

		if !persistence.Exists("saveall") {
			t.Error("Run should exist in persistence after SaveAllRuns")
		}
	})

	t.Run("Cleanup Evicts but Disk Survives", func(t *testing.T) {
		run := newSeededRun(t, 61)
		run.ID = "evict_me"
		if _, err := manager.Create(run); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		if err := manager.Save("evict_me"); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}

		run.LastAccessedAt = time.Now().Add(-2 * time.Hour)
		if removed := manager.CleanupExpiredRuns(1 * time.Hour); removed == 0 {
			t.Error("Expected at least one run to be evicted")
		}

		// The run file stays on disk, so Get transparently reloads it
		reloaded, err := manager.Get("evict_me")
		if err != nil {
			t.Fatalf("Failed to reload evicted run: %v", err)
		}
		if reloaded.ID != "evict_me" {
			t.Errorf("Expected ID evict_me, got %s", reloaded.ID)
		}
	})

	t.Run("Get Missing Run", func(t *testing.T) {
		if _, err := manager.Get("never_existed"); !errors.Is(err, service.ErrRunNotFound) {
			t.Errorf("Expected ErrRunNotFound, got %v", err)
		}
	})
}
