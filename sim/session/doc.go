// Package session provides run storage for the delivery simulation.
//
// The session package implements:
//   - Thread-safe run storage and retrieval
//   - Unique run ID generation
//   - Run lifecycle management
//   - File-based persistence across restarts
//   - Idle-run eviction
//
// Core Types:
//
// Manager is the main run store handling all run operations. FilePersistence
// saves runs as JSON files and rebuilds them on load.
//
// Run Identifiers:
//
// Runs use 8-character hex IDs for easy reference. The manager ensures IDs
// are unique and generates them with cryptographic randomness. Lookups are
// case-insensitive.
//
// Persistence Model:
//
// A persisted run never stores its world. The file carries the scenario name
// or the generation seed and params, plus a snapshot of the mutable state.
// Loading rebuilds the world deterministically from that origin and restores
// the snapshot on top, which keeps run files small and immune to world
// format drift. Saves write to a temp file and rename into place.
//
// Concurrency:
//
// The manager is thread-safe and supports concurrent operations. Multiple
// goroutines can safely create, retrieve, and delete different runs
// simultaneously. Internal locking ensures data consistency.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("runs", scenarioManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//
//	// Restore runs from a previous process
//	if err := manager.LoadPersistedRuns(); err != nil {
//		log.Fatal(err)
//	}
//
//	// Register a new run
//	run, err := manager.Create(run)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// List all active runs
//	runs := manager.List()
//
// Cleanup:
//
// Runs can be explicitly deleted or evicted from memory after inactivity.
// Evicted runs stay on disk and reload transparently on the next access.
package session
