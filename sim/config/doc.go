// Package config provides scenario management for the delivery simulation.
//
// The config package handles:
//   - Loading scenarios from JSON files
//   - Scenario validation and verification
//   - Scenario discovery and listing
//   - Saving authored scenarios back to disk
//
// Scenario Format:
//
// Scenarios are stored as JSON files in the configs directory. Each scenario
// defines:
//   - Grid layout using character mapping (.=free, #=wall, ~=rough, plus
//     P=package, G=goal, R=recharger, S=start)
//   - Grid size and an optional rough terrain cost override
//   - A legend documenting the character mapping
//
// Caching:
//
// Loaded scenarios are cached together with the source file's modification
// time. A scenario edited on disk is transparently reloaded on the next
// access, so authors can iterate on layouts against a running server without
// restarts.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific scenario
//	sc, err := manager.LoadScenario("crossing")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// List available scenarios
//	infos, err := manager.ListScenarios()
//
// Validation:
//
// All scenarios are validated for:
//   - Proper grid dimensions and layout
//   - Valid cell types and legend mappings
//   - Exactly one start and one recharger cell
//   - Matching package and goal counts
package config
