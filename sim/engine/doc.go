// Package engine implements the core of the delivery robot simulation.
//
// The engine package provides:
//   - Grid: the static free/wall/rough traversability and cost map
//   - PathFinder: weighted A* search returning paths with exact costs
//   - Agent: the robot's position, cargo and battery state
//   - Planner: interchangeable target-selection policies with round-trip
//     battery feasibility checks
//   - Simulation: the step loop applying movement, scoring, recharging,
//     pickup and delivery effects
//
// Core Contract:
//
// The Simulation owns all mutation. Planners and the PathFinder only read
// the world; the Grid is immutable once a simulation starts. FindPath is a
// pure function and safe for concurrent use.
//
// Usage:
//
//	world, err := worldgen.Generate(worldgen.DefaultParams(), rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	pf := engine.NewPathFinder(world.Grid)
//	planner, err := engine.NewPlanner(engine.PolicyGreedy, pf, tun.FeasibilityMargin)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sim := engine.NewSimulation(world, planner, tun)
//	result, _ := sim.Run(ctx, nil)
//
// Termination:
//
// A run ends complete when every package has been delivered, stranded when
// the planner finds no feasible target, or depleted when the battery goes
// negative mid-path. All three produce a complete Result record; stranded
// and depleted are expected outcomes, not errors.
package engine
