// Package service provides the business logic layer for the delivery
// simulation.
//
// The service package implements:
//   - Multi-run simulation management
//   - World construction from scenarios or seeded generation
//   - Step and complete operations with terminal-result recording
//   - Run lifecycle and inspection
//
// Core Interfaces:
//
// RunService is the main service interface providing high-level run
// operations. RunManager handles run storage and lifecycle. ScenarioManager
// loads scenario files. ResultStore records finished runs.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP/CLI)
// and the simulation engine, providing run isolation and orchestration. Each
// run maintains its own engine.Simulation with independent world state, and
// every mutation flows through this one layer, which is what keeps the
// exactly-once recording of terminal results enforceable.
//
// Usage:
//
//	runMgr := session.NewManager()
//	scenarioMgr := config.NewManager("configs")
//	svc := service.NewRunService(runMgr, scenarioMgr, store, "traces", tuning.Default())
//
//	info, err := svc.CreateRun(ctx, service.CreateRunRequest{Policy: "greedy"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	step, err := svc.StepRun(ctx, info.ID, 25)
//
// Runs are identified by unique 8-character hex IDs and survive restarts
// through the session package's file persistence.
package service
