// Package api provides HTTP REST API handlers for the delivery bot simulator.
//
// The api package implements:
//   - RESTful endpoints for run lifecycle and simulation operations
//   - Scenario listing, retrieval and upload
//   - Result history queries
//   - WebSocket upgrade handling for run watchers
//
// Endpoints:
//
// Run Management:
//   - POST /api/runs - Create a new run (generated world or named scenario)
//   - GET /api/runs - List runs (sort, order, limit query params)
//   - GET /api/runs/{id} - Get run metadata
//   - DELETE /api/runs/{id} - Delete a run and its saved state
//
// Simulation Operations:
//   - POST /api/runs/{id}/step - Advance the simulation by N steps
//   - POST /api/runs/{id}/complete - Drive the run to a terminal state
//   - GET /api/runs/{id}/state - Full state with grid render and battery risk
//
// Scenarios:
//   - GET /api/scenarios - List available scenario files
//   - GET /api/scenarios/{name} - Get a scenario (".json" suffix optional)
//   - POST /api/scenarios - Validate and save a scenario
//
// Results:
//   - GET /api/results - Recent run records (limit query param)
//
// Streaming:
//   - GET /ws?run={id} - WebSocket stream of step observations for a run
//
// Request/Response Format:
//
// All endpoints accept and return JSON. Run creation takes either a scenario
// name or generation parameters, never both:
//
//	{
//	  "scenario": "warehouse",        // named scenario, or
//	  "seed": 42,                     // generation seed
//	  "policy": "greedy|nearest|opportunist|reckless",
//	  "params": { "grid_size": 30, ... },  // optional generation overrides
//	  "tuning": { "step_limit": 2000, ... } // optional tuning overrides
//	}
//
// Step requests carry an optional count:
//
//	{
//	  "steps": 10  // defaults to 1, capped per request
//	}
//
// Usage:
//
//	server := api.NewServer(runService, hub)
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "error message",
//	  "code": 404
//	}
package api

//
// Enriched Responses (Step and State)
//
// Step (POST /api/runs/{id}/step)
//   Response:
//     - requested, executed, truncated, limit
//     - observations: [{ step, position{x,y}, battery, score, deliveries,
//         carrying, status, event, target? }]
//     - end_position, end_battery, score_delta, status, terminal
//     - result: final tally, present only when the run just ended
//     - target: { pos{x,y}, kind, cost } // current planner objective
//     - local_view: ["...",".A.","..."] // 3x3 characters around the robot
//     - battery_risk: text, risk_code: "SAFE|CAUTION|DANGER|WARNING|CRITICAL"
//
// State (GET /api/runs/{id}/state)
//   Response:
//     - run_id, policy, status, observation (latest)
//     - grid: full character render, one string per row
//     - local_view, battery_risk, risk_code as above
//
