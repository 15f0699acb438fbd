// Package mcp provides Model Context Protocol server implementation for the
// delivery bot simulator.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for run operations
//   - Thin proxying of every tool call to the REST API
//   - Stdio and HTTP transport modes
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - create_run: Start a run from a scenario or generation seed
//   - list_runs: List all active runs
//   - run_status: Get full run state with grid visualization
//   - step_run: Advance a run by N steps
//   - complete_run: Drive a run to its terminal state
//   - list_scenarios: List available scenario files
//   - list_results: List recent terminal run records
//   - sim_instructions: Get comprehensive simulator instructions
//   - describe_cell: Inspect a single grid cell
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: HTTP endpoint for remote MCP integration
//
// Run Management:
//
// All simulation tools take a run_id parameter. Multiple runs can be active
// at once, each with its own world, policy and lifecycle. AI agents create
// runs, advance them in batches, and compare recorded results across
// policies and seeds.
//
// Usage:
//
//	// The client proxies to a running REST server
//	client := mcp.NewClient("http://localhost:8080")
//
//	// Stdio mode
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode: feed request bodies to HandleMessage
//	response := client.GetMCPServer().HandleMessage(r.Context(), body)
//
// AI Integration:
//
// The MCP interface enables AI agents to:
//   - Run policy experiments autonomously
//   - Watch battery risk and grid state step by step
//   - Compare policies on identical seeds
//   - Mine recorded results for systematic differences
package mcp
