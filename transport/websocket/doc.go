// Package websocket provides the WebSocket transport for watching runs.
//
// The websocket package implements:
//   - Real-time streaming of step observations
//   - Run-aware WebSocket connections
//   - Automatic broadcasting after every simulation step
//   - Connection lifecycle management
//   - Slow-client disconnection
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a dedicated
// goroutine that manages reading, writing, and cleanup.
//
// Message Protocol:
//
// Messages are JSON-encoded with the following structure:
//   - Step: {run_id: "a1b2c3d4", event: "step", observation: {...}}
//   - Event: {run_id: "a1b2c3d4", event: "completed", data: {...}}
//
// Watchers never send messages; incoming frames only keep the connection
// alive. Run control stays on the REST API.
//
// Run Integration:
//
// WebSocket connections are run-aware. Clients specify the run they want to
// watch via query parameter (?run=a1b2c3d4) when establishing the
// connection. Observations are broadcast only to clients watching that run.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("run"))
//	})
//
// Connection Lifecycle:
//
// 1. Client connects with a run ID
// 2. Connection registered with hub
// 3. Step observations stream in as the run advances
// 4. Disconnection triggers cleanup
//
// Concurrency:
//
// The hub and client handlers are designed for concurrent operation.
// Multiple clients can connect, disconnect, and receive broadcasts
// simultaneously without blocking each other.
package websocket
