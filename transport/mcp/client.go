package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gridsim/deliverybot/results"
	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Delivery Bot Simulator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Delivery Bot Simulator - MCP Interface

This is a thin client that proxies all requests to the REST API server.

SIMULATION OBJECTIVE:
A battery-limited robot (A) picks up packages (P) and delivers them to goals (G)
on a weighted grid. A planning policy drives the robot; you create runs, advance
them, and compare how the policies perform.

AVAILABLE TOOLS:
- create_run: Start a new run from a scenario or a generation seed
- list_runs: List all active runs
- run_status: Full run state with grid render and battery risk
- step_run: Advance a run by N steps - requires intent explanation
- complete_run: Drive a run to its terminal state
- list_scenarios: List available scenario files
- list_results: Recent terminal run records
- sim_instructions: Get comprehensive simulator instructions and rules
- describe_cell: Get detailed info about a specific grid cell (helps verify # vs ~)

NOTE: The 'intent' parameter on step_run serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Run management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_run",
		Description: "Create a new simulation run from a named scenario or a generation seed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario": map[string]interface{}{
					"type":        "string",
					"description": "Name of the scenario to load (optional, mutually exclusive with seed)",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "World generation seed (optional, mutually exclusive with scenario)",
				},
				"policy": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"greedy", "nearest", "opportunist", "reckless"},
					"description": "Planning policy that drives the robot (optional, defaults to greedy)",
				},
			},
		},
	}, c.handleCreateRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List all active simulation runs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRuns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_status",
		Description: "Get the full state of a run with grid visualization",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleRunStatus)

	// Simulation operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step_run",
		Description: "Advance a run by up to N steps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
				"steps": map[string]interface{}{
					"type":        "integer",
					"description": "Number of steps to execute (defaults to 1, capped per request)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you are stepping now (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleStepRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "complete_run",
		Description: "Drive a run to its terminal state and record the result",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleCompleteRun)

	// Scenarios and results
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List available scenario files",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_results",
		Description: "List recent terminal run records",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of records to return",
				},
			},
		},
	}, c.handleListResults)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "sim_instructions",
		Description: "Get comprehensive simulator instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSimInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about a specific cell in the grid, including its exact character type. Useful for verifying whether a cell is a wall (#) or just rough terrain (~).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "X coordinate (column) of the cell to describe (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Y coordinate (row) of the cell to describe (0-based)",
				},
			},
			Required: []string{"run_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleCreateRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	scenario, _ := args["scenario"].(string)
	policy, _ := args["policy"].(string)

	body := map[string]interface{}{}
	if scenario != "" {
		body["scenario"] = scenario
	}
	if seed, ok := args["seed"].(float64); ok {
		body["seed"] = int64(seed)
	}
	if policy != "" {
		body["policy"] = policy
	}

	var run service.RunInfo
	err := c.apiCall("POST", "/api/runs", body, &run)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created run: %s\nPolicy: %s\nWorld: %s\n", run.ID, run.Policy, describeWorld(&run))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int               `json:"count"`
		Total int               `json:"total"`
		Runs  []service.RunInfo `json:"runs"`
	}

	err := c.apiCall("GET", "/api/runs", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Runs (%d):\n\n", response.Count)
	for _, r := range response.Runs {
		result += fmt.Sprintf("- %s (Policy: %s, Status: %s, Created: %s)\n",
			r.ID, r.Policy, r.Status, r.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRunStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	runID, _ := args["run_id"].(string)

	var state service.StateInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/runs/%s/state", runID), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatStateInfo(&state)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleStepRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	runID, _ := args["run_id"].(string)
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	body := map[string]interface{}{}
	if steps, ok := args["steps"].(float64); ok {
		body["steps"] = int(steps)
	}

	var result service.StepResult
	err := c.apiCall("POST", fmt.Sprintf("/api/runs/%s/step", runID), body, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := formatStepResult(&result)
	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleCompleteRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	runID, _ := args["run_id"].(string)

	var result service.CompleteResult
	err := c.apiCall("POST", fmt.Sprintf("/api/runs/%s/complete", runID), nil, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := formatCompleteResult(&result)
	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scenarios []service.ScenarioInfo
	err := c.apiCall("GET", "/api/scenarios", nil, &scenarios)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Scenarios:\n\n"
	for _, sc := range scenarios {
		result += fmt.Sprintf("• %s\n  %s\n  Grid: %dx%d, Packages: %d\n\n",
			sc.ScenarioID, sc.Description, sc.GridSize, sc.GridSize, sc.Packages)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	params := ""
	if limit, ok := args["limit"].(float64); ok {
		params = fmt.Sprintf("?limit=%d", int(limit))
	}

	var response struct {
		Count   int                 `json:"count"`
		Results []results.RunRecord `json:"results"`
	}

	err := c.apiCall("GET", "/api/results"+params, nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Recent Results (%d):\n\n", response.Count)
	for _, rec := range response.Results {
		result += fmt.Sprintf("- %s [%s] score=%d steps=%d deliveries=%d/%d outcome=%s\n",
			rec.RunID, rec.Policy, rec.Score, rec.Steps, rec.Deliveries, rec.TotalDeliveries, rec.Outcome)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSimInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🤖 Delivery Bot Simulator - Complete Instructions

SIMULATION OBJECTIVE:
A battery-limited delivery robot picks up packages and delivers them to goal
cells on a procedurally generated grid. A planning policy drives the robot
autonomously; your job is to create runs, advance them, and compare policies.

SIMULATION MECHANICS:
• Movement: each step moves the robot one cell along its planned path
• Terrain: free cells cost 1 battery, rough cells (~) cost more per entry
• Charging: the recharger (R) resets the battery to the recharge level
• Scoring: +points per delivery, minus each step's battery cost; a battery
  death costs extra points per undelivered package
• Terminal states: complete (all delivered), stranded (no feasible target),
  depleted (battery exhausted mid-route)

GRID LEGEND:
• A - Agent (the robot's current position)
• . - Free cell (passable, cost 1)
• ~ - Rough terrain (passable, HIGHER cost) ⚠️ CRITICAL: Do NOT confuse with #!
• # - Wall (impassable)
• P - Package waiting for pickup
• G - Delivery goal
• R - Recharger (battery reset to the recharge level on arrival)

PLANNING POLICIES:
• greedy: picks the cheapest target whose round trip keeps a safety margin
• nearest: picks the closest target, recharging only when its round trip fails
• opportunist: like greedy but grabs packages that lie on its path to a goal
• reckless: ignores battery feasibility entirely (expect depleted outcomes)

🔋 BATTERY RISK CODES (run_status and step_run report these):
• SAFE: battery comfortably covers the route and the way back
• CAUTION: low battery, the policy should be heading to the recharger soon
• DANGER: insufficient battery to reach the recharger from here
• WARNING: recharger unreachable from the current position
• CRITICAL: battery empty

⚠️ CHARACTER RECOGNITION:
- '~' (rough) is PASSABLE at a higher cost; '#' (wall) is NOT
- A row like "##~##" has a usable gap in the middle
- Use describe_cell to verify any cell you are unsure about

🎯 TYPICAL WORKFLOW:
1. list_scenarios to see hand-authored worlds, or pick a seed for a generated one
2. create_run with a scenario or seed and a policy
3. step_run in small batches, watching battery risk and the grid render
4. run_status whenever you need the full picture
5. complete_run to finish and record the result
6. list_results to compare outcomes across policies and seeds

📊 POLICY COMPARISON:
- Create runs with the SAME seed and different policies for a fair comparison
- Deterministic worlds: one seed always generates the same grid
- complete_run records the terminal result so list_results can compare later

STEP SEMANTICS:
- Each step_run call executes up to the requested number of steps, capped
  per request; 'truncated' tells you the cap was hit
- Observations list one entry per executed step with position, battery, score
- A run that reaches a terminal state stays inspectable until deleted

Remember: the policy drives the robot, you drive the experiment. Compare
policies across seeds rather than fighting a single unlucky world.

Good luck with your deliveries! 🤖📦⚡`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	runID, _ := args["run_id"].(string)
	x := int(args["x"].(float64))
	y := int(args["y"].(float64))

	// Get the current run state to access the grid
	var state service.StateInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/runs/%s/state", runID), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Check bounds
	gridSize := len(state.Grid)
	if x < 0 || x >= gridSize || y < 0 || y >= gridSize {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid size is %dx%d (0-%d for both x and y)",
			x, y, gridSize, gridSize, gridSize-1)), nil
	}

	cellChar := string(state.Grid[y][x])
	cellType, passable, description := describeCellChar(cellChar)

	result := fmt.Sprintf(`Cell at position (%d, %d):
━━━━━━━━━━━━━━━━━━━━━━━━
Character: %s
Type: %s
Passable: %v
Description: %s

IMPORTANT: The character '%s' is what appears in the grid display.
%s`,
		x, y,
		cellChar,
		cellType,
		passable,
		description,
		cellChar,
		getCharacterReminder(cellChar))

	return mcp.NewToolResultText(result), nil
}

func describeCellChar(char string) (cellType string, passable bool, description string) {
	switch char {
	case "A":
		return "Agent", true, "The robot's current position"
	case ".":
		return "Free", true, "Empty cell - costs 1 battery to enter"
	case "~":
		return "Rough", true, "Rough terrain - passable at a higher battery cost"
	case "#":
		return "Wall", false, "Wall obstacle - IMPASSABLE"
	case "P":
		return "Package", true, "Package waiting for pickup"
	case "G":
		return "Goal", true, "Delivery goal - carried packages are dropped here"
	case "R":
		return "Recharger", true, "Recharger - resets the battery to the recharge level on arrival"
	default:
		return "Unknown", false, "Unknown cell type"
	}
}

func getCharacterReminder(char string) string {
	switch char {
	case "~":
		return "⚠️ REMINDER: '~' (rough) is often confused with '#' (wall). This is ROUGH TERRAIN and is PASSABLE at a higher cost!"
	case "#":
		return "⚠️ REMINDER: '#' (wall) is often confused with '~' (rough). This is a WALL and is IMPASSABLE!"
	case "R":
		return "✅ This is the recharger - the robot's battery resets to the recharge level when it arrives here!"
	case "P":
		return "🎯 This is a package - the robot needs to pick it up!"
	case "G":
		return "🎯 This is a delivery goal - carried packages score here!"
	case "A":
		return "🤖 This is where the robot currently is."
	default:
		return ""
	}
}

// Formatting helpers

func describeWorld(run *service.RunInfo) string {
	if run.Scenario != "" {
		return fmt.Sprintf("%s (%dx%d)", run.Scenario, run.GridSize, run.GridSize)
	}
	return fmt.Sprintf("seed %d (%dx%d)", run.Seed, run.GridSize, run.GridSize)
}

func formatStateInfo(state *service.StateInfo) string {
	var b strings.Builder
	obs := state.Observation

	// Header (include cumulative step count)
	b.WriteString(fmt.Sprintf("Position: (%d,%d) | Battery: %d | Score: %d | Step: %d | Deliveries: %d/%d\n\n",
		obs.Position.X, obs.Position.Y,
		obs.Battery, obs.Score, obs.Step, obs.Deliveries, obs.TotalDeliveries))

	// Decision aids (if available)
	if state.BatteryRisk != "" {
		b.WriteString(fmt.Sprintf("Battery risk: %s\n", state.BatteryRisk))
	}
	if state.Target != nil {
		b.WriteString(fmt.Sprintf("Target: %s at (%d,%d) cost=%d\n",
			state.Target.Kind, state.Target.Pos.X, state.Target.Pos.Y, state.Target.Cost))
	}
	if len(state.LocalView) == 3 {
		b.WriteString("Local 3x3:\n")
		b.WriteString(state.LocalView[0] + "\n")
		b.WriteString(state.LocalView[1] + "\n")
		b.WriteString(state.LocalView[2] + "\n")
	}
	b.WriteString("\n")

	// Grid
	for _, row := range state.Grid {
		b.WriteString(row)
		b.WriteString("\n")
	}

	// Status
	b.WriteString(formatOutcomeBanner(state.Status))

	if obs.Event != "" {
		b.WriteString(fmt.Sprintf("\nEvent: %s", obs.Event))
	}

	return b.String()
}

func formatStepResult(result *service.StepResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Executed %d/%d steps\n", result.Executed, result.Requested))
	if result.Truncated {
		b.WriteString(fmt.Sprintf("Truncated at the per-request limit of %d\n", result.Limit))
	}

	// Per-step trace for this call
	if len(result.Observations) > 0 {
		b.WriteString("\nSteps (this call):\n")
		for i, obs := range result.Observations {
			b.WriteString(formatObservationLine(i+1, obs))
		}
	}

	b.WriteString(fmt.Sprintf("\nEnd: (%d,%d) batt=%d scoreΔ=%+d\n",
		result.EndPosition.X, result.EndPosition.Y, result.EndBattery, result.ScoreDelta))

	if result.Target != nil {
		b.WriteString(fmt.Sprintf("Target: %s at (%d,%d) cost=%d\n",
			result.Target.Kind, result.Target.Pos.X, result.Target.Pos.Y, result.Target.Cost))
	}
	if result.BatteryRisk != "" {
		b.WriteString(fmt.Sprintf("Battery risk: %s\n", result.BatteryRisk))
	}
	if len(result.LocalView) == 3 {
		b.WriteString("Local 3x3:\n")
		b.WriteString(result.LocalView[0] + "\n")
		b.WriteString(result.LocalView[1] + "\n")
		b.WriteString(result.LocalView[2] + "\n")
	}

	if result.Terminal && result.Result != nil {
		b.WriteString(fmt.Sprintf("\nFinal: score=%d steps=%d deliveries=%d/%d",
			result.Result.Score, result.Result.Steps,
			result.Result.Deliveries, result.Result.TotalDeliveries))
	}
	b.WriteString(formatOutcomeBanner(result.Status))

	return b.String()
}

func formatCompleteResult(result *service.CompleteResult) string {
	res := result.Result
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Run %s finished after %d more steps\n\n", result.RunID, result.StepsExecuted))
	b.WriteString(fmt.Sprintf("Outcome: %s\nScore: %d\nSteps: %d\nDeliveries: %d/%d\n",
		res.Outcome, res.Score, res.Steps, res.Deliveries, res.TotalDeliveries))
	b.WriteString(formatOutcomeBanner(res.Outcome))
	return b.String()
}

// formatObservationLine renders a single compact step line
func formatObservationLine(idx int, obs engine.StepObservation) string {
	line := fmt.Sprintf("%d. (%d,%d) batt=%d score=%d",
		idx, obs.Position.X, obs.Position.Y, obs.Battery, obs.Score)
	if obs.Event != "" {
		line += " " + obs.Event
	}
	return line + "\n"
}

func formatOutcomeBanner(status engine.Status) string {
	switch status {
	case engine.StatusComplete:
		return "\n🎉 ALL DELIVERIES COMPLETE!"
	case engine.StatusStranded:
		return "\n⚠️ STRANDED - no feasible target left"
	case engine.StatusDepleted:
		return "\n💀 BATTERY DEPLETED"
	default:
		return ""
	}
}
