package service

import (
	"time"

	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/tuning"
	"github.com/gridsim/deliverybot/sim/worldgen"
)

// CreateRunRequest selects the world, policy and tuning of a new run.
// Scenario and Seed are mutually exclusive; with neither set a random seed
// is drawn. A nil Tuning keeps the service defaults; a nil Params keeps the
// standard generation recipe.
type CreateRunRequest struct {
	Scenario string           `json:"scenario,omitempty"`
	Seed     *int64           `json:"seed,omitempty"`
	Policy   string           `json:"policy,omitempty"`
	Params   *worldgen.Params `json:"params,omitempty"`
	Tuning   *tuning.Tuning   `json:"tuning,omitempty"`
}

// RunInfo summarizes one run session.
type RunInfo struct {
	ID              string        `json:"id"`
	Policy          string        `json:"policy"`
	Scenario        string        `json:"scenario,omitempty"`
	Seed            int64         `json:"seed,omitempty"`
	GridSize        int           `json:"grid_size"`
	Status          engine.Status `json:"status"`
	Score           int           `json:"score"`
	Steps           int           `json:"steps"`
	Deliveries      int           `json:"deliveries"`
	TotalDeliveries int           `json:"total_deliveries"`
	CreatedAt       time.Time     `json:"created_at"`
	LastAccessedAt  time.Time     `json:"last_accessed_at"`
}

// StepResult reports the outcome of advancing a run by up to the requested
// number of steps. Observations holds one entry per executed step.
type StepResult struct {
	RunID        string                   `json:"run_id"`
	Requested    int                      `json:"requested"`
	Executed     int                      `json:"executed"`
	Truncated    bool                     `json:"truncated,omitempty"`
	Limit        int                      `json:"limit,omitempty"`
	Observations []engine.StepObservation `json:"observations"`

	EndPosition engine.Position `json:"end_position"`
	EndBattery  int             `json:"end_battery"`
	ScoreDelta  int             `json:"score_delta"`

	Status   engine.Status  `json:"status"`
	Terminal bool           `json:"terminal"`
	Result   *engine.Result `json:"result,omitempty"`
	Target   *engine.Target `json:"target,omitempty"`

	// Decision aids
	LocalView   []string `json:"local_view,omitempty"`
	BatteryRisk string   `json:"battery_risk,omitempty"`
	RiskCode    string   `json:"risk_code,omitempty"`
}

// CompleteResult is the terminal report of a run driven to its end.
type CompleteResult struct {
	RunID         string        `json:"run_id"`
	Result        engine.Result `json:"result"`
	StepsExecuted int           `json:"steps_executed"`
}

// StateInfo is the full inspection view of a run: the live observation, the
// planner's current objective, and an ASCII render of the world.
type StateInfo struct {
	RunID       string                 `json:"run_id"`
	Policy      string                 `json:"policy"`
	Status      engine.Status          `json:"status"`
	Observation engine.StepObservation `json:"observation"`
	Target      *engine.Target         `json:"target,omitempty"`
	Grid        []string               `json:"grid"`
	LocalView   []string               `json:"local_view"`
	BatteryRisk string                 `json:"battery_risk"`
	RiskCode    string                 `json:"risk_code"`
}

// ScenarioInfo describes one loadable scenario file.
type ScenarioInfo struct {
	Filename    string `json:"filename"`
	ScenarioID  string `json:"scenario_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GridSize    int    `json:"grid_size"`
	Packages    int    `json:"packages"`
}
