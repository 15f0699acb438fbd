package engine

// CellType represents the terrain of a single grid cell
type CellType string

const (
	CellFree  CellType = "free"
	CellWall  CellType = "wall"
	CellRough CellType = "rough"

	// Validation constants
	MinGridSize     = 5
	MaxGridSize     = 50
	MinRoughCost    = 2
	MaxRoughCost    = 9
	DefaultGridSize = 30

	// UnreachableCost is the sentinel returned by FindPath when no route
	// exists. It exceeds any real path cost on a valid grid
	// (MaxGridSize*MaxGridSize*MaxRoughCost).
	UnreachableCost = 999999
)

// Position represents x,y coordinates on the grid
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Status represents the simulation lifecycle state
type Status string

const (
	StatusRunning  Status = "running"
	StatusStranded Status = "stranded"
	StatusDepleted Status = "depleted"
	StatusComplete Status = "complete"
)

// Terminal reports whether the status ends the simulation.
func (s Status) Terminal() bool {
	return s == StatusStranded || s == StatusDepleted || s == StatusComplete
}

// Step events surfaced in observations
const (
	EventPickup   = "pickup"
	EventDelivery = "delivery"
	EventRecharge = "recharge"
	EventDepleted = "depleted"
)

// StepObservation is the per-step tuple exposed for logging, tracing and
// live observers.
type StepObservation struct {
	Step            int      `json:"step"`
	Position        Position `json:"position"`
	Cargo           int      `json:"cargo"`
	Battery         int      `json:"battery"`
	Score           int      `json:"score"`
	Deliveries      int      `json:"deliveries"`
	TotalDeliveries int      `json:"total_deliveries"`
	Status          Status   `json:"status"`
	Event           string   `json:"event,omitempty"`
}

// Result is the terminal record of a finished simulation
type Result struct {
	Score           int    `json:"score"`
	Steps           int    `json:"steps"`
	Deliveries      int    `json:"deliveries"`
	TotalDeliveries int    `json:"total_deliveries"`
	Outcome         Status `json:"outcome"`
}
