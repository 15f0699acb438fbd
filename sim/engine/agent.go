package engine

import "errors"

// ErrNoCargo is returned by Deliver when the agent carries nothing.
var ErrNoCargo = errors.New("agent has no cargo to deliver")

// Agent is the robot's mutable state. Only the Simulation step loop mutates
// it; planners read it to evaluate feasibility.
type Agent struct {
	Position Position `json:"position"`
	Cargo    int      `json:"cargo"`
	Battery  int      `json:"battery"`
}

// NewAgent creates an agent at the start position with a full battery.
func NewAgent(start Position, battery int) *Agent {
	return &Agent{Position: start, Battery: battery}
}

// StepTo moves the agent onto pos and consumes the movement cost. The
// battery may go negative here; the Simulation treats that as depletion.
func (a *Agent) StepTo(pos Position, cost int) {
	a.Position = pos
	a.Battery -= cost
}

// Pickup adds one package to the cargo.
func (a *Agent) Pickup() {
	a.Cargo++
}

// Deliver removes one package from the cargo.
func (a *Agent) Deliver() error {
	if a.Cargo <= 0 {
		return ErrNoCargo
	}
	a.Cargo--
	return nil
}

// Recharge resets the battery to the configured recharge level.
func (a *Agent) Recharge(value int) {
	a.Battery = value
}
