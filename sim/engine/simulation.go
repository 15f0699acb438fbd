package engine

import (
	"context"

	"github.com/gridsim/deliverybot/sim/tuning"
)

// Simulation drives the step loop: it asks the planner for a target, walks
// the agent along the returned path one cell per Step call, applies
// cost/score/recharge/pickup/delivery effects, and detects the terminal
// states. It owns all mutation of the agent and of the open entity sets.
type Simulation struct {
	world   *World
	agent   *Agent
	planner Planner
	tun     tuning.Tuning

	status     Status
	score      int
	steps      int
	deliveries int

	target *Target
	path   []Position
}

// NewSimulation creates a simulation over a validated world. The agent
// spawns at the world's start position with the configured battery.
func NewSimulation(world *World, planner Planner, tun tuning.Tuning) *Simulation {
	return &Simulation{
		world:   world,
		agent:   NewAgent(world.Start, tun.BatteryStart),
		planner: planner,
		tun:     tun,
		status:  StatusRunning,
	}
}

// Status returns the current lifecycle state.
func (s *Simulation) Status() Status {
	return s.status
}

// Agent returns the live agent state. Callers must treat it as read-only.
func (s *Simulation) Agent() *Agent {
	return s.agent
}

// World returns the simulation's world. Callers must treat it as read-only.
func (s *Simulation) World() *World {
	return s.world
}

// CurrentTarget returns a copy of the active planner decision, or nil when
// the simulation is between plans.
func (s *Simulation) CurrentTarget() *Target {
	if s.target == nil {
		return nil
	}
	t := *s.target
	return &t
}

// Observation returns the current step tuple without advancing.
func (s *Simulation) Observation() StepObservation {
	return s.observe("")
}

// Result returns the run record for the current state. It is well formed in
// every state, terminal or not.
func (s *Simulation) Result() Result {
	return Result{
		Score:           s.score,
		Steps:           s.steps,
		Deliveries:      s.deliveries,
		TotalDeliveries: s.world.TotalDeliveries,
		Outcome:         s.status,
	}
}

// Step advances the simulation by one cell move. On a terminal state it
// returns the final observation unchanged.
//
// Order of effects within a step mirrors the canonical rule set: move and
// count the step, consume battery, then either deplete (penalties apply,
// the fatal step's movement cost is not scored) or score the movement cost,
// recharge when standing on the recharger, and finally resolve
// pickup/delivery when the step reached the planned target.
func (s *Simulation) Step() StepObservation {
	if s.status != StatusRunning {
		return s.observe("")
	}

	if len(s.path) == 0 {
		if s.completed() {
			s.status = StatusComplete
			return s.observe("")
		}
		target := s.planner.ChooseTarget(s.agent, s.world)
		if target == nil || len(target.Path) == 0 {
			s.status = StatusStranded
			return s.observe("")
		}
		s.target = target
		s.path = target.Path
	}

	next := s.path[0]
	s.path = s.path[1:]
	cost := s.world.Grid.MovementCost(next)
	s.agent.StepTo(next, cost)
	s.steps++

	if s.agent.Battery < 0 {
		s.status = StatusDepleted
		remaining := s.world.TotalDeliveries - s.deliveries
		s.score -= remaining * s.tun.DepletionPenaltyPerRemaining
		s.score -= s.tun.DepletionPenaltyFlat
		s.target = nil
		s.path = nil
		return s.observe(EventDepleted)
	}
	s.score -= cost

	event := ""
	if next == s.world.Recharger {
		s.agent.Recharge(s.tun.RechargeValue)
		event = EventRecharge
	}

	if len(s.path) == 0 && s.target != nil && next == s.target.Pos {
		switch s.target.Kind {
		case TargetPackage:
			if s.world.Packages.Remove(next) {
				s.agent.Pickup()
				event = EventPickup
			}
		case TargetGoal:
			if s.agent.Cargo > 0 && s.world.Goals.Remove(next) {
				if err := s.agent.Deliver(); err == nil {
					s.deliveries++
					s.score += s.tun.DeliveryReward
					event = EventDelivery
				}
			}
		}
		s.target = nil
		if s.completed() {
			s.status = StatusComplete
		}
	}

	return s.observe(event)
}

// Run drives Step until a terminal state, invoking observe after every step
// when non-nil. Cancellation stops the loop and returns the partial result
// together with the context error; the caller decides how to record it.
func (s *Simulation) Run(ctx context.Context, observe func(StepObservation)) (Result, error) {
	for s.status == StatusRunning {
		select {
		case <-ctx.Done():
			return s.Result(), ctx.Err()
		default:
		}
		obs := s.Step()
		if observe != nil {
			observe(obs)
		}
	}
	return s.Result(), nil
}

// completed reports the canonical completion rule: every package delivered,
// plus standing on the recharger when ReturnHome is set.
func (s *Simulation) completed() bool {
	if s.deliveries < s.world.TotalDeliveries {
		return false
	}
	if s.tun.ReturnHome {
		return s.agent.Position == s.world.Recharger
	}
	return true
}

func (s *Simulation) observe(event string) StepObservation {
	return StepObservation{
		Step:            s.steps,
		Position:        s.agent.Position,
		Cargo:           s.agent.Cargo,
		Battery:         s.agent.Battery,
		Score:           s.score,
		Deliveries:      s.deliveries,
		TotalDeliveries: s.world.TotalDeliveries,
		Status:          s.status,
		Event:           event,
	}
}
