package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gridsim/deliverybot/sim/tuning"
)

func emptyRows(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = strings.Repeat(".", n)
	}
	return rows
}

func TestSimulation_CanonicalDeliveryRun(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(10), 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 5, Y: 5},
		[]Position{{X: 9, Y: 9}}, []Position{{X: 0, Y: 9}})
	if err := world.Validate(); err != nil {
		t.Fatalf("World failed validation: %v", err)
	}

	tun := tuning.Default()
	tun.BatteryStart = 100
	planner := mustPlanner(t, PolicyGreedy, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	var observations []StepObservation
	result, err := sim.Run(context.Background(), func(obs StepObservation) {
		observations = append(observations, obs)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != StatusComplete {
		t.Errorf("Expected outcome %q, got %q", StatusComplete, result.Outcome)
	}
	if result.Steps != 27 {
		t.Errorf("Expected 27 steps, got %d", result.Steps)
	}
	if result.Score != 23 {
		t.Errorf("Expected score 23, got %d", result.Score)
	}
	if result.Deliveries != 1 {
		t.Errorf("Expected 1 delivery, got %d", result.Deliveries)
	}

	if len(observations) != 27 {
		t.Fatalf("Expected 27 observations, got %d", len(observations))
	}
	pickup := observations[17]
	if pickup.Event != EventPickup {
		t.Errorf("Expected pickup event at step 18, got %q", pickup.Event)
	}
	if pickup.Cargo != 1 {
		t.Errorf("Expected cargo 1 after pickup, got %d", pickup.Cargo)
	}
	if pickup.Battery != 82 {
		t.Errorf("Expected battery 82 after pickup, got %d", pickup.Battery)
	}
	if pickup.Score != -18 {
		t.Errorf("Expected score -18 after pickup, got %d", pickup.Score)
	}
	delivery := observations[26]
	if delivery.Event != EventDelivery {
		t.Errorf("Expected delivery event at step 27, got %q", delivery.Event)
	}
	if delivery.Status != StatusComplete {
		t.Errorf("Expected status %q at delivery, got %q", StatusComplete, delivery.Status)
	}

	// A terminal simulation does not advance further.
	after := sim.Step()
	if after.Step != 27 || after.Status != StatusComplete {
		t.Errorf("Expected terminal state to hold at step 27, got step %d status %q",
			after.Step, after.Status)
	}
}

func TestSimulation_Observation_BeforeFirstStep(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(5), 3)
	world := buildTestWorld(t, grid,
		Position{X: 1, Y: 1}, Position{X: 2, Y: 2},
		[]Position{{X: 4, Y: 4}}, []Position{{X: 0, Y: 4}})

	tun := tuning.Default()
	planner := mustPlanner(t, PolicyGreedy, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	obs := sim.Observation()
	if obs.Step != 0 {
		t.Errorf("Expected step 0, got %d", obs.Step)
	}
	if obs.Position != world.Start {
		t.Errorf("Expected position at start (1,1), got (%d,%d)", obs.Position.X, obs.Position.Y)
	}
	if obs.Battery != tun.BatteryStart {
		t.Errorf("Expected battery %d, got %d", tun.BatteryStart, obs.Battery)
	}
	if obs.Status != StatusRunning {
		t.Errorf("Expected status %q, got %q", StatusRunning, obs.Status)
	}
}

func TestSimulation_Depleted(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(5), 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 2, Y: 2},
		[]Position{{X: 4, Y: 4}}, []Position{{X: 0, Y: 4}})

	tun := tuning.Default()
	tun.BatteryStart = 3
	planner := mustPlanner(t, PolicyReckless, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	var last StepObservation
	result, err := sim.Run(context.Background(), func(obs StepObservation) {
		last = obs
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != StatusDepleted {
		t.Errorf("Expected outcome %q, got %q", StatusDepleted, result.Outcome)
	}
	// Three affordable moves, then the fatal fourth. Its movement cost is
	// not scored; the undelivered package costs 25 plus the flat 25.
	if result.Steps != 4 {
		t.Errorf("Expected 4 steps, got %d", result.Steps)
	}
	if result.Score != -53 {
		t.Errorf("Expected score -53, got %d", result.Score)
	}
	if result.Deliveries != 0 {
		t.Errorf("Expected 0 deliveries, got %d", result.Deliveries)
	}
	if last.Event != EventDepleted {
		t.Errorf("Expected depletion event on the final step, got %q", last.Event)
	}
	if last.Battery != -1 {
		t.Errorf("Expected battery -1 on the fatal step, got %d", last.Battery)
	}
}

func TestSimulation_BatteryZeroIsAlive(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(5), 3)
	// One package a single step away and battery for exactly that step.
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 1, Y: 0},
		[]Position{{X: 0, Y: 1}}, []Position{{X: 4, Y: 4}})

	tun := tuning.Default()
	tun.BatteryStart = 1
	planner := mustPlanner(t, PolicyReckless, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	obs := sim.Step()
	if obs.Battery != 0 {
		t.Fatalf("Expected battery 0, got %d", obs.Battery)
	}
	if obs.Status != StatusRunning {
		t.Errorf("Expected an empty battery to stay alive, got status %q", obs.Status)
	}
	if obs.Event != EventPickup {
		t.Errorf("Expected pickup on the zero-battery step, got %q", obs.Event)
	}
}

func TestSimulation_StrandedAtStart(t *testing.T) {
	grid := buildTestGrid(t, []string{
		".#...",
		"#....",
		".....",
		".....",
		".....",
	}, 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 4, Y: 4},
		[]Position{{X: 2, Y: 2}}, []Position{{X: 3, Y: 3}})

	tun := tuning.Default()
	planner := mustPlanner(t, PolicyGreedy, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	result, err := sim.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outcome != StatusStranded {
		t.Errorf("Expected outcome %q, got %q", StatusStranded, result.Outcome)
	}
	if result.Steps != 0 {
		t.Errorf("Expected 0 steps for a walled-in start, got %d", result.Steps)
	}
	if result.Score != 0 {
		t.Errorf("Expected score 0, got %d", result.Score)
	}
}

func TestSimulation_EnRouteRecharge(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(5), 3)
	// The recharger at (2,0) lies on the straight path to the package at
	// (3,0); crossing it tops the battery up mid-route.
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 2, Y: 0},
		[]Position{{X: 3, Y: 0}}, []Position{{X: 4, Y: 0}})

	tun := tuning.Default()
	tun.BatteryStart = 10
	planner := mustPlanner(t, PolicyGreedy, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	var observations []StepObservation
	result, err := sim.Run(context.Background(), func(obs StepObservation) {
		observations = append(observations, obs)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Outcome != StatusComplete {
		t.Fatalf("Expected outcome %q, got %q", StatusComplete, result.Outcome)
	}
	if result.Steps != 4 {
		t.Errorf("Expected 4 steps, got %d", result.Steps)
	}
	// Recharging never touches the score: 50 reward minus 4 movement.
	if result.Score != 46 {
		t.Errorf("Expected score 46, got %d", result.Score)
	}

	recharge := observations[1]
	if recharge.Event != EventRecharge {
		t.Errorf("Expected recharge event at step 2, got %q", recharge.Event)
	}
	if recharge.Battery != tun.RechargeValue {
		t.Errorf("Expected battery %d after recharge, got %d", tun.RechargeValue, recharge.Battery)
	}
}

func TestSimulation_ReturnHome(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(5), 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 4, Y: 0},
		[]Position{{X: 1, Y: 0}}, []Position{{X: 2, Y: 0}})

	tun := tuning.Default()
	tun.ReturnHome = true
	planner := mustPlanner(t, PolicyGreedy, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	var observations []StepObservation
	result, err := sim.Run(context.Background(), func(obs StepObservation) {
		observations = append(observations, obs)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Delivery on step 2 must not complete the run; the agent still has to
	// walk home to the recharger at (4,0).
	if observations[1].Event != EventDelivery {
		t.Fatalf("Expected delivery at step 2, got %q", observations[1].Event)
	}
	if observations[1].Status != StatusRunning {
		t.Errorf("Expected run to continue after delivery, got status %q", observations[1].Status)
	}
	if result.Outcome != StatusComplete {
		t.Errorf("Expected outcome %q, got %q", StatusComplete, result.Outcome)
	}
	if result.Steps != 4 {
		t.Errorf("Expected 4 steps, got %d", result.Steps)
	}
	if result.Score != 46 {
		t.Errorf("Expected score 46, got %d", result.Score)
	}
	final := observations[len(observations)-1]
	if final.Position != world.Recharger {
		t.Errorf("Expected run to end on the recharger, got (%d,%d)",
			final.Position.X, final.Position.Y)
	}
}

func TestSimulation_RunCancelled(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(10), 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 5, Y: 5},
		[]Position{{X: 9, Y: 9}}, []Position{{X: 0, Y: 9}})

	tun := tuning.Default()
	planner := mustPlanner(t, PolicyGreedy, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result.Outcome != StatusRunning {
		t.Errorf("Expected partial result to report %q, got %q", StatusRunning, result.Outcome)
	}
	if result.Steps != 0 {
		t.Errorf("Expected 0 steps before cancellation, got %d", result.Steps)
	}
}

func TestSimulation_MultiPackageRun(t *testing.T) {
	grid := buildTestGrid(t, emptyRows(7), 3)
	world := buildTestWorld(t, grid,
		Position{X: 0, Y: 0}, Position{X: 3, Y: 3},
		[]Position{{X: 2, Y: 0}, {X: 0, Y: 2}}, []Position{{X: 4, Y: 0}, {X: 0, Y: 4}})

	tun := tuning.Default()
	planner := mustPlanner(t, PolicyGreedy, NewPathFinder(grid), tun.FeasibilityMargin)
	sim := NewSimulation(world, planner, tun)

	result, err := sim.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Outcome != StatusComplete {
		t.Errorf("Expected outcome %q, got %q", StatusComplete, result.Outcome)
	}
	if result.Deliveries != 2 {
		t.Errorf("Expected 2 deliveries, got %d", result.Deliveries)
	}
	if result.TotalDeliveries != 2 {
		t.Errorf("Expected total 2 deliveries, got %d", result.TotalDeliveries)
	}
	if sim.World().Packages.Len() != 0 || sim.World().Goals.Len() != 0 {
		t.Errorf("Expected all packages and goals consumed, got %d packages %d goals",
			sim.World().Packages.Len(), sim.World().Goals.Len())
	}
}
