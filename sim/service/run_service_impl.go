package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gridsim/deliverybot/results"
	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/tuning"
	"github.com/gridsim/deliverybot/sim/worldgen"
)

// runServiceImpl implements the RunService interface
type runServiceImpl struct {
	runs      RunManager
	scenarios ScenarioManager
	store     ResultStore
	traceDir  string
	baseTun   tuning.Tuning
	mu        sync.RWMutex
}

// NewRunService creates the service every transport talks to. store may be
// nil when no results database is configured; an empty traceDir disables
// step traces.
func NewRunService(runs RunManager, scenarios ScenarioManager, store ResultStore, traceDir string, tun tuning.Tuning) RunService {
	return &runServiceImpl{
		runs:      runs,
		scenarios: scenarios,
		store:     store,
		traceDir:  traceDir,
		baseTun:   tun,
	}
}

// CreateRun builds the world, planner and simulation for a new run.
func (s *runServiceImpl) CreateRun(ctx context.Context, req CreateRunRequest) (*RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Scenario != "" && req.Seed != nil {
		return nil, fmt.Errorf("scenario %q and seed %d are mutually exclusive", req.Scenario, *req.Seed)
	}

	tun := s.baseTun
	if req.Tuning != nil {
		tun = *req.Tuning
	}
	policy := req.Policy
	if policy == "" {
		policy = engine.PolicyGreedy
	}

	run := &Run{Policy: policy, Tuning: tun}

	var world *engine.World
	if req.Scenario != "" {
		sc, err := s.scenarios.LoadScenario(req.Scenario)
		if err != nil {
			if errors.Is(err, ErrScenarioNotFound) {
				if infos, listErr := s.scenarios.ListScenarios(); listErr == nil && len(infos) > 0 {
					ids := make([]string, 0, len(infos))
					for _, info := range infos {
						ids = append(ids, info.ScenarioID)
					}
					return nil, fmt.Errorf("scenario %q not found. Available scenarios: %v", req.Scenario, ids)
				}
			}
			return nil, fmt.Errorf("failed to load scenario %s: %w", req.Scenario, err)
		}
		world, err = engine.BuildWorld(sc, tun.RoughCost)
		if err != nil {
			return nil, fmt.Errorf("failed to build world from scenario %s: %w", req.Scenario, err)
		}
		run.Scenario = req.Scenario
	} else {
		params := worldgen.DefaultParams()
		if req.Params != nil {
			params = *req.Params
		}
		seed := time.Now().UnixNano()
		if req.Seed != nil {
			seed = *req.Seed
		}
		var err error
		world, err = worldgen.FromSeed(params, seed)
		if err != nil {
			return nil, fmt.Errorf("failed to generate world for seed %d: %w", seed, err)
		}
		run.Seed = seed
		run.Params = params
	}

	planner, err := engine.NewPlanner(policy, engine.NewPathFinder(world.Grid), tun.FeasibilityMargin)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownPolicy) {
			return nil, fmt.Errorf("policy %q not found. Available policies: %v", policy, engine.PolicyNames())
		}
		return nil, err
	}
	run.Sim = engine.NewSimulation(world, planner, tun)

	created, err := s.runs.Create(run)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	if s.traceDir != "" {
		trace, err := results.NewTraceWriter(results.TracePath(s.traceDir, created.ID))
		if err != nil {
			fmt.Printf("Warning: Failed to open trace for run %s: %v\n", created.ID, err)
		} else {
			created.Trace = trace
			if err := trace.Write(created.Sim.Observation()); err != nil {
				fmt.Printf("Warning: Failed to write trace for run %s: %v\n", created.ID, err)
			}
		}
	}

	if err := s.runs.Save(created.ID); err != nil {
		fmt.Printf("Warning: Failed to persist run %s after create: %v\n", created.ID, err)
	}

	return runInfo(created), nil
}

// GetRun retrieves run information
func (s *runServiceImpl) GetRun(ctx context.Context, runID string) (*RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	s.runs.UpdateLastAccessed(runID)

	return runInfo(run), nil
}

// ListRuns returns all active runs
func (s *runServiceImpl) ListRuns(ctx context.Context) ([]*RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.runs.List()
	infos := make([]*RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, runInfo(run))
	}
	return infos, nil
}

// DeleteRun removes a run, closing its trace first.
func (s *runServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run, err := s.runs.Get(runID); err == nil && run.Trace != nil {
		if cerr := run.Trace.Close(); cerr != nil {
			fmt.Printf("Warning: Failed to close trace for run %s: %v\n", runID, cerr)
		}
	}
	return s.runs.Delete(runID)
}

// StepRun advances a run by up to the requested number of steps, stopping
// early on a terminal state.
func (s *runServiceImpl) StepRun(ctx context.Context, runID string, steps int) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	s.runs.UpdateLastAccessed(runID)

	result := &StepResult{
		RunID:        runID,
		Requested:    steps,
		Observations: []engine.StepObservation{},
	}
	if steps <= 0 {
		steps = 1
		result.Requested = 1
	}
	if steps > MaxStepBatch {
		result.Truncated = true
		result.Limit = MaxStepBatch
		steps = MaxStepBatch
	}

	startScore := run.Sim.Result().Score
	for i := 0; i < steps; i++ {
		if run.Sim.Status() != engine.StatusRunning {
			break
		}
		obs := run.Sim.Step()
		result.Executed++
		result.Observations = append(result.Observations, obs)
		if run.Trace != nil {
			if err := run.Trace.Write(obs); err != nil {
				fmt.Printf("Warning: Failed to write trace for run %s: %v\n", runID, err)
			}
		}
	}

	res := run.Sim.Result()
	result.Status = res.Outcome
	result.Terminal = res.Outcome.Terminal()
	result.EndPosition = run.Sim.Agent().Position
	result.EndBattery = run.Sim.Agent().Battery
	result.ScoreDelta = res.Score - startScore
	result.Target = run.Sim.CurrentTarget()
	if result.Terminal {
		result.Result = &res
		s.recordResult(ctx, run)
	}
	result.LocalView, result.BatteryRisk, result.RiskCode = decisionAids(run)

	if err := s.runs.Save(runID); err != nil {
		fmt.Printf("Warning: Failed to persist run %s after step: %v\n", runID, err)
	}

	return result, nil
}

// CompleteRun drives a run to its terminal state.
func (s *runServiceImpl) CompleteRun(ctx context.Context, runID string) (*CompleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	s.runs.UpdateLastAccessed(runID)

	startSteps := run.Sim.Result().Steps
	res, err := run.Sim.Run(ctx, func(obs engine.StepObservation) {
		if run.Trace != nil {
			if werr := run.Trace.Write(obs); werr != nil {
				fmt.Printf("Warning: Failed to write trace for run %s: %v\n", runID, werr)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("run %s interrupted: %w", runID, err)
	}

	s.recordResult(ctx, run)
	if err := s.runs.Save(runID); err != nil {
		fmt.Printf("Warning: Failed to persist run %s after completion: %v\n", runID, err)
	}

	return &CompleteResult{
		RunID:         runID,
		Result:        res,
		StepsExecuted: res.Steps - startSteps,
	}, nil
}

// RunState retrieves the current state of a run
func (s *runServiceImpl) RunState(ctx context.Context, runID string) (*StateInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, err
	}
	s.runs.UpdateLastAccessed(runID)

	info := &StateInfo{
		RunID:       runID,
		Policy:      run.Policy,
		Status:      run.Sim.Status(),
		Observation: run.Sim.Observation(),
		Target:      run.Sim.CurrentTarget(),
		Grid:        renderGrid(run.Sim.World(), run.Sim.Agent().Position),
	}
	info.LocalView, info.BatteryRisk, info.RiskCode = decisionAids(run)
	return info, nil
}

// ListScenarios returns available scenarios
func (s *runServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.scenarios.ListScenarios()
}

// GetScenario loads one scenario by name.
func (s *runServiceImpl) GetScenario(ctx context.Context, name string) (*engine.Scenario, error) {
	return s.scenarios.LoadScenario(name)
}

// SaveScenario stores a scenario under the given name. Validation happens
// in the scenario manager before anything touches disk.
func (s *runServiceImpl) SaveScenario(ctx context.Context, name string, sc *engine.Scenario) error {
	return s.scenarios.SaveScenario(name, sc)
}

// ListResults returns recent run records from the results store.
func (s *runServiceImpl) ListResults(ctx context.Context, limit int) ([]results.RunRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no results store configured")
	}
	return s.store.Recent(ctx, limit)
}

// recordResult stores the terminal record exactly once and closes the
// run's trace.
func (s *runServiceImpl) recordResult(ctx context.Context, run *Run) {
	if run.Recorded {
		return
	}
	run.Recorded = true

	if run.Trace != nil {
		if err := run.Trace.Close(); err != nil {
			fmt.Printf("Warning: Failed to close trace for run %s: %v\n", run.ID, err)
		}
	}
	if s.store == nil {
		return
	}
	res := run.Sim.Result()
	rec := results.RunRecord{
		RunID:           run.ID,
		Scenario:        run.Scenario,
		Policy:          run.Policy,
		Seed:            run.Seed,
		Score:           res.Score,
		Steps:           res.Steps,
		Deliveries:      res.Deliveries,
		TotalDeliveries: res.TotalDeliveries,
		Outcome:         string(res.Outcome),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Record(ctx, rec); err != nil {
		fmt.Printf("Warning: Failed to record result for run %s: %v\n", run.ID, err)
	}
}

func runInfo(run *Run) *RunInfo {
	res := run.Sim.Result()
	return &RunInfo{
		ID:              run.ID,
		Policy:          run.Policy,
		Scenario:        run.Scenario,
		Seed:            run.Seed,
		GridSize:        run.Sim.World().Grid.Size(),
		Status:          res.Outcome,
		Score:           res.Score,
		Steps:           res.Steps,
		Deliveries:      res.Deliveries,
		TotalDeliveries: res.TotalDeliveries,
		CreatedAt:       run.CreatedAt,
		LastAccessedAt:  run.LastAccessedAt,
	}
}

// decisionAids computes the enrichment fields shared by step and state
// responses.
func decisionAids(run *Run) (local []string, riskText, code string) {
	world := run.Sim.World()
	agent := run.Sim.Agent()
	_, cost := engine.NewPathFinder(world.Grid).FindPath(agent.Position, world.Recharger)
	riskText = engine.AssessBatteryRisk(agent.Battery, cost)
	return localView(world, agent.Position), riskText, riskCode(riskText)
}

// renderGrid draws the live world as ASCII rows: the agent over entities
// over terrain.
func renderGrid(world *engine.World, agent engine.Position) []string {
	size := world.Grid.Size()
	rows := make([]string, 0, size)
	for y := 0; y < size; y++ {
		var row strings.Builder
		for x := 0; x < size; x++ {
			row.WriteByte(cellChar(world, agent, engine.Position{X: x, Y: y}))
		}
		rows = append(rows, row.String())
	}
	return rows
}

// localView is the 3x3 neighborhood around the agent; out-of-bounds cells
// draw as walls.
func localView(world *engine.World, agent engine.Position) []string {
	lines := make([]string, 0, 3)
	for dy := -1; dy <= 1; dy++ {
		var row strings.Builder
		for dx := -1; dx <= 1; dx++ {
			row.WriteByte(cellChar(world, agent, engine.Position{X: agent.X + dx, Y: agent.Y + dy}))
		}
		lines = append(lines, row.String())
	}
	return lines
}

func cellChar(world *engine.World, agent, pos engine.Position) byte {
	switch {
	case pos == agent:
		return 'A'
	case world.Packages.Contains(pos):
		return 'P'
	case world.Goals.Contains(pos):
		return 'G'
	case pos == world.Recharger:
		return 'R'
	}
	switch world.Grid.CellAt(pos) {
	case engine.CellWall:
		return '#'
	case engine.CellRough:
		return '~'
	default:
		return '.'
	}
}

// riskCode reduces a battery-risk sentence to its leading code word.
func riskCode(text string) string {
	if i := strings.IndexByte(text, ':'); i > 0 {
		return text[:i]
	}
	return text
}
