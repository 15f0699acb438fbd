package service

import (
	"context"
	"errors"
	"time"

	"github.com/gridsim/deliverybot/results"
	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/tuning"
	"github.com/gridsim/deliverybot/sim/worldgen"
)

// Sentinel errors the consumer interfaces wrap so transports can map them to
// proper responses.
var (
	ErrRunNotFound      = errors.New("run not found")
	ErrScenarioNotFound = errors.New("scenario not found")
)

// MaxStepBatch caps how many steps a single StepRun call may execute.
const MaxStepBatch = 500

// RunService defines all run-related operations. Every transport (REST,
// WebSocket, MCP, CLI) mutates simulations through this interface only.
type RunService interface {
	// Run lifecycle
	CreateRun(ctx context.Context, req CreateRunRequest) (*RunInfo, error)
	GetRun(ctx context.Context, runID string) (*RunInfo, error)
	ListRuns(ctx context.Context) ([]*RunInfo, error)
	DeleteRun(ctx context.Context, runID string) error

	// Simulation operations
	StepRun(ctx context.Context, runID string, steps int) (*StepResult, error)
	CompleteRun(ctx context.Context, runID string) (*CompleteResult, error)

	// Inspection
	RunState(ctx context.Context, runID string) (*StateInfo, error)

	// Scenarios and results
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	GetScenario(ctx context.Context, name string) (*engine.Scenario, error)
	SaveScenario(ctx context.Context, name string, sc *engine.Scenario) error
	ListResults(ctx context.Context, limit int) ([]results.RunRecord, error)
}

// RunManager defines run storage operations.
type RunManager interface {
	Create(run *Run) (*Run, error)
	Get(id string) (*Run, error)
	List() []*Run
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ScenarioManager handles scenario loading. Load errors for unknown names
// wrap ErrScenarioNotFound.
type ScenarioManager interface {
	LoadScenario(name string) (*engine.Scenario, error)
	ListScenarios() ([]*ScenarioInfo, error)
	SaveScenario(name string, sc *engine.Scenario) error
}

// ResultStore records finished runs and answers result queries.
type ResultStore interface {
	Record(ctx context.Context, rec results.RunRecord) error
	Recent(ctx context.Context, limit int) ([]results.RunRecord, error)
}

// Run is one live simulation session. Scenario names the world's source
// file for scenario runs; generated runs carry the seed and params instead,
// which is enough to rebuild the world deterministically.
type Run struct {
	ID             string
	Sim            *engine.Simulation
	Policy         string
	Scenario       string
	Seed           int64
	Params         worldgen.Params
	Tuning         tuning.Tuning
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// Trace receives this run's step observations when tracing is on.
	Trace *results.TraceWriter
	// Recorded guards the exactly-once terminal record.
	Recorded bool
}
