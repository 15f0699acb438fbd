// Package batch runs policy comparison matrices: every policy plays every
// seed on a bounded worker pool, each cell on its own freshly generated
// world, so score differences trace back to the policies alone. Finished
// rows stream to the configured sinks as they complete.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gridsim/deliverybot/results"
	"github.com/gridsim/deliverybot/sim/engine"
	"github.com/gridsim/deliverybot/sim/tuning"
	"github.com/gridsim/deliverybot/sim/worldgen"
)

// Recorder is the slice of the results store the runner sinks rows into.
type Recorder interface {
	Record(ctx context.Context, rec results.RunRecord) error
}

// Spec describes one batch: the policy and seed axes plus the shared
// generation params and tuning.
type Spec struct {
	Policies []string
	Seeds    []int64
	Params   worldgen.Params
	Tuning   tuning.Tuning
	Workers  int
}

func (s Spec) validate() error {
	if len(s.Policies) == 0 {
		return errors.New("batch needs at least one policy")
	}
	if len(s.Seeds) == 0 {
		return errors.New("batch needs at least one seed")
	}
	return nil
}

// Row is the outcome of one matrix cell. Err carries generation and policy
// failures plus cancellation; the Result counters are valid either way.
type Row struct {
	Policy string        `json:"policy"`
	Seed   int64         `json:"seed"`
	Result engine.Result `json:"result"`
	Err    error         `json:"-"`
}

// PolicyStats aggregates one policy's finished rows.
type PolicyStats struct {
	Policy    string  `json:"policy"`
	Runs      int     `json:"runs"`
	Failures  int     `json:"failures"`
	AvgScore  float64 `json:"avg_score"`
	AvgSteps  float64 `json:"avg_steps"`
	Completed int     `json:"completed"`
	Stranded  int     `json:"stranded"`
	Depleted  int     `json:"depleted"`
}

// Summary is the collected batch outcome. Rows are sorted by policy then
// seed regardless of completion order.
type Summary struct {
	Rows     []Row         `json:"rows"`
	Policies []PolicyStats `json:"policies"`
	Duration time.Duration `json:"duration"`
}

// Runner executes a batch spec. Store, CSVPath and OnRow are optional sinks;
// rows reach them in completion order.
type Runner struct {
	Spec    Spec
	Store   Recorder
	CSVPath string
	OnRow   func(Row)
}

type job struct {
	policy string
	seed   int64
}

// Run works the matrix until done or cancelled. Cancellation stops dispatch
// and in-flight simulations; rows finished by then are kept in the returned
// summary alongside the context error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	spec := r.Spec
	if err := spec.validate(); err != nil {
		return nil, err
	}

	workers := spec.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if total := len(spec.Policies) * len(spec.Seeds); workers > total {
		workers = total
	}

	jobs := make(chan job)
	rows := make(chan Row)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				rows <- runCell(ctx, spec, j)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, policy := range spec.Policies {
			for _, seed := range spec.Seeds {
				if ctx.Err() != nil {
					return
				}
				select {
				case <-ctx.Done():
					return
				case jobs <- job{policy: policy, seed: seed}:
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(rows)
	}()

	start := time.Now()
	summary := &Summary{}
	for row := range rows {
		summary.Rows = append(summary.Rows, row)
		r.sink(ctx, row)
	}
	summary.Duration = time.Since(start)
	summary.aggregate()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// runCell plays one policy on one seed. The world and planner are built
// fresh here, so cells share nothing mutable.
func runCell(ctx context.Context, spec Spec, j job) Row {
	row := Row{Policy: j.policy, Seed: j.seed}

	world, err := worldgen.FromSeed(spec.Params, j.seed)
	if err != nil {
		row.Err = fmt.Errorf("seed %d: %w", j.seed, err)
		return row
	}
	planner, err := engine.NewPlanner(j.policy, engine.NewPathFinder(world.Grid), spec.Tuning.FeasibilityMargin)
	if err != nil {
		row.Err = err
		return row
	}

	sim := engine.NewSimulation(world, planner, spec.Tuning)
	result, err := sim.Run(ctx, nil)
	row.Result = result
	row.Err = err
	return row
}

// sink fans a finished row out to the configured sinks. Sink failures are
// reported but never stop the batch.
func (r *Runner) sink(ctx context.Context, row Row) {
	if r.OnRow != nil {
		r.OnRow(row)
	}

	rec, ok := toRecord(row)
	if !ok {
		return
	}
	if r.Store != nil {
		if err := r.Store.Record(ctx, rec); err != nil {
			fmt.Printf("Warning: Failed to record batch row %s/%d: %v\n", row.Policy, row.Seed, err)
		}
	}
	if r.CSVPath != "" {
		if err := results.AppendCSV(r.CSVPath, rec); err != nil {
			fmt.Printf("Warning: Failed to append batch row %s/%d to csv: %v\n", row.Policy, row.Seed, err)
		}
	}
}

// toRecord converts a row to its stored form. Terminal rows keep their
// outcome; cancelled rows carry their partial counters under the cancelled
// outcome; generation failures produce no record at all.
func toRecord(row Row) (results.RunRecord, bool) {
	outcome := string(row.Result.Outcome)
	if !row.Result.Outcome.Terminal() {
		cancelled := errors.Is(row.Err, context.Canceled) || errors.Is(row.Err, context.DeadlineExceeded)
		if !cancelled {
			return results.RunRecord{}, false
		}
		outcome = results.OutcomeCancelled
	}
	return results.RunRecord{
		RunID:           fmt.Sprintf("batch-%s-%d", row.Policy, row.Seed),
		Policy:          row.Policy,
		Seed:            row.Seed,
		Score:           row.Result.Score,
		Steps:           row.Result.Steps,
		Deliveries:      row.Result.Deliveries,
		TotalDeliveries: row.Result.TotalDeliveries,
		Outcome:         outcome,
		CreatedAt:       time.Now().UTC(),
	}, true
}

// aggregate sorts the rows and computes the per-policy stats. Averages are
// taken over terminal rows only; failed and cancelled rows count as
// failures.
func (s *Summary) aggregate() {
	sort.Slice(s.Rows, func(i, j int) bool {
		if s.Rows[i].Policy != s.Rows[j].Policy {
			return s.Rows[i].Policy < s.Rows[j].Policy
		}
		return s.Rows[i].Seed < s.Rows[j].Seed
	})

	byPolicy := make(map[string]*PolicyStats)
	order := make([]string, 0)
	for _, row := range s.Rows {
		stats, ok := byPolicy[row.Policy]
		if !ok {
			stats = &PolicyStats{Policy: row.Policy}
			byPolicy[row.Policy] = stats
			order = append(order, row.Policy)
		}
		stats.Runs++
		if !row.Result.Outcome.Terminal() {
			stats.Failures++
			continue
		}
		stats.AvgScore += float64(row.Result.Score)
		stats.AvgSteps += float64(row.Result.Steps)
		switch row.Result.Outcome {
		case engine.StatusComplete:
			stats.Completed++
		case engine.StatusStranded:
			stats.Stranded++
		case engine.StatusDepleted:
			stats.Depleted++
		}
	}

	sort.Strings(order)
	s.Policies = make([]PolicyStats, 0, len(order))
	for _, policy := range order {
		stats := byPolicy[policy]
		if terminal := stats.Runs - stats.Failures; terminal > 0 {
			stats.AvgScore /= float64(terminal)
			stats.AvgSteps /= float64(terminal)
		}
		s.Policies = append(s.Policies, *stats)
	}
}

// Seeds returns n sequential seeds starting at base, the usual axis of a
// reproducible batch.
func Seeds(base int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = base + int64(i)
	}
	return seeds
}
