// Package worldgen builds random delivery worlds: a walled and rough-littered
// grid, a recharger near the center, and matching package/goal sets scattered
// over free cells. Generation is deterministic for a given seed, which is what
// makes batch comparisons across policies meaningful.
package worldgen

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/gridsim/deliverybot/sim/engine"
)

// ErrExhausted is returned when no generated layout passes validation within
// the attempt budget. Degenerate params (a grid too crowded for its delivery
// count) are the usual cause.
var ErrExhausted = errors.New("world generation attempts exhausted")

const (
	wallRunMinLen = 5
	wallRunMaxLen = 10

	// minWallSize is the smallest grid that can host a wall run with the
	// standard interior offsets; smaller grids stay open.
	minWallSize = 11

	maxAttempts = 25
)

// Params control random world generation.
type Params struct {
	Size          int     `json:"size"`
	RoughCost     int     `json:"rough_cost"`
	WallRuns      int     `json:"wall_runs"`
	WallChance    float64 `json:"wall_chance"`
	RoughPatches  int     `json:"rough_patches"`
	MinDeliveries int     `json:"min_deliveries"`
	MaxDeliveries int     `json:"max_deliveries"`
}

// DefaultParams returns the standard generation recipe: a 30x30 grid, seven
// horizontal and seven vertical wall runs carved at 70%, one solid block, 50
// rough patches, and 4 to 10 deliveries.
func DefaultParams() Params {
	return Params{
		Size:          engine.DefaultGridSize,
		RoughCost:     3,
		WallRuns:      7,
		WallChance:    0.7,
		RoughPatches:  50,
		MinDeliveries: 4,
		MaxDeliveries: 10,
	}
}

func (p Params) validate() error {
	if p.Size < engine.MinGridSize || p.Size > engine.MaxGridSize {
		return fmt.Errorf("size %d out of range [%d,%d]", p.Size, engine.MinGridSize, engine.MaxGridSize)
	}
	if p.RoughCost < engine.MinRoughCost || p.RoughCost > engine.MaxRoughCost {
		return fmt.Errorf("rough cost %d out of range [%d,%d]", p.RoughCost, engine.MinRoughCost, engine.MaxRoughCost)
	}
	if p.MinDeliveries < 1 {
		return fmt.Errorf("min deliveries %d must be at least 1", p.MinDeliveries)
	}
	if p.MaxDeliveries < p.MinDeliveries {
		return fmt.Errorf("max deliveries %d below min %d", p.MaxDeliveries, p.MinDeliveries)
	}
	if p.WallChance < 0 || p.WallChance > 1 {
		return fmt.Errorf("wall chance %v out of range [0,1]", p.WallChance)
	}
	if p.WallRuns < 0 || p.RoughPatches < 0 {
		return errors.New("wall runs and rough patches must not be negative")
	}
	return nil
}

// FromSeed generates a validated world from a seed. Equal params and seed
// always produce the same world.
func FromSeed(p Params, seed int64) (*engine.World, error) {
	return Generate(p, rand.New(rand.NewSource(seed)))
}

// Generate draws layouts from rng until one passes validation, up to the
// attempt budget. Validation failures are dominated by layouts whose start
// cell lands in a pocket the recharger path cannot leave.
func Generate(p Params, rng *rand.Rand) (*engine.World, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		world, err := build(p, rng)
		if err == nil {
			if err = world.Validate(); err == nil {
				return world, nil
			}
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, maxAttempts, lastErr)
}

// build assembles one candidate layout. The draw order is fixed so that a
// seed fully determines the world: horizontal runs, vertical runs, block,
// rough patches, delivery count, recharger, then the entity shuffle.
func build(p Params, rng *rand.Rand) (*engine.World, error) {
	grid, err := engine.NewGrid(p.Size, p.RoughCost)
	if err != nil {
		return nil, err
	}

	carveWallRuns(grid, p, rng)
	placeBlock(grid, rng)
	scatterRough(grid, p, rng)

	total := randRange(rng, p.MinDeliveries, p.MaxDeliveries)

	recharger, err := placeRecharger(grid, rng)
	if err != nil {
		return nil, err
	}

	free := freeCells(grid, recharger)
	need := 2*total + 1
	if len(free) < need {
		return nil, fmt.Errorf("only %d free cells for %d entities", len(free), need)
	}
	rng.Shuffle(len(free), func(i, j int) {
		free[i], free[j] = free[j], free[i]
	})

	world := &engine.World{
		Grid:            grid,
		Packages:        engine.NewPositionSet(),
		Goals:           engine.NewPositionSet(),
		Recharger:       recharger,
		Start:           free[2*total],
		TotalDeliveries: total,
	}
	for _, pos := range free[:total] {
		world.Packages.Add(pos)
	}
	for _, pos := range free[total : 2*total] {
		world.Goals.Add(pos)
	}
	return world, nil
}

// carveWallRuns draws WallRuns horizontal and WallRuns vertical runs. Each
// run cell becomes a wall with probability WallChance, which leaves gaps the
// pathfinder can squeeze through.
func carveWallRuns(grid *engine.Grid, p Params, rng *rand.Rand) {
	size := grid.Size()
	if size < minWallSize {
		return
	}
	for i := 0; i < p.WallRuns; i++ {
		row := randRange(rng, 5, size-6)
		start := randRange(rng, 0, size-wallRunMaxLen)
		length := randRange(rng, wallRunMinLen, wallRunMaxLen)
		for j := 0; j < length; j++ {
			if rng.Float64() < p.WallChance {
				_ = grid.SetCell(engine.Position{X: start + j, Y: row}, engine.CellWall)
			}
		}
	}
	for i := 0; i < p.WallRuns; i++ {
		col := randRange(rng, 5, size-6)
		start := randRange(rng, 0, size-wallRunMaxLen)
		length := randRange(rng, wallRunMinLen, wallRunMaxLen)
		for j := 0; j < length; j++ {
			if rng.Float64() < p.WallChance {
				_ = grid.SetCell(engine.Position{X: col, Y: start + j}, engine.CellWall)
			}
		}
	}
}

// placeBlock stamps one solid square obstacle, side 4 or 6, kept two cells
// off the border. Grids too small for either side get none.
func placeBlock(grid *engine.Grid, rng *rand.Rand) {
	size := grid.Size()
	sides := make([]int, 0, 2)
	for _, side := range []int{4, 6} {
		if size >= side+4 {
			sides = append(sides, side)
		}
	}
	if len(sides) == 0 {
		return
	}
	side := sides[rng.Intn(len(sides))]
	bx := randRange(rng, 2, size-side-2)
	by := randRange(rng, 2, size-side-2)
	for y := by; y < by+side; y++ {
		for x := bx; x < bx+side; x++ {
			_ = grid.SetCell(engine.Position{X: x, Y: y}, engine.CellWall)
		}
	}
}

// scatterRough attempts RoughPatches single-cell rough placements; attempts
// that land on walls or existing rough are simply lost, matching the
// attempt-count rather than patch-count contract.
func scatterRough(grid *engine.Grid, p Params, rng *rand.Rand) {
	size := grid.Size()
	for i := 0; i < p.RoughPatches; i++ {
		pos := engine.Position{X: rng.Intn(size), Y: rng.Intn(size)}
		if grid.CellAt(pos) == engine.CellFree {
			_ = grid.SetCell(pos, engine.CellRough)
		}
	}
}

// placeRecharger picks a free cell from the 3x3 neighborhood of the grid
// center. Rough cells do not qualify; the recharger must sit on plain ground.
func placeRecharger(grid *engine.Grid, rng *rand.Rand) (engine.Position, error) {
	center := grid.Size() / 2
	candidates := make([]engine.Position, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			pos := engine.Position{X: center + dx, Y: center + dy}
			if grid.CellAt(pos) == engine.CellFree {
				candidates = append(candidates, pos)
			}
		}
	}
	if len(candidates) == 0 {
		return engine.Position{}, errors.New("no free cell near the center for the recharger")
	}
	return candidates[rng.Intn(len(candidates))], nil
}

// freeCells lists every plain free cell except the excluded one, in row-major
// order so the caller's shuffle is the only source of randomness.
func freeCells(grid *engine.Grid, exclude engine.Position) []engine.Position {
	size := grid.Size()
	cells := make([]engine.Position, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pos := engine.Position{X: x, Y: y}
			if pos == exclude {
				continue
			}
			if grid.CellAt(pos) == engine.CellFree {
				cells = append(cells, pos)
			}
		}
	}
	return cells
}

// randRange returns a uniform draw from [lo, hi], both ends included.
func randRange(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
