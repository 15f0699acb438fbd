package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownPolicy is returned by NewPlanner for unrecognized policy names.
var ErrUnknownPolicy = errors.New("unknown planner policy")

// TargetKind classifies what the planner chose to travel to.
type TargetKind string

const (
	TargetPackage   TargetKind = "package"
	TargetGoal      TargetKind = "goal"
	TargetRecharger TargetKind = "recharger"
)

// Target is a planner decision: where to go, why, along which path, and at
// what cost.
type Target struct {
	Pos  Position   `json:"pos"`
	Kind TargetKind `json:"kind"`
	Path []Position `json:"-"`
	Cost int        `json:"cost"`
}

// Planner selects the next travel target for the agent. A nil result means
// no feasible target exists, which the Simulation treats as the normal
// stranded termination, not an error. Planners read the agent and world but
// never mutate them.
type Planner interface {
	Name() string
	ChooseTarget(agent *Agent, world *World) *Target
}

// Policy names accepted by NewPlanner.
const (
	PolicyGreedy      = "greedy"
	PolicyNearest     = "nearest"
	PolicyOpportunist = "opportunist"
	PolicyReckless    = "reckless"
)

// PolicyNames lists the available policies, canonical first.
func PolicyNames() []string {
	return []string{PolicyGreedy, PolicyNearest, PolicyOpportunist, PolicyReckless}
}

// NewPlanner builds the named policy. The margin is the battery safety
// buffer added to round-trip feasibility estimates; policies that do not
// use a margin ignore it.
func NewPlanner(policy string, pf *PathFinder, margin int) (Planner, error) {
	switch policy {
	case PolicyGreedy:
		return &GreedyPlanner{pf: pf, margin: margin}, nil
	case PolicyNearest:
		return &NearestPlanner{pf: pf}, nil
	case PolicyOpportunist:
		return &OpportunistPlanner{pf: pf, margin: margin}, nil
	case PolicyReckless:
		return &RecklessPlanner{pf: pf}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}

// openCandidates returns the candidate positions for the agent's current
// phase: open packages while empty-handed, open goals while carrying.
func openCandidates(agent *Agent, world *World) ([]Position, TargetKind) {
	if agent.Cargo == 0 {
		return world.Packages.Positions(), TargetPackage
	}
	return world.Goals.Positions(), TargetGoal
}

// rechargerFallback targets the recharger when it is reachable within the
// current battery, and returns nil otherwise. A nil here means stranded.
func rechargerFallback(pf *PathFinder, agent *Agent, world *World) *Target {
	path, cost := pf.FindPath(agent.Position, world.Recharger)
	if cost >= UnreachableCost || cost > agent.Battery {
		return nil
	}
	return &Target{Pos: world.Recharger, Kind: TargetRecharger, Path: path, Cost: cost}
}

// GreedyPlanner is the canonical policy. Among candidates whose round trip
// through the recharger fits the battery with a safety margin, it picks the
// one with the cheapest direct path; ties go to the first-discovered
// candidate. With no feasible candidate it falls back to the recharger.
//
// The invariant it upholds: a non-recharger choice always satisfies
// costTo + costToRecharger + margin <= battery, so the agent is never
// committed to a path that leaves it stranded.
type GreedyPlanner struct {
	pf     *PathFinder
	margin int
}

// Name returns the policy name.
func (p *GreedyPlanner) Name() string { return PolicyGreedy }

// ChooseTarget implements the Planner interface.
func (p *GreedyPlanner) ChooseTarget(agent *Agent, world *World) *Target {
	candidates, kind := openCandidates(agent, world)

	var best *Target
	for _, c := range candidates {
		path, cost := p.pf.FindPath(agent.Position, c)
		if cost >= UnreachableCost {
			continue
		}
		_, back := p.pf.FindPath(c, world.Recharger)
		if back >= UnreachableCost {
			continue
		}
		if cost+back+p.margin > agent.Battery {
			continue
		}
		if best == nil || cost < best.Cost {
			best = &Target{Pos: c, Kind: kind, Path: path, Cost: cost}
		}
	}

	if best != nil {
		return best
	}
	return rechargerFallback(p.pf, agent, world)
}

// NearestPlanner picks the cheapest reachable candidate first and only then
// verifies the round trip, without a safety margin. It recharges instead
// when the chosen candidate fails the check. Weaker than the greedy policy
// on tight batteries; kept for comparison runs.
type NearestPlanner struct {
	pf *PathFinder
}

// Name returns the policy name.
func (p *NearestPlanner) Name() string { return PolicyNearest }

// ChooseTarget implements the Planner interface.
func (p *NearestPlanner) ChooseTarget(agent *Agent, world *World) *Target {
	candidates, kind := openCandidates(agent, world)

	var best *Target
	for _, c := range candidates {
		path, cost := p.pf.FindPath(agent.Position, c)
		if cost >= UnreachableCost {
			continue
		}
		if best == nil || cost < best.Cost {
			best = &Target{Pos: c, Kind: kind, Path: path, Cost: cost}
		}
	}

	if best == nil {
		return rechargerFallback(p.pf, agent, world)
	}
	_, back := p.pf.FindPath(best.Pos, world.Recharger)
	if back >= UnreachableCost || best.Cost+back > agent.Battery {
		return rechargerFallback(p.pf, agent, world)
	}
	return best
}

// OpportunistPlanner extends the greedy policy with two refinements: while
// carrying cargo it diverts to an open package lying on the path to a goal,
// and while empty-handed it ranks packages by the full chain cost
// package -> best goal -> recharger instead of the direct leg alone. All
// choices remain feasibility-checked with the margin; since the direct
// recharger leg is never longer than the chain through a goal, the greedy
// round-trip invariant holds here too.
type OpportunistPlanner struct {
	pf     *PathFinder
	margin int
}

// Name returns the policy name.
func (p *OpportunistPlanner) Name() string { return PolicyOpportunist }

// ChooseTarget implements the Planner interface.
func (p *OpportunistPlanner) ChooseTarget(agent *Agent, world *World) *Target {
	if agent.Cargo > 0 {
		if t := p.enRoutePackage(agent, world); t != nil {
			return t
		}
		return p.chooseGoal(agent, world)
	}
	return p.choosePackageChain(agent, world)
}

// enRoutePackage scans goal paths for an open package worth grabbing on the
// way and targets the first feasible one.
func (p *OpportunistPlanner) enRoutePackage(agent *Agent, world *World) *Target {
	for _, goal := range world.Goals.Positions() {
		path, cost := p.pf.FindPath(agent.Position, goal)
		if cost >= UnreachableCost {
			continue
		}
		for _, pos := range path {
			if !world.Packages.Contains(pos) {
				continue
			}
			pkgPath, pkgCost := p.pf.FindPath(agent.Position, pos)
			if pkgCost >= UnreachableCost {
				continue
			}
			_, back := p.pf.FindPath(pos, world.Recharger)
			if back >= UnreachableCost || pkgCost+back+p.margin > agent.Battery {
				continue
			}
			return &Target{Pos: pos, Kind: TargetPackage, Path: pkgPath, Cost: pkgCost}
		}
	}
	return nil
}

// chooseGoal ranks open goals by delivery-plus-recharge cost.
func (p *OpportunistPlanner) chooseGoal(agent *Agent, world *World) *Target {
	var best *Target
	bestTotal := UnreachableCost
	for _, goal := range world.Goals.Positions() {
		path, cost := p.pf.FindPath(agent.Position, goal)
		if cost >= UnreachableCost {
			continue
		}
		_, back := p.pf.FindPath(goal, world.Recharger)
		if back >= UnreachableCost {
			continue
		}
		total := cost + back
		if total+p.margin > agent.Battery {
			continue
		}
		if best == nil || total < bestTotal {
			best = &Target{Pos: goal, Kind: TargetGoal, Path: path, Cost: cost}
			bestTotal = total
		}
	}
	if best != nil {
		return best
	}
	return rechargerFallback(p.pf, agent, world)
}

// choosePackageChain ranks open packages by the cheapest full chain
// package -> goal -> recharger the battery can fund.
func (p *OpportunistPlanner) choosePackageChain(agent *Agent, world *World) *Target {
	var best *Target
	bestChain := UnreachableCost
	for _, pkg := range world.Packages.Positions() {
		path, cost := p.pf.FindPath(agent.Position, pkg)
		if cost >= UnreachableCost {
			continue
		}
		chain := UnreachableCost
		for _, goal := range world.Goals.Positions() {
			_, toGoal := p.pf.FindPath(pkg, goal)
			if toGoal >= UnreachableCost {
				continue
			}
			_, toRecharger := p.pf.FindPath(goal, world.Recharger)
			if toRecharger >= UnreachableCost {
				continue
			}
			if total := cost + toGoal + toRecharger; total < chain {
				chain = total
			}
		}
		if chain >= UnreachableCost || chain+p.margin > agent.Battery {
			continue
		}
		if best == nil || chain < bestChain {
			best = &Target{Pos: pkg, Kind: TargetPackage, Path: path, Cost: cost}
			bestChain = chain
		}
	}
	if best != nil {
		return best
	}
	return rechargerFallback(p.pf, agent, world)
}

// RecklessPlanner reproduces the defective policy lineage: it chases the
// candidate with the smallest Manhattan distance, skips every battery
// feasibility check, and never retreats to the recharger. Runs under it
// routinely end depleted; it exists so comparison runs can show what the
// feasibility check buys.
type RecklessPlanner struct {
	pf *PathFinder
}

// Name returns the policy name.
func (p *RecklessPlanner) Name() string { return PolicyReckless }

// ChooseTarget implements the Planner interface.
func (p *RecklessPlanner) ChooseTarget(agent *Agent, world *World) *Target {
	candidates, kind := openCandidates(agent, world)

	var best *Target
	bestDist := 0
	for _, c := range candidates {
		dist := ManhattanDistance(agent.Position, c)
		if best != nil && dist >= bestDist {
			continue
		}
		path, cost := p.pf.FindPath(agent.Position, c)
		if cost >= UnreachableCost {
			continue
		}
		best = &Target{Pos: c, Kind: kind, Path: path, Cost: cost}
		bestDist = dist
	}
	return best
}
