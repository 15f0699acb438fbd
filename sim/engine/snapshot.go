package engine

import "fmt"

// SimSnapshot captures the mutable half of a simulation for persistence.
// The static world (grid, start, recharger) is not part of it; callers
// rebuild the world from the run's scenario or seed and hand both to
// Restore.
type SimSnapshot struct {
	Agent      Agent      `json:"agent"`
	Status     Status     `json:"status"`
	Score      int        `json:"score"`
	Steps      int        `json:"steps"`
	Deliveries int        `json:"deliveries"`
	Packages   []Position `json:"packages"`
	Goals      []Position `json:"goals"`
}

// Snapshot returns the current mutable state. Remaining package and goal
// positions are copied in discovery order so a restored run keeps the same
// tie-breaking.
func (s *Simulation) Snapshot() SimSnapshot {
	return SimSnapshot{
		Agent:      *s.agent,
		Status:     s.status,
		Score:      s.score,
		Steps:      s.steps,
		Deliveries: s.deliveries,
		Packages:   s.world.Packages.Positions(),
		Goals:      s.world.Goals.Positions(),
	}
}

// Restore overwrites the simulation's mutable state from a snapshot taken
// against the same world (used for persistence loading). It rejects
// snapshots whose entity counts cannot belong to this world, then drops any
// planned path so the next Step re-plans from the restored position.
func (s *Simulation) Restore(snap SimSnapshot) error {
	total := s.world.TotalDeliveries
	if snap.Deliveries+len(snap.Goals) != total {
		return fmt.Errorf("snapshot has %d deliveries and %d open goals, want %d total",
			snap.Deliveries, len(snap.Goals), total)
	}
	if len(snap.Packages)+snap.Agent.Cargo+snap.Deliveries != total {
		return fmt.Errorf("snapshot has %d ground packages, %d carried and %d delivered, want %d total",
			len(snap.Packages), snap.Agent.Cargo, snap.Deliveries, total)
	}
	if !s.world.Grid.IsTraversable(snap.Agent.Position) {
		return fmt.Errorf("snapshot agent position (%d,%d) is not traversable on this grid",
			snap.Agent.Position.X, snap.Agent.Position.Y)
	}

	packages := NewPositionSet()
	for _, pos := range snap.Packages {
		if !s.world.Grid.IsTraversable(pos) {
			return fmt.Errorf("snapshot package at (%d,%d) is not traversable on this grid", pos.X, pos.Y)
		}
		packages.Add(pos)
	}
	goals := NewPositionSet()
	for _, pos := range snap.Goals {
		if !s.world.Grid.IsTraversable(pos) {
			return fmt.Errorf("snapshot goal at (%d,%d) is not traversable on this grid", pos.X, pos.Y)
		}
		goals.Add(pos)
	}

	agent := snap.Agent
	s.agent = &agent
	s.status = snap.Status
	s.score = snap.Score
	s.steps = snap.Steps
	s.deliveries = snap.Deliveries
	s.world.Packages = packages
	s.world.Goals = goals
	s.target = nil
	s.path = nil
	return nil
}
