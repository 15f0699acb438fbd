package engine

import "fmt"

// PositionSet is an ordered set of grid positions. Membership checks are
// O(1); iteration follows insertion order so that candidate evaluation and
// tie-breaking stay deterministic across runs.
type PositionSet struct {
	order   []Position
	members map[Position]bool
}

// NewPositionSet creates an empty set.
func NewPositionSet() *PositionSet {
	return &PositionSet{members: make(map[Position]bool)}
}

// Add inserts pos, ignoring duplicates.
func (s *PositionSet) Add(pos Position) {
	if s.members[pos] {
		return
	}
	s.members[pos] = true
	s.order = append(s.order, pos)
}

// Contains reports whether pos is in the set.
func (s *PositionSet) Contains(pos Position) bool {
	return s.members[pos]
}

// Remove deletes pos and reports whether it was present.
func (s *PositionSet) Remove(pos Position) bool {
	if !s.members[pos] {
		return false
	}
	delete(s.members, pos)
	for i, p := range s.order {
		if p == pos {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Positions returns the members in insertion order. The slice is a copy.
func (s *PositionSet) Positions() []Position {
	out := make([]Position, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of members.
func (s *PositionSet) Len() int {
	return len(s.order)
}

// World bundles the static grid with the consumable entity sets. The grid
// and recharger are immutable during a run; packages and goals shrink as
// the Simulation consumes them.
type World struct {
	Grid            *Grid
	Packages        *PositionSet
	Goals           *PositionSet
	Recharger       Position
	Start           Position
	TotalDeliveries int
}

// Validate fails fast on malformed worlds: overlapping entities, entities
// on walls, or a recharger the agent cannot reach from its start. Callers
// run it once at construction time, before any simulation starts.
func (w *World) Validate() error {
	if w.Grid == nil {
		return fmt.Errorf("world has no grid")
	}
	if w.Packages.Len() != w.Goals.Len() {
		return fmt.Errorf("package count %d does not match goal count %d", w.Packages.Len(), w.Goals.Len())
	}
	if w.TotalDeliveries != w.Goals.Len() {
		return fmt.Errorf("total deliveries %d does not match goal count %d", w.TotalDeliveries, w.Goals.Len())
	}

	occupied := map[Position]string{
		w.Start:     "agent start",
		w.Recharger: "recharger",
	}
	if w.Start == w.Recharger {
		return fmt.Errorf("agent start and recharger overlap at (%d,%d)", w.Start.X, w.Start.Y)
	}
	for _, pkg := range w.Packages.Positions() {
		if prev, taken := occupied[pkg]; taken {
			return fmt.Errorf("package at (%d,%d) overlaps %s", pkg.X, pkg.Y, prev)
		}
		occupied[pkg] = "package"
	}
	for _, goal := range w.Goals.Positions() {
		if prev, taken := occupied[goal]; taken {
			return fmt.Errorf("goal at (%d,%d) overlaps %s", goal.X, goal.Y, prev)
		}
		occupied[goal] = "goal"
	}

	for pos, name := range occupied {
		if !w.Grid.IsTraversable(pos) {
			return fmt.Errorf("%s at (%d,%d) is not on a traversable cell", name, pos.X, pos.Y)
		}
	}

	pf := NewPathFinder(w.Grid)
	if _, cost := pf.FindPath(w.Start, w.Recharger); cost >= UnreachableCost {
		return fmt.Errorf("recharger at (%d,%d) is unreachable from agent start (%d,%d)",
			w.Recharger.X, w.Recharger.Y, w.Start.X, w.Start.Y)
	}

	return nil
}
