package engine

import "container/heap"

// Heuristic estimates the remaining cost between two positions for A*.
type Heuristic func(from, to Position) int

// ManhattanHeuristic is the default heuristic. It is admissible and
// consistent whenever every cell cost is at least 1, which holds for
// free and rough cells, so searches using it return true shortest paths.
func ManhattanHeuristic(from, to Position) int {
	return ManhattanDistance(from, to)
}

// CenterBiasedHeuristic reproduces a search bias observed in one simulation
// lineage: the Manhattan estimate is reduced by half the distance to the
// grid center, pulling routes toward the middle of the map. The result is
// NOT admissible and can yield sub-optimal paths. It exists for comparison
// runs only and must never be the default.
func CenterBiasedHeuristic(gridSize int) Heuristic {
	center := Position{X: gridSize / 2, Y: gridSize / 2}
	return func(from, to Position) int {
		h := ManhattanDistance(from, to) - ManhattanDistance(from, center)/2
		if h < 0 {
			return 0
		}
		return h
	}
}

// neighborOffsets is the 4-connected neighborhood, in a fixed order so that
// equal-cost searches discover nodes deterministically.
var neighborOffsets = [4]Position{{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}}

// PathFinder runs weighted A* searches over an immutable Grid. It carries no
// mutable state between searches, so a single PathFinder is safe for
// concurrent FindPath calls.
type PathFinder struct {
	grid      *Grid
	heuristic Heuristic
}

// NewPathFinder creates a PathFinder using the admissible Manhattan heuristic.
func NewPathFinder(grid *Grid) *PathFinder {
	return &PathFinder{grid: grid, heuristic: ManhattanHeuristic}
}

// NewPathFinderWithHeuristic creates a PathFinder with a custom heuristic.
func NewPathFinderWithHeuristic(grid *Grid, h Heuristic) *PathFinder {
	if h == nil {
		h = ManhattanHeuristic
	}
	return &PathFinder{grid: grid, heuristic: h}
}

// searchNode is one priority-queue entry. seq is a monotonically increasing
// insertion counter giving FIFO order among equal f values, which keeps
// tie-breaking deterministic across runs.
type searchNode struct {
	pos Position
	g   int
	f   int
	seq int
}

type nodeHeap []*searchNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) { *h = append(*h, x.(*searchNode)) }

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return node
}

// FindPath returns the cheapest path from start to goal and its exact cost.
// The path excludes the start cell; its cost is the sum of the destination
// cell cost of every step. When start equals goal the result is an empty
// path with cost 0. When no traversable route exists the path is nil and
// the cost is UnreachableCost.
func (pf *PathFinder) FindPath(start, goal Position) ([]Position, int) {
	if start == goal {
		return []Position{}, 0
	}
	if !pf.grid.IsTraversable(start) || !pf.grid.IsTraversable(goal) {
		return nil, UnreachableCost
	}

	size := pf.grid.Size()
	total := size * size

	gScore := make([]int, total)
	for i := range gScore {
		gScore[i] = UnreachableCost
	}
	cameFrom := make([]int, total)
	for i := range cameFrom {
		cameFrom[i] = -1
	}

	startIdx := start.Y*size + start.X
	goalIdx := goal.Y*size + goal.X
	gScore[startIdx] = 0

	open := &nodeHeap{{pos: start, g: 0, f: pf.heuristic(start, goal)}}
	heap.Init(open)
	seq := 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		idx := current.pos.Y*size + current.pos.X

		// Skip stale queue entries superseded by a better route.
		if current.g > gScore[idx] {
			continue
		}
		if idx == goalIdx {
			return pf.reconstructPath(cameFrom, size, startIdx, goalIdx), gScore[goalIdx]
		}

		for _, d := range neighborOffsets {
			next := Position{X: current.pos.X + d.X, Y: current.pos.Y + d.Y}
			if !pf.grid.IsTraversable(next) {
				continue
			}

			nextIdx := next.Y*size + next.X
			tentative := current.g + pf.grid.MovementCost(next)

			// A finalized node is reopened only via a strictly better g.
			if tentative >= gScore[nextIdx] {
				continue
			}

			gScore[nextIdx] = tentative
			cameFrom[nextIdx] = idx
			seq++
			heap.Push(open, &searchNode{
				pos: next,
				g:   tentative,
				f:   tentative + pf.heuristic(next, goal),
				seq: seq,
			})
		}
	}

	return nil, UnreachableCost
}

// reconstructPath walks the cameFrom chain back from the goal and returns
// the path in travel order, excluding the start cell.
func (pf *PathFinder) reconstructPath(cameFrom []int, size, startIdx, goalIdx int) []Position {
	var path []Position
	for idx := goalIdx; idx != startIdx; idx = cameFrom[idx] {
		path = append(path, Position{X: idx % size, Y: idx / size})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
