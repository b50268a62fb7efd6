// Package highlight computes which subtrees are marked and which pivot
// edge is active at a given tree position, and turns that state into
// element colors for the renderer.
package highlight

import (
	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/resolver"
)

// State is the highlight state at one tree position.
type State struct {
	// Marked holds groups of leaf indices; each group is a subtree in
	// motion at this step.
	Marked [][]int
	// Pivot is the split of the edge currently being acted on; empty when
	// no pivot is active.
	Pivot []int
}

// Empty reports whether the state highlights nothing.
func (s State) Empty() bool { return len(s.Marked) == 0 && len(s.Pivot) == 0 }

// Engine resolves highlight state from the pair solutions, the pivot
// edge track, and the per-position subtree track. Immutable after
// construction; discarded on re-initialize.
type Engine struct {
	res          *resolver.Resolver
	metadata     []movie.TreeMetadata
	solutions    map[string]movie.PairSolution
	pivotTrack   [][]int
	subtreeTrack [][][]int
}

// NewEngine builds a highlight engine over the resolver's sequence.
// subtreeTrack may be nil; it only backs up the pair-solutions lookup.
func NewEngine(res *resolver.Resolver, metadata []movie.TreeMetadata, solutions map[string]movie.PairSolution, pivotTrack [][]int, subtreeTrack [][][]int) *Engine {
	return &Engine{
		res:          res,
		metadata:     metadata,
		solutions:    solutions,
		pivotTrack:   pivotTrack,
		subtreeTrack: subtreeTrack,
	}
}

// PivotEdge returns the active pivot edge at position i. Anchors and
// positions without a tracked edge yield an empty slice.
func (e *Engine) PivotEdge(i int) []int {
	if i < 0 || i >= len(e.pivotTrack) {
		return nil
	}
	if e.res.IsAnchor(i) {
		return nil
	}
	return e.pivotTrack[i]
}

// MarkedSubtrees returns the groups of leaf indices marked at position i.
// When the pair-solutions lookup misses at any stage, the per-position
// subtree track fills in; a miss there too yields an empty result, never
// an error.
func (e *Engine) MarkedSubtrees(i int) [][]int {
	if i < 0 || i >= len(e.metadata) || e.res.IsAnchor(i) {
		return nil
	}
	if groups := e.fromSolutions(i); groups != nil {
		return groups
	}
	return e.tracked(i)
}

// fromSolutions resolves the marked groups through the active pivot edge
// and the pair's solution map; any miss returns nil.
func (e *Engine) fromSolutions(i int) [][]int {
	pivot := e.PivotEdge(i)
	if len(pivot) == 0 {
		return nil
	}
	md := e.metadata[i]
	if md.PairKey == "" {
		return nil
	}
	sol, ok := e.solutions[md.PairKey]
	if !ok {
		return nil
	}
	steps, ok := sol.JumpingSubtreeSolutions[movie.EdgeKey(pivot)]
	if !ok {
		return nil
	}

	// When the solution carries one entry per local step, select the entry
	// for this position; otherwise flatten one level and mark everything.
	if n := e.res.TreesPerPair(md.PairKey); n > 0 && len(steps) == n {
		step := md.StepInPair
		if step < 1 {
			step = 1
		}
		if step > len(steps) {
			step = len(steps)
		}
		return steps[step-1]
	}
	var all [][]int
	for _, groups := range steps {
		all = append(all, groups...)
	}
	return all
}

// tracked returns the subtree-track groups for position i, nil when the
// track is absent or empty there.
func (e *Engine) tracked(i int) [][]int {
	if i >= len(e.subtreeTrack) || len(e.subtreeTrack[i]) == 0 {
		return nil
	}
	return e.subtreeTrack[i]
}

// StateAt bundles MarkedSubtrees and PivotEdge for position i.
func (e *Engine) StateAt(i int) State {
	return State{Marked: e.MarkedSubtrees(i), Pivot: e.PivotEdge(i)}
}
