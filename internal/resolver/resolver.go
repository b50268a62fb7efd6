// Package resolver maps positions in the global tree sequence onto the
// distance series and the highlight series. All lookups are pure functions
// of the construction inputs; out-of-range positions yield the documented
// defaults instead of panicking.
package resolver

import (
	"sort"

	"github.com/brancharchitect/phylomovie/internal/movie"
)

// Resolver is built once per payload and discarded on the next initialize.
type Resolver struct {
	metadata  []movie.TreeMetadata
	distances []float64
	solutions map[string]movie.PairSolution
	ranges    []movie.PairRange

	anchors       []int       // positions where IsAnchor holds, ascending
	anchorOrdinal map[int]int // position -> ordinal in anchors
	perPair       map[string]int
}

// New builds a resolver from per-position metadata, the distance series,
// the pair solutions, and optional per-pair range hints.
func New(metadata []movie.TreeMetadata, distances []float64, solutions map[string]movie.PairSolution, ranges []movie.PairRange) *Resolver {
	r := &Resolver{
		metadata:      metadata,
		distances:     distances,
		solutions:     solutions,
		ranges:        ranges,
		anchorOrdinal: make(map[int]int),
		perPair:       make(map[string]int),
	}
	for i := range metadata {
		if r.IsAnchor(i) {
			r.anchorOrdinal[i] = len(r.anchors)
			r.anchors = append(r.anchors, i)
		} else if key := metadata[i].PairKey; key != "" {
			r.perPair[key]++
		}
	}
	return r
}

// TreeCount returns the number of positions covered by the resolver.
func (r *Resolver) TreeCount() int { return len(r.metadata) }

// IsAnchor reports whether position i holds an anchor tree. Position 0 is
// always an anchor, overriding missing or inconsistent metadata.
func (r *Resolver) IsAnchor(i int) bool {
	if i < 0 || i >= len(r.metadata) {
		return false
	}
	return i == 0 || r.metadata[i].Phase.IsAnchor()
}

// FullTreeIndices returns the anchor positions in ascending order. The
// slice is cached; callers must not mutate it.
func (r *Resolver) FullTreeIndices() []int { return r.anchors }

// FullTreeIndex returns the ordinal of anchor position i among all
// anchors, or -1 when i is not an anchor.
func (r *Resolver) FullTreeIndex(i int) int {
	if ord, ok := r.anchorOrdinal[i]; ok {
		return ord
	}
	return -1
}

// DistanceIndex returns the fractional index of position i into the
// distance series. Anchors map to their source-pair integer index;
// interpolated positions inside pair k map to k + (step-1)/stepCount,
// snapping to the integer k when the pair has no true interpolation.
func (r *Resolver) DistanceIndex(i int) float64 {
	if len(r.metadata) == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= len(r.metadata) {
		i = len(r.metadata) - 1
	}

	md := r.metadata[i]
	if r.IsAnchor(i) {
		if k := movie.PairIndex(md.PairKey); k >= 0 {
			return float64(k)
		}
		return float64(r.priorAnchorOrdinal(i))
	}

	if k := movie.PairIndex(md.PairKey); k >= 0 {
		steps := r.TreesPerPair(md.PairKey)
		if !r.HasInterpolation(md.PairKey) || steps == 0 {
			return float64(k)
		}
		step := md.StepInPair
		if step < 1 {
			step = 1
		}
		if step > steps {
			step = steps
		}
		return float64(k) + float64(step-1)/float64(steps)
	}

	// Sparse metadata: fall back to the last anchor at or before i.
	return float64(r.priorAnchorOrdinal(i))
}

// HighlightingIndex returns the ordinal of the pair governing highlighting
// at position i, or -1 when none applies.
func (r *Resolver) HighlightingIndex(i int) int {
	if i < 0 || i >= len(r.metadata) {
		return -1
	}
	md := r.metadata[i]
	if md.PairKey != "" {
		return movie.PairIndex(md.PairKey)
	}
	if ord, ok := r.anchorOrdinal[i]; ok {
		return ord
	}
	return r.priorAnchorOrdinal(i)
}

// TreesPerPair returns the number of interpolated positions belonging to
// the pair; zero when the pair has no interpolation steps.
func (r *Resolver) TreesPerPair(pairKey string) int { return r.perPair[pairKey] }

// HasInterpolation reports whether the pair carries a non-empty jumping
// subtree solutions map. A pair with an empty map is treated as zero-length
// even when metadata lists interpolated phases for it.
func (r *Resolver) HasInterpolation(pairKey string) bool {
	sol, ok := r.solutions[pairKey]
	return ok && sol.HasInterpolation()
}

// priorAnchorOrdinal returns the ordinal of the last anchor at or before
// position i, or -1 when there is none.
func (r *Resolver) priorAnchorOrdinal(i int) int {
	// anchors is ascending; find the last entry <= i.
	n := sort.Search(len(r.anchors), func(k int) bool { return r.anchors[k] > i })
	return n - 1
}
