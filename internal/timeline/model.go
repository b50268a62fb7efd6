// Package timeline maps the heterogeneous tree sequence onto a single time
// axis. Anchor trees occupy reduced, non-scrubbable slots; transition runs
// occupy one unit per interpolation step.
package timeline

import (
	"log/slog"
	"time"

	"github.com/brancharchitect/phylomovie/internal/movie"
)

// Unit is the timeline width of one interpolation step.
const Unit = time.Second

// AnchorMult scales the slot width of anchor segments.
const AnchorMult = 0.5

// AnchorDuration is the slot width of an anchor segment.
const AnchorDuration = time.Duration(float64(Unit) * AnchorMult)

// SegmentKind discriminates anchor and transition segments.
type SegmentKind int

const (
	SegmentAnchor SegmentKind = iota
	SegmentTransition
)

// Step is one interpolated position inside a transition segment.
type Step struct {
	OriginalIndex int // global tree index
	LocalStep     int // 0-based step within the segment
}

// Segment is a contiguous run of positions on the timeline. Anchor
// segments hold exactly one position; transition segments hold the
// interpolation steps of one pair.
type Segment struct {
	Kind        SegmentKind
	Index       int
	Name        string // anchor display name
	AnchorIndex int    // global position of the anchor tree
	PairKey     string
	Split       []int
	Steps       []Step
	// SubtreeMoves counts the leaf indices in motion across the segment;
	// used only for heat coloring of the scrubber.
	SubtreeMoves int
	Duration     time.Duration
}

// FirstTree returns the first global tree index covered by the segment.
func (s *Segment) FirstTree() int {
	if s.Kind == SegmentAnchor {
		return s.AnchorIndex
	}
	if len(s.Steps) > 0 {
		return s.Steps[0].OriginalIndex
	}
	return -1
}

// TreeCount returns the number of positions in the segment.
func (s *Segment) TreeCount() int {
	if s.Kind == SegmentAnchor {
		return 1
	}
	return len(s.Steps)
}

// Contains reports whether the segment covers global position idx.
func (s *Segment) Contains(idx int) bool {
	if s.Kind == SegmentAnchor {
		return s.AnchorIndex == idx
	}
	for _, st := range s.Steps {
		if st.OriginalIndex == idx {
			return true
		}
	}
	return false
}

// Model is the ordered segment list with precomputed durations. Immutable
// after Build.
type Model struct {
	segments   []Segment
	cumulative []time.Duration
	total      time.Duration

	minMoves int
	maxMoves int

	segmentOf map[int]int // global tree index -> segment index
	localOf   map[int]int // global tree index -> local step (transitions)
}

// Build constructs the timeline from the split-change timeline events
// with the default step width.
func Build(events []movie.TimelineEvent, metadata []movie.TreeMetadata, solutions map[string]movie.PairSolution) *Model {
	return BuildWithUnit(events, metadata, solutions, Unit)
}

// BuildWithUnit constructs the timeline with a caller-chosen step width;
// anchors still occupy AnchorMult of one step. A non-positive unit falls
// back to the default. Events referring to positions outside [0, n-1]
// are skipped with a warning; positions already claimed by an anchor are
// treated as an authoring error and dropped from the transition run.
func BuildWithUnit(events []movie.TimelineEvent, metadata []movie.TreeMetadata, solutions map[string]movie.PairSolution, unit time.Duration) *Model {
	if unit <= 0 {
		unit = Unit
	}
	anchorDur := time.Duration(float64(unit) * AnchorMult)
	n := len(metadata)
	m := &Model{
		segmentOf: make(map[int]int),
		localOf:   make(map[int]int),
	}

	anchorAt := make(map[int]bool, n)
	for i := range metadata {
		if i == 0 || metadata[i].Phase.IsAnchor() {
			anchorAt[i] = true
		}
	}

	for _, ev := range events {
		switch ev.Type {
		case movie.EventOriginal:
			if ev.GlobalIndex < 0 || ev.GlobalIndex >= n {
				slog.Warn("timeline event out of range, skipping",
					"type", ev.Type, "global_index", ev.GlobalIndex, "trees", n)
				continue
			}
			if _, claimed := m.segmentOf[ev.GlobalIndex]; claimed {
				slog.Warn("duplicate anchor position in timeline, skipping",
					"global_index", ev.GlobalIndex)
				continue
			}
			seg := Segment{
				Kind:        SegmentAnchor,
				Index:       len(m.segments),
				Name:        ev.Name,
				AnchorIndex: ev.GlobalIndex,
				Duration:    anchorDur,
			}
			m.segmentOf[ev.GlobalIndex] = seg.Index
			m.segments = append(m.segments, seg)

		case movie.EventSplitEvent:
			lo, hi := ev.StepRangeGlobal[0], ev.StepRangeGlobal[1]
			if lo < 0 || hi >= n || lo > hi {
				slog.Warn("timeline event out of range, skipping",
					"type", ev.Type, "pair_key", ev.PairKey, "range", ev.StepRangeGlobal, "trees", n)
				continue
			}
			seg := Segment{
				Kind:    SegmentTransition,
				Index:   len(m.segments),
				PairKey: ev.PairKey,
				Split:   ev.Split,
			}
			for pos := lo; pos <= hi; pos++ {
				if anchorAt[pos] {
					slog.Warn("transition overlaps anchor position, skipping duplicate",
						"pair_key", ev.PairKey, "position", pos)
					continue
				}
				if _, claimed := m.segmentOf[pos]; claimed {
					slog.Warn("transition overlaps earlier segment, skipping duplicate",
						"pair_key", ev.PairKey, "position", pos)
					continue
				}
				m.segmentOf[pos] = seg.Index
				m.localOf[pos] = len(seg.Steps)
				seg.Steps = append(seg.Steps, Step{OriginalIndex: pos, LocalStep: len(seg.Steps)})
			}
			if len(seg.Steps) == 0 {
				// An empty run contributes no segment; the adjacent anchors
				// sit back to back on the axis.
				continue
			}
			seg.Duration = time.Duration(len(seg.Steps)) * unit
			seg.SubtreeMoves = subtreeMoveCount(solutions, ev.PairKey, ev.Split)
			m.segments = append(m.segments, seg)

		default:
			slog.Warn("unknown timeline event type, skipping", "type", ev.Type)
		}
	}

	// Re-number after skips so Segment.Index matches list position.
	for i := range m.segments {
		m.segments[i].Index = i
		if m.segments[i].Kind == SegmentAnchor {
			m.segmentOf[m.segments[i].AnchorIndex] = i
		} else {
			for _, st := range m.segments[i].Steps {
				m.segmentOf[st.OriginalIndex] = i
			}
		}
	}

	m.cumulative = make([]time.Duration, len(m.segments))
	for i := range m.segments {
		m.total += m.segments[i].Duration
		m.cumulative[i] = m.total
	}

	m.minMoves, m.maxMoves = -1, -1
	for i := range m.segments {
		if m.segments[i].Kind != SegmentTransition {
			continue
		}
		mv := m.segments[i].SubtreeMoves
		if m.minMoves < 0 || mv < m.minMoves {
			m.minMoves = mv
		}
		if mv > m.maxMoves {
			m.maxMoves = mv
		}
	}
	if m.minMoves < 0 {
		m.minMoves, m.maxMoves = 0, 0
	}
	return m
}

// subtreeMoveCount counts the leaf indices moved by the pair's solution for
// the given split, falling back to the split size when the lookup misses.
func subtreeMoveCount(solutions map[string]movie.PairSolution, pairKey string, split []int) int {
	sol, ok := solutions[pairKey]
	if !ok {
		return len(split)
	}
	steps, ok := sol.JumpingSubtreeSolutions[movie.EdgeKey(split)]
	if !ok {
		return len(split)
	}
	count := 0
	for _, groups := range steps {
		for _, group := range groups {
			count += len(group)
		}
	}
	return count
}

// Segments returns the ordered segment list. Callers must not mutate it.
func (m *Model) Segments() []Segment { return m.segments }

// SegmentCount returns the number of segments.
func (m *Model) SegmentCount() int { return len(m.segments) }

// Total returns the total timeline duration.
func (m *Model) Total() time.Duration { return m.total }

// SegmentStart returns the start offset of segment i on the time axis.
func (m *Model) SegmentStart(i int) time.Duration {
	if i <= 0 || i > len(m.segments) {
		return 0
	}
	return m.cumulative[i-1]
}

// SegmentEnd returns the exclusive end offset of segment i.
func (m *Model) SegmentEnd(i int) time.Duration {
	if i < 0 || i >= len(m.segments) {
		return m.total
	}
	return m.cumulative[i]
}

// MoveScale returns the {min, max} subtree-move counts over transition
// segments, for display coloring.
func (m *Model) MoveScale() (min, max int) { return m.minMoves, m.maxMoves }

// SegmentIndexOf returns the index of the segment containing global
// position idx, or -1 when no segment covers it.
func (m *Model) SegmentIndexOf(idx int) int {
	if si, ok := m.segmentOf[idx]; ok {
		return si
	}
	return -1
}

// LocalStepOf returns the 0-based local step of position idx inside its
// transition segment, or 0 for anchors and unknown positions.
func (m *Model) LocalStepOf(idx int) int { return m.localOf[idx] }
