package timeline

import (
	"math"
	"sort"
	"time"
)

// Bias breaks ties when a time lands exactly on a segment boundary.
type Bias int

const (
	BiasNearest Bias = iota
	BiasForward
	BiasBackward
)

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ProgressToTime converts a [0,1] progress value to a timeline offset.
func ProgressToTime(p float64, total time.Duration) time.Duration {
	return time.Duration(Clamp01(p) * float64(total))
}

// TimeToProgress converts a timeline offset to a [0,1] progress value.
// A zero total yields 0.
func TimeToProgress(t, total time.Duration) float64 {
	if total == 0 {
		return 0
	}
	return Clamp01(float64(t) / float64(total))
}

// SegmentPos locates a tree index on the time axis.
type SegmentPos struct {
	SegmentIndex  int
	TimeInSegment time.Duration
	Segment       *Segment
}

// FindSegmentForTreeIndex locates the segment containing global position
// idx. Anchor positions snap to the center of their reduced slot;
// transition positions report the start of their step slot.
func FindSegmentForTreeIndex(m *Model, idx int) (SegmentPos, bool) {
	si := m.SegmentIndexOf(idx)
	if si < 0 {
		return SegmentPos{SegmentIndex: -1}, false
	}
	seg := &m.segments[si]
	pos := SegmentPos{SegmentIndex: si, Segment: seg}
	if seg.Kind == SegmentAnchor || len(seg.Steps) == 0 {
		pos.TimeInSegment = seg.Duration / 2
	} else {
		stepWidth := seg.Duration / time.Duration(len(seg.Steps))
		pos.TimeInSegment = time.Duration(m.LocalStepOf(idx)) * stepWidth
	}
	return pos, true
}

// TimeForTreeIndex returns the absolute timeline offset of position idx,
// or -1 when no segment covers it. For transition positions this is the
// exact inverse of TargetTreeForTime's step rounding, so resolving the
// returned offset lands back on idx.
func TimeForTreeIndex(m *Model, idx int) time.Duration {
	si := m.SegmentIndexOf(idx)
	if si < 0 {
		return -1
	}
	seg := &m.segments[si]
	start := m.SegmentStart(si)
	if seg.Kind == SegmentAnchor || len(seg.Steps) == 0 {
		return start + seg.Duration/2
	}
	// Sample the middle of the step's slot; this stays strictly inside the
	// segment window and rounds back to the same step.
	local := (float64(m.LocalStepOf(idx)) + 0.5) / float64(len(seg.Steps))
	return start + time.Duration(local*float64(seg.Duration))
}

// Target is the tree position resolved for a timeline offset.
type Target struct {
	TreeIndex       int
	SegmentIndex    int
	SegmentProgress float64
}

// SegmentIndexForTime returns the segment covering the timeline offset t,
// or -1 for an empty model. A boundary time belongs to the following
// segment.
func SegmentIndexForTime(m *Model, t time.Duration) int {
	if len(m.segments) == 0 {
		return -1
	}
	si := sort.Search(len(m.cumulative), func(i int) bool { return m.cumulative[i] > t })
	if si == len(m.segments) {
		si = len(m.segments) - 1
	}
	return si
}

// TargetTreeForTime resolves the timeline offset t to a tree position.
// Anchor segments resolve to their anchor with progress 0.5; transition
// segments round the local progress to the nearest step. The bias breaks
// ties when t falls exactly on a segment boundary.
func TargetTreeForTime(m *Model, t time.Duration, bias Bias) (Target, bool) {
	if len(m.segments) == 0 || m.total == 0 {
		return Target{TreeIndex: -1, SegmentIndex: -1}, false
	}
	if t < 0 {
		t = 0
	}
	if t > m.total {
		t = m.total
	}

	si := SegmentIndexForTime(m, t)
	if bias == BiasBackward && si > 0 && m.SegmentStart(si) == t {
		si--
	}

	seg := &m.segments[si]
	if seg.Kind == SegmentAnchor || len(seg.Steps) == 0 {
		return Target{TreeIndex: seg.AnchorIndex, SegmentIndex: si, SegmentProgress: 0.5}, true
	}

	segStart := m.SegmentStart(si)
	local := Clamp01(float64(t-segStart) / float64(seg.Duration))
	stepIndex := 0
	if len(seg.Steps) > 1 {
		stepIndex = int(math.Round(local * float64(len(seg.Steps)-1)))
		if stepIndex < 0 {
			stepIndex = 0
		}
		if stepIndex > len(seg.Steps)-1 {
			stepIndex = len(seg.Steps) - 1
		}
	}
	return Target{
		TreeIndex:       seg.Steps[stepIndex].OriginalIndex,
		SegmentIndex:    si,
		SegmentProgress: local,
	}, true
}

// TreePositionInSegment returns the 1-based position of idx inside the
// segment and the segment's tree count, for overlay counters.
func TreePositionInSegment(seg *Segment, idx int) (treeInSegment, treesInSegment int) {
	if seg == nil {
		return 0, 0
	}
	if seg.Kind == SegmentAnchor {
		if seg.AnchorIndex == idx {
			return 1, 1
		}
		return 0, 1
	}
	for i, st := range seg.Steps {
		if st.OriginalIndex == idx {
			return i + 1, len(seg.Steps)
		}
	}
	return 0, len(seg.Steps)
}
