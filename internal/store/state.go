package store

import (
	"maps"

	"github.com/brancharchitect/phylomovie/internal/highlight"
)

// Direction describes how the current position was reached.
type Direction string

const (
	// DirectionForward means the position advanced by one or during playback.
	DirectionForward Direction = "forward"
	// DirectionBackward means the position moved back.
	DirectionBackward Direction = "backward"
	// DirectionJump means the position changed by more than one step.
	DirectionJump Direction = "jump"
	// DirectionAuto asks GoToPosition to derive the direction from the
	// distance between the old and new index.
	DirectionAuto Direction = ""
)

// TimelineCounters are informational values shown by overlays. They never
// feed back into position computation.
type TimelineCounters struct {
	SegmentIndex     int
	TotalSegments    int
	TreeInSegment    int
	TreesInSegment   int
	TimelineProgress float64
}

// State is the full observable state. Snapshots handed to subscribers are
// value copies; maps are cloned so subscribers cannot mutate shared state.
type State struct {
	FileName  string
	TreeCount int

	CurrentTreeIndex  int
	Direction         Direction
	AnimationProgress float64
	TimelineProgress  float64
	SegmentProgress   float64

	Playing        bool
	AnimationSpeed float64

	Counters TimelineCounters

	Monophyletic          bool
	PivotEdgesEnabled     bool
	MarkedSubtreesEnabled bool
	Dimming               bool
	Trails                bool
	CameraOrthographic    bool

	MSAWindowSize int
	MSAStepSize   int

	ColorCategories map[string]string
	ColorRevision   int

	Highlight highlight.State
}

func (s State) clone() State {
	out := s
	out.ColorCategories = maps.Clone(s.ColorCategories)
	return out
}
