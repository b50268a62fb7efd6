package store

import (
	"errors"
	"testing"
	"time"

	"github.com/brancharchitect/phylomovie/internal/movie"
)

// testPayload is two anchors with a three-step transition between them:
// positions 0 and 4 are anchors, positions 1..3 belong to pair_0_1.
func testPayload() *movie.Payload {
	leaf := func(name string) *movie.Node { return &movie.Node{Name: name} }
	tree := &movie.Node{Children: []*movie.Node{leaf("A"), leaf("B"), leaf("C")}}

	metadata := []movie.TreeMetadata{
		{Phase: movie.PhaseOriginal, TreeName: "T1", GlobalTreeIndex: 0},
		{Phase: movie.PhaseDown, PairKey: "pair_0_1", StepInPair: 1},
		{Phase: movie.PhaseCollapse, PairKey: "pair_0_1", StepInPair: 2},
		{Phase: movie.PhaseSnap, PairKey: "pair_0_1", StepInPair: 3},
		{Phase: movie.PhaseOriginal, TreeName: "T2", GlobalTreeIndex: 1},
	}

	solutions := map[string]movie.PairSolution{
		"pair_0_1": {
			JumpingSubtreeSolutions: map[string][][][]int{
				"[1, 2]": {{{0}}, {{1}}, {{2}}},
			},
			PivotEdgeSequence: [][]int{{1, 2}, {1, 2}, {1, 2}},
		},
	}

	events := []movie.TimelineEvent{
		{Type: movie.EventOriginal, GlobalIndex: 0, TreeIndex: 0, Name: "T1"},
		{
			Type:            movie.EventSplitEvent,
			PairKey:         "pair_0_1",
			Split:           []int{1, 2},
			StepRangeGlobal: [2]int{1, 3},
			StepRangeLocal:  [2]int{1, 3},
		},
		{Type: movie.EventOriginal, GlobalIndex: 4, TreeIndex: 1, Name: "T2"},
	}

	trees := make([]*movie.Node, 5)
	for i := range trees {
		trees[i] = tree
	}
	return &movie.Payload{
		Trees:         trees,
		Metadata:      metadata,
		PairSolutions: solutions,
		PivotEdgeTracking: [][]int{
			nil, {1, 2}, {1, 2}, {1, 2}, nil,
		},
		Timeline: events,
		MSA:      movie.MSA{WindowSize: 50, StepSize: 10},
		FileName: "small.json",
	}
}

func newInitialized(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.Initialize(testPayload())
	return s
}

func TestInitializeResetsPosition(t *testing.T) {
	s := newInitialized(t)
	st := s.State()
	if st.TreeCount != 5 {
		t.Fatalf("TreeCount = %d, want 5", st.TreeCount)
	}
	if st.CurrentTreeIndex != 0 || st.AnimationProgress != 0 || st.Playing {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if st.Counters.TotalSegments != 3 {
		t.Fatalf("TotalSegments = %d, want 3", st.Counters.TotalSegments)
	}
	if st.MSAWindowSize != 50 || st.MSAStepSize != 10 {
		t.Fatalf("MSA window = %d/%d, want 50/10", st.MSAWindowSize, st.MSAStepSize)
	}
}

func TestInitializeEmptyPayload(t *testing.T) {
	s := New()
	s.Initialize(&movie.Payload{})
	st := s.State()
	if st.TreeCount != 0 || st.Counters.TotalSegments != 0 {
		t.Fatalf("empty payload: %+v", st)
	}
	// Navigation on an empty store is a no-op, not a panic.
	s.GoToPosition(3, DirectionAuto)
	if s.State().CurrentTreeIndex != 0 {
		t.Fatal("empty store moved")
	}
}

func TestGoToPositionClampAndNoop(t *testing.T) {
	s := newInitialized(t)

	var changes int
	unsub := s.Subscribe(func(st, prev State) { changes++ })
	defer unsub()

	s.GoToPosition(99, DirectionAuto)
	st := s.State()
	if st.CurrentTreeIndex != 4 {
		t.Fatalf("CurrentTreeIndex = %d, want 4 (clamped)", st.CurrentTreeIndex)
	}
	if st.Direction != DirectionJump {
		t.Fatalf("Direction = %q, want jump", st.Direction)
	}
	if st.AnimationProgress != 1 {
		t.Fatalf("AnimationProgress = %v, want 1", st.AnimationProgress)
	}

	s.GoToPosition(4, DirectionAuto) // unchanged: no notification
	if changes != 1 {
		t.Fatalf("notified %d times, want 1", changes)
	}
}

func TestGoToPositionDerivesDirection(t *testing.T) {
	s := newInitialized(t)
	s.GoToPosition(1, DirectionAuto)
	if got := s.State().Direction; got != DirectionForward {
		t.Fatalf("Direction = %q, want forward", got)
	}
	s.GoToPosition(0, DirectionAuto)
	if got := s.State().Direction; got != DirectionBackward {
		t.Fatalf("Direction = %q, want backward", got)
	}
	s.GoToPosition(3, DirectionForward)
	if got := s.State().Direction; got != DirectionForward {
		t.Fatalf("explicit direction overridden: %q", got)
	}
}

func TestGoToPositionRefreshesHighlight(t *testing.T) {
	s := newInitialized(t)
	if hl := s.State().Highlight; !hl.Empty() {
		t.Fatalf("anchor position has highlight: %+v", hl)
	}
	s.GoToPosition(2, DirectionAuto)
	hl := s.State().Highlight
	if len(hl.Pivot) != 2 {
		t.Fatalf("Pivot = %v, want [1 2]", hl.Pivot)
	}
	if len(hl.Marked) == 0 {
		t.Fatal("no marked subtrees at interpolated position")
	}
}

func TestSubscriberSeesOrderedPairs(t *testing.T) {
	s := newInitialized(t)
	type change struct{ from, to int }
	var seen []change
	unsub := s.Subscribe(func(st, prev State) {
		seen = append(seen, change{prev.CurrentTreeIndex, st.CurrentTreeIndex})
	})
	defer unsub()

	s.GoToPosition(2, DirectionAuto)
	s.GoToPosition(3, DirectionAuto)
	s.GoToPosition(1, DirectionAuto)

	want := []change{{0, 2}, {2, 3}, {3, 1}}
	if len(seen) != len(want) {
		t.Fatalf("saw %d changes, want %d", len(seen), len(want))
	}
	for i, w := range want {
		if seen[i] != w {
			t.Fatalf("change %d = %+v, want %+v", i, seen[i], w)
		}
	}
}

func TestReentrantActionQueuesNotification(t *testing.T) {
	s := newInitialized(t)
	var seen []int
	unsub := s.Subscribe(func(st, prev State) {
		seen = append(seen, st.CurrentTreeIndex)
		// Redirect position 1 to position 2 from inside the callback.
		if st.CurrentTreeIndex == 1 {
			s.GoToPosition(2, DirectionAuto)
		}
	})
	defer unsub()

	s.GoToPosition(1, DirectionAuto)
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("seen = %v, want [1 2]", seen)
	}
	if s.State().CurrentTreeIndex != 2 {
		t.Fatalf("final index = %d, want 2", s.State().CurrentTreeIndex)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := newInitialized(t)
	calls := 0
	unsub := s.Subscribe(func(st, prev State) { calls++ })
	s.GoToPosition(1, DirectionAuto)
	unsub()
	s.GoToPosition(2, DirectionAuto)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPlaybackTicks(t *testing.T) {
	s := newInitialized(t)
	start := time.Unix(1_700_000_000, 0)
	s.Play(start)
	if !s.State().Playing {
		t.Fatal("not playing after Play")
	}

	// N-1 = 4, speed 1: full playback takes 4 seconds.
	s.UpdateAnimationProgress(start.Add(2 * time.Second))
	st := s.State()
	if st.AnimationProgress != 0.5 {
		t.Fatalf("AnimationProgress = %v, want 0.5", st.AnimationProgress)
	}
	if st.CurrentTreeIndex != 2 {
		t.Fatalf("CurrentTreeIndex = %d, want 2", st.CurrentTreeIndex)
	}

	s.UpdateAnimationProgress(start.Add(5 * time.Second))
	st = s.State()
	if st.Playing {
		t.Fatal("still playing past the end")
	}
	if st.AnimationProgress != 1 || st.CurrentTreeIndex != 4 {
		t.Fatalf("end state: progress %v index %d", st.AnimationProgress, st.CurrentTreeIndex)
	}
}

func TestPlayResumesFromCurrentProgress(t *testing.T) {
	s := newInitialized(t)
	s.GoToPosition(2, DirectionAuto) // progress 0.5

	start := time.Unix(1_700_000_000, 0)
	s.Play(start)
	s.UpdateAnimationProgress(start.Add(time.Second))
	st := s.State()
	if st.AnimationProgress != 0.75 {
		t.Fatalf("AnimationProgress = %v, want 0.75 (resumed from 0.5)", st.AnimationProgress)
	}
	if st.CurrentTreeIndex != 3 {
		t.Fatalf("CurrentTreeIndex = %d, want 3", st.CurrentTreeIndex)
	}
}

func TestStopRetainsPosition(t *testing.T) {
	s := newInitialized(t)
	start := time.Unix(1_700_000_000, 0)
	s.Play(start)
	s.UpdateAnimationProgress(start.Add(time.Second))
	s.Stop()
	st := s.State()
	if st.Playing {
		t.Fatal("still playing after Stop")
	}
	if st.AnimationProgress != 0.25 {
		t.Fatalf("AnimationProgress = %v, want 0.25", st.AnimationProgress)
	}
	// Ticks after stop are ignored.
	s.UpdateAnimationProgress(start.Add(3 * time.Second))
	if got := s.State().AnimationProgress; got != 0.25 {
		t.Fatalf("stopped store advanced to %v", got)
	}
}

func TestSetAnimationSpeedRebasesWhilePlaying(t *testing.T) {
	s := newInitialized(t)
	start := time.Unix(1_700_000_000, 0)
	s.Play(start)
	s.UpdateAnimationProgress(start.Add(time.Second)) // 0.25

	s.SetAnimationSpeed(2, start.Add(time.Second))
	// One more second at double speed covers another 0.5.
	s.UpdateAnimationProgress(start.Add(2 * time.Second))
	if got := s.State().AnimationProgress; got != 0.75 {
		t.Fatalf("AnimationProgress = %v, want 0.75", got)
	}
}

func TestSetTimelineProgress(t *testing.T) {
	s := newInitialized(t)
	s.SetTimelineProgress(0.6, 3, 0.4)
	st := s.State()
	if st.TimelineProgress != 0.6 || st.CurrentTreeIndex != 3 || st.SegmentProgress != 0.4 {
		t.Fatalf("state after commit: %+v", st)
	}
	if st.Playing {
		t.Fatal("scrub commit started playback")
	}

	// Negative index and segment progress leave those fields alone.
	s.SetTimelineProgress(0.9, -1, -1)
	st = s.State()
	if st.CurrentTreeIndex != 3 || st.SegmentProgress != 0.4 {
		t.Fatalf("sentinel arguments mutated state: %+v", st)
	}
	if st.TimelineProgress != 0.9 {
		t.Fatalf("TimelineProgress = %v, want 0.9", st.TimelineProgress)
	}
}

func TestToggles(t *testing.T) {
	s := newInitialized(t)
	st := s.State()
	if !st.PivotEdgesEnabled || !st.MarkedSubtreesEnabled || !st.Dimming {
		t.Fatalf("defaults: %+v", st)
	}
	s.TogglePivotEdges()
	s.ToggleMarkedSubtrees()
	s.ToggleDimming()
	s.ToggleMonophyletic()
	st = s.State()
	if st.PivotEdgesEnabled || st.MarkedSubtreesEnabled || st.Dimming || !st.Monophyletic {
		t.Fatalf("after toggles: %+v", st)
	}
}

type memPersister struct {
	saved   map[string]string
	loadErr error
}

func (m *memPersister) SaveColorCategories(c map[string]string) error {
	m.saved = c
	return nil
}

func (m *memPersister) LoadColorCategories() (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.saved, nil
}

func TestColorCategoriesPersist(t *testing.T) {
	p := &memPersister{}
	s := New(WithPersister(p))
	s.Initialize(testPayload())

	s.SetColorCategory("Clade A", "#ff0000")
	if p.saved["Clade A"] != "#ff0000" {
		t.Fatalf("persisted = %v", p.saved)
	}
	if s.State().ColorRevision != 1 {
		t.Fatalf("ColorRevision = %d, want 1", s.State().ColorRevision)
	}

	// A fresh store picks the persisted mapping up on Initialize.
	s2 := New(WithPersister(p))
	s2.Initialize(testPayload())
	if got := s2.State().ColorCategories["Clade A"]; got != "#ff0000" {
		t.Fatalf("loaded category = %q", got)
	}
}

func TestPersistErrorsAreSwallowed(t *testing.T) {
	p := &memPersister{loadErr: errors.New("no such file")}
	s := New(WithPersister(p))
	s.Initialize(testPayload())
	if s.State().TreeCount != 5 {
		t.Fatal("load error broke initialization")
	}
}

func TestTimelineUnitOption(t *testing.T) {
	def := New()
	def.Initialize(testPayload())

	st := New(WithTimelineUnit(2 * time.Second))
	st.Initialize(testPayload())

	if got, want := st.Timeline().Total(), 2*def.Timeline().Total(); got != want {
		t.Errorf("Total with 2s unit = %v, want %v", got, want)
	}
}

func TestReset(t *testing.T) {
	s := newInitialized(t)
	s.GoToPosition(3, DirectionAuto)
	s.Reset()
	st := s.State()
	if st.TreeCount != 0 || st.CurrentTreeIndex != 0 {
		t.Fatalf("after reset: %+v", st)
	}
	if s.Resolver() != nil || s.Timeline() != nil || s.Highlight() != nil {
		t.Fatal("derived structures survive reset")
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := newInitialized(t)
	st := s.State()
	st.ColorCategories["hack"] = "#000000"
	if _, ok := s.State().ColorCategories["hack"]; ok {
		t.Fatal("snapshot mutation leaked into store")
	}
}
