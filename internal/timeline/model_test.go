package timeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/brancharchitect/phylomovie/internal/movie"
)

// fixture builds the sequence: anchor 0, pair_0_1 with 15 steps
// (positions 1-15), anchor 16, pair_1_2 with 8 steps (positions 17-24),
// anchor 25.
func fixture() ([]movie.TimelineEvent, []movie.TreeMetadata, map[string]movie.PairSolution) {
	const n = 26
	metadata := make([]movie.TreeMetadata, n)
	for i := range metadata {
		metadata[i] = movie.TreeMetadata{Phase: movie.PhaseDown, GlobalTreeIndex: i}
	}
	for _, a := range []int{0, 16, 25} {
		metadata[a].Phase = movie.PhaseOriginal
	}
	for i := 1; i <= 15; i++ {
		metadata[i].PairKey = "pair_0_1"
		metadata[i].StepInPair = i
	}
	for i := 17; i <= 24; i++ {
		metadata[i].PairKey = "pair_1_2"
		metadata[i].StepInPair = i - 16
	}

	events := []movie.TimelineEvent{
		{Type: movie.EventOriginal, GlobalIndex: 0, TreeIndex: 0, Name: "T0"},
		{Type: movie.EventSplitEvent, PairKey: "pair_0_1", Split: []int{3, 4}, StepRangeGlobal: [2]int{1, 15}, StepRangeLocal: [2]int{1, 15}},
		{Type: movie.EventOriginal, GlobalIndex: 16, TreeIndex: 1, Name: "T1"},
		{Type: movie.EventSplitEvent, PairKey: "pair_1_2", Split: []int{5, 6, 7}, StepRangeGlobal: [2]int{17, 24}, StepRangeLocal: [2]int{1, 8}},
		{Type: movie.EventOriginal, GlobalIndex: 25, TreeIndex: 2, Name: "T2"},
	}

	solutions := map[string]movie.PairSolution{
		"pair_0_1": {JumpingSubtreeSolutions: map[string][][][]int{
			"[3, 4]": {{{5, 6}}, {{7, 8, 9}}},
		}},
		"pair_1_2": {JumpingSubtreeSolutions: map[string][][][]int{
			"[5, 6, 7]": {{{1, 2}, {3}}},
		}},
	}
	return events, metadata, solutions
}

func TestBuildSegments(t *testing.T) {
	events, metadata, solutions := fixture()
	m := Build(events, metadata, solutions)

	if got := m.SegmentCount(); got != 5 {
		t.Fatalf("SegmentCount = %d, want 5", got)
	}
	segs := m.Segments()
	wantKinds := []SegmentKind{SegmentAnchor, SegmentTransition, SegmentAnchor, SegmentTransition, SegmentAnchor}
	for i, k := range wantKinds {
		if segs[i].Kind != k {
			t.Errorf("segment %d kind = %v, want %v", i, segs[i].Kind, k)
		}
		if segs[i].Index != i {
			t.Errorf("segment %d Index = %d", i, segs[i].Index)
		}
	}
	if len(segs[1].Steps) != 15 || len(segs[3].Steps) != 8 {
		t.Errorf("step counts = %d, %d; want 15, 8", len(segs[1].Steps), len(segs[3].Steps))
	}
}

func TestBuildWithUnitScalesDurations(t *testing.T) {
	events, metadata, solutions := fixture()
	unit := 2 * time.Second
	m := BuildWithUnit(events, metadata, solutions, unit)

	segs := m.Segments()
	if got, want := segs[0].Duration, time.Second; got != want {
		t.Errorf("anchor duration = %v, want %v", got, want)
	}
	if got, want := segs[1].Duration, 15*unit; got != want {
		t.Errorf("transition duration = %v, want %v", got, want)
	}
	if got, want := m.Total(), time.Duration(24.5*float64(unit)); got != want {
		t.Errorf("Total = %v, want %v", got, want)
	}

	// Positions inside a transition track the scaled step width.
	pos, ok := FindSegmentForTreeIndex(m, 8)
	if !ok {
		t.Fatal("no segment for tree 8")
	}
	if got, want := pos.TimeInSegment, 7*unit; got != want {
		t.Errorf("tree 8 TimeInSegment = %v, want %v", got, want)
	}

	// Non-positive units keep the default.
	m = BuildWithUnit(events, metadata, solutions, 0)
	if got, want := m.Total(), time.Duration(24.5*float64(Unit)); got != want {
		t.Errorf("Total with zero unit = %v, want %v", got, want)
	}
}

func TestDurationInvariants(t *testing.T) {
	events, metadata, solutions := fixture()
	m := Build(events, metadata, solutions)

	// 0.5 + 15 + 0.5 + 8 + 0.5 units.
	want := time.Duration(24.5 * float64(Unit))
	if m.Total() != want {
		t.Errorf("Total = %v, want %v", m.Total(), want)
	}

	var sum time.Duration
	for _, seg := range m.Segments() {
		sum += seg.Duration
	}
	if sum != m.Total() {
		t.Errorf("sum of durations %v != total %v", sum, m.Total())
	}
	if got := m.SegmentEnd(m.SegmentCount() - 1); got != m.Total() {
		t.Errorf("last cumulative %v != total %v", got, m.Total())
	}
	for i := range m.Segments() {
		if m.SegmentEnd(i)-m.SegmentStart(i) != m.Segments()[i].Duration {
			t.Errorf("segment %d window inconsistent", i)
		}
	}
}

func TestTransitionDurations(t *testing.T) {
	events, metadata, solutions := fixture()
	m := Build(events, metadata, solutions)

	segs := m.Segments()
	if segs[1].Duration != 15*Unit {
		t.Errorf("pair_0_1 duration = %v, want %v", segs[1].Duration, 15*Unit)
	}
	if segs[3].Duration != 8*Unit {
		t.Errorf("pair_1_2 duration = %v, want %v", segs[3].Duration, 8*Unit)
	}
	if segs[0].Duration != AnchorDuration {
		t.Errorf("anchor duration = %v, want %v", segs[0].Duration, AnchorDuration)
	}
}

func TestZeroLengthPair(t *testing.T) {
	// Anchors at 10 and 11 with an empty-run split event between them:
	// no transition segment is emitted.
	metadata := make([]movie.TreeMetadata, 12)
	for i := range metadata {
		metadata[i] = movie.TreeMetadata{Phase: movie.PhaseDown}
	}
	metadata[0].Phase = movie.PhaseOriginal
	metadata[10].Phase = movie.PhaseOriginal
	metadata[11].Phase = movie.PhaseOriginal

	events := []movie.TimelineEvent{
		{Type: movie.EventOriginal, GlobalIndex: 10, TreeIndex: 1, Name: "T1"},
		{Type: movie.EventSplitEvent, PairKey: "pair_1_2", Split: []int{2}, StepRangeGlobal: [2]int{11, 10}},
		{Type: movie.EventOriginal, GlobalIndex: 11, TreeIndex: 2, Name: "T2"},
	}
	m := Build(events, metadata, nil)

	if got := m.SegmentCount(); got != 2 {
		t.Fatalf("SegmentCount = %d, want 2 (no transition for zero-length pair)", got)
	}
	for _, seg := range m.Segments() {
		if seg.Kind != SegmentAnchor {
			t.Errorf("unexpected transition segment %+v", seg)
		}
	}
}

func TestTransitionOverlappingAnchorSkipsDuplicate(t *testing.T) {
	metadata := make([]movie.TreeMetadata, 4)
	metadata[0] = movie.TreeMetadata{Phase: movie.PhaseOriginal}
	metadata[1] = movie.TreeMetadata{Phase: movie.PhaseDown, PairKey: "pair_0_1", StepInPair: 1}
	metadata[2] = movie.TreeMetadata{Phase: movie.PhaseDown, PairKey: "pair_0_1", StepInPair: 2}
	metadata[3] = movie.TreeMetadata{Phase: movie.PhaseOriginal}

	events := []movie.TimelineEvent{
		{Type: movie.EventOriginal, GlobalIndex: 0, Name: "T0"},
		// Range erroneously includes the trailing anchor.
		{Type: movie.EventSplitEvent, PairKey: "pair_0_1", Split: []int{1}, StepRangeGlobal: [2]int{1, 3}},
		{Type: movie.EventOriginal, GlobalIndex: 3, Name: "T1"},
	}
	m := Build(events, metadata, nil)

	seg := m.Segments()[1]
	if seg.Kind != SegmentTransition || len(seg.Steps) != 2 {
		t.Fatalf("transition steps = %d, want 2 (anchor position dropped)", len(seg.Steps))
	}
	if m.SegmentIndexOf(3) != 2 {
		t.Errorf("anchor position claimed by transition")
	}
}

func TestOutOfRangeEventSkipped(t *testing.T) {
	metadata := []movie.TreeMetadata{{Phase: movie.PhaseOriginal}}
	events := []movie.TimelineEvent{
		{Type: movie.EventOriginal, GlobalIndex: 0, Name: "T0"},
		{Type: movie.EventOriginal, GlobalIndex: 9, Name: "bogus"},
		{Type: movie.EventSplitEvent, PairKey: "pair_0_1", StepRangeGlobal: [2]int{5, 9}},
	}
	m := Build(events, metadata, nil)
	if got := m.SegmentCount(); got != 1 {
		t.Errorf("SegmentCount = %d, want 1", got)
	}
}

func TestSubtreeMoveCount(t *testing.T) {
	events, metadata, solutions := fixture()
	m := Build(events, metadata, solutions)

	segs := m.Segments()
	// pair_0_1: [[[5,6]],[[7,8,9]]] flattens to 5 leaf indices.
	if segs[1].SubtreeMoves != 5 {
		t.Errorf("pair_0_1 SubtreeMoves = %d, want 5", segs[1].SubtreeMoves)
	}
	// pair_1_2: [[[1,2],[3]]] flattens to 3.
	if segs[3].SubtreeMoves != 3 {
		t.Errorf("pair_1_2 SubtreeMoves = %d, want 3", segs[3].SubtreeMoves)
	}

	min, max := m.MoveScale()
	if min != 3 || max != 5 {
		t.Errorf("MoveScale = %d, %d; want 3, 5", min, max)
	}
}

func TestSubtreeMoveCountFallback(t *testing.T) {
	// Lookup miss falls back to the split length.
	got := subtreeMoveCount(map[string]movie.PairSolution{
		"pair_0_1": {JumpingSubtreeSolutions: map[string][][][]int{}},
	}, "pair_0_1", []int{1, 2, 3})
	if got != 3 {
		t.Errorf("subtreeMoveCount fallback = %d, want 3", got)
	}
	if got := subtreeMoveCount(nil, "pair_0_1", []int{9}); got != 1 {
		t.Errorf("subtreeMoveCount missing pair = %d, want 1", got)
	}
}

func TestSegmentContainment(t *testing.T) {
	events, metadata, solutions := fixture()
	m := Build(events, metadata, solutions)

	for idx := 0; idx < len(metadata); idx++ {
		pos, ok := FindSegmentForTreeIndex(m, idx)
		if !ok {
			t.Fatalf("no segment for tree %d", idx)
		}
		if !pos.Segment.Contains(idx) {
			t.Errorf("segment %d does not contain tree %d", pos.SegmentIndex, idx)
		}
	}
}

func TestEmptyModel(t *testing.T) {
	m := Build(nil, nil, nil)
	if m.SegmentCount() != 0 || m.Total() != 0 {
		t.Errorf("empty build: %d segments, total %v", m.SegmentCount(), m.Total())
	}
	if _, ok := TargetTreeForTime(m, 0, BiasNearest); ok {
		t.Error("TargetTreeForTime on empty model should report !ok")
	}
}

func ExampleSegment_FirstTree() {
	events, metadata, solutions := fixture()
	m := Build(events, metadata, solutions)
	fmt.Println(m.Segments()[1].FirstTree())
	// Output: 1
}
