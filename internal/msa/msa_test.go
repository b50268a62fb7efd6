package msa

import (
	"reflect"
	"testing"

	"github.com/brancharchitect/phylomovie/internal/highlight"
	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/resolver"
)

func alignment(n int) movie.MSA {
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = 'A'
	}
	return movie.MSA{
		Sequences:  map[string]string{"A": string(seq), "B": string(seq)},
		WindowSize: 50,
		StepSize:   10,
	}
}

func TestTotalWindows(t *testing.T) {
	tests := []struct {
		alignLen, window, step int
		want                   int
	}{
		{0, 50, 10, 0},
		{30, 50, 10, 1},
		{50, 50, 10, 1},
		{60, 50, 10, 2},
		{100, 50, 10, 6},
		{105, 50, 10, 7},
		{100, 50, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalWindows(tt.alignLen, tt.window, tt.step); got != tt.want {
			t.Errorf("TotalWindows(%d, %d, %d) = %d, want %d",
				tt.alignLen, tt.window, tt.step, got, tt.want)
		}
	}
}

func TestWindowSlidesByStep(t *testing.T) {
	m := alignment(100)
	w0 := Window(0, m)
	if w0.Start != 0 || w0.End != 49 {
		t.Fatalf("window 0 = [%d, %d], want [0, 49]", w0.Start, w0.End)
	}
	w2 := Window(2, m)
	if w2.Start != 20 || w2.End != 69 {
		t.Fatalf("window 2 = [%d, %d], want [20, 69]", w2.Start, w2.End)
	}
}

func TestWindowClampsAtAlignmentEnd(t *testing.T) {
	m := alignment(100)
	w := Window(99, m)
	if w.End != 99 {
		t.Fatalf("End = %d, want 99", w.End)
	}
	if w.Start != 50 {
		t.Fatalf("Start = %d, want 50 (clamped last window)", w.Start)
	}
	if w.Index != w.TotalWindows-1 {
		t.Fatalf("Index = %d, want last window %d", w.Index, w.TotalWindows-1)
	}
}

func TestWindowShortAlignment(t *testing.T) {
	m := alignment(30)
	w := Window(5, m)
	if w.Start != 0 || w.End != 29 || w.TotalWindows != 1 {
		t.Fatalf("short alignment window = %+v", w)
	}
}

func TestWindowEmptyAlignment(t *testing.T) {
	w := Window(0, movie.MSA{WindowSize: 50, StepSize: 10})
	if w.TotalWindows != 0 || w.End != -1 {
		t.Fatalf("empty alignment window = %+v", w)
	}
}

func buildFixture() (*movie.Payload, *resolver.Resolver, *highlight.Engine) {
	metadata := []movie.TreeMetadata{
		{Phase: movie.PhaseOriginal},
		{Phase: movie.PhaseDown, PairKey: "pair_0_1", StepInPair: 1},
		{Phase: movie.PhaseOriginal},
	}
	solutions := map[string]movie.PairSolution{
		"pair_0_1": {
			JumpingSubtreeSolutions: map[string][][][]int{
				"[0, 1]": {{{1, 2}}},
			},
		},
	}
	payload := &movie.Payload{
		Trees:             []*movie.Node{{}, {}, {}},
		Metadata:          metadata,
		PairSolutions:     solutions,
		PivotEdgeTracking: [][]int{nil, {0, 1}, nil},
		MSA:               alignment(100),
		SortedLeaves:      []string{"alpha", "beta", "gamma"},
	}
	res := resolver.New(metadata, nil, solutions, nil)
	engine := highlight.NewEngine(res, metadata, solutions, payload.PivotEdgeTracking, payload.SubtreeTracking)
	return payload, res, engine
}

func TestBuildEventAnchor(t *testing.T) {
	payload, res, engine := buildFixture()
	ev := BuildEvent(payload, res, engine, 2)
	if ev.FullTreeIndex != 1 {
		t.Fatalf("FullTreeIndex = %d, want 1", ev.FullTreeIndex)
	}
	if ev.Window.Start != 10 {
		t.Fatalf("Window.Start = %d, want 10", ev.Window.Start)
	}
	if len(ev.HighlightedTaxa) != 0 {
		t.Fatalf("anchor has highlighted taxa: %v", ev.HighlightedTaxa)
	}
}

func TestBuildEventInterpolated(t *testing.T) {
	payload, res, engine := buildFixture()
	ev := BuildEvent(payload, res, engine, 1)
	if ev.FullTreeIndex != 0 {
		t.Fatalf("FullTreeIndex = %d, want prior anchor 0", ev.FullTreeIndex)
	}
	want := []string{"beta", "gamma"}
	if !reflect.DeepEqual(ev.HighlightedTaxa, want) {
		t.Fatalf("HighlightedTaxa = %v, want %v", ev.HighlightedTaxa, want)
	}
	if ev.Position != 1 || ev.TreeIndex != 1 {
		t.Fatalf("event carries wrong position: %+v", ev)
	}
}

func TestDispatcherOrderAndUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	var order []int
	unsub1 := d.Subscribe(func(Event) { order = append(order, 1) })
	d.Subscribe(func(Event) { order = append(order, 2) })

	d.Dispatch(Event{})
	if !reflect.DeepEqual(order, []int{1, 2}) {
		t.Fatalf("delivery order = %v", order)
	}

	unsub1()
	order = nil
	d.Dispatch(Event{})
	if !reflect.DeepEqual(order, []int{2}) {
		t.Fatalf("after unsubscribe = %v", order)
	}
}
