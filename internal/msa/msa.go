// Package msa computes alignment windows for the MSA overlay and carries
// the event contract between the store and the overlay.
package msa

import (
	"sort"
	"sync"

	"github.com/brancharchitect/phylomovie/internal/highlight"
	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/resolver"
)

// WindowInfo describes one alignment window in columns.
type WindowInfo struct {
	Start        int // 0-based inclusive
	End          int // 0-based inclusive
	WindowSize   int
	StepSize     int
	Index        int
	TotalWindows int
}

// Event is dispatched to the overlay on every position change.
type Event struct {
	Position        int
	Window          WindowInfo
	HighlightedTaxa []string
	TreeIndex       int
	FullTreeIndex   int
}

// AlignmentLength returns the longest sequence length in the alignment.
func AlignmentLength(m movie.MSA) int {
	n := 0
	for _, seq := range m.Sequences {
		if len(seq) > n {
			n = len(seq)
		}
	}
	return n
}

// TotalWindows returns how many windows cover an alignment of length
// alignLen with the given window and step sizes.
func TotalWindows(alignLen, windowSize, stepSize int) int {
	if alignLen <= 0 || windowSize <= 0 || stepSize <= 0 {
		return 0
	}
	if alignLen <= windowSize {
		return 1
	}
	return (alignLen-windowSize+stepSize-1)/stepSize + 1
}

// Window returns the alignment window for the given full-tree ordinal.
// The window slides one step per anchor; the last window is clamped to
// the alignment end.
func Window(fullTreeIndex int, m movie.MSA) WindowInfo {
	alignLen := AlignmentLength(m)
	size := m.WindowSize
	step := m.StepSize
	if size <= 0 {
		size = alignLen
	}
	if step <= 0 {
		step = size
	}
	total := TotalWindows(alignLen, size, step)
	info := WindowInfo{WindowSize: size, StepSize: step, TotalWindows: total}
	if alignLen == 0 || total == 0 {
		info.End = -1
		return info
	}
	idx := fullTreeIndex
	if idx < 0 {
		idx = 0
	}
	if idx > total-1 {
		idx = total - 1
	}
	start := idx * step
	if start+size > alignLen {
		start = alignLen - size
		if start < 0 {
			start = 0
		}
	}
	end := start + size - 1
	if end > alignLen-1 {
		end = alignLen - 1
	}
	info.Index = idx
	info.Start = start
	info.End = end
	return info
}

// BuildEvent assembles the overlay event for position i.
func BuildEvent(payload *movie.Payload, res *resolver.Resolver, engine *highlight.Engine, i int) Event {
	ev := Event{Position: i, TreeIndex: i, FullTreeIndex: 0}
	if payload == nil || res == nil {
		ev.Window.End = -1
		return ev
	}
	full := res.FullTreeIndex(i)
	if full < 0 {
		// Interpolated position: stay on the window of the prior anchor.
		full = int(res.DistanceIndex(i))
	}
	ev.FullTreeIndex = full
	ev.Window = Window(full, payload.MSA)
	if engine != nil {
		ev.HighlightedTaxa = taxaNames(engine.MarkedSubtrees(i), payload.SortedLeaves)
	}
	return ev
}

// taxaNames maps marked leaf indices to names in canonical order.
func taxaNames(marked [][]int, leaves []string) []string {
	if len(marked) == 0 || len(leaves) == 0 {
		return nil
	}
	seen := map[int]bool{}
	for _, group := range marked {
		for _, idx := range group {
			if idx >= 0 && idx < len(leaves) {
				seen[idx] = true
			}
		}
	}
	idxs := make([]int, 0, len(seen))
	for idx := range seen {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	names := make([]string, len(idxs))
	for i, idx := range idxs {
		names[i] = leaves[idx]
	}
	return names
}

// Listener receives overlay events.
type Listener func(Event)

// Dispatcher fans events out to overlay listeners in subscription order.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[int]Listener
	next      int
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[int]Listener)}
}

// Subscribe registers fn and returns an unsubscribe function.
func (d *Dispatcher) Subscribe(fn Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	id := d.next
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

// Dispatch delivers ev to every listener.
func (d *Dispatcher) Dispatch(ev Event) {
	d.mu.Lock()
	ids := make([]int, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, d.listeners[id])
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
