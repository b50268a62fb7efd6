// Package store holds the viewer's shared state. All mutation goes
// through actions; subscribers observe (state, prevState) snapshots in
// the order the changes were applied.
package store

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/brancharchitect/phylomovie/internal/highlight"
	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/resolver"
	"github.com/brancharchitect/phylomovie/internal/timeline"
)

// ColorPersister saves color categories between sessions. Persistence is
// best-effort: errors are logged and swallowed.
type ColorPersister interface {
	SaveColorCategories(map[string]string) error
	LoadColorCategories() (map[string]string, error)
}

// Subscriber receives every state change. Callbacks must not mutate state
// except through actions.
type Subscriber func(state, prev State)

// Store owns the payload and all derived structures. Derived structures
// are rebuilt only by Initialize and are immutable in between.
type Store struct {
	mu      sync.Mutex
	state   State
	payload *movie.Payload
	res     *resolver.Resolver
	model   *timeline.Model
	engine  *highlight.Engine
	persist ColorPersister

	subMu   sync.Mutex
	subs    map[int]Subscriber
	nextSub int

	// Pending notifications. Changes applied while a callback is running
	// are queued and delivered after it returns, preserving order.
	queueMu   sync.Mutex
	queue     []statePair
	notifying bool

	unit      time.Duration
	animStart time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPersister wires color-category persistence.
func WithPersister(p ColorPersister) Option {
	return func(s *Store) { s.persist = p }
}

// WithTimelineUnit overrides the timeline width of one interpolation
// step. Non-positive values keep the default.
func WithTimelineUnit(d time.Duration) Option {
	return func(s *Store) { s.unit = d }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		state: emptyState(),
		subs:  make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptyState() State {
	return State{
		AnimationSpeed:        1,
		PivotEdgesEnabled:     true,
		MarkedSubtreesEnabled: true,
		Dimming:               true,
		ColorCategories:       map[string]string{},
	}
}

// Subscribe registers fn and returns an unsubscribe function.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Payload returns the initialized payload, nil before Initialize.
func (s *Store) Payload() *movie.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}

// Resolver returns the index resolver for the current payload.
func (s *Store) Resolver() *resolver.Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res
}

// Timeline returns the timeline model for the current payload.
func (s *Store) Timeline() *timeline.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Highlight returns the highlight engine for the current payload.
func (s *Store) Highlight() *highlight.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// apply runs mutate under the lock, then notifies subscribers with the
// before and after snapshots. Subscribers run outside the state lock so
// they can dispatch further actions; ordering is preserved by notifyMu.
func (s *Store) apply(mutate func(st *State)) {
	s.mu.Lock()
	prev := s.state.clone()
	mutate(&s.state)
	s.refreshHighlightLocked(prev.CurrentTreeIndex)
	next := s.state.clone()
	s.mu.Unlock()

	s.notify(next, prev)
}

// refreshHighlightLocked re-consults the highlight engine when the
// position changed, before any subscriber (the renderer included) sees
// the new state.
func (s *Store) refreshHighlightLocked(prevIndex int) {
	if s.engine == nil {
		s.state.Highlight = highlight.State{}
		return
	}
	if s.state.CurrentTreeIndex == prevIndex {
		return
	}
	s.state.Highlight = s.engine.StateAt(s.state.CurrentTreeIndex)
}

type statePair struct {
	next State
	prev State
}

// notify delivers the change to every subscriber. Subscribers may invoke
// further actions; those changes queue up and are delivered in order
// once the current callback round finishes.
func (s *Store) notify(next, prev State) {
	s.queueMu.Lock()
	s.queue = append(s.queue, statePair{next, prev})
	if s.notifying {
		s.queueMu.Unlock()
		return
	}
	s.notifying = true
	for len(s.queue) > 0 {
		p := s.queue[0]
		s.queue = s.queue[1:]
		s.queueMu.Unlock()
		for _, fn := range s.subscribers() {
			fn(p.next, p.prev)
		}
		s.queueMu.Lock()
	}
	s.notifying = false
	s.queueMu.Unlock()
}

func (s *Store) subscribers() []Subscriber {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	return fns
}

// Initialize rebuilds every derived structure from payload and resets
// position and playback. A payload with no trees leaves the store in a
// valid empty state.
func (s *Store) Initialize(payload *movie.Payload) {
	res := resolver.New(payload.Metadata, payload.Distances.RobinsonFoulds, payload.PairSolutions, payload.PairRanges)
	model := timeline.BuildWithUnit(payload.Timeline, payload.Metadata, payload.PairSolutions, s.unit)
	engine := highlight.NewEngine(res, payload.Metadata, payload.PairSolutions, payload.PivotEdgeTracking, payload.SubtreeTracking)

	var stored map[string]string
	if s.persist != nil {
		loaded, err := s.persist.LoadColorCategories()
		if err != nil {
			slog.Debug("color categories unavailable", "error", err)
		} else {
			stored = loaded
		}
	}

	s.mu.Lock()
	prev := s.state.clone()
	s.payload = payload
	s.res = res
	s.model = model
	s.engine = engine

	st := emptyState()
	st.FileName = payload.FileName
	st.TreeCount = payload.TreeCount()
	st.AnimationSpeed = prev.AnimationSpeed
	st.Monophyletic = prev.Monophyletic
	st.PivotEdgesEnabled = prev.PivotEdgesEnabled
	st.MarkedSubtreesEnabled = prev.MarkedSubtreesEnabled
	st.Dimming = prev.Dimming
	st.Trails = prev.Trails
	st.CameraOrthographic = prev.CameraOrthographic
	st.MSAWindowSize = payload.MSA.WindowSize
	st.MSAStepSize = payload.MSA.StepSize
	if stored != nil {
		st.ColorCategories = stored
	} else {
		st.ColorCategories = prev.ColorCategories
	}
	st.Counters.TotalSegments = model.SegmentCount()
	s.state = st
	s.refreshHighlightLocked(-1)
	next := s.state.clone()
	s.mu.Unlock()

	s.notify(next, prev)
}

// Reset discards derived structures and returns to the empty state.
func (s *Store) Reset() {
	s.mu.Lock()
	prev := s.state.clone()
	s.payload = nil
	s.res = nil
	s.model = nil
	s.engine = nil
	s.state = emptyState()
	next := s.state.clone()
	s.mu.Unlock()

	s.notify(next, prev)
}

// GoToPosition moves to index, clamped to the sequence. Unchanged
// positions are a no-op. Pass DirectionAuto to derive the direction from
// the jump distance.
func (s *Store) GoToPosition(index int, direction Direction) {
	s.mu.Lock()
	n := s.state.TreeCount
	if n == 0 {
		s.mu.Unlock()
		return
	}
	index = clampInt(index, 0, n-1)
	if index == s.state.CurrentTreeIndex {
		s.mu.Unlock()
		return
	}
	prev := s.state.clone()
	if direction == DirectionAuto {
		direction = deriveDirection(prev.CurrentTreeIndex, index)
	}
	s.state.CurrentTreeIndex = index
	s.state.Direction = direction
	s.state.SegmentProgress = 0
	if n > 1 {
		s.state.AnimationProgress = float64(index) / float64(n-1)
	} else {
		s.state.AnimationProgress = 0
	}
	s.refreshHighlightLocked(prev.CurrentTreeIndex)
	next := s.state.clone()
	s.mu.Unlock()

	s.notify(next, prev)
}

func deriveDirection(from, to int) Direction {
	switch to - from {
	case 1:
		return DirectionForward
	case -1:
		return DirectionBackward
	default:
		return DirectionJump
	}
}

// Play starts playback at the given wall-clock time. The start time is
// offset so playback resumes from the current animation progress.
func (s *Store) Play(now time.Time) {
	s.apply(func(st *State) {
		if st.Playing || st.TreeCount < 2 {
			return
		}
		st.Playing = true
		elapsed := st.AnimationProgress * float64(st.TreeCount-1) / st.AnimationSpeed
		s.animStart = now.Add(-time.Duration(elapsed * float64(time.Second)))
	})
}

// Stop halts playback. Position and progress are retained.
func (s *Store) Stop() {
	s.apply(func(st *State) {
		st.Playing = false
	})
}

// UpdateAnimationProgress commits one playback tick. It is the only
// writer of AnimationProgress while playing; when progress reaches 1 the
// store transitions to stopped.
func (s *Store) UpdateAnimationProgress(now time.Time) {
	s.apply(func(st *State) {
		if !st.Playing || st.TreeCount < 2 {
			return
		}
		elapsed := now.Sub(s.animStart).Seconds()
		progress := elapsed * st.AnimationSpeed / float64(st.TreeCount-1)
		if progress >= 1 {
			progress = 1
			st.Playing = false
		}
		st.AnimationProgress = progress
		idx := int(math.Round(progress * float64(st.TreeCount-1)))
		if idx != st.CurrentTreeIndex {
			st.Direction = deriveDirection(st.CurrentTreeIndex, idx)
			st.CurrentTreeIndex = idx
			st.SegmentProgress = 0
		}
	})
}

// SetAnimationSpeed updates the playback multiplier. While playing, the
// start offset is rebased so the current progress is unchanged.
func (s *Store) SetAnimationSpeed(speed float64, now time.Time) {
	if speed <= 0 {
		return
	}
	s.apply(func(st *State) {
		if st.Playing && st.TreeCount > 1 {
			elapsed := st.AnimationProgress * float64(st.TreeCount-1) / speed
			s.animStart = now.Add(-time.Duration(elapsed * float64(time.Second)))
		}
		st.AnimationSpeed = speed
	})
}

// SetSegmentProgress clamps p to [0,1].
func (s *Store) SetSegmentProgress(p float64) {
	s.apply(func(st *State) {
		st.SegmentProgress = timeline.Clamp01(p)
	})
}

// SetTimelineProgress commits a precise scrubbed position without
// starting playback. treeIndex < 0 leaves CurrentTreeIndex alone;
// segmentProgress < 0 leaves SegmentProgress alone.
func (s *Store) SetTimelineProgress(p float64, treeIndex int, segmentProgress float64) {
	s.apply(func(st *State) {
		st.TimelineProgress = timeline.Clamp01(p)
		if treeIndex >= 0 && st.TreeCount > 0 {
			idx := clampInt(treeIndex, 0, st.TreeCount-1)
			if idx != st.CurrentTreeIndex {
				st.Direction = deriveDirection(st.CurrentTreeIndex, idx)
				st.CurrentTreeIndex = idx
			}
			if st.TreeCount > 1 {
				st.AnimationProgress = float64(idx) / float64(st.TreeCount-1)
			}
		}
		if segmentProgress >= 0 {
			st.SegmentProgress = timeline.Clamp01(segmentProgress)
		}
	})
}

// UpdateTimelineState replaces the informational overlay counters.
func (s *Store) UpdateTimelineState(c TimelineCounters) {
	s.apply(func(st *State) {
		st.Counters = c
		st.TimelineProgress = timeline.Clamp01(c.TimelineProgress)
	})
}

// SetColorCategory assigns a hex color to a category and persists the
// full mapping.
func (s *Store) SetColorCategory(name, hex string) {
	s.apply(func(st *State) {
		st.ColorCategories[name] = hex
		st.ColorRevision++
		s.persistColorsLocked(st.ColorCategories)
	})
}

// ReplaceColorCategories swaps the whole mapping and persists it.
func (s *Store) ReplaceColorCategories(categories map[string]string) {
	s.apply(func(st *State) {
		st.ColorCategories = map[string]string{}
		for k, v := range categories {
			st.ColorCategories[k] = v
		}
		st.ColorRevision++
		s.persistColorsLocked(st.ColorCategories)
	})
}

func (s *Store) persistColorsLocked(categories map[string]string) {
	if s.persist == nil {
		return
	}
	snapshot := make(map[string]string, len(categories))
	for k, v := range categories {
		snapshot[k] = v
	}
	if err := s.persist.SaveColorCategories(snapshot); err != nil {
		slog.Debug("persist color categories", "error", err)
	}
}

// ToggleMonophyletic flips monophyletic coloring.
func (s *Store) ToggleMonophyletic() {
	s.apply(func(st *State) { st.Monophyletic = !st.Monophyletic })
}

// TogglePivotEdges flips pivot edge highlighting.
func (s *Store) TogglePivotEdges() {
	s.apply(func(st *State) { st.PivotEdgesEnabled = !st.PivotEdgesEnabled })
}

// ToggleMarkedSubtrees flips marked subtree highlighting.
func (s *Store) ToggleMarkedSubtrees() {
	s.apply(func(st *State) { st.MarkedSubtreesEnabled = !st.MarkedSubtreesEnabled })
}

// ToggleDimming flips active-change dimming.
func (s *Store) ToggleDimming() {
	s.apply(func(st *State) { st.Dimming = !st.Dimming })
}

// ToggleTrails flips movement trails.
func (s *Store) ToggleTrails() {
	s.apply(func(st *State) { st.Trails = !st.Trails })
}

// ToggleCamera switches between perspective and orthographic projection.
func (s *Store) ToggleCamera() {
	s.apply(func(st *State) { st.CameraOrthographic = !st.CameraOrthographic })
}

// SetMSAWindow updates the MSA window parameters.
func (s *Store) SetMSAWindow(size, step int) {
	s.apply(func(st *State) {
		if size > 0 {
			st.MSAWindowSize = size
		}
		if step > 0 {
			st.MSAStepSize = step
		}
	})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
