package timeline

import (
	"sync"
	"time"

	"github.com/brancharchitect/phylomovie/internal/scheduler"
	"github.com/brancharchitect/phylomovie/internal/scrub"
	"github.com/brancharchitect/phylomovie/internal/store"
	tl "github.com/brancharchitect/phylomovie/internal/timeline"
)

// GraceWindow is how long after a scrub commit store-driven updates are
// kept from overriding the scrubbed position.
const GraceWindow = 150 * time.Millisecond

// Manager keeps the scrubber widget in sync with the store and routes
// widget gestures to the scrub controller.
type Manager struct {
	store  *store.Store
	ctrl   *scrub.Controller
	widget *Scrubber
	sched  scheduler.Scheduler

	mu         sync.Mutex
	graceUntil time.Time
	unsub      func()
}

// NewManager wires the manager up. It subscribes to the store exactly
// once; Teardown undoes it.
func NewManager(st *store.Store, renderer scrub.FrameRenderer, sched scheduler.Scheduler, opts ...scrub.Option) *Manager {
	m := &Manager{
		store:  st,
		widget: NewScrubber(),
		sched:  sched,
	}
	opts = append(opts, scrub.WithEndFunc(m.commitScrub))
	m.ctrl = scrub.NewController(st, renderer, sched, opts...)
	m.widget.SetModel(st.Timeline())
	m.unsub = st.Subscribe(m.onStoreChange)
	return m
}

// Widget exposes the track for the viewer's View method.
func (m *Manager) Widget() *Scrubber { return m.widget }

// Controller exposes the scrub controller for gesture routing.
func (m *Manager) Controller() *scrub.Controller { return m.ctrl }

// onStoreChange follows playback and discrete navigation. Updates are
// ignored while a drag is active and inside the post-commit grace
// window.
func (m *Manager) onStoreChange(state, prev store.State) {
	if state.TreeCount != prev.TreeCount {
		// Payload swap: rebind the widget to the new model.
		m.widget.SetModel(m.store.Timeline())
	}
	if m.ctrl.Active() {
		return
	}
	m.mu.Lock()
	inGrace := m.sched.Now().Before(m.graceUntil)
	m.mu.Unlock()
	if inGrace {
		return
	}

	model := m.store.Timeline()
	if model == nil || model.Total() == 0 {
		return
	}
	t := tl.ProgressToTime(state.AnimationProgress, model.Total())
	m.widget.SetCustomTime(t)
	si := model.SegmentIndexOf(state.CurrentTreeIndex)
	m.widget.SetSelection(si)
	m.syncCounters(state, model, si, tl.TimeToProgress(t, model.Total()))
}

// syncCounters refreshes the overlay counters when they drift.
func (m *Manager) syncCounters(state store.State, model *tl.Model, si int, progress float64) {
	if si < 0 {
		return
	}
	seg := &model.Segments()[si]
	treeIn, treesIn := tl.TreePositionInSegment(seg, state.CurrentTreeIndex)
	counters := store.TimelineCounters{
		SegmentIndex:     si,
		TotalSegments:    model.SegmentCount(),
		TreeInSegment:    treeIn,
		TreesInSegment:   treesIn,
		TimelineProgress: progress,
	}
	if counters != state.Counters {
		m.store.UpdateTimelineState(counters)
	}
}

// StartDrag begins a scrub gesture at the given progress.
func (m *Manager) StartDrag(progress float64) {
	m.ctrl.StartScrubbing(progress)
}

// DragTo reports an in-flight drag position.
func (m *Manager) DragTo(progress float64) {
	m.ctrl.UpdatePosition(progress)
}

// DragEnd finishes the gesture; the controller renders the final frame
// and the commit callback lands it in the store.
func (m *Manager) DragEnd(progress float64) {
	m.ctrl.EndScrubbing(progress)
}

// commitScrub is the controller's end callback: commit the precise
// position, then open the grace window.
func (m *Manager) commitScrub(progress float64, frame scrub.Frame) {
	// The grace window opens before the commit notification fires, so the
	// store-driven sync for this very change is already suppressed.
	m.mu.Lock()
	m.graceUntil = m.sched.Now().Add(GraceWindow)
	m.mu.Unlock()

	m.store.SetTimelineProgress(progress, frame.Primary, frame.SegmentProgress)

	model := m.store.Timeline()
	if model != nil {
		m.widget.SetCustomTime(tl.ProgressToTime(progress, model.Total()))
		m.widget.SetSelection(frame.SegmentIndex)
	}
}

// ClickSegment jumps to the first tree of the clicked segment.
func (m *Manager) ClickSegment(si int) {
	model := m.store.Timeline()
	if model == nil || si < 0 || si >= model.SegmentCount() {
		return
	}
	target := model.Segments()[si].FirstTree()
	m.store.GoToPosition(target, store.DirectionAuto)
}

// Teardown unsubscribes and destroys the widget. Safe to call twice.
func (m *Manager) Teardown() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	m.ctrl.Teardown()
	m.widget.Destroy()
}
