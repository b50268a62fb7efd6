// Package scrub drives the renderer while the user drags the timeline.
// The store's current position is untouched until the drag ends; only
// the committed final position goes through a store action.
package scrub

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/brancharchitect/phylomovie/internal/movie"
	"github.com/brancharchitect/phylomovie/internal/render"
	"github.com/brancharchitect/phylomovie/internal/resolver"
	"github.com/brancharchitect/phylomovie/internal/scheduler"
	"github.com/brancharchitect/phylomovie/internal/timeline"
)

// FallbackTimeout fires endScrubbing when the widget never delivers a
// drag-end event.
const FallbackTimeout = 500 * time.Millisecond

// Frame is one scrub position resolved to a renderable interpolation.
type Frame struct {
	FromIndex  int
	ToIndex    int
	TimeFactor float64
	// Primary is the index used for highlight lookups: FromIndex when the
	// blend leans left, ToIndex otherwise.
	Primary         int
	SegmentIndex    int
	SegmentProgress float64
}

// DeriveFrame resolves a [0,1] timeline progress to a frame. Anchor
// segments and pairs without true interpolation collapse to a single
// tree with a zero blend.
func DeriveFrame(m *timeline.Model, res *resolver.Resolver, progress float64) (Frame, bool) {
	if m == nil || m.SegmentCount() == 0 || m.Total() == 0 {
		return Frame{FromIndex: -1, ToIndex: -1, Primary: -1, SegmentIndex: -1}, false
	}
	t := timeline.ProgressToTime(progress, m.Total())
	si := timeline.SegmentIndexForTime(m, t)
	seg := &m.Segments()[si]
	segStart := m.SegmentStart(si)

	if seg.Kind == timeline.SegmentAnchor || len(seg.Steps) == 0 || !res.HasInterpolation(seg.PairKey) {
		idx := seg.FirstTree()
		return Frame{
			FromIndex:    idx,
			ToIndex:      idx,
			Primary:      idx,
			SegmentIndex: si,
		}, true
	}

	local := timeline.Clamp01(float64(t-segStart) / float64(seg.Duration))
	exact := local * float64(len(seg.Steps)-1)
	fromStep := int(math.Floor(exact))
	toStep := fromStep + 1
	if toStep > len(seg.Steps)-1 {
		toStep = len(seg.Steps) - 1
	}
	f := Frame{
		FromIndex:       seg.Steps[fromStep].OriginalIndex,
		ToIndex:         seg.Steps[toStep].OriginalIndex,
		TimeFactor:      exact - float64(fromStep),
		SegmentIndex:    si,
		SegmentProgress: local,
	}
	if f.TimeFactor < 0.5 {
		f.Primary = f.FromIndex
	} else {
		f.Primary = f.ToIndex
	}
	return f, true
}

// FrameRenderer is the slice of the renderer the controller drives.
type FrameRenderer interface {
	UpdateParameters(p render.Parameters)
	RenderScrubFrame(from, to *movie.Node, timeFactor float64, opts render.ScrubOptions) error
}

// Source supplies the structures a scrub session reads. The store
// satisfies it.
type Source interface {
	Timeline() *timeline.Model
	Resolver() *resolver.Resolver
	Payload() *movie.Payload
}

// EndFunc receives the committed final progress and the frame rendered
// for it when the drag ends.
type EndFunc func(progress float64, frame Frame)

// Controller throttles drag positions to the frame rate, coalesces
// bursts into the latest value, and guarantees the final position is
// rendered.
type Controller struct {
	source   Source
	renderer FrameRenderer
	sched    scheduler.Scheduler
	onEnd    EndFunc

	// Highlight recompute hook, called with the primary tree index before
	// each renderer invocation.
	prepare func(primary int)

	mu             sync.Mutex
	active         bool
	lastProgress   float64
	lastRendered   float64
	hasRendered    bool
	pending        float64
	hasPending     bool
	frameCancel    scheduler.Cancel
	fallbackCancel scheduler.Cancel
	lastFrameAt    time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithEndFunc sets the commit callback invoked from EndScrubbing.
func WithEndFunc(fn EndFunc) Option {
	return func(c *Controller) { c.onEnd = fn }
}

// WithPrepare sets the pre-render hook for highlight updates.
func WithPrepare(fn func(primary int)) Option {
	return func(c *Controller) { c.prepare = fn }
}

// NewController returns an idle controller.
func NewController(source Source, renderer FrameRenderer, sched scheduler.Scheduler, opts ...Option) *Controller {
	c := &Controller{source: source, renderer: renderer, sched: sched}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Active reports whether a drag is in progress.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// StartScrubbing enters the active state and renders the initial
// position.
func (c *Controller) StartScrubbing(progress float64) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	c.active = true
	c.hasRendered = false
	c.hasPending = false
	c.lastProgress = progress
	c.lastFrameAt = time.Time{}
	c.mu.Unlock()

	c.performUpdate(progress)
	c.armFallback()
}

// UpdatePosition records a new drag position. Updates are limited to one
// per display frame; positions arriving faster replace the pending value
// and only the latest is rendered.
func (c *Controller) UpdatePosition(progress float64) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.lastProgress = progress
	now := c.sched.Now()
	throttled := !c.lastFrameAt.IsZero() && now.Sub(c.lastFrameAt) < scheduler.FrameInterval
	if throttled || c.hasPending {
		c.pending = progress
		if !c.hasPending {
			c.hasPending = true
			c.frameCancel = c.sched.ScheduleNextFrame(c.processPending)
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.performUpdate(progress)
	c.armFallback()
}

// EndScrubbing leaves the active state. When final differs from the last
// rendered position, one last frame is rendered before the commit
// callback fires.
func (c *Controller) EndScrubbing(final float64) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	if c.frameCancel != nil {
		c.frameCancel()
		c.frameCancel = nil
	}
	if c.fallbackCancel != nil {
		c.fallbackCancel()
		c.fallbackCancel = nil
	}
	c.hasPending = false
	needFinal := !c.hasRendered || c.lastRendered != final
	c.mu.Unlock()

	var frame Frame
	if needFinal {
		var ok bool
		if frame, ok = c.render(final); ok {
			c.mu.Lock()
			c.lastRendered = final
			c.hasRendered = true
			c.mu.Unlock()
		}
	} else {
		frame, _ = DeriveFrame(c.source.Timeline(), c.source.Resolver(), final)
	}
	if c.onEnd != nil {
		c.onEnd(final, frame)
	}
}

// Teardown cancels all pending work. An active drag is abandoned without
// a commit.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.hasPending = false
	if c.frameCancel != nil {
		c.frameCancel()
		c.frameCancel = nil
	}
	if c.fallbackCancel != nil {
		c.fallbackCancel()
		c.fallbackCancel = nil
	}
}

func (c *Controller) processPending(now time.Time) {
	c.mu.Lock()
	if !c.active || !c.hasPending {
		c.frameCancel = nil
		c.mu.Unlock()
		return
	}
	progress := c.pending
	c.hasPending = false
	c.frameCancel = nil
	c.mu.Unlock()

	c.performUpdate(progress)
	c.armFallback()
}

func (c *Controller) performUpdate(progress float64) {
	if _, ok := c.render(progress); !ok {
		return
	}
	c.mu.Lock()
	c.lastRendered = progress
	c.hasRendered = true
	c.lastFrameAt = c.sched.Now()
	c.mu.Unlock()
}

// render derives and draws one frame. Renderer failures are logged and
// leave the controller consistent; the next update retries.
func (c *Controller) render(progress float64) (Frame, bool) {
	model := c.source.Timeline()
	res := c.source.Resolver()
	payload := c.source.Payload()
	frame, ok := DeriveFrame(model, res, progress)
	if !ok || payload == nil {
		return frame, false
	}
	if frame.FromIndex < 0 || frame.FromIndex >= len(payload.Trees) ||
		frame.ToIndex < 0 || frame.ToIndex >= len(payload.Trees) {
		return frame, false
	}
	if c.prepare != nil {
		c.prepare(frame.Primary)
	}
	err := c.renderer.RenderScrubFrame(
		payload.Trees[frame.FromIndex],
		payload.Trees[frame.ToIndex],
		frame.TimeFactor,
		render.ScrubOptions{
			ScrubMode:      true,
			FromTreeIndex:  frame.FromIndex,
			ToTreeIndex:    frame.ToIndex,
			RightTreeIndex: -1,
		},
	)
	if err != nil {
		slog.Warn("scrub frame failed", "progress", progress, "error", err)
		return frame, false
	}
	return frame, true
}

// armFallback restarts the drag-end watchdog.
func (c *Controller) armFallback() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	if c.fallbackCancel != nil {
		c.fallbackCancel()
	}
	c.fallbackCancel = c.sched.ScheduleTimeout(FallbackTimeout, c.fireFallback)
	c.mu.Unlock()
}

func (c *Controller) fireFallback() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	final := c.lastProgress
	c.mu.Unlock()

	slog.Debug("scrub end fallback", "progress", final)
	c.EndScrubbing(final)
}
