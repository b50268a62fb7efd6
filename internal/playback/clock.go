// Package playback drives the store's animation progress from a frame
// source while the playing flag is set.
package playback

import (
	"sync"
	"time"

	"github.com/brancharchitect/phylomovie/internal/scheduler"
	"github.com/brancharchitect/phylomovie/internal/store"
)

// Clock advances playback one frame at a time. It is the only component
// that writes animation progress while playing; scrubbing goes through
// timeline progress instead.
type Clock struct {
	store *store.Store
	sched scheduler.Scheduler

	mu      sync.Mutex
	cancel  scheduler.Cancel
	running bool
}

// New returns a clock bound to st, ticking on sched.
func New(st *store.Store, sched scheduler.Scheduler) *Clock {
	return &Clock{store: st, sched: sched}
}

// Start begins playback from the store's current animation progress.
// Calling Start while running is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.store.Play(c.sched.Now())
	if !c.store.State().Playing {
		// Nothing to play (empty or single-tree sequence).
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return
	}
	c.scheduleTick()
}

// Stop halts playback, retaining the current position.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
	c.mu.Unlock()

	c.store.Stop()
}

// Running reports whether the clock is scheduling frames.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) scheduleTick() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel = c.sched.ScheduleNextFrame(c.tick)
	c.mu.Unlock()
}

func (c *Clock) tick(now time.Time) {
	c.store.UpdateAnimationProgress(now)
	if c.store.State().Playing {
		c.scheduleTick()
		return
	}
	// The store stopped itself at progress 1, or Stop raced the frame.
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
}
