// Package scheduler consolidates frame and timeout scheduling behind one
// interface so that throttling, grace windows, and fallback timeouts can
// be driven by a virtual clock in tests.
package scheduler

import (
	"sync"
	"time"
)

// FrameInterval approximates one display frame.
const FrameInterval = 16 * time.Millisecond

// Cancel stops a pending callback. Calling it after the callback fired is
// a no-op.
type Cancel func()

// Scheduler schedules cooperative callbacks. Implementations invoke
// callbacks on their own goroutine; callers serialize through actions.
type Scheduler interface {
	// ScheduleNextFrame runs fn at the next frame boundary.
	ScheduleNextFrame(fn func(now time.Time)) Cancel
	// ScheduleTimeout runs fn after d.
	ScheduleTimeout(d time.Duration, fn func()) Cancel
	// Now returns the scheduler's current time.
	Now() time.Time
}

// Wall is the production scheduler backed by the wall clock.
type Wall struct{}

// NewWall returns a wall-clock scheduler.
func NewWall() *Wall { return &Wall{} }

func (*Wall) Now() time.Time { return time.Now() }

func (w *Wall) ScheduleNextFrame(fn func(now time.Time)) Cancel {
	t := time.AfterFunc(FrameInterval, func() { fn(time.Now()) })
	return func() { t.Stop() }
}

func (w *Wall) ScheduleTimeout(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Virtual is a deterministic scheduler for tests. Time only moves through
// Advance, which fires due callbacks in order.
type Virtual struct {
	mu   sync.Mutex
	now  time.Time
	seq  int
	jobs map[int]*virtualJob
}

type virtualJob struct {
	id    int
	due   time.Time
	frame func(time.Time)
	plain func()
}

// NewVirtual returns a virtual scheduler starting at an arbitrary epoch.
func NewVirtual() *Virtual {
	return &Virtual{
		now:  time.Unix(1_700_000_000, 0),
		jobs: make(map[int]*virtualJob),
	}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) ScheduleNextFrame(fn func(now time.Time)) Cancel {
	return v.add(FrameInterval, fn, nil)
}

func (v *Virtual) ScheduleTimeout(d time.Duration, fn func()) Cancel {
	return v.add(d, nil, fn)
}

func (v *Virtual) add(d time.Duration, frame func(time.Time), plain func()) Cancel {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	job := &virtualJob{id: v.seq, due: v.now.Add(d), frame: frame, plain: plain}
	v.jobs[job.id] = job
	id := job.id
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.jobs, id)
	}
}

// Advance moves the clock forward by d, firing every callback that comes
// due, in due-time order. Callbacks scheduled while advancing fire too if
// they fall inside the window.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	deadline := v.now.Add(d)
	for {
		job := v.nextDueLocked(deadline)
		if job == nil {
			break
		}
		delete(v.jobs, job.id)
		if job.due.After(v.now) {
			v.now = job.due
		}
		now := v.now
		v.mu.Unlock()
		if job.frame != nil {
			job.frame(now)
		} else {
			job.plain()
		}
		v.mu.Lock()
	}
	v.now = deadline
	v.mu.Unlock()
}

// Pending returns the number of scheduled callbacks.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.jobs)
}

func (v *Virtual) nextDueLocked(deadline time.Time) *virtualJob {
	var best *virtualJob
	for _, job := range v.jobs {
		if job.due.After(deadline) {
			continue
		}
		if best == nil || job.due.Before(best.due) || (job.due.Equal(best.due) && job.id < best.id) {
			best = job
		}
	}
	return best
}
