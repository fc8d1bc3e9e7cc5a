package interaction

import (
	"sync"
	"time"
)

// FrameScheduler runs fn once, aligned to the next display frame. The callback
// must be delivered on the engine's event loop. The returned function cancels
// a callback that has not run yet.
type FrameScheduler interface {
	RequestFrame(fn func()) (cancel func())
}

// immediateFrames runs every frame callback synchronously. It is the fallback
// when no scheduler is configured and disables coalescing.
type immediateFrames struct{}

func (immediateFrames) RequestFrame(fn func()) func() {
	fn()
	return func() {}
}

// TimerFrames fires frame callbacks on a fixed interval. post hands the
// callback back to the owner's event loop; it is called from a timer goroutine.
type TimerFrames struct {
	Interval time.Duration
	Post     func(fn func())
}

func (t TimerFrames) RequestFrame(fn func()) func() {
	var (
		mu        sync.Mutex
		cancelled bool
	)
	timer := time.AfterFunc(t.Interval, func() {
		t.Post(func() {
			mu.Lock()
			c := cancelled
			mu.Unlock()
			if !c {
				fn()
			}
		})
	})
	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		timer.Stop()
	}
}

// updateScheduler coalesces continuous-motion writes to at most one per frame.
// A newer payload replaces the pending one; immediate work drops the pending
// payload and runs at once.
type updateScheduler struct {
	frames    FrameScheduler
	pending   func()
	requested bool
	cancel    func()
	flushes   int
}

func newUpdateScheduler(frames FrameScheduler) *updateScheduler {
	return &updateScheduler{frames: frames}
}

// Push schedules work. With immediate set the work runs synchronously.
func (u *updateScheduler) Push(work func(), immediate bool) {
	if immediate {
		u.Cancel()
		work()
		return
	}

	u.pending = work
	if u.requested {
		return
	}
	u.requested = true
	cancel := u.frames.RequestFrame(u.flush)
	if u.requested {
		u.cancel = cancel
	}
}

// Cancel drops pending work and the outstanding frame request.
func (u *updateScheduler) Cancel() {
	if u.cancel != nil {
		u.cancel()
	}
	u.cancel = nil
	u.requested = false
	u.pending = nil
}

func (u *updateScheduler) flush() {
	work := u.pending
	u.pending = nil
	u.requested = false
	u.cancel = nil
	if work != nil {
		u.flushes++
		work()
	}
}
