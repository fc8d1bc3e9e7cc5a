package interaction

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestUpdateSchedulerCoalesces(t *testing.T) {
	frames := &manualFrames{}
	u := newUpdateScheduler(frames)
	var ran []string

	u.Push(func() { ran = append(ran, "a") }, false)
	u.Push(func() { ran = append(ran, "b") }, false)
	u.Push(func() { ran = append(ran, "c") }, false)

	if frames.requests != 1 {
		t.Errorf("frame requests = %d, want 1", frames.requests)
	}
	frames.tick()
	if !slices.Equal(ran, []string{"c"}) {
		t.Errorf("ran = %v, want [c]", ran)
	}
	if u.flushes != 1 {
		t.Errorf("flushes = %d, want 1", u.flushes)
	}

	u.Push(func() { ran = append(ran, "d") }, false)
	if frames.requests != 2 {
		t.Errorf("frame requests after flush = %d, want 2", frames.requests)
	}
}

func TestUpdateSchedulerImmediateDropsPending(t *testing.T) {
	frames := &manualFrames{}
	u := newUpdateScheduler(frames)
	var ran []string

	u.Push(func() { ran = append(ran, "stale") }, false)
	u.Push(func() { ran = append(ran, "final") }, true)
	if !slices.Equal(ran, []string{"final"}) {
		t.Fatalf("ran = %v, want [final]", ran)
	}

	frames.tick()
	if !slices.Equal(ran, []string{"final"}) {
		t.Errorf("ran after frame = %v, want [final]", ran)
	}
}

func TestUpdateSchedulerCancel(t *testing.T) {
	frames := &manualFrames{}
	u := newUpdateScheduler(frames)
	ran := false

	u.Push(func() { ran = true }, false)
	u.Cancel()
	frames.tick()
	if ran {
		t.Error("cancelled work ran")
	}

	u.Push(func() { ran = true }, false)
	frames.tick()
	if !ran {
		t.Error("work pushed after Cancel() did not run")
	}
}

func TestUpdateSchedulerImmediateFrames(t *testing.T) {
	u := newUpdateScheduler(immediateFrames{})
	n := 0
	u.Push(func() { n++ }, false)
	u.Push(func() { n++ }, false)
	if n != 2 {
		t.Errorf("runs = %d, want 2", n)
	}
	if u.requested {
		t.Error("requested still set after synchronous frame")
	}
}

func TestTimerFrames(t *testing.T) {
	frames := TimerFrames{Interval: time.Millisecond, Post: func(fn func()) { fn() }}

	done := make(chan struct{})
	frames.RequestFrame(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame callback never ran")
	}

	var fired atomic.Bool
	cancel := frames.RequestFrame(func() { fired.Store(true) })
	cancel()
	time.Sleep(20 * time.Millisecond)
	if fired.Load() {
		t.Error("cancelled frame callback ran")
	}
}

func TestSerialExecutorKeepsOrder(t *testing.T) {
	x := NewSerialExecutor(4)

	var (
		mu  sync.Mutex
		got []int
	)
	for i := range 100 {
		x.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	x.Submit(func() { panic("boom") })
	x.Close()
	x.Submit(func() { t.Error("task ran after Close()") })

	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestSerialExecutorSubmitDoesNotWaitForWorker(t *testing.T) {
	x := NewSerialExecutor(4)
	started, release := make(chan struct{}), make(chan struct{})
	x.Submit(func() {
		close(started)
		<-release
	})
	<-started

	var ran atomic.Int32
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for range 200 {
			x.Submit(func() { ran.Add(1) })
		}
	}()

	select {
	case <-submitted:
	case <-time.After(time.Second):
		t.Fatal("Submit() blocked while the worker was stalled")
	}
	if got := x.Pending(); got != 200 {
		t.Errorf("Pending() = %d, want 200", got)
	}

	close(release)
	x.Close()
	if got := ran.Load(); got != 200 {
		t.Errorf("ran %d queued tasks, want 200", got)
	}
}
