package interaction

import (
	"log/slog"
	"sync"
)

// Executor runs commit tasks outside the pointer handlers. Submit is called
// on the engine's event loop and must not block it.
type Executor interface {
	Submit(task func())
}

// InlineExecutor runs each task synchronously on the caller's goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Submit(task func()) { task() }

// SerialExecutor runs tasks one at a time on a worker goroutine, in submission
// order, so a final commit is never overtaken by an older intermediate one.
// Submit never waits for the worker: in the browser the worker may itself be
// waiting on a promise that only the event loop can settle.
type SerialExecutor struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewSerialExecutor starts a worker. capacity sizes the initial queue.
func NewSerialExecutor(capacity int) *SerialExecutor {
	if capacity <= 0 {
		capacity = 64
	}
	x := &SerialExecutor{
		queue: make([]func(), 0, capacity),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go x.run()
	return x
}

func (x *SerialExecutor) run() {
	defer close(x.done)
	for {
		x.mu.Lock()
		for len(x.queue) == 0 {
			if x.closed {
				x.mu.Unlock()
				return
			}
			x.mu.Unlock()
			<-x.wake
			x.mu.Lock()
		}
		task := x.queue[0]
		x.queue[0] = nil
		x.queue = x.queue[1:]
		x.mu.Unlock()

		x.runTask(task)
	}
}

func (x *SerialExecutor) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("commit task panicked", "panic", r)
		}
	}()
	task()
}

func (x *SerialExecutor) signal() {
	select {
	case x.wake <- struct{}{}:
	default:
	}
}

// Submit enqueues a task without blocking. Tasks submitted after Close are
// dropped.
func (x *SerialExecutor) Submit(task func()) {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		slog.Warn("commit submitted after executor closed")
		return
	}
	x.queue = append(x.queue, task)
	x.mu.Unlock()
	x.signal()
}

// Pending reports how many tasks wait for the worker.
func (x *SerialExecutor) Pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.queue)
}

// Close stops accepting tasks and waits for queued ones to finish.
func (x *SerialExecutor) Close() {
	x.mu.Lock()
	x.closed = true
	x.mu.Unlock()
	x.signal()
	<-x.done
}

// commitQueue sits between the engine and its Executor. At most one
// intermediate commit waits in the executor at a time; a newer one replaces
// its payload until the worker picks it up. Final commits are always queued
// and end the current slot, so they keep their order.
type commitQueue struct {
	exec Executor
	slot *pendingCommit
}

type pendingCommit struct {
	mu      sync.Mutex
	task    func()
	started bool
}

func (p *pendingCommit) run() {
	p.mu.Lock()
	p.started = true
	task := p.task
	p.mu.Unlock()
	task()
}

func (q *commitQueue) submit(task func(), final bool) {
	if final {
		q.slot = nil
		q.exec.Submit(task)
		return
	}
	if s := q.slot; s != nil {
		s.mu.Lock()
		if !s.started {
			s.task = task
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
	s := &pendingCommit{task: task}
	q.slot = s
	q.exec.Submit(s.run)
}
