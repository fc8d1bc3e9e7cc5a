package interaction

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

type fakeSource struct {
	elements []element.Ref
}

func (s *fakeSource) Elements() []element.Ref {
	return slices.Clone(s.elements)
}

type moveCall struct {
	id  string
	pos geometry.Point
}

type resizeCall struct {
	id   string
	size geometry.Size
	pos  geometry.Point
}

type fakeCommitter struct {
	moves   []moveCall
	batches [][]element.PositionUpdate
	resizes []resizeCall

	moveErr   func(call int) error
	batchErr  func(call int) error
	resizeErr func(size geometry.Size) error
}

func (c *fakeCommitter) MoveElement(_ context.Context, id string, pos geometry.Point) error {
	c.moves = append(c.moves, moveCall{id, pos})
	if c.moveErr != nil {
		return c.moveErr(len(c.moves))
	}
	return nil
}

func (c *fakeCommitter) BatchUpdatePositions(_ context.Context, updates []element.PositionUpdate) error {
	c.batches = append(c.batches, slices.Clone(updates))
	if c.batchErr != nil {
		return c.batchErr(len(c.batches))
	}
	return nil
}

func (c *fakeCommitter) ResizeElement(_ context.Context, id string, size geometry.Size, pos geometry.Point) error {
	c.resizes = append(c.resizes, resizeCall{id, size, pos})
	if c.resizeErr != nil {
		return c.resizeErr(size)
	}
	return nil
}

type fakeObserver struct {
	selections [][]string
	clicks     []geometry.Point
}

func (o *fakeObserver) SelectionChanged(ids []string) {
	o.selections = append(o.selections, ids)
}

func (o *fakeObserver) CanvasClicked(p geometry.Point) {
	o.clicks = append(o.clicks, p)
}

type fakeSink struct {
	cursors []Cursor
}

func (s *fakeSink) SetCursor(c Cursor) {
	s.cursors = append(s.cursors, c)
}

type frameRequest struct {
	fn        func()
	cancelled bool
}

// manualFrames holds frame callbacks until tick is called.
type manualFrames struct {
	queue    []*frameRequest
	requests int
}

func (f *manualFrames) RequestFrame(fn func()) func() {
	r := &frameRequest{fn: fn}
	f.queue = append(f.queue, r)
	f.requests++
	return func() { r.cancelled = true }
}

func (f *manualFrames) tick() {
	q := f.queue
	f.queue = nil
	for _, r := range q {
		if !r.cancelled {
			r.fn()
		}
	}
}

// queuedExecutor holds submitted tasks until runAll, like a worker that is
// busy with a slow commit.
type queuedExecutor struct {
	tasks []func()
}

func (q *queuedExecutor) Submit(task func()) {
	q.tasks = append(q.tasks, task)
}

func (q *queuedExecutor) runAll() {
	tasks := q.tasks
	q.tasks = nil
	for _, task := range tasks {
		task()
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func box(id string, x, y, w, h float64) element.Ref {
	return element.Ref{
		ID:       id,
		Kind:     element.KindRect,
		Position: geometry.Point{X: x, Y: y},
		Size:     geometry.Size{Width: w, Height: h},
		Visible:  true,
	}
}

func pt(x, y float64) PointerEvent {
	return PointerEvent{Point: geometry.Point{X: x, Y: y}}
}

func withMods(ev PointerEvent, m Modifiers) PointerEvent {
	ev.Modifiers = m
	return ev
}

type harness struct {
	src      *fakeSource
	commits  *fakeCommitter
	observer *fakeObserver
	sink     *fakeSink
	engine   *Engine
}

func newHarness(elements []element.Ref, opts ...Option) *harness {
	h := &harness{
		src:      &fakeSource{elements: elements},
		commits:  &fakeCommitter{},
		observer: &fakeObserver{},
		sink:     &fakeSink{},
	}
	opts = append([]Option{WithObserver(h.observer), WithCursorSink(h.sink)}, opts...)
	h.engine = New(DefaultConfig(), h.src, h.commits, opts...)
	return h
}

// debugLogger returns a logger writing every level to buf.
func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
