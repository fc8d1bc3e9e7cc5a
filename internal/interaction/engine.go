// Package interaction is the pointer-interaction engine of the template
// designer. An Engine turns pointer events on one canvas into selection
// changes and geometry commits: it hit-tests handles and elements, runs the
// drag, resize and box-selection gestures through a single mode machine,
// coalesces continuous writes to one per frame and keeps the surface cursor
// in sync.
//
// An Engine is not safe for concurrent use. Every entry point, including
// frame callbacks, must run on the owner's event loop; commits leave that loop
// through the configured Executor.
package interaction

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

// Engine drives the interactions of one canvas surface.
type Engine struct {
	cfg       Config
	source    ElementSource
	committer Committer
	observer  Observer
	log       *slog.Logger
	exec      Executor
	commits   *commitQueue
	clock     func() time.Time
	ctx       context.Context

	machine   machine
	selection []string
	hits      *HitTester
	updates   *updateScheduler
	cursor    *cursorManager
	cycle     *cycleContext
	lastPoint geometry.Point

	detach func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The engine tags it with component=interaction.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func WithCursorSink(s CursorSink) Option {
	return func(e *Engine) {
		if s != nil {
			e.cursor = newCursorManager(s)
		}
	}
}

// WithFrameScheduler sets the frame source used to coalesce continuous
// updates. Without one every update is written immediately.
func WithFrameScheduler(f FrameScheduler) Option {
	return func(e *Engine) {
		if f != nil {
			e.updates = newUpdateScheduler(f)
		}
	}
}

func WithExecutor(x Executor) Option {
	return func(e *Engine) {
		if x != nil {
			e.exec = x
		}
	}
}

// WithClock replaces time.Now for overlap cycling.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithContext sets the context passed to every commit.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.ctx = ctx
		}
	}
}

// New creates an engine reading elements from source and writing geometry
// through committer.
func New(cfg Config, source ElementSource, committer Committer, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		source:    source,
		committer: committer,
		observer:  nopObserver{},
		log:       slog.New(slog.DiscardHandler),
		exec:      InlineExecutor{},
		clock:     time.Now,
		ctx:       context.Background(),
		hits:      NewHitTester(cfg.HandleSize),
		updates:   newUpdateScheduler(immediateFrames{}),
		cursor:    newCursorManager(nopCursorSink{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "interaction")
	e.commits = &commitQueue{exec: e.exec}
	return e
}

// Attach subscribes the engine to src, replacing any previous source.
func (e *Engine) Attach(src PointerSource) {
	e.Detach()
	e.detach = src.Subscribe(e)
}

// Detach unsubscribes from the current pointer source, if any.
func (e *Engine) Detach() {
	if e.detach != nil {
		e.detach()
		e.detach = nil
	}
}

// Close detaches the engine and drops uncommitted intermediate updates. A
// gesture in progress is abandoned without a final commit.
func (e *Engine) Close() {
	e.Detach()
	e.updates.Cancel()
	_ = e.machine.transition(Idle, nil)
}

// PointerDown starts a gesture or changes the selection.
func (e *Engine) PointerDown(ev PointerEvent) {
	p := ev.Point
	e.lastPoint = p

	if e.machine.busy() {
		e.log.Debug("pointer down ignored", "mode", e.machine.mode.String())
		return
	}
	if e.machine.armed() {
		// the pointer-up of the previous click never arrived
		_ = e.machine.transition(Idle, nil)
	}

	snapshot := e.source.Elements()
	defer e.refreshCursor(snapshot, p)

	if h, ok := e.hits.HitTestHandle(snapshot, e.selection, p); ok {
		e.cycle = nil
		e.startResize(h, snapshot, p)
		return
	}

	if ev.Modifiers.Alt {
		if stack := e.hits.StackAt(snapshot, p); len(stack) > 1 {
			el := e.pickFromStack(stack, p)
			e.replaceSelection([]string{el.ID})
			e.armDrag(e.selection, snapshot, p)
			return
		}
	}
	e.cycle = nil

	el, ok := e.hits.HitTestElement(snapshot, p)
	if !ok {
		e.startBox(p)
		return
	}

	switch {
	case ev.Modifiers.Ctrl || ev.Modifiers.Meta:
		e.toggleSelected(el.ID)
	case ev.Modifiers.Shift && len(e.selection) > 0:
		e.addSelected(el.ID)
	case slices.Contains(e.selection, el.ID):
		e.armDrag(e.selection, snapshot, p)
	default:
		e.replaceSelection([]string{el.ID})
		e.armDrag(e.selection, snapshot, p)
	}
}

// PointerMove feeds the current gesture and refreshes the cursor.
func (e *Engine) PointerMove(ev PointerEvent) {
	p := ev.Point
	e.lastPoint = p
	snapshot := e.source.Elements()

	switch e.machine.mode {
	case Idle:
		if ds := e.machine.drag(); ds != nil && e.checkDragThreshold(ds, p) {
			e.moveDrag(ds, p)
		}
	case Dragging:
		e.moveDrag(e.machine.drag(), p)
	case Resizing:
		e.moveResize(e.machine.resize(), ev)
	case Selecting:
		e.moveBox(e.machine.box(), snapshot, p)
	}

	e.refreshCursor(snapshot, p)
}

// PointerUp finishes the current gesture.
func (e *Engine) PointerUp(ev PointerEvent) {
	e.lastPoint = ev.Point
	s := e.machine.sess
	_ = e.machine.transition(Idle, nil)

	switch s := s.(type) {
	case *DragSession:
		e.finishDrag(s)
	case *ResizeSession:
		e.finishResize(s)
	case *BoxSession:
		e.finishBox(s)
	}

	e.refreshCursor(e.source.Elements(), ev.Point)
}

// PointerCancel abandons the current gesture. Moved geometry is restored; a
// box selection keeps what it matched.
func (e *Engine) PointerCancel() {
	s := e.machine.sess
	_ = e.machine.transition(Idle, nil)

	switch s := s.(type) {
	case *DragSession:
		e.revertDrag(s)
	case *ResizeSession:
		e.revertResize(s)
	case *BoxSession:
		e.finishBox(s)
	}

	e.refreshCursor(e.source.Elements(), e.lastPoint)
}

// SetSelection replaces the selection on behalf of the host. The observer is
// not notified.
func (e *Engine) SetSelection(ids []string) {
	e.selection = slices.Clone(ids)
}

// Selection returns a copy of the selected ids.
func (e *Engine) Selection() []string {
	return slices.Clone(e.selection)
}

func (e *Engine) Mode() Mode {
	return e.machine.mode
}

// Cursor returns the cursor last written to the sink.
func (e *Engine) Cursor() Cursor {
	return e.cursor.current
}

// HandleRecomputes reports how often the resize-handle cache was rebuilt.
func (e *Engine) HandleRecomputes() int {
	return e.hits.Recomputes()
}

// ResizePreview is the geometry of an in-progress resize.
type ResizePreview struct {
	ElementID string         `json:"elementId"`
	Direction string         `json:"direction"`
	Size      geometry.Size  `json:"size"`
	Position  geometry.Point `json:"position"`
}

// State is a read-only view of the engine for feedback layers.
type State struct {
	Mode       string          `json:"mode"`
	Selection  []string        `json:"selection"`
	Marquee    *geometry.Rect  `json:"marquee,omitempty"`
	Handles    []ResizeHandle  `json:"handles"`
	Bounds     *geometry.Rect  `json:"bounds,omitempty"`
	DragOffset *geometry.Point `json:"dragOffset,omitempty"`
	Resize     *ResizePreview  `json:"resize,omitempty"`
	Cursor     Cursor          `json:"cursor"`
}

func (e *Engine) State() State {
	snapshot := e.source.Elements()
	st := State{
		Mode:      e.machine.mode.String(),
		Selection: e.Selection(),
		Handles:   e.hits.Handles(snapshot, e.selection),
		Cursor:    e.cursor.current,
	}
	if st.Selection == nil {
		st.Selection = []string{}
	}
	if b, ok := selectionBounds(snapshot, e.selection); ok {
		st.Bounds = &b
	}
	switch s := e.machine.sess.(type) {
	case *BoxSession:
		r := s.Rect()
		st.Marquee = &r
	case *DragSession:
		if s.Active {
			off := s.CurrentOffset
			st.DragOffset = &off
		}
	case *ResizeSession:
		st.Resize = &ResizePreview{
			ElementID: s.ElementID,
			Direction: s.Direction.String(),
			Size:      s.Size,
			Position:  s.Position,
		}
	}
	return st
}

func (e *Engine) replaceSelection(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	e.selection = slices.Clone(ids)
	e.observer.SelectionChanged(slices.Clone(ids))
}

func (e *Engine) toggleSelected(id string) {
	next := slices.DeleteFunc(slices.Clone(e.selection), func(s string) bool { return s == id })
	if len(next) == len(e.selection) {
		next = append(next, id)
	}
	e.replaceSelection(next)
}

func (e *Engine) addSelected(id string) {
	if slices.Contains(e.selection, id) {
		return
	}
	e.replaceSelection(append(slices.Clone(e.selection), id))
}

// selectionBounds is the smallest rect around the selected elements that are
// still on the canvas.
func selectionBounds(snapshot []element.Ref, ids []string) (geometry.Rect, bool) {
	var (
		bounds geometry.Rect
		found  bool
	)
	for _, id := range ids {
		el, ok := element.Find(snapshot, id)
		if !ok || !el.Visible {
			continue
		}
		bounds = bounds.Union(el.Bounds())
		found = true
	}
	return bounds, found
}

func (e *Engine) refreshCursor(snapshot []element.Ref, p geometry.Point) {
	var h hover
	if e.machine.mode == Idle {
		if handle, ok := e.hits.HitTestHandle(snapshot, e.selection, p); ok {
			h.handle = &handle
		} else if el, ok := e.hits.HitTestElement(snapshot, p); ok {
			h.element = true
			h.selected = slices.Contains(e.selection, el.ID)
		}
	}
	e.cursor.apply(deriveCursor(e.machine.mode, e.machine.resize(), h))
}
