package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reportforge/designer/internal/geometry"
	"github.com/reportforge/designer/internal/interaction"
	"github.com/reportforge/designer/internal/typeid"
)

const (
	sessionQueueSize = 256
	commitQueueSize  = 64

	defaultFrameInterval = 16 * time.Millisecond
)

// Canvas is the element list a session edits.
type Canvas interface {
	interaction.ElementSource
	interaction.Committer
}

// sender delivers messages to one connected client.
type sender interface {
	Send(msg *Message)
}

type SessionConfig struct {
	Engine        interaction.Config
	FrameInterval time.Duration
}

// Session runs an interaction engine for one connected client. The session
// is the engine's pointer source: decoded pointer messages are replayed on a
// private event loop, which is also where frame callbacks land. Commits run on
// a serial executor so the loop never waits for the store.
type Session struct {
	ID string

	out      sender
	engine   *interaction.Engine
	exec     *interaction.SerialExecutor
	handler  interaction.PointerHandler
	onSelect func(ids []string)
	log      *slog.Logger

	tasks     chan func()
	quit      chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewSession starts a session editing canvas. onSelect, if set, is called on
// the session loop whenever the selection changes.
func NewSession(out sender, canvas Canvas, cfg SessionConfig, onSelect func(ids []string)) *Session {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaultFrameInterval
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		ID:       typeid.NewSessionID(),
		out:      out,
		exec:     interaction.NewSerialExecutor(commitQueueSize),
		onSelect: onSelect,
		tasks:    make(chan func(), sessionQueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	s.log = slog.Default().With("session", s.ID)

	frames := interaction.TimerFrames{
		Interval: cfg.FrameInterval,
		Post:     func(fn func()) { s.post(fn) },
	}
	s.engine = interaction.New(cfg.Engine, canvas, canvas,
		interaction.WithLogger(s.log),
		interaction.WithObserver(s),
		interaction.WithCursorSink(s),
		interaction.WithFrameScheduler(frames),
		interaction.WithExecutor(s.exec),
		interaction.WithContext(ctx),
	)
	s.engine.Attach(s)

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			return
		}
	}
}

// post queues fn on the session loop. It reports false once the session has
// stopped.
func (s *Session) post(fn func()) bool {
	select {
	case s.tasks <- fn:
		return true
	case <-s.quit:
		return false
	}
}

// run executes fn on the session loop and waits for it.
func (s *Session) run(fn func()) bool {
	finished := make(chan struct{})
	if !s.post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-s.done:
		return false
	}
}

// HandleMessage feeds a client message to the engine.
func (s *Session) HandleMessage(msg *Message) error {
	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode pointer payload: %w", err)
		}
		ev := p.Event()
		kind := msg.Type
		s.post(func() { s.dispatch(kind, ev) })

	case TypePointerCancel:
		s.post(func() { s.dispatch(TypePointerCancel, interaction.PointerEvent{}) })

	case TypeSelectionSet:
		var p SelectionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode selection payload: %w", err)
		}
		s.post(func() {
			s.engine.SetSelection(p.IDs)
			if s.onSelect != nil {
				s.onSelect(s.engine.Selection())
			}
			s.sendState()
		})

	default:
		return fmt.Errorf("unknown session message %q", msg.Type)
	}
	return nil
}

func (s *Session) dispatch(kind string, ev interaction.PointerEvent) {
	if s.handler == nil {
		return
	}
	switch kind {
	case TypePointerDown:
		s.handler.PointerDown(ev)
	case TypePointerMove:
		s.handler.PointerMove(ev)
	case TypePointerUp:
		s.handler.PointerUp(ev)
	case TypePointerCancel:
		s.handler.PointerCancel()
	}
	s.sendState()
}

// State returns the engine state as seen from the session loop.
func (s *Session) State() (interaction.State, bool) {
	var st interaction.State
	ok := s.run(func() { st = s.engine.State() })
	return st, ok
}

// Close abandons any gesture in progress, waits for queued commits and stops
// the loop.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.run(func() {
			s.engine.PointerCancel()
			s.engine.Close()
		})
		close(s.quit)
		<-s.done
		s.exec.Close()
		s.cancel()
	})
}

// Subscribe implements interaction.PointerSource.
func (s *Session) Subscribe(h interaction.PointerHandler) func() {
	s.handler = h
	return func() { s.handler = nil }
}

// SelectionChanged implements interaction.Observer.
func (s *Session) SelectionChanged(ids []string) {
	s.send(TypeSelection, SelectionPayload{IDs: ids})
	if s.onSelect != nil {
		s.onSelect(ids)
	}
}

// CanvasClicked implements interaction.Observer.
func (s *Session) CanvasClicked(p geometry.Point) {
	s.send(TypeCanvasClick, CanvasClickPayload{X: p.X, Y: p.Y})
}

// SetCursor implements interaction.CursorSink.
func (s *Session) SetCursor(c interaction.Cursor) {
	s.send(TypeCursor, CursorPayload{Cursor: c})
}

func (s *Session) sendState() {
	s.send(TypeState, s.engine.State())
}

func (s *Session) send(msgType string, payload any) {
	msg, err := newMessage(msgType, payload)
	if err != nil {
		s.log.Error("marshal message", "type", msgType, "error", err)
		return
	}
	s.out.Send(msg)
}
