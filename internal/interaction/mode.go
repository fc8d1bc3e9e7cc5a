package interaction

import (
	"errors"
	"fmt"

	"github.com/reportforge/designer/internal/geometry"
)

// ErrIllegalTransition is returned when a gesture tries to start while another
// one is still in progress.
var ErrIllegalTransition = errors.New("illegal mode transition")

// Mode is the high-level gesture in progress.
type Mode int

const (
	Idle Mode = iota
	Selecting
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// session is the transient state of one gesture.
type session interface {
	kind() Mode
}

// DragSession tracks a pending or active multi-element move.
type DragSession struct {
	ElementIDs     []string
	StartPoint     geometry.Point
	StartPositions map[string]geometry.Point
	CurrentOffset  geometry.Point
	Active         bool
}

func (*DragSession) kind() Mode { return Dragging }

// ResizeSession tracks a single element resize.
type ResizeSession struct {
	ElementID       string
	Direction       geometry.Direction
	StartPoint      geometry.Point
	InitialSize     geometry.Size
	InitialPosition geometry.Point

	// Last computed geometry, committed on pointer-up.
	Size     geometry.Size
	Position geometry.Point
}

func (*ResizeSession) kind() Mode { return Resizing }

// BoxSession tracks a rubber-band selection.
type BoxSession struct {
	StartPoint   geometry.Point
	CurrentPoint geometry.Point
	MatchedIDs   []string

	// Set once the pointer travelled beyond the drag threshold.
	Moved bool
}

func (*BoxSession) kind() Mode { return Selecting }

// Rect returns the normalized selection rectangle.
func (b *BoxSession) Rect() geometry.Rect {
	return geometry.Normalize(b.StartPoint, b.CurrentPoint)
}

// machine owns the current mode and its session. transition is the only
// writer of both fields.
//
// In Idle the only session allowed is an armed (inactive) drag; in any other
// mode the session is non-nil and its kind equals the mode.
type machine struct {
	mode Mode
	sess session
}

func (m *machine) transition(to Mode, s session) error {
	switch {
	case to == Idle && s == nil:
		// always legal: gesture finished or cancelled
	case to == Idle:
		d, ok := s.(*DragSession)
		if !ok || d.Active {
			return fmt.Errorf("%w: idle cannot hold %T", ErrIllegalTransition, s)
		}
		if m.mode != Idle || (m.sess != nil && m.sess != s && !m.armed()) {
			return fmt.Errorf("%w: arm drag from %s", ErrIllegalTransition, m.mode)
		}
	default:
		if s == nil || s.kind() != to {
			return fmt.Errorf("%w: %s needs a matching session", ErrIllegalTransition, to)
		}
		if m.mode != Idle {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.mode, to)
		}
		// an armed drag may only be promoted, not replaced by another gesture
		if m.sess != nil && m.sess != s {
			return fmt.Errorf("%w: pending drag blocks %s", ErrIllegalTransition, to)
		}
	}

	m.mode = to
	m.sess = s
	return nil
}

// armed reports whether an inactive drag is waiting for the threshold.
func (m *machine) armed() bool {
	d, ok := m.sess.(*DragSession)
	return ok && !d.Active
}

// busy reports whether a gesture owns the pointer.
func (m *machine) busy() bool {
	return m.sess != nil && !m.armed()
}

func (m *machine) drag() *DragSession {
	d, _ := m.sess.(*DragSession)
	return d
}

func (m *machine) resize() *ResizeSession {
	r, _ := m.sess.(*ResizeSession)
	return r
}

func (m *machine) box() *BoxSession {
	b, _ := m.sess.(*BoxSession)
	return b
}
