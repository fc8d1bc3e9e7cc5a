package interaction

import "github.com/reportforge/designer/internal/geometry"

// Cursor is a CSS-style cursor name applied to the interactive surface.
type Cursor string

const (
	CursorDefault   Cursor = "default"
	CursorPointer   Cursor = "pointer"
	CursorGrab      Cursor = "grab"
	CursorGrabbing  Cursor = "grabbing"
	CursorCrosshair Cursor = "crosshair"
)

// ResizeCursor returns the cursor shown over a handle.
func ResizeCursor(d geometry.Direction) Cursor {
	return Cursor(d.String() + "-resize")
}

// hover is what lies under the pointer while no gesture is running.
type hover struct {
	handle   *ResizeHandle
	element  bool
	selected bool
}

// deriveCursor picks the cursor for the current mode and hover target.
func deriveCursor(mode Mode, resizing *ResizeSession, h hover) Cursor {
	switch mode {
	case Dragging:
		return CursorGrabbing
	case Selecting:
		return CursorCrosshair
	case Resizing:
		if resizing != nil {
			return ResizeCursor(resizing.Direction)
		}
	}

	switch {
	case h.handle != nil:
		return h.handle.Cursor
	case h.element && h.selected:
		return CursorGrab
	case h.element:
		return CursorPointer
	default:
		return CursorDefault
	}
}

// cursorManager writes to the sink only when the cursor changes.
type cursorManager struct {
	sink    CursorSink
	current Cursor
	writes  int
}

func newCursorManager(sink CursorSink) *cursorManager {
	return &cursorManager{sink: sink, current: CursorDefault}
}

func (c *cursorManager) apply(next Cursor) {
	if next == c.current {
		return
	}
	c.current = next
	c.writes++
	c.sink.SetCursor(next)
}
