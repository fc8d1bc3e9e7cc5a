package interaction

import (
	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

// ResizeModifiers are the keyboard modifiers that alter resize math.
type ResizeModifiers struct {
	AspectLock  bool // Shift: keep the starting width/height ratio (corner handles only)
	CenterScale bool // Alt: keep the starting center fixed
}

func resizeModifiers(m Modifiers) ResizeModifiers {
	return ResizeModifiers{AspectLock: m.Shift, CenterScale: m.Alt}
}

// ComputeResize returns the size and position for dragging handle d by delta
// from the starting geometry. The minimum size is enforced last.
func ComputeResize(d geometry.Direction, delta geometry.Point, size geometry.Size, pos geometry.Point, mods ResizeModifiers, minSize float64) (geometry.Size, geometry.Point) {
	w, h := size.Width, size.Height
	x, y := pos.X, pos.Y

	if d.MovesLeft() {
		w = size.Width - delta.X
		x = pos.X + delta.X
	} else if d == geometry.NE || d == geometry.SE || d == geometry.E {
		w = size.Width + delta.X
	}
	if d.MovesTop() {
		h = size.Height - delta.Y
		y = pos.Y + delta.Y
	} else if d == geometry.SW || d == geometry.SE || d == geometry.S {
		h = size.Height + delta.Y
	}

	if mods.AspectLock && d.IsCorner() && size.Height != 0 && h != 0 {
		ratio := size.Width / size.Height
		current := w / h
		switch {
		case current > ratio:
			w = h * ratio
			if d.MovesLeft() {
				x = pos.X + (size.Width - w)
			}
		case current < ratio:
			h = w / ratio
			if d.MovesTop() {
				y = pos.Y + (size.Height - h)
			}
		}
	}

	center := geometry.RectFrom(pos, size).Center()
	if mods.CenterScale {
		x = center.X - w/2
		y = center.Y - h/2
	}

	if w < minSize {
		w = minSize
		switch {
		case mods.CenterScale:
			x = center.X - w/2
		case d.MovesLeft():
			x = pos.X + size.Width - w
		}
	}
	if h < minSize {
		h = minSize
		switch {
		case mods.CenterScale:
			y = center.Y - h/2
		case d.MovesTop():
			y = pos.Y + size.Height - h
		}
	}

	return geometry.Size{Width: w, Height: h}, geometry.Point{X: x, Y: y}
}

func (e *Engine) startResize(handle ResizeHandle, snapshot []element.Ref, p geometry.Point) {
	el, ok := element.Find(snapshot, handle.ElementID)
	if !ok || !el.Interactive() {
		return
	}

	rs := &ResizeSession{
		ElementID:       el.ID,
		Direction:       handle.Direction,
		StartPoint:      p,
		InitialSize:     el.Size,
		InitialPosition: el.Position,
		Size:            el.Size,
		Position:        el.Position,
	}
	if err := e.machine.transition(Resizing, rs); err != nil {
		e.log.Debug("resize not started", "error", err)
		return
	}
	e.log.Debug("resize started", "element", el.ID, "direction", handle.Direction.String())
}

func (e *Engine) moveResize(rs *ResizeSession, ev PointerEvent) {
	size, pos := ComputeResize(
		rs.Direction,
		ev.Point.Sub(rs.StartPoint),
		rs.InitialSize,
		rs.InitialPosition,
		resizeModifiers(ev.Modifiers),
		e.cfg.MinSize,
	)
	rs.Size = size
	rs.Position = pos

	id := rs.ElementID
	e.updates.Push(func() {
		e.commits.submit(func() {
			if err := e.committer.ResizeElement(e.ctx, id, size, pos); err != nil {
				e.log.Warn("resize update failed", "element", id, "error", err)
			}
		}, false)
	}, false)
}

// finishResize commits the last geometry and rolls back to the starting
// geometry if that commit fails.
func (e *Engine) finishResize(rs *ResizeSession) {
	id := rs.ElementID
	size, pos := rs.Size, rs.Position
	initialSize, initialPos := rs.InitialSize, rs.InitialPosition

	e.updates.Push(func() {
		e.commits.submit(func() {
			err := e.committer.ResizeElement(e.ctx, id, size, pos)
			if err == nil {
				return
			}
			e.log.Warn("resize commit failed, rolling back", "element", id, "error", err)
			if err := e.committer.ResizeElement(e.ctx, id, initialSize, initialPos); err != nil {
				e.log.Error("resize rollback failed", "element", id, "error", err)
			}
		}, true)
	}, true)
}

// revertResize restores the starting geometry without trying the last one.
func (e *Engine) revertResize(rs *ResizeSession) {
	id := rs.ElementID
	size, pos := rs.InitialSize, rs.InitialPosition
	e.updates.Push(func() {
		e.commits.submit(func() {
			if err := e.committer.ResizeElement(e.ctx, id, size, pos); err != nil {
				e.log.Warn("resize revert failed", "element", id, "error", err)
			}
		}, true)
	}, true)
}
