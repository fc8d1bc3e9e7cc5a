package interaction

import (
	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

// armDrag prepares a move of ids that becomes active once the pointer leaves
// the drag threshold. Locked, hidden and missing elements are left out.
func (e *Engine) armDrag(ids []string, snapshot []element.Ref, p geometry.Point) {
	ds := &DragSession{
		StartPoint:     p,
		StartPositions: make(map[string]geometry.Point, len(ids)),
	}
	for _, id := range ids {
		el, ok := element.Find(snapshot, id)
		if !ok || !el.Interactive() {
			continue
		}
		ds.ElementIDs = append(ds.ElementIDs, id)
		ds.StartPositions[id] = el.Position
	}
	if len(ds.ElementIDs) == 0 {
		return
	}
	if err := e.machine.transition(Idle, ds); err != nil {
		e.log.Debug("drag not armed", "error", err)
	}
}

// checkDragThreshold promotes an armed drag to Dragging. It reports whether
// the drag is now active.
func (e *Engine) checkDragThreshold(ds *DragSession, p geometry.Point) bool {
	if p.Distance(ds.StartPoint) <= e.cfg.DragThreshold {
		return false
	}
	if err := e.machine.transition(Dragging, ds); err != nil {
		e.log.Debug("drag not started", "error", err)
		return false
	}
	ds.Active = true
	e.log.Debug("drag started", "elements", len(ds.ElementIDs))
	return true
}

func (e *Engine) moveDrag(ds *DragSession, p geometry.Point) {
	ds.CurrentOffset = p.Sub(ds.StartPoint)
	updates := ds.updates()
	e.updates.Push(func() {
		e.commitPositions(updates, false)
	}, false)
}

// finishDrag commits the last offset of an active drag. An armed drag that
// never crossed the threshold was a click and commits nothing.
func (e *Engine) finishDrag(ds *DragSession) {
	if !ds.Active {
		e.updates.Cancel()
		return
	}
	updates := ds.updates()
	e.updates.Push(func() {
		e.commitPositions(updates, true)
	}, true)
}

// revertDrag moves an active drag back to where it started.
func (e *Engine) revertDrag(ds *DragSession) {
	if !ds.Active {
		e.updates.Cancel()
		return
	}
	updates := make([]element.PositionUpdate, 0, len(ds.ElementIDs))
	for _, id := range ds.ElementIDs {
		updates = append(updates, element.PositionUpdate{ElementID: id, NewPosition: ds.StartPositions[id]})
	}
	e.updates.Push(func() {
		e.commitPositions(updates, true)
	}, true)
}

// commitPositions writes a move through the batch path when more than one
// element moves.
func (e *Engine) commitPositions(updates []element.PositionUpdate, final bool) {
	e.commits.submit(func() {
		var err error
		if len(updates) == 1 {
			err = e.committer.MoveElement(e.ctx, updates[0].ElementID, updates[0].NewPosition)
		} else {
			err = e.committer.BatchUpdatePositions(e.ctx, updates)
		}
		if err == nil {
			return
		}
		if final {
			e.log.Warn("drag commit failed", "elements", len(updates), "error", err)
		} else {
			e.log.Debug("drag update failed, next frame retries", "elements", len(updates), "error", err)
		}
	}, final)
}

func (ds *DragSession) updates() []element.PositionUpdate {
	updates := make([]element.PositionUpdate, 0, len(ds.ElementIDs))
	for _, id := range ds.ElementIDs {
		start, ok := ds.StartPositions[id]
		if !ok {
			continue
		}
		updates = append(updates, element.PositionUpdate{
			ElementID:   id,
			NewPosition: start.Add(ds.CurrentOffset),
		})
	}
	return updates
}
