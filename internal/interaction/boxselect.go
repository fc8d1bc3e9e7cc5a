package interaction

import (
	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

func (e *Engine) startBox(p geometry.Point) {
	e.cycle = nil
	e.replaceSelection(nil)

	box := &BoxSession{StartPoint: p, CurrentPoint: p}
	if err := e.machine.transition(Selecting, box); err != nil {
		e.log.Debug("box selection not started", "error", err)
	}
}

// moveBox recomputes the matched elements. The live selection follows the box
// without notifying the observer until the gesture ends.
func (e *Engine) moveBox(box *BoxSession, snapshot []element.Ref, p geometry.Point) {
	box.CurrentPoint = p
	if p.Distance(box.StartPoint) > e.cfg.DragThreshold {
		box.Moved = true
	}

	hits := e.hits.HitTestElementsInRect(snapshot, box.Rect())
	ids := make([]string, len(hits))
	for i, el := range hits {
		ids[i] = el.ID
	}
	box.MatchedIDs = ids
	e.selection = ids
}

func (e *Engine) finishBox(box *BoxSession) {
	e.replaceSelection(box.MatchedIDs)
	if !box.Moved {
		e.observer.CanvasClicked(box.StartPoint)
	}
}
