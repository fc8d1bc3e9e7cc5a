package interaction

import (
	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

// ResizeHandle is a hit target on the border of a selected element.
type ResizeHandle struct {
	ElementID string             `json:"elementId"`
	Direction geometry.Direction `json:"direction"`
	Cursor    Cursor             `json:"cursor"`
	Bounds    geometry.Rect      `json:"bounds"`
}

// HitTester resolves what lies under a point. Locked and invisible elements
// are never hit.
type HitTester struct {
	handles handleCache
}

// NewHitTester creates a hit tester with square handles of the given size.
func NewHitTester(handleSize float64) *HitTester {
	return &HitTester{handles: handleCache{size: handleSize}}
}

// Handles returns the cached handle layout for the selection.
func (h *HitTester) Handles(snapshot []element.Ref, selection []string) []ResizeHandle {
	return h.handles.get(snapshot, selection)
}

// Recomputes counts how many times the handle layout was rebuilt.
func (h *HitTester) Recomputes() int {
	return h.handles.recomputes
}

// HitTestHandle returns the handle under p. When handles overlap the last one
// enumerated wins.
func (h *HitTester) HitTestHandle(snapshot []element.Ref, selection []string, p geometry.Point) (ResizeHandle, bool) {
	var (
		hit   ResizeHandle
		found bool
	)
	for _, handle := range h.handles.get(snapshot, selection) {
		if handle.Bounds.ContainsHalfOpen(p) {
			hit = handle
			found = true
		}
	}
	return hit, found
}

// HitTestElement returns the topmost interactive element containing p.
func (h *HitTester) HitTestElement(snapshot []element.Ref, p geometry.Point) (element.Ref, bool) {
	// Traverse in reverse order (front to back) to get topmost hit
	for i := len(snapshot) - 1; i >= 0; i-- {
		el := snapshot[i]
		if el.Interactive() && el.Bounds().Contains(p) {
			return el, true
		}
	}
	return element.Ref{}, false
}

// StackAt returns every interactive element containing p, topmost first.
func (h *HitTester) StackAt(snapshot []element.Ref, p geometry.Point) []element.Ref {
	var stack []element.Ref
	for i := len(snapshot) - 1; i >= 0; i-- {
		el := snapshot[i]
		if el.Interactive() && el.Bounds().Contains(p) {
			stack = append(stack, el)
		}
	}
	return stack
}

// HitTestElementsInRect returns interactive elements intersecting r, in paint
// order. Touching edges count as a match.
func (h *HitTester) HitTestElementsInRect(snapshot []element.Ref, r geometry.Rect) []element.Ref {
	var hits []element.Ref
	for _, el := range snapshot {
		if el.Interactive() && r.Intersects(el.Bounds()) {
			hits = append(hits, el)
		}
	}
	return hits
}
