package element

import (
	"encoding/json"

	"github.com/reportforge/designer/internal/geometry"
)

type Kind string

const (
	KindText  Kind = "text"
	KindField Kind = "field"
	KindImage Kind = "image"
	KindLine  Kind = "line"
	KindRect  Kind = "rect"
)

// Ref is an immutable view of an element on the template canvas.
// Slice order of a snapshot is paint order: later entries are drawn on top.
type Ref struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Position geometry.Point  `json:"position"`
	Size     geometry.Size   `json:"size"`
	Visible  bool            `json:"visible"`
	Locked   bool            `json:"locked"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Bounds returns the element's axis-aligned box.
func (r Ref) Bounds() geometry.Rect {
	return geometry.RectFrom(r.Position, r.Size)
}

// Interactive reports whether pointer gestures may target the element.
func (r Ref) Interactive() bool {
	return r.Visible && !r.Locked
}

// PositionUpdate is one entry of a batched move.
type PositionUpdate struct {
	ElementID   string         `json:"elementId"`
	NewPosition geometry.Point `json:"newPosition"`
}

// Find returns the element with the given id from a snapshot.
func Find(snapshot []Ref, id string) (Ref, bool) {
	for _, el := range snapshot {
		if el.ID == id {
			return el, true
		}
	}
	return Ref{}, false
}
