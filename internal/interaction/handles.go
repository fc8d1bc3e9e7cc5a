package interaction

import (
	"slices"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

// tracked is the part of an element the handle layout depends on.
type tracked struct {
	present     bool
	bounds      geometry.Rect
	interactive bool
}

func track(el element.Ref) tracked {
	return tracked{present: true, bounds: el.Bounds(), interactive: el.Interactive()}
}

// handleCache keeps the handle layout of the last selection. It is rebuilt
// only when the selection ids or a selected element's geometry change.
type handleCache struct {
	size       float64
	ids        []string
	geometry   map[string]tracked
	handles    []ResizeHandle
	recomputes int
}

func (c *handleCache) get(snapshot []element.Ref, selection []string) []ResizeHandle {
	if !c.valid(snapshot, selection) {
		c.rebuild(snapshot, selection)
	}
	return c.handles
}

func (c *handleCache) valid(snapshot []element.Ref, selection []string) bool {
	if c.geometry == nil || !slices.Equal(c.ids, selection) {
		return false
	}

	present := 0
	for _, t := range c.geometry {
		if t.present {
			present++
		}
	}

	seen := 0
	for _, el := range snapshot {
		t, ok := c.geometry[el.ID]
		if !ok {
			continue
		}
		if t != track(el) {
			return false
		}
		seen++
	}
	return seen == present
}

func (c *handleCache) rebuild(snapshot []element.Ref, selection []string) {
	c.recomputes++
	c.ids = slices.Clone(selection)
	c.geometry = make(map[string]tracked, len(selection))
	c.handles = nil

	for _, id := range selection {
		el, ok := element.Find(snapshot, id)
		if !ok {
			c.geometry[id] = tracked{}
			continue
		}
		c.geometry[id] = track(el)
		if !el.Interactive() {
			continue
		}
		bounds := el.Bounds()
		for _, d := range geometry.Directions {
			c.handles = append(c.handles, ResizeHandle{
				ElementID: el.ID,
				Direction: d,
				Cursor:    ResizeCursor(d),
				Bounds:    geometry.Square(d.Anchor(bounds), c.size),
			})
		}
	}
}
