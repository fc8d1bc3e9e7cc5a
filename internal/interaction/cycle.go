package interaction

import (
	"slices"
	"time"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

// cycleContext remembers successive alt-clicks on a stack of overlapping
// elements so each click selects the next one down.
type cycleContext struct {
	point geometry.Point
	stack []string
	index int
	at    time.Time
}

// pickFromStack returns the element an alt-click selects from stack, which is
// ordered topmost first and holds at least two elements.
func (e *Engine) pickFromStack(stack []element.Ref, p geometry.Point) element.Ref {
	ids := make([]string, len(stack))
	for i, el := range stack {
		ids[i] = el.ID
	}
	now := e.clock()

	c := e.cycle
	if c == nil ||
		p.Distance(c.point) > e.cfg.CycleRadius ||
		now.Sub(c.at) > e.cfg.CycleTimeout ||
		!slices.Equal(ids, c.stack) {
		// the topmost element is what a plain click selects, so start below it
		e.cycle = &cycleContext{point: p, stack: ids, index: 1, at: now}
		return stack[1]
	}

	c.index = (c.index + 1) % len(stack)
	c.point = p
	c.at = now
	return stack[c.index]
}
