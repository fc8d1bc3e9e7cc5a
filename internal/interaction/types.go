package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
)

// ElementSource supplies a fresh snapshot of every element in paint order.
type ElementSource interface {
	Elements() []element.Ref
}

// Committer persists geometry changes requested by the engine. Calls are made
// from the engine's Executor, never from the pointer handlers themselves.
type Committer interface {
	MoveElement(ctx context.Context, id string, pos geometry.Point) error
	BatchUpdatePositions(ctx context.Context, updates []element.PositionUpdate) error
	ResizeElement(ctx context.Context, id string, size geometry.Size, pos geometry.Point) error
}

// Observer receives selection replacements and plain canvas clicks.
type Observer interface {
	SelectionChanged(ids []string)
	CanvasClicked(p geometry.Point)
}

// CursorSink applies a cursor to the interactive surface.
type CursorSink interface {
	SetCursor(c Cursor)
}

// Modifiers holds the keyboard modifier state of a pointer event.
type Modifiers struct {
	Ctrl  bool `json:"ctrl"`
	Shift bool `json:"shift"`
	Alt   bool `json:"alt"`
	Meta  bool `json:"meta"`
}

// PointerEvent is a pointer sample already translated into canvas space.
type PointerEvent struct {
	Point     geometry.Point `json:"point"`
	Modifiers Modifiers      `json:"modifiers"`
}

// PointerHandler consumes pointer events. Engine implements it.
type PointerHandler interface {
	PointerDown(ev PointerEvent)
	PointerMove(ev PointerEvent)
	PointerUp(ev PointerEvent)
	PointerCancel()
}

// PointerSource delivers events of one interactive surface to a handler.
type PointerSource interface {
	Subscribe(h PointerHandler) (unsubscribe func())
}

// Config tunes the engine. Distances are canvas units. In JSON the cycle
// timeout is given in milliseconds as cycleTimeoutMs.
type Config struct {
	DragThreshold float64 `json:"dragThreshold"`
	HandleSize    float64 `json:"handleSize"`
	MinSize       float64 `json:"minSize"`

	// Alt-click cycling through stacked elements.
	CycleRadius  float64       `json:"cycleRadius"`
	CycleTimeout time.Duration `json:"-"`
}

type configJSON struct {
	DragThreshold  float64 `json:"dragThreshold"`
	HandleSize     float64 `json:"handleSize"`
	MinSize        float64 `json:"minSize"`
	CycleRadius    float64 `json:"cycleRadius"`
	CycleTimeoutMS int64   `json:"cycleTimeoutMs"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{
		DragThreshold:  c.DragThreshold,
		HandleSize:     c.HandleSize,
		MinSize:        c.MinSize,
		CycleRadius:    c.CycleRadius,
		CycleTimeoutMS: c.CycleTimeout.Milliseconds(),
	})
}

// UnmarshalJSON overwrites only the fields present in data.
func (c *Config) UnmarshalJSON(data []byte) error {
	raw := configJSON{
		DragThreshold:  c.DragThreshold,
		HandleSize:     c.HandleSize,
		MinSize:        c.MinSize,
		CycleRadius:    c.CycleRadius,
		CycleTimeoutMS: c.CycleTimeout.Milliseconds(),
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode interaction config: %w", err)
	}
	*c = Config{
		DragThreshold: raw.DragThreshold,
		HandleSize:    raw.HandleSize,
		MinSize:       raw.MinSize,
		CycleRadius:   raw.CycleRadius,
		CycleTimeout:  time.Duration(raw.CycleTimeoutMS) * time.Millisecond,
	}
	return nil
}

// DefaultConfig returns the stock editor settings.
func DefaultConfig() Config {
	return Config{
		DragThreshold: 3,
		HandleSize:    8,
		MinSize:       20,
		CycleRadius:   5,
		CycleTimeout:  3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DragThreshold <= 0 {
		c.DragThreshold = def.DragThreshold
	}
	if c.HandleSize <= 0 {
		c.HandleSize = def.HandleSize
	}
	if c.MinSize <= 0 {
		c.MinSize = def.MinSize
	}
	if c.CycleRadius <= 0 {
		c.CycleRadius = def.CycleRadius
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = def.CycleTimeout
	}
	return c
}

type nopObserver struct{}

func (nopObserver) SelectionChanged([]string)     {}
func (nopObserver) CanvasClicked(geometry.Point) {}

type nopCursorSink struct{}

func (nopCursorSink) SetCursor(Cursor) {}
