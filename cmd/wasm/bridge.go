//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"syscall/js"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
	"github.com/reportforge/designer/internal/interaction"
)

// host wraps the callbacks object handed to reportCanvas.attach.
type host struct {
	callbacks js.Value
}

func (h host) fn(name string) (js.Value, bool) {
	f := h.callbacks.Get(name)
	return f, f.Type() == js.TypeFunction
}

// Elements implements interaction.ElementSource by calling getAllElements.
func (h host) Elements() []element.Ref {
	f, ok := h.fn("getAllElements")
	if !ok {
		return nil
	}
	raw := js.Global().Get("JSON").Call("stringify", f.Invoke())
	var elements []element.Ref
	if err := json.Unmarshal([]byte(raw.String()), &elements); err != nil {
		slog.Warn("decode elements", "error", err)
		return nil
	}
	return elements
}

func (h host) MoveElement(ctx context.Context, id string, pos geometry.Point) error {
	return h.call(ctx, "onElementMove", id, pos.X, pos.Y)
}

func (h host) BatchUpdatePositions(ctx context.Context, updates []element.PositionUpdate) error {
	data, err := json.Marshal(updates)
	if err != nil {
		return fmt.Errorf("marshal updates: %w", err)
	}
	list := js.Global().Get("JSON").Call("parse", string(data))
	return h.call(ctx, "onBatchUpdatePositions", list)
}

func (h host) ResizeElement(ctx context.Context, id string, size geometry.Size, pos geometry.Point) error {
	return h.call(ctx, "onElementResize", id, size.Width, size.Height, pos.X, pos.Y)
}

// call invokes a host callback and, when it returns a promise, waits for it
// to settle. It runs on the commit executor, never on the JS event loop.
func (h host) call(ctx context.Context, name string, args ...any) error {
	f, ok := h.fn(name)
	if !ok {
		return fmt.Errorf("callback %s not provided", name)
	}
	result := f.Invoke(args...)
	if result.Type() != js.TypeObject || result.Get("then").Type() != js.TypeFunction {
		return nil
	}

	done := make(chan error, 1)
	var onResolve, onReject js.Func
	onResolve = js.FuncOf(func(this js.Value, args []js.Value) any {
		done <- nil
		return nil
	})
	onReject = js.FuncOf(func(this js.Value, args []js.Value) any {
		msg := "rejected"
		if len(args) > 0 {
			msg = js.Global().Get("String").Invoke(args[0]).String()
		}
		done <- errors.New(msg)
		return nil
	})
	defer onResolve.Release()
	defer onReject.Release()

	result.Call("then", onResolve, onReject)

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectionChanged implements interaction.Observer.
func (h host) SelectionChanged(ids []string) {
	f, ok := h.fn("onElementsSelect")
	if !ok {
		return
	}
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = id
	}
	f.Invoke(js.ValueOf(list))
}

func (h host) CanvasClicked(p geometry.Point) {
	if f, ok := h.fn("onCanvasClick"); ok {
		f.Invoke(p.X, p.Y)
	}
}

// styleCursor writes the cursor to the canvas element's style.
type styleCursor struct {
	el js.Value
}

func (s styleCursor) SetCursor(c interaction.Cursor) {
	s.el.Get("style").Set("cursor", string(c))
}

// animationFrames schedules frame callbacks with requestAnimationFrame.
type animationFrames struct{}

func (animationFrames) RequestFrame(fn func()) func() {
	released := false
	var cb js.Func
	cb = js.FuncOf(func(this js.Value, args []js.Value) any {
		released = true
		cb.Release()
		fn()
		return nil
	})
	id := js.Global().Call("requestAnimationFrame", cb)
	return func() {
		if released {
			return
		}
		released = true
		js.Global().Call("cancelAnimationFrame", id)
		cb.Release()
	}
}

// domPointerSource listens for pointer events on a canvas element and
// converts client coordinates to canvas space through the current viewport.
type domPointerSource struct {
	el       js.Value
	viewport *geometry.Matrix2D
}

func (d domPointerSource) event(ev js.Value) interaction.PointerEvent {
	box := d.el.Call("getBoundingClientRect")
	screen := geometry.Point{
		X: ev.Get("clientX").Float() - box.Get("left").Float(),
		Y: ev.Get("clientY").Float() - box.Get("top").Float(),
	}
	return interaction.PointerEvent{
		Point: d.viewport.Invert().Apply(screen),
		Modifiers: interaction.Modifiers{
			Ctrl:  ev.Get("ctrlKey").Bool(),
			Shift: ev.Get("shiftKey").Bool(),
			Alt:   ev.Get("altKey").Bool(),
			Meta:  ev.Get("metaKey").Bool(),
		},
	}
}

func (d domPointerSource) Subscribe(h interaction.PointerHandler) func() {
	listeners := map[string]js.Func{
		"pointerdown": js.FuncOf(func(this js.Value, args []js.Value) any {
			ev := args[0]
			if ev.Get("button").Int() != 0 {
				return nil
			}
			d.el.Call("setPointerCapture", ev.Get("pointerId"))
			h.PointerDown(d.event(ev))
			return nil
		}),
		"pointermove": js.FuncOf(func(this js.Value, args []js.Value) any {
			h.PointerMove(d.event(args[0]))
			return nil
		}),
		"pointerup": js.FuncOf(func(this js.Value, args []js.Value) any {
			h.PointerUp(d.event(args[0]))
			return nil
		}),
		"pointercancel": js.FuncOf(func(this js.Value, args []js.Value) any {
			h.PointerCancel()
			return nil
		}),
	}
	for name, fn := range listeners {
		d.el.Call("addEventListener", name, fn)
	}

	return func() {
		for name, fn := range listeners {
			d.el.Call("removeEventListener", name, fn)
			fn.Release()
		}
	}
}
