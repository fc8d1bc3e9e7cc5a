//go:build js && wasm

package main

import (
	"encoding/json"
	"log/slog"
	"syscall/js"

	"github.com/reportforge/designer/internal/geometry"
	"github.com/reportforge/designer/internal/interaction"
)

var (
	eng      *interaction.Engine
	exec     *interaction.SerialExecutor
	viewport = geometry.Identity()
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("attach", js.FuncOf(attach))
	api.Set("detach", js.FuncOf(detach))
	api.Set("setViewport", js.FuncOf(setViewport))
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("pointerCancel", js.FuncOf(pointerCancel))
	api.Set("setSelection", js.FuncOf(setSelection))

	// --- Queries (frontend ← engine) ---
	api.Set("getState", js.FuncOf(getState))
	api.Set("getSelection", js.FuncOf(getSelection))

	js.Global().Set("reportCanvas", api)
	js.Global().Set("reportCanvasReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// attach(canvasElement, callbacks[, config]) creates the engine for a canvas.
// callbacks supplies getAllElements, onElementMove, onBatchUpdatePositions,
// onElementResize, onElementsSelect and onCanvasClick. config may set
// dragThreshold, handleSize, minSize, cycleRadius and cycleTimeoutMs.
func attach(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(map[string]any{"error": "attach(canvas, callbacks) needs two arguments"})
	}
	teardown()

	canvas := args[0]
	h := host{callbacks: args[1]}

	cfg := interaction.DefaultConfig()
	if len(args) > 2 && args[2].Type() == js.TypeObject {
		raw := js.Global().Get("JSON").Call("stringify", args[2]).String()
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return js.ValueOf(map[string]any{"error": err.Error()})
		}
	}

	exec = interaction.NewSerialExecutor(64)
	eng = interaction.New(cfg, h, h,
		interaction.WithLogger(slog.Default()),
		interaction.WithObserver(h),
		interaction.WithCursorSink(styleCursor{el: canvas}),
		interaction.WithFrameScheduler(animationFrames{}),
		interaction.WithExecutor(exec),
	)
	eng.Attach(domPointerSource{el: canvas, viewport: &viewport})

	return js.ValueOf(map[string]any{"ok": true})
}

func detach(this js.Value, args []js.Value) any {
	teardown()
	return nil
}

func teardown() {
	if eng != nil {
		eng.Close()
		eng = nil
	}
	if e := exec; e != nil {
		exec = nil
		// Queued commits may wait on host promises, which need the event loop.
		go e.Close()
	}
}

// setViewport(zoom, panX, panY) describes how the canvas is shown on screen.
func setViewport(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return nil
	}
	viewport = geometry.Viewport(args[0].Float(), args[1].Float(), args[2].Float())
	return nil
}

// pointerEvent reads (x, y[, modifiers]) in canvas coordinates.
func pointerEvent(args []js.Value) (interaction.PointerEvent, bool) {
	if len(args) < 2 {
		return interaction.PointerEvent{}, false
	}
	ev := interaction.PointerEvent{
		Point: geometry.Point{X: args[0].Float(), Y: args[1].Float()},
	}
	if len(args) > 2 && args[2].Type() == js.TypeObject {
		m := args[2]
		ev.Modifiers = interaction.Modifiers{
			Ctrl:  m.Get("ctrl").Truthy(),
			Shift: m.Get("shift").Truthy(),
			Alt:   m.Get("alt").Truthy(),
			Meta:  m.Get("meta").Truthy(),
		}
	}
	return ev, true
}

func pointerDown(this js.Value, args []js.Value) any {
	if ev, ok := pointerEvent(args); ok && eng != nil {
		eng.PointerDown(ev)
	}
	return nil
}

func pointerMove(this js.Value, args []js.Value) any {
	if ev, ok := pointerEvent(args); ok && eng != nil {
		eng.PointerMove(ev)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) any {
	if ev, ok := pointerEvent(args); ok && eng != nil {
		eng.PointerUp(ev)
	}
	return nil
}

func pointerCancel(this js.Value, args []js.Value) any {
	if eng != nil {
		eng.PointerCancel()
	}
	return nil
}

func setSelection(this js.Value, args []js.Value) any {
	if eng == nil {
		return nil
	}
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		eng.SetSelection(nil)
		return nil
	}

	arr := args[0]
	length := arr.Length()
	ids := make([]string, length)
	for i := 0; i < length; i++ {
		ids[i] = arr.Index(i).String()
	}
	eng.SetSelection(ids)
	return nil
}

// getState returns the engine state as a JSON string.
func getState(this js.Value, args []js.Value) any {
	if eng == nil {
		return js.ValueOf("null")
	}
	data, err := json.Marshal(eng.State())
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) any {
	if eng == nil {
		return js.ValueOf("[]")
	}
	data, _ := json.Marshal(eng.Selection())
	return js.ValueOf(string(data))
}
