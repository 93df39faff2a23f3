//go:build js && wasm

package platform

import (
	"fmt"
	"syscall/js"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

// CanvasWindow drives an HTML canvas. Frames are paced by
// requestAnimationFrame, which SwapBuffers waits on.
type CanvasWindow struct {
	canvasID string
	canvas   js.Value
	events   *EventQueue
	input    *core.InputState
	width    int
	height   int
	closed   bool
	frame    chan struct{}
	handlers []listener
}

type listener struct {
	target js.Value
	event  string
	fn     js.Func
}

// NewWindow attaches to the canvas named by config.CanvasID and sizes it
// to the requested dimensions.
func NewWindow(config WindowConfig) (*CanvasWindow, error) {
	canvas := js.Global().Get("document").Call("getElementById", config.CanvasID)
	if canvas.IsNull() || canvas.IsUndefined() {
		return nil, fmt.Errorf("%w: canvas '%s' not found", ErrWindowCreation, config.CanvasID)
	}
	canvas.Set("width", config.Width)
	canvas.Set("height", config.Height)
	if config.Title != "" {
		js.Global().Get("document").Set("title", config.Title)
	}

	w := &CanvasWindow{
		canvasID: config.CanvasID,
		canvas:   canvas,
		events:   NewEventQueue(),
		input:    core.NewInputState(),
		width:    config.Width,
		height:   config.Height,
		frame:    make(chan struct{}, 1),
	}
	w.listen(js.Global(), "keydown", w.onKey(true))
	w.listen(js.Global(), "keyup", w.onKey(false))
	w.listen(canvas, "mousedown", w.onButton(true))
	w.listen(canvas, "mouseup", w.onButton(false))
	w.listen(canvas, "mousemove", w.onMouseMove)
	w.listen(canvas, "wheel", w.onWheel)
	return w, nil
}

func (w *CanvasWindow) listen(target js.Value, event string, fn func(this js.Value, args []js.Value) any) {
	l := listener{target: target, event: event, fn: js.FuncOf(fn)}
	w.handlers = append(w.handlers, l)
	target.Call("addEventListener", event, l.fn)
}

func (w *CanvasWindow) onKey(pressed bool) func(js.Value, []js.Value) any {
	return func(_ js.Value, args []js.Value) any {
		e := args[0]
		if e.Get("repeat").Bool() {
			return nil
		}
		// keyCode carries the same virtual key values as core.KeyCode
		w.events.Push(Event{Kind: EventKey, Key: core.KeyCode(e.Get("keyCode").Int()), Pressed: pressed})
		return nil
	}
}

func (w *CanvasWindow) onButton(pressed bool) func(js.Value, []js.Value) any {
	return func(_ js.Value, args []js.Value) any {
		var b core.Button
		switch args[0].Get("button").Int() {
		case 0:
			b = core.BUTTON_LEFT
		case 1:
			b = core.BUTTON_MIDDLE
		case 2:
			b = core.BUTTON_RIGHT
		default:
			return nil
		}
		w.events.Push(Event{Kind: EventButton, Button: b, Pressed: pressed})
		return nil
	}
}

func (w *CanvasWindow) onMouseMove(_ js.Value, args []js.Value) any {
	e := args[0]
	w.events.Push(Event{Kind: EventCursor, X: e.Get("offsetX").Float(), Y: e.Get("offsetY").Float()})
	return nil
}

func (w *CanvasWindow) onWheel(_ js.Value, args []js.Value) any {
	// browsers report positive deltaY when scrolling down
	w.events.Push(Event{Kind: EventScroll, Y: -args[0].Get("deltaY").Float() / 100})
	return nil
}

func (w *CanvasWindow) GraphicsDriver() (gl.Driver, error) {
	return gl.NewWebGLDriver(w.canvasID)
}

func (w *CanvasWindow) ShouldClose() bool {
	return w.closed
}

func (w *CanvasWindow) Close() {
	w.closed = true
}

func (w *CanvasWindow) PollEvents() bool {
	cw, ch := w.canvas.Get("clientWidth").Int(), w.canvas.Get("clientHeight").Int()
	if cw > 0 && ch > 0 && (cw != w.width || ch != w.height) {
		w.canvas.Set("width", cw)
		w.canvas.Set("height", ch)
		w.events.Push(Event{Kind: EventResize, Width: cw, Height: ch})
	}
	width, height, resized := w.events.Drain(w.input)
	if resized {
		w.width, w.height = width, height
	}
	return resized
}

// SwapBuffers blocks until the browser's next animation frame. Blocking
// the goroutine hands control back to the JS event loop.
func (w *CanvasWindow) SwapBuffers() {
	var cb js.Func
	cb = js.FuncOf(func(js.Value, []js.Value) any {
		cb.Release()
		w.frame <- struct{}{}
		return nil
	})
	js.Global().Call("requestAnimationFrame", cb)
	<-w.frame
}

func (w *CanvasWindow) Input() *core.InputState {
	return w.input
}

func (w *CanvasWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *CanvasWindow) Shutdown() error {
	for _, l := range w.handlers {
		l.target.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	w.handlers = nil
	return nil
}
