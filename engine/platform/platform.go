package platform

import (
	"errors"

	"github.com/spaghettifunk/ember/engine/containers"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

// eventQueueSize bounds the events buffered between two PollEvents calls.
const eventQueueSize = 256

var ErrWindowCreation = errors.New("failed to create window")

// WindowConfig describes the window created at engine start.
type WindowConfig struct {
	Title  string
	X      int
	Y      int
	Width  int
	Height int
	// CanvasID names the HTML canvas used by the browser build.
	CanvasID string
	VSync    bool
}

// Window is the windowing boundary the application loop runs against.
// All methods must be called from the thread that created the window.
type Window interface {
	// GraphicsDriver returns the GPU driver bound to the window's context.
	GraphicsDriver() (gl.Driver, error)
	ShouldClose() bool
	// Close requests the window to close at the end of the current frame.
	Close()
	// PollEvents drains pending events into the input state and reports
	// whether the framebuffer was resized since the last call.
	PollEvents() (resized bool)
	SwapBuffers()
	Input() *core.InputState
	Size() (width, height int)
	Shutdown() error
}

type EventKind uint8

const (
	EventKey EventKind = iota
	EventButton
	EventCursor
	EventScroll
	EventResize
)

// Event is a raw window event recorded by a callback.
type Event struct {
	Kind    EventKind
	Key     core.KeyCode
	Button  core.Button
	Pressed bool
	X       float64
	Y       float64
	Width   int
	Height  int
}

// EventQueue buffers callback events until the next poll.
type EventQueue struct {
	queue   *containers.RingQueue[Event]
	dropped int
}

func NewEventQueue() *EventQueue {
	return &EventQueue{queue: containers.NewRingQueue[Event](eventQueueSize)}
}

// Push records an event. Events arriving while the queue is full are dropped.
func (q *EventQueue) Push(e Event) {
	if err := q.queue.Enqueue(e); err != nil {
		q.dropped++
	}
}

// Drain applies every queued event to the input state, in arrival order.
// It returns the last size seen and whether a resize happened.
func (q *EventQueue) Drain(input *core.InputState) (width, height int, resized bool) {
	if q.dropped > 0 {
		core.LogWarn("dropped %d window events", q.dropped)
		q.dropped = 0
	}
	for !q.queue.IsEmpty() {
		e, err := q.queue.Dequeue()
		if err != nil {
			break
		}
		switch e.Kind {
		case EventKey:
			input.ProcessKey(e.Key, e.Pressed)
		case EventButton:
			input.ProcessButton(e.Button, e.Pressed)
		case EventCursor:
			input.ProcessMouseMove(e.X, e.Y)
		case EventScroll:
			input.ProcessMouseWheel(e.Y)
		case EventResize:
			width, height, resized = e.Width, e.Height, true
		}
	}
	return width, height, resized
}

func (q *EventQueue) Len() int {
	return q.queue.Len()
}
