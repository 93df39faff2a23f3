//go:build !js

package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// GLFWWindow is a desktop window with an OpenGL 3.3 core context.
type GLFWWindow struct {
	window *glfw.Window
	events *EventQueue
	input  *core.InputState
	width  int
	height int
}

// NewWindow initializes glfw and opens a window whose GL context is made
// current on the calling thread.
func NewWindow(config WindowConfig) (*GLFWWindow, error) {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return nil, fmt.Errorf("%w: %w", ErrWindowCreation, err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return nil, fmt.Errorf("%w: %w", ErrWindowCreation, err)
	}
	window.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &GLFWWindow{
		window: window,
		events: NewEventQueue(),
		input:  core.NewInputState(),
	}
	w.width, w.height = window.GetFramebufferSize()

	window.SetKeyCallback(w.keyCallback)
	window.SetMouseButtonCallback(w.mouseButtonCallback)
	window.SetCursorPosCallback(w.cursorPosCallback)
	window.SetScrollCallback(w.scrollCallback)
	window.SetFramebufferSizeCallback(w.framebufferSizeCallback)
	window.SetPos(config.X, config.Y)
	window.Show()

	return w, nil
}

func (w *GLFWWindow) GraphicsDriver() (gl.Driver, error) {
	d, err := gl.NewDesktopDriver()
	if err != nil {
		return nil, err
	}
	core.LogInfo("OpenGL version: %s", d.Version())
	return d, nil
}

func (w *GLFWWindow) ShouldClose() bool {
	return w.window.ShouldClose()
}

func (w *GLFWWindow) Close() {
	w.window.SetShouldClose(true)
}

func (w *GLFWWindow) PollEvents() bool {
	glfw.PollEvents()
	width, height, resized := w.events.Drain(w.input)
	if resized {
		w.width, w.height = width, height
	}
	return resized
}

func (w *GLFWWindow) SwapBuffers() {
	w.window.SwapBuffers()
}

func (w *GLFWWindow) Input() *core.InputState {
	return w.input
}

func (w *GLFWWindow) Size() (int, int) {
	return w.width, w.height
}

func (w *GLFWWindow) Shutdown() error {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	glfw.Terminate()
	return nil
}

func (w *GLFWWindow) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code, ok := translateKey(key)
	if !ok {
		return
	}
	w.events.Push(Event{Kind: EventKey, Key: code, Pressed: action == glfw.Press})
}

func (w *GLFWWindow) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	w.events.Push(Event{Kind: EventButton, Button: b, Pressed: action == glfw.Press})
}

func (w *GLFWWindow) cursorPosCallback(_ *glfw.Window, xpos, ypos float64) {
	w.events.Push(Event{Kind: EventCursor, X: xpos, Y: ypos})
}

func (w *GLFWWindow) scrollCallback(_ *glfw.Window, _, yoff float64) {
	w.events.Push(Event{Kind: EventScroll, Y: yoff})
}

func (w *GLFWWindow) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	w.events.Push(Event{Kind: EventResize, Width: width, Height: height})
}

var glfwKeys = map[glfw.Key]core.KeyCode{
	glfw.KeySpace:        core.KEY_SPACE,
	glfw.KeyEscape:       core.KEY_ESCAPE,
	glfw.KeyEnter:        core.KEY_ENTER,
	glfw.KeyTab:          core.KEY_TAB,
	glfw.KeyBackspace:    core.KEY_BACKSPACE,
	glfw.KeyInsert:       core.KEY_INSERT,
	glfw.KeyDelete:       core.KEY_DELETE,
	glfw.KeyRight:        core.KEY_RIGHT,
	glfw.KeyLeft:         core.KEY_LEFT,
	glfw.KeyDown:         core.KEY_DOWN,
	glfw.KeyUp:           core.KEY_UP,
	glfw.KeyPageUp:       core.KEY_PRIOR,
	glfw.KeyPageDown:     core.KEY_NEXT,
	glfw.KeyHome:         core.KEY_HOME,
	glfw.KeyEnd:          core.KEY_END,
	glfw.KeyCapsLock:     core.KEY_CAPITAL,
	glfw.KeyScrollLock:   core.KEY_SCROLL,
	glfw.KeyNumLock:      core.KEY_NUMLOCK,
	glfw.KeyPrintScreen:  core.KEY_SNAPSHOT,
	glfw.KeyPause:        core.KEY_PAUSE,
	glfw.KeyLeftShift:    core.KEY_LSHIFT,
	glfw.KeyRightShift:   core.KEY_RSHIFT,
	glfw.KeyLeftControl:  core.KEY_LCONTROL,
	glfw.KeyRightControl: core.KEY_RCONTROL,
	glfw.KeyLeftAlt:      core.KEY_LMENU,
	glfw.KeyRightAlt:     core.KEY_RMENU,
	glfw.KeySemicolon:    core.KEY_SEMICOLON,
	glfw.KeyEqual:        core.KEY_PLUS,
	glfw.KeyComma:        core.KEY_COMMA,
	glfw.KeyMinus:        core.KEY_MINUS,
	glfw.KeyPeriod:       core.KEY_PERIOD,
	glfw.KeySlash:        core.KEY_SLASH,
	glfw.KeyGraveAccent:  core.KEY_GRAVE,
	glfw.KeyKPMultiply:   core.KEY_MULTIPLY,
	glfw.KeyKPAdd:        core.KEY_ADD,
	glfw.KeyKPSubtract:   core.KEY_SUBTRACT,
	glfw.KeyKPDecimal:    core.KEY_DECIMAL,
	glfw.KeyKPDivide:     core.KEY_DIVIDE,
	glfw.KeyKPEqual:      core.KEY_NUMPAD_EQUAL,
}

func translateKey(key glfw.Key) (core.KeyCode, bool) {
	switch {
	// letters and digits share their ASCII value with the virtual key codes
	case key >= glfw.KeyA && key <= glfw.KeyZ, key >= glfw.Key0 && key <= glfw.Key9:
		return core.KeyCode(key), true
	case key >= glfw.KeyF1 && key <= glfw.KeyF24:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1), true
	case key >= glfw.KeyKP0 && key <= glfw.KeyKP9:
		return core.KEY_NUMPAD0 + core.KeyCode(key-glfw.KeyKP0), true
	}
	code, ok := glfwKeys[key]
	return code, ok
}
