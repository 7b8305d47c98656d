package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/ember/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the window. Its callbacks translate window system input into
// engine events and input state; they run inside PumpMessages.
type Platform struct {
	Window *glfw.Window

	events    *core.EventQueue
	input     *core.InputState
	startTime float64
	quitSent  bool
}

func New(events *core.EventQueue, input *core.InputState) *Platform {
	return &Platform{
		events: events,
		input:  input,
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw found no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.startTime = glfw.GetTime()
	return nil
}

func (p *Platform) Shutdown() {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
}

// PumpMessages runs the pending window callbacks.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// WaitMessages blocks until an event arrives or timeout seconds pass. Used
// while the window is minimized.
func (p *Platform) WaitMessages(timeout float64) {
	glfw.WaitEventsTimeout(timeout)
}

// RequiredExtensions lists the instance extensions the window surface needs.
func (p *Platform) RequiredExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// FramebufferSize is the drawable size in pixels, zero while minimized.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

// GetAbsoluteTime returns the seconds since Startup.
func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

func (p *Platform) postQuit() {
	if p.quitSent {
		return
	}
	p.quitSent = true
	p.events.Post(core.Event{Code: core.EventQuit})
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	code := keyCode(key)
	p.input.ProcessKey(code, action == glfw.Press)
	if code == core.KEY_ESCAPE && action == glfw.Press {
		p.postQuit()
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
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
	p.input.ProcessButton(b, action == glfw.Press)
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.input.ProcessMouseMove(xpos, ypos)
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	p.input.ProcessMouseWheel(yoff)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Post(core.Event{
		Code:   core.EventResized,
		Width:  uint32(max(width, 0)),
		Height: uint32(max(height, 0)),
	})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.postQuit()
}

func keyCode(key glfw.Key) core.KeyCode {
	switch key {
	case glfw.KeyEscape:
		return core.KEY_ESCAPE
	case glfw.KeySpace:
		return core.KEY_SPACE
	case glfw.KeyLeft:
		return core.KEY_LEFT
	case glfw.KeyUp:
		return core.KEY_UP
	case glfw.KeyRight:
		return core.KEY_RIGHT
	case glfw.KeyDown:
		return core.KEY_DOWN
	case glfw.KeyW:
		return core.KEY_W
	case glfw.KeyA:
		return core.KEY_A
	case glfw.KeyS:
		return core.KEY_S
	case glfw.KeyD:
		return core.KEY_D
	case glfw.KeyR:
		return core.KEY_R
	}
	return core.KEY_UNKNOWN
}
