package core

import "sync"

type Button uint8

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key codes the engine reacts to. The platform layer maps window system keys
// onto these.
type KeyCode uint8

const (
	KEY_UNKNOWN KeyCode = iota
	KEY_ESCAPE
	KEY_SPACE
	KEY_LEFT
	KEY_UP
	KEY_RIGHT
	KEY_DOWN
	KEY_W
	KEY_A
	KEY_S
	KEY_D
	KEY_R
	KEY_MAX_KEYS
)

type keyboardState struct {
	Keys [KEY_MAX_KEYS]bool
}

type mouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// InputState is written by window callbacks and read once per tick by the
// game. Update closes a tick: the current state becomes the previous one.
type InputState struct {
	mu sync.Mutex

	KeyboardCurrent  keyboardState
	KeyboardPrevious keyboardState
	MouseCurrent     mouseState
	MousePrevious    mouseState
	scroll           float64
}

func NewInputState() *InputState {
	return &InputState{}
}

func (s *InputState) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.KeyboardPrevious = s.KeyboardCurrent
	s.MousePrevious = s.MouseCurrent
	s.scroll = 0
}

// keyboard input
func (s *InputState) IsKeyDown(key KeyCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.KeyboardCurrent.Keys[key]
}

// WasKeyPressed reports a key that went down during this tick.
func (s *InputState) WasKeyPressed(key KeyCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.KeyboardCurrent.Keys[key] && !s.KeyboardPrevious.Keys[key]
}

func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEY_MAX_KEYS {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.KeyboardCurrent.Keys[key] = pressed
}

// mouse input
func (s *InputState) IsButtonDown(button Button) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MouseCurrent.Buttons[button]
}

func (s *InputState) ProcessButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MouseCurrent.Buttons[button] = pressed
}

func (s *InputState) ProcessMouseMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MouseCurrent.X = x
	s.MouseCurrent.Y = y
}

// MouseDelta is how far the cursor moved during this tick.
func (s *InputState) MouseDelta() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MouseCurrent.X - s.MousePrevious.X, s.MouseCurrent.Y - s.MousePrevious.Y
}

func (s *InputState) ProcessMouseWheel(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scroll += delta
}

// Scroll is the wheel movement accumulated during this tick.
func (s *InputState) Scroll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll
}
