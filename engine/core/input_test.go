package core

import "testing"

func TestInputKeyEdges(t *testing.T) {
	s := NewInputState()
	s.ProcessKey(KEY_SPACE, true)
	if !s.IsKeyDown(KEY_SPACE) || !s.WasKeyPressed(KEY_SPACE) {
		t.Fatal("space not pressed this tick")
	}
	s.Update()
	if !s.IsKeyDown(KEY_SPACE) || s.WasKeyPressed(KEY_SPACE) {
		t.Fatal("held key reported as a new press")
	}
	s.ProcessKey(KEY_SPACE, false)
	if s.IsKeyDown(KEY_SPACE) {
		t.Fatal("space still down")
	}
	// out of range keys are ignored
	s.ProcessKey(KEY_MAX_KEYS, true)
}

func TestInputMouse(t *testing.T) {
	s := NewInputState()
	s.ProcessMouseMove(10, 20)
	s.Update()
	s.ProcessMouseMove(15, 12)
	s.ProcessButton(BUTTON_LEFT, true)
	s.ProcessMouseWheel(1)
	s.ProcessMouseWheel(0.5)

	dx, dy := s.MouseDelta()
	if dx != 5 || dy != -8 {
		t.Fatalf("delta = %v, %v", dx, dy)
	}
	if !s.IsButtonDown(BUTTON_LEFT) || s.IsButtonDown(BUTTON_RIGHT) {
		t.Fatal("button state")
	}
	if s.Scroll() != 1.5 {
		t.Fatalf("scroll = %v", s.Scroll())
	}
	s.Update()
	if s.Scroll() != 0 {
		t.Fatal("scroll not reset by Update")
	}
	if dx, dy := s.MouseDelta(); dx != 0 || dy != 0 {
		t.Fatalf("delta after update = %v, %v", dx, dy)
	}
}
