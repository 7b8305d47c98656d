package testbed

import (
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer"
)

func TestOrbitAutoRotate(t *testing.T) {
	camera := math.NewCamera(5)
	input := core.NewInputState()

	orbit(camera, input, 1, true)
	if !glm.FloatEqual(camera.Yaw, autoRotateSpeed) {
		t.Fatalf("yaw = %v", camera.Yaw)
	}
	orbit(camera, input, 1, false)
	if !glm.FloatEqual(camera.Yaw, autoRotateSpeed) {
		t.Fatalf("yaw moved without auto rotation: %v", camera.Yaw)
	}
}

func TestOrbitClampsPitchAndZoom(t *testing.T) {
	camera := math.NewCamera(5)
	input := core.NewInputState()
	input.ProcessKey(core.KEY_UP, true)
	input.ProcessMouseWheel(100)

	orbit(camera, input, 10, false)
	if camera.Pitch > glm.DegToRad(89)+1e-6 {
		t.Fatalf("pitch = %v", camera.Pitch)
	}
	if camera.Distance != minDistance {
		t.Fatalf("distance = %v", camera.Distance)
	}

	input.Update()
	input.ProcessKey(core.KEY_UP, false)
	input.ProcessMouseWheel(-1000)
	orbit(camera, input, 0, false)
	if camera.Distance != maxDistance {
		t.Fatalf("distance = %v", camera.Distance)
	}
}

func TestOrbitDrag(t *testing.T) {
	camera := math.NewCamera(5)
	camera.Pitch = 0
	input := core.NewInputState()
	input.ProcessMouseMove(100, 100)
	input.Update()

	input.ProcessButton(core.BUTTON_LEFT, true)
	input.ProcessMouseMove(110, 90)
	orbit(camera, input, 0, false)

	if !glm.FloatEqual(camera.Yaw, math.WrapAngle(-10*dragSpeed)) || !glm.FloatEqual(camera.Pitch, -10*dragSpeed) {
		t.Fatalf("yaw %v pitch %v", camera.Yaw, camera.Pitch)
	}
}

func TestRenderFillsViewProjection(t *testing.T) {
	config := core.DefaultConfig()
	g := NewTestGame(config)
	g.Input = core.NewInputState()
	if err := g.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := g.OnResize(800, 600); err != nil {
		t.Fatal(err)
	}

	var input renderer.FrameInput
	if err := g.Render(&input, 0); err != nil {
		t.Fatal(err)
	}
	want := g.state().camera.ViewProjection(800, 600)
	if input.ViewProjection != [16]float32(want) {
		t.Fatalf("view projection %v, want %v", input.ViewProjection, want)
	}
}
