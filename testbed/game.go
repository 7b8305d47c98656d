package testbed

import (
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer"
)

const (
	// radians per second
	autoRotateSpeed float32 = 0.5
	keyRotateSpeed  float32 = 1.5
	// radians per pixel of mouse drag
	dragSpeed float32 = 0.01
	// fraction of the distance per scroll step
	zoomStep    float32 = 0.1
	minDistance float32 = 0.5
	maxDistance float32 = 50
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	camera     *math.Camera
	autoRotate bool
	width      uint32
	height     uint32
}

// NewTestGame orbits a camera around the loaded scene. Drag with the left
// mouse button or use the arrow keys to rotate, scroll to zoom, space toggles
// the automatic rotation and R resets the view.
func NewTestGame(config *core.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: config,
			State: &gameState{
				width:  config.Application.Width,
				height: config.Application.Height,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	g.reset()
	return nil
}

func (g *TestGame) reset() {
	state := g.state()
	state.camera = math.NewCamera(g.Config.Scene.CameraDistance)
	state.autoRotate = true
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	input := g.Input
	dt := float32(deltaTime)

	if input.WasKeyPressed(core.KEY_SPACE) {
		state.autoRotate = !state.autoRotate
		core.LogDebug("auto rotation: %t", state.autoRotate)
	}
	if input.WasKeyPressed(core.KEY_R) {
		g.reset()
		return nil
	}
	orbit(state.camera, input, dt, state.autoRotate)
	return nil
}

// orbit applies one tick of camera controls.
func orbit(camera *math.Camera, input *core.InputState, dt float32, autoRotate bool) {
	if autoRotate {
		camera.Yaw += autoRotateSpeed * dt
	}
	if input.IsKeyDown(core.KEY_LEFT) || input.IsKeyDown(core.KEY_A) {
		camera.Yaw -= keyRotateSpeed * dt
	}
	if input.IsKeyDown(core.KEY_RIGHT) || input.IsKeyDown(core.KEY_D) {
		camera.Yaw += keyRotateSpeed * dt
	}
	if input.IsKeyDown(core.KEY_UP) || input.IsKeyDown(core.KEY_W) {
		camera.Pitch += keyRotateSpeed * dt
	}
	if input.IsKeyDown(core.KEY_DOWN) || input.IsKeyDown(core.KEY_S) {
		camera.Pitch -= keyRotateSpeed * dt
	}

	if input.IsButtonDown(core.BUTTON_LEFT) {
		dx, dy := input.MouseDelta()
		camera.Yaw -= float32(dx) * dragSpeed
		camera.Pitch += float32(dy) * dragSpeed
	}
	camera.Yaw = math.WrapAngle(camera.Yaw)
	camera.Pitch = math.Clamp(camera.Pitch, -glm.DegToRad(89), glm.DegToRad(89))

	if scroll := float32(input.Scroll()); scroll != 0 {
		camera.Distance *= 1 - scroll*zoomStep
		camera.Distance = math.Clamp(camera.Distance, minDistance, maxDistance)
	}
}

func (g *TestGame) Render(input *renderer.FrameInput, deltaTime float64) error {
	state := g.state()
	vp := state.camera.ViewProjection(state.width, state.height)
	input.ViewProjection = [16]float32(vp)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	return nil
}
