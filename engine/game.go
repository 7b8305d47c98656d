package engine

import (
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// Game is the application side of the loop. The engine fills Config before
// FnInitialize and Input before the first tick.
type Game struct {
	Config       *core.Config
	Input        *core.InputState
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render fills the per frame input handed to the renderer.
type Render func(input *renderer.FrameInput, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
