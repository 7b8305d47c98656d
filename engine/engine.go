package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
)

// seconds to block for window events while minimized
const suspendedWait = 0.1

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	isRunning    bool
	isSuspended  bool

	events       *core.EventQueue
	input        *core.InputState
	platform     *platform.Platform
	assetManager *assets.AssetManager
	context      *vulkan.VulkanContext
	renderer     *renderer.Renderer
	teardown     core.Teardown

	width      uint32
	height     uint32
	clock      *core.Clock
	metrics    *core.Metrics
	lastTime   float64
	lastReport float64
}

func New(g *Game) (*Engine, error) {
	if g.Config == nil {
		return nil, errors.New("game has no configuration")
	}
	events := core.NewEventQueue()
	input := core.NewInputState()
	g.Input = input

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.Config,
		events:       events,
		input:        input,
		platform:     platform.New(events, input),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        g.Config.Application.Width,
		height:       g.Config.Application.Height,
	}, nil
}

// Initialize opens the window and builds the device, the scene and the
// renderer. On failure everything already created is released.
func (e *Engine) Initialize(ctx context.Context) (err error) {
	e.currentStage = EngineStageInitializing
	defer func() {
		if err != nil {
			e.teardown.Unwind()
			e.currentStage = EngineStageUninitialized
		}
	}()

	appConfig := e.config.Application
	if err := e.platform.Startup(appConfig.Name, appConfig.PosX, appConfig.PosY, appConfig.Width, appConfig.Height); err != nil {
		return err
	}
	e.teardown.Push("platform", e.platform.Shutdown)

	am, err := assets.NewAssetManager()
	if err != nil {
		return err
	}
	e.teardown.Push("asset manager", func() {
		if err := am.Close(); err != nil {
			core.LogWarn("failed to close asset watcher: %s", err)
		}
	})
	if err := am.Initialize(e.config.Scene.AssetsDir); err != nil {
		return err
	}
	e.assetManager = am

	vc, err := vulkan.NewContext(contextConfig(e.config, e.platform.RequiredExtensions()), e.platform.Window)
	if err != nil {
		return err
	}
	e.teardown.Push("vulkan context", vc.Destroy)
	e.context = vc

	scene, err := am.LoadScene(ctx, e.config.Scene.Path)
	if err != nil {
		return fmt.Errorf("failed to load scene `%s`: %w", e.config.Scene.Path, err)
	}

	// the window may already differ from the requested size
	e.width, e.height = e.platform.FramebufferSize()
	e.renderer = renderer.New(vulkan.NewBackend(vc), am)
	if err := e.renderer.Initialize(ctx, rendererOptions(e.config, e.width, e.height), scene); err != nil {
		return err
	}
	e.teardown.Push("renderer", func() {
		if err := e.renderer.Shutdown(); err != nil {
			core.LogError("renderer shutdown: %s", err)
		}
	})

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.isRunning = true
	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized at %dx%d.", e.width, e.height)
	return nil
}

// Run ticks until the window closes, the game quits or ctx is cancelled.
// Errors from the renderer end the loop and are returned.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return core.ErrNotInitialized
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if ctx.Err() != nil {
			core.LogInfo("Interrupted, shutting down.")
			break
		}

		if e.isSuspended {
			e.platform.WaitMessages(suspendedWait)
		} else {
			e.platform.PumpMessages()
		}
		e.events.Drain(e.onEvent)
		if !e.isRunning {
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down.")
				return err
			}
		}

		input := renderer.FrameInput{Time: float32(currentTime)}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(&input, delta); err != nil {
				core.LogError("Game render failed, shutting down.")
				return err
			}
		}

		outcome, err := e.renderer.DrawFrame(input)
		if err != nil {
			core.LogError("Frame failed: %s", err)
			return err
		}
		e.onFrame(outcome, e.platform.GetAbsoluteTime()-frameStartTime, currentTime)

		// NOTE: input state copying must stay the last thing in a tick so
		// that everything recorded above is seen as this tick's input.
		e.input.Update()
		e.lastTime = currentTime
	}
	return nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	var err error
	if e.gameInstance.FnShutdown != nil {
		err = e.gameInstance.FnShutdown()
	}
	e.teardown.Unwind()
	e.renderer, e.context, e.assetManager = nil, nil, nil
	e.currentStage = EngineStageShutdown
	core.LogInfo("Engine shut down.")
	return err
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onFrame(outcome renderer.FrameOutcome, frameElapsed, now float64) {
	switch outcome {
	case renderer.FrameSuspended:
		if !e.isSuspended {
			core.LogInfo("Window minimized, suspending rendering.")
			e.isSuspended = true
		}
		return
	case renderer.FrameSkipped:
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming rendering.")
		e.isSuspended = false
	}

	e.metrics.Update(frameElapsed)
	if now-e.lastReport >= 5 {
		fps, ms := e.metrics.Frame()
		core.LogDebug("%.0f fps, %.2f ms average frame time", fps, ms)
		e.lastReport = now
	}
}

func (e *Engine) onEvent(event core.Event) {
	switch event.Code {
	case core.EventQuit:
		core.LogInfo("%s received, shutting down.", event.Code)
		e.isRunning = false

	case core.EventResized:
		if event.Width == e.width && event.Height == e.height {
			return
		}
		e.width, e.height = event.Width, event.Height
		core.LogDebug("Window resize: %d, %d", e.width, e.height)

		e.renderer.OnResize(e.width, e.height)
		if e.width == 0 || e.height == 0 {
			return
		}
		if e.gameInstance.FnOnResize != nil {
			if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
				core.LogError(err.Error())
			}
		}
	}
}
