package renderer

import (
	"context"
	"errors"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type Options struct {
	Extent         metadata.Extent
	FramesInFlight int
	ClearColor     [4]float32
	VertexShader   string
	FragmentShader string
}

// Renderer owns everything built on top of a device: swapchain, pipeline,
// scene buffers and the frame ring. The device itself is created and
// destroyed by the caller, before and after the renderer.
type Renderer struct {
	device   Device
	compiler ShaderCompiler

	teardown  core.Teardown
	swapchain *SwapchainManager
	pipeline  Pipeline
	scene     *SceneBuffers
	scheduler *FrameScheduler
}

func New(device Device, compiler ShaderCompiler) *Renderer {
	return &Renderer{device: device, compiler: compiler}
}

// Initialize builds the renderer in dependency order. On failure whatever was
// created is released in reverse order before the error is returned.
func (r *Renderer) Initialize(ctx context.Context, opts Options, scene *metadata.Scene) (err error) {
	defer func() {
		if err != nil {
			r.teardown.Unwind()
			r.swapchain, r.pipeline, r.scene, r.scheduler = nil, nil, nil, nil
		}
	}()

	r.swapchain = NewSwapchainManager(r.device)
	if err := r.swapchain.Create(opts.Extent); err != nil && !errors.Is(err, core.ErrZeroExtent) {
		return core.NewInitError(core.InitResourceCreation, "swapchain", err)
	}
	// a minimized start leaves the swapchain invalidated; the first tick that
	// sees a real size builds it
	r.teardown.Push("swapchain", r.swapchain.Destroy)

	cfg := metadata.DefaultPipelineConfig()
	pipeline, err := BuildPipeline(ctx, r.compiler, r.device, opts.VertexShader, opts.FragmentShader, cfg)
	if err != nil {
		var compileErr *core.CompileError
		if errors.As(err, &compileErr) {
			return err
		}
		return core.NewInitError(core.InitResourceCreation, "pipeline", err)
	}
	r.pipeline = pipeline
	r.teardown.Push("pipeline", func() { r.device.DestroyPipeline(pipeline) })

	buffers, err := UploadScene(r.device, scene)
	if err != nil {
		if errors.Is(err, core.ErrInvalidScene) {
			return err
		}
		return core.NewInitError(core.InitResourceCreation, "scene upload", err)
	}
	r.scene = buffers
	r.teardown.Push("scene buffers", func() { buffers.Destroy(r.device) })

	scheduler, err := NewFrameScheduler(r.device, r.device, r.swapchain, SchedulerConfig{
		FramesInFlight: opts.FramesInFlight,
		ClearColor:     opts.ClearColor,
		Pipeline:       pipeline,
		Scene:          buffers,
	})
	if err != nil {
		return err
	}
	if err := r.device.CreateFrameResources(opts.FramesInFlight, scheduler.AcquireRingSize()); err != nil {
		return core.NewInitError(core.InitResourceCreation, "frame resources", err)
	}
	r.teardown.Push("frame resources", r.device.DestroyFrameResources)
	r.scheduler = scheduler

	core.LogInfo("Renderer initialized with %d frames in flight.", opts.FramesInFlight)
	return nil
}

func (r *Renderer) DrawFrame(input FrameInput) (FrameOutcome, error) {
	if r.scheduler == nil {
		return FramePresented, core.ErrNotInitialized
	}
	return r.scheduler.Tick(input)
}

// OnResize defers a swapchain rebuild at the new framebuffer size.
func (r *Renderer) OnResize(width, height uint32) {
	if r.swapchain == nil {
		return
	}
	r.swapchain.Resize(metadata.Extent{Width: width, Height: height})
}

func (r *Renderer) Swapchain() *SwapchainManager {
	return r.swapchain
}

// Shutdown waits for the GPU to go idle and releases everything Initialize
// created. Safe to call more than once.
func (r *Renderer) Shutdown() error {
	if r.teardown.Len() == 0 {
		return nil
	}
	err := r.device.WaitIdle()
	if err != nil {
		core.LogError("failed to wait for device idle: %s", err)
	}
	r.teardown.Unwind()
	r.swapchain, r.pipeline, r.scene, r.scheduler = nil, nil, nil, nil
	return err
}
