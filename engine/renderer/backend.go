package renderer

import (
	"context"

	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// ShaderModule is a compiled shader stage owned by the backend.
type ShaderModule interface {
	Stage() metadata.ShaderStage
}

// Pipeline is an immutable graphics pipeline owned by the backend.
type Pipeline interface {
	PushConstantSize() uint32
}

// GeometryBuffers are the device-local vertex and index buffers of a scene.
type GeometryBuffers interface {
	VertexAddress() metadata.DeviceAddress
	IndexCount() uint32
}

// Texture is a sampled image uploaded with the scene.
type Texture interface {
	Name() string
	Extent() metadata.Extent
}

// CommandRecorder records one frame's command buffer.
type CommandRecorder interface {
	TransitionImages(transitions ...metadata.ImageTransition)
	BeginRendering(info metadata.RenderingInfo)
	SetViewportAndScissor(extent metadata.Extent)
	BindPipeline(pipeline Pipeline)
	PushConstants(pipeline Pipeline, data []byte)
	BindIndexBuffer(geometry GeometryBuffers)
	DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32)
	EndRendering()
	End() error
}

// FrameDevice owns the per-frame ring: one command pool and buffer per frame
// slot, the acquire semaphore ring and the timeline semaphore.
type FrameDevice interface {
	CreateFrameResources(slots, acquireSemaphores int) error
	DestroyFrameResources()
	// WaitTimeline blocks until the timeline semaphore reaches value.
	WaitTimeline(value uint64) error
	ResetSlot(slot int) error
	BeginCommands(slot int) (CommandRecorder, error)
	Submit(submission metadata.Submission) error
	WaitIdle() error
}

// SwapchainDevice exposes the swapchain primitives. Every Destroy call is
// safe on a resource that was never created.
type SwapchainDevice interface {
	SurfaceCapabilities() (metadata.SurfaceCapabilities, error)
	CreateSwapchain(config metadata.SwapchainConfig) (imageCount int, err error)
	DestroySwapchain()
	CreateImageViews() error
	DestroyImageViews()
	CreateDepth(extent metadata.Extent, format metadata.Format) error
	DestroyDepth()
	// CreatePresentSemaphores makes one render-complete semaphore per image.
	CreatePresentSemaphores(count int) error
	DestroyPresentSemaphores()
	AcquireNextImage(acquireSemaphore int) (uint32, metadata.PresentStatus, error)
	Present(imageIndex uint32) (metadata.PresentStatus, error)
}

// ResourceDevice creates the long-lived objects of a scene.
type ResourceDevice interface {
	CreateShaderModule(stage metadata.ShaderStage, code []uint32) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)
	CreatePipeline(vertex, fragment ShaderModule, config metadata.PipelineConfig) (Pipeline, error)
	DestroyPipeline(pipeline Pipeline)
	UploadGeometry(vertices []byte, indices []uint32) (GeometryBuffers, error)
	DestroyGeometry(geometry GeometryBuffers)
	UploadTexture(image *metadata.ImageData) (Texture, error)
	DestroyTexture(texture Texture)
}

// Device is everything the renderer needs from a backend.
type Device interface {
	FrameDevice
	SwapchainDevice
	ResourceDevice
}

// ShaderCompiler turns shader source into SPIR-V. A failed compile returns a
// *core.CompileError with the compiler's diagnostics.
type ShaderCompiler interface {
	Compile(ctx context.Context, path string, stage metadata.ShaderStage) ([]uint32, error)
}
