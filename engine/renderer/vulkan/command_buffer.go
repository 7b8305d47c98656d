package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDERING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDERING:
		return "in rendering"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	case COMMAND_BUFFER_STATE_NOT_ALLOCATED:
		return "not allocated"
	}
	return "unknown"
}

type commandBufferOp int

const (
	opAllocate commandBufferOp = iota
	opReset
	opBegin
	opBeginRendering
	opEndRendering
	opEnd
	opSubmit
	opFree
)

var commandBufferOpNames = [...]string{"allocate", "reset", "begin", "begin rendering", "end rendering", "end", "submit", "free"}

func (o commandBufferOp) String() string {
	if int(o) < len(commandBufferOpNames) {
		return commandBufferOpNames[o]
	}
	return "unknown"
}

// next is the state after op, or an error if op is not valid in s.
func (s VulkanCommandBufferState) next(op commandBufferOp) (VulkanCommandBufferState, error) {
	switch op {
	case opAllocate:
		if s == COMMAND_BUFFER_STATE_NOT_ALLOCATED {
			return COMMAND_BUFFER_STATE_READY, nil
		}
	case opReset:
		if s != COMMAND_BUFFER_STATE_NOT_ALLOCATED {
			return COMMAND_BUFFER_STATE_READY, nil
		}
	case opBegin:
		if s == COMMAND_BUFFER_STATE_READY {
			return COMMAND_BUFFER_STATE_RECORDING, nil
		}
	case opBeginRendering:
		if s == COMMAND_BUFFER_STATE_RECORDING {
			return COMMAND_BUFFER_STATE_IN_RENDERING, nil
		}
	case opEndRendering:
		if s == COMMAND_BUFFER_STATE_IN_RENDERING {
			return COMMAND_BUFFER_STATE_RECORDING, nil
		}
	case opEnd:
		if s == COMMAND_BUFFER_STATE_IN_RENDERING {
			return s, fmt.Errorf("command buffer ended inside a rendering scope")
		}
		if s == COMMAND_BUFFER_STATE_RECORDING {
			return COMMAND_BUFFER_STATE_RECORDING_ENDED, nil
		}
	case opSubmit:
		if s == COMMAND_BUFFER_STATE_RECORDING_ENDED {
			return COMMAND_BUFFER_STATE_SUBMITTED, nil
		}
	case opFree:
		return COMMAND_BUFFER_STATE_NOT_ALLOCATED, nil
	}
	return s, fmt.Errorf("cannot %s a command buffer that is %s", op, s)
}

// VulkanCommandBuffer is a frame slot: a primary command buffer with its own
// pool, so the whole slot is recycled with one pool reset.
type VulkanCommandBuffer struct {
	Pool   vk.CommandPool
	Handle vk.CommandBuffer
	State  VulkanCommandBufferState

	// attachments of the frame being recorded
	targets *Backend
}

var _ renderer.CommandRecorder = (*VulkanCommandBuffer)(nil)

func NewVulkanCommandBuffer(context *VulkanContext, targets *Backend) (*VulkanCommandBuffer, error) {
	cb := &VulkanCommandBuffer{
		State:   COMMAND_BUFFER_STATE_NOT_ALLOCATED,
		targets: targets,
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &cb.Pool)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	handle, err := allocateCommandBuffer(context, cb.Pool)
	if err != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, cb.Pool, context.Allocator)
		return nil, err
	}
	cb.Handle = handle
	cb.State, _ = cb.State.next(opAllocate)
	return cb, nil
}

func allocateCommandBuffer(context *VulkanContext, pool vk.CommandPool) (vk.CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	handles := make([]vk.CommandBuffer, 1)
	if err := check("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, handles)); err != nil {
		core.LogError("failed to allocate command buffer: %s", err)
		return nil, err
	}
	return handles[0], nil
}

func (v *VulkanCommandBuffer) Destroy(context *VulkanContext) {
	// destroying the pool frees its buffers
	vk.DestroyCommandPool(context.Device.LogicalDevice, v.Pool, context.Allocator)
	v.Pool = vk.NullCommandPool
	v.Handle = nil
	v.State, _ = v.State.next(opFree)
}

func (v *VulkanCommandBuffer) Reset(context *VulkanContext) error {
	next, err := v.State.next(opReset)
	if err != nil {
		return err
	}
	if err := check("vkResetCommandPool", vk.ResetCommandPool(context.Device.LogicalDevice, v.Pool, 0)); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = next
	return nil
}

func (v *VulkanCommandBuffer) Begin(singleUse bool) error {
	next, err := v.State.next(opBegin)
	if err != nil {
		return err
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if err := check("vkBeginCommandBuffer", vk.BeginCommandBuffer(v.Handle, &beginInfo)); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = next
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	next, err := v.State.next(opEnd)
	if err != nil {
		return err
	}
	if err := check("vkEndCommandBuffer", vk.EndCommandBuffer(v.Handle)); err != nil {
		core.LogError(err.Error())
		return err
	}
	v.State = next
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State, _ = v.State.next(opSubmit)
}

// commands are the trampolined entry points of the owning device.
func (v *VulkanCommandBuffer) commands() *deviceCommands {
	return &v.targets.context.Device.commands
}

func (v *VulkanCommandBuffer) TransitionImages(transitions ...metadata.ImageTransition) {
	barriers := make([]imageBarrierInfo, 0, len(transitions))
	for _, t := range transitions {
		barriers = append(barriers, imageBarrier(t.Kind, v.attachment(t), t.From, t.To))
	}
	v.commands().pipelineBarrier(v.Handle, barriers)
}

func (v *VulkanCommandBuffer) attachment(t metadata.ImageTransition) vk.Image {
	if t.Kind == metadata.AttachmentDepth {
		return v.targets.depth.Handle
	}
	return v.targets.swapchain.Images[t.ImageIndex]
}

// imageBarrierInfo is one whole-image, single-mip layout transition.
type imageBarrierInfo struct {
	SrcStage  vk.PipelineStageFlags2
	SrcAccess vk.AccessFlags2
	DstStage  vk.PipelineStageFlags2
	DstAccess vk.AccessFlags2
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	Image     vk.Image
	Aspect    vk.ImageAspectFlags
}

// imageBarrier moves an image between layouts, ordering it after the
// previous layout's scope and before the next one.
func imageBarrier(kind metadata.AttachmentKind, image vk.Image, from, to metadata.ImageLayout) imageBarrierInfo {
	srcStage, srcAccess := layoutScope(from, kind)
	dstStage, dstAccess := layoutScope(to, kind)
	return imageBarrierInfo{
		SrcStage:  srcStage,
		SrcAccess: srcAccess,
		DstStage:  dstStage,
		DstAccess: dstAccess,
		OldLayout: vulkanLayout(from),
		NewLayout: vulkanLayout(to),
		Image:     image,
		Aspect:    aspectMask(kind),
	}
}

func (v *VulkanCommandBuffer) BeginRendering(info metadata.RenderingInfo) {
	next, err := v.State.next(opBeginRendering)
	if err != nil {
		core.LogError(err.Error())
		return
	}
	v.commands().beginRendering(v.Handle,
		v.targets.swapchain.Views[info.ImageIndex], v.targets.depth.View,
		info.Extent.Width, info.Extent.Height, info.ClearColor, info.ClearDepth)
	v.State = next
}

func (v *VulkanCommandBuffer) SetViewportAndScissor(extent metadata.Extent) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
	}
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline renderer.Pipeline) {
	p := pipeline.(*VulkanPipeline)
	vk.CmdBindPipeline(v.Handle, vk.PipelineBindPointGraphics, p.Handle)
}

func (v *VulkanCommandBuffer) PushConstants(pipeline renderer.Pipeline, data []byte) {
	if len(data) == 0 {
		return
	}
	p := pipeline.(*VulkanPipeline)
	vk.CmdPushConstants(v.Handle, p.PipelineLayout, pushConstantStages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (v *VulkanCommandBuffer) BindIndexBuffer(geometry renderer.GeometryBuffers) {
	g := geometry.(*VulkanGeometry)
	vk.CmdBindIndexBuffer(v.Handle, g.Indices.Handle, 0, vk.IndexTypeUint32)
}

func (v *VulkanCommandBuffer) DrawIndexed(indexCount, firstIndex uint32, vertexOffset int32) {
	vk.CmdDrawIndexed(v.Handle, indexCount, 1, firstIndex, vertexOffset, 0)
}

func (v *VulkanCommandBuffer) EndRendering() {
	next, err := v.State.next(opEndRendering)
	if err != nil {
		core.LogError(err.Error())
		return
	}
	v.commands().endRendering(v.Handle)
	v.State = next
}
