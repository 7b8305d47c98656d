package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// createSemaphore makes a binary semaphore, or a timeline semaphore starting
// at zero.
func createSemaphore(context *VulkanContext, timeline bool) (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if timeline {
		typeInfo, err := timelineTypeChain()
		if err != nil {
			return vk.NullSemaphore, err
		}
		defer typeInfo.free()
		semaphoreCreateInfo.PNext = typeInfo.head
	}
	var semaphore vk.Semaphore
	if err := check("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &semaphore)); err != nil {
		core.LogError(err.Error())
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

func createFence(context *VulkanContext) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	var fence vk.Fence
	if err := check("vkCreateFence", vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &fence)); err != nil {
		core.LogError(err.Error())
		return vk.NullFence, err
	}
	return fence, nil
}

func waitFence(context *VulkanContext, fence vk.Fence) error {
	return check("vkWaitForFences", vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{fence}, vk.True, math.MaxUint64))
}

// CreateFrameResources makes one command pool and buffer per frame slot, the
// acquire semaphore ring and the timeline semaphore.
func (b *Backend) CreateFrameResources(slots, acquireSemaphores int) error {
	if len(b.frames) > 0 {
		return fmt.Errorf("frame resources already exist")
	}
	for i := 0; i < slots; i++ {
		cb, err := NewVulkanCommandBuffer(b.context, b)
		if err != nil {
			b.DestroyFrameResources()
			return err
		}
		b.frames = append(b.frames, cb)
	}
	for i := 0; i < acquireSemaphores; i++ {
		semaphore, err := createSemaphore(b.context, false)
		if err != nil {
			b.DestroyFrameResources()
			return err
		}
		b.acquireSemaphores = append(b.acquireSemaphores, semaphore)
	}
	timeline, err := createSemaphore(b.context, true)
	if err != nil {
		b.DestroyFrameResources()
		return err
	}
	b.timeline = timeline
	core.LogDebug("Created %d frame slots and %d acquire semaphores.", slots, acquireSemaphores)
	return nil
}

func (b *Backend) DestroyFrameResources() {
	device := b.context.Device.LogicalDevice
	if b.timeline != vk.NullSemaphore {
		vk.DestroySemaphore(device, b.timeline, b.context.Allocator)
		b.timeline = vk.NullSemaphore
	}
	for _, semaphore := range b.acquireSemaphores {
		vk.DestroySemaphore(device, semaphore, b.context.Allocator)
	}
	b.acquireSemaphores = nil
	for _, cb := range b.frames {
		cb.Destroy(b.context)
	}
	b.frames = nil
}

// WaitTimeline blocks until the GPU has finished the frame whose id is value.
func (b *Backend) WaitTimeline(value uint64) error {
	device := b.context.Device
	if err := check("vkWaitSemaphores", device.commands.waitSemaphore(device.LogicalDevice, b.timeline, value, math.MaxUint64)); err != nil {
		core.LogError("failed to wait for timeline value %d: %s", value, err)
		return err
	}
	return nil
}

// ResetSlot recycles the slot's command pool. Only valid once the slot's
// previous frame has completed.
func (b *Backend) ResetSlot(slot int) error {
	return b.frames[slot].Reset(b.context)
}

func (b *Backend) BeginCommands(slot int) (renderer.CommandRecorder, error) {
	cb := b.frames[slot]
	if err := cb.Begin(true); err != nil {
		return nil, err
	}
	return cb, nil
}

// Submit executes the slot's command buffer after the acquired image is
// available. It signals the timeline with the frame id and the image's
// render-complete semaphore.
func (b *Backend) Submit(submission metadata.Submission) error {
	cb := b.frames[submission.Slot]
	if _, err := cb.State.next(opSubmit); err != nil {
		return err
	}
	info := submitInfo(
		cb.Handle,
		b.acquireSemaphores[submission.AcquireSemaphore],
		b.timeline,
		b.presentSemaphores[submission.ImageIndex],
		submission.TimelineValue,
	)
	device := b.context.Device
	if err := check("vkQueueSubmit2", device.commands.queueSubmit(device.GraphicsQueue, info)); err != nil {
		core.LogError("failed to submit frame %d: %s", submission.TimelineValue, err)
		return err
	}
	cb.UpdateSubmitted()
	return nil
}

type semaphoreSubmit struct {
	Semaphore vk.Semaphore
	// timeline value, ignored for binary semaphores
	Value uint64
	Stage vk.PipelineStageFlags2
}

type frameSubmit struct {
	Command vk.CommandBuffer
	Waits   []semaphoreSubmit
	Signals []semaphoreSubmit
}

// submitInfo waits for the acquired image before color output and signals
// the timeline with the frame id and the image's render-complete semaphore.
func submitInfo(cmd vk.CommandBuffer, acquire, timeline, renderComplete vk.Semaphore, value uint64) frameSubmit {
	return frameSubmit{
		Command: cmd,
		Waits: []semaphoreSubmit{
			{Semaphore: acquire, Stage: stage2ColorAttachmentOutput},
		},
		Signals: []semaphoreSubmit{
			{Semaphore: timeline, Value: value, Stage: stage2AllCommands},
			{Semaphore: renderComplete, Stage: stage2AllCommands},
		},
	}
}
