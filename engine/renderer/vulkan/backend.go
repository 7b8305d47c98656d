package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

var _ renderer.Device = (*Backend)(nil)

// Backend implements the renderer's device interfaces on a VulkanContext.
// Resources the renderer refers to by index (frame slots, acquire
// semaphores, swapchain images) live in the tables below. All methods are
// called from the render goroutine.
type Backend struct {
	context *VulkanContext

	swapchain         *VulkanSwapchain
	depth             *VulkanImage
	presentSemaphores []vk.Semaphore

	frames            []*VulkanCommandBuffer
	acquireSemaphores []vk.Semaphore
	timeline          vk.Semaphore
}

func NewBackend(context *VulkanContext) *Backend {
	return &Backend{context: context}
}

func (b *Backend) Context() *VulkanContext {
	return b.context
}

// WaitIdle blocks until the device has finished all submitted work.
func (b *Backend) WaitIdle() error {
	if err := check("vkDeviceWaitIdle", vk.DeviceWaitIdle(b.context.Device.LogicalDevice)); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}
