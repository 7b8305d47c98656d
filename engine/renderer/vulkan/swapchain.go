package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView
}

func (b *Backend) SurfaceCapabilities() (metadata.SurfaceCapabilities, error) {
	var capabilities vk.SurfaceCapabilities
	if err := check("vkGetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(b.context.Device.PhysicalDevice, b.context.Surface, &capabilities)); err != nil {
		core.LogError(err.Error())
		return metadata.SurfaceCapabilities{}, err
	}
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	return convertCapabilities(&capabilities), nil
}

func convertCapabilities(c *vk.SurfaceCapabilities) metadata.SurfaceCapabilities {
	return metadata.SurfaceCapabilities{
		MinImageCount:  c.MinImageCount,
		MaxImageCount:  c.MaxImageCount,
		CurrentExtent:  metadata.Extent{Width: c.CurrentExtent.Width, Height: c.CurrentExtent.Height},
		MinImageExtent: metadata.Extent{Width: c.MinImageExtent.Width, Height: c.MinImageExtent.Height},
		MaxImageExtent: metadata.Extent{Width: c.MaxImageExtent.Width, Height: c.MaxImageExtent.Height},
	}
}

func (b *Backend) surfaceFormats() ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := check("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(b.context.Device.PhysicalDevice, b.context.Surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := check("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(b.context.Device.PhysicalDevice, b.context.Surface, &count, formats)); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

func supportsSurfaceFormat(formats []vk.SurfaceFormat, format vk.Format, space vk.ColorSpace) bool {
	for _, f := range formats {
		if f.Format == format && f.ColorSpace == space {
			return true
		}
	}
	return false
}

// CreateSwapchain builds a FIFO swapchain at exactly the configured extent.
func (b *Backend) CreateSwapchain(cfg metadata.SwapchainConfig) (int, error) {
	device := b.context.Device

	formats, err := b.surfaceFormats()
	if err != nil {
		core.LogError(err.Error())
		return 0, err
	}
	format := vk.SurfaceFormat{Format: vulkanFormat(cfg.ColorFormat), ColorSpace: vk.ColorSpaceSrgbNonlinear}
	if !supportsSurfaceFormat(formats, format.Format, format.ColorSpace) {
		err := fmt.Errorf("surface does not support format %d with sRGB nonlinear color space", format.Format)
		core.LogError(err.Error())
		return 0, err
	}

	var capabilities vk.SurfaceCapabilities
	if err := check("vkGetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(device.PhysicalDevice, b.context.Surface, &capabilities)); err != nil {
		core.LogError(err.Error())
		return 0, err
	}
	capabilities.Deref()

	extent := vk.Extent2D{Width: cfg.Extent.Width, Height: cfg.Extent.Height}
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          b.context.Surface,
		MinImageCount:    cfg.MinImageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{device.GraphicsQueueIndex, device.PresentQueueIndex}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	swapchain := &VulkanSwapchain{ImageFormat: format, Extent: extent}
	if err := check("vkCreateSwapchain", vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, b.context.Allocator, &swapchain.Handle)); err != nil {
		core.LogError(err.Error())
		return 0, err
	}

	var imageCount uint32
	if err := check("vkGetSwapchainImages", vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &imageCount, nil)); err != nil {
		vk.DestroySwapchain(device.LogicalDevice, swapchain.Handle, b.context.Allocator)
		return 0, err
	}
	swapchain.Images = make([]vk.Image, imageCount)
	if err := check("vkGetSwapchainImages", vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &imageCount, swapchain.Images)); err != nil {
		vk.DestroySwapchain(device.LogicalDevice, swapchain.Handle, b.context.Allocator)
		return 0, err
	}

	b.swapchain = swapchain
	core.LogDebug("Swapchain created with %d images at %dx%d.", imageCount, extent.Width, extent.Height)
	return int(imageCount), nil
}

func (b *Backend) DestroySwapchain() {
	if b.swapchain == nil {
		return
	}
	vk.DestroySwapchain(b.context.Device.LogicalDevice, b.swapchain.Handle, b.context.Allocator)
	b.swapchain = nil
}

func (b *Backend) CreateImageViews() error {
	if b.swapchain == nil {
		return core.ErrNotInitialized
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	for _, image := range b.swapchain.Images {
		view, err := createImageView(b.context, image, b.swapchain.ImageFormat.Format, aspect)
		if err != nil {
			b.DestroyImageViews()
			return err
		}
		b.swapchain.Views = append(b.swapchain.Views, view)
	}
	return nil
}

func (b *Backend) DestroyImageViews() {
	if b.swapchain == nil {
		return
	}
	for _, view := range b.swapchain.Views {
		vk.DestroyImageView(b.context.Device.LogicalDevice, view, b.context.Allocator)
	}
	b.swapchain.Views = nil
}

// CreateDepth makes the single depth attachment shared by every frame. It
// gets a dedicated allocation since it is recreated with the swapchain.
func (b *Backend) CreateDepth(extent metadata.Extent, format metadata.Format) error {
	depth, err := NewImage(b.context, imageConfig{
		Name:      fmt.Sprintf("depth %s", extent),
		Extent:    extent,
		Format:    vulkanFormat(format),
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Dedicated: true,
	})
	if err != nil {
		return err
	}
	b.depth = depth
	return nil
}

func (b *Backend) DestroyDepth() {
	if b.depth == nil {
		return
	}
	b.depth.Destroy(b.context)
	b.depth = nil
}

func (b *Backend) CreatePresentSemaphores(count int) error {
	for i := 0; i < count; i++ {
		semaphore, err := createSemaphore(b.context, false)
		if err != nil {
			b.DestroyPresentSemaphores()
			return err
		}
		b.presentSemaphores = append(b.presentSemaphores, semaphore)
	}
	return nil
}

func (b *Backend) DestroyPresentSemaphores() {
	for _, semaphore := range b.presentSemaphores {
		vk.DestroySemaphore(b.context.Device.LogicalDevice, semaphore, b.context.Allocator)
	}
	b.presentSemaphores = nil
}

func (b *Backend) AcquireNextImage(acquireSemaphore int) (uint32, metadata.PresentStatus, error) {
	if b.swapchain == nil {
		return 0, metadata.PresentOutOfDate, nil
	}
	var imageIndex uint32
	result := vk.AcquireNextImage(
		b.context.Device.LogicalDevice,
		b.swapchain.Handle,
		math.MaxUint64,
		b.acquireSemaphores[acquireSemaphore],
		vk.NullFence,
		&imageIndex)
	status, err := presentStatus("vkAcquireNextImage", result)
	if err != nil {
		core.LogError(err.Error())
		return 0, status, err
	}
	if status != metadata.PresentOK {
		core.LogDebug("Acquire returned %s.", VulkanResultString(result))
	}
	return imageIndex, status, nil
}

// Present queues the image for display once its render-complete semaphore
// is signaled.
func (b *Backend) Present(imageIndex uint32) (metadata.PresentStatus, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{b.presentSemaphores[imageIndex]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{b.swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	result := vk.QueuePresent(b.context.Device.PresentQueue, &presentInfo)
	status, err := presentStatus("vkQueuePresent", result)
	if err != nil {
		core.LogError(err.Error())
		return status, err
	}
	if status != metadata.PresentOK {
		core.LogDebug("Present returned %s.", VulkanResultString(result))
	}
	return status, nil
}
