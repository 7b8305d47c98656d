package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type imageConfig struct {
	Name   string
	Extent metadata.Extent
	Format vk.Format
	Usage  vk.ImageUsageFlags
	Aspect vk.ImageAspectFlags
	// Give the image its own allocation.
	Dedicated bool
}

// VulkanImage is a 2D, single-mip, optimally tiled image with one view.
// Uploaded textures are VulkanImages too.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format

	name string
}

func NewImage(context *VulkanContext, cfg imageConfig) (*VulkanImage, error) {
	image := &VulkanImage{
		Width:  cfg.Extent.Width,
		Height: cfg.Extent.Height,
		Format: cfg.Format,
		name:   cfg.Name,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  cfg.Extent.Width,
			Height: cfg.Extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        cfg.Format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         cfg.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	if err := check("vkCreateImage", vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image.Handle)); err != nil {
		core.LogError("failed to create image `%s`: %s", cfg.Name, err)
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &requirements)
	requirements.Deref()

	req := allocationRequest{
		Requirements: requirements,
		Properties:   vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Label:        cfg.Name,
	}
	if cfg.Dedicated {
		req.DedicatedImage = image.Handle
	}
	memory, err := context.memory.Allocate(req)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	image.Memory = memory

	if err := check("vkBindImageMemory", vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0)); err != nil {
		core.LogError("failed to bind memory of image `%s`: %s", cfg.Name, err)
		image.Destroy(context)
		return nil, err
	}

	view, err := createImageView(context, image.Handle, cfg.Format, cfg.Aspect)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	image.View = view
	return image, nil
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: subresource(aspect),
	}
	var view vk.ImageView
	if err := check("vkCreateImageView", vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view)); err != nil {
		core.LogError(err.Error())
		return vk.NullImageView, err
	}
	return view, nil
}

func (img *VulkanImage) Name() string {
	return img.name
}

func (img *VulkanImage) Extent() metadata.Extent {
	return metadata.Extent{Width: img.Width, Height: img.Height}
}

func (img *VulkanImage) Destroy(context *VulkanContext) {
	if img.View != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, img.View, context.Allocator)
		img.View = vk.NullImageView
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, img.Handle, context.Allocator)
		img.Handle = vk.NullImage
	}
	context.memory.Free(img.Memory)
	img.Memory = vk.NullDeviceMemory
}

// subresource covers the single mip and layer of an image.
func subresource(aspect vk.ImageAspectFlags) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: aspect,
		LevelCount: 1,
		LayerCount: 1,
	}
}
