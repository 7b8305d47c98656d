package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// VulkanGeometry holds the device-local vertex and index buffers of a scene.
// The vertex buffer is only reached through its device address.
type VulkanGeometry struct {
	Vertices *VulkanBuffer
	Indices  *VulkanBuffer

	indexCount uint32
}

var _ renderer.GeometryBuffers = (*VulkanGeometry)(nil)

func (g *VulkanGeometry) VertexAddress() metadata.DeviceAddress {
	return g.Vertices.Address
}

func (g *VulkanGeometry) IndexCount() uint32 {
	return g.indexCount
}

var hostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

var deviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)

func (b *Backend) UploadGeometry(vertices []byte, indices []uint32) (renderer.GeometryBuffers, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("%w: empty geometry", core.ErrInvalidScene)
	}
	vertexBuffer, err := b.uploadBuffer("vertices", vertices,
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit))
	if err != nil {
		return nil, err
	}
	indexBuffer, err := b.uploadBuffer("indices", metadata.PackIndices(indices), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertexBuffer.Destroy(b.context)
		return nil, err
	}
	if vertexBuffer.Address == 0 {
		indexBuffer.Destroy(b.context)
		vertexBuffer.Destroy(b.context)
		return nil, fmt.Errorf("vertex buffer has no device address")
	}

	core.LogDebug("Uploaded geometry: %d vertex bytes at %#x, %d indices.", len(vertices), vertexBuffer.Address, len(indices))
	return &VulkanGeometry{
		Vertices:   vertexBuffer,
		Indices:    indexBuffer,
		indexCount: uint32(len(indices)),
	}, nil
}

// uploadBuffer creates a device-local buffer and fills it through a
// host-visible staging buffer.
func (b *Backend) uploadBuffer(label string, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(data))
	staging, err := NewBuffer(b.context, label+" staging", size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(b.context)
	if err := staging.LoadData(b.context, 0, data); err != nil {
		return nil, err
	}

	buffer, err := NewBuffer(b.context, label, size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), deviceLocal)
	if err != nil {
		return nil, err
	}
	err = b.submitOneShot("copy "+label, func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging.Handle, buffer.Handle, 1, []vk.BufferCopy{{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		}})
	})
	if err != nil {
		buffer.Destroy(b.context)
		return nil, err
	}
	return buffer, nil
}

func (b *Backend) DestroyGeometry(geometry renderer.GeometryBuffers) {
	g, ok := geometry.(*VulkanGeometry)
	if !ok {
		return
	}
	if g.Indices != nil {
		g.Indices.Destroy(b.context)
		g.Indices = nil
	}
	if g.Vertices != nil {
		g.Vertices.Destroy(b.context)
		g.Vertices = nil
	}
}

// UploadTexture copies the pixels into an sRGB sampled image and leaves it
// in the shader read-only layout.
func (b *Backend) UploadTexture(data *metadata.ImageData) (renderer.Texture, error) {
	if !data.Valid() {
		return nil, fmt.Errorf("%w: image `%s` is malformed", core.ErrInvalidScene, data.Name)
	}
	pixels := data.RGBA()

	staging, err := NewBuffer(b.context, data.Name+" staging", vk.DeviceSize(len(pixels)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(b.context)
	if err := staging.LoadData(b.context, 0, pixels); err != nil {
		return nil, err
	}

	image, err := NewImage(b.context, imageConfig{
		Name:   data.Name,
		Extent: metadata.Extent{Width: data.Width, Height: data.Height},
		Format: vk.FormatR8g8b8a8Srgb,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	commands := &b.context.Device.commands
	err = b.submitOneShot("copy texture "+data.Name, func(cmd vk.CommandBuffer) {
		commands.pipelineBarrier(cmd, []imageBarrierInfo{
			imageBarrier(metadata.AttachmentColor, image.Handle, metadata.LayoutUndefined, metadata.LayoutTransferDst),
		})
		region := vk.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: data.Width, Height: data.Height, Depth: 1},
		}
		vk.CmdCopyBufferToImage(cmd, staging.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
		commands.pipelineBarrier(cmd, []imageBarrierInfo{
			imageBarrier(metadata.AttachmentColor, image.Handle, metadata.LayoutTransferDst, metadata.LayoutShaderReadOnly),
		})
	})
	if err != nil {
		image.Destroy(b.context)
		return nil, err
	}
	return image, nil
}

func (b *Backend) DestroyTexture(texture renderer.Texture) {
	if image, ok := texture.(*VulkanImage); ok {
		image.Destroy(b.context)
	}
}

// submitOneShot records a single-use command buffer from the upload pool,
// submits it to the graphics queue and blocks until it has executed.
func (b *Backend) submitOneShot(label string, record func(cmd vk.CommandBuffer)) error {
	device := b.context.Device
	cmd, err := allocateCommandBuffer(b.context, device.UploadCommandPool)
	if err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(device.LogicalDevice, device.UploadCommandPool, 1, []vk.CommandBuffer{cmd})

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check("vkBeginCommandBuffer", vk.BeginCommandBuffer(cmd, &beginInfo)); err != nil {
		core.LogError("%s: %s", label, err)
		return err
	}
	record(cmd)
	if err := check("vkEndCommandBuffer", vk.EndCommandBuffer(cmd)); err != nil {
		core.LogError("%s: %s", label, err)
		return err
	}

	fence, err := createFence(b.context)
	if err != nil {
		return err
	}
	defer vk.DestroyFence(device.LogicalDevice, fence, b.context.Allocator)

	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}
	if err := check("vkQueueSubmit", vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{info}, fence)); err != nil {
		core.LogError("%s: %s", label, err)
		return err
	}
	if err := waitFence(b.context, fence); err != nil {
		core.LogError("%s: %s", label, err)
		return err
	}
	return nil
}
