package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags
	// Zero unless the buffer was created with device address usage.
	Address metadata.DeviceAddress

	label string
}

func NewBuffer(context *VulkanContext, label string, size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer `%s` has zero size", label)
	}
	buffer := &VulkanBuffer{Size: size, Usage: usage, label: label}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if err := check("vkCreateBuffer", vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer.Handle)); err != nil {
		core.LogError("failed to create buffer `%s`: %s", label, err)
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	deviceAddress := usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0
	memory, err := context.memory.Allocate(allocationRequest{
		Requirements:  requirements,
		Properties:    properties,
		DeviceAddress: deviceAddress,
		Label:         label,
	})
	if err != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		return nil, err
	}
	buffer.Memory = memory

	if err := check("vkBindBufferMemory", vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0)); err != nil {
		core.LogError("failed to bind memory of buffer `%s`: %s", label, err)
		buffer.Destroy(context)
		return nil, err
	}

	if deviceAddress {
		device := context.Device
		buffer.Address = metadata.DeviceAddress(device.commands.bufferAddress(device.LogicalDevice, buffer.Handle))
	}
	return buffer, nil
}

// LoadData copies data into a host-visible buffer at offset.
func (b *VulkanBuffer) LoadData(context *VulkanContext, offset vk.DeviceSize, data []byte) error {
	if offset+vk.DeviceSize(len(data)) > b.Size {
		return fmt.Errorf("%d bytes at %d overflow buffer `%s` of %d bytes", len(data), offset, b.label, b.Size)
	}
	var mapped unsafe.Pointer
	if err := check("vkMapMemory", vk.MapMemory(context.Device.LogicalDevice, b.Memory, offset, vk.DeviceSize(len(data)), 0, &mapped)); err != nil {
		core.LogError("failed to map buffer `%s`: %s", b.label, err)
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
	context.memory.Free(b.Memory)
	b.Memory = vk.NullDeviceMemory
	b.Address = 0
}
