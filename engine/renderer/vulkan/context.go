package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// WindowSurface is satisfied by *glfw.Window.
type WindowSurface interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

type ContextConfig struct {
	ApplicationName string
	// Instance extensions the window system needs.
	Extensions []string
	Validation bool
}

// VulkanContext is the instance, surface and logical device. Everything the
// renderer builds is created from it and must be released before it.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback
	commands      instanceCommands

	Device *VulkanDevice
	memory *memoryAllocator
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	return memoryTypeIndex(vc.Device.MemoryTypes, typeFilter, propertyFlags)
}

// memoryTypeIndex returns the first memory type allowed by typeFilter that
// has all of the required property flags, or -1.
func memoryTypeIndex(types []vk.MemoryPropertyFlags, typeFilter uint32, required vk.MemoryPropertyFlags) int32 {
	for i := 0; i < len(types) && i < 32; i++ {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<uint(i)) != 0 && types[i]&required == required {
			return int32(i)
		}
	}
	return -1
}
