package vulkan

import (
	"fmt"
	"sort"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
)

type allocationRequest struct {
	Requirements vk.MemoryRequirements
	Properties   vk.MemoryPropertyFlags
	// Set for memory bound to buffers created with device address usage.
	DeviceAddress bool
	// Non-null asks for a dedicated allocation for this image.
	DedicatedImage vk.Image
	Label          string
}

// memoryAllocator hands out one VkDeviceMemory per resource and keeps track
// of what is still alive.
type memoryAllocator struct {
	device    vk.Device
	callbacks *vk.AllocationCallbacks
	types     []vk.MemoryPropertyFlags
	live      *ledger[vk.DeviceMemory]
}

func newMemoryAllocator(context *VulkanContext) *memoryAllocator {
	return &memoryAllocator{
		device:    context.Device.LogicalDevice,
		callbacks: context.Allocator,
		types:     context.Device.MemoryTypes,
		live:      newLedger[vk.DeviceMemory](),
	}
}

func (a *memoryAllocator) Allocate(req allocationRequest) (vk.DeviceMemory, error) {
	index := memoryTypeIndex(a.types, req.Requirements.MemoryTypeBits, req.Properties)
	if index < 0 {
		err := fmt.Errorf("no memory type for `%s` (filter %#x, properties %#x)", req.Label, req.Requirements.MemoryTypeBits, req.Properties)
		core.LogError(err.Error())
		return vk.NullDeviceMemory, err
	}

	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Requirements.Size,
		MemoryTypeIndex: uint32(index),
	}

	next, err := allocateChain(req.DeviceAddress, req.DedicatedImage)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	defer next.free()
	info.PNext = next.head

	var memory vk.DeviceMemory
	if err := check("vkAllocateMemory", vk.AllocateMemory(a.device, &info, a.callbacks, &memory)); err != nil {
		core.LogError("failed to allocate %d bytes for `%s`: %s", req.Requirements.Size, req.Label, err)
		return vk.NullDeviceMemory, err
	}
	a.live.Add(memory, req.Label, uint64(req.Requirements.Size))
	return memory, nil
}

func (a *memoryAllocator) Free(memory vk.DeviceMemory) {
	if memory == vk.NullDeviceMemory {
		return
	}
	if !a.live.Remove(memory) {
		core.LogWarn("freeing device memory the allocator does not own")
	}
	vk.FreeMemory(a.device, memory, a.callbacks)
}

// Destroy reports allocations that were never freed. It does not free them:
// the objects bound to them are already gone or about to be.
func (a *memoryAllocator) Destroy() {
	for _, leak := range a.live.Leaks() {
		core.LogWarn("Leaked device memory: %s", leak)
	}
}

// ledger counts live allocations by handle.
type ledger[K comparable] struct {
	mu      sync.Mutex
	entries map[K]ledgerEntry
	bytes   uint64
}

type ledgerEntry struct {
	label string
	size  uint64
}

func newLedger[K comparable]() *ledger[K] {
	return &ledger[K]{entries: make(map[K]ledgerEntry)}
}

func (l *ledger[K]) Add(key K, label string, size uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = ledgerEntry{label: label, size: size}
	l.bytes += size
}

func (l *ledger[K]) Remove(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return false
	}
	delete(l.entries, key)
	l.bytes -= e.size
	return true
}

func (l *ledger[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *ledger[K]) Bytes() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bytes
}

// Leaks describes every live entry, sorted.
func (l *ledger[K]) Leaks() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, fmt.Sprintf("`%s` (%d bytes)", e.label, e.size))
	}
	sort.Strings(out)
	return out
}
