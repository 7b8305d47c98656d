package vulkan

/*
#define VK_NO_PROTOTYPES
#include <stdlib.h>
#include <vulkan/vulkan.h>

typedef struct {
	VkBool32 timelineSemaphore;
	VkBool32 bufferDeviceAddress;
	VkBool32 dynamicRendering;
	VkBool32 synchronization2;
} EmberFeatures;

typedef struct {
	VkSemaphore semaphore;
	uint64_t value;
	VkPipelineStageFlags2 stage;
} EmberSemaphoreSubmit;

typedef struct {
	VkPhysicalDeviceVulkan12Features features12;
	VkPhysicalDeviceVulkan13Features features13;
} EmberFeatureChain;

typedef struct {
	VkMemoryAllocateFlagsInfo flags;
	VkMemoryDedicatedAllocateInfo dedicated;
} EmberAllocateChain;

typedef struct {
	VkPipelineRenderingCreateInfo info;
	VkFormat color;
} EmberRenderingFormats;

static PFN_vkVoidFunction emberInstanceProc(PFN_vkGetInstanceProcAddr gipa, VkInstance instance, const char* name) {
	return gipa(instance, name);
}

static PFN_vkVoidFunction emberDeviceProc(PFN_vkGetDeviceProcAddr gdpa, VkDevice device, const char* name) {
	return gdpa(device, name);
}

static void emberQueryFeatures(PFN_vkGetPhysicalDeviceFeatures2 fn, VkPhysicalDevice physical, EmberFeatures* out) {
	VkPhysicalDeviceVulkan13Features f13 = { VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_3_FEATURES };
	VkPhysicalDeviceVulkan12Features f12 = { VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_2_FEATURES };
	VkPhysicalDeviceFeatures2 f = { VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_FEATURES_2 };
	f12.pNext = &f13;
	f.pNext = &f12;
	fn(physical, &f);
	out->timelineSemaphore = f12.timelineSemaphore;
	out->bufferDeviceAddress = f12.bufferDeviceAddress;
	out->dynamicRendering = f13.dynamicRendering;
	out->synchronization2 = f13.synchronization2;
}

// The chains below are handed to the binding as pNext and released with free.
static EmberFeatureChain* emberFeatureChain(void) {
	EmberFeatureChain* c = calloc(1, sizeof(EmberFeatureChain));
	if (c == NULL) {
		return NULL;
	}
	c->features12.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_2_FEATURES;
	c->features12.pNext = &c->features13;
	c->features12.timelineSemaphore = VK_TRUE;
	c->features12.bufferDeviceAddress = VK_TRUE;
	c->features13.sType = VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_VULKAN_1_3_FEATURES;
	c->features13.dynamicRendering = VK_TRUE;
	c->features13.synchronization2 = VK_TRUE;
	return c;
}

static VkSemaphoreTypeCreateInfo* emberTimelineType(uint64_t initial) {
	VkSemaphoreTypeCreateInfo* t = calloc(1, sizeof(VkSemaphoreTypeCreateInfo));
	if (t == NULL) {
		return NULL;
	}
	t->sType = VK_STRUCTURE_TYPE_SEMAPHORE_TYPE_CREATE_INFO;
	t->semaphoreType = VK_SEMAPHORE_TYPE_TIMELINE;
	t->initialValue = initial;
	return t;
}

// emberAllocateChain returns the pNext head for vkAllocateMemory in *head,
// or NULL when neither extension struct applies.
static EmberAllocateChain* emberAllocateChain(int deviceAddress, VkImage dedicated, void** head) {
	*head = NULL;
	if (!deviceAddress && dedicated == VK_NULL_HANDLE) {
		return NULL;
	}
	EmberAllocateChain* c = calloc(1, sizeof(EmberAllocateChain));
	if (c == NULL) {
		return NULL;
	}
	if (deviceAddress) {
		c->flags.sType = VK_STRUCTURE_TYPE_MEMORY_ALLOCATE_FLAGS_INFO;
		c->flags.flags = VK_MEMORY_ALLOCATE_DEVICE_ADDRESS_BIT;
		*head = &c->flags;
	}
	if (dedicated != VK_NULL_HANDLE) {
		c->dedicated.sType = VK_STRUCTURE_TYPE_MEMORY_DEDICATED_ALLOCATE_INFO;
		c->dedicated.pNext = *head;
		c->dedicated.image = dedicated;
		*head = &c->dedicated;
	}
	return c;
}

static EmberRenderingFormats* emberRenderingFormats(VkFormat color, VkFormat depth) {
	EmberRenderingFormats* r = calloc(1, sizeof(EmberRenderingFormats));
	if (r == NULL) {
		return NULL;
	}
	r->color = color;
	r->info.sType = VK_STRUCTURE_TYPE_PIPELINE_RENDERING_CREATE_INFO;
	r->info.colorAttachmentCount = 1;
	r->info.pColorAttachmentFormats = &r->color;
	r->info.depthAttachmentFormat = depth;
	return r;
}

static VkResult emberWaitSemaphore(PFN_vkWaitSemaphores fn, VkDevice device, VkSemaphore semaphore, uint64_t value, uint64_t timeout) {
	VkSemaphoreWaitInfo info = { VK_STRUCTURE_TYPE_SEMAPHORE_WAIT_INFO };
	info.semaphoreCount = 1;
	info.pSemaphores = &semaphore;
	info.pValues = &value;
	return fn(device, &info, timeout);
}

static VkResult emberQueueSubmit(PFN_vkQueueSubmit2 fn, VkQueue queue, VkCommandBuffer cmd,
		const EmberSemaphoreSubmit* waits, uint32_t waitCount,
		const EmberSemaphoreSubmit* signals, uint32_t signalCount) {
	VkSemaphoreSubmitInfo w[4];
	VkSemaphoreSubmitInfo s[4];
	if (waitCount > 4 || signalCount > 4) {
		return VK_ERROR_UNKNOWN;
	}
	for (uint32_t i = 0; i < waitCount; i++) {
		VkSemaphoreSubmitInfo x = { VK_STRUCTURE_TYPE_SEMAPHORE_SUBMIT_INFO };
		x.semaphore = waits[i].semaphore;
		x.value = waits[i].value;
		x.stageMask = waits[i].stage;
		w[i] = x;
	}
	for (uint32_t i = 0; i < signalCount; i++) {
		VkSemaphoreSubmitInfo x = { VK_STRUCTURE_TYPE_SEMAPHORE_SUBMIT_INFO };
		x.semaphore = signals[i].semaphore;
		x.value = signals[i].value;
		x.stageMask = signals[i].stage;
		s[i] = x;
	}
	VkCommandBufferSubmitInfo c = { VK_STRUCTURE_TYPE_COMMAND_BUFFER_SUBMIT_INFO };
	c.commandBuffer = cmd;
	VkSubmitInfo2 info = { VK_STRUCTURE_TYPE_SUBMIT_INFO_2 };
	info.waitSemaphoreInfoCount = waitCount;
	info.pWaitSemaphoreInfos = w;
	info.commandBufferInfoCount = 1;
	info.pCommandBufferInfos = &c;
	info.signalSemaphoreInfoCount = signalCount;
	info.pSignalSemaphoreInfos = s;
	return fn(queue, 1, &info, VK_NULL_HANDLE);
}

static VkDeviceAddress emberBufferAddress(PFN_vkGetBufferDeviceAddress fn, VkDevice device, VkBuffer buffer) {
	VkBufferDeviceAddressInfo info = { VK_STRUCTURE_TYPE_BUFFER_DEVICE_ADDRESS_INFO };
	info.buffer = buffer;
	return fn(device, &info);
}

static void emberPipelineBarrier(PFN_vkCmdPipelineBarrier2 fn, VkCommandBuffer cmd, VkImageMemoryBarrier2* barriers, uint32_t count) {
	for (uint32_t i = 0; i < count; i++) {
		barriers[i].sType = VK_STRUCTURE_TYPE_IMAGE_MEMORY_BARRIER_2;
		barriers[i].pNext = NULL;
		barriers[i].srcQueueFamilyIndex = VK_QUEUE_FAMILY_IGNORED;
		barriers[i].dstQueueFamilyIndex = VK_QUEUE_FAMILY_IGNORED;
	}
	VkDependencyInfo info = { VK_STRUCTURE_TYPE_DEPENDENCY_INFO };
	info.imageMemoryBarrierCount = count;
	info.pImageMemoryBarriers = barriers;
	fn(cmd, &info);
}

static void emberBeginRendering(PFN_vkCmdBeginRendering fn, VkCommandBuffer cmd,
		VkImageView color, VkImageView depth, uint32_t width, uint32_t height,
		float r, float g, float b, float a, float clearDepth) {
	VkRenderingAttachmentInfo colorAttachment = { VK_STRUCTURE_TYPE_RENDERING_ATTACHMENT_INFO };
	colorAttachment.imageView = color;
	colorAttachment.imageLayout = VK_IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL;
	colorAttachment.loadOp = VK_ATTACHMENT_LOAD_OP_CLEAR;
	colorAttachment.storeOp = VK_ATTACHMENT_STORE_OP_STORE;
	colorAttachment.clearValue.color.float32[0] = r;
	colorAttachment.clearValue.color.float32[1] = g;
	colorAttachment.clearValue.color.float32[2] = b;
	colorAttachment.clearValue.color.float32[3] = a;

	VkRenderingAttachmentInfo depthAttachment = { VK_STRUCTURE_TYPE_RENDERING_ATTACHMENT_INFO };
	depthAttachment.imageView = depth;
	depthAttachment.imageLayout = VK_IMAGE_LAYOUT_DEPTH_STENCIL_ATTACHMENT_OPTIMAL;
	depthAttachment.loadOp = VK_ATTACHMENT_LOAD_OP_CLEAR;
	depthAttachment.storeOp = VK_ATTACHMENT_STORE_OP_DONT_CARE;
	depthAttachment.clearValue.depthStencil.depth = clearDepth;

	VkRenderingInfo info = { VK_STRUCTURE_TYPE_RENDERING_INFO };
	info.renderArea.extent.width = width;
	info.renderArea.extent.height = height;
	info.layerCount = 1;
	info.colorAttachmentCount = 1;
	info.pColorAttachments = &colorAttachment;
	info.pDepthAttachment = &depthAttachment;
	fn(cmd, &info);
}

static void emberEndRendering(PFN_vkCmdEndRendering fn, VkCommandBuffer cmd) {
	fn(cmd);
}
*/
import "C"

import (
	"fmt"
	"slices"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
)

// The binding generates the 1.2 and 1.3 types but not their commands. The
// ones the frame loop needs are resolved here through the loader glfw found
// and called through the trampolines above.

// set by initLoader
var getInstanceProcAddr unsafe.Pointer

func instanceProc(instance vk.Instance, name string) unsafe.Pointer {
	if getInstanceProcAddr == nil {
		return nil
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return unsafe.Pointer(C.emberInstanceProc(C.PFN_vkGetInstanceProcAddr(getInstanceProcAddr), C.VkInstance(unsafe.Pointer(instance)), cname))
}

// instanceCommands are the instance-level entry points resolved per instance.
type instanceCommands struct {
	getPhysicalDeviceFeatures2 unsafe.Pointer
	getDeviceProcAddr          unsafe.Pointer
}

func loadInstanceCommands(instance vk.Instance) (instanceCommands, error) {
	cmds := instanceCommands{
		getPhysicalDeviceFeatures2: instanceProc(instance, "vkGetPhysicalDeviceFeatures2"),
		getDeviceProcAddr:          instanceProc(instance, "vkGetDeviceProcAddr"),
	}
	if missing := missingProcs(map[string]unsafe.Pointer{
		"vkGetPhysicalDeviceFeatures2": cmds.getPhysicalDeviceFeatures2,
		"vkGetDeviceProcAddr":          cmds.getDeviceProcAddr,
	}); len(missing) > 0 {
		return cmds, fmt.Errorf("instance entry points not found: %v", missing)
	}
	return cmds, nil
}

// deviceCommands are the device-level entry points the frame loop calls.
type deviceCommands struct {
	waitSemaphores         unsafe.Pointer
	queueSubmit2           unsafe.Pointer
	getBufferDeviceAddress unsafe.Pointer
	cmdPipelineBarrier2    unsafe.Pointer
	cmdBeginRendering      unsafe.Pointer
	cmdEndRendering        unsafe.Pointer
}

func loadDeviceCommands(instance instanceCommands, device vk.Device) (deviceCommands, error) {
	proc := func(name string) unsafe.Pointer {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))
		return unsafe.Pointer(C.emberDeviceProc(C.PFN_vkGetDeviceProcAddr(instance.getDeviceProcAddr), C.VkDevice(unsafe.Pointer(device)), cname))
	}
	cmds := deviceCommands{
		waitSemaphores:         proc("vkWaitSemaphores"),
		queueSubmit2:           proc("vkQueueSubmit2"),
		getBufferDeviceAddress: proc("vkGetBufferDeviceAddress"),
		cmdPipelineBarrier2:    proc("vkCmdPipelineBarrier2"),
		cmdBeginRendering:      proc("vkCmdBeginRendering"),
		cmdEndRendering:        proc("vkCmdEndRendering"),
	}
	if missing := missingProcs(map[string]unsafe.Pointer{
		"vkWaitSemaphores":         cmds.waitSemaphores,
		"vkQueueSubmit2":           cmds.queueSubmit2,
		"vkGetBufferDeviceAddress": cmds.getBufferDeviceAddress,
		"vkCmdPipelineBarrier2":    cmds.cmdPipelineBarrier2,
		"vkCmdBeginRendering":      cmds.cmdBeginRendering,
		"vkCmdEndRendering":        cmds.cmdEndRendering,
	}); len(missing) > 0 {
		return cmds, fmt.Errorf("device entry points not found: %v", missing)
	}
	return cmds, nil
}

func missingProcs(procs map[string]unsafe.Pointer) []string {
	var out []string
	for name, p := range procs {
		if p == nil {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func (c instanceCommands) queryFeatures(device vk.PhysicalDevice) deviceFeatures {
	var out C.EmberFeatures
	C.emberQueryFeatures(C.PFN_vkGetPhysicalDeviceFeatures2(c.getPhysicalDeviceFeatures2), C.VkPhysicalDevice(unsafe.Pointer(device)), &out)
	return deviceFeatures{
		TimelineSemaphore:   out.timelineSemaphore == C.VK_TRUE,
		BufferDeviceAddress: out.bufferDeviceAddress == C.VK_TRUE,
		DynamicRendering:    out.dynamicRendering == C.VK_TRUE,
		Synchronization2:    out.synchronization2 == C.VK_TRUE,
	}
}

// chain is C memory linked into a create info through PNext.
type chain struct {
	ptr  unsafe.Pointer
	head unsafe.Pointer
}

func (c chain) free() {
	if c.ptr != nil {
		C.free(c.ptr)
	}
}

func errNoMemory(what string) error {
	err := fmt.Errorf("out of host memory for %s", what)
	core.LogError(err.Error())
	return err
}

// frameFeatureChain enables timeline semaphores, buffer device address,
// dynamic rendering and synchronization2.
func frameFeatureChain() (chain, error) {
	p := unsafe.Pointer(C.emberFeatureChain())
	if p == nil {
		return chain{}, errNoMemory("device features")
	}
	return chain{ptr: p, head: p}, nil
}

func timelineTypeChain() (chain, error) {
	p := unsafe.Pointer(C.emberTimelineType(0))
	if p == nil {
		return chain{}, errNoMemory("timeline semaphore")
	}
	return chain{ptr: p, head: p}, nil
}

func allocateChain(deviceAddress bool, dedicated vk.Image) (chain, error) {
	flag := C.int(0)
	if deviceAddress {
		flag = 1
	}
	var head unsafe.Pointer
	p := unsafe.Pointer(C.emberAllocateChain(flag, C.VkImage(unsafe.Pointer(dedicated)), &head))
	if p == nil && (deviceAddress || dedicated != vk.NullImage) {
		return chain{}, errNoMemory("memory allocation")
	}
	return chain{ptr: p, head: head}, nil
}

func renderingFormatsChain(color, depth vk.Format) (chain, error) {
	p := unsafe.Pointer(C.emberRenderingFormats(C.VkFormat(color), C.VkFormat(depth)))
	if p == nil {
		return chain{}, errNoMemory("pipeline rendering formats")
	}
	return chain{ptr: p, head: p}, nil
}

func (d *deviceCommands) waitSemaphore(device vk.Device, semaphore vk.Semaphore, value, timeout uint64) vk.Result {
	return vk.Result(C.emberWaitSemaphore(C.PFN_vkWaitSemaphores(d.waitSemaphores), C.VkDevice(unsafe.Pointer(device)),
		C.VkSemaphore(unsafe.Pointer(semaphore)), C.uint64_t(value), C.uint64_t(timeout)))
}

func semaphoreSubmits(in []semaphoreSubmit) []C.EmberSemaphoreSubmit {
	out := make([]C.EmberSemaphoreSubmit, len(in))
	for i, s := range in {
		out[i] = C.EmberSemaphoreSubmit{
			semaphore: C.VkSemaphore(unsafe.Pointer(s.Semaphore)),
			value:     C.uint64_t(s.Value),
			stage:     C.VkPipelineStageFlags2(s.Stage),
		}
	}
	return out
}

func (d *deviceCommands) queueSubmit(queue vk.Queue, submit frameSubmit) vk.Result {
	waits := semaphoreSubmits(submit.Waits)
	signals := semaphoreSubmits(submit.Signals)
	var waitPtr, signalPtr *C.EmberSemaphoreSubmit
	if len(waits) > 0 {
		waitPtr = &waits[0]
	}
	if len(signals) > 0 {
		signalPtr = &signals[0]
	}
	return vk.Result(C.emberQueueSubmit(C.PFN_vkQueueSubmit2(d.queueSubmit2), C.VkQueue(unsafe.Pointer(queue)),
		C.VkCommandBuffer(unsafe.Pointer(submit.Command)),
		waitPtr, C.uint32_t(len(waits)), signalPtr, C.uint32_t(len(signals))))
}

func (d *deviceCommands) bufferAddress(device vk.Device, buffer vk.Buffer) uint64 {
	return uint64(C.emberBufferAddress(C.PFN_vkGetBufferDeviceAddress(d.getBufferDeviceAddress),
		C.VkDevice(unsafe.Pointer(device)), C.VkBuffer(unsafe.Pointer(buffer))))
}

func (d *deviceCommands) pipelineBarrier(cmd vk.CommandBuffer, barriers []imageBarrierInfo) {
	if len(barriers) == 0 {
		return
	}
	out := make([]C.VkImageMemoryBarrier2, len(barriers))
	for i, b := range barriers {
		out[i] = C.VkImageMemoryBarrier2{
			srcStageMask:        C.VkPipelineStageFlags2(b.SrcStage),
			srcAccessMask:       C.VkAccessFlags2(b.SrcAccess),
			dstStageMask:        C.VkPipelineStageFlags2(b.DstStage),
			dstAccessMask:       C.VkAccessFlags2(b.DstAccess),
			oldLayout:           C.VkImageLayout(b.OldLayout),
			newLayout:           C.VkImageLayout(b.NewLayout),
			image:               C.VkImage(unsafe.Pointer(b.Image)),
			subresourceRange: C.VkImageSubresourceRange{
				aspectMask: C.VkImageAspectFlags(b.Aspect),
				levelCount: 1,
				layerCount: 1,
			},
		}
	}
	C.emberPipelineBarrier(C.PFN_vkCmdPipelineBarrier2(d.cmdPipelineBarrier2), C.VkCommandBuffer(unsafe.Pointer(cmd)), &out[0], C.uint32_t(len(out)))
}

func (d *deviceCommands) beginRendering(cmd vk.CommandBuffer, color, depth vk.ImageView, width, height uint32, clear [4]float32, clearDepth float32) {
	C.emberBeginRendering(C.PFN_vkCmdBeginRendering(d.cmdBeginRendering), C.VkCommandBuffer(unsafe.Pointer(cmd)),
		C.VkImageView(unsafe.Pointer(color)), C.VkImageView(unsafe.Pointer(depth)),
		C.uint32_t(width), C.uint32_t(height),
		C.float(clear[0]), C.float(clear[1]), C.float(clear[2]), C.float(clear[3]), C.float(clearDepth))
}

func (d *deviceCommands) endRendering(cmd vk.CommandBuffer) {
	C.emberEndRendering(C.PFN_vkCmdEndRendering(d.cmdEndRendering), C.VkCommandBuffer(unsafe.Pointer(cmd)))
}
