package vulkan

import (
	"fmt"
	"strings"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Name           string

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	GraphicsQueue      vk.Queue
	PresentQueue       vk.Queue

	// Pool for one-shot upload command buffers.
	UploadCommandPool vk.CommandPool

	Properties  vk.PhysicalDeviceProperties
	MemoryTypes []vk.MemoryPropertyFlags

	commands deviceCommands
}

type deviceFeatures struct {
	TimelineSemaphore   bool
	BufferDeviceAddress bool
	DynamicRendering    bool
	Synchronization2    bool
}

func (f deviceFeatures) missing() []string {
	var out []string
	if !f.TimelineSemaphore {
		out = append(out, "timelineSemaphore")
	}
	if !f.BufferDeviceAddress {
		out = append(out, "bufferDeviceAddress")
	}
	if !f.DynamicRendering {
		out = append(out, "dynamicRendering")
	}
	if !f.Synchronization2 {
		out = append(out, "synchronization2")
	}
	return out
}

type queueFamily struct {
	Graphics bool
	Present  bool
}

// deviceCandidate is what selection needs to know about a physical device.
type deviceCandidate struct {
	Index             int
	Name              string
	Discrete          bool
	APIVersion        uint32
	Extensions        []string
	Families          []queueFamily
	HasSurfaceFormats bool
	Features          deviceFeatures
	PortabilitySubset bool
}

// pickQueueFamilies prefers one family that can do both graphics and
// present, and falls back to the first of each.
func pickQueueFamilies(families []queueFamily) (graphics, present uint32, ok bool) {
	g, p := -1, -1
	for i, f := range families {
		if f.Graphics && f.Present {
			return uint32(i), uint32(i), true
		}
		if f.Graphics && g < 0 {
			g = i
		}
		if f.Present && p < 0 {
			p = i
		}
	}
	if g < 0 || p < 0 {
		return 0, 0, false
	}
	return uint32(g), uint32(p), true
}

// uniqueFamilies lists each queue family once, graphics first.
func uniqueFamilies(graphics, present uint32) []uint32 {
	if graphics == present {
		return []uint32{graphics}
	}
	return []uint32{graphics, present}
}

func (c deviceCandidate) presentable() bool {
	if len(missingNames([]string{vk.KhrSwapchainExtensionName}, c.Extensions)) > 0 || !c.HasSurfaceFormats {
		return false
	}
	_, _, ok := pickQueueFamilies(c.Families)
	return ok
}

// unmet lists why a presentable device still cannot run the renderer.
func (c deviceCandidate) unmet() []string {
	var out []string
	if c.APIVersion < apiVersion {
		v := vk.Version(c.APIVersion)
		out = append(out, fmt.Sprintf("Vulkan %d.%d.%d < 1.3", v.Major(), v.Minor(), v.Patch()))
	}
	return append(out, c.Features.missing()...)
}

// selectCandidate picks the device the renderer runs on. Among suitable
// devices a discrete GPU wins, otherwise the first one listed.
func selectCandidate(candidates []deviceCandidate) (deviceCandidate, error) {
	var best *deviceCandidate
	var rejected []string
	presentable := 0

	for i := range candidates {
		c := &candidates[i]
		if !c.presentable() {
			core.LogInfo("Device '%s' cannot present to the surface, skipping.", c.Name)
			continue
		}
		presentable++
		if unmet := c.unmet(); len(unmet) > 0 {
			core.LogInfo("Device '%s' lacks %s, skipping.", c.Name, strings.Join(unmet, ", "))
			rejected = append(rejected, fmt.Sprintf("%s: %s", c.Name, strings.Join(unmet, ", ")))
			continue
		}
		if best == nil || (c.Discrete && !best.Discrete) {
			best = c
		}
	}

	switch {
	case best != nil:
		return *best, nil
	case presentable == 0:
		return deviceCandidate{}, core.NewInitError(core.InitNoSuitableDevice, "device selection", nil)
	default:
		return deviceCandidate{}, core.NewInitError(core.InitMissingFeatures, "device selection", fmt.Errorf("%s", strings.Join(rejected, "; ")))
	}
}

func queryCandidate(cmds instanceCommands, index int, device vk.PhysicalDevice, surface vk.Surface) (deviceCandidate, error) {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	c := deviceCandidate{
		Index:      index,
		Name:       vk.ToString(properties.DeviceName[:]),
		Discrete:   properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		APIVersion: properties.ApiVersion,
	}

	var extensionCount uint32
	if err := check("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, nil)); err != nil {
		return c, err
	}
	extensions := make([]vk.ExtensionProperties, extensionCount)
	if err := check("vkEnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(device, "", &extensionCount, extensions)); err != nil {
		return c, err
	}
	for i := range extensions {
		extensions[i].Deref()
		name := vk.ToString(extensions[i].ExtensionName[:])
		c.Extensions = append(c.Extensions, name)
		if name == portabilitySubsetExtension {
			c.PortabilitySubset = true
		}
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)
	for i := range families {
		families[i].Deref()
		var supportsPresent vk.Bool32
		if err := check("vkGetPhysicalDeviceSurfaceSupport", vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent)); err != nil {
			return c, err
		}
		c.Families = append(c.Families, queueFamily{
			Graphics: vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0,
			Present:  supportsPresent == vk.True,
		})
	}

	var formatCount uint32
	if err := check("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(device, surface, &formatCount, nil)); err != nil {
		return c, err
	}
	c.HasSurfaceFormats = formatCount > 0

	// the 1.2 and 1.3 feature structs are only defined from 1.2 on
	if c.APIVersion >= uint32(vk.MakeVersion(1, 2, 0)) {
		c.Features = cmds.queryFeatures(device)
	}
	return c, nil
}

func SelectPhysicalDevice(context *VulkanContext) (vk.PhysicalDevice, deviceCandidate, error) {
	var physicalDeviceCount uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil)); err != nil {
		return nil, deviceCandidate{}, core.NewInitError(core.InitNoSuitableDevice, "device enumeration", err)
	}
	if physicalDeviceCount == 0 {
		core.LogError("No devices which support Vulkan were found.")
		return nil, deviceCandidate{}, core.NewInitError(core.InitNoSuitableDevice, "device enumeration", nil)
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices)); err != nil {
		return nil, deviceCandidate{}, core.NewInitError(core.InitNoSuitableDevice, "device enumeration", err)
	}

	candidates := make([]deviceCandidate, 0, len(physicalDevices))
	for i, pd := range physicalDevices {
		c, err := queryCandidate(context.commands, i, pd, context.Surface)
		if err != nil {
			core.LogWarn("Failed to query device %d: %s", i, err)
			continue
		}
		candidates = append(candidates, c)
	}

	selected, err := selectCandidate(candidates)
	if err != nil {
		core.LogError(err.Error())
		return nil, deviceCandidate{}, err
	}
	return physicalDevices[selected.Index], selected, nil
}

func DeviceCreate(context *VulkanContext) error {
	instanceCommands, err := loadInstanceCommands(context.Instance)
	if err != nil {
		core.LogError(err.Error())
		return core.NewInitError(core.InitMissingFeatures, "instance entry points", err)
	}
	context.commands = instanceCommands

	physicalDevice, selected, err := SelectPhysicalDevice(context)
	if err != nil {
		return err
	}
	graphics, present, _ := pickQueueFamilies(selected.Families)

	device := &VulkanDevice{
		PhysicalDevice:     physicalDevice,
		Name:               selected.Name,
		GraphicsQueueIndex: graphics,
		PresentQueueIndex:  present,
	}
	vk.GetPhysicalDeviceProperties(physicalDevice, &device.Properties)
	device.Properties.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
	memory.Deref()
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		device.MemoryTypes = append(device.MemoryTypes, memory.MemoryTypes[i].PropertyFlags)
	}
	logDeviceInfo(device, &memory)

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	families := uniqueFamilies(graphics, present)
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if selected.PortabilitySubset {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	// Enable exactly what the frame loop relies on.
	enabled, err := frameFeatureChain()
	if err != nil {
		return core.NewInitError(core.InitResourceCreation, "logical device", err)
	}
	defer enabled.free()

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   enabled.head,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if err := check("vkCreateDevice", vk.CreateDevice(physicalDevice, &deviceCreateInfo, context.Allocator, &device.LogicalDevice)); err != nil {
		core.LogError(err.Error())
		return core.NewInitError(core.InitResourceCreation, "logical device", err)
	}
	core.LogInfo("Logical device created.")

	commands, err := loadDeviceCommands(context.commands, device.LogicalDevice)
	if err != nil {
		core.LogError(err.Error())
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		return core.NewInitError(core.InitMissingFeatures, "device entry points", err)
	}
	device.commands = commands

	vk.GetDeviceQueue(device.LogicalDevice, graphics, 0, &device.GraphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, present, 0, &device.PresentQueue)
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: graphics,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &device.UploadCommandPool)); err != nil {
		core.LogError(err.Error())
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		return core.NewInitError(core.InitResourceCreation, "upload command pool", err)
	}

	context.Device = device
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	if device == nil {
		return
	}
	device.GraphicsQueue = nil
	device.PresentQueue = nil

	core.LogInfo("Destroying command pools...")
	vk.DestroyCommandPool(device.LogicalDevice, device.UploadCommandPool, context.Allocator)

	core.LogInfo("Destroying logical device...")
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device = nil
}

func logDeviceInfo(device *VulkanDevice, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", device.Name)
	switch device.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	driver := vk.Version(device.Properties.DriverVersion)
	core.LogInfo("GPU Driver version: %d.%d.%d", driver.Major(), driver.Minor(), driver.Patch())
	api := vk.Version(device.Properties.ApiVersion)
	core.LogInfo("Vulkan API version: %d.%d.%d", api.Major(), api.Minor(), api.Patch())

	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		sizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", sizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", sizeGib)
		}
	}
	core.LogDebug("Graphics Family Index: %d", device.GraphicsQueueIndex)
	core.LogDebug("Present Family Index:  %d", device.PresentQueueIndex)
}
