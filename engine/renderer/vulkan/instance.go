package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/ember/engine/core"
)

var (
	loaderOnce sync.Once
	loaderErr  error
)

// initLoader points the binding at the loader glfw found. The function table
// is process-wide, so this runs once no matter how many contexts are made.
func initLoader() error {
	loaderOnce.Do(func() {
		procAddr := glfw.GetVulkanGetInstanceProcAddress()
		if procAddr == nil {
			loaderErr = errors.New("GetInstanceProcAddress is nil")
			return
		}
		getInstanceProcAddr = procAddr
		vk.SetGetInstanceProcAddr(procAddr)
		loaderErr = vk.Init()
	})
	return loaderErr
}

// NewContext creates the instance, the debug callback, the window surface
// and the logical device. On failure whatever was created is released.
func NewContext(cfg ContextConfig, window WindowSurface) (_ *VulkanContext, err error) {
	if err := initLoader(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, core.NewInitError(core.InitResourceCreation, "vulkan loader", err)
	}

	vc := &VulkanContext{Allocator: nil}
	var teardown core.Teardown
	defer func() {
		if err != nil {
			teardown.Unwind()
		}
	}()

	if err := vc.createInstance(cfg); err != nil {
		return nil, core.NewInitError(core.InitResourceCreation, "instance", err)
	}
	teardown.Push("instance", func() {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	})
	core.LogInfo("Vulkan Instance created.")

	if cfg.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		if err := vc.createDebugCallback(); err != nil {
			return nil, core.NewInitError(core.InitResourceCreation, "debug callback", err)
		}
		teardown.Push("debug callback", func() {
			vk.DestroyDebugReportCallback(vc.Instance, vc.debugCallback, vc.Allocator)
		})
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(vc.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %s", err)
		return nil, core.NewInitError(core.InitResourceCreation, "surface", err)
	}
	vc.Surface = vk.SurfaceFromPointer(surface)
	teardown.Push("surface", func() {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
	})
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vc); err != nil {
		// selection errors are already *core.InitError
		return nil, err
	}
	teardown.Push("device", func() { DeviceDestroy(vc) })

	vc.memory = newMemoryAllocator(vc)
	return vc, nil
}

// Destroy releases the device, surface and instance. Every object created
// from the context must be gone by now.
func (vc *VulkanContext) Destroy() {
	if vc.memory != nil {
		vc.memory.Destroy()
		vc.memory = nil
	}
	if vc.Device != nil {
		core.LogInfo("Destroying Vulkan device...")
		DeviceDestroy(vc)
	}
	if vc.Surface != vk.NullSurface {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugCallback, vc.Allocator)
		vc.debugCallback = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		core.LogInfo("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func (vc *VulkanContext) createInstance(cfg ContextConfig) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         apiVersion,
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(cfg.ApplicationName),
		PEngineName:        VulkanSafeString("Ember Engine"),
		EngineVersion:      uint32(vk.MakeVersion(0, 1, 0)),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := instanceExtensions(cfg.Extensions, cfg.Validation, runtime.GOOS)
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= vk.InstanceCreateFlags(instanceCreateEnumeratePortability)
	}
	core.LogDebug("Required extensions: %v", extensions)
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)

	var layers []string
	if cfg.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableLayers()
		if err != nil {
			return err
		}
		layers = []string{validationLayerName}
		if missing := missingNames(layers, available); len(missing) > 0 {
			err := fmt.Errorf("required validation layers are missing: %v", missing)
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if err := check("vkCreateInstance", vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance)); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}

// instanceExtensions is the window system's list plus what the platform and
// validation need, without duplicates.
func instanceExtensions(window []string, validation bool, goos string) []string {
	out := make([]string, 0, len(window)+3)
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	add("VK_KHR_surface")
	for _, name := range window {
		add(name)
	}
	if goos == "darwin" {
		add(portabilityEnumerationExtension)
		add("VK_KHR_get_physical_device_properties2")
	}
	if validation {
		add(vk.ExtDebugReportExtensionName)
	}
	return out
}

func availableLayers() ([]string, error) {
	var count uint32
	if err := check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	properties := make([]vk.LayerProperties, count)
	if err := check("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, properties)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].LayerName[:]))
	}
	return names, nil
}

// missingNames returns the entries of required not in available.
func missingNames(required, available []string) []string {
	have := make(map[string]bool, len(available))
	for _, name := range available {
		have[name] = true
	}
	var missing []string
	for _, name := range required {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func (vc *VulkanContext) createDebugCallback() error {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := check("vkCreateDebugReportCallback", vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, vc.Allocator, &dbg)); err != nil {
		core.LogError(err.Error())
		return err
	}
	vc.debugCallback = dbg
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
