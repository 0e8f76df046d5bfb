package vulkan

import (
	"runtime"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

const portabilityEnumerationExtension = "VK_KHR_portability_enumeration"

// vkInstanceCreateEnumeratePortabilityBit is VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR.
const vkInstanceCreateEnumeratePortabilityBit vk.InstanceCreateFlags = 0x00000001

// requiredInstanceExtensions lists what the instance needs on top of what the
// window system asks for.
func requiredInstanceExtensions(windowExtensions []string, validation bool, goos string) []string {
	required := []string{vk.KhrSurfaceExtensionName}
	for _, ext := range windowExtensions {
		if !containsName(required, ext) {
			required = append(required, ext)
		}
	}
	if goos == "darwin" {
		required = append(required, portabilityEnumerationExtension, "VK_KHR_get_physical_device_properties2")
	}
	if validation {
		required = append(required, vk.ExtDebugReportExtensionName)
	}
	return required
}

func containsName(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func availableInstanceExtensions() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success {
		return nil, checkResult(res, core.ErrMissingExtension, "vkEnumerateInstanceExtensionProperties")
	}
	props := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateInstanceExtensionProperties("", &count, props); res != vk.Success {
		return nil, checkResult(res, core.ErrMissingExtension, "vkEnumerateInstanceExtensionProperties")
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].ExtensionName[:]))
	}
	return names, nil
}

func availableLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, checkResult(res, core.ErrMissingLayer, "vkEnumerateInstanceLayerProperties")
	}
	props := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, props); res != vk.Success {
		return nil, checkResult(res, core.ErrMissingLayer, "vkEnumerateInstanceLayerProperties")
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].LayerName[:]))
	}
	return names, nil
}

// createInstance checks every required extension and layer before creating the
// instance. A missing one is fatal.
func createInstance(context *VulkanContext, appName string, windowExtensions []string, validation bool) error {
	extensions := requiredInstanceExtensions(windowExtensions, validation, runtime.GOOS)

	available, err := availableInstanceExtensions()
	if err != nil {
		return err
	}
	if missing := missingNames(extensions, available); len(missing) > 0 {
		return errors.Wrapf(core.ErrMissingExtension, "instance extensions [%s]", strings.Join(missing, ", "))
	}
	core.LogDebug("Required extensions: %s", strings.Join(extensions, ", "))

	layers := []string{}
	if validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = append(layers, validationLayerName)
		availableLayerNames, err := availableLayers()
		if err != nil {
			return err
		}
		if missing := missingNames(layers, availableLayerNames); len(missing) > 0 {
			return errors.Wrapf(core.ErrMissingLayer, "validation layers [%s]", strings.Join(missing, ", "))
		}
		core.LogInfo("All required validation layers are present.")
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		PEngineName:        VulkanSafeString("Anima Deferred"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}
	if containsName(extensions, portabilityEnumerationExtension) {
		createInfo.Flags |= vkInstanceCreateEnumeratePortabilityBit
	}

	var instance vk.Instance
	if err := checkResult(vk.CreateInstance(&createInfo, context.Allocator, &instance), core.ErrMissingExtension, "vkCreateInstance"); err != nil {
		return err
	}
	context.Instance = instance
	if err := vk.InitInstance(context.Instance); err != nil {
		return errors.Wrap(err, "load instance functions")
	}
	core.LogInfo("Vulkan Instance created.")

	if validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := checkResult(vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg), core.ErrMissingExtension, "vkCreateDebugReportCallback"); err != nil {
			return err
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func destroyInstance(context *VulkanContext) {
	if context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}
	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
