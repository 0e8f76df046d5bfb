package vulkan

import (
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   *VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	// may alias GraphicsQueue
	PresentQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	ColorFormat vk.Format
	DepthFormat vk.Format
}

type VulkanPhysicalDeviceRequirements struct {
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
}

// DefaultDeviceRequirements is what the deferred renderer needs from a GPU.
func DefaultDeviceRequirements() *VulkanPhysicalDeviceRequirements {
	return &VulkanPhysicalDeviceRequirements{
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
		SamplerAnisotropy:    true,
	}
}

/**
 * @brief Queue family indices picked for a device, -1 when not found.
 */
type QueueFamilyIndices struct {
	Graphics int32
	Present  int32
}

func (d *VulkanDevice) queueFamiliesSelected() bool {
	return QueueFamilyIndices{Graphics: d.GraphicsQueueIndex, Present: d.PresentQueueIndex}.IsComplete()
}

func (q QueueFamilyIndices) IsComplete() bool {
	return q.Graphics >= 0 && q.Present >= 0
}

// FindQueueFamilies scans families in index order and keeps the first match for
// each role. A role is never reassigned and the scan stops once both are found.
func FindQueueFamilies(families []vk.QueueFamilyProperties, presentSupport func(family uint32) bool) QueueFamilyIndices {
	indices := QueueFamilyIndices{Graphics: -1, Present: -1}
	for i, family := range families {
		if family.QueueCount == 0 {
			continue
		}
		if indices.Graphics < 0 && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			indices.Graphics = int32(i)
		}
		if indices.Present < 0 && presentSupport(uint32(i)) {
			indices.Present = int32(i)
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices
}

// deviceProbe is the subset of physical device queries the suitability check needs.
type deviceProbe interface {
	QueueFamilies() []vk.QueueFamilyProperties
	PresentSupport(family uint32) bool
	Extensions() []string
	SwapchainSupport() (*VulkanSwapchainSupportInfo, error)
	Features() vk.PhysicalDeviceFeatures
}

type physicalDeviceProbe struct {
	device  vk.PhysicalDevice
	surface vk.Surface
}

func (p physicalDeviceProbe) QueueFamilies() []vk.QueueFamilyProperties {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.device, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.device, &count, families)
	for i := range families {
		families[i].Deref()
	}
	return families
}

func (p physicalDeviceProbe) PresentSupport(family uint32) bool {
	var supported vk.Bool32
	if res := vk.GetPhysicalDeviceSurfaceSupport(p.device, family, p.surface, &supported); res != vk.Success {
		return false
	}
	return supported == vk.True
}

func (p physicalDeviceProbe) Extensions() []string {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(p.device, "", &count, nil); res != vk.Success {
		return nil
	}
	props := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(p.device, "", &count, props); res != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cString(props[i].ExtensionName[:]))
	}
	return names
}

func (p physicalDeviceProbe) SwapchainSupport() (*VulkanSwapchainSupportInfo, error) {
	return DeviceQuerySwapchainSupport(p.device, p.surface)
}

func (p physicalDeviceProbe) Features() vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.device, &features)
	features.Deref()
	return features
}

// PhysicalDeviceMeetsRequirements checks, in order and stopping at the first
// failure: queue families, device extensions, swapchain support and sampler
// anisotropy.
func PhysicalDeviceMeetsRequirements(probe deviceProbe, requirements *VulkanPhysicalDeviceRequirements) (QueueFamilyIndices, *VulkanSwapchainSupportInfo, bool) {
	indices := FindQueueFamilies(probe.QueueFamilies(), probe.PresentSupport)
	if !indices.IsComplete() {
		core.LogInfo("Device lacks a graphics or present queue family, skipping.")
		return indices, nil, false
	}
	core.LogDebug("Graphics Family Index: %d", indices.Graphics)
	core.LogDebug("Present Family Index:  %d", indices.Present)

	if missing := missingNames(requirements.DeviceExtensionNames, probe.Extensions()); len(missing) > 0 {
		core.LogInfo("Required extensions not found: '%s', skipping device.", strings.Join(missing, ", "))
		return indices, nil, false
	}

	support, err := probe.SwapchainSupport()
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return indices, nil, false
	}

	if requirements.SamplerAnisotropy && probe.Features().SamplerAnisotropy != vk.True {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return indices, nil, false
	}
	return indices, support, true
}

// SelectPhysicalDevice picks the first device that passes every check. There
// is no scoring. The choice is made once; later calls keep it.
func SelectPhysicalDevice(context *VulkanContext, requirements *VulkanPhysicalDeviceRequirements) error {
	if context.Device.PhysicalDevice != nil {
		core.LogDebug("Physical device already selected.")
		return nil
	}
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return checkResult(res, core.ErrNoSuitableDevice, "vkEnumeratePhysicalDevices")
	}
	if physicalDeviceCount == 0 {
		return errors.Wrap(core.ErrNoSuitableDevice, "no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return checkResult(res, core.ErrNoSuitableDevice, "vkEnumeratePhysicalDevices")
	}

	probes := make([]deviceProbe, len(physicalDevices))
	for i, physicalDevice := range physicalDevices {
		probes[i] = physicalDeviceProbe{device: physicalDevice, surface: context.Surface}
	}
	chosen, indices, support, ok := firstSuitableDevice(probes, requirements, func(i int) {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()
		core.LogDebug("Evaluating device '%s'", cString(properties.DeviceName[:]))
	})
	if !ok {
		return errors.Wrap(core.ErrNoSuitableDevice, "no physical devices were found which meet the requirements")
	}
	physicalDevice := physicalDevices[chosen]

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
	memory.Deref()
	for j := uint32(0); j < memory.MemoryTypeCount; j++ {
		memory.MemoryTypes[j].Deref()
	}
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
	}

	logDeviceInfo(cString(properties.DeviceName[:]), &properties, &memory)

	context.Device.PhysicalDevice = physicalDevice
	context.Device.GraphicsQueueIndex = indices.Graphics
	context.Device.PresentQueueIndex = indices.Present
	context.Device.SwapchainSupport = support
	context.Device.Properties = properties
	context.Device.Features = probes[chosen].Features()
	context.Device.Memory = memory
	core.LogInfo("Physical device selected.")
	return nil
}

// firstSuitableDevice runs the requirement checks over probes in order and
// stops at the first device passing all of them.
func firstSuitableDevice(probes []deviceProbe, requirements *VulkanPhysicalDeviceRequirements, evaluating func(i int)) (int, QueueFamilyIndices, *VulkanSwapchainSupportInfo, bool) {
	for i, probe := range probes {
		if evaluating != nil {
			evaluating(i)
		}
		if indices, support, ok := PhysicalDeviceMeetsRequirements(probe, requirements); ok {
			return i, indices, support, true
		}
	}
	return -1, QueueFamilyIndices{Graphics: -1, Present: -1}, nil, false
}

func logDeviceInfo(name string, properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", name)
	switch properties.DeviceType {
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

	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		heap := memory.MemoryHeaps[j]
		sizeGib := float64(heap.Size) / (1 << 30)
		if heap.Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", sizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", sizeGib)
		}
	}
}

// DeviceCreate creates the logical device for the physical device chosen by
// SelectPhysicalDevice, with one queue per distinct family and the graphics
// command pool, then probes the attachment formats.
func DeviceCreate(context *VulkanContext, requirements *VulkanPhysicalDeviceRequirements) error {
	if context.Device.PhysicalDevice == nil || !context.Device.queueFamiliesSelected() {
		return errors.Wrap(core.ErrNoSuitableDevice, "DeviceCreate called before a physical device was selected")
	}

	core.LogInfo("Creating logical device...")
	device := context.Device

	families := []uint32{uint32(device.GraphicsQueueIndex)}
	if device.PresentQueueIndex != device.GraphicsQueueIndex {
		families = append(families, uint32(device.PresentQueueIndex))
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	extensionNames := append([]string{}, requirements.DeviceExtensionNames...)
	if containsName(physicalDeviceProbe{device: device.PhysicalDevice}.Extensions(), portabilitySubsetExtension) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if err := checkResult(vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice), core.ErrDeviceCreation, "vkCreateDevice"); err != nil {
		return err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &graphicsQueue)
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.PresentQueueIndex), 0, &presentQueue)
	device.GraphicsQueue = graphicsQueue
	device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := checkResult(vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool), core.ErrDeviceCreation, "vkCreateCommandPool"); err != nil {
		return err
	}
	device.GraphicsCommandPool = pool
	core.LogInfo("Graphics command pool created.")

	if err := DeviceDetectFormats(device); err != nil {
		return err
	}
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	device.GraphicsQueue = nil
	device.PresentQueue = nil

	if device.GraphicsCommandPool != vk.NullCommandPool {
		core.LogInfo("Destroying command pools...")
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}

	if device.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	device.PhysicalDevice = nil
	device.SwapchainSupport = nil
	device.GraphicsQueueIndex = -1
	device.PresentQueueIndex = -1
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	support := &VulkanSwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities); res != vk.Success {
		return nil, checkResult(res, core.ErrNoSuitableDevice, "vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return nil, checkResult(res, core.ErrNoSuitableDevice, "vkGetPhysicalDeviceSurfaceFormatsKHR")
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats); res != vk.Success {
			return nil, checkResult(res, core.ErrNoSuitableDevice, "vkGetPhysicalDeviceSurfaceFormatsKHR")
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return nil, checkResult(res, core.ErrNoSuitableDevice, "vkGetPhysicalDeviceSurfacePresentModesKHR")
	}
	if presentModeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, support.PresentModes); res != vk.Success {
			return nil, checkResult(res, core.ErrNoSuitableDevice, "vkGetPhysicalDeviceSurfacePresentModesKHR")
		}
	}
	return support, nil
}

// ChooseSupportedFormat returns the first candidate whose features for tiling
// include every bit of features.
func ChooseSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags, query func(vk.Format) vk.FormatProperties) (vk.Format, error) {
	for _, candidate := range candidates {
		properties := query(candidate)
		switch {
		case tiling == vk.ImageTilingLinear && properties.LinearTilingFeatures&features == features:
			return candidate, nil
		case tiling == vk.ImageTilingOptimal && properties.OptimalTilingFeatures&features == features:
			return candidate, nil
		}
	}
	return vk.FormatUndefined, errors.Wrapf(core.ErrUnsupportedFormat, "none of %d candidates support features %#x", len(candidates), uint32(features))
}

var (
	colorFormatCandidates = []vk.Format{vk.FormatR8g8b8a8Unorm}
	depthFormatCandidates = []vk.Format{vk.FormatD32SfloatS8Uint, vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint}
)

// DeviceDetectFormats picks the off-screen color and depth attachment formats.
func DeviceDetectFormats(device *VulkanDevice) error {
	query := func(format vk.Format) vk.FormatProperties {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, format, &properties)
		properties.Deref()
		return properties
	}

	color, err := ChooseSupportedFormat(colorFormatCandidates, vk.ImageTilingOptimal, vk.FormatFeatureFlags(vk.FormatFeatureColorAttachmentBit), query)
	if err != nil {
		return errors.Wrap(err, "color attachment format")
	}
	depth, err := ChooseSupportedFormat(depthFormatCandidates, vk.ImageTilingOptimal, vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit), query)
	if err != nil {
		return errors.Wrap(err, "depth attachment format")
	}
	device.ColorFormat = color
	device.DepthFormat = depth
	return nil
}
