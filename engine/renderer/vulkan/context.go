package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

// VulkanContext is the device context: instance, surface and the selected
// device. Every other GPU object is created through it.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// only set when validation is enabled
	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Locks *VulkanLockPool
}

func NewVulkanContext() *VulkanContext {
	return &VulkanContext{
		Allocator: nil,
		Device:    &VulkanDevice{GraphicsQueueIndex: -1, PresentQueueIndex: -1},
		Locks:     NewVulkanLockPool(),
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// every bit of propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	if index, ok := findMemoryType(&vc.Device.Memory, typeFilter, propertyFlags); ok {
		return index, nil
	}
	core.LogWarn("Unable to find suitable memory type!")
	return 0, errors.Wrapf(core.ErrResourceCreation, "no memory type for filter %#x with properties %#x", typeFilter, uint32(propertyFlags))
}

func findMemoryType(memory *vk.PhysicalDeviceMemoryProperties, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<i) != 0 && memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, true
		}
	}
	return 0, false
}
