package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestRequiredInstanceExtensions(t *testing.T) {
	window := []string{vk.KhrSurfaceExtensionName, "VK_KHR_xcb_surface"}

	got := requiredInstanceExtensions(window, false, "linux")
	assert.Equal(t, []string{vk.KhrSurfaceExtensionName, "VK_KHR_xcb_surface"}, got)

	got = requiredInstanceExtensions(window, true, "linux")
	assert.Contains(t, got, vk.ExtDebugReportExtensionName)

	got = requiredInstanceExtensions([]string{"VK_EXT_metal_surface"}, false, "darwin")
	assert.Contains(t, got, portabilityEnumerationExtension)
	assert.Contains(t, got, "VK_KHR_get_physical_device_properties2")
}
