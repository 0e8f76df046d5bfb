package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Contains(t, VulkanResultString(vk.ErrorDeviceLost, true), "VK_ERROR_DEVICE_LOST")
	assert.Equal(t, "VK_RESULT(-12345)", VulkanResultString(vk.Result(-12345), true))
}

func TestVulkanResultIsSuccess(t *testing.T) {
	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorOutOfDate))
}

func TestCheckResult(t *testing.T) {
	assert.NoError(t, checkResult(vk.Success, core.ErrResourceCreation, "vkCreateBuffer"))

	err := checkResult(vk.ErrorOutOfDeviceMemory, core.ErrResourceCreation, "vkCreateBuffer")
	assert.True(t, errors.Is(err, core.ErrResourceCreation))
	assert.Contains(t, err.Error(), "vkCreateBuffer")
	assert.Contains(t, err.Error(), "VK_ERROR_OUT_OF_DEVICE_MEMORY")

	// suboptimal is not a success for a frame
	err = checkResult(vk.Suboptimal, core.ErrFrameSubmission, "vkQueuePresentKHR")
	assert.True(t, errors.Is(err, core.ErrFrameSubmission))
}

func TestMathClamp(t *testing.T) {
	assert.Equal(t, uint32(5), MathClamp(uint32(1), 5, 10))
	assert.Equal(t, uint32(10), MathClamp(uint32(11), 5, 10))
	assert.Equal(t, uint32(7), MathClamp(uint32(7), 5, 10))
	assert.Equal(t, float32(0.5), MathClamp(float32(0.5), 0, 1))
}

func TestVulkanSafeStrings(t *testing.T) {
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
	assert.Equal(t, "main\x00", VulkanSafeString("main\x00"))

	in := []string{"VK_KHR_surface"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"VK_KHR_surface\x00"}, out)
	assert.Equal(t, "VK_KHR_surface", in[0])
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "VK_KHR_swapchain")
	assert.Equal(t, "VK_KHR_swapchain", cString(name[:]))

	copy(name[:], "abc\x00")
	assert.Equal(t, "abc", cString(name[:]))
}

func TestMissingNames(t *testing.T) {
	assert.Empty(t, missingNames([]string{"a", "b"}, []string{"b", "a", "c"}))
	assert.Equal(t, []string{"c", "a"}, missingNames([]string{"c", "b", "a"}, []string{"b"}))
}
