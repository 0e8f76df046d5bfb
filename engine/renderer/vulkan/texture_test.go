package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func TestTextureSamplerCreateInfo(t *testing.T) {
	info := TextureSamplerCreateInfo(16)
	assert.Equal(t, vk.FilterLinear, info.MagFilter)
	assert.Equal(t, vk.FilterLinear, info.MinFilter)
	assert.Equal(t, vk.SamplerAddressModeRepeat, info.AddressModeU)
	assert.Equal(t, vk.SamplerAddressModeRepeat, info.AddressModeV)
	assert.Equal(t, vk.SamplerAddressModeRepeat, info.AddressModeW)
	assert.Equal(t, vk.Bool32(vk.True), info.AnisotropyEnable)
	assert.Equal(t, float32(16), info.MaxAnisotropy)
}

func TestSamplerAnisotropyClampsToDevice(t *testing.T) {
	assert.Equal(t, float32(16), samplerAnisotropy(16))
	assert.Equal(t, float32(8), samplerAnisotropy(8))
	assert.Equal(t, float32(16), samplerAnisotropy(64))
}

func TestValidateImageData(t *testing.T) {
	assert.NoError(t, validateImageData(metadata.WhitePixel()))

	err := validateImageData(&metadata.ImageResourceData{Width: 2, Height: 2, Pixels: []uint8{1, 2, 3, 4}})
	assert.True(t, errors.Is(err, core.ErrInvalidAsset))

	err = validateImageData(nil)
	assert.True(t, errors.Is(err, core.ErrInvalidAsset))
}
