package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorLayoutBindings(t *testing.T) {
	vp := ViewProjectionLayoutBindings()
	require.Len(t, vp, 1)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, vp[0].DescriptorType)
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit), vp[0].StageFlags)

	sampler := SamplerLayoutBindings()
	require.Len(t, sampler, 1)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, sampler[0].DescriptorType)
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageFragmentBit), sampler[0].StageFlags)

	input := InputAttachmentLayoutBindings()
	require.Len(t, input, 2)
	for i, b := range input {
		assert.Equal(t, uint32(i), b.Binding)
		assert.Equal(t, vk.DescriptorTypeInputAttachment, b.DescriptorType)
	}
}

func TestPoolSizesFor(t *testing.T) {
	sizes := poolSizesFor(InputAttachmentLayoutBindings(), 3)
	require.Len(t, sizes, 1)
	assert.Equal(t, vk.DescriptorTypeInputAttachment, sizes[0].Type)
	assert.Equal(t, uint32(6), sizes[0].DescriptorCount)

	sizes = poolSizesFor(SamplerLayoutBindings(), DefaultMaxObjects)
	require.Len(t, sizes, 1)
	assert.Equal(t, DefaultMaxObjects, sizes[0].DescriptorCount)
}

func TestDescriptorFamilyExhausted(t *testing.T) {
	// the capacity check runs before any device call
	family := &VulkanDescriptorFamily{Capacity: 2, Sets: make([]vk.DescriptorSet, 2)}
	_, err := family.Allocate(nil, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrResourceCreation))
}
