package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

// TextureFormat is the layout of every decoded texture.
const TextureFormat = vk.FormatR8g8b8a8Unorm

/**
 * @brief A sampled texture and the index of its sampler descriptor set.
 */
type VulkanTexture struct {
	ID    uuid.UUID
	Name  string
	Image *VulkanImage
	/** @brief Index into the sampler descriptor sets, used as the texture index. */
	DescriptorIndex uint32
}

// samplerAnisotropy clamps the requested anisotropy to what the device allows.
func samplerAnisotropy(deviceLimit float32) float32 {
	return MathClamp(MaxSamplerAnisotropy, 1, deviceLimit)
}

func TextureSamplerCreateInfo(maxAnisotropy float32) vk.SamplerCreateInfo {
	return vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           samplerAnisotropy(maxAnisotropy),
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
	}
}

// CreateTextureSampler creates the sampler shared by every texture.
func CreateTextureSampler(context *VulkanContext) (vk.Sampler, error) {
	samplerInfo := TextureSamplerCreateInfo(context.Device.Properties.Limits.MaxSamplerAnisotropy)

	var sampler vk.Sampler
	if err := checkResult(vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler), core.ErrResourceCreation, "vkCreateSampler"); err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}

func validateImageData(data *metadata.ImageResourceData) error {
	if data == nil || data.Width == 0 || data.Height == 0 {
		return errors.Wrap(core.ErrInvalidAsset, "empty texture")
	}
	if want := int(data.Width) * int(data.Height) * 4; len(data.Pixels) != want {
		return errors.Wrapf(core.ErrInvalidAsset, "texture %dx%d holds %d bytes, want %d", data.Width, data.Height, len(data.Pixels), want)
	}
	return nil
}

// NewTexture uploads RGBA8 pixels into a device local image and allocates its
// sampler descriptor set.
func NewTexture(context *VulkanContext, descriptors *VulkanDescriptors, sampler vk.Sampler, name string, data *metadata.ImageResourceData) (*VulkanTexture, error) {
	if err := validateImageData(data); err != nil {
		return nil, errors.Wrapf(err, "texture `%s`", name)
	}

	image, err := ImageCreate(
		context,
		data.Width, data.Height,
		TextureFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "texture `%s`", name)
	}

	if err := UploadToImage(context, image, data.Pixels); err != nil {
		image.ImageDestroy(context)
		return nil, errors.Wrapf(err, "texture `%s`", name)
	}

	index, err := descriptors.WriteSamplerSet(context, image.View, sampler)
	if err != nil {
		image.ImageDestroy(context)
		return nil, errors.Wrapf(err, "texture `%s`", name)
	}

	texture := &VulkanTexture{
		ID:              uuid.New(),
		Name:            name,
		Image:           image,
		DescriptorIndex: index,
	}
	core.LogDebug("texture `%s` (%s) %dx%d uploaded as index %d", name, texture.ID, data.Width, data.Height, index)
	return texture, nil
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Image != nil {
		t.Image.ImageDestroy(context)
		t.Image = nil
	}
}
