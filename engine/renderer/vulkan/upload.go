package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

// transferDevice is what the staging path needs from the device. VulkanContext
// implements it.
type transferDevice interface {
	CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error)
	DestroyBuffer(buffer *VulkanBuffer)
	WriteBuffer(buffer *VulkanBuffer, data []byte) error
	ReadBuffer(buffer *VulkanBuffer) ([]byte, error)
	SubmitOnce(record func(cmd *VulkanCommandBuffer) error) error
	CmdCopyBuffer(cmd *VulkanCommandBuffer, src, dst *VulkanBuffer, size vk.DeviceSize)
	CmdTransitionImage(cmd *VulkanCommandBuffer, image *VulkanImage, oldLayout, newLayout vk.ImageLayout) error
	CmdCopyBufferToImage(cmd *VulkanCommandBuffer, src *VulkanBuffer, image *VulkanImage)
}

var hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

// createStagingBuffer returns a host visible buffer already holding data.
func createStagingBuffer(dev transferDevice, data []byte) (*VulkanBuffer, error) {
	staging, err := dev.CreateBuffer(vk.DeviceSize(len(data)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "staging buffer")
	}
	if err := dev.WriteBuffer(staging, data); err != nil {
		dev.DestroyBuffer(staging)
		return nil, err
	}
	return staging, nil
}

// UploadToDeviceLocalBuffer copies data into a new device local buffer with
// usage plus the transfer bits. The staging buffer is freed before returning.
func UploadToDeviceLocalBuffer(dev transferDevice, data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(core.ErrResourceCreation, "upload of an empty buffer")
	}
	size := vk.DeviceSize(len(data))

	staging, err := createStagingBuffer(dev, data)
	if err != nil {
		return nil, err
	}
	defer dev.DestroyBuffer(staging)

	// transfer src keeps the buffer readable through DownloadBuffer
	usage |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) | vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	buffer, err := dev.CreateBuffer(size, usage, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, errors.Wrap(err, "device local buffer")
	}

	err = dev.SubmitOnce(func(cmd *VulkanCommandBuffer) error {
		dev.CmdCopyBuffer(cmd, staging, buffer, size)
		return nil
	})
	if err != nil {
		dev.DestroyBuffer(buffer)
		return nil, errors.Wrap(err, "staging copy")
	}
	return buffer, nil
}

// UploadToImage fills image with pixels. The image ends in the shader read
// only layout.
func UploadToImage(dev transferDevice, image *VulkanImage, pixels []byte) error {
	staging, err := createStagingBuffer(dev, pixels)
	if err != nil {
		return err
	}
	defer dev.DestroyBuffer(staging)

	return dev.SubmitOnce(func(cmd *VulkanCommandBuffer) error {
		if err := dev.CmdTransitionImage(cmd, image, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		dev.CmdCopyBufferToImage(cmd, staging, image)
		return dev.CmdTransitionImage(cmd, image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}

// DownloadBuffer reads a device local buffer back through a host visible copy.
// It is a debug path and blocks like every upload.
func DownloadBuffer(dev transferDevice, src *VulkanBuffer) ([]byte, error) {
	readback, err := dev.CreateBuffer(src.Size, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), hostVisibleCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "readback buffer")
	}
	defer dev.DestroyBuffer(readback)

	err = dev.SubmitOnce(func(cmd *VulkanCommandBuffer) error {
		dev.CmdCopyBuffer(cmd, src, readback, src.Size)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "readback copy")
	}
	return dev.ReadBuffer(readback)
}
