package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

// VulkanBuffer is a buffer bound to its own allocation.
type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	Size        vk.DeviceSize
	Usage       vk.BufferUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
}

func (vc *VulkanContext) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size:        size,
		Usage:       usage,
		MemoryFlags: memoryFlags,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if err := checkResult(vk.CreateBuffer(vc.Device.LogicalDevice, &bufferInfo, vc.Allocator, &handle), core.ErrResourceCreation, "vkCreateBuffer"); err != nil {
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryType, err := vc.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		vc.DestroyBuffer(buffer)
		return nil, errors.Wrap(err, "buffer memory")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	var memory vk.DeviceMemory
	if err := checkResult(vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &memory), core.ErrResourceCreation, "vkAllocateMemory"); err != nil {
		vc.DestroyBuffer(buffer)
		return nil, err
	}
	buffer.Memory = memory

	if err := checkResult(vk.BindBufferMemory(vc.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0), core.ErrResourceCreation, "vkBindBufferMemory"); err != nil {
		vc.DestroyBuffer(buffer)
		return nil, err
	}
	return buffer, nil
}

func (vc *VulkanContext) DestroyBuffer(buffer *VulkanBuffer) {
	if buffer == nil {
		return
	}
	if buffer.Handle != vk.NullBuffer {
		vk.DestroyBuffer(vc.Device.LogicalDevice, buffer.Handle, vc.Allocator)
		buffer.Handle = vk.NullBuffer
	}
	if buffer.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(vc.Device.LogicalDevice, buffer.Memory, vc.Allocator)
		buffer.Memory = vk.NullDeviceMemory
	}
	buffer.Size = 0
}

// WriteBuffer copies data to the start of a host visible buffer through a
// map/copy/unmap. The memory is coherent so no flush is needed.
func (vc *VulkanContext) WriteBuffer(buffer *VulkanBuffer, data []byte) error {
	if vk.DeviceSize(len(data)) > buffer.Size {
		return errors.Wrapf(core.ErrResourceCreation, "write of %d bytes into a %d byte buffer", len(data), buffer.Size)
	}
	var mapped unsafe.Pointer
	if err := checkResult(vk.MapMemory(vc.Device.LogicalDevice, buffer.Memory, 0, vk.DeviceSize(len(data)), 0, &mapped), core.ErrResourceCreation, "vkMapMemory"); err != nil {
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(vc.Device.LogicalDevice, buffer.Memory)
	return nil
}

// ReadBuffer returns a copy of the whole contents of a host visible buffer.
func (vc *VulkanContext) ReadBuffer(buffer *VulkanBuffer) ([]byte, error) {
	var mapped unsafe.Pointer
	if err := checkResult(vk.MapMemory(vc.Device.LogicalDevice, buffer.Memory, 0, buffer.Size, 0, &mapped), core.ErrResourceCreation, "vkMapMemory"); err != nil {
		return nil, err
	}
	out := make([]byte, buffer.Size)
	copy(out, unsafe.Slice((*byte)(mapped), int(buffer.Size)))
	vk.UnmapMemory(vc.Device.LogicalDevice, buffer.Memory)
	return out, nil
}

func (vc *VulkanContext) CmdCopyBuffer(cmd *VulkanCommandBuffer, src, dst *VulkanBuffer, size vk.DeviceSize) {
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(cmd.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
}

func (vc *VulkanContext) CmdTransitionImage(cmd *VulkanCommandBuffer, image *VulkanImage, oldLayout, newLayout vk.ImageLayout) error {
	b, err := layoutTransitionBarrier(oldLayout, newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcAccessMask: b.SrcAccess,
		DstAccessMask: b.DstAccess,
	}
	vk.CmdPipelineBarrier(cmd.Handle, b.SrcStage, b.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

func (vc *VulkanContext) CmdCopyBufferToImage(cmd *VulkanCommandBuffer, src *VulkanBuffer, image *VulkanImage) {
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  image.Width,
			Height: image.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cmd.Handle, src.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}
