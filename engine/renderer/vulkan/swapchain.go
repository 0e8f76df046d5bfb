package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

// VulkanSwapchain owns the presentable images and, per image, the off-screen
// color and depth attachments the geometry subpass renders into.
type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// one per swapchain image
	ColorAttachments []*VulkanImage
	DepthAttachments []*VulkanImage

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// ChooseBestSurfaceFormat prefers 8 bit RGBA or BGRA in SRGB nonlinear space.
// A single undefined entry means any format is accepted.
func ChooseBestSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	for _, format := range formats {
		if (format.Format == vk.FormatR8g8b8a8Unorm || format.Format == vk.FormatB8g8r8a8Unorm) &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// ChooseBestPresentationMode returns mailbox when offered, FIFO otherwise.
func ChooseBestPresentationMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseSwapExtent uses the surface's current extent unless it is the
// undefined sentinel, in which case the framebuffer size is clamped into the
// allowed range.
func ChooseSwapExtent(capabilities vk.SurfaceCapabilities, framebufferWidth, framebufferHeight uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  MathClamp(framebufferWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: MathClamp(framebufferHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, within the maximum
// when the surface reports one.
func ChooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	support := context.Device.SwapchainSupport
	swapchain := &VulkanSwapchain{
		ImageFormat: ChooseBestSurfaceFormat(support.Formats),
		Extent:      ChooseSwapExtent(support.Capabilities, width, height),
	}
	presentMode := ChooseBestPresentationMode(support.PresentModes)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    ChooseImageCount(support.Capabilities),
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := checkResult(vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle), core.ErrResourceCreation, "vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}
	swapchain.Handle = handle

	// Images
	if err := checkResult(vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil), core.ErrResourceCreation, "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if err := checkResult(vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images), core.ErrResourceCreation, "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}

	// Views
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	for i := range swapchain.Images {
		view, err := createImageView(context, swapchain.Images[i], swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return nil, err
		}
		swapchain.Views[i] = view
	}

	if err := swapchain.createAttachments(context); err != nil {
		return nil, err
	}

	core.LogInfo("Swapchain created successfully: %d images %dx%d.", swapchain.ImageCount, swapchain.Extent.Width, swapchain.Extent.Height)
	return swapchain, nil
}

// createAttachments builds one off-screen color and one depth image per
// swapchain image. Both are read back as input attachments by the lighting
// subpass.
func (vs *VulkanSwapchain) createAttachments(context *VulkanContext) error {
	vs.ColorAttachments = make([]*VulkanImage, vs.ImageCount)
	vs.DepthAttachments = make([]*VulkanImage, vs.ImageCount)

	for i := uint32(0); i < vs.ImageCount; i++ {
		color, err := ImageCreate(
			context,
			vs.Extent.Width,
			vs.Extent.Height,
			context.Device.ColorFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageInputAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		vs.ColorAttachments[i] = color

		depth, err := ImageCreate(
			context,
			vs.Extent.Width,
			vs.Extent.Height,
			context.Device.DepthFormat,
			vk.ImageTilingOptimal,
			vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit|vk.ImageUsageInputAttachmentBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			true,
			vk.ImageAspectFlags(vk.ImageAspectDepthBit))
		if err != nil {
			return err
		}
		vs.DepthAttachments[i] = depth
	}
	return nil
}

// AcquireNextImageIndex signals imageAvailable once the returned image can be
// rendered to. It does not block on the device.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, imageAvailable vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, math.MaxUint64, imageAvailable, vk.NullFence, &imageIndex)
	if err := checkResult(res, core.ErrFrameSubmission, "vkAcquireNextImageKHR"); err != nil {
		return 0, err
	}
	return imageIndex, nil
}

// Present queues imageIndex for display once renderFinished is signaled.
func (vs *VulkanSwapchain) Present(context *VulkanContext, renderFinished vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return context.Locks.SafeQueueCall(uint32(context.Device.PresentQueueIndex), func() error {
		return checkResult(vk.QueuePresent(context.Device.PresentQueue, &presentInfo), core.ErrFrameSubmission, "vkQueuePresentKHR")
	})
}

func (vs *VulkanSwapchain) DestroyFramebuffers(context *VulkanContext) {
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = nil
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.DestroyFramebuffers(context)

	for i := range vs.ColorAttachments {
		if vs.ColorAttachments[i] != nil {
			vs.ColorAttachments[i].ImageDestroy(context)
		}
		if vs.DepthAttachments[i] != nil {
			vs.DepthAttachments[i].ImageDestroy(context)
		}
	}
	vs.ColorAttachments = nil
	vs.DepthAttachments = nil

	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, view := range vs.Views {
		if view != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
