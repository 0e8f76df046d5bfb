package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if err := checkResult(vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &handle), core.ErrResourceCreation, "vkCreateFramebuffer"); err != nil {
		return nil, err
	}
	outFramebuffer.Handle = handle
	return outFramebuffer, nil
}

// deferredAttachmentViews orders the views of one swapchain image the way the
// deferred render pass declares its attachments.
func deferredAttachmentViews(swapchainView, colorView, depthView vk.ImageView) []vk.ImageView {
	views := make([]vk.ImageView, AttachmentCount)
	views[AttachmentSwapchain] = swapchainView
	views[AttachmentColor] = colorView
	views[AttachmentDepth] = depthView
	return views
}

// CreateFramebuffers builds one framebuffer per swapchain image over its own
// color and depth attachments.
func (vs *VulkanSwapchain) CreateFramebuffers(context *VulkanContext, renderpass *VulkanRenderpass) error {
	vs.Framebuffers = make([]*VulkanFramebuffer, 0, vs.ImageCount)
	for i := uint32(0); i < vs.ImageCount; i++ {
		views := deferredAttachmentViews(vs.Views[i], vs.ColorAttachments[i].View, vs.DepthAttachments[i].View)
		fb, err := FramebufferCreate(context, renderpass, vs.Extent.Width, vs.Extent.Height, views)
		if err != nil {
			vs.DestroyFramebuffers(context)
			return err
		}
		vs.Framebuffers = append(vs.Framebuffers, fb)
	}
	return nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
	vfb.Renderpass = nil
}
