package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

// SubpassLayout lists the attachment references of one subpass.
type SubpassLayout struct {
	Inputs []vk.AttachmentReference
	Colors []vk.AttachmentReference
	// nil when the subpass has no depth attachment
	Depth *vk.AttachmentReference
}

// RenderPassDescription is everything vkCreateRenderPass needs, as plain data.
type RenderPassDescription struct {
	Attachments  []vk.AttachmentDescription
	Subpasses    []SubpassLayout
	Dependencies []vk.SubpassDependency
}

// Stages and accesses in which the geometry subpass writes its attachments.
// Depth is written by the late fragment tests and read back by lighting.
var (
	GeometryWriteStages = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
		vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
	GeometryWriteAccess = vk.AccessFlags(vk.AccessColorAttachmentWriteBit) |
		vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)
)

/**
 * @brief Describes the deferred pass: the geometry subpass writes the
 * off-screen color and depth attachments, the lighting subpass reads both as
 * input attachments and writes the swapchain image.
 */
func DeferredRenderPassDescription(swapchainFormat, colorFormat, depthFormat vk.Format) RenderPassDescription {
	attachments := make([]vk.AttachmentDescription, AttachmentCount)

	attachments[AttachmentSwapchain] = vk.AttachmentDescription{
		Format:         swapchainFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	// off-screen attachments die with the pass
	attachments[AttachmentColor] = vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}
	attachments[AttachmentDepth] = vk.AttachmentDescription{
		Format:         depthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	geometry := SubpassLayout{
		Colors: []vk.AttachmentReference{
			{Attachment: AttachmentColor, Layout: vk.ImageLayoutColorAttachmentOptimal},
		},
		Depth: &vk.AttachmentReference{Attachment: AttachmentDepth, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal},
	}
	lighting := SubpassLayout{
		Inputs: []vk.AttachmentReference{
			{Attachment: AttachmentColor, Layout: vk.ImageLayoutShaderReadOnlyOptimal},
			{Attachment: AttachmentDepth, Layout: vk.ImageLayoutShaderReadOnlyOptimal},
		},
		Colors: []vk.AttachmentReference{
			{Attachment: AttachmentSwapchain, Layout: vk.ImageLayoutColorAttachmentOptimal},
		},
	}

	colorReadWrite := vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    SubpassGeometry,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit),
			DstAccessMask: colorReadWrite,
		},
		// lighting reads only what geometry finished writing, color and depth
		{
			SrcSubpass:    SubpassGeometry,
			DstSubpass:    SubpassLighting,
			SrcStageMask:  GeometryWriteStages,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			SrcAccessMask: GeometryWriteAccess,
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessInputAttachmentReadBit),
		},
		{
			SrcSubpass:    SubpassLighting,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			SrcAccessMask: colorReadWrite,
			DstAccessMask: vk.AccessFlags(vk.AccessMemoryReadBit),
		},
	}

	return RenderPassDescription{
		Attachments:  attachments,
		Subpasses:    []SubpassLayout{geometry, lighting},
		Dependencies: dependencies,
	}
}

// DeferredClearValues are the clear colors of the swapchain, color and depth
// attachments, in attachment order.
func DeferredClearValues() []vk.ClearValue {
	clearValues := make([]vk.ClearValue, AttachmentCount)
	clearValues[AttachmentSwapchain].SetColor([]float32{0, 0, 0, 1})
	clearValues[AttachmentColor].SetColor([]float32{0.6, 0.65, 0.4, 0})
	clearValues[AttachmentDepth].SetDepthStencil(1, 0)
	return clearValues
}

type VulkanRenderpass struct {
	Handle      vk.RenderPass
	Extent      vk.Extent2D
	ClearValues []vk.ClearValue
}

func RenderpassCreate(context *VulkanContext, description RenderPassDescription, extent vk.Extent2D, clearValues []vk.ClearValue) (*VulkanRenderpass, error) {
	subpasses := make([]vk.SubpassDescription, len(description.Subpasses))
	for i, layout := range description.Subpasses {
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			InputAttachmentCount:    uint32(len(layout.Inputs)),
			PInputAttachments:       layout.Inputs,
			ColorAttachmentCount:    uint32(len(layout.Colors)),
			PColorAttachments:       layout.Colors,
			PDepthStencilAttachment: layout.Depth,
		}
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(description.Attachments)),
		PAttachments:    description.Attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(description.Dependencies)),
		PDependencies:   description.Dependencies,
	}

	var handle vk.RenderPass
	if err := checkResult(vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &handle), core.ErrResourceCreation, "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	return &VulkanRenderpass{
		Handle:      handle,
		Extent:      extent,
		ClearValues: clearValues,
	}, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vr.Extent,
		},
		ClearValueCount: uint32(len(vr.ClearValues)),
		PClearValues:    vr.ClearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) NextSubpass(commandBuffer *VulkanCommandBuffer) {
	vk.CmdNextSubpass(commandBuffer.Handle, vk.SubpassContentsInline)
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
