package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredRenderPassAttachments(t *testing.T) {
	d := DeferredRenderPassDescription(vk.FormatB8g8r8a8Unorm, vk.FormatR8g8b8a8Unorm, vk.FormatD32Sfloat)
	require.Len(t, d.Attachments, int(AttachmentCount))

	swap := d.Attachments[AttachmentSwapchain]
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, swap.Format)
	assert.Equal(t, vk.AttachmentStoreOpStore, swap.StoreOp)
	assert.Equal(t, vk.ImageLayoutPresentSrc, swap.FinalLayout)

	color := d.Attachments[AttachmentColor]
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, color.Format)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, color.StoreOp)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, color.FinalLayout)

	depth := d.Attachments[AttachmentDepth]
	assert.Equal(t, vk.FormatD32Sfloat, depth.Format)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, depth.FinalLayout)

	for _, a := range d.Attachments {
		assert.Equal(t, vk.AttachmentLoadOpClear, a.LoadOp)
		assert.Equal(t, vk.ImageLayoutUndefined, a.InitialLayout)
	}
}

func TestDeferredRenderPassSubpasses(t *testing.T) {
	d := DeferredRenderPassDescription(vk.FormatB8g8r8a8Unorm, vk.FormatR8g8b8a8Unorm, vk.FormatD32Sfloat)
	require.Len(t, d.Subpasses, 2)

	geometry := d.Subpasses[SubpassGeometry]
	assert.Empty(t, geometry.Inputs)
	require.Len(t, geometry.Colors, 1)
	assert.Equal(t, AttachmentColor, geometry.Colors[0].Attachment)
	require.NotNil(t, geometry.Depth)
	assert.Equal(t, AttachmentDepth, geometry.Depth.Attachment)

	// the geometry subpass never touches the swapchain image
	for _, ref := range geometry.Colors {
		assert.NotEqual(t, AttachmentSwapchain, ref.Attachment)
	}

	lighting := d.Subpasses[SubpassLighting]
	require.Len(t, lighting.Inputs, 2)
	assert.Equal(t, AttachmentColor, lighting.Inputs[0].Attachment)
	assert.Equal(t, AttachmentDepth, lighting.Inputs[1].Attachment)
	for _, ref := range lighting.Inputs {
		assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, ref.Layout)
	}
	require.Len(t, lighting.Colors, 1)
	assert.Equal(t, AttachmentSwapchain, lighting.Colors[0].Attachment)
	assert.Nil(t, lighting.Depth)
}

func TestDeferredRenderPassDependencies(t *testing.T) {
	d := DeferredRenderPassDescription(vk.FormatB8g8r8a8Unorm, vk.FormatR8g8b8a8Unorm, vk.FormatD32Sfloat)
	require.Len(t, d.Dependencies, 3)

	in, between, out := d.Dependencies[0], d.Dependencies[1], d.Dependencies[2]

	assert.Equal(t, uint32(vk.SubpassExternal), in.SrcSubpass)
	assert.Equal(t, SubpassGeometry, in.DstSubpass)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), in.DstStageMask)

	assert.Equal(t, SubpassGeometry, between.SrcSubpass)
	assert.Equal(t, SubpassLighting, between.DstSubpass)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), between.DstStageMask)
	// the depth read in lighting waits for the depth write in geometry
	assert.NotZero(t, between.SrcStageMask&vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
	assert.NotZero(t, between.SrcStageMask&vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit))
	assert.NotZero(t, between.SrcAccessMask&vk.AccessFlags(vk.AccessColorAttachmentWriteBit))
	assert.NotZero(t, between.SrcAccessMask&vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit))
	assert.NotZero(t, between.DstAccessMask&vk.AccessFlags(vk.AccessShaderReadBit))
	assert.NotZero(t, between.DstAccessMask&vk.AccessFlags(vk.AccessInputAttachmentReadBit))

	assert.Equal(t, SubpassLighting, out.SrcSubpass)
	assert.Equal(t, uint32(vk.SubpassExternal), out.DstSubpass)
	assert.Equal(t, vk.AccessFlags(vk.AccessMemoryReadBit), out.DstAccessMask)
}

func TestDeferredClearValues(t *testing.T) {
	assert.Len(t, DeferredClearValues(), int(AttachmentCount))
}
