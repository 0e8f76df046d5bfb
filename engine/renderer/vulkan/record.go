package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// frameRecorder emits the commands of one frame into the command buffer of a
// swapchain image.
type frameRecorder interface {
	Begin(imageIndex uint32) error
	BeginRenderPass(imageIndex uint32)
	BindGeometryPipeline()
	BindMeshDescriptors(imageIndex, textureID uint32)
	PushModel(transform mgl32.Mat4)
	BindGeometry(geometry *VulkanGeometry)
	DrawIndexed(indexCount uint32)
	NextSubpass()
	BindLightingPipeline(imageIndex uint32)
	DrawFullscreenTriangle()
	EndRenderPass()
	End() error
}

// recordFrame records the geometry subpass over every mesh of every model,
// then the lighting subpass.
func recordFrame(rec frameRecorder, imageIndex uint32, models []*VulkanModel) error {
	if err := rec.Begin(imageIndex); err != nil {
		return err
	}
	rec.BeginRenderPass(imageIndex)

	rec.BindGeometryPipeline()
	for _, model := range models {
		for _, mesh := range model.Meshes {
			rec.PushModel(model.Transform)
			rec.BindGeometry(mesh)
			rec.BindMeshDescriptors(imageIndex, mesh.TextureID)
			rec.DrawIndexed(mesh.IndexCount)
		}
	}

	rec.NextSubpass()
	rec.BindLightingPipeline(imageIndex)
	rec.DrawFullscreenTriangle()

	rec.EndRenderPass()
	return rec.End()
}

/**
 * @brief Records through vk commands into the per image command buffers of
 * the renderer.
 */
type vulkanFrameRecorder struct {
	r   *VulkanRenderer
	cmd *VulkanCommandBuffer
}

func (v *vulkanFrameRecorder) Begin(imageIndex uint32) error {
	v.cmd = v.r.commandBuffers[imageIndex]
	if err := v.cmd.Reset(); err != nil {
		return err
	}
	return v.cmd.Begin(false, false, false)
}

func (v *vulkanFrameRecorder) BeginRenderPass(imageIndex uint32) {
	swapchain := v.r.swapchain
	v.r.renderpass.RenderpassBegin(v.cmd, swapchain.Framebuffers[imageIndex].Handle)

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(swapchain.Extent.Width),
		Height:   float32(swapchain.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: swapchain.Extent,
	}
	vk.CmdSetViewport(v.cmd.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(v.cmd.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (v *vulkanFrameRecorder) BindGeometryPipeline() {
	v.r.geometryPipeline.Bind(v.cmd)
}

func (v *vulkanFrameRecorder) BindMeshDescriptors(imageIndex, textureID uint32) {
	sets := []vk.DescriptorSet{
		v.r.descriptors.ViewProjection.Sets[imageIndex],
		v.r.descriptors.Sampler.Sets[textureID],
	}
	vk.CmdBindDescriptorSets(v.cmd.Handle, vk.PipelineBindPointGraphics, v.r.geometryPipeline.PipelineLayout, 0, uint32(len(sets)), sets, 0, nil)
}

func (v *vulkanFrameRecorder) PushModel(transform mgl32.Mat4) {
	vk.CmdPushConstants(v.cmd.Handle, v.r.geometryPipeline.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, ModelPushConstantSize, unsafe.Pointer(&transform[0]))
}

func (v *vulkanFrameRecorder) BindGeometry(geometry *VulkanGeometry) {
	vk.CmdBindVertexBuffers(v.cmd.Handle, 0, 1, []vk.Buffer{geometry.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(v.cmd.Handle, geometry.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
}

func (v *vulkanFrameRecorder) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(v.cmd.Handle, indexCount, 1, 0, 0, 0)
}

func (v *vulkanFrameRecorder) NextSubpass() {
	v.r.renderpass.NextSubpass(v.cmd)
}

func (v *vulkanFrameRecorder) BindLightingPipeline(imageIndex uint32) {
	v.r.lightingPipeline.Bind(v.cmd)
	sets := []vk.DescriptorSet{v.r.descriptors.InputAttachment.Sets[imageIndex]}
	vk.CmdBindDescriptorSets(v.cmd.Handle, vk.PipelineBindPointGraphics, v.r.lightingPipeline.PipelineLayout, 0, 1, sets, 0, nil)
}

func (v *vulkanFrameRecorder) DrawFullscreenTriangle() {
	vk.CmdDraw(v.cmd.Handle, 3, 1, 0, 0)
}

func (v *vulkanFrameRecorder) EndRenderPass() {
	v.r.renderpass.RenderpassEnd(v.cmd)
}

func (v *vulkanFrameRecorder) End() error {
	return v.cmd.End()
}
