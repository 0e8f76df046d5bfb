package vulkan

import (
	"path"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/platform"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/components"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

// AssetSource is the part of the asset manager the renderer loads through.
type AssetSource interface {
	LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	LoadImages(names []string, params *metadata.ImageResourceParams) ([]*metadata.Resource, error)
}

type RendererConfig struct {
	AppName        string
	FramesInFlight uint32
	MaxObjects     uint32
	// nil follows the build, see DefaultValidation.
	Validation *bool
	// ShaderDir is relative to the asset root.
	ShaderDir string
}

// normalize fills zero values with defaults and clamps frames in flight.
func (c RendererConfig) normalize() RendererConfig {
	if c.AppName == "" {
		c.AppName = "Anima Deferred"
	}
	if c.FramesInFlight == 0 {
		c.FramesInFlight = DefaultMaxFramesInFlight
	}
	c.FramesInFlight = MathClamp(c.FramesInFlight, 1, MaxFramesInFlight)
	if c.MaxObjects == 0 {
		c.MaxObjects = DefaultMaxObjects
	}
	if c.ShaderDir == "" {
		c.ShaderDir = "shaders"
	}
	if c.Validation == nil {
		validation := DefaultValidation
		c.Validation = &validation
	}
	return c
}

func (c RendererConfig) ValidationEnabled() bool {
	if c.Validation == nil {
		return DefaultValidation
	}
	return *c.Validation
}

/**
 * @brief The deferred renderer. It owns every GPU object, created in Init and
 * released in Deinit.
 */
type VulkanRenderer struct {
	config RendererConfig
	assets AssetSource

	context   *VulkanContext
	swapchain *VulkanSwapchain

	renderpass       *VulkanRenderpass
	geometryPipeline *VulkanPipeline
	lightingPipeline *VulkanPipeline

	descriptors    *VulkanDescriptors
	sampler        vk.Sampler
	uniformBuffers []*VulkanBuffer
	camera         *components.Camera

	// one per swapchain image
	commandBuffers []*VulkanCommandBuffer
	frames         *FrameSyncPool
	orchestrator   *FrameOrchestrator

	textures []*VulkanTexture
	models   []*VulkanModel

	initialized bool
}

func New(assets AssetSource, config RendererConfig) *VulkanRenderer {
	return &VulkanRenderer{
		config:  config.normalize(),
		assets:  assets,
		context: NewVulkanContext(),
		sampler: vk.NullSampler,
	}
}

// Init creates every GPU object for the window of p. On failure the partially
// built state is left as is; callers are expected to exit.
func (vr *VulkanRenderer) Init(p *platform.Platform) error {
	if vr.initialized {
		return nil
	}
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return errors.Wrap(core.ErrMissingExtension, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize vk")
	}

	if err := createInstance(vr.context, vr.config.AppName, p.GetRequiredExtensionNames(), vr.config.ValidationEnabled()); err != nil {
		return err
	}

	surface, err := p.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		return errors.Wrapf(core.ErrResourceCreation, "window surface: %s", err)
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)

	requirements := DefaultDeviceRequirements()
	if err := SelectPhysicalDevice(vr.context, requirements); err != nil {
		return err
	}
	if err := DeviceCreate(vr.context, requirements); err != nil {
		return err
	}

	vr.context.FramebufferWidth, vr.context.FramebufferHeight = p.FramebufferSize()
	if vr.swapchain, err = SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight); err != nil {
		return err
	}

	device := vr.context.Device
	description := DeferredRenderPassDescription(vr.swapchain.ImageFormat.Format, device.ColorFormat, device.DepthFormat)
	if vr.renderpass, err = RenderpassCreate(vr.context, description, vr.swapchain.Extent, DeferredClearValues()); err != nil {
		return err
	}
	if err := vr.swapchain.CreateFramebuffers(vr.context, vr.renderpass); err != nil {
		return err
	}

	if vr.descriptors, err = NewVulkanDescriptors(vr.context, vr.swapchain.ImageCount, vr.config.MaxObjects); err != nil {
		return err
	}
	if err := vr.createPipelines(); err != nil {
		return err
	}
	if err := vr.createUniformBuffers(); err != nil {
		return err
	}
	if err := vr.descriptors.WriteInputAttachmentSets(vr.context, vr.swapchain); err != nil {
		return err
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}

	if vr.frames, err = NewFrameSyncPool(vr.context, vr.config.FramesInFlight); err != nil {
		return err
	}
	if vr.orchestrator, err = NewFrameOrchestrator(&vulkanFrameBackend{r: vr}, vr.config.FramesInFlight, vr.swapchain.ImageCount); err != nil {
		return err
	}

	if vr.sampler, err = CreateTextureSampler(vr.context); err != nil {
		return err
	}
	// texture index 0, sampled by untextured meshes
	if _, err := vr.createTexture("default", metadata.WhitePixel()); err != nil {
		return err
	}

	vr.initialized = true
	core.LogInfo("Vulkan renderer initialized: %d swapchain images, %d frames in flight.", vr.swapchain.ImageCount, vr.config.FramesInFlight)
	return nil
}

// ShaderBuildHint is attached to shader load failures; the SPIR-V files are build outputs.
const ShaderBuildHint = "compile the GLSL sources first with `mage build:shaders`"

func (vr *VulkanRenderer) loadShaderStage(name string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	res, err := vr.assets.LoadAsset(path.Join(vr.config.ShaderDir, name), metadata.ResourceTypeBinary, nil)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "shader `%s`", name), ShaderBuildHint)
	}
	return NewShaderStage(vr.context, res, stage)
}

func (vr *VulkanRenderer) createPipelines() error {
	stageFiles := []struct {
		name  string
		stage vk.ShaderStageFlagBits
	}{
		{GeometryVertexShader, vk.ShaderStageVertexBit},
		{GeometryFragmentShader, vk.ShaderStageFragmentBit},
		{LightingVertexShader, vk.ShaderStageVertexBit},
		{LightingFragmentShader, vk.ShaderStageFragmentBit},
	}
	stages := make([]*VulkanShaderStage, 0, len(stageFiles))
	defer func() { destroyShaderStages(vr.context, stages) }()
	for _, f := range stageFiles {
		s, err := vr.loadShaderStage(f.name, f.stage)
		if err != nil {
			return err
		}
		stages = append(stages, s)
	}

	var err error
	geometry := GeometryPipelineConfig(vr.renderpass, vr.descriptors.ViewProjection.Layout, vr.descriptors.Sampler.Layout, shaderStageInfos(stages[:2]))
	if vr.geometryPipeline, err = NewGraphicsPipeline(vr.context, geometry); err != nil {
		return err
	}
	lighting := LightingPipelineConfig(vr.renderpass, vr.descriptors.InputAttachment.Layout, shaderStageInfos(stages[2:]))
	if vr.lightingPipeline, err = NewGraphicsPipeline(vr.context, lighting); err != nil {
		return err
	}
	return nil
}

func (vr *VulkanRenderer) createUniformBuffers() error {
	vr.uniformBuffers = make([]*VulkanBuffer, 0, vr.swapchain.ImageCount)
	for i := uint32(0); i < vr.swapchain.ImageCount; i++ {
		buffer, err := vr.context.CreateBuffer(vk.DeviceSize(metadata.ViewProjectionSize), vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisibleCoherent)
		if err != nil {
			return errors.Wrapf(err, "uniform buffer %d", i)
		}
		vr.uniformBuffers = append(vr.uniformBuffers, buffer)
	}
	vr.camera = components.NewCamera()
	return vr.descriptors.WriteViewProjectionSets(vr.context, vr.uniformBuffers)
}

func (vr *VulkanRenderer) createCommandBuffers() error {
	vr.commandBuffers = make([]*VulkanCommandBuffer, 0, vr.swapchain.ImageCount)
	for i := uint32(0); i < vr.swapchain.ImageCount; i++ {
		cmd, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return errors.Wrapf(err, "command buffer %d", i)
		}
		vr.commandBuffers = append(vr.commandBuffers, cmd)
	}
	core.LogDebug("Vulkan command buffers created.")
	return nil
}

func (vr *VulkanRenderer) createTexture(name string, data *metadata.ImageResourceData) (uint32, error) {
	texture, err := NewTexture(vr.context, vr.descriptors, vr.sampler, name, data)
	if err != nil {
		return 0, err
	}
	vr.textures = append(vr.textures, texture)
	return texture.DescriptorIndex, nil
}

// CreateTexture loads an image asset and returns its texture index.
func (vr *VulkanRenderer) CreateTexture(name string) (uint32, error) {
	if !vr.initialized {
		return 0, core.ErrNotInitialized
	}
	res, err := vr.assets.LoadAsset(name, metadata.ResourceTypeImage, &metadata.ImageResourceParams{})
	if err != nil {
		return 0, err
	}
	return vr.createTexture(res.Name, res.Data.(*metadata.ImageResourceData))
}

// sceneTexturePaths lists the diffuse maps of scene, resolved against its
// directory, without duplicates.
func sceneTexturePaths(scene *metadata.Scene) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range scene.Materials {
		if m.DiffuseMap == "" {
			continue
		}
		p := filepath.Join(scene.Directory, filepath.FromSlash(m.DiffuseMap))
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// CreateModel loads a scene, creates one texture per textured material and
// uploads every mesh. It returns the index to pass to UpdateModel.
func (vr *VulkanRenderer) CreateModel(name string) (int, error) {
	if !vr.initialized {
		return -1, core.ErrNotInitialized
	}
	res, err := vr.assets.LoadAsset(name, metadata.ResourceTypeScene, nil)
	if err != nil {
		return -1, err
	}
	scene := res.Data.(*metadata.Scene)

	// decode every texture concurrently, upload one by one
	paths := sceneTexturePaths(scene)
	images, err := vr.assets.LoadImages(paths, &metadata.ImageResourceParams{})
	if err != nil {
		return -1, errors.Wrapf(err, "model `%s` textures", name)
	}
	decoded := make(map[string]*metadata.ImageResourceData, len(paths))
	for i, p := range paths {
		decoded[p] = images[i].Data.(*metadata.ImageResourceData)
	}

	textureIDs, err := metadata.RemapMaterialTextures(scene.Materials, func(diffuseMap string) (uint32, error) {
		p := filepath.Join(scene.Directory, filepath.FromSlash(diffuseMap))
		return vr.createTexture(filepath.Base(p), decoded[p])
	})
	if err != nil {
		return -1, errors.Wrapf(err, "model `%s`", name)
	}

	model, err := NewModel(vr.context, scene, textureIDs)
	if err != nil {
		return -1, err
	}
	vr.models = append(vr.models, model)
	core.LogInfo("model `%s` (%s) loaded: %d meshes, %d textures", scene.Name, model.ID, len(model.Meshes), len(paths))
	return len(vr.models) - 1, nil
}

// UpdateModel sets the transform of model index. Out of range indices are ignored.
func (vr *VulkanRenderer) UpdateModel(index int, transform mgl32.Mat4) {
	if index < 0 || index >= len(vr.models) {
		return
	}
	vr.models[index].SetTransform(transform)
}

func (vr *VulkanRenderer) ModelCount() int {
	return len(vr.models)
}

// Draw renders one frame. Every failure is fatal for the renderer.
func (vr *VulkanRenderer) Draw() error {
	if !vr.initialized {
		return core.ErrNotInitialized
	}
	return vr.orchestrator.Draw()
}

// Deinit waits for the device and releases everything Init and the loaders
// created. It is a no-op when the renderer is not initialized.
func (vr *VulkanRenderer) Deinit() {
	if !vr.initialized {
		return
	}
	vr.initialized = false
	ctx := vr.context

	if r := vk.DeviceWaitIdle(ctx.Device.LogicalDevice); !VulkanResultIsSuccess(r) {
		core.LogWarn("vkDeviceWaitIdle: %s", VulkanResultString(r, true))
	}

	for _, m := range vr.models {
		m.Destroy(ctx)
	}
	vr.models = nil
	for _, t := range vr.textures {
		t.Destroy(ctx)
	}
	vr.textures = nil
	if vr.sampler != vk.NullSampler {
		vk.DestroySampler(ctx.Device.LogicalDevice, vr.sampler, ctx.Allocator)
		vr.sampler = vk.NullSampler
	}

	if vr.descriptors != nil {
		vr.descriptors.Destroy(ctx)
		vr.descriptors = nil
	}
	for _, b := range vr.uniformBuffers {
		ctx.DestroyBuffer(b)
	}
	vr.uniformBuffers = nil

	if vr.frames != nil {
		vr.frames.Destroy(ctx)
		vr.frames = nil
	}
	vr.orchestrator = nil
	for _, cmd := range vr.commandBuffers {
		cmd.Free(ctx, ctx.Device.GraphicsCommandPool)
	}
	vr.commandBuffers = nil

	if vr.swapchain != nil {
		vr.swapchain.DestroyFramebuffers(ctx)
	}
	if vr.geometryPipeline != nil {
		vr.geometryPipeline.Destroy(ctx)
		vr.geometryPipeline = nil
	}
	if vr.lightingPipeline != nil {
		vr.lightingPipeline.Destroy(ctx)
		vr.lightingPipeline = nil
	}
	if vr.renderpass != nil {
		vr.renderpass.RenderpassDestroy(ctx)
		vr.renderpass = nil
	}
	if vr.swapchain != nil {
		vr.swapchain.SwapchainDestroy(ctx)
		vr.swapchain = nil
	}

	if ctx.Surface != vk.NullSurface {
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	}
	// the command pool goes with the device
	DeviceDestroy(ctx)
	destroyInstance(ctx)
	core.LogInfo("Vulkan renderer shut down.")
}

/**
 * @brief Adapts the renderer to the frame orchestrator.
 */
type vulkanFrameBackend struct {
	r *VulkanRenderer
}

func (b *vulkanFrameBackend) WaitForFrame(slot uint32) error {
	return b.r.frames.Frames[slot].InFlight.FenceWait(b.r.context, fenceWaitForever)
}

func (b *vulkanFrameBackend) ResetFrame(slot uint32) error {
	return b.r.frames.Frames[slot].InFlight.FenceReset(b.r.context)
}

func (b *vulkanFrameBackend) AcquireNextImage(slot uint32) (uint32, error) {
	return b.r.swapchain.AcquireNextImageIndex(b.r.context, b.r.frames.Frames[slot].ImageAvailable)
}

func (b *vulkanFrameBackend) RecordCommands(imageIndex uint32) error {
	return recordFrame(&vulkanFrameRecorder{r: b.r}, imageIndex, b.r.models)
}

func (b *vulkanFrameBackend) UpdateUniforms(imageIndex uint32) error {
	extent := b.r.swapchain.Extent
	vp := b.r.camera.ViewProjection(extent.Width, extent.Height)
	return b.r.context.WriteBuffer(b.r.uniformBuffers[imageIndex], vp.Bytes())
}

func (b *vulkanFrameBackend) Submit(slot, imageIndex uint32) error {
	ctx := b.r.context
	frame := &b.r.frames.Frames[slot]
	cmd := b.r.commandBuffers[imageIndex]

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{frame.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.RenderFinished},
	}
	err := ctx.Locks.SafeQueueCall(uint32(ctx.Device.GraphicsQueueIndex), func() error {
		return checkResult(vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, frame.InFlight.Handle), core.ErrFrameSubmission, "vkQueueSubmit")
	})
	if err != nil {
		return err
	}
	frame.InFlight.IsSignaled = false
	cmd.UpdateSubmitted()
	return nil
}

func (b *vulkanFrameBackend) Present(slot, imageIndex uint32) error {
	return b.r.swapchain.Present(b.r.context, b.r.frames.Frames[slot].RenderFinished, imageIndex)
}
