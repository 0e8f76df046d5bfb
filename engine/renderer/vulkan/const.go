package vulkan

/** @brief Default number of frames the host may record ahead of the device. */
const DefaultMaxFramesInFlight uint32 = 2

/**
 * @brief Upper bound for frames in flight. Per-frame state is
 * never allocated beyond this.
 */
const MaxFramesInFlight uint32 = 3

/** @brief Default capacity of the sampler descriptor pool, one set per texture. */
const DefaultMaxObjects uint32 = 20

/** @brief Anisotropy requested for the texture sampler. */
const MaxSamplerAnisotropy float32 = 16

// Attachment slots of the deferred render pass.
const (
	AttachmentSwapchain uint32 = iota
	AttachmentColor
	AttachmentDepth
	AttachmentCount
)

// Indices of the two subpasses.
const (
	SubpassGeometry uint32 = iota
	SubpassLighting
)

/** @brief Size of the model push constant block, a single mat4. */
const ModelPushConstantSize uint32 = 64

// Shader stage file names under the configured shader directory.
const (
	GeometryVertexShader   = "vert.spv"
	GeometryFragmentShader = "frag.spv"
	LightingVertexShader   = "second_vert.spv"
	LightingFragmentShader = "second_frag.spv"
)

/** @brief Infinite timeout for fence waits. */
const fenceWaitForever uint64 = ^uint64(0)
