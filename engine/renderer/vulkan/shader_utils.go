package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage creates a shader module from a loaded SPIR-V resource.
func NewShaderStage(context *VulkanContext, binary *metadata.Resource, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, ok := binary.Data.([]uint32)
	if !ok || len(code) == 0 {
		return nil, errors.Wrapf(core.ErrInvalidAsset, "shader `%s` holds no spir-v", binary.Name)
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(binary.DataSize),
		PCode:    code,
	}

	var handle vk.ShaderModule
	if err := checkResult(vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle), core.ErrResourceCreation, "vkCreateShaderModule"); err != nil {
		return nil, errors.Wrapf(err, "shader `%s`", binary.Name)
	}

	return &VulkanShaderStage{
		Handle: handle,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  "main\x00",
		},
	}, nil
}

// Modules are only needed until the pipeline is created.
func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}

func destroyShaderStages(context *VulkanContext, stages []*VulkanShaderStage) {
	for _, s := range stages {
		if s != nil {
			s.Destroy(context)
		}
	}
}

func shaderStageInfos(stages []*VulkanShaderStage) []vk.PipelineShaderStageCreateInfo {
	out := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, s := range stages {
		out[i] = s.ShaderStageCreateInfo
	}
	return out
}
