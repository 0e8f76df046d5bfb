package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
)

func layoutBinding(binding uint32, descriptorType vk.DescriptorType, stage vk.ShaderStageFlagBits) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(stage),
	}
}

/** @brief Set 0 of the geometry pipeline: the view-projection uniform. */
func ViewProjectionLayoutBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		layoutBinding(0, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit),
	}
}

/** @brief Set 1 of the geometry pipeline: the diffuse texture. */
func SamplerLayoutBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		layoutBinding(0, vk.DescriptorTypeCombinedImageSampler, vk.ShaderStageFragmentBit),
	}
}

/** @brief Set 0 of the lighting pipeline: color then depth input attachments. */
func InputAttachmentLayoutBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{
		layoutBinding(0, vk.DescriptorTypeInputAttachment, vk.ShaderStageFragmentBit),
		layoutBinding(1, vk.DescriptorTypeInputAttachment, vk.ShaderStageFragmentBit),
	}
}

// poolSizesFor sizes a pool for sets copies of a layout.
func poolSizesFor(bindings []vk.DescriptorSetLayoutBinding, sets uint32) []vk.DescriptorPoolSize {
	counts := map[vk.DescriptorType]uint32{}
	order := []vk.DescriptorType{}
	for _, b := range bindings {
		if _, ok := counts[b.DescriptorType]; !ok {
			order = append(order, b.DescriptorType)
		}
		counts[b.DescriptorType] += b.DescriptorCount * sets
	}
	sizes := make([]vk.DescriptorPoolSize, len(order))
	for i, t := range order {
		sizes[i] = vk.DescriptorPoolSize{Type: t, DescriptorCount: counts[t]}
	}
	return sizes
}

/**
 * @brief A set layout with the pool its sets come from.
 */
type VulkanDescriptorFamily struct {
	Layout   vk.DescriptorSetLayout
	Pool     vk.DescriptorPool
	Sets     []vk.DescriptorSet
	Capacity uint32
}

func newDescriptorFamily(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding, capacity uint32) (*VulkanDescriptorFamily, error) {
	family := &VulkanDescriptorFamily{Capacity: capacity}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if err := checkResult(vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &family.Layout), core.ErrResourceCreation, "vkCreateDescriptorSetLayout"); err != nil {
		return nil, err
	}

	poolSizes := poolSizesFor(bindings, capacity)
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       capacity,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if err := checkResult(vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &family.Pool), core.ErrResourceCreation, "vkCreateDescriptorPool"); err != nil {
		family.Destroy(context)
		return nil, err
	}
	return family, nil
}

// Allocate takes count more sets from the pool and returns the index of the first.
func (f *VulkanDescriptorFamily) Allocate(context *VulkanContext, count uint32) (uint32, error) {
	first := uint32(len(f.Sets))
	if first+count > f.Capacity {
		return 0, errors.Wrapf(core.ErrResourceCreation, "descriptor pool exhausted: %d of %d sets in use, %d requested", first, f.Capacity, count)
	}

	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = f.Layout
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     f.Pool,
		DescriptorSetCount: count,
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	err := context.Locks.SafeCall(DescriptorManagement, func() error {
		return checkResult(vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]), core.ErrResourceCreation, "vkAllocateDescriptorSets")
	})
	if err != nil {
		return 0, err
	}
	f.Sets = append(f.Sets, sets...)
	return first, nil
}

// Destroying the pool frees every set allocated from it.
func (f *VulkanDescriptorFamily) Destroy(context *VulkanContext) {
	if f.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, f.Pool, context.Allocator)
		f.Pool = vk.NullDescriptorPool
	}
	if f.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, f.Layout, context.Allocator)
		f.Layout = vk.NullDescriptorSetLayout
	}
	f.Sets = nil
}

/**
 * @brief The three descriptor families of the deferred renderer: per image
 * view-projection sets, per texture sampler sets and per image input
 * attachment sets.
 */
type VulkanDescriptors struct {
	ViewProjection  *VulkanDescriptorFamily
	Sampler         *VulkanDescriptorFamily
	InputAttachment *VulkanDescriptorFamily
}

func NewVulkanDescriptors(context *VulkanContext, imageCount, maxObjects uint32) (*VulkanDescriptors, error) {
	d := &VulkanDescriptors{}
	var err error
	if d.ViewProjection, err = newDescriptorFamily(context, ViewProjectionLayoutBindings(), imageCount); err != nil {
		return nil, errors.Wrap(err, "view-projection descriptors")
	}
	if d.Sampler, err = newDescriptorFamily(context, SamplerLayoutBindings(), maxObjects); err != nil {
		d.Destroy(context)
		return nil, errors.Wrap(err, "sampler descriptors")
	}
	if d.InputAttachment, err = newDescriptorFamily(context, InputAttachmentLayoutBindings(), imageCount); err != nil {
		d.Destroy(context)
		return nil, errors.Wrap(err, "input attachment descriptors")
	}
	return d, nil
}

// WriteViewProjectionSets allocates one set per uniform buffer and points it
// at that buffer.
func (d *VulkanDescriptors) WriteViewProjectionSets(context *VulkanContext, uniformBuffers []*VulkanBuffer) error {
	first, err := d.ViewProjection.Allocate(context, uint32(len(uniformBuffers)))
	if err != nil {
		return err
	}
	writes := make([]vk.WriteDescriptorSet, len(uniformBuffers))
	for i, ub := range uniformBuffers {
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          d.ViewProjection.Sets[first+uint32(i)],
			DstBinding:      0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: ub.Handle,
				Offset: 0,
				Range:  ub.Size,
			}},
		}
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

// WriteInputAttachmentSets points each image's set at its own off-screen
// color and depth views.
func (d *VulkanDescriptors) WriteInputAttachmentSets(context *VulkanContext, swapchain *VulkanSwapchain) error {
	first, err := d.InputAttachment.Allocate(context, swapchain.ImageCount)
	if err != nil {
		return err
	}
	writes := make([]vk.WriteDescriptorSet, 0, 2*swapchain.ImageCount)
	for i := uint32(0); i < swapchain.ImageCount; i++ {
		set := d.InputAttachment.Sets[first+i]
		views := []vk.ImageView{swapchain.ColorAttachments[i].View, swapchain.DepthAttachments[i].View}
		for binding, view := range views {
			writes = append(writes, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          set,
				DstBinding:      uint32(binding),
				DescriptorType:  vk.DescriptorTypeInputAttachment,
				DescriptorCount: 1,
				PImageInfo: []vk.DescriptorImageInfo{{
					ImageView:   view,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
					Sampler:     vk.NullSampler,
				}},
			})
		}
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

// WriteSamplerSet allocates a set for one texture and returns its index.
func (d *VulkanDescriptors) WriteSamplerSet(context *VulkanContext, view vk.ImageView, sampler vk.Sampler) (uint32, error) {
	index, err := d.Sampler.Allocate(context, 1)
	if err != nil {
		return 0, err
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.Sampler.Sets[index],
		DstBinding:      0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			Sampler:     sampler,
		}},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return index, nil
}

func (d *VulkanDescriptors) Destroy(context *VulkanContext) {
	for _, f := range []*VulkanDescriptorFamily{d.ViewProjection, d.Sampler, d.InputAttachment} {
		if f != nil {
			f.Destroy(context)
		}
	}
}
