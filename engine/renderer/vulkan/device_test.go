package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(flags vk.QueueFlagBits, count uint32) vk.QueueFamilyProperties {
	return vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(flags), QueueCount: count}
}

func presentOn(families ...uint32) func(uint32) bool {
	return func(f uint32) bool {
		for _, p := range families {
			if p == f {
				return true
			}
		}
		return false
	}
}

func TestFindQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []vk.QueueFamilyProperties
		present  func(uint32) bool
		want     QueueFamilyIndices
	}{
		{
			name:     "one family does both",
			families: []vk.QueueFamilyProperties{family(vk.QueueGraphicsBit, 1)},
			present:  presentOn(0),
			want:     QueueFamilyIndices{Graphics: 0, Present: 0},
		},
		{
			name: "first match per role",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueComputeBit, 1),
				family(vk.QueueGraphicsBit, 1),
				family(vk.QueueGraphicsBit, 1),
			},
			present: presentOn(0, 2),
			want:    QueueFamilyIndices{Graphics: 1, Present: 0},
		},
		{
			name: "empty families are skipped",
			families: []vk.QueueFamilyProperties{
				family(vk.QueueGraphicsBit, 0),
				family(vk.QueueGraphicsBit, 2),
			},
			present: presentOn(0, 1),
			want:    QueueFamilyIndices{Graphics: 1, Present: 1},
		},
		{
			name:     "no present support",
			families: []vk.QueueFamilyProperties{family(vk.QueueGraphicsBit, 1)},
			present:  presentOn(),
			want:     QueueFamilyIndices{Graphics: 0, Present: -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindQueueFamilies(tt.families, tt.present))
		})
	}
}

func TestFindQueueFamiliesStopsEarly(t *testing.T) {
	asked := []uint32{}
	present := func(f uint32) bool {
		asked = append(asked, f)
		return true
	}
	families := []vk.QueueFamilyProperties{
		family(vk.QueueGraphicsBit, 1),
		family(vk.QueueGraphicsBit, 1),
	}
	FindQueueFamilies(families, present)
	assert.Equal(t, []uint32{0}, asked)
}

// fakeProbe records which checks ran.
type fakeProbe struct {
	families   []vk.QueueFamilyProperties
	present    []uint32
	extensions []string
	support    *VulkanSwapchainSupportInfo
	anisotropy bool
	calls      []string
}

func (p *fakeProbe) QueueFamilies() []vk.QueueFamilyProperties {
	p.calls = append(p.calls, "queues")
	return p.families
}

func (p *fakeProbe) PresentSupport(f uint32) bool {
	return presentOn(p.present...)(f)
}

func (p *fakeProbe) Extensions() []string {
	p.calls = append(p.calls, "extensions")
	return p.extensions
}

func (p *fakeProbe) SwapchainSupport() (*VulkanSwapchainSupportInfo, error) {
	p.calls = append(p.calls, "swapchain")
	if p.support == nil {
		return nil, errors.New("no surface")
	}
	return p.support, nil
}

func (p *fakeProbe) Features() vk.PhysicalDeviceFeatures {
	p.calls = append(p.calls, "features")
	var f vk.PhysicalDeviceFeatures
	if p.anisotropy {
		f.SamplerAnisotropy = vk.True
	}
	return f
}

func suitableProbe() *fakeProbe {
	return &fakeProbe{
		families:   []vk.QueueFamilyProperties{family(vk.QueueGraphicsBit, 1)},
		present:    []uint32{0},
		extensions: []string{vk.KhrSwapchainExtensionName},
		support: &VulkanSwapchainSupportInfo{
			Formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
			PresentModes: []vk.PresentMode{vk.PresentModeFifo},
		},
		anisotropy: true,
	}
}

func TestPhysicalDeviceMeetsRequirements(t *testing.T) {
	probe := suitableProbe()
	indices, support, ok := PhysicalDeviceMeetsRequirements(probe, DefaultDeviceRequirements())
	require.True(t, ok)
	assert.Equal(t, QueueFamilyIndices{Graphics: 0, Present: 0}, indices)
	assert.Same(t, probe.support, support)
	assert.Equal(t, []string{"queues", "extensions", "swapchain", "features"}, probe.calls)
}

func TestPhysicalDeviceRequirementsShortCircuit(t *testing.T) {
	tests := []struct {
		name   string
		break_ func(p *fakeProbe)
		calls  []string
	}{
		{"no present queue", func(p *fakeProbe) { p.present = nil }, []string{"queues"}},
		{"no swapchain extension", func(p *fakeProbe) { p.extensions = nil }, []string{"queues", "extensions"}},
		{"no present modes", func(p *fakeProbe) { p.support.PresentModes = nil }, []string{"queues", "extensions", "swapchain"}},
		{"no surface support", func(p *fakeProbe) { p.support = nil }, []string{"queues", "extensions", "swapchain"}},
		{"no anisotropy", func(p *fakeProbe) { p.anisotropy = false }, []string{"queues", "extensions", "swapchain", "features"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := suitableProbe()
			tt.break_(probe)
			_, _, ok := PhysicalDeviceMeetsRequirements(probe, DefaultDeviceRequirements())
			assert.False(t, ok)
			assert.Equal(t, tt.calls, probe.calls)
		})
	}
}

func TestChooseSupportedFormat(t *testing.T) {
	depthFeature := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	supported := map[vk.Format]vk.FormatProperties{
		vk.FormatD32Sfloat:       {OptimalTilingFeatures: depthFeature},
		vk.FormatD24UnormS8Uint:  {OptimalTilingFeatures: depthFeature, LinearTilingFeatures: depthFeature},
		vk.FormatD32SfloatS8Uint: {LinearTilingFeatures: depthFeature},
	}
	query := func(f vk.Format) vk.FormatProperties { return supported[f] }

	format, err := ChooseSupportedFormat(depthFormatCandidates, vk.ImageTilingOptimal, depthFeature, query)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD32Sfloat, format)

	format, err = ChooseSupportedFormat(depthFormatCandidates, vk.ImageTilingLinear, depthFeature, query)
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD32SfloatS8Uint, format)

	_, err = ChooseSupportedFormat(colorFormatCandidates, vk.ImageTilingOptimal, vk.FormatFeatureFlags(vk.FormatFeatureColorAttachmentBit), query)
	assert.True(t, errors.Is(err, core.ErrUnsupportedFormat))
}

func TestFindMemoryType(t *testing.T) {
	var memory vk.PhysicalDeviceMemoryProperties
	memory.MemoryTypeCount = 3
	memory.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	memory.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	memory.MemoryTypes[2].PropertyFlags = hostVisibleCoherent

	index, ok := findMemoryType(&memory, 0b111, hostVisibleCoherent)
	require.True(t, ok)
	assert.Equal(t, uint32(2), index)

	index, ok = findMemoryType(&memory, 0b111, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	require.True(t, ok)
	assert.Equal(t, uint32(1), index)

	_, ok = findMemoryType(&memory, 0b011, hostVisibleCoherent)
	assert.False(t, ok)
}

func TestFirstSuitableDeviceStopsAtFirstMatch(t *testing.T) {
	unsuitable := suitableProbe()
	unsuitable.present = nil
	chosen, third := suitableProbe(), suitableProbe()

	evaluated := []int{}
	index, indices, support, ok := firstSuitableDevice(
		[]deviceProbe{unsuitable, chosen, third},
		DefaultDeviceRequirements(),
		func(i int) { evaluated = append(evaluated, i) },
	)
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.Equal(t, QueueFamilyIndices{Graphics: 0, Present: 0}, indices)
	assert.Same(t, chosen.support, support)
	assert.Equal(t, []int{0, 1}, evaluated)
	assert.Empty(t, third.calls)
}

func TestFirstSuitableDeviceNone(t *testing.T) {
	probe := suitableProbe()
	probe.anisotropy = false
	index, _, _, ok := firstSuitableDevice([]deviceProbe{probe}, DefaultDeviceRequirements(), nil)
	assert.False(t, ok)
	assert.Equal(t, -1, index)
}

func TestDeviceCreateNeedsSelectedDevice(t *testing.T) {
	err := DeviceCreate(NewVulkanContext(), DefaultDeviceRequirements())
	assert.True(t, errors.Is(err, core.ErrNoSuitableDevice))
}
