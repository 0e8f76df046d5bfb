package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransferDevice keeps buffer contents in host memory and executes
// recorded commands immediately.
type fakeTransferDevice struct {
	memory    map[*VulkanBuffer][]byte
	created   []*VulkanBuffer
	destroyed map[*VulkanBuffer]bool
	ops       []string
	submits   int
	failOn    string
}

func newFakeTransferDevice() *fakeTransferDevice {
	return &fakeTransferDevice{
		memory:    map[*VulkanBuffer][]byte{},
		destroyed: map[*VulkanBuffer]bool{},
	}
}

func (f *fakeTransferDevice) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	if f.failOn == "create" {
		return nil, errors.Wrap(core.ErrResourceCreation, "fake")
	}
	b := &VulkanBuffer{Size: size, Usage: usage, MemoryFlags: memoryFlags}
	f.memory[b] = make([]byte, size)
	f.created = append(f.created, b)
	return b, nil
}

func (f *fakeTransferDevice) DestroyBuffer(b *VulkanBuffer) {
	f.destroyed[b] = true
}

func (f *fakeTransferDevice) WriteBuffer(b *VulkanBuffer, data []byte) error {
	copy(f.memory[b], data)
	return nil
}

func (f *fakeTransferDevice) ReadBuffer(b *VulkanBuffer) ([]byte, error) {
	return append([]byte(nil), f.memory[b]...), nil
}

func (f *fakeTransferDevice) SubmitOnce(record func(cmd *VulkanCommandBuffer) error) error {
	f.submits++
	if f.failOn == "submit" {
		return errors.Wrap(core.ErrFrameSubmission, "fake")
	}
	return record(&VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_RECORDING})
}

func (f *fakeTransferDevice) CmdCopyBuffer(cmd *VulkanCommandBuffer, src, dst *VulkanBuffer, size vk.DeviceSize) {
	f.ops = append(f.ops, "copy-buffer")
	copy(f.memory[dst][:size], f.memory[src][:size])
}

func (f *fakeTransferDevice) CmdTransitionImage(cmd *VulkanCommandBuffer, image *VulkanImage, oldLayout, newLayout vk.ImageLayout) error {
	if _, err := layoutTransitionBarrier(oldLayout, newLayout); err != nil {
		return err
	}
	switch newLayout {
	case vk.ImageLayoutTransferDstOptimal:
		f.ops = append(f.ops, "to-transfer-dst")
	case vk.ImageLayoutShaderReadOnlyOptimal:
		f.ops = append(f.ops, "to-shader-read")
	}
	return nil
}

func (f *fakeTransferDevice) CmdCopyBufferToImage(cmd *VulkanCommandBuffer, src *VulkanBuffer, image *VulkanImage) {
	f.ops = append(f.ops, "copy-image")
}

func TestUploadRoundTrip(t *testing.T) {
	dev := newFakeTransferDevice()
	vertices := []metadata.Vertex{
		{Position: mgl32.Vec3{-1, -1, 0}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{1, -1, 0}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{0, 1, 0}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0.5, 0}},
	}
	data := metadata.VertexBytes(vertices)

	buffer, err := UploadToDeviceLocalBuffer(dev, data, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	require.NoError(t, err)

	assert.Equal(t, vk.DeviceSize(len(data)), buffer.Size)
	assert.NotZero(t, buffer.Usage&vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	assert.NotZero(t, buffer.Usage&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit))
	assert.Equal(t, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), buffer.MemoryFlags)
	assert.False(t, dev.destroyed[buffer])

	// only the staging buffer is gone
	require.Len(t, dev.created, 2)
	assert.True(t, dev.destroyed[dev.created[0]])
	assert.Equal(t, hostVisibleCoherent, dev.created[0].MemoryFlags)

	readback, err := DownloadBuffer(dev, buffer)
	require.NoError(t, err)
	assert.Equal(t, data, readback)
	assert.Equal(t, 2, dev.submits)
}

func TestUploadIndicesRoundTrip(t *testing.T) {
	dev := newFakeTransferDevice()
	data := metadata.IndexBytes([]uint32{0, 1, 2, 2, 3, 0})

	buffer, err := UploadToDeviceLocalBuffer(dev, data, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	require.NoError(t, err)
	readback, err := DownloadBuffer(dev, buffer)
	require.NoError(t, err)
	assert.Equal(t, data, readback)
}

func TestUploadSubmitFailureReleasesBuffers(t *testing.T) {
	dev := newFakeTransferDevice()
	dev.failOn = "submit"

	_, err := UploadToDeviceLocalBuffer(dev, []byte{1, 2, 3, 4}, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrFrameSubmission))
	for _, b := range dev.created {
		assert.True(t, dev.destroyed[b])
	}
}

func TestUploadEmpty(t *testing.T) {
	_, err := UploadToDeviceLocalBuffer(newFakeTransferDevice(), nil, 0)
	assert.True(t, errors.Is(err, core.ErrResourceCreation))
}

func TestUploadToImageTransitions(t *testing.T) {
	dev := newFakeTransferDevice()
	image := &VulkanImage{Width: 1, Height: 1}

	require.NoError(t, UploadToImage(dev, image, metadata.WhitePixel().Pixels))
	assert.Equal(t, []string{"to-transfer-dst", "copy-image", "to-shader-read"}, dev.ops)
	assert.Equal(t, 1, dev.submits)
	require.Len(t, dev.created, 1)
	assert.True(t, dev.destroyed[dev.created[0]])
}

func TestLayoutTransitionBarrier(t *testing.T) {
	b, err := layoutTransitionBarrier(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), b.SrcStage)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), b.DstStage)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), b.DstAccess)

	b, err = layoutTransitionBarrier(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), b.DstStage)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderReadBit), b.DstAccess)

	_, err = layoutTransitionBarrier(vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutUndefined)
	assert.Error(t, err)
}
