package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

/**
 * @brief One mesh on the device: immutable vertex and index buffers.
 */
type VulkanGeometry struct {
	Name         string
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	VertexCount  uint32
	IndexCount   uint32
	/** @brief Texture index used when drawing, 0 when the mesh is untextured. */
	TextureID uint32
}

// NewGeometry uploads a mesh through the staging path.
func NewGeometry(dev transferDevice, config metadata.GeometryConfig, textureID uint32) (*VulkanGeometry, error) {
	if len(config.Vertices) == 0 || len(config.Indices) == 0 {
		return nil, errors.Wrapf(core.ErrInvalidAsset, "geometry `%s` is empty", config.Name)
	}

	vertexBuffer, err := UploadToDeviceLocalBuffer(dev, metadata.VertexBytes(config.Vertices), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, errors.Wrapf(err, "geometry `%s` vertices", config.Name)
	}
	indexBuffer, err := UploadToDeviceLocalBuffer(dev, metadata.IndexBytes(config.Indices), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		dev.DestroyBuffer(vertexBuffer)
		return nil, errors.Wrapf(err, "geometry `%s` indices", config.Name)
	}

	return &VulkanGeometry{
		Name:         config.Name,
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		VertexCount:  uint32(len(config.Vertices)),
		IndexCount:   uint32(len(config.Indices)),
		TextureID:    textureID,
	}, nil
}

// Destroy is safe to call more than once.
func (g *VulkanGeometry) Destroy(dev transferDevice) {
	if g.VertexBuffer != nil {
		dev.DestroyBuffer(g.VertexBuffer)
		g.VertexBuffer = nil
	}
	if g.IndexBuffer != nil {
		dev.DestroyBuffer(g.IndexBuffer)
		g.IndexBuffer = nil
	}
	g.VertexCount = 0
	g.IndexCount = 0
}
