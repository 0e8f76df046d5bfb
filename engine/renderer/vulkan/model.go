package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
)

/**
 * @brief The meshes of one scene file and the transform they are drawn with.
 * The mesh list is fixed after load.
 */
type VulkanModel struct {
	ID        uuid.UUID
	Name      string
	Meshes    []*VulkanGeometry
	Transform mgl32.Mat4
}

// NewModel flattens scene and uploads every mesh. textureIDs maps the scene's
// material indices to texture indices; a mesh with an unknown material is
// drawn untextured.
func NewModel(dev transferDevice, scene *metadata.Scene, textureIDs []uint32) (*VulkanModel, error) {
	model := &VulkanModel{
		ID:        uuid.New(),
		Name:      scene.Name,
		Transform: mgl32.Ident4(),
	}
	for _, mesh := range metadata.FlattenScene(scene) {
		textureID := metadata.NoTextureIndex
		if mesh.MaterialIndex >= 0 && mesh.MaterialIndex < len(textureIDs) {
			textureID = textureIDs[mesh.MaterialIndex]
		}
		geometry, err := NewGeometry(dev, mesh, textureID)
		if err != nil {
			model.Destroy(dev)
			return nil, errors.Wrapf(err, "model `%s`", scene.Name)
		}
		model.Meshes = append(model.Meshes, geometry)
	}
	return model, nil
}

func (m *VulkanModel) SetTransform(transform mgl32.Mat4) {
	m.Transform = transform
}

func (m *VulkanModel) Destroy(dev transferDevice) {
	for _, mesh := range m.Meshes {
		mesh.Destroy(dev)
	}
	m.Meshes = nil
}
