package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad(name string, material int) metadata.GeometryConfig {
	return metadata.GeometryConfig{
		Name: name,
		Vertices: []metadata.Vertex{
			{Position: mgl32.Vec3{-1, -1, 0}},
			{Position: mgl32.Vec3{1, -1, 0}},
			{Position: mgl32.Vec3{1, 1, 0}},
			{Position: mgl32.Vec3{-1, 1, 0}},
		},
		Indices:       []uint32{0, 1, 2, 2, 3, 0},
		MaterialIndex: material,
	}
}

func testScene() *metadata.Scene {
	return &metadata.Scene{
		Name: "scooter",
		Root: &metadata.SceneNode{
			Name:   "root",
			Meshes: []int{0},
			Children: []*metadata.SceneNode{
				{Name: "wheel", Meshes: []int{1, 2}},
			},
		},
		Meshes: []metadata.GeometryConfig{
			quad("body", 0),
			quad("tire", 1),
			quad("rim", 7),
		},
	}
}

func TestNewModelUploadsMeshesInOrder(t *testing.T) {
	dev := newFakeTransferDevice()
	model, err := NewModel(dev, testScene(), []uint32{0, 3})
	require.NoError(t, err)

	require.Len(t, model.Meshes, 3)
	assert.Equal(t, "body", model.Meshes[0].Name)
	assert.Equal(t, "tire", model.Meshes[1].Name)
	assert.Equal(t, uint32(0), model.Meshes[0].TextureID)
	assert.Equal(t, uint32(3), model.Meshes[1].TextureID)
	// unknown material falls back to no texture
	assert.Equal(t, metadata.NoTextureIndex, model.Meshes[2].TextureID)
	assert.Equal(t, mgl32.Ident4(), model.Transform)

	mesh := model.Meshes[1]
	assert.Equal(t, uint32(6), mesh.IndexCount)
	vertices, err := DownloadBuffer(dev, mesh.VertexBuffer)
	require.NoError(t, err)
	assert.Equal(t, metadata.VertexBytes(quad("", 0).Vertices), vertices)
}

func TestModelDestroyReleasesEveryBuffer(t *testing.T) {
	dev := newFakeTransferDevice()
	model, err := NewModel(dev, testScene(), nil)
	require.NoError(t, err)

	model.Destroy(dev)
	model.Destroy(dev)
	for _, b := range dev.created {
		assert.True(t, dev.destroyed[b])
	}
	assert.Empty(t, model.Meshes)
}

func TestNewModelRejectsEmptyMesh(t *testing.T) {
	scene := testScene()
	scene.Meshes[1].Indices = nil

	_, err := NewModel(newFakeTransferDevice(), scene, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidAsset))
}
