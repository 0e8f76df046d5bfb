package vulkan

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererConfigNormalize(t *testing.T) {
	c := RendererConfig{}.normalize()
	assert.Equal(t, DefaultMaxFramesInFlight, c.FramesInFlight)
	assert.Equal(t, DefaultMaxObjects, c.MaxObjects)
	assert.Equal(t, "shaders", c.ShaderDir)
	assert.NotEmpty(t, c.AppName)

	c = RendererConfig{FramesInFlight: 9, MaxObjects: 4, ShaderDir: "spv"}.normalize()
	assert.Equal(t, MaxFramesInFlight, c.FramesInFlight)
	assert.Equal(t, uint32(4), c.MaxObjects)
	assert.Equal(t, "spv", c.ShaderDir)
}

func TestRendererConfigValidationFollowsBuild(t *testing.T) {
	c := RendererConfig{}.normalize()
	require.NotNil(t, c.Validation)
	assert.Equal(t, DefaultValidation, *c.Validation)
	assert.Equal(t, DefaultValidation, RendererConfig{}.ValidationEnabled())

	override := !DefaultValidation
	c = RendererConfig{Validation: &override}.normalize()
	assert.Equal(t, override, c.ValidationEnabled())
}

func TestRendererBeforeInit(t *testing.T) {
	r := New(nil, RendererConfig{})

	assert.True(t, errors.Is(r.Draw(), core.ErrNotInitialized))
	_, err := r.CreateModel("scene.obj")
	assert.True(t, errors.Is(err, core.ErrNotInitialized))
	_, err = r.CreateTexture("wood.png")
	assert.True(t, errors.Is(err, core.ErrNotInitialized))

	// both are no-ops
	r.Deinit()
	r.Deinit()
}

type missingAssets struct{}

func (missingAssets) LoadAsset(name string, _ metadata.ResourceType, _ interface{}) (*metadata.Resource, error) {
	return nil, errors.Wrapf(core.ErrAssetNotFound, "`%s`", name)
}

func (missingAssets) LoadImages(_ []string, _ *metadata.ImageResourceParams) ([]*metadata.Resource, error) {
	return nil, core.ErrAssetNotFound
}

func TestMissingShaderSaysHowToBuild(t *testing.T) {
	r := New(missingAssets{}, RendererConfig{})

	_, err := r.loadShaderStage(GeometryVertexShader, vk.ShaderStageVertexBit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAssetNotFound))
	assert.Contains(t, err.Error(), GeometryVertexShader)
	assert.Contains(t, errors.FlattenHints(err), "mage build:shaders")
}

func TestUpdateModelIgnoresOutOfRange(t *testing.T) {
	r := New(nil, RendererConfig{})
	r.models = []*VulkanModel{{Transform: mgl32.Ident4()}}

	spin := mgl32.HomogRotate3DY(mgl32.DegToRad(10))
	r.UpdateModel(-1, spin)
	r.UpdateModel(1, spin)
	assert.Equal(t, mgl32.Ident4(), r.models[0].Transform)

	r.UpdateModel(0, spin)
	assert.Equal(t, spin, r.models[0].Transform)
	assert.Equal(t, 1, r.ModelCount())
}

func TestSceneTexturePaths(t *testing.T) {
	dir := filepath.FromSlash("/assets/models/scooter")
	scene := &metadata.Scene{
		Directory: dir,
		Materials: []metadata.MaterialConfig{
			{Name: "paint", DiffuseMap: "textures/paint.png"},
			{Name: "rubber"},
			{Name: "paint2", DiffuseMap: "textures/paint.png"},
			{Name: "chrome", DiffuseMap: "chrome.jpg"},
		},
	}

	paths := sceneTexturePaths(scene)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "textures", "paint.png"), paths[0])
	assert.Equal(t, filepath.Join(dir, "chrome.jpg"), paths[1])
}
