package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-deferred/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadApplicationConfigMissingFile(t *testing.T) {
	config, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultApplicationConfig(), config)
}

func TestLoadApplicationConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[window]
name = "Deferred"
width = 1280
height = 720

[renderer]
frames_in_flight = 3
validation = false

[scene]
scale = 0.5

[log]
level = "info"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Deferred", config.Window.Name)
	assert.Equal(t, uint32(1280), config.Window.Width)
	assert.Equal(t, uint32(720), config.Window.Height)
	// untouched keys keep their defaults
	assert.Equal(t, uint32(100), config.Window.X)
	assert.Equal(t, uint32(3), config.Renderer.FramesInFlight)
	assert.Equal(t, uint32(20), config.Renderer.MaxObjects)
	require.NotNil(t, config.Renderer.Validation)
	assert.False(t, *config.Renderer.Validation)
	assert.Equal(t, float32(0.5), config.Scene.Scale)
	assert.Equal(t, float32(10), config.Scene.SpinDegrees)
	assert.Equal(t, "info", config.Log.Level)

	rc := config.RendererConfig()
	assert.False(t, rc.ValidationEnabled())
	assert.Equal(t, "Deferred", rc.AppName)
	assert.Equal(t, uint32(3), rc.FramesInFlight)
	assert.Equal(t, "shaders", rc.ShaderDir)
}

func TestLoadApplicationConfigErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[window\nname ="), 0o644))
	_, err := LoadApplicationConfig(bad)
	assert.Error(t, err)

	zero := filepath.Join(dir, "zero.toml")
	require.NoError(t, os.WriteFile(zero, []byte("[window]\nwidth = 0\n"), 0o644))
	_, err = LoadApplicationConfig(zero)
	assert.Error(t, err)
}

func TestValidationDefaultsToBuild(t *testing.T) {
	config := DefaultApplicationConfig()
	assert.Nil(t, config.Renderer.Validation)
	assert.Equal(t, vulkan.DefaultValidation, config.RendererConfig().ValidationEnabled())

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nvalidation = true\n"), 0o644))
	config, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.True(t, config.RendererConfig().ValidationEnabled())
}
