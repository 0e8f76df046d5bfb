package engine

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-deferred/engine/renderer"
)

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position.
	X uint32 `toml:"x"`
	Y uint32 `toml:"y"`
	// Window size. The window is not resizable.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	MaxObjects     uint32 `toml:"max_objects"`
	// Unset follows the build: on with -tags debug, off otherwise.
	Validation *bool `toml:"validation,omitempty"`
	// Relative to the asset root.
	ShaderDir string `toml:"shader_dir"`
}

type SceneConfig struct {
	// Relative to the asset root.
	Model       string  `toml:"model"`
	Scale       float32 `toml:"scale"`
	SpinDegrees float32 `toml:"spin_degrees"`
}

type AssetsConfig struct {
	Root string `toml:"root"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Scene    SceneConfig    `toml:"scene"`
	Assets   AssetsConfig   `toml:"assets"`
	Log      LogConfig      `toml:"log"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:   "Anima Deferred",
			X:      100,
			Y:      100,
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			MaxObjects:     20,
			ShaderDir:      "shaders",
		},
		Scene: SceneConfig{
			Model:       "models/cube/cube.obj",
			Scale:       1,
			SpinDegrees: 10,
		},
		Assets: AssetsConfig{Root: "assets"},
		Log:    LogConfig{Level: "debug"},
	}
}

// LoadApplicationConfig reads path over the defaults. A missing file is not an
// error, the defaults are returned as they are.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, errors.Wrapf(err, "read config `%s`", path)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "parse config `%s`", path)
	}
	if config.Window.Width == 0 || config.Window.Height == 0 {
		return nil, errors.Newf("config `%s`: window size %dx%d", path, config.Window.Width, config.Window.Height)
	}
	return config, nil
}

// RendererConfig converts the [renderer] table for the backend.
func (c *ApplicationConfig) RendererConfig() renderer.Config {
	return renderer.Config{
		AppName:        c.Window.Name,
		FramesInFlight: c.Renderer.FramesInFlight,
		MaxObjects:     c.Renderer.MaxObjects,
		Validation:     c.Renderer.Validation,
		ShaderDir:      c.Renderer.ShaderDir,
	}
}
