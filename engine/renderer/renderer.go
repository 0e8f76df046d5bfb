package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/platform"
	"github.com/spaghettifunk/anima-deferred/engine/renderer/vulkan"
)

// RendererBackend is what a graphics API implementation exposes to the engine.
type RendererBackend interface {
	Init(p *platform.Platform) error
	Deinit()
	Draw() error
	UpdateModel(index int, transform mgl32.Mat4)
	CreateModel(name string) (int, error)
}

type RendererType uint8

const (
	Vulkan RendererType = iota
)

type Config = vulkan.RendererConfig

type Renderer struct {
	backend RendererBackend
	frames  uint64
}

// New picks the backend for rendererType.
func New(rendererType RendererType, assets vulkan.AssetSource, config Config) (*Renderer, error) {
	switch rendererType {
	case Vulkan:
		return NewWithBackend(vulkan.New(assets, config)), nil
	default:
		return nil, errors.Newf("unknown renderer type %d", rendererType)
	}
}

func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{backend: backend}
}

func (r *Renderer) Initialize(p *platform.Platform) error {
	if err := r.backend.Init(p); err != nil {
		return errors.Wrap(err, "renderer backend init")
	}
	core.LogInfo("Renderer initialized.")
	return nil
}

func (r *Renderer) Shutdown() {
	r.backend.Deinit()
}

// LoadModel uploads the scene at name and returns the index UpdateModel takes.
func (r *Renderer) LoadModel(name string) (int, error) {
	index, err := r.backend.CreateModel(name)
	if err != nil {
		return -1, errors.Wrapf(err, "load model %s", name)
	}
	core.LogInfo("Model '%s' loaded at index %d.", name, index)
	return index, nil
}

func (r *Renderer) UpdateModel(index int, transform mgl32.Mat4) {
	r.backend.UpdateModel(index, transform)
}

func (r *Renderer) DrawFrame() error {
	if err := r.backend.Draw(); err != nil {
		core.LogError("Draw failed on frame %d: %s", r.frames, err)
		return err
	}
	r.frames++
	return nil
}

// FrameCount is the number of frames drawn successfully.
func (r *Renderer) FrameCount() uint64 {
	return r.frames
}
