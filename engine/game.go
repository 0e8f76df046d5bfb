package engine

import "github.com/spaghettifunk/anima-deferred/engine/renderer"

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnShutdown        Shutdown
}

// Initialize runs once the renderer is up; games load their models here.
type Initialize func(r *renderer.Renderer) error
type Update func(deltaTime float64) error
type Shutdown func() error
