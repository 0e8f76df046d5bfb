package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-deferred/engine"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/renderer"
)

// modelUpdater is the part of the renderer the game drives each frame.
type modelUpdater interface {
	UpdateModel(index int, transform mgl32.Mat4)
}

type TestGame struct {
	*engine.Game
}

type gameState struct {
	models     modelUpdater
	modelIndex int
	// accumulated rotation about Y, in degrees
	angle float32
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{modelIndex: -1},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(r *renderer.Renderer) error {
	core.LogInfo("initializing testbed...")

	index, err := r.LoadModel(g.ApplicationConfig.Scene.Model)
	if err != nil {
		return err
	}
	state := g.state()
	state.models = r
	state.modelIndex = index
	state.models.UpdateModel(index, g.modelTransform())
	return nil
}

// Update spins the model about Y at the configured rate.
func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	if state.models == nil {
		return nil
	}
	state.angle += g.ApplicationConfig.Scene.SpinDegrees * float32(deltaTime)
	if state.angle >= 360 {
		state.angle -= 360
	}
	state.models.UpdateModel(state.modelIndex, g.modelTransform())
	return nil
}

func (g *TestGame) modelTransform() mgl32.Mat4 {
	scale := g.ApplicationConfig.Scene.Scale
	return mgl32.HomogRotate3DY(mgl32.DegToRad(g.state().angle)).Mul4(mgl32.Scale3D(scale, scale, scale))
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed...")
	return nil
}
