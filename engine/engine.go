package engine

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-deferred/engine/assets"
	"github.com/spaghettifunk/anima-deferred/engine/core"
	"github.com/spaghettifunk/anima-deferred/engine/platform"
	"github.com/spaghettifunk/anima-deferred/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Every subsystem has been released
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	clock        *core.Clock
	metrics      *core.Metrics
	lastTime     float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	core.SetLogLevel(g.ApplicationConfig.Log.Level)

	am, err := assets.NewAssetManager(g.ApplicationConfig.Assets.Root)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	r, err := renderer.New(renderer.Vulkan, am, g.ApplicationConfig.RendererConfig())
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		platform:     platform.New(),
		assetManager: am,
		renderer:     r,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if !core.EventInitialize() {
		return errors.New("failed to initialize the event system")
	}
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	config := e.gameInstance.ApplicationConfig.Window
	if err := e.platform.Startup(config.Name, config.X, config.Y, config.Width, config.Height); err != nil {
		return err
	}

	e.assetManager.OnChange = func(path string) {
		core.LogInfo("asset `%s` changed, cached copy dropped", path)
	}
	if err := e.assetManager.Initialize(); err != nil {
		return err
	}

	if err := e.renderer.Initialize(e.platform); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.renderer); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run pumps window events and draws until the window closes, Stop is called
// or a frame fails. A failed frame is returned.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var sinceReport float64

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			break
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := core.AbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down.")
				return err
			}
		}

		if err := e.renderer.DrawFrame(); err != nil {
			return err
		}

		e.metrics.Update(core.AbsoluteTime() - frameStartTime)
		sinceReport += delta
		if sinceReport >= 1 {
			fps, frameTime := e.metrics.Frame()
			core.LogDebug("FPS: %.0f, frame time: %.3fms", fps, frameTime)
			sinceReport = 0
		}

		e.lastTime = currentTime
	}
	return nil
}

// Stop asks the run loop to exit after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	e.renderer.Shutdown()
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	if err := core.EventShutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageShutdown
	return nil
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		e.platform.Close()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	keyCode := core.KeyCode(context.Data.U16[0])
	if keyCode == core.KEY_ESCAPE {
		// Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	// no swapchain recreation
	core.LogDebug("Framebuffer resized to %dx%d, ignored.", context.Data.U32[0], context.Data.U32[1])
	return false
}
