package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/ecs"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer/gpu"
	"github.com/spaghettifunk/ember/engine/systems"
)

var ErrInvalidStage = errors.New("engine is not in the required stage")

// suspendedPoll is how long a minimized window sleeps between polls.
const suspendedPoll = 50 * time.Millisecond

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
	// Engine released every system
	EngineStageStopped
)

func (s Stage) String() string {
	switch s {
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageStopped:
		return "stopped"
	default:
		return "uninitialized"
	}
}

// FailureHandler decides what happens when the game returns an error from
// Update or Render. Returning true keeps the loop running.
type FailureHandler func(err error) bool

// StopOnFailure logs the error and ends the loop.
func StopOnFailure(err error) bool {
	core.LogError("%s, shutting down.", err)
	return false
}

type Option func(*Engine)

// WithWindow replaces the platform window, e.g. with a headless one.
func WithWindow(w platform.Window) Option {
	return func(e *Engine) { e.window = w }
}

// WithAudioDriver replaces the default audio backend.
func WithAudioDriver(d audio.Driver) Option {
	return func(e *Engine) { e.audioDriver = d }
}

func WithFailureHandler(h FailureHandler) Option {
	return func(e *Engine) { e.onFailure = h }
}

func WithClock(c *core.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

type Engine struct {
	config *ApplicationConfig
	game   Game
	stage  Stage

	window        platform.Window
	audioDriver   audio.Driver
	gpu           *gpu.Context
	systemManager *systems.SystemManager
	assetManager  *assets.AssetManager
	registry      *ecs.Registry

	clock     *core.Clock
	metrics   *core.Metrics
	onFailure FailureHandler
	ctx       *Context

	running         atomic.Bool
	isSuspended     bool
	gameInitialized bool
	frame           uint64
}

func New(game Game, config *ApplicationConfig, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultApplicationConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		config:    config,
		game:      game,
		stage:     EngineStageUninitialized,
		clock:     core.NewClock(),
		metrics:   core.NewMetrics(),
		onFailure: StopOnFailure,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx = &Context{engine: e}
	return e, nil
}

func (e *Engine) Stage() Stage {
	return e.stage
}

func (e *Engine) Context() *Context {
	return e.ctx
}

/**
 * @brief Brings up the window, the GPU context, every engine system and
 * finally the game. Must run on the thread that will run the loop.
 * On failure the systems created so far are released by Shutdown.
 */
func (e *Engine) Initialize() error {
	if e.stage != EngineStageUninitialized {
		return fmt.Errorf("%w: initialize while %s", ErrInvalidStage, e.stage)
	}
	e.stage = EngineStageInitializing

	level, _ := core.ParseLogLevel(e.config.LogLevel)
	core.SetLogLevel(level)
	if e.config.Assertions {
		core.SetAssertionLevel(core.AssertionsOn)
	} else {
		core.SetAssertionLevel(core.AssertionsOff)
	}

	if e.window == nil {
		w, err := platform.NewWindow(e.config.windowConfig())
		if err != nil {
			return err
		}
		e.window = w
	}

	driver, err := e.window.GraphicsDriver()
	if err != nil {
		return fmt.Errorf("failed to create the graphics driver: %w", err)
	}
	// the context is confined to this thread from here on
	e.gpu = gpu.NewContext(driver, gpu.Config{DisableUnbind: e.config.DisableUnbind})

	if err := e.initializeSystems(); err != nil {
		return err
	}

	if e.config.AssetDir != "" {
		am, err := assets.NewAssetManager()
		if err != nil {
			return err
		}
		e.assetManager = am
		if err := am.Initialize(e.config.AssetDir); err != nil {
			return err
		}
	}

	e.registry = ecs.NewRegistry()

	width, height := e.window.Size()
	e.gpu.Viewport(0, 0, int32(width), int32(height))

	if err := e.game.Initialize(e.ctx); err != nil {
		return fmt.Errorf("game initialization failed: %w", err)
	}
	e.gameInitialized = true

	if r, ok := e.game.(Resizer); ok {
		if err := r.OnResize(e.ctx, width, height); err != nil {
			return err
		}
	}

	e.stage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// initializeSystems creates the system manager. Sound is optional: when the
// audio backend cannot start the engine keeps running without it.
func (e *Engine) initializeSystems() error {
	if e.audioDriver == nil && e.config.Audio.Enabled {
		beepConfig := audio.DefaultBeepConfig()
		beepConfig.SampleRate = e.config.Audio.SampleRate
		beepConfig.Latency = time.Duration(e.config.Audio.LatencyMS) * time.Millisecond
		e.audioDriver = audio.NewBeepDriver(beepConfig)
	}

	sm, err := systems.NewSystemManager(e.config.systemsConfig(), e.gpu, e.audioDriver)
	if err != nil && e.audioDriver != nil {
		core.LogWarn("Audio unavailable, continuing without sound: %s", err)
		e.audioDriver = nil
		sm, err = systems.NewSystemManager(e.config.systemsConfig(), e.gpu, nil)
	}
	if err != nil {
		return err
	}
	e.systemManager = sm
	return nil
}

/**
 * @brief Runs the frame loop until the window closes, Stop is called or the
 * failure handler gives up.
 * @return The error that ended the loop, nil on a regular close.
 */
func (e *Engine) Run() error {
	if e.stage != EngineStageInitialized {
		return fmt.Errorf("%w: run while %s", ErrInvalidStage, e.stage)
	}
	e.stage = EngineStageRunning
	e.running.Store(true)
	defer e.running.Store(false)

	e.clock.Start()
	e.clock.Update()
	lastTime := e.clock.Elapsed()
	accumulator := 0.0
	input := e.window.Input()

	for e.running.Load() && !e.window.ShouldClose() {
		if e.window.PollEvents() {
			e.onResized()
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - lastTime
		lastTime = currentTime

		if e.isSuspended {
			time.Sleep(suspendedPoll)
			continue
		}

		if err := e.update(delta, &accumulator); err != nil {
			return err
		}

		if err := e.game.Render(e.ctx, delta); err != nil {
			if !e.onFailure(fmt.Errorf("game render failed: %w", err)) {
				return err
			}
		}
		e.window.SwapBuffers()

		// Input is the last thing updated in a frame so the next poll
		// compares against this frame's state.
		input.Update()

		if e.metrics.Update(delta) {
			fps, frameTime := e.metrics.Frame()
			core.LogDebug("FPS: %.0f, frame time: %.3fms", fps, frameTime)
		}
		e.frame++
	}
	return nil
}

// update advances the simulation. With a fixed time step the accumulated
// frame time is consumed in whole steps, at most MaxStepsPerFrame of them.
func (e *Engine) update(delta float64, accumulator *float64) error {
	step := e.config.TimeStep
	if step <= 0 {
		return e.callUpdate(delta)
	}

	*accumulator += delta
	steps := 0
	for *accumulator >= step {
		if steps == e.config.MaxStepsPerFrame {
			core.LogDebug("Simulation behind by %.3fs, skipping.", *accumulator)
			*accumulator = 0
			break
		}
		if err := e.callUpdate(step); err != nil {
			return err
		}
		*accumulator -= step
		steps++
	}
	return nil
}

func (e *Engine) callUpdate(dt float64) error {
	if err := e.game.Update(e.ctx, dt); err != nil {
		if !e.onFailure(fmt.Errorf("game update failed: %w", err)) {
			return err
		}
	}
	return nil
}

func (e *Engine) onResized() {
	width, height := e.window.Size()
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.gpu.Viewport(0, 0, int32(width), int32(height))
	if r, ok := e.game.(Resizer); ok {
		if err := r.OnResize(e.ctx, width, height); err != nil {
			core.LogError("game resize failed: %s", err)
		}
	}
}

// Stop asks the loop to end after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Shutdown releases everything Initialize created, newest first. It keeps
// going past failures and returns them joined.
func (e *Engine) Shutdown() error {
	if e.stage == EngineStageStopped || e.stage == EngineStageShuttingDown {
		return nil
	}
	e.stage = EngineStageShuttingDown
	e.running.Store(false)

	var errs []error
	if e.gameInitialized {
		if err := e.game.Shutdown(e.ctx); err != nil {
			errs = append(errs, fmt.Errorf("game shutdown: %w", err))
		}
		e.gameInitialized = false
	}
	if e.assetManager != nil {
		if err := e.assetManager.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.window != nil {
		if err := e.window.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	e.stage = EngineStageStopped
	core.LogInfo("Engine stopped.")
	return errors.Join(errs...)
}
