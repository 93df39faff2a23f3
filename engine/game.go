package engine

import (
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/ecs"
	"github.com/spaghettifunk/ember/engine/renderer/gpu"
	"github.com/spaghettifunk/ember/engine/systems"
)

// Game is the logic module driven by the engine. Update runs zero or more
// times per frame with the simulation step, Render once per frame with the
// frame time.
type Game interface {
	Initialize(ctx *Context) error
	Update(ctx *Context, deltaTime float64) error
	Render(ctx *Context, deltaTime float64) error
	Shutdown(ctx *Context) error
}

// Resizer is implemented by games that react to framebuffer size changes.
type Resizer interface {
	OnResize(ctx *Context, width, height int) error
}

// Context is what the engine hands to the game every call.
type Context struct {
	engine *Engine
}

func (c *Context) Systems() *systems.SystemManager {
	return c.engine.systemManager
}

func (c *Context) Resources() *systems.ResourceManager {
	return c.engine.systemManager.Resources()
}

// Audio returns the audio manager, or nil when running without sound.
func (c *Context) Audio() *systems.AudioManager {
	return c.engine.systemManager.Audio()
}

func (c *Context) Scheduler() *systems.Scheduler {
	return c.engine.systemManager.Scheduler()
}

func (c *Context) GPU() *gpu.Context {
	return c.engine.gpu
}

// Assets returns the asset manager, or nil when no asset directory is configured.
func (c *Context) Assets() *assets.AssetManager {
	return c.engine.assetManager
}

func (c *Context) Registry() *ecs.Registry {
	return c.engine.registry
}

func (c *Context) Input() *core.InputState {
	return c.engine.window.Input()
}

// Size returns the framebuffer size.
func (c *Context) Size() (int, int) {
	return c.engine.window.Size()
}

// Frame returns the number of frames rendered so far.
func (c *Context) Frame() uint64 {
	return c.engine.frame
}

func (c *Context) Metrics() *core.Metrics {
	return c.engine.metrics
}

func (c *Context) Config() *ApplicationConfig {
	return c.engine.config
}

// Quit ends the loop after the current frame.
func (c *Context) Quit() {
	c.engine.Stop()
}
