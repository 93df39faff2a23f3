// Package gpu wraps native graphics objects with an init/bind/unbind/stop
// lifecycle and tracks the driver's binding state so redundant native calls
// are skipped.
//
// A Context and every object created against it must only be used from the
// goroutine locked to the thread that owns the graphics context.
package gpu

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

var (
	ErrOutOfTextureUnits     = fmt.Errorf("ran out of usable texture units: %w", core.ErrResourceExhausted)
	ErrOutOfColorAttachments = fmt.Errorf("ran out of usable color attachments: %w", core.ErrResourceExhausted)
	ErrUniformNotFound       = errors.New("uniform not found")
	ErrUnsupportedUniform    = errors.New("unsupported uniform value type")
)

// Config holds debug switches for the binding cache.
type Config struct {
	// DisableUnbind turns every Unbind into a no-op; bindings are simply
	// replaced by the next Bind.
	DisableUnbind bool
}

type textureUnit struct {
	texture *Texture
	locked  bool
}

// Context is the explicit owner of the driver's global state: the last bound
// object of every kind, the texture unit table and the color attachment pool.
type Context struct {
	driver gl.Driver
	config Config

	boundVertexBuffer *VertexBuffer
	boundIndexBuffer  *IndexBuffer
	boundVertexArray  *VertexArray
	boundShader       *Shader
	boundFrameBuffer  *FrameBuffer

	// sized lazily from the driver's limits
	textureUnits     []textureUnit
	activeUnit       int
	colorAttachments []bool
}

func NewContext(driver gl.Driver, config Config) *Context {
	return &Context{
		driver:     driver,
		config:     config,
		activeUnit: -1,
	}
}

func (c *Context) Driver() gl.Driver {
	return c.driver
}

func (c *Context) Config() Config {
	return c.config
}

func (c *Context) units() []textureUnit {
	if c.textureUnits == nil {
		n := c.driver.MaxTextureUnits()
		if n <= 0 {
			core.LogWarn("driver reported %d texture units", n)
			n = 0
		}
		c.textureUnits = make([]textureUnit, n)
		core.LogDebug("texture unit table sized to %d units", n)
	}
	return c.textureUnits
}

// TextureUnitCount returns the number of hardware texture units.
func (c *Context) TextureUnitCount() int {
	return len(c.units())
}

// TextureUnitLocked reports whether the unit is held by a locked texture.
func (c *Context) TextureUnitLocked(unit int) bool {
	units := c.units()
	if unit < 0 || unit >= len(units) {
		return false
	}
	return units[unit].texture != nil && units[unit].locked
}

func (c *Context) activate(unit int) {
	if c.activeUnit == unit {
		return
	}
	c.driver.ActiveTexture(unit)
	c.activeUnit = unit
}

func (c *Context) claimColorAttachment() (int, error) {
	if c.colorAttachments == nil {
		n := c.driver.MaxColorAttachments()
		if n < 0 {
			n = 0
		}
		c.colorAttachments = make([]bool, n)
	}
	for i, inUse := range c.colorAttachments {
		if !inUse {
			c.colorAttachments[i] = true
			return i, nil
		}
	}
	return -1, ErrOutOfColorAttachments
}

func (c *Context) releaseColorAttachment(index int) {
	if index >= 0 && index < len(c.colorAttachments) {
		c.colorAttachments[index] = false
	}
}

func (c *Context) Viewport(x, y, width, height int32) {
	c.driver.Viewport(x, y, width, height)
}

// Clear clears color and depth of the bound framebuffer.
func (c *Context) Clear(r, g, b, a float32) {
	c.driver.ClearColor(r, g, b, a)
	c.driver.Clear(gl.ColorBufferBit | gl.DepthBufferBit)
}

func (c *Context) Enable(capability gl.Capability) {
	c.driver.Enable(capability)
}

// DrawElements binds the vertex array and draws every index of its index buffer.
func (c *Context) DrawElements(va *VertexArray) {
	va.Bind()
	count := int32(0)
	if va.indices != nil {
		count = int32(va.indices.Count())
	}
	core.Assert(count > 0, "drawing vertex array %d without indices", va.id)
	c.driver.DrawElements(gl.Triangles, count, 0)
}

// CheckError reports the driver's pending error, if any.
func (c *Context) CheckError(op string) error {
	if err := c.driver.GetError(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// noCopy flags accidental copies of GPU objects for go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
