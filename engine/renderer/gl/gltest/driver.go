// Package gltest provides an in-memory gl.Driver that counts native calls.
package gltest

import (
	"errors"
	"sync"

	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

var ErrCompile = errors.New("compile failed")

// Driver is a fake gl.Driver. Ids are handed out from a counter starting at 1
// and never reused, so a re-initialized object always gets a new id.
type Driver struct {
	mu sync.Mutex

	TextureUnits     int
	ColorAttachments int
	// Uniforms lists the active uniform names every linked program reports.
	Uniforms []string
	// Fail makes the named Gen*/Create* call return gl.InvalidID.
	Fail map[string]bool
	// FailCompile makes CompileShader return ErrCompile.
	FailCompile bool
	// FramebufferErr is returned by CheckFramebufferStatus.
	FramebufferErr error

	nextID      uint32
	calls       map[string]int
	live        map[uint32]string
	activeUnit  int
	unitTexture map[int]uint32
	uniformSets map[int32]interface{}
}

func NewDriver() *Driver {
	return &Driver{
		TextureUnits:     16,
		ColorAttachments: 8,
		Fail:             make(map[string]bool),
		calls:            make(map[string]int),
		live:             make(map[uint32]string),
		unitTexture:      make(map[int]uint32),
		uniformSets:      make(map[int32]interface{}),
	}
}

func (d *Driver) record(name string) {
	d.mu.Lock()
	d.calls[name]++
	d.mu.Unlock()
}

func (d *Driver) gen(name, kind string) uint32 {
	d.record(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail[name] {
		return gl.InvalidID
	}
	d.nextID++
	d.live[d.nextID] = kind
	return d.nextID
}

func (d *Driver) del(name string, id uint32) {
	d.record(name)
	d.mu.Lock()
	delete(d.live, id)
	d.mu.Unlock()
}

// Calls returns how many times the named driver method was invoked.
func (d *Driver) Calls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// ResetCalls zeroes every counter.
func (d *Driver) ResetCalls() {
	d.mu.Lock()
	d.calls = make(map[string]int)
	d.mu.Unlock()
}

// Live returns the number of native objects not yet deleted.
func (d *Driver) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// BoundTexture returns the texture last bound on the given unit.
func (d *Driver) BoundTexture(unit int) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unitTexture[unit]
}

// UniformValue returns the last value written to a uniform location.
func (d *Driver) UniformValue(location int32) interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uniformSets[location]
}

func (d *Driver) setUniform(name string, location int32, v interface{}) {
	d.record(name)
	d.mu.Lock()
	d.uniformSets[location] = v
	d.mu.Unlock()
}

func (d *Driver) GenBuffer() uint32                            { return d.gen("GenBuffer", "buffer") }
func (d *Driver) DeleteBuffer(id uint32)                       { d.del("DeleteBuffer", id) }
func (d *Driver) BindBuffer(target gl.BufferTarget, id uint32) { d.record("BindBuffer") }
func (d *Driver) BufferData(target gl.BufferTarget, data []byte, usage gl.Usage) {
	d.record("BufferData")
}

func (d *Driver) GenVertexArray() uint32         { return d.gen("GenVertexArray", "vertex array") }
func (d *Driver) DeleteVertexArray(id uint32)    { d.del("DeleteVertexArray", id) }
func (d *Driver) BindVertexArray(id uint32)      { d.record("BindVertexArray") }
func (d *Driver) EnableVertexAttribArray(uint32) { d.record("EnableVertexAttribArray") }
func (d *Driver) VertexAttribPointer(index uint32, size int32, stride int32, offset int) {
	d.record("VertexAttribPointer")
}

func (d *Driver) CreateShader(stage gl.ShaderStage) uint32 { return d.gen("CreateShader", "shader") }
func (d *Driver) ShaderSource(id uint32, source string)    { d.record("ShaderSource") }
func (d *Driver) CompileShader(id uint32) error {
	d.record("CompileShader")
	if d.FailCompile {
		return ErrCompile
	}
	return nil
}
func (d *Driver) DeleteShader(id uint32)              { d.del("DeleteShader", id) }
func (d *Driver) CreateProgram() uint32               { return d.gen("CreateProgram", "program") }
func (d *Driver) AttachShader(program, shader uint32) { d.record("AttachShader") }
func (d *Driver) LinkProgram(program uint32) error {
	d.record("LinkProgram")
	return nil
}
func (d *Driver) UseProgram(program uint32)    { d.record("UseProgram") }
func (d *Driver) DeleteProgram(program uint32) { d.del("DeleteProgram", program) }

func (d *Driver) GetUniformLocation(program uint32, name string) int32 {
	d.record("GetUniformLocation")
	for i, u := range d.Uniforms {
		if u == name {
			return int32(i)
		}
	}
	return -1
}

func (d *Driver) Uniform1i(location int32, v int32)   { d.setUniform("Uniform1i", location, v) }
func (d *Driver) Uniform1f(location int32, v float32) { d.setUniform("Uniform1f", location, v) }
func (d *Driver) Uniform2f(location int32, x, y float32) {
	d.setUniform("Uniform2f", location, [2]float32{x, y})
}
func (d *Driver) Uniform3f(location int32, x, y, z float32) {
	d.setUniform("Uniform3f", location, [3]float32{x, y, z})
}
func (d *Driver) Uniform4f(location int32, x, y, z, w float32) {
	d.setUniform("Uniform4f", location, [4]float32{x, y, z, w})
}
func (d *Driver) UniformMatrix4fv(location int32, m [16]float32) {
	d.setUniform("UniformMatrix4fv", location, m)
}

func (d *Driver) GenTexture() uint32      { return d.gen("GenTexture", "texture") }
func (d *Driver) DeleteTexture(id uint32) { d.del("DeleteTexture", id) }
func (d *Driver) ActiveTexture(unit int) {
	d.record("ActiveTexture")
	d.mu.Lock()
	d.activeUnit = unit
	d.mu.Unlock()
}
func (d *Driver) BindTexture(id uint32) {
	d.record("BindTexture")
	d.mu.Lock()
	d.unitTexture[d.activeUnit] = id
	d.mu.Unlock()
}
func (d *Driver) TexImage2D(width, height int, format gl.PixelFormat, pixels []byte) {
	d.record("TexImage2D")
}
func (d *Driver) TexParameters(params gl.TextureParams) { d.record("TexParameters") }
func (d *Driver) GenerateMipmap()                       { d.record("GenerateMipmap") }
func (d *Driver) MaxTextureUnits() int {
	d.record("MaxTextureUnits")
	return d.TextureUnits
}

func (d *Driver) GenFramebuffer() uint32      { return d.gen("GenFramebuffer", "framebuffer") }
func (d *Driver) DeleteFramebuffer(id uint32) { d.del("DeleteFramebuffer", id) }
func (d *Driver) BindFramebuffer(id uint32)   { d.record("BindFramebuffer") }
func (d *Driver) FramebufferTexture2D(attachment int, texture uint32) {
	d.record("FramebufferTexture2D")
}
func (d *Driver) CheckFramebufferStatus() error {
	d.record("CheckFramebufferStatus")
	return d.FramebufferErr
}
func (d *Driver) MaxColorAttachments() int {
	d.record("MaxColorAttachments")
	return d.ColorAttachments
}

func (d *Driver) Viewport(x, y, width, height int32)                      { d.record("Viewport") }
func (d *Driver) ClearColor(r, g, b, a float32)                           { d.record("ClearColor") }
func (d *Driver) Clear(mask gl.ClearMask)                                 { d.record("Clear") }
func (d *Driver) Enable(capability gl.Capability)                         { d.record("Enable") }
func (d *Driver) DrawElements(mode gl.Primitive, count int32, offset int) { d.record("DrawElements") }
func (d *Driver) GetError() error                                         { return nil }

var _ gl.Driver = (*Driver)(nil)
