//go:build !js

package gl

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
)

// DesktopDriver issues OpenGL 3.3 core calls through go-gl.
type DesktopDriver struct {
	maxTextureUnits     int
	maxColorAttachments int
}

// NewDesktopDriver loads the GL function pointers. A GL context must be
// current on the calling thread.
func NewDesktopDriver() (*DesktopDriver, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	return &DesktopDriver{}, nil
}

// Version reports the GL version string of the current context.
func (d *DesktopDriver) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func bufferTarget(t BufferTarget) uint32 {
	if t == ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func (d *DesktopDriver) GenBuffer() uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	return id
}

func (d *DesktopDriver) DeleteBuffer(id uint32) {
	gl.DeleteBuffers(1, &id)
}

func (d *DesktopDriver) BindBuffer(target BufferTarget, id uint32) {
	gl.BindBuffer(bufferTarget(target), id)
}

func (d *DesktopDriver) BufferData(target BufferTarget, data []byte, usage Usage) {
	u := uint32(gl.STATIC_DRAW)
	if usage == DynamicDraw {
		u = gl.DYNAMIC_DRAW
	}
	if len(data) == 0 {
		gl.BufferData(bufferTarget(target), 0, nil, u)
		return
	}
	gl.BufferData(bufferTarget(target), len(data), gl.Ptr(data), u)
}

func (d *DesktopDriver) GenVertexArray() uint32 {
	var id uint32
	gl.GenVertexArrays(1, &id)
	return id
}

func (d *DesktopDriver) DeleteVertexArray(id uint32) {
	gl.DeleteVertexArrays(1, &id)
}

func (d *DesktopDriver) BindVertexArray(id uint32) {
	gl.BindVertexArray(id)
}

func (d *DesktopDriver) EnableVertexAttribArray(index uint32) {
	gl.EnableVertexAttribArray(index)
}

func (d *DesktopDriver) VertexAttribPointer(index uint32, size int32, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, stride, uintptr(offset))
}

func (d *DesktopDriver) CreateShader(stage ShaderStage) uint32 {
	if stage == VertexShader {
		return gl.CreateShader(gl.VERTEX_SHADER)
	}
	return gl.CreateShader(gl.FRAGMENT_SHADER)
}

func (d *DesktopDriver) ShaderSource(id uint32, source string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(id, 1, csources, nil)
	free()
}

func (d *DesktopDriver) CompileShader(id uint32) error {
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(id, logLength, nil, gl.Str(log))
		return fmt.Errorf("failed to compile shader: %s", strings.TrimRight(log, "\x00"))
	}
	return nil
}

func (d *DesktopDriver) DeleteShader(id uint32) {
	gl.DeleteShader(id)
}

func (d *DesktopDriver) CreateProgram() uint32 {
	return gl.CreateProgram()
}

func (d *DesktopDriver) AttachShader(program, shader uint32) {
	gl.AttachShader(program, shader)
}

func (d *DesktopDriver) LinkProgram(program uint32) error {
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		return fmt.Errorf("failed to link program: %s", strings.TrimRight(log, "\x00"))
	}
	return nil
}

func (d *DesktopDriver) UseProgram(program uint32) {
	gl.UseProgram(program)
}

func (d *DesktopDriver) DeleteProgram(program uint32) {
	gl.DeleteProgram(program)
}

func (d *DesktopDriver) GetUniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *DesktopDriver) Uniform1i(location int32, v int32) {
	gl.Uniform1i(location, v)
}

func (d *DesktopDriver) Uniform1f(location int32, v float32) {
	gl.Uniform1f(location, v)
}

func (d *DesktopDriver) Uniform2f(location int32, x, y float32) {
	gl.Uniform2f(location, x, y)
}

func (d *DesktopDriver) Uniform3f(location int32, x, y, z float32) {
	gl.Uniform3f(location, x, y, z)
}

func (d *DesktopDriver) Uniform4f(location int32, x, y, z, w float32) {
	gl.Uniform4f(location, x, y, z, w)
}

func (d *DesktopDriver) UniformMatrix4fv(location int32, m [16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (d *DesktopDriver) GenTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (d *DesktopDriver) DeleteTexture(id uint32) {
	gl.DeleteTextures(1, &id)
}

func (d *DesktopDriver) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *DesktopDriver) BindTexture(id uint32) {
	gl.BindTexture(gl.TEXTURE_2D, id)
}

func (d *DesktopDriver) TexImage2D(width, height int, format PixelFormat, pixels []byte) {
	var internal int32
	var f uint32
	switch format {
	case RGB:
		internal, f = gl.RGB8, gl.RGB
	case Red:
		internal, f = gl.R8, gl.RED
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	default:
		internal, f = gl.RGBA8, gl.RGBA
	}
	if len(pixels) == 0 {
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, f, gl.UNSIGNED_BYTE, nil)
		return
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, f, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
}

func (d *DesktopDriver) TexParameters(params TextureParams) {
	wrap := int32(gl.CLAMP_TO_EDGE)
	if params.Repeat {
		wrap = gl.REPEAT
	}
	mag := int32(gl.NEAREST)
	minf := int32(gl.NEAREST)
	if params.Linear {
		mag = gl.LINEAR
		minf = gl.LINEAR
		if params.Mipmaps {
			minf = gl.LINEAR_MIPMAP_LINEAR
		}
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, mag)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minf)
}

func (d *DesktopDriver) GenerateMipmap() {
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

func (d *DesktopDriver) MaxTextureUnits() int {
	if d.maxTextureUnits == 0 {
		var n int32
		gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &n)
		d.maxTextureUnits = int(n)
	}
	return d.maxTextureUnits
}

func (d *DesktopDriver) GenFramebuffer() uint32 {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return id
}

func (d *DesktopDriver) DeleteFramebuffer(id uint32) {
	gl.DeleteFramebuffers(1, &id)
}

func (d *DesktopDriver) BindFramebuffer(id uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, id)
}

func (d *DesktopDriver) FramebufferTexture2D(attachment int, texture uint32) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(attachment), gl.TEXTURE_2D, texture, 0)
}

func (d *DesktopDriver) CheckFramebufferStatus() error {
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status 0x%x", ErrIncompleteFramebuffer, status)
	}
	return nil
}

func (d *DesktopDriver) MaxColorAttachments() int {
	if d.maxColorAttachments == 0 {
		var n int32
		gl.GetIntegerv(gl.MAX_COLOR_ATTACHMENTS, &n)
		d.maxColorAttachments = int(n)
	}
	return d.maxColorAttachments
}

func (d *DesktopDriver) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

func (d *DesktopDriver) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (d *DesktopDriver) Clear(mask ClearMask) {
	var bits uint32
	if mask&ColorBufferBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&DepthBufferBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *DesktopDriver) Enable(capability Capability) {
	switch capability {
	case DepthTest:
		gl.Enable(gl.DEPTH_TEST)
	case Blend:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case CullFace:
		gl.Enable(gl.CULL_FACE)
	}
}

func (d *DesktopDriver) DrawElements(mode Primitive, count int32, offset int) {
	m := uint32(gl.TRIANGLES)
	if mode == Lines {
		m = gl.LINES
	}
	gl.DrawElementsWithOffset(m, count, gl.UNSIGNED_INT, uintptr(offset))
}

func (d *DesktopDriver) GetError() error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}
	return nil
}
