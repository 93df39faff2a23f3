// Package gl defines the native graphics calls the engine relies on and the
// backends that implement them. All calls must happen on the thread that owns
// the graphics context.
package gl

import "errors"

// InvalidID is the id drivers return when an allocation fails.
const InvalidID uint32 = 0

// ErrIncompleteFramebuffer is returned by CheckFramebufferStatus.
var ErrIncompleteFramebuffer = errors.New("framebuffer incomplete")

type BufferTarget uint8

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

type Usage uint8

const (
	StaticDraw Usage = iota
	DynamicDraw
)

type ShaderStage uint8

const (
	VertexShader ShaderStage = iota
	FragmentShader
)

func (s ShaderStage) String() string {
	if s == VertexShader {
		return "vertex"
	}
	return "fragment"
}

type PixelFormat uint8

const (
	RGBA PixelFormat = iota
	RGB
	Red
)

// Channels returns the bytes per pixel of the format.
func (f PixelFormat) Channels() int {
	switch f {
	case RGB:
		return 3
	case Red:
		return 1
	default:
		return 4
	}
}

type TextureParams struct {
	Linear  bool
	Repeat  bool
	Mipmaps bool
}

type Primitive uint8

const (
	Triangles Primitive = iota
	Lines
)

type ClearMask uint8

const (
	ColorBufferBit ClearMask = 1 << iota
	DepthBufferBit
)

type Capability uint8

const (
	DepthTest Capability = iota
	Blend
	CullFace
)

// Driver is the thin native layer. Ids are opaque driver handles where
// InvalidID means "no object".
type Driver interface {
	GenBuffer() uint32
	DeleteBuffer(id uint32)
	BindBuffer(target BufferTarget, id uint32)
	BufferData(target BufferTarget, data []byte, usage Usage)

	GenVertexArray() uint32
	DeleteVertexArray(id uint32)
	BindVertexArray(id uint32)
	EnableVertexAttribArray(index uint32)
	// VertexAttribPointer describes a float attribute of `size` components.
	VertexAttribPointer(index uint32, size int32, stride int32, offset int)

	CreateShader(stage ShaderStage) uint32
	ShaderSource(id uint32, source string)
	CompileShader(id uint32) error
	DeleteShader(id uint32)
	CreateProgram() uint32
	AttachShader(program, shader uint32)
	LinkProgram(program uint32) error
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	// GetUniformLocation returns -1 when the program has no active uniform with that name.
	GetUniformLocation(program uint32, name string) int32
	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform2f(location int32, x, y float32)
	Uniform3f(location int32, x, y, z float32)
	Uniform4f(location int32, x, y, z, w float32)
	UniformMatrix4fv(location int32, m [16]float32)

	GenTexture() uint32
	DeleteTexture(id uint32)
	ActiveTexture(unit int)
	BindTexture(id uint32)
	TexImage2D(width, height int, format PixelFormat, pixels []byte)
	TexParameters(params TextureParams)
	GenerateMipmap()
	MaxTextureUnits() int

	GenFramebuffer() uint32
	DeleteFramebuffer(id uint32)
	BindFramebuffer(id uint32)
	FramebufferTexture2D(attachment int, texture uint32)
	CheckFramebufferStatus() error
	MaxColorAttachments() int

	Viewport(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)
	Enable(capability Capability)
	// DrawElements draws count uint32 indices starting at the byte offset
	// of the bound element buffer.
	DrawElements(mode Primitive, count int32, offset int)

	// GetError returns the first pending driver error, if any.
	GetError() error
}
