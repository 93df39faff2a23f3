//go:build js && wasm

package gl

import (
	"errors"
	"fmt"
	"syscall/js"
)

// WebGLDriver issues WebGL2 calls on a canvas context. WebGL hands out
// objects instead of integers, so the driver keeps its own id tables.
type WebGLDriver struct {
	gl        js.Value
	nextID    uint32
	objects   map[uint32]js.Value
	locations map[int32]js.Value
	nextLoc   int32
}

// NewWebGLDriver creates a WebGL2 context on the canvas with the given element id.
func NewWebGLDriver(canvasID string) (*WebGLDriver, error) {
	canvas := js.Global().Get("document").Call("getElementById", canvasID)
	if canvas.IsNull() || canvas.IsUndefined() {
		return nil, fmt.Errorf("canvas '%s' not found", canvasID)
	}
	ctx := canvas.Call("getContext", "webgl2")
	if ctx.IsNull() || ctx.IsUndefined() {
		return nil, errors.New("webgl2 is not supported by this browser")
	}
	return &WebGLDriver{
		gl:        ctx,
		objects:   make(map[uint32]js.Value),
		locations: make(map[int32]js.Value),
	}, nil
}

func (d *WebGLDriver) constant(name string) js.Value {
	return d.gl.Get(name)
}

func (d *WebGLDriver) register(v js.Value) uint32 {
	if v.IsNull() || v.IsUndefined() {
		return InvalidID
	}
	d.nextID++
	d.objects[d.nextID] = v
	return d.nextID
}

func (d *WebGLDriver) object(id uint32) js.Value {
	if v, ok := d.objects[id]; ok {
		return v
	}
	return js.Null()
}

func (d *WebGLDriver) release(id uint32, fn string) {
	if v, ok := d.objects[id]; ok {
		d.gl.Call(fn, v)
		delete(d.objects, id)
	}
}

func (d *WebGLDriver) bufferTarget(t BufferTarget) js.Value {
	if t == ElementArrayBuffer {
		return d.constant("ELEMENT_ARRAY_BUFFER")
	}
	return d.constant("ARRAY_BUFFER")
}

func (d *WebGLDriver) GenBuffer() uint32 {
	return d.register(d.gl.Call("createBuffer"))
}

func (d *WebGLDriver) DeleteBuffer(id uint32) {
	d.release(id, "deleteBuffer")
}

func (d *WebGLDriver) BindBuffer(target BufferTarget, id uint32) {
	d.gl.Call("bindBuffer", d.bufferTarget(target), d.object(id))
}

func (d *WebGLDriver) BufferData(target BufferTarget, data []byte, usage Usage) {
	u := d.constant("STATIC_DRAW")
	if usage == DynamicDraw {
		u = d.constant("DYNAMIC_DRAW")
	}
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	d.gl.Call("bufferData", d.bufferTarget(target), arr, u)
}

func (d *WebGLDriver) GenVertexArray() uint32 {
	return d.register(d.gl.Call("createVertexArray"))
}

func (d *WebGLDriver) DeleteVertexArray(id uint32) {
	d.release(id, "deleteVertexArray")
}

func (d *WebGLDriver) BindVertexArray(id uint32) {
	d.gl.Call("bindVertexArray", d.object(id))
}

func (d *WebGLDriver) EnableVertexAttribArray(index uint32) {
	d.gl.Call("enableVertexAttribArray", index)
}

func (d *WebGLDriver) VertexAttribPointer(index uint32, size int32, stride int32, offset int) {
	d.gl.Call("vertexAttribPointer", index, size, d.constant("FLOAT"), false, stride, offset)
}

func (d *WebGLDriver) CreateShader(stage ShaderStage) uint32 {
	if stage == VertexShader {
		return d.register(d.gl.Call("createShader", d.constant("VERTEX_SHADER")))
	}
	return d.register(d.gl.Call("createShader", d.constant("FRAGMENT_SHADER")))
}

func (d *WebGLDriver) ShaderSource(id uint32, source string) {
	d.gl.Call("shaderSource", d.object(id), source)
}

func (d *WebGLDriver) CompileShader(id uint32) error {
	s := d.object(id)
	d.gl.Call("compileShader", s)
	if !d.gl.Call("getShaderParameter", s, d.constant("COMPILE_STATUS")).Bool() {
		return fmt.Errorf("failed to compile shader: %s", d.gl.Call("getShaderInfoLog", s).String())
	}
	return nil
}

func (d *WebGLDriver) DeleteShader(id uint32) {
	d.release(id, "deleteShader")
}

func (d *WebGLDriver) CreateProgram() uint32 {
	return d.register(d.gl.Call("createProgram"))
}

func (d *WebGLDriver) AttachShader(program, shader uint32) {
	d.gl.Call("attachShader", d.object(program), d.object(shader))
}

func (d *WebGLDriver) LinkProgram(program uint32) error {
	p := d.object(program)
	d.gl.Call("linkProgram", p)
	if !d.gl.Call("getProgramParameter", p, d.constant("LINK_STATUS")).Bool() {
		return fmt.Errorf("failed to link program: %s", d.gl.Call("getProgramInfoLog", p).String())
	}
	return nil
}

func (d *WebGLDriver) UseProgram(program uint32) {
	d.gl.Call("useProgram", d.object(program))
}

func (d *WebGLDriver) DeleteProgram(program uint32) {
	d.release(program, "deleteProgram")
}

func (d *WebGLDriver) GetUniformLocation(program uint32, name string) int32 {
	loc := d.gl.Call("getUniformLocation", d.object(program), name)
	if loc.IsNull() || loc.IsUndefined() {
		return -1
	}
	d.locations[d.nextLoc] = loc
	d.nextLoc++
	return d.nextLoc - 1
}

func (d *WebGLDriver) Uniform1i(location int32, v int32) {
	d.gl.Call("uniform1i", d.locations[location], v)
}

func (d *WebGLDriver) Uniform1f(location int32, v float32) {
	d.gl.Call("uniform1f", d.locations[location], v)
}

func (d *WebGLDriver) Uniform2f(location int32, x, y float32) {
	d.gl.Call("uniform2f", d.locations[location], x, y)
}

func (d *WebGLDriver) Uniform3f(location int32, x, y, z float32) {
	d.gl.Call("uniform3f", d.locations[location], x, y, z)
}

func (d *WebGLDriver) Uniform4f(location int32, x, y, z, w float32) {
	d.gl.Call("uniform4f", d.locations[location], x, y, z, w)
}

func (d *WebGLDriver) UniformMatrix4fv(location int32, m [16]float32) {
	arr := js.Global().Get("Float32Array").New(16)
	for i, v := range m {
		arr.SetIndex(i, v)
	}
	d.gl.Call("uniformMatrix4fv", d.locations[location], false, arr)
}

func (d *WebGLDriver) GenTexture() uint32 {
	return d.register(d.gl.Call("createTexture"))
}

func (d *WebGLDriver) DeleteTexture(id uint32) {
	d.release(id, "deleteTexture")
}

func (d *WebGLDriver) ActiveTexture(unit int) {
	d.gl.Call("activeTexture", d.constant("TEXTURE0").Int()+unit)
}

func (d *WebGLDriver) BindTexture(id uint32) {
	d.gl.Call("bindTexture", d.constant("TEXTURE_2D"), d.object(id))
}

func (d *WebGLDriver) TexImage2D(width, height int, format PixelFormat, pixels []byte) {
	internal, f := d.constant("RGBA8"), d.constant("RGBA")
	switch format {
	case RGB:
		internal, f = d.constant("RGB8"), d.constant("RGB")
	case Red:
		internal, f = d.constant("R8"), d.constant("RED")
		d.gl.Call("pixelStorei", d.constant("UNPACK_ALIGNMENT"), 1)
	}
	data := js.Null()
	if len(pixels) > 0 {
		data = js.Global().Get("Uint8Array").New(len(pixels))
		js.CopyBytesToJS(data, pixels)
	}
	d.gl.Call("texImage2D", d.constant("TEXTURE_2D"), 0, internal, width, height, 0, f, d.constant("UNSIGNED_BYTE"), data)
}

func (d *WebGLDriver) TexParameters(params TextureParams) {
	wrap := d.constant("CLAMP_TO_EDGE")
	if params.Repeat {
		wrap = d.constant("REPEAT")
	}
	mag, minf := d.constant("NEAREST"), d.constant("NEAREST")
	if params.Linear {
		mag, minf = d.constant("LINEAR"), d.constant("LINEAR")
		if params.Mipmaps {
			minf = d.constant("LINEAR_MIPMAP_LINEAR")
		}
	}
	target := d.constant("TEXTURE_2D")
	d.gl.Call("texParameteri", target, d.constant("TEXTURE_WRAP_S"), wrap)
	d.gl.Call("texParameteri", target, d.constant("TEXTURE_WRAP_T"), wrap)
	d.gl.Call("texParameteri", target, d.constant("TEXTURE_MAG_FILTER"), mag)
	d.gl.Call("texParameteri", target, d.constant("TEXTURE_MIN_FILTER"), minf)
}

func (d *WebGLDriver) GenerateMipmap() {
	d.gl.Call("generateMipmap", d.constant("TEXTURE_2D"))
}

func (d *WebGLDriver) MaxTextureUnits() int {
	return d.gl.Call("getParameter", d.constant("MAX_TEXTURE_IMAGE_UNITS")).Int()
}

func (d *WebGLDriver) GenFramebuffer() uint32 {
	return d.register(d.gl.Call("createFramebuffer"))
}

func (d *WebGLDriver) DeleteFramebuffer(id uint32) {
	d.release(id, "deleteFramebuffer")
}

func (d *WebGLDriver) BindFramebuffer(id uint32) {
	d.gl.Call("bindFramebuffer", d.constant("FRAMEBUFFER"), d.object(id))
}

func (d *WebGLDriver) FramebufferTexture2D(attachment int, texture uint32) {
	d.gl.Call("framebufferTexture2D", d.constant("FRAMEBUFFER"), d.constant("COLOR_ATTACHMENT0").Int()+attachment,
		d.constant("TEXTURE_2D"), d.object(texture), 0)
}

func (d *WebGLDriver) CheckFramebufferStatus() error {
	status := d.gl.Call("checkFramebufferStatus", d.constant("FRAMEBUFFER")).Int()
	if status != d.constant("FRAMEBUFFER_COMPLETE").Int() {
		return fmt.Errorf("%w: status 0x%x", ErrIncompleteFramebuffer, status)
	}
	return nil
}

func (d *WebGLDriver) MaxColorAttachments() int {
	return d.gl.Call("getParameter", d.constant("MAX_COLOR_ATTACHMENTS")).Int()
}

func (d *WebGLDriver) Viewport(x, y, width, height int32) {
	d.gl.Call("viewport", x, y, width, height)
}

func (d *WebGLDriver) ClearColor(r, g, b, a float32) {
	d.gl.Call("clearColor", r, g, b, a)
}

func (d *WebGLDriver) Clear(mask ClearMask) {
	bits := 0
	if mask&ColorBufferBit != 0 {
		bits |= d.constant("COLOR_BUFFER_BIT").Int()
	}
	if mask&DepthBufferBit != 0 {
		bits |= d.constant("DEPTH_BUFFER_BIT").Int()
	}
	d.gl.Call("clear", bits)
}

func (d *WebGLDriver) Enable(capability Capability) {
	switch capability {
	case DepthTest:
		d.gl.Call("enable", d.constant("DEPTH_TEST"))
	case Blend:
		d.gl.Call("enable", d.constant("BLEND"))
		d.gl.Call("blendFunc", d.constant("SRC_ALPHA"), d.constant("ONE_MINUS_SRC_ALPHA"))
	case CullFace:
		d.gl.Call("enable", d.constant("CULL_FACE"))
	}
}

func (d *WebGLDriver) DrawElements(mode Primitive, count int32, offset int) {
	m := d.constant("TRIANGLES")
	if mode == Lines {
		m = d.constant("LINES")
	}
	d.gl.Call("drawElements", m, count, d.constant("UNSIGNED_INT"), offset)
}

func (d *WebGLDriver) GetError() error {
	if code := d.gl.Call("getError").Int(); code != d.constant("NO_ERROR").Int() {
		return fmt.Errorf("webgl error 0x%x", code)
	}
	return nil
}
