package gpu

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

// VertexBuffer holds interleaved float vertex data.
type VertexBuffer struct {
	_ noCopy

	ctx  *Context
	id   uint32
	size int
}

func (b *VertexBuffer) Init(ctx *Context) error {
	core.Assert(!b.IsValid(), "vertex buffer %d initialized twice", b.id)
	id := ctx.driver.GenBuffer()
	if id == gl.InvalidID {
		return fmt.Errorf("failed to create vertex buffer: %w", core.ErrAllocationFailed)
	}
	b.ctx = ctx
	b.id = id
	b.size = 0
	return nil
}

func (b *VertexBuffer) IsValid() bool {
	return b.id != gl.InvalidID
}

func (b *VertexBuffer) ID() uint32 {
	return b.id
}

// Size returns the uploaded size in bytes.
func (b *VertexBuffer) Size() int {
	return b.size
}

func (b *VertexBuffer) Bind() {
	core.Assert(b.IsValid(), "binding an uninitialized vertex buffer")
	if b.ctx.boundVertexBuffer == b {
		return
	}
	b.ctx.driver.BindBuffer(gl.ArrayBuffer, b.id)
	b.ctx.boundVertexBuffer = b
}

func (b *VertexBuffer) Unbind() {
	if b.ctx == nil || b.ctx.config.DisableUnbind {
		return
	}
	b.ctx.driver.BindBuffer(gl.ArrayBuffer, gl.InvalidID)
	b.ctx.boundVertexBuffer = nil
}

// LoadVertices uploads the vertex data, replacing any previous contents.
func (b *VertexBuffer) LoadVertices(vertices []float32, usage gl.Usage) {
	b.Bind()
	data := floatBytes(vertices)
	b.ctx.driver.BufferData(gl.ArrayBuffer, data, usage)
	b.size = len(data)
}

// Stop releases the native buffer. It is safe to call more than once.
func (b *VertexBuffer) Stop() {
	if !b.IsValid() {
		return
	}
	if b.ctx.boundVertexBuffer == b {
		b.ctx.boundVertexBuffer = nil
	}
	b.ctx.driver.DeleteBuffer(b.id)
	b.id = gl.InvalidID
	b.size = 0
}

// Move transfers the native buffer to a new object; b becomes uninitialized.
func (b *VertexBuffer) Move() *VertexBuffer {
	out := &VertexBuffer{ctx: b.ctx, id: b.id, size: b.size}
	if b.ctx != nil && b.ctx.boundVertexBuffer == b {
		b.ctx.boundVertexBuffer = out
	}
	b.id = gl.InvalidID
	b.size = 0
	return out
}

// IndexBuffer holds uint32 triangle indices.
type IndexBuffer struct {
	_ noCopy

	ctx   *Context
	id    uint32
	count int
}

func (b *IndexBuffer) Init(ctx *Context) error {
	core.Assert(!b.IsValid(), "index buffer %d initialized twice", b.id)
	id := ctx.driver.GenBuffer()
	if id == gl.InvalidID {
		return fmt.Errorf("failed to create index buffer: %w", core.ErrAllocationFailed)
	}
	b.ctx = ctx
	b.id = id
	b.count = 0
	return nil
}

func (b *IndexBuffer) IsValid() bool {
	return b.id != gl.InvalidID
}

func (b *IndexBuffer) ID() uint32 {
	return b.id
}

// Count returns the number of uploaded indices.
func (b *IndexBuffer) Count() int {
	return b.count
}

func (b *IndexBuffer) Bind() {
	core.Assert(b.IsValid(), "binding an uninitialized index buffer")
	if b.ctx.boundIndexBuffer == b {
		return
	}
	b.ctx.driver.BindBuffer(gl.ElementArrayBuffer, b.id)
	b.ctx.boundIndexBuffer = b
}

func (b *IndexBuffer) Unbind() {
	if b.ctx == nil || b.ctx.config.DisableUnbind {
		return
	}
	b.ctx.driver.BindBuffer(gl.ElementArrayBuffer, gl.InvalidID)
	b.ctx.boundIndexBuffer = nil
}

// LoadIndices uploads the indices. A bound vertex array that does not own
// this buffer is detached first so its element binding is left alone.
func (b *IndexBuffer) LoadIndices(indices []uint32, usage gl.Usage) {
	if va := b.ctx.boundVertexArray; va != nil && va.indices != b {
		b.ctx.driver.BindVertexArray(gl.InvalidID)
		b.ctx.boundVertexArray = nil
		b.ctx.boundIndexBuffer = nil
	}
	b.Bind()
	var data []byte
	if len(indices) > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
	}
	b.ctx.driver.BufferData(gl.ElementArrayBuffer, data, usage)
	b.count = len(indices)
}

func (b *IndexBuffer) Stop() {
	if !b.IsValid() {
		return
	}
	if b.ctx.boundIndexBuffer == b {
		b.ctx.boundIndexBuffer = nil
	}
	b.ctx.driver.DeleteBuffer(b.id)
	b.id = gl.InvalidID
	b.count = 0
}

func (b *IndexBuffer) Move() *IndexBuffer {
	out := &IndexBuffer{ctx: b.ctx, id: b.id, count: b.count}
	if b.ctx != nil && b.ctx.boundIndexBuffer == b {
		b.ctx.boundIndexBuffer = out
	}
	b.id = gl.InvalidID
	b.count = 0
	return out
}

func floatBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
