package gpu

import (
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

// Attribute is one float vector attribute of an interleaved vertex.
type Attribute struct {
	Index uint32
	// Number of float components (1-4).
	Size int32
}

// VertexArray records a vertex layout and the index buffer used to draw it.
type VertexArray struct {
	_ noCopy

	ctx     *Context
	id      uint32
	indices *IndexBuffer
	stride  int32
}

func (va *VertexArray) Init(ctx *Context) error {
	core.Assert(!va.IsValid(), "vertex array %d initialized twice", va.id)
	id := ctx.driver.GenVertexArray()
	if id == gl.InvalidID {
		return fmt.Errorf("failed to create vertex array: %w", core.ErrAllocationFailed)
	}
	va.ctx = ctx
	va.id = id
	va.indices = nil
	va.stride = 0
	return nil
}

func (va *VertexArray) IsValid() bool {
	return va.id != gl.InvalidID
}

func (va *VertexArray) ID() uint32 {
	return va.id
}

// Stride returns the vertex size in bytes of the current layout.
func (va *VertexArray) Stride() int32 {
	return va.stride
}

func (va *VertexArray) Bind() {
	core.Assert(va.IsValid(), "binding an uninitialized vertex array")
	if va.ctx.boundVertexArray == va {
		return
	}
	va.ctx.driver.BindVertexArray(va.id)
	va.ctx.boundVertexArray = va
	// the element binding travels with the array
	va.ctx.boundIndexBuffer = va.indices
}

func (va *VertexArray) Unbind() {
	if va.ctx == nil || va.ctx.config.DisableUnbind {
		return
	}
	va.ctx.driver.BindVertexArray(gl.InvalidID)
	va.ctx.boundVertexArray = nil
	va.ctx.boundIndexBuffer = nil
}

// SetLayout points the attributes at the interleaved vertex buffer.
func (va *VertexArray) SetLayout(vb *VertexBuffer, attributes []Attribute) {
	va.Bind()
	vb.Bind()

	var stride int32
	for _, a := range attributes {
		stride += a.Size * 4
	}
	offset := 0
	for _, a := range attributes {
		va.ctx.driver.EnableVertexAttribArray(a.Index)
		va.ctx.driver.VertexAttribPointer(a.Index, a.Size, stride, offset)
		offset += int(a.Size) * 4
	}
	va.stride = stride
}

// SetIndexBuffer attaches the index buffer to the array's state.
func (va *VertexArray) SetIndexBuffer(ib *IndexBuffer) {
	va.Bind()
	// the element binding belongs to the vertex array, so force the native call
	va.ctx.boundIndexBuffer = nil
	ib.Bind()
	va.indices = ib
}

func (va *VertexArray) IndexBuffer() *IndexBuffer {
	return va.indices
}

func (va *VertexArray) Stop() {
	if !va.IsValid() {
		return
	}
	if va.ctx.boundVertexArray == va {
		va.ctx.boundVertexArray = nil
		va.ctx.boundIndexBuffer = nil
	}
	va.ctx.driver.DeleteVertexArray(va.id)
	va.id = gl.InvalidID
	va.indices = nil
}

func (va *VertexArray) Move() *VertexArray {
	out := &VertexArray{ctx: va.ctx, id: va.id, indices: va.indices, stride: va.stride}
	if va.ctx != nil && va.ctx.boundVertexArray == va {
		va.ctx.boundVertexArray = out
	}
	va.id = gl.InvalidID
	va.indices = nil
	return out
}
