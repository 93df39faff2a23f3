package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
	"github.com/spaghettifunk/ember/engine/renderer/gl/gltest"
)

func newTestContext(config Config) (*Context, *gltest.Driver) {
	d := gltest.NewDriver()
	return NewContext(d, config), d
}

func TestBindIsCached(t *testing.T) {
	ctx, d := newTestContext(Config{})

	vb := &VertexBuffer{}
	require.NoError(t, vb.Init(ctx))
	vb.Bind()
	vb.Bind()
	assert.Equal(t, 1, d.Calls("BindBuffer"))

	vb.Unbind()
	vb.Bind()
	assert.Equal(t, 3, d.Calls("BindBuffer"))

	other := &VertexBuffer{}
	require.NoError(t, other.Init(ctx))
	other.Bind()
	vb.Bind()
	assert.Equal(t, 5, d.Calls("BindBuffer"))
}

func TestDisableUnbind(t *testing.T) {
	ctx, d := newTestContext(Config{DisableUnbind: true})

	va := &VertexArray{}
	require.NoError(t, va.Init(ctx))
	va.Bind()
	va.Unbind()
	va.Bind()
	assert.Equal(t, 1, d.Calls("BindVertexArray"))
}

func TestInitStopInit(t *testing.T) {
	ctx, d := newTestContext(Config{})

	ib := &IndexBuffer{}
	require.NoError(t, ib.Init(ctx))
	first := ib.ID()
	assert.Equal(t, 1, d.Live())

	ib.Stop()
	ib.Stop()
	assert.False(t, ib.IsValid())
	assert.Equal(t, 0, d.Live())
	assert.Equal(t, 1, d.Calls("DeleteBuffer"))

	require.NoError(t, ib.Init(ctx))
	assert.NotEqual(t, first, ib.ID())
	assert.Equal(t, 1, d.Live())
}

func TestStopForgetsBinding(t *testing.T) {
	ctx, d := newTestContext(Config{})

	vb := &VertexBuffer{}
	require.NoError(t, vb.Init(ctx))
	vb.Bind()
	vb.Stop()
	require.NoError(t, vb.Init(ctx))
	vb.Bind()
	assert.Equal(t, 2, d.Calls("BindBuffer"))
}

func TestAllocationFailure(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.Fail["GenVertexArray"] = true

	va := &VertexArray{}
	err := va.Init(ctx)
	assert.ErrorIs(t, err, core.ErrAllocationFailed)
	assert.False(t, va.IsValid())
}

func TestBindUninitializedPanics(t *testing.T) {
	ctx, _ := newTestContext(Config{})
	vb := &VertexBuffer{ctx: ctx}
	assert.Panics(t, func() { vb.Bind() })
}

func TestMoveKeepsBinding(t *testing.T) {
	ctx, d := newTestContext(Config{})

	vb := &VertexBuffer{}
	require.NoError(t, vb.Init(ctx))
	vb.LoadVertices([]float32{0, 1, 2}, gl.StaticDraw)
	id := vb.ID()

	moved := vb.Move()
	assert.False(t, vb.IsValid())
	assert.Equal(t, id, moved.ID())
	assert.Equal(t, 12, moved.Size())

	moved.Bind()
	assert.Equal(t, 1, d.Calls("BindBuffer"))

	vb.Stop()
	assert.Equal(t, 1, d.Live())
}

func TestVertexLayout(t *testing.T) {
	ctx, d := newTestContext(Config{})

	vb := &VertexBuffer{}
	require.NoError(t, vb.Init(ctx))
	va := &VertexArray{}
	require.NoError(t, va.Init(ctx))

	va.SetLayout(vb, []Attribute{{Index: 0, Size: 3}, {Index: 1, Size: 2}})
	assert.Equal(t, int32(20), va.Stride())
	assert.Equal(t, 2, d.Calls("VertexAttribPointer"))
}

func newTexture(t *testing.T, ctx *Context) *Texture {
	tex := &Texture{}
	require.NoError(t, tex.Init(ctx))
	return tex
}

func TestTextureUnitsExhausted(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.TextureUnits = 2

	a, b, c := newTexture(t, ctx), newTexture(t, ctx), newTexture(t, ctx)

	unit, err := a.Bind(true)
	require.NoError(t, err)
	assert.Equal(t, 0, unit)
	unit, err = b.Bind(true)
	require.NoError(t, err)
	assert.Equal(t, 1, unit)

	_, err = c.Bind(true)
	assert.ErrorIs(t, err, ErrOutOfTextureUnits)
	assert.True(t, core.IsRecoverable(err))

	a.Unlock()
	assert.False(t, ctx.TextureUnitLocked(0))
	unit, err = c.Bind(false)
	require.NoError(t, err)
	assert.Equal(t, 0, unit)
	assert.Equal(t, -1, a.Unit())
	assert.Equal(t, c.ID(), d.BoundTexture(0))

	// c is unlocked, so a takes the unit back
	unit, err = a.Bind(false)
	require.NoError(t, err)
	assert.Equal(t, 0, unit)
	assert.Equal(t, -1, c.Unit())
}

func TestTextureRebindIsCached(t *testing.T) {
	ctx, d := newTestContext(Config{})
	tex := newTexture(t, ctx)

	_, err := tex.Bind(false)
	require.NoError(t, err)
	unit, err := tex.Bind(true)
	require.NoError(t, err)
	assert.Equal(t, 0, unit)
	assert.True(t, ctx.TextureUnitLocked(0))
	assert.Equal(t, 1, d.Calls("BindTexture"))
	assert.Equal(t, 1, d.Calls("ActiveTexture"))

	unit, err = tex.Bind(false)
	require.NoError(t, err)
	assert.Equal(t, 0, unit)
	assert.False(t, ctx.TextureUnitLocked(0))
}

func TestTextureStopReleasesUnit(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.TextureUnits = 1

	a, b := newTexture(t, ctx), newTexture(t, ctx)
	_, err := a.Bind(true)
	require.NoError(t, err)
	a.Stop()

	unit, err := b.Bind(true)
	require.NoError(t, err)
	assert.Equal(t, 0, unit)
}

func TestTextureUpload(t *testing.T) {
	ctx, d := newTestContext(Config{})
	tex := newTexture(t, ctx)

	err := tex.UploadImage(2, 2, gl.RGBA, make([]byte, 16), gl.TextureParams{Mipmaps: true})
	require.NoError(t, err)
	assert.Equal(t, 2, tex.Width())
	assert.Equal(t, 1, d.Calls("GenerateMipmap"))

	err = tex.UploadImage(2, 2, gl.RGB, make([]byte, 16), gl.TextureParams{})
	assert.ErrorIs(t, err, core.ErrUnsupported)
}

func newShader(t *testing.T, ctx *Context) *Shader {
	s := &Shader{}
	require.NoError(t, s.Init(ctx, "test", "vs", "fs"))
	return s
}

func TestShaderLifecycle(t *testing.T) {
	ctx, d := newTestContext(Config{})
	s := newShader(t, ctx)

	// stage objects are released once linked
	assert.Equal(t, 1, d.Live())
	s.Bind()
	s.Bind()
	assert.Equal(t, 1, d.Calls("UseProgram"))

	s.Stop()
	assert.Equal(t, 0, d.Live())
}

func TestShaderCompileFailure(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.FailCompile = true

	s := &Shader{}
	err := s.Init(ctx, "broken", "vs", "fs")
	assert.ErrorIs(t, err, ErrShaderCompile)
	assert.ErrorIs(t, err, gltest.ErrCompile)
	assert.False(t, s.IsValid())
	assert.Equal(t, 0, d.Live())
}

func TestShaderUniforms(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.Uniforms = []string{"u_model", "u_color", "u_texture"}
	s := newShader(t, ctx)

	model := math.NewMat4Identity()
	require.NoError(t, s.SetUniform("u_model", model))
	require.NoError(t, s.SetUniform("u_model", model))
	assert.Equal(t, model.Data, d.UniformValue(0))
	assert.Equal(t, 1, d.Calls("GetUniformLocation"))

	require.NoError(t, s.SetUniform("u_color", math.NewVec4(1, 0, 0, 1)))
	assert.Equal(t, [4]float32{1, 0, 0, 1}, d.UniformValue(1))

	assert.ErrorIs(t, s.SetUniform("u_missing", float32(1)), ErrUniformNotFound)
	assert.ErrorIs(t, s.SetUniform("u_color", "red"), ErrUnsupportedUniform)
	assert.True(t, s.HasUniform("u_texture"))
	assert.False(t, s.HasUniform("u_missing"))

	tex := newTexture(t, ctx)
	unit, err := s.SetTexture("u_texture", tex, false)
	require.NoError(t, err)
	assert.Equal(t, int32(unit), d.UniformValue(2))

	_, err = s.SetTexture("u_missing", tex, true)
	assert.ErrorIs(t, err, ErrUniformNotFound)
	assert.False(t, ctx.TextureUnitLocked(tex.Unit()))
}

func TestFrameBufferAttachments(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.ColorAttachments = 1

	first := &FrameBuffer{}
	require.NoError(t, first.Init(ctx, 64, 32))
	assert.Equal(t, 0, first.Attachment())
	assert.Equal(t, 64, first.Texture().Width())

	second := &FrameBuffer{}
	err := second.Init(ctx, 64, 32)
	assert.ErrorIs(t, err, ErrOutOfColorAttachments)

	first.Stop()
	assert.Equal(t, 0, d.Live())
	require.NoError(t, second.Init(ctx, 64, 32))
}

func TestFrameBufferIncomplete(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.ColorAttachments = 1
	d.FramebufferErr = gl.ErrIncompleteFramebuffer

	fb := &FrameBuffer{}
	err := fb.Init(ctx, 16, 16)
	assert.ErrorIs(t, err, gl.ErrIncompleteFramebuffer)
	assert.False(t, fb.IsValid())
	assert.Equal(t, 0, d.Live())

	d.FramebufferErr = nil
	require.NoError(t, fb.Init(ctx, 16, 16))
}

func newQuad(t *testing.T, ctx *Context) *VertexArray {
	vb := &VertexBuffer{}
	require.NoError(t, vb.Init(ctx))
	vb.LoadVertices([]float32{0, 0, 1, 0, 1, 1}, gl.StaticDraw)
	ib := &IndexBuffer{}
	require.NoError(t, ib.Init(ctx))
	ib.LoadIndices([]uint32{0, 1, 2}, gl.StaticDraw)

	va := &VertexArray{}
	require.NoError(t, va.Init(ctx))
	va.SetLayout(vb, []Attribute{{Index: 0, Size: 2}})
	va.SetIndexBuffer(ib)
	return va
}

func TestDrawTextured(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.TextureUnits = 2
	d.Uniforms = []string{"u_albedo", "u_normal"}

	s := newShader(t, ctx)
	va := newQuad(t, ctx)
	albedo, normal := newTexture(t, ctx), newTexture(t, ctx)

	err := ctx.DrawTextured(s, va, []TextureBinding{
		{Uniform: "u_albedo", Texture: albedo},
		{Uniform: "u_normal", Texture: normal},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Calls("DrawElements"))
	assert.NotEqual(t, albedo.Unit(), normal.Unit())
	assert.False(t, ctx.TextureUnitLocked(0))
	assert.False(t, ctx.TextureUnitLocked(1))
}

func TestDrawTexturedOutOfUnits(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.TextureUnits = 1
	d.Uniforms = []string{"u_albedo", "u_normal"}

	s := newShader(t, ctx)
	va := newQuad(t, ctx)

	err := ctx.DrawTextured(s, va, []TextureBinding{
		{Uniform: "u_albedo", Texture: newTexture(t, ctx)},
		{Uniform: "u_normal", Texture: newTexture(t, ctx)},
	})
	assert.ErrorIs(t, err, ErrOutOfTextureUnits)
	assert.Equal(t, 0, d.Calls("DrawElements"))
	assert.False(t, ctx.TextureUnitLocked(0))
}

func TestDrawTexturedMissingSamplerUnlocks(t *testing.T) {
	ctx, d := newTestContext(Config{})
	d.TextureUnits = 1
	d.Uniforms = []string{"u_albedo"}

	s := newShader(t, ctx)
	va := newQuad(t, ctx)

	err := ctx.DrawTextured(s, va, []TextureBinding{
		{Uniform: "u_missing", Texture: newTexture(t, ctx)},
	})
	assert.ErrorIs(t, err, ErrUniformNotFound)
	assert.Equal(t, 0, d.Calls("DrawElements"))
	assert.False(t, ctx.TextureUnitLocked(0))

	// the unit is usable by the next draw
	err = ctx.DrawTextured(s, va, []TextureBinding{
		{Uniform: "u_albedo", Texture: newTexture(t, ctx)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Calls("DrawElements"))
}

func TestVertexArrayBindRestoresIndexBuffer(t *testing.T) {
	ctx, d := newTestContext(Config{})

	ib1, ib2 := &IndexBuffer{}, &IndexBuffer{}
	require.NoError(t, ib1.Init(ctx))
	require.NoError(t, ib2.Init(ctx))
	va1, va2 := &VertexArray{}, &VertexArray{}
	require.NoError(t, va1.Init(ctx))
	require.NoError(t, va2.Init(ctx))

	va1.SetIndexBuffer(ib1)
	va2.SetIndexBuffer(ib2)
	va1.Bind()
	assert.Same(t, ib1, ctx.boundIndexBuffer)

	d.ResetCalls()
	ib2.LoadIndices([]uint32{0, 1, 2}, gl.StaticDraw)
	assert.Equal(t, 1, d.Calls("BindBuffer"))
	assert.Equal(t, 1, d.Calls("BindVertexArray"))
	assert.Nil(t, ctx.boundVertexArray)
	assert.Equal(t, 3, ib2.Count())

	// va1 still owns ib1 after the upload
	va1.Bind()
	assert.Same(t, ib1, ctx.boundIndexBuffer)
	assert.Same(t, ib1, va1.IndexBuffer())

	va1.Unbind()
	assert.Nil(t, ctx.boundIndexBuffer)
}
