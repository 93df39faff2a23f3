package gpu

import (
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

// FrameBuffer is an offscreen render target backed by one color texture.
type FrameBuffer struct {
	_ noCopy

	ctx        *Context
	id         uint32
	attachment int
	width      int
	height     int
	color      *Texture
}

// Init claims a color attachment slot and creates the backing texture.
func (fb *FrameBuffer) Init(ctx *Context, width, height int) error {
	core.Assert(!fb.IsValid(), "framebuffer %d initialized twice", fb.id)

	attachment, err := ctx.claimColorAttachment()
	if err != nil {
		return err
	}
	id := ctx.driver.GenFramebuffer()
	if id == gl.InvalidID {
		ctx.releaseColorAttachment(attachment)
		return fmt.Errorf("failed to create framebuffer: %w", core.ErrAllocationFailed)
	}
	fb.ctx = ctx
	fb.id = id
	fb.attachment = attachment
	fb.width = width
	fb.height = height

	fb.color = &Texture{}
	if err := fb.color.Init(ctx); err != nil {
		fb.Stop()
		return err
	}
	if err := fb.color.UploadImage(width, height, gl.RGBA, nil, gl.TextureParams{Linear: true}); err != nil {
		fb.Stop()
		return err
	}

	fb.Bind()
	ctx.driver.FramebufferTexture2D(attachment, fb.color.ID())
	if err := ctx.driver.CheckFramebufferStatus(); err != nil {
		fb.Stop()
		return fmt.Errorf("framebuffer %dx%d: %w", width, height, err)
	}
	fb.Unbind()
	return nil
}

func (fb *FrameBuffer) IsValid() bool {
	return fb.id != gl.InvalidID
}

func (fb *FrameBuffer) ID() uint32 {
	return fb.id
}

// Attachment returns the color attachment index claimed by this framebuffer.
func (fb *FrameBuffer) Attachment() int {
	return fb.attachment
}

func (fb *FrameBuffer) Width() int {
	return fb.width
}

func (fb *FrameBuffer) Height() int {
	return fb.height
}

// Texture returns the color texture rendered into.
func (fb *FrameBuffer) Texture() *Texture {
	return fb.color
}

// Bind makes the framebuffer the render target and sets the viewport to its size.
func (fb *FrameBuffer) Bind() {
	core.Assert(fb.IsValid(), "binding an uninitialized framebuffer")
	if fb.ctx.boundFrameBuffer == fb {
		return
	}
	fb.ctx.driver.BindFramebuffer(fb.id)
	fb.ctx.driver.Viewport(0, 0, int32(fb.width), int32(fb.height))
	fb.ctx.boundFrameBuffer = fb
}

// Unbind restores the default framebuffer. The caller restores the viewport.
func (fb *FrameBuffer) Unbind() {
	if fb.ctx == nil || fb.ctx.config.DisableUnbind {
		return
	}
	fb.ctx.driver.BindFramebuffer(gl.InvalidID)
	fb.ctx.boundFrameBuffer = nil
}

func (fb *FrameBuffer) Stop() {
	if !fb.IsValid() {
		return
	}
	if fb.ctx.boundFrameBuffer == fb {
		fb.ctx.boundFrameBuffer = nil
	}
	if fb.color != nil {
		fb.color.Stop()
		fb.color = nil
	}
	fb.ctx.releaseColorAttachment(fb.attachment)
	fb.ctx.driver.DeleteFramebuffer(fb.id)
	fb.id = gl.InvalidID
	fb.attachment = -1
}

func (fb *FrameBuffer) Move() *FrameBuffer {
	out := &FrameBuffer{ctx: fb.ctx, id: fb.id, attachment: fb.attachment, width: fb.width, height: fb.height, color: fb.color}
	if fb.ctx != nil && fb.ctx.boundFrameBuffer == fb {
		fb.ctx.boundFrameBuffer = out
	}
	fb.id = gl.InvalidID
	fb.attachment = -1
	fb.color = nil
	return out
}
