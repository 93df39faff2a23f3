package gpu

import (
	"fmt"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

// Texture is a 2D texture that occupies one hardware texture unit while bound.
type Texture struct {
	_ noCopy

	ctx    *Context
	id     uint32
	unit   int
	width  int
	height int
	format gl.PixelFormat
}

func (t *Texture) Init(ctx *Context) error {
	core.Assert(!t.IsValid(), "texture %d initialized twice", t.id)
	id := ctx.driver.GenTexture()
	if id == gl.InvalidID {
		return fmt.Errorf("failed to create texture: %w", core.ErrAllocationFailed)
	}
	t.ctx = ctx
	t.id = id
	t.unit = -1
	t.width = 0
	t.height = 0
	return nil
}

func (t *Texture) IsValid() bool {
	return t.id != gl.InvalidID
}

func (t *Texture) ID() uint32 {
	return t.id
}

func (t *Texture) Width() int {
	return t.width
}

func (t *Texture) Height() int {
	return t.height
}

func (t *Texture) Format() gl.PixelFormat {
	return t.format
}

// Unit returns the unit the texture was last assigned, or -1.
func (t *Texture) Unit() int {
	if t.ctx == nil || !t.holdsUnit() {
		return -1
	}
	return t.unit
}

func (t *Texture) holdsUnit() bool {
	units := t.ctx.units()
	return t.unit >= 0 && t.unit < len(units) && units[t.unit].texture == t
}

// Bind makes the texture resident on a texture unit and returns the unit.
// A locked unit cannot be taken by another texture until Unlock or a
// Bind(false) on the same texture. When every unit is locked the bind fails
// with ErrOutOfTextureUnits.
func (t *Texture) Bind(locked bool) (int, error) {
	core.Assert(t.IsValid(), "binding an uninitialized texture")

	units := t.ctx.units()
	if t.holdsUnit() {
		units[t.unit].locked = locked
		return t.unit, nil
	}

	for i := range units {
		u := &units[i]
		if u.texture != nil && u.locked {
			continue
		}
		u.texture = t
		u.locked = locked
		t.unit = i
		t.ctx.activate(i)
		t.ctx.driver.BindTexture(t.id)
		return i, nil
	}
	return -1, ErrOutOfTextureUnits
}

// Unlock releases the lock on the texture's unit so other textures may evict it.
func (t *Texture) Unlock() {
	if t.ctx != nil && t.holdsUnit() {
		t.ctx.textureUnits[t.unit].locked = false
	}
}

// UploadImage replaces the texture storage with pixels. A nil pixel slice
// allocates uninitialized storage, as used by framebuffer attachments.
func (t *Texture) UploadImage(width, height int, format gl.PixelFormat, pixels []byte, params gl.TextureParams) error {
	if pixels != nil && len(pixels) != width*height*format.Channels() {
		return fmt.Errorf("texture upload: got %d bytes for %dx%d with %d channels: %w",
			len(pixels), width, height, format.Channels(), core.ErrUnsupported)
	}
	wasLocked := t.ctx != nil && t.holdsUnit() && t.ctx.textureUnits[t.unit].locked
	unit, err := t.Bind(wasLocked)
	if err != nil {
		return err
	}
	t.ctx.activate(unit)
	d := t.ctx.driver
	d.TexParameters(params)
	d.TexImage2D(width, height, format, pixels)
	if params.Mipmaps && pixels != nil {
		d.GenerateMipmap()
	}
	t.width = width
	t.height = height
	t.format = format
	return t.ctx.CheckError("texture upload")
}

// Stop releases the native texture and its unit. Safe to call more than once.
func (t *Texture) Stop() {
	if !t.IsValid() {
		return
	}
	if t.holdsUnit() {
		t.ctx.textureUnits[t.unit] = textureUnit{}
	}
	t.ctx.driver.DeleteTexture(t.id)
	t.id = gl.InvalidID
	t.unit = -1
}

func (t *Texture) Move() *Texture {
	out := &Texture{ctx: t.ctx, id: t.id, unit: t.unit, width: t.width, height: t.height, format: t.format}
	if t.ctx != nil && t.holdsUnit() {
		t.ctx.textureUnits[t.unit].texture = out
	}
	t.id = gl.InvalidID
	t.unit = -1
	return out
}
