package gpu

import "fmt"

// TextureBinding pairs a sampler uniform with the texture it should read.
type TextureBinding struct {
	Uniform string
	Texture *Texture
}

// DrawTextured binds every texture locked for the duration of the draw call so
// none of them can evict another, then issues the draw and unlocks them.
// Running out of texture units is a hard error for the draw.
func (c *Context) DrawTextured(shader *Shader, va *VertexArray, bindings []TextureBinding) error {
	shader.Bind()
	bound := make([]*Texture, 0, len(bindings))
	defer func() {
		for _, t := range bound {
			t.Unlock()
		}
	}()

	for _, b := range bindings {
		unit, err := b.Texture.Bind(true)
		if err != nil {
			return fmt.Errorf("draw with shader '%s': %w", shader.Name(), err)
		}
		bound = append(bound, b.Texture)
		if err := shader.SetUniform(b.Uniform, int32(unit)); err != nil {
			return fmt.Errorf("draw with shader '%s': %w", shader.Name(), err)
		}
	}
	c.DrawElements(va)
	return c.CheckError("draw")
}
