package gpu

import (
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
)

var ErrShaderCompile = errors.New("shader compilation failed")

// Shader is a linked vertex+fragment program with a cache of uniform
// locations keyed by the hash of the uniform name.
type Shader struct {
	_ noCopy

	ctx      *Context
	id       uint32
	name     string
	uniforms map[uint64]int32
}

func uniformKey(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// Init compiles and links the program. The intermediate shader objects are
// deleted once linked.
func (s *Shader) Init(ctx *Context, name, vertexSource, fragmentSource string) error {
	core.Assert(!s.IsValid(), "shader '%s' initialized twice", s.name)
	d := ctx.driver

	vs, err := compileStage(d, gl.VertexShader, vertexSource)
	if err != nil {
		return fmt.Errorf("shader '%s': %w", name, err)
	}
	defer d.DeleteShader(vs)

	fs, err := compileStage(d, gl.FragmentShader, fragmentSource)
	if err != nil {
		return fmt.Errorf("shader '%s': %w", name, err)
	}
	defer d.DeleteShader(fs)

	program := d.CreateProgram()
	if program == gl.InvalidID {
		return fmt.Errorf("shader '%s': failed to create program: %w", name, core.ErrAllocationFailed)
	}
	d.AttachShader(program, vs)
	d.AttachShader(program, fs)
	if err := d.LinkProgram(program); err != nil {
		d.DeleteProgram(program)
		return fmt.Errorf("shader '%s': %w: %w", name, ErrShaderCompile, err)
	}

	s.ctx = ctx
	s.id = program
	s.name = name
	s.uniforms = make(map[uint64]int32)
	return nil
}

func compileStage(d gl.Driver, stage gl.ShaderStage, source string) (uint32, error) {
	id := d.CreateShader(stage)
	if id == gl.InvalidID {
		return gl.InvalidID, fmt.Errorf("failed to create %s shader: %w", stage, core.ErrAllocationFailed)
	}
	d.ShaderSource(id, source)
	if err := d.CompileShader(id); err != nil {
		d.DeleteShader(id)
		return gl.InvalidID, fmt.Errorf("%s stage: %w: %w", stage, ErrShaderCompile, err)
	}
	return id, nil
}

func (s *Shader) IsValid() bool {
	return s.id != gl.InvalidID
}

func (s *Shader) ID() uint32 {
	return s.id
}

func (s *Shader) Name() string {
	return s.name
}

func (s *Shader) Bind() {
	core.Assert(s.IsValid(), "binding an uninitialized shader")
	if s.ctx.boundShader == s {
		return
	}
	s.ctx.driver.UseProgram(s.id)
	s.ctx.boundShader = s
}

func (s *Shader) Unbind() {
	if s.ctx == nil || s.ctx.config.DisableUnbind {
		return
	}
	s.ctx.driver.UseProgram(gl.InvalidID)
	s.ctx.boundShader = nil
}

// location looks the uniform up once and caches the answer, including misses.
func (s *Shader) location(name string) (int32, error) {
	key := uniformKey(name)
	loc, ok := s.uniforms[key]
	if !ok {
		loc = s.ctx.driver.GetUniformLocation(s.id, name)
		s.uniforms[key] = loc
	}
	if loc < 0 {
		return -1, fmt.Errorf("shader '%s': %w: '%s'", s.name, ErrUniformNotFound, name)
	}
	return loc, nil
}

// HasUniform reports whether the program has an active uniform with that name.
func (s *Shader) HasUniform(name string) bool {
	_, err := s.location(name)
	return err == nil
}

// SetUniform binds the shader and writes value. Supported values are int,
// int32, float32, math.Vec2, math.Vec3, math.Vec4 and math.Mat4.
func (s *Shader) SetUniform(name string, value interface{}) error {
	s.Bind()
	loc, err := s.location(name)
	if err != nil {
		return err
	}
	d := s.ctx.driver
	switch v := value.(type) {
	case int:
		d.Uniform1i(loc, int32(v))
	case int32:
		d.Uniform1i(loc, v)
	case float32:
		d.Uniform1f(loc, v)
	case math.Vec2:
		d.Uniform2f(loc, v.X, v.Y)
	case math.Vec3:
		d.Uniform3f(loc, v.X, v.Y, v.Z)
	case math.Vec4:
		d.Uniform4f(loc, v.X, v.Y, v.Z, v.W)
	case math.Mat4:
		d.UniformMatrix4fv(loc, v.Data)
	default:
		return fmt.Errorf("shader '%s' uniform '%s': %w: %T", s.name, name, ErrUnsupportedUniform, value)
	}
	return nil
}

// SetTexture binds the texture to a unit and points the sampler uniform at it.
func (s *Shader) SetTexture(name string, texture *Texture, locked bool) (int, error) {
	unit, err := texture.Bind(locked)
	if err != nil {
		return -1, err
	}
	if err := s.SetUniform(name, int32(unit)); err != nil {
		if locked {
			texture.Unlock()
		}
		return -1, err
	}
	return unit, nil
}

func (s *Shader) Stop() {
	if !s.IsValid() {
		return
	}
	if s.ctx.boundShader == s {
		s.ctx.boundShader = nil
	}
	s.ctx.driver.DeleteProgram(s.id)
	s.id = gl.InvalidID
	s.uniforms = nil
}

func (s *Shader) Move() *Shader {
	out := &Shader{ctx: s.ctx, id: s.id, name: s.name, uniforms: s.uniforms}
	if s.ctx != nil && s.ctx.boundShader == s {
		s.ctx.boundShader = out
	}
	s.id = gl.InvalidID
	s.uniforms = nil
	return out
}
