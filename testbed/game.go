package testbed

import (
	"errors"
	"runtime"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/assets"
	"github.com/spaghettifunk/ember/engine/assets/loaders"
	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/ecs"
	"github.com/spaghettifunk/ember/engine/math"
	"github.com/spaghettifunk/ember/engine/renderer/gl"
	"github.com/spaghettifunk/ember/engine/renderer/gpu"
	"github.com/spaghettifunk/ember/engine/systems"
)

const (
	cameraSpeed = 3.0
	turnSpeed   = 1.5
)

type Transform struct {
	Position math.Vec3
	Angle    float32
	Scale    float32
}

func (t *Transform) Matrix() math.Mat4 {
	return math.NewMat4Translation(t.Position).
		Mul(math.NewMat4EulerY(t.Angle)).
		Mul(math.NewMat4Scale(math.NewVec3(t.Scale, t.Scale, t.Scale)))
}

type Spin struct {
	// radians per second
	Speed float32
}

type Renderable struct {
	Tint math.Vec4
}

// Emitter plays the chime from its entity's position.
type Emitter struct {
	source  systems.SourceHandle
	playing bool
}

// TestGame spins a few textured cubes. Space plays a positioned chime from
// the emitting cube, WASD moves the camera and listener, the arrow keys turn
// it, Escape quits.
type TestGame struct {
	shader   systems.Handle[gpu.Shader]
	vertices systems.Handle[gpu.VertexBuffer]
	indices  systems.Handle[gpu.IndexBuffer]
	cube     systems.Handle[gpu.VertexArray]
	diffuse  systems.Handle[gpu.Texture]
	detail   systems.Handle[gpu.Texture]

	chime    systems.BufferHandle
	hasSound bool

	camera     *Camera
	projection math.Mat4
}

func NewTestGame() *TestGame {
	return &TestGame{
		camera:     NewCamera(math.NewVec3(0, 1, 6)),
		projection: math.NewMat4Identity(),
	}
}

func shaderTarget() loaders.ShaderTarget {
	if runtime.GOOS == "js" {
		return loaders.ShaderTargetWeb
	}
	return loaders.ShaderTargetDesktop
}

func (g *TestGame) Initialize(ctx *engine.Context) error {
	core.LogInfo("initializing testbed...")
	rm := ctx.Resources()
	gctx := ctx.GPU()

	if err := g.createMesh(rm, gctx); err != nil {
		return err
	}

	target := shaderTarget()
	var err error
	g.shader, _, err = systems.CreateResource(rm, func(s *gpu.Shader) error {
		return s.Init(gctx, "cube", loaders.Retarget(cubeVertexShader, target), loaders.Retarget(cubeFragmentShader, target))
	})
	if err != nil {
		return err
	}

	params := gl.TextureParams{Linear: true, Repeat: true, Mipmaps: true}
	g.diffuse, _, err = systems.CreateResource(rm, func(t *gpu.Texture) error {
		if err := t.Init(gctx); err != nil {
			return err
		}
		return t.UploadImage(64, 64, gl.RGBA, checkerboard(64, 8, [4]byte{230, 120, 40, 255}, [4]byte{40, 40, 48, 255}), params)
	})
	if err != nil {
		return err
	}
	g.detail, _, err = systems.CreateResource(rm, func(t *gpu.Texture) error {
		if err := t.Init(gctx); err != nil {
			return err
		}
		return t.UploadImage(32, 32, gl.RGBA, stripes(32, 8), params)
	})
	if err != nil {
		return err
	}

	sound := chime(44100, 660, 0.4)
	if am := ctx.Assets(); am != nil {
		sound = g.loadAssets(ctx, am, sound)
	}
	if audioManager := ctx.Audio(); audioManager != nil {
		g.chime, err = audioManager.LoadSoundIntoBuffer(sound)
		if err != nil {
			if !core.IsRecoverable(err) {
				return err
			}
			core.LogWarn("chime disabled: %s", err)
		} else {
			g.hasSound = true
		}
	}

	g.spawn(ctx.Registry())
	gctx.Enable(gl.DepthTest)
	return nil
}

func (g *TestGame) createMesh(rm *systems.ResourceManager, gctx *gpu.Context) error {
	mesh, err := loaders.DecodeModel([]byte(cubeOBJ), ".obj")
	if err != nil {
		return err
	}

	var vb *gpu.VertexBuffer
	g.vertices, vb, err = systems.CreateResource(rm, func(b *gpu.VertexBuffer) error {
		if err := b.Init(gctx); err != nil {
			return err
		}
		b.LoadVertices(mesh.Interleaved(), gl.StaticDraw)
		return nil
	})
	if err != nil {
		return err
	}

	var ib *gpu.IndexBuffer
	g.indices, ib, err = systems.CreateResource(rm, func(b *gpu.IndexBuffer) error {
		if err := b.Init(gctx); err != nil {
			return err
		}
		b.LoadIndices(mesh.Indices, gl.StaticDraw)
		return nil
	})
	if err != nil {
		return err
	}

	g.cube, _, err = systems.CreateResource(rm, func(va *gpu.VertexArray) error {
		if err := va.Init(gctx); err != nil {
			return err
		}
		va.SetLayout(vb, []gpu.Attribute{
			{Index: 0, Size: 3},
			{Index: 1, Size: 3},
			{Index: 2, Size: 2},
		})
		va.SetIndexBuffer(ib)
		return nil
	})
	return err
}

// loadAssets decodes the images and sounds of the asset directory in
// parallel. The first image replaces the diffuse texture and the first
// sound replaces the chime.
func (g *TestGame) loadAssets(ctx *engine.Context, am *assets.AssetManager, sound *audio.Sound) *audio.Sound {
	var requests []assets.LoadRequest
	for _, info := range am.Assets(assets.AssetTypeImage) {
		requests = append(requests, assets.LoadRequest{Name: info.Name, Params: loaders.ImageParams{FlipY: true}})
	}
	for _, info := range am.Assets(assets.AssetTypeSound) {
		requests = append(requests, assets.LoadRequest{Name: info.Name})
	}
	if len(requests) == 0 {
		return sound
	}

	resources, err := am.LoadAll(ctx.Scheduler(), requests)
	if err != nil {
		core.LogWarn("some assets failed to load: %s", err)
	}

	imageDone, soundDone := false, false
	for _, res := range resources {
		if res == nil {
			continue
		}
		switch data := res.Data.(type) {
		case *loaders.ImageData:
			if imageDone {
				continue
			}
			tex, err := systems.GetResource(ctx.Resources(), g.diffuse)
			if err == nil {
				err = tex.UploadImage(data.Width, data.Height, data.Format, data.Pixels, gl.TextureParams{Linear: true, Repeat: true, Mipmaps: true})
			}
			if err != nil {
				core.LogWarn("cannot use image '%s': %s", res.Name, err)
				continue
			}
			imageDone = true
		case *audio.Sound:
			if soundDone {
				continue
			}
			sound, soundDone = data, true
		}
	}
	core.LogInfo("loaded %d assets", len(resources))
	return sound
}

func (g *TestGame) spawn(r *ecs.Registry) {
	tints := []math.Vec4{
		math.NewVec4(1, 1, 1, 1),
		math.NewVec4(0.6, 0.9, 1, 1),
		math.NewVec4(1, 0.7, 0.7, 1),
	}
	for i, tint := range tints {
		e := r.CreateEntity()
		ecs.Attach(r, e, Transform{
			Position: math.NewVec3(float32(i-1)*2, 0, 0),
			Scale:    1 - 0.2*float32(i),
		})
		ecs.Attach(r, e, Spin{Speed: 0.5 + float32(i)*0.4})
		ecs.Attach(r, e, Renderable{Tint: tint})
		if i == 1 {
			ecs.Attach(r, e, Emitter{})
		}
	}
}

func (g *TestGame) OnResize(ctx *engine.Context, width, height int) error {
	g.projection = math.NewMat4Perspective(math.DegToRad(45), float32(width)/float32(height), 0.1, 100)
	return nil
}

func (g *TestGame) Update(ctx *engine.Context, deltaTime float64) error {
	input := ctx.Input()
	if input.Key(core.KEY_ESCAPE) == core.StatePressed {
		ctx.Quit()
		return nil
	}

	dt := float32(deltaTime)
	if input.IsKeyDown(core.KEY_W) {
		g.camera.MoveForward(cameraSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_S) {
		g.camera.MoveForward(-cameraSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_A) {
		g.camera.MoveRight(-cameraSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_D) {
		g.camera.MoveRight(cameraSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_LEFT) {
		g.camera.Yaw(turnSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_RIGHT) {
		g.camera.Yaw(-turnSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_UP) {
		g.camera.Pitch(turnSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_DOWN) {
		g.camera.Pitch(-turnSpeed * dt)
	}

	r := ctx.Registry()
	ecs.Each(r, func(e ecs.Entity, s *Spin) {
		if t, ok := ecs.Get[Transform](r, e); ok {
			t.Angle += s.Speed * dt
		}
	})

	audioManager := ctx.Audio()
	if audioManager == nil || !g.hasSound {
		return nil
	}
	if err := audioManager.SetListenerProperties(systems.ListenerProperties{
		Position: g.camera.Position(),
		At:       g.camera.Forward(),
		Up:       math.NewVec3Up(),
		Gain:     1,
	}); err != nil {
		return err
	}

	play := input.Key(core.KEY_SPACE) == core.StatePressed
	var playErr error
	ecs.Each(r, func(e ecs.Entity, em *Emitter) {
		t, ok := ecs.Get[Transform](r, e)
		if !ok {
			return
		}
		if play {
			source, err := audioManager.PlaySound(g.chime, t.Position, math.NewVec3Zero())
			if errors.Is(err, systems.ErrNoFreeSource) {
				core.LogWarn("all voices busy, chime dropped")
				return
			}
			if err != nil {
				playErr = err
				return
			}
			em.source, em.playing = source, true
			return
		}
		if em.playing {
			if !audioManager.IsPlaying(em.source) {
				em.playing = false
				return
			}
			if err := audioManager.SetSourceMotion(em.source, t.Position, math.NewVec3Zero()); err != nil {
				playErr = err
			}
		}
	})
	return playErr
}

func (g *TestGame) Render(ctx *engine.Context, deltaTime float64) error {
	gctx := ctx.GPU()
	gctx.Clear(0.08, 0.08, 0.1, 1)

	rm := ctx.Resources()
	shader, err := systems.GetResource(rm, g.shader)
	if err != nil {
		return err
	}
	cube, err := systems.GetResource(rm, g.cube)
	if err != nil {
		return err
	}
	textures, err := systems.GetResources(rm, g.diffuse, g.detail)
	if err != nil {
		return err
	}
	bindings := []gpu.TextureBinding{
		{Uniform: "u_diffuse", Texture: textures[0]},
		{Uniform: "u_detail", Texture: textures[1]},
	}

	shader.Bind()
	if err := shader.SetUniform("u_projection", g.projection); err != nil {
		return err
	}
	if err := shader.SetUniform("u_view", g.camera.View()); err != nil {
		return err
	}

	r := ctx.Registry()
	var drawErr error
	ecs.Each(r, func(e ecs.Entity, rd *Renderable) {
		if drawErr != nil {
			return
		}
		t, ok := ecs.Get[Transform](r, e)
		if !ok {
			return
		}
		if drawErr = shader.SetUniform("u_model", t.Matrix()); drawErr != nil {
			return
		}
		if drawErr = shader.SetUniform("u_tint", rd.Tint); drawErr != nil {
			return
		}
		drawErr = gctx.DrawTextured(shader, cube, bindings)
	})
	return drawErr
}

func (g *TestGame) Shutdown(ctx *engine.Context) error {
	core.LogInfo("shutting down testbed...")
	rm := ctx.Resources()
	for _, err := range []error{
		systems.FreeResource(rm, g.cube),
		systems.FreeResource(rm, g.indices),
		systems.FreeResource(rm, g.vertices),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}
