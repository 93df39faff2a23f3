package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
)

const quadOBJ = `# quad
o quad
v -1 0 -1
v 1 0 -1
v 1 0 1
v -1 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 1 0
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestDecodeModel(t *testing.T) {
	mesh, err := DecodeModel([]byte(quadOBJ), ".obj")
	require.NoError(t, err)

	assert.Len(t, mesh.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, math.NewVec3(0, 1, 0), mesh.Normals[2])
	assert.Equal(t, math.NewVec2(1, 1), mesh.UVs[2])
	assert.Equal(t, math.NewVec3(-1, 0, -1), mesh.Extents.Min)
	assert.Equal(t, math.NewVec3(1, 0, 1), mesh.Extents.Max)
	assert.Len(t, mesh.Interleaved(), 4*VertexStride)
}

func TestDecodeModelSharesVertices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nf 1 2 3\nf -3 -1 -2\n"
	mesh, err := DecodeModel([]byte(src), "obj")
	require.NoError(t, err)
	assert.Len(t, mesh.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2, 1, 3, 2}, mesh.Indices)
}

func TestDecodeModelRejectsMultipleMeshes(t *testing.T) {
	src := quadOBJ + "o second\nf 1 2 3\n"
	_, err := DecodeModel([]byte(src), ".obj")
	assert.ErrorIs(t, err, ErrMultipleMeshes)
	assert.True(t, core.IsRecoverable(err))

	_, err = DecodeModel([]byte(quadOBJ), ".fbx")
	assert.ErrorIs(t, err, ErrUnsupportedModelFormat)

	_, err = DecodeModel([]byte("v 0 0 0\nf 1 2 3\n"), ".obj")
	assert.Error(t, err)
}

func writeWAV(t *testing.T, path string, frames, channels, rate int) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: channels, Precision: 2}
	tone := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{0.5, -0.5}
		}
		return len(samples), true
	})
	require.NoError(t, wav.Encode(f, beep.Take(frames, tone), format))
}

func TestDecodeSound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 22050, 2, 22050)

	res, err := (&SoundLoader{}).Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "tone", res.Name)

	sound, ok := res.Data.(*audio.Sound)
	require.True(t, ok)
	assert.Equal(t, 2, sound.Channels)
	assert.Equal(t, 22050, sound.SampleRate)
	assert.Equal(t, 22050, sound.Frames())

	d, err := sound.Duration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	// left channel at half scale
	left := int16(uint16(sound.Samples[0]) | uint16(sound.Samples[1])<<8)
	assert.InDelta(t, 16383, int(left), 2)

	_, err = DecodeSound(bytes.NewReader([]byte("RIFF")))
	assert.Error(t, err)
}

func TestDecodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	decoded, err := DecodeImage(buf.Bytes(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Width)
	assert.Len(t, decoded.Pixels, 16)
	assert.Equal(t, []byte{255, 0, 0, 255}, decoded.Pixels[0:4])

	flipped, err := DecodeImage(buf.Bytes(), true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255, 255}, flipped.Pixels[0:4])

	_, err = DecodeImage([]byte("not an image"), false)
	assert.Error(t, err)
}

func TestRasterizeFont(t *testing.T) {
	fd, err := RasterizeFont(goregular.TTF, "", SystemFontParams{Size: 24, Charset: "AB j", AtlasWidth: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, fd.AtlasWidth)
	assert.Len(t, fd.Atlas, fd.AtlasWidth*fd.AtlasHeight)
	assert.Equal(t, 0, fd.AtlasHeight&(fd.AtlasHeight-1), "atlas height %d is a power of two", fd.AtlasHeight)
	assert.Greater(t, fd.LineHeight, 0)

	a, ok := fd.Glyph('A')
	require.True(t, ok)
	assert.Greater(t, a.Width, 0)
	assert.Greater(t, a.XAdvance, 0)
	assert.LessOrEqual(t, a.X+a.Width, fd.AtlasWidth)
	assert.LessOrEqual(t, a.Y+a.Height, fd.AtlasHeight)

	b, ok := fd.Glyph('B')
	require.True(t, ok)
	overlapX := a.X < b.X+b.Width && b.X < a.X+a.Width
	overlapY := a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
	assert.False(t, overlapX && overlapY, "glyphs overlap in the atlas")

	// j descends below the baseline
	j, ok := fd.Glyph('j')
	require.True(t, ok)
	assert.Greater(t, j.YOffset+j.Height, fd.Baseline)

	_, err = RasterizeFont(goregular.TTF, "No Such Face", SystemFontParams{Size: 12})
	assert.ErrorIs(t, err, ErrFaceNotFound)
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "flat")
	require.NoError(t, os.WriteFile(base+".vert", []byte("#version 330 core\nvoid main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(base+".frag", []byte("#version 330 core\nout vec4 c;\nvoid main() {}\n"), 0o644))

	res, err := (&ShaderLoader{}).Load(base+".frag", ShaderParams{Target: ShaderTargetWeb})
	require.NoError(t, err)
	src := res.Data.(*ShaderSource)
	assert.Equal(t, "flat", src.Name)
	assert.Equal(t, "#version 300 es\nprecision highp float;\nvoid main() {}", src.Vertex)

	desktop, err := LoadShaderSource(base, ShaderTargetDesktop)
	require.NoError(t, err)
	assert.Contains(t, desktop.Vertex, "#version 330 core")

	_, err = (&ShaderLoader{}).Load(base+".vert", 42)
	assert.Error(t, err)
}
