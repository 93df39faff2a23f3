package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/gl/gltest"
	"github.com/spaghettifunk/ember/engine/renderer/gpu"
)

func newTestResourceManager() (*ResourceManager, *gltest.Driver) {
	d := gltest.NewDriver()
	return NewResourceManager(gpu.NewContext(d, gpu.Config{})), d
}

func createVertexBuffer(t *testing.T, rm *ResourceManager) Handle[gpu.VertexBuffer] {
	h, vb, err := CreateResource[gpu.VertexBuffer](rm, func(vb *gpu.VertexBuffer) error {
		return vb.Init(rm.Context())
	})
	require.NoError(t, err)
	require.True(t, vb.IsValid())
	return h
}

func TestHandleIsolation(t *testing.T) {
	a, _ := newTestResourceManager()
	b := NewResourceManager(a.Context())
	require.NotEqual(t, a.OwnerID(), b.OwnerID())

	h := createVertexBuffer(t, a)
	assert.Equal(t, a.OwnerID(), h.Owner())

	_, err := GetResource(a, h)
	assert.NoError(t, err)

	_, err = GetResource(b, h)
	assert.ErrorIs(t, err, ErrForeignHandle)
	assert.ErrorIs(t, FreeResource(b, h), ErrForeignHandle)
	assert.Panics(t, func() { MustGetResource(b, h) })
}

func TestZeroHandle(t *testing.T) {
	rm, _ := newTestResourceManager()
	var h Handle[gpu.Texture]
	assert.False(t, h.IsValid())
	_, err := GetResource(rm, h)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestFreeResource(t *testing.T) {
	rm, d := newTestResourceManager()
	first := createVertexBuffer(t, rm)
	second := createVertexBuffer(t, rm)
	assert.Equal(t, 2, Count[gpu.VertexBuffer](rm))
	assert.Equal(t, 0, Count[gpu.Texture](rm))

	require.NoError(t, FreeResource(rm, first))
	assert.Equal(t, 1, d.Live())
	assert.Equal(t, 1, Count[gpu.VertexBuffer](rm))

	_, err := GetResource(rm, first)
	assert.ErrorIs(t, err, ErrStaleHandle)
	assert.ErrorIs(t, FreeResource(rm, first), ErrStaleHandle)

	// slots are append-only, so a new resource never revives the old handle
	third := createVertexBuffer(t, rm)
	assert.NotEqual(t, first, third)
	_, err = GetResource(rm, first)
	assert.ErrorIs(t, err, ErrStaleHandle)

	resources, err := GetResources(rm, second, third)
	require.NoError(t, err)
	assert.Len(t, resources, 2)
	assert.NotEqual(t, resources[0].ID(), resources[1].ID())
}

func TestCreateResourceFailure(t *testing.T) {
	rm, d := newTestResourceManager()
	d.Fail["GenTexture"] = true

	h, tex, err := CreateResource[gpu.Texture](rm, func(tex *gpu.Texture) error {
		return tex.Init(rm.Context())
	})
	assert.ErrorIs(t, err, core.ErrAllocationFailed)
	assert.False(t, h.IsValid())
	assert.Nil(t, tex)
	assert.Equal(t, 0, Count[gpu.Texture](rm))
}

func TestResourceManagerShutdown(t *testing.T) {
	rm, d := newTestResourceManager()
	createVertexBuffer(t, rm)
	h, _, err := CreateResource[gpu.Shader](rm, func(s *gpu.Shader) error {
		return s.Init(rm.Context(), "flat", "vs", "fs")
	})
	require.NoError(t, err)
	_, _, err = CreateResource[gpu.FrameBuffer](rm, func(fb *gpu.FrameBuffer) error {
		return fb.Init(rm.Context(), 32, 32)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, d.Live())

	require.NoError(t, rm.Shutdown())
	assert.Equal(t, 0, d.Live())
	assert.Equal(t, 0, Count[gpu.Shader](rm))

	_, err = GetResource(rm, h)
	assert.ErrorIs(t, err, ErrStaleHandle)
}
