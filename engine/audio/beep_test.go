package audio

import (
	"testing"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/math"
)

func TestSpatialParams(t *testing.T) {
	config := DefaultBeepConfig()
	listener := beepListener{at: math.NewVec3(0, 0, -1), up: math.NewVec3Up(), gain: 1}

	pan, volume, silent := spatialParams(listener, config, math.NewVec3(1, 0, 0))
	assert.InDelta(t, 1.0, pan, 1e-6)
	assert.InDelta(t, 0.0, volume, 1e-6)
	assert.False(t, silent)

	pan, _, _ = spatialParams(listener, config, math.NewVec3(-3, 0, 0))
	assert.InDelta(t, -1.0, pan, 1e-6)

	// at twice the reference distance the gain halves
	_, volume, _ = spatialParams(listener, config, math.NewVec3(0, 0, -2))
	assert.InDelta(t, -1.0, volume, 1e-6)

	listener.gain = 0
	_, _, silent = spatialParams(listener, config, math.NewVec3Zero())
	assert.True(t, silent)
}

func TestPCMStreamer(t *testing.T) {
	format := beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}
	// one frame: left at full positive scale, right silent
	pcm := []byte{0xff, 0x7f, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	samples := make([][2]float64, 4)
	n, ok := pcmStreamer(format, pcm).Stream(samples)
	require.True(t, ok)
	require.Equal(t, 2, n)
	assert.InDelta(t, 1.0, samples[0][0], 1e-3)
	assert.InDelta(t, 0.0, samples[0][1], 1e-6)
	assert.InDelta(t, 0.0, samples[1][0], 1e-6)
}

func TestBeepDriverWithoutContext(t *testing.T) {
	d := NewBeepDriver(DefaultBeepConfig())
	assert.Equal(t, InvalidID, d.GenBuffer())
	assert.ErrorIs(t, d.Error(), ErrNoContext)
	assert.NoError(t, d.Error())
	assert.ErrorIs(t, d.CreateContext(), ErrNoDevice)

	d.SourcePlay(42)
	assert.ErrorIs(t, d.Error(), ErrInvalidName)
}
