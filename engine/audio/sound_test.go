package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/core"
)

func silence(frames, channels, rate int) *Sound {
	return &Sound{
		Samples:    make([]byte, frames*channels*BytesPerSample),
		Channels:   channels,
		SampleRate: rate,
	}
}

func TestSoundDuration(t *testing.T) {
	d, err := silence(44100, 2, 44100).Duration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	d, err = silence(22050, 1, 22050).Duration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	d, err = silence(11025, 1, 44100).Duration()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestSoundUnsupportedChannels(t *testing.T) {
	_, err := silence(100, 6, 44100).Duration()
	assert.ErrorIs(t, err, ErrUnsupportedChannels)
	assert.True(t, core.IsRecoverable(err))
}
