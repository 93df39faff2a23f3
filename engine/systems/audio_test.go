package systems

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/audio/audiotest"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestAudioManager(t *testing.T, buffers, sources int) (*AudioManager, *audiotest.Driver, *fakeClock) {
	d := audiotest.NewDriver()
	am, err := NewAudioManager(AudioManagerConfig{MaxBufferCount: buffers, MaxSourceCount: sources}, d)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	am.SetClock(clock.now)
	require.NoError(t, am.Init())
	return am, d, clock
}

func pcm(frames, channels, rate int) *audio.Sound {
	return &audio.Sound{
		Samples:    make([]byte, frames*channels*audio.BytesPerSample),
		Channels:   channels,
		SampleRate: rate,
	}
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}

func TestAudioManagerLifecycle(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 4, 2)
	assert.Equal(t, AudioInitialized, am.State())
	assert.Equal(t, 6, d.Live())

	d.ResetCalls()
	require.NoError(t, am.Stop())
	assert.Equal(t, AudioStopped, am.State())
	assert.Equal(t, 0, d.Live())
	assert.False(t, d.ContextCreated())
	assert.False(t, d.DeviceOpen())

	order := d.Order()
	sources := indexOf(order, "DeleteSource")
	buffers := indexOf(order, "DeleteBuffer")
	context := indexOf(order, "DestroyContext")
	device := indexOf(order, "CloseDevice")
	assert.True(t, sources < buffers && buffers < context && context < device, "teardown order %v", order)

	require.NoError(t, am.Stop())
	assert.Equal(t, 1, d.Calls("CloseDevice"))
}

func TestAudioManagerInitFailureKeepsPartialState(t *testing.T) {
	d := audiotest.NewDriver()
	contextErr := errors.New("no context")
	d.Fail["CreateContext"] = contextErr

	am, err := NewAudioManager(DefaultAudioManagerConfig(), d)
	require.NoError(t, err)
	err = am.Init()
	assert.ErrorIs(t, err, contextErr)
	assert.Equal(t, AudioUninitialized, am.State())
	assert.True(t, d.DeviceOpen())
	assert.Equal(t, 0, d.Calls("GenBuffer"))

	require.NoError(t, am.Stop())
	assert.False(t, d.DeviceOpen())
	assert.Equal(t, 0, d.Calls("DestroyContext"))
}

func TestAudioManagerSourceAllocationFailure(t *testing.T) {
	d := audiotest.NewDriver()
	genErr := errors.New("out of sources")
	d.Fail["GenSource"] = genErr

	am, err := NewAudioManager(AudioManagerConfig{MaxBufferCount: 2, MaxSourceCount: 2}, d)
	require.NoError(t, err)
	assert.ErrorIs(t, am.Init(), genErr)

	require.NoError(t, am.Stop())
	assert.Equal(t, 0, d.Live())
}

func TestAudioManagerBufferDuration(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 4, 1)

	stereo, err := am.LoadSoundIntoBuffer(pcm(44100, 2, 44100))
	require.NoError(t, err)
	duration, err := am.BufferDuration(stereo)
	require.NoError(t, err)
	assert.InDelta(t, float64(time.Second), float64(duration), float64(time.Millisecond))

	mono, err := am.LoadSoundIntoBuffer(pcm(22050, 1, 22050))
	require.NoError(t, err)
	assert.NotEqual(t, stereo, mono)
	duration, err = am.BufferDuration(mono)
	require.NoError(t, err)
	assert.InDelta(t, float64(time.Second), float64(duration), float64(time.Millisecond))

	assert.Equal(t, 2, d.Calls("BufferData"))
}

func TestAudioManagerRejectsUnsupportedChannels(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 1, 1)

	_, err := am.LoadSoundIntoBuffer(pcm(100, 4, 44100))
	assert.ErrorIs(t, err, audio.ErrUnsupportedChannels)
	assert.Equal(t, 0, d.Calls("BufferData"))

	// the slot is still free
	_, err = am.LoadSoundIntoBuffer(pcm(100, 1, 44100))
	assert.NoError(t, err)
}

func TestAudioManagerBufferPoolExhausted(t *testing.T) {
	am, _, _ := newTestAudioManager(t, 1, 1)

	_, err := am.LoadSoundIntoBuffer(pcm(10, 1, 8000))
	require.NoError(t, err)
	_, err = am.LoadSoundIntoBuffer(pcm(10, 1, 8000))
	assert.ErrorIs(t, err, ErrNoFreeBuffer)
	assert.True(t, core.IsRecoverable(err))
}

func TestAudioManagerVoiceStealing(t *testing.T) {
	am, d, clock := newTestAudioManager(t, 2, 2)

	short, err := am.LoadSoundIntoBuffer(pcm(4000, 1, 8000))
	require.NoError(t, err)
	long, err := am.LoadSoundIntoBuffer(pcm(80000, 1, 8000))
	require.NoError(t, err)

	first, err := am.PlaySound(short, math.NewVec3Zero(), math.NewVec3Zero())
	require.NoError(t, err)
	assert.Equal(t, SourceHandle(0), first)

	second, err := am.PlaySound(long, math.NewVec3Zero(), math.NewVec3Zero())
	require.NoError(t, err)
	assert.Equal(t, SourceHandle(1), second)

	_, err = am.PlaySound(short, math.NewVec3Zero(), math.NewVec3Zero())
	assert.ErrorIs(t, err, ErrNoFreeSource)
	assert.True(t, core.IsRecoverable(err))

	// the short sound is past its expected finish and the driver agrees
	clock.advance(time.Second)
	d.SetState(am.sources[first].id, audio.SourceStopped)

	third, err := am.PlaySound(short, math.NewVec3(1, 0, 0), math.NewVec3Zero())
	require.NoError(t, err)
	assert.Equal(t, first, third)
	// the source already held the short buffer
	assert.Equal(t, 2, d.Calls("SourceBuffer"))
	assert.Equal(t, 3, d.Calls("SourcePlay"))
}

func TestAudioManagerDoubleChecksDriverState(t *testing.T) {
	am, _, clock := newTestAudioManager(t, 1, 1)

	buf, err := am.LoadSoundIntoBuffer(pcm(800, 1, 8000))
	require.NoError(t, err)
	_, err = am.PlaySound(buf, math.NewVec3Zero(), math.NewVec3Zero())
	require.NoError(t, err)

	// expected finish has elapsed but the driver still reports playback
	clock.advance(time.Second)
	_, err = am.PlaySound(buf, math.NewVec3Zero(), math.NewVec3Zero())
	assert.ErrorIs(t, err, ErrNoFreeSource)
}

func TestAudioManagerStopSoundFreesSource(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 1, 1)

	buf, err := am.LoadSoundIntoBuffer(pcm(8000, 1, 8000))
	require.NoError(t, err)
	src, err := am.PlaySound(buf, math.NewVec3Zero(), math.NewVec3Zero())
	require.NoError(t, err)
	assert.True(t, am.IsPlaying(src))

	require.NoError(t, am.StopSound(src))
	assert.False(t, am.IsPlaying(src))
	again, err := am.PlaySound(buf, math.NewVec3Zero(), math.NewVec3Zero())
	require.NoError(t, err)
	assert.Equal(t, src, again)
	assert.Equal(t, 1, d.Calls("SourceStop"))
}

func TestAudioManagerSourceMotionChangeDetection(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 1, 1)

	buf, err := am.LoadSoundIntoBuffer(pcm(8000, 1, 8000))
	require.NoError(t, err)
	pos := math.NewVec3(1, 2, 3)
	vel := math.NewVec3(0, 0, 1)
	src, err := am.PlaySound(buf, pos, vel)
	require.NoError(t, err)
	d.ResetCalls()

	require.NoError(t, am.SetSourceMotion(src, pos, vel))
	assert.Equal(t, 0, d.Calls("SourcePosition"))
	assert.Equal(t, 0, d.Calls("SourceVelocity"))

	require.NoError(t, am.SetSourceMotion(src, math.NewVec3(2, 2, 3), vel))
	assert.Equal(t, 1, d.Calls("SourcePosition"))
	assert.Equal(t, 0, d.Calls("SourceVelocity"))

	assert.ErrorIs(t, am.SetSourceMotion(SourceHandle(7), pos, vel), ErrInvalidSource)
}

func TestAudioManagerListenerChangeDetection(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 1, 1)

	props := ListenerProperties{
		At:   math.NewVec3(0, 0, -1),
		Up:   math.NewVec3Up(),
		Gain: 1,
	}
	require.NoError(t, am.SetListenerProperties(props))
	for _, name := range []string{"ListenerPosition", "ListenerVelocity", "ListenerOrientation", "ListenerGain"} {
		assert.Equal(t, 1, d.Calls(name), name)
	}

	d.ResetCalls()
	require.NoError(t, am.SetListenerProperties(props))
	assert.Empty(t, d.Order())

	props.Gain = 0.5
	require.NoError(t, am.SetListenerProperties(props))
	assert.Equal(t, []string{"ListenerGain"}, d.Order())
}

func TestAudioManagerDriverErrorSurfaces(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 1, 1)
	uploadErr := errors.New("bad upload")
	d.Fail["BufferData"] = uploadErr

	_, err := am.LoadSoundIntoBuffer(pcm(10, 1, 8000))
	assert.ErrorIs(t, err, uploadErr)

	delete(d.Fail, "BufferData")
	_, err = am.LoadSoundIntoBuffer(pcm(10, 1, 8000))
	assert.NoError(t, err)
}

func TestAudioManagerRetriesFailedAttach(t *testing.T) {
	am, d, _ := newTestAudioManager(t, 1, 1)
	buf, err := am.LoadSoundIntoBuffer(pcm(8000, 1, 8000))
	require.NoError(t, err)

	attachErr := errors.New("bad attach")
	d.Fail["SourceBuffer"] = attachErr
	_, err = am.PlaySound(buf, math.NewVec3Zero(), math.NewVec3Zero())
	assert.ErrorIs(t, err, attachErr)
	assert.Equal(t, 0, d.Calls("SourcePlay"))
	assert.Equal(t, uint32(0), d.AttachedBuffer(am.sources[0].id))

	delete(d.Fail, "SourceBuffer")
	src, err := am.PlaySound(buf, math.NewVec3Zero(), math.NewVec3Zero())
	require.NoError(t, err)
	assert.Equal(t, SourceHandle(0), src)
	assert.Equal(t, 2, d.Calls("SourceBuffer"))
	assert.Equal(t, am.buffers[buf].id, d.AttachedBuffer(am.sources[0].id))
}

func TestAudioManagerRequiresInit(t *testing.T) {
	am, err := NewAudioManager(DefaultAudioManagerConfig(), audiotest.NewDriver())
	require.NoError(t, err)

	_, err = am.LoadSoundIntoBuffer(pcm(10, 1, 8000))
	assert.ErrorIs(t, err, ErrAudioNotInitialized)
	_, err = am.PlaySound(0, math.NewVec3Zero(), math.NewVec3Zero())
	assert.ErrorIs(t, err, ErrAudioNotInitialized)

	_, err = NewAudioManager(AudioManagerConfig{MaxBufferCount: 0, MaxSourceCount: 1}, audiotest.NewDriver())
	assert.Error(t, err)
}
