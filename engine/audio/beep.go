package audio

import (
	"fmt"
	gomath "math"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
)

/** @brief Configuration for the beep backed audio driver. */
type BeepConfig struct {
	/** @brief The sample rate of the output device. Buffers at other rates are resampled. */
	SampleRate int
	/** @brief Length of the speaker buffer. Shorter means lower latency and more CPU. */
	Latency time.Duration
	/** @brief Distance below which a source plays at full gain. */
	ReferenceDistance float32
	/** @brief How fast gain falls off past the reference distance. */
	Rolloff float32
}

func DefaultBeepConfig() BeepConfig {
	return BeepConfig{
		SampleRate:        44100,
		Latency:           100 * time.Millisecond,
		ReferenceDistance: 1,
		Rolloff:           1,
	}
}

type beepSource struct {
	buffer   uint32
	position math.Vec3
	velocity math.Vec3

	ctrl   *beep.Ctrl
	pan    *effects.Pan
	volume *effects.Volume
	// set by the speaker goroutine when the current playback drains
	done *atomic.Bool
}

type beepListener struct {
	position math.Vec3
	velocity math.Vec3
	at       math.Vec3
	up       math.Vec3
	gain     float32
}

// BeepDriver plays sounds through the beep speaker. The speaker is the
// device and a mixer attached to it is the context. Sources are stereo
// panned and attenuated by their position relative to the listener; velocity
// is stored but no doppler shift is applied.
//
// The beep speaker is process-wide, so only one BeepDriver may have its
// device open at a time.
type BeepDriver struct {
	config BeepConfig
	rate   beep.SampleRate

	deviceOpen bool
	mixer      *beep.Mixer

	nextID   uint32
	buffers  map[uint32]*beep.Buffer
	sources  map[uint32]*beepSource
	listener beepListener

	err error
}

func NewBeepDriver(config BeepConfig) *BeepDriver {
	return &BeepDriver{
		config:  config,
		rate:    beep.SampleRate(config.SampleRate),
		buffers: make(map[uint32]*beep.Buffer),
		sources: make(map[uint32]*beepSource),
		listener: beepListener{
			at:   math.NewVec3(0, 0, -1),
			up:   math.NewVec3Up(),
			gain: 1,
		},
	}
}

func (d *BeepDriver) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *BeepDriver) Error() error {
	err := d.err
	d.err = nil
	return err
}

func (d *BeepDriver) OpenDevice() error {
	if d.deviceOpen {
		return nil
	}
	if err := speaker.Init(d.rate, d.rate.N(d.config.Latency)); err != nil {
		return fmt.Errorf("failed to open speaker at %d Hz: %w", d.config.SampleRate, err)
	}
	d.deviceOpen = true
	core.LogDebug("speaker opened at %d Hz", d.config.SampleRate)
	return nil
}

func (d *BeepDriver) CloseDevice() {
	if !d.deviceOpen {
		return
	}
	speaker.Close()
	d.deviceOpen = false
}

func (d *BeepDriver) CreateContext() error {
	if !d.deviceOpen {
		return ErrNoDevice
	}
	if d.mixer != nil {
		return nil
	}
	d.mixer = &beep.Mixer{}
	speaker.Play(d.mixer)
	return nil
}

func (d *BeepDriver) DestroyContext() {
	if d.mixer == nil {
		return
	}
	speaker.Clear()
	d.mixer = nil
}

func (d *BeepDriver) gen() uint32 {
	if d.mixer == nil {
		d.fail(ErrNoContext)
		return InvalidID
	}
	d.nextID++
	return d.nextID
}

func (d *BeepDriver) GenBuffer() uint32 {
	id := d.gen()
	if id != InvalidID {
		d.buffers[id] = nil
	}
	return id
}

func (d *BeepDriver) DeleteBuffer(id uint32) {
	if _, ok := d.buffers[id]; !ok {
		d.fail(ErrInvalidName)
		return
	}
	delete(d.buffers, id)
}

func (d *BeepDriver) BufferData(id uint32, channels, sampleRate int, pcm []byte) {
	if _, ok := d.buffers[id]; !ok {
		d.fail(ErrInvalidName)
		return
	}
	if (channels != 1 && channels != 2) || sampleRate <= 0 {
		d.fail(ErrInvalidValue)
		return
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: channels,
		Precision:   BytesPerSample,
	}
	buffer := beep.NewBuffer(format)
	buffer.Append(pcmStreamer(format, pcm))
	d.buffers[id] = buffer
}

// pcmStreamer decodes interleaved signed little-endian PCM frames.
func pcmStreamer(format beep.Format, pcm []byte) beep.Streamer {
	width := format.Width()
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for n < len(samples) && len(pcm) >= width {
			samples[n], _ = format.DecodeSigned(pcm)
			pcm = pcm[width:]
			n++
		}
		return n, n > 0
	})
}

func (d *BeepDriver) GenSource() uint32 {
	id := d.gen()
	if id != InvalidID {
		d.sources[id] = &beepSource{}
	}
	return id
}

func (d *BeepDriver) source(id uint32) *beepSource {
	s, ok := d.sources[id]
	if !ok {
		d.fail(ErrInvalidName)
		return nil
	}
	return s
}

func (d *BeepDriver) DeleteSource(id uint32) {
	s := d.source(id)
	if s == nil {
		return
	}
	d.halt(s)
	delete(d.sources, id)
}

func (d *BeepDriver) SourceBuffer(source, buffer uint32) {
	s := d.source(source)
	if s == nil {
		return
	}
	if _, ok := d.buffers[buffer]; !ok && buffer != InvalidID {
		d.fail(ErrInvalidName)
		return
	}
	s.buffer = buffer
}

func (d *BeepDriver) SourcePosition(source uint32, position math.Vec3) {
	if s := d.source(source); s != nil {
		s.position = position
		d.spatialize(s)
	}
}

func (d *BeepDriver) SourceVelocity(source uint32, velocity math.Vec3) {
	if s := d.source(source); s != nil {
		s.velocity = velocity
	}
}

func (d *BeepDriver) SourcePlay(source uint32) {
	s := d.source(source)
	if s == nil {
		return
	}
	buffer := d.buffers[s.buffer]
	if buffer == nil || d.mixer == nil {
		d.fail(ErrInvalidValue)
		return
	}
	d.halt(s)

	var stream beep.Streamer = buffer.Streamer(0, buffer.Len())
	if rate := buffer.Format().SampleRate; rate != d.rate {
		stream = beep.Resample(4, rate, d.rate, stream)
	}
	done := new(atomic.Bool)
	s.pan = &effects.Pan{Streamer: stream}
	s.volume = &effects.Volume{Streamer: s.pan, Base: 2}
	s.ctrl = &beep.Ctrl{Streamer: beep.Seq(s.volume, beep.Callback(func() {
		done.Store(true)
	}))}
	s.done = done
	d.spatialize(s)

	speaker.Lock()
	d.mixer.Add(s.ctrl)
	speaker.Unlock()
}

func (d *BeepDriver) SourceStop(source uint32) {
	if s := d.source(source); s != nil {
		d.halt(s)
	}
}

// halt detaches the current playback; the mixer drops a drained Ctrl.
func (d *BeepDriver) halt(s *beepSource) {
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()
	s.done.Store(true)
	s.ctrl = nil
	s.pan = nil
	s.volume = nil
}

func (d *BeepDriver) SourceState(source uint32) SourceState {
	s := d.source(source)
	switch {
	case s == nil || s.done == nil:
		return SourceInitial
	case s.done.Load():
		return SourceStopped
	default:
		return SourcePlaying
	}
}

func (d *BeepDriver) ListenerPosition(position math.Vec3) {
	d.listener.position = position
	d.spatializeAll()
}

func (d *BeepDriver) ListenerVelocity(velocity math.Vec3) {
	d.listener.velocity = velocity
}

func (d *BeepDriver) ListenerOrientation(at, up math.Vec3) {
	d.listener.at = at
	d.listener.up = up
	d.spatializeAll()
}

func (d *BeepDriver) ListenerGain(gain float32) {
	if gain < 0 {
		d.fail(ErrInvalidValue)
		return
	}
	d.listener.gain = gain
	d.spatializeAll()
}

func (d *BeepDriver) spatializeAll() {
	for _, s := range d.sources {
		d.spatialize(s)
	}
}

func (d *BeepDriver) spatialize(s *beepSource) {
	if s.pan == nil {
		return
	}
	pan, volume, silent := spatialParams(d.listener, d.config, s.position)
	speaker.Lock()
	s.pan.Pan = pan
	s.volume.Volume = volume
	s.volume.Silent = silent
	speaker.Unlock()
}

// spatialParams derives stereo pan and a base-2 volume from the source
// position using inverse distance clamped attenuation.
func spatialParams(l beepListener, config BeepConfig, position math.Vec3) (pan, volume float64, silent bool) {
	offset := position.Sub(l.position)
	dist := offset.Length()
	right := l.at.Cross(l.up).Normalized()
	pan = float64(math.Clamp(offset.Normalized().Dot(right), -1, 1))

	gain := float64(l.gain)
	ref := config.ReferenceDistance
	if dist > ref && ref > 0 {
		gain *= float64(ref / (ref + config.Rolloff*(dist-ref)))
	}
	if gain <= 0 {
		return pan, 0, true
	}
	return pan, gomath.Log2(gain), false
}

var _ Driver = (*BeepDriver)(nil)
