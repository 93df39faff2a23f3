package systems

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/math"
)

var (
	ErrNoFreeBuffer        = fmt.Errorf("no free sound buffer: %w", core.ErrResourceExhausted)
	ErrNoFreeSource        = fmt.Errorf("no free sound source: %w", core.ErrResourceExhausted)
	ErrAudioNotInitialized = errors.New("audio manager is not initialized")
	ErrInvalidBuffer       = errors.New("invalid or unpopulated sound buffer handle")
	ErrInvalidSource       = errors.New("invalid sound source handle")
)

/** @brief The configuration for the audio manager */
type AudioManagerConfig struct {
	/** @brief The number of sound buffers allocated at init. Buffers are load-once. */
	MaxBufferCount int
	/** @brief The number of playback sources (voices) allocated at init. */
	MaxSourceCount int
}

func DefaultAudioManagerConfig() AudioManagerConfig {
	return AudioManagerConfig{
		MaxBufferCount: 1024,
		MaxSourceCount: 256,
	}
}

// BufferHandle is the index of a populated sound buffer slot.
type BufferHandle int

// SourceHandle is the index of a playback source slot.
type SourceHandle int

type AudioState uint8

const (
	AudioUninitialized AudioState = iota
	AudioInitialized
	AudioStopped
)

/** @brief The listener the sources are positioned relative to. */
type ListenerProperties struct {
	Position math.Vec3
	Velocity math.Vec3
	/** @brief The direction the listener faces. */
	At math.Vec3
	Up math.Vec3
	/** @brief Master gain, 1 is unattenuated. */
	Gain float32
}

type soundBuffer struct {
	id        uint32
	populated bool
	duration  time.Duration
}

type soundSource struct {
	id        uint32
	position  math.Vec3
	velocity  math.Vec3
	buffer    BufferHandle
	hasBuffer bool
	// zero while no playback is expected
	expectedFinish time.Time
}

// AudioManager owns the audio device and context plus fixed pools of sound
// buffers and sources. It is not safe for concurrent use.
type AudioManager struct {
	config AudioManagerConfig
	driver audio.Driver
	now    func() time.Time

	state          AudioState
	deviceOpen     bool
	contextCreated bool
	buffers        []soundBuffer
	sources        []soundSource

	listener    ListenerProperties
	listenerSet bool
}

func NewAudioManager(config AudioManagerConfig, driver audio.Driver) (*AudioManager, error) {
	if config.MaxBufferCount <= 0 {
		return nil, fmt.Errorf("failed to create audio manager because config.MaxBufferCount==%d", config.MaxBufferCount)
	}
	if config.MaxSourceCount <= 0 {
		return nil, fmt.Errorf("failed to create audio manager because config.MaxSourceCount==%d", config.MaxSourceCount)
	}
	return &AudioManager{
		config: config,
		driver: driver,
		now:    time.Now,
	}, nil
}

// SetClock replaces the time source used to schedule voice reuse.
func (am *AudioManager) SetClock(now func() time.Time) {
	am.now = now
}

func (am *AudioManager) State() AudioState {
	return am.state
}

func (am *AudioManager) checkError(op string) error {
	if err := am.driver.Error(); err != nil {
		return fmt.Errorf("audio %s: %w", op, err)
	}
	return nil
}

/**
 * @brief Opens the device, creates the context and allocates both pools.
 * The first failing step aborts Init. Nothing is rolled back: call Stop to
 * release whatever was created.
 */
func (am *AudioManager) Init() error {
	core.Assert(am.state == AudioUninitialized, "audio manager initialized twice")
	if err := am.initDevice(); err != nil {
		return err
	}
	if err := am.initContext(); err != nil {
		return err
	}
	if err := am.initBuffers(); err != nil {
		return err
	}
	if err := am.initSources(); err != nil {
		return err
	}
	am.state = AudioInitialized
	core.LogInfo("Audio manager initialized with %d buffers and %d sources.", len(am.buffers), len(am.sources))
	return nil
}

func (am *AudioManager) initDevice() error {
	if err := am.driver.OpenDevice(); err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	am.deviceOpen = true
	return nil
}

func (am *AudioManager) initContext() error {
	if err := am.driver.CreateContext(); err != nil {
		return fmt.Errorf("failed to create audio context: %w", err)
	}
	am.contextCreated = true
	return nil
}

func (am *AudioManager) initBuffers() error {
	am.buffers = make([]soundBuffer, 0, am.config.MaxBufferCount)
	for i := 0; i < am.config.MaxBufferCount; i++ {
		id := am.driver.GenBuffer()
		if err := am.checkError("gen buffer"); err != nil {
			return err
		}
		if id == audio.InvalidID {
			return fmt.Errorf("failed to create sound buffer %d: %w", i, core.ErrAllocationFailed)
		}
		am.buffers = append(am.buffers, soundBuffer{id: id})
	}
	return nil
}

func (am *AudioManager) initSources() error {
	am.sources = make([]soundSource, 0, am.config.MaxSourceCount)
	for i := 0; i < am.config.MaxSourceCount; i++ {
		id := am.driver.GenSource()
		if err := am.checkError("gen source"); err != nil {
			return err
		}
		if id == audio.InvalidID {
			return fmt.Errorf("failed to create sound source %d: %w", i, core.ErrAllocationFailed)
		}
		am.sources = append(am.sources, soundSource{id: id})
	}
	return nil
}

/**
 * @brief Uploads the sound into the first unpopulated buffer.
 * @param sound The decoded PCM sound. Only mono and stereo are accepted.
 * @return A handle to the populated buffer, or ErrNoFreeBuffer once every buffer is populated.
 */
func (am *AudioManager) LoadSoundIntoBuffer(sound *audio.Sound) (BufferHandle, error) {
	if am.state != AudioInitialized {
		return -1, ErrAudioNotInitialized
	}
	duration, err := sound.Duration()
	if err != nil {
		return -1, err
	}
	for i := range am.buffers {
		b := &am.buffers[i]
		if b.populated {
			continue
		}
		am.driver.BufferData(b.id, sound.Channels, sound.SampleRate, sound.Samples)
		if err := am.checkError("buffer data"); err != nil {
			return -1, err
		}
		b.populated = true
		b.duration = duration
		return BufferHandle(i), nil
	}
	return -1, ErrNoFreeBuffer
}

// BufferDuration returns the playback length of a populated buffer.
func (am *AudioManager) BufferDuration(handle BufferHandle) (time.Duration, error) {
	b, err := am.buffer(handle)
	if err != nil {
		return 0, err
	}
	return b.duration, nil
}

func (am *AudioManager) buffer(handle BufferHandle) (*soundBuffer, error) {
	if int(handle) < 0 || int(handle) >= len(am.buffers) || !am.buffers[handle].populated {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBuffer, handle)
	}
	return &am.buffers[handle], nil
}

func (am *AudioManager) source(handle SourceHandle) (*soundSource, error) {
	if int(handle) < 0 || int(handle) >= len(am.sources) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSource, handle)
	}
	return &am.sources[handle], nil
}

// available reports whether a source can take a new sound: either nothing is
// expected to be playing, or the expected finish has passed and the driver
// agrees the source has gone quiet.
func (am *AudioManager) available(s *soundSource, now time.Time) bool {
	if s.expectedFinish.IsZero() {
		return true
	}
	if now.Before(s.expectedFinish) {
		return false
	}
	return am.driver.SourceState(s.id) != audio.SourcePlaying
}

/**
 * @brief Plays a populated buffer on the first free source.
 * Playing voices are never preempted; when every source is busy ErrNoFreeSource is returned.
 */
func (am *AudioManager) PlaySound(handle BufferHandle, position, velocity math.Vec3) (SourceHandle, error) {
	if am.state != AudioInitialized {
		return -1, ErrAudioNotInitialized
	}
	buf, err := am.buffer(handle)
	if err != nil {
		return -1, err
	}
	now := am.now()
	for i := range am.sources {
		s := &am.sources[i]
		if !am.available(s, now) {
			continue
		}
		if !s.hasBuffer || s.buffer != handle {
			am.driver.SourceBuffer(s.id, buf.id)
			if err := am.checkError("attach buffer"); err != nil {
				s.hasBuffer = false
				return -1, err
			}
			s.buffer = handle
			s.hasBuffer = true
		}
		am.driver.SourcePosition(s.id, position)
		am.driver.SourceVelocity(s.id, velocity)
		s.position = position
		s.velocity = velocity
		am.driver.SourcePlay(s.id)
		if err := am.checkError("play"); err != nil {
			s.expectedFinish = time.Time{}
			return -1, err
		}
		s.expectedFinish = now.Add(buf.duration)
		return SourceHandle(i), nil
	}
	return -1, ErrNoFreeSource
}

// SetSourceMotion updates the position and velocity of a source, calling the
// driver only for values that changed.
func (am *AudioManager) SetSourceMotion(handle SourceHandle, position, velocity math.Vec3) error {
	s, err := am.source(handle)
	if err != nil {
		return err
	}
	if s.position != position {
		am.driver.SourcePosition(s.id, position)
		s.position = position
	}
	if s.velocity != velocity {
		am.driver.SourceVelocity(s.id, velocity)
		s.velocity = velocity
	}
	return am.checkError("source motion")
}

// SetListenerProperties pushes the listener state, skipping unchanged fields.
func (am *AudioManager) SetListenerProperties(props ListenerProperties) error {
	last := am.listener
	first := !am.listenerSet
	if first || last.Position != props.Position {
		am.driver.ListenerPosition(props.Position)
	}
	if first || last.Velocity != props.Velocity {
		am.driver.ListenerVelocity(props.Velocity)
	}
	if first || last.At != props.At || last.Up != props.Up {
		am.driver.ListenerOrientation(props.At, props.Up)
	}
	if first || last.Gain != props.Gain {
		am.driver.ListenerGain(props.Gain)
	}
	am.listener = props
	am.listenerSet = true
	return am.checkError("listener")
}

// StopSound halts a source and makes it immediately available again.
func (am *AudioManager) StopSound(handle SourceHandle) error {
	s, err := am.source(handle)
	if err != nil {
		return err
	}
	am.driver.SourceStop(s.id)
	s.expectedFinish = time.Time{}
	return am.checkError("stop")
}

// IsPlaying reports whether the driver is still playing the source.
func (am *AudioManager) IsPlaying(handle SourceHandle) bool {
	s, err := am.source(handle)
	if err != nil {
		return false
	}
	return am.driver.SourceState(s.id) == audio.SourcePlaying
}

/**
 * @brief Tears the audio manager down in reverse order of Init:
 * sources, buffers, context, device. Works on a partially initialized manager.
 */
func (am *AudioManager) Stop() error {
	if am.state == AudioStopped {
		return nil
	}
	for _, s := range am.sources {
		am.driver.SourceStop(s.id)
		am.driver.DeleteSource(s.id)
	}
	am.sources = nil
	for _, b := range am.buffers {
		am.driver.DeleteBuffer(b.id)
	}
	am.buffers = nil
	if am.contextCreated {
		am.driver.DestroyContext()
		am.contextCreated = false
	}
	if am.deviceOpen {
		am.driver.CloseDevice()
		am.deviceOpen = false
	}
	am.state = AudioStopped
	if err := am.driver.Error(); err != nil {
		core.LogWarn("audio teardown reported: %s", err)
	}
	core.LogDebug("Audio manager stopped.")
	return nil
}
