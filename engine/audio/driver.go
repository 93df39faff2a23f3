// Package audio defines the native audio calls the engine relies on, the PCM
// sound format produced by decoders and a backend built on beep.
package audio

import (
	"errors"

	"github.com/spaghettifunk/ember/engine/math"
)

// InvalidID is the id drivers return when an allocation fails.
const InvalidID uint32 = 0

var (
	ErrNoDevice     = errors.New("audio device not open")
	ErrNoContext    = errors.New("audio context not created")
	ErrInvalidName  = errors.New("invalid audio object id")
	ErrInvalidValue = errors.New("invalid audio parameter")
)

type SourceState uint8

const (
	SourceInitial SourceState = iota
	SourcePlaying
	SourceStopped
)

func (s SourceState) String() string {
	switch s {
	case SourcePlaying:
		return "playing"
	case SourceStopped:
		return "stopped"
	default:
		return "initial"
	}
}

// Driver is an OpenAL-shaped audio device. Calls that can fail record an
// error which Error returns and clears, like alGetError.
type Driver interface {
	OpenDevice() error
	CloseDevice()
	CreateContext() error
	DestroyContext()

	GenBuffer() uint32
	DeleteBuffer(id uint32)
	// BufferData uploads interleaved signed 16-bit little-endian PCM.
	BufferData(id uint32, channels, sampleRate int, pcm []byte)

	GenSource() uint32
	DeleteSource(id uint32)
	SourceBuffer(source, buffer uint32)
	SourcePosition(source uint32, position math.Vec3)
	SourceVelocity(source uint32, velocity math.Vec3)
	SourcePlay(source uint32)
	SourceStop(source uint32)
	SourceState(source uint32) SourceState

	ListenerPosition(position math.Vec3)
	ListenerVelocity(velocity math.Vec3)
	ListenerOrientation(at, up math.Vec3)
	ListenerGain(gain float32)

	Error() error
}
