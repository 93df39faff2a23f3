package audio

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/ember/engine/core"
)

// BytesPerSample is the size of one PCM16 sample of one channel.
const BytesPerSample = 2

var ErrUnsupportedChannels = fmt.Errorf("only mono and stereo sounds are supported: %w", core.ErrUnsupported)

// Sound is decoded PCM audio: interleaved signed 16-bit little-endian samples.
type Sound struct {
	Samples    []byte
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames (one sample per channel).
func (s *Sound) Frames() int {
	if s.Channels <= 0 {
		return 0
	}
	return len(s.Samples) / (s.Channels * BytesPerSample)
}

// Duration returns the playback length of the sound.
func (s *Sound) Duration() (time.Duration, error) {
	if s.Channels != 1 && s.Channels != 2 {
		return 0, fmt.Errorf("sound with %d channels: %w", s.Channels, ErrUnsupportedChannels)
	}
	if s.SampleRate <= 0 {
		return 0, fmt.Errorf("sound with sample rate %d: %w", s.SampleRate, core.ErrUnsupported)
	}
	frames := int64(s.Frames())
	return time.Duration(frames * int64(time.Second) / int64(s.SampleRate)), nil
}
