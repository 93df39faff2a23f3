package loaders

import (
	"bytes"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/spaghettifunk/ember/engine/audio"
)

type SoundLoader struct{}

// DecodeSound decodes a WAV stream into interleaved 16-bit PCM.
func DecodeSound(r io.Reader) (*audio.Sound, error) {
	streamer, format, err := wav.Decode(io.NopCloser(r))
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	defer streamer.Close()

	pcm, err := encodePCM16(streamer, format)
	if err != nil {
		return nil, err
	}
	return &audio.Sound{
		Samples:    pcm,
		Channels:   format.NumChannels,
		SampleRate: int(format.SampleRate),
	}, nil
}

func encodePCM16(s beep.Streamer, format beep.Format) ([]byte, error) {
	out := beep.Format{
		SampleRate:  format.SampleRate,
		NumChannels: format.NumChannels,
		Precision:   audio.BytesPerSample,
	}
	var pcm bytes.Buffer
	frame := make([]byte, out.Width())
	samples := make([][2]float64, 512)
	for {
		n, ok := s.Stream(samples)
		for i := 0; i < n; i++ {
			out.EncodeSigned(frame, samples[i])
			pcm.Write(frame)
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to stream wav samples: %w", err)
	}
	return pcm.Bytes(), nil
}

func (sl *SoundLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	sound, err := DecodeSound(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sound '%s': %w", path, err)
	}
	return &Resource{
		Name:     resourceName(path),
		FullPath: path,
		DataSize: uint64(len(sound.Samples)),
		Data:     sound,
	}, nil
}

func (sl *SoundLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
