package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	SpeechSampleRate = 24000
	SpeechChannels   = 1
)

var ErrOddPCMLength = errors.New("pcm data has an odd number of bytes")

// Buffer holds decoded samples in [-1, 1), one slice per channel.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

func (b Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// DecodeBase64PCM16 decodes base64 encoded 16-bit little-endian PCM.
func DecodeBase64PCM16(encoded string, sampleRate, channels int) (Buffer, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to decode base64 audio: %w", err)
	}
	return DecodePCM16(data, sampleRate, channels)
}

// DecodePCM16 converts interleaved 16-bit little-endian samples to float32 by dividing
// by 32768.
func DecodePCM16(data []byte, sampleRate, channels int) (Buffer, error) {
	if channels < 1 {
		return Buffer{}, fmt.Errorf("invalid channel count %d", channels)
	}
	if len(data)%2 != 0 {
		return Buffer{}, ErrOddPCMLength
	}
	samples := len(data) / 2
	frames := samples / channels
	buf := Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}
	for i := 0; i < frames*channels; i++ {
		sample := int16(binary.LittleEndian.Uint16(data[i*2:]))
		buf.Channels[i%channels][i/channels] = float32(sample) / 32768.0
	}
	return buf, nil
}
