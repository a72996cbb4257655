package wav

import (
	"errors"
	"fmt"
	"math"
)

// Speech provider defaults: 24 kHz, mono, signed 16-bit little-endian PCM.
const (
	DefaultSampleRate    = 24000
	DefaultChannels      = 1
	DefaultBitsPerSample = 16
)

// DefaultFormat is the format Gemini TTS returns when the MIME type carries no parameters.
var DefaultFormat = Format{
	SampleRate:    DefaultSampleRate,
	Channels:      DefaultChannels,
	BitsPerSample: DefaultBitsPerSample,
}

// ErrInvalidFormat is returned when a Format cannot be described by a canonical PCM header.
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes linear PCM samples. The zero value is not valid.
type Format struct {
	SampleRate    int `json:"sample_rate"`
	Channels      int `json:"channels"`
	BitsPerSample int `json:"bits_per_sample"`
}

// BlockAlign is the size in bytes of one frame across all channels.
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ByteRate is the number of payload bytes per second of audio.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Validate checks that every derived header field fits its width.
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidFormat, f.SampleRate)
	case f.Channels <= 0:
		return fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidFormat, f.Channels)
	case f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0:
		return fmt.Errorf("%w: bits per sample must be a positive multiple of 8, got %d", ErrInvalidFormat, f.BitsPerSample)
	case f.Channels > math.MaxUint16 || f.BitsPerSample > math.MaxUint16:
		return fmt.Errorf("%w: channels/bits exceed 16-bit header fields", ErrInvalidFormat)
	case f.BlockAlign() > math.MaxUint16:
		return fmt.Errorf("%w: block align %d exceeds 16-bit header field", ErrInvalidFormat, f.BlockAlign())
	case int64(f.SampleRate)*int64(f.BlockAlign()) > math.MaxUint32:
		return fmt.Errorf("%w: byte rate exceeds 32-bit header field", ErrInvalidFormat)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitsPerSample)
}
