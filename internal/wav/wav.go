// Package wav wraps raw linear PCM into canonical 44-byte RIFF/WAVE containers.
//
// Encoding is a pure function of its inputs: the payload is copied after the
// header byte for byte and never resampled or reinterpreted. The package keeps
// no state and is safe for concurrent use.
package wav

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// HeaderSize is the size of the canonical PCM header.
const HeaderSize = 44

// formatPCM is the WAVE_FORMAT_PCM tag.
const formatPCM = 1

// riffPreamble is the "RIFF" tag plus the chunk-size field, which the chunk size excludes.
const riffPreamble = 8

// MIMEType is the content type of encoded containers.
const MIMEType = "audio/wav"

// Encode decodes a base64 (standard, padded) PCM payload and wraps it in a container.
func Encode(base64Payload string, format Format) ([]byte, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	// The decoder skips line breaks; they are outside the alphabet here.
	if i := strings.IndexAny(base64Payload, "\r\n"); i >= 0 {
		return nil, &MalformedInputError{Reason: "invalid base64 payload", Err: base64.CorruptInputError(i)}
	}
	payload, err := base64.StdEncoding.DecodeString(base64Payload)
	if err != nil {
		return nil, &MalformedInputError{Reason: "invalid base64 payload", Err: err}
	}
	return encode(payload, format)
}

// EncodePCM wraps an already decoded PCM payload in a container.
func EncodePCM(pcm []byte, format Format) ([]byte, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return encode(pcm, format)
}

func encode(payload []byte, format Format) ([]byte, error) {
	if n := format.BlockAlign(); len(payload)%n != 0 {
		return nil, &MalformedInputError{
			Reason: fmt.Sprintf("payload length %d is not a multiple of block align %d", len(payload), n),
		}
	}
	if uint64(len(payload)) > math.MaxUint32-(HeaderSize-riffPreamble) {
		return nil, &MalformedInputError{
			Reason: fmt.Sprintf("payload length %d exceeds the 32-bit RIFF size field", len(payload)),
		}
	}

	out := make([]byte, HeaderSize+len(payload))
	newHeader(format, len(payload)).put(out[:HeaderSize])
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Header is the canonical PCM header with every field at its fixed offset.
type Header struct {
	ChunkSize     uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

func newHeader(f Format, dataSize int) Header {
	return Header{
		ChunkSize:     uint32(HeaderSize - riffPreamble + dataSize),
		AudioFormat:   formatPCM,
		Channels:      uint16(f.Channels),
		SampleRate:    uint32(f.SampleRate),
		ByteRate:      uint32(f.ByteRate()),
		BlockAlign:    uint16(f.BlockAlign()),
		BitsPerSample: uint16(f.BitsPerSample),
		DataSize:      uint32(dataSize),
	}
}

// put writes h into b, which must be at least HeaderSize long.
func (h Header) put(b []byte) {
	le := binary.LittleEndian
	copy(b[0:4], "RIFF")
	le.PutUint32(b[4:8], h.ChunkSize)
	copy(b[8:12], "WAVE")
	copy(b[12:16], "fmt ")
	le.PutUint32(b[16:20], 16)
	le.PutUint16(b[20:22], h.AudioFormat)
	le.PutUint16(b[22:24], h.Channels)
	le.PutUint32(b[24:28], h.SampleRate)
	le.PutUint32(b[28:32], h.ByteRate)
	le.PutUint16(b[32:34], h.BlockAlign)
	le.PutUint16(b[34:36], h.BitsPerSample)
	copy(b[36:40], "data")
	le.PutUint32(b[40:44], h.DataSize)
}

// Format returns the sample layout the header declares.
func (h Header) Format() Format {
	return Format{
		SampleRate:    int(h.SampleRate),
		Channels:      int(h.Channels),
		BitsPerSample: int(h.BitsPerSample),
	}
}

// Duration returns the payload length in seconds.
func (h Header) Duration() float64 {
	if h.ByteRate == 0 {
		return 0
	}
	return float64(h.DataSize) / float64(h.ByteRate)
}

// ParseHeader reads a canonical 44-byte PCM header from the start of buf.
// Only the layout Encode produces is accepted; extra chunks are not skipped.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, &MalformedInputError{Reason: fmt.Sprintf("need %d header bytes, got %d", HeaderSize, len(buf))}
	}
	le := binary.LittleEndian
	switch {
	case string(buf[0:4]) != "RIFF":
		return nil, &MalformedInputError{Reason: "missing RIFF tag"}
	case string(buf[8:12]) != "WAVE":
		return nil, &MalformedInputError{Reason: "missing WAVE tag"}
	case string(buf[12:16]) != "fmt ":
		return nil, &MalformedInputError{Reason: "missing fmt chunk"}
	case le.Uint32(buf[16:20]) != 16:
		return nil, &MalformedInputError{Reason: "fmt chunk is not 16 bytes"}
	case string(buf[36:40]) != "data":
		return nil, &MalformedInputError{Reason: "missing data chunk"}
	}
	h := &Header{
		ChunkSize:     le.Uint32(buf[4:8]),
		AudioFormat:   le.Uint16(buf[20:22]),
		Channels:      le.Uint16(buf[22:24]),
		SampleRate:    le.Uint32(buf[24:28]),
		ByteRate:      le.Uint32(buf[28:32]),
		BlockAlign:    le.Uint16(buf[32:34]),
		BitsPerSample: le.Uint16(buf[34:36]),
		DataSize:      le.Uint32(buf[40:44]),
	}
	if h.AudioFormat != formatPCM {
		return nil, &MalformedInputError{Reason: fmt.Sprintf("unsupported audio format %d", h.AudioFormat)}
	}
	return h, nil
}
