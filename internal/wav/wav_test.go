package wav

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	gowav "github.com/go-audio/wav"
)

func TestEncode_ConcreteScenario(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x02, 0x03}

	out, err := Encode(base64.StdEncoding.EncodeToString(payload), DefaultFormat)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(out) != 48 {
		t.Fatalf("expected 48 bytes, got %d", len(out))
	}

	le := binary.LittleEndian
	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"chunk size", le.Uint32(out[4:8]), 40},
		{"fmt size", le.Uint32(out[16:20]), 16},
		{"audio format", uint32(le.Uint16(out[20:22])), 1},
		{"channels", uint32(le.Uint16(out[22:24])), 1},
		{"sample rate", le.Uint32(out[24:28]), 24000},
		{"byte rate", le.Uint32(out[28:32]), 48000},
		{"block align", uint32(le.Uint16(out[32:34])), 2},
		{"bits per sample", uint32(le.Uint16(out[34:36])), 16},
		{"data size", le.Uint32(out[40:44]), 4},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}

	tags := map[int]string{0: "RIFF", 8: "WAVE", 12: "fmt ", 36: "data"}
	for off, tag := range tags {
		if got := string(out[off : off+4]); got != tag {
			t.Errorf("tag at %d = %q, want %q", off, got, tag)
		}
	}

	if !bytes.Equal(out[HeaderSize:], payload) {
		t.Errorf("payload changed: got % x", out[HeaderSize:])
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	formats := []Format{
		DefaultFormat,
		{SampleRate: 44100, Channels: 2, BitsPerSample: 16},
		{SampleRate: 8000, Channels: 1, BitsPerSample: 8},
		{SampleRate: 48000, Channels: 2, BitsPerSample: 24},
	}
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			for _, frames := range []int{0, 1, 7, 1024} {
				pcm := make([]byte, frames*f.BlockAlign())
				for i := range pcm {
					pcm[i] = byte(i*31 + 7)
				}
				out, err := Encode(base64.StdEncoding.EncodeToString(pcm), f)
				if err != nil {
					t.Fatalf("Encode(%d frames) failed: %v", frames, err)
				}
				if !bytes.Equal(out[HeaderSize:], pcm) {
					t.Fatalf("round trip mismatch for %d frames", frames)
				}
			}
		})
	}
}

func TestEncode_HeaderDeterminism(t *testing.T) {
	for _, l := range []int{0, 2, 4, 100, 48000} {
		out, err := EncodePCM(make([]byte, l), DefaultFormat)
		if err != nil {
			t.Fatalf("EncodePCM(len=%d) failed: %v", l, err)
		}
		h, err := ParseHeader(out)
		if err != nil {
			t.Fatalf("ParseHeader(len=%d) failed: %v", l, err)
		}
		if h.ChunkSize != uint32(36+l) {
			t.Errorf("len=%d: chunk size = %d, want %d", l, h.ChunkSize, 36+l)
		}
		if h.DataSize != uint32(l) {
			t.Errorf("len=%d: data size = %d, want %d", l, h.DataSize, l)
		}
		if len(out) != HeaderSize+l {
			t.Errorf("len=%d: output length = %d", l, len(out))
		}
	}
}

func TestEncode_Idempotent(t *testing.T) {
	in := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4, 5, 6})
	a, err := Encode(in, DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(in, DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different containers")
	}
}

func TestEncode_MalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		format  Format
	}{
		{"odd byte count", base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), DefaultFormat},
		{"partial stereo frame", base64.StdEncoding.EncodeToString([]byte{1, 2}), Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}},
		{"characters outside alphabet", "AAE*Ag==", DefaultFormat},
		{"bad padding", "AAEC=", DefaultFormat},
		{"url alphabet", "-_-_", DefaultFormat},
		{"embedded CRLF", "AAEC\r\nAw==", DefaultFormat},
		{"trailing newline", "AAECAw==\n", DefaultFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.payload, tt.format)
			if err == nil {
				t.Fatalf("expected error, got %d bytes", len(out))
			}
			if out != nil {
				t.Errorf("expected no buffer on failure, got %d bytes", len(out))
			}
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
			var mErr *MalformedInputError
			if !errors.As(err, &mErr) {
				t.Errorf("expected *MalformedInputError, got %T", err)
			}
		})
	}
}

func TestEncode_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		format Format
	}{
		{"zero value", Format{}},
		{"negative rate", Format{SampleRate: -1, Channels: 1, BitsPerSample: 16}},
		{"zero channels", Format{SampleRate: 24000, Channels: 0, BitsPerSample: 16}},
		{"bits not byte aligned", Format{SampleRate: 24000, Channels: 1, BitsPerSample: 12}},
		{"channels overflow", Format{SampleRate: 24000, Channels: math.MaxUint16 + 1, BitsPerSample: 8}},
		{"byte rate overflow", Format{SampleRate: 1 << 30, Channels: 4, BitsPerSample: 32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodePCM([]byte{0, 0}, tt.format)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
			if errors.Is(err, ErrMalformedInput) {
				t.Errorf("format error should not match ErrMalformedInput")
			}
		})
	}
}

func TestEncodePCM_DoesNotAliasInput(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	out, err := EncodePCM(pcm, DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	pcm[0] = 0xff
	if out[HeaderSize] != 1 {
		t.Error("container shares memory with the input payload")
	}
}

// TestEncode_DecodableByIndependentReader checks the container against an
// unrelated WAV decoder.
func TestEncode_DecodableByIndependentReader(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768, 42}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	out, err := EncodePCM(pcm, DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}

	dec := gowav.NewDecoder(bytes.NewReader(out))
	if !dec.IsValidFile() {
		t.Fatal("decoder rejected the container")
	}
	if dec.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d", dec.SampleRate)
	}
	if dec.NumChans != DefaultChannels {
		t.Errorf("channels = %d", dec.NumChans)
	}
	if dec.BitDepth != DefaultBitsPerSample {
		t.Errorf("bit depth = %d", dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer: %v", err)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}

func TestParseHeader(t *testing.T) {
	out, err := EncodePCM(make([]byte, 48000), DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	h, err := ParseHeader(out)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.Format() != DefaultFormat {
		t.Errorf("format = %v, want %v", h.Format(), DefaultFormat)
	}
	if d := h.Duration(); math.Abs(d-1.0) > 1e-9 {
		t.Errorf("duration = %f, want 1.0", d)
	}

	bad := append([]byte(nil), out...)
	copy(bad[8:12], "AVI ")
	if _, err := ParseHeader(bad); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for wrong form type, got %v", err)
	}
	if _, err := ParseHeader(out[:20]); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected ErrMalformedInput for short buffer, got %v", err)
	}
}
