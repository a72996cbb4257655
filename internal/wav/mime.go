package wav

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
)

// FormatFromMIME derives the PCM layout from a raw audio MIME type such as
// "audio/L16;codec=pcm;rate=24000". Missing parameters fall back to DefaultFormat,
// and an empty string yields DefaultFormat. Non-PCM types are rejected.
func FormatFromMIME(mimeType string) (Format, error) {
	f := DefaultFormat
	if strings.TrimSpace(mimeType) == "" {
		return f, nil
	}

	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return Format{}, fmt.Errorf("%w: parse mime type %q: %v", ErrInvalidFormat, mimeType, err)
	}

	switch {
	case strings.HasPrefix(mediaType, "audio/l"):
		bits, err := strconv.Atoi(strings.TrimPrefix(mediaType, "audio/l"))
		if err != nil {
			return Format{}, fmt.Errorf("%w: bit depth in %q", ErrInvalidFormat, mimeType)
		}
		f.BitsPerSample = bits
	case mediaType == "audio/pcm", mediaType == "audio/x-pcm":
	default:
		return Format{}, fmt.Errorf("%w: %q is not raw PCM", ErrInvalidFormat, mediaType)
	}

	if v, ok := params["rate"]; ok {
		rate, err := strconv.Atoi(v)
		if err != nil {
			return Format{}, fmt.Errorf("%w: rate %q", ErrInvalidFormat, v)
		}
		f.SampleRate = rate
	}
	if v, ok := params["channels"]; ok {
		ch, err := strconv.Atoi(v)
		if err != nil {
			return Format{}, fmt.Errorf("%w: channels %q", ErrInvalidFormat, v)
		}
		f.Channels = ch
	}

	if err := f.Validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}

// IsRawPCM reports whether mimeType names headerless PCM that needs wrapping.
func IsRawPCM(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mt, "audio/l") || strings.HasPrefix(mt, "audio/pcm") || strings.HasPrefix(mt, "audio/x-pcm")
}
