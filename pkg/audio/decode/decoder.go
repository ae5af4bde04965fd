// ABOUTME: Decoder entry point
// ABOUTME: Dispatches container bytes to a decoder by MIME type
package decode

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

// Decoded holds a fully decoded recording
type Decoded struct {
	Format  audio.Format
	Samples []int16 // interleaved
}

// Frames returns the number of samples per channel
func (d *Decoded) Frames() int {
	if d.Format.Channels == 0 {
		return 0
	}
	return len(d.Samples) / d.Format.Channels
}

// Channel returns the samples of one channel
func (d *Decoded) Channel(ch int) []int16 {
	if ch < 0 || ch >= d.Format.Channels {
		return nil
	}
	frames := d.Frames()
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		out[i] = d.Samples[i*d.Format.Channels+ch]
	}
	return out
}

// Decode decodes data according to its MIME type
func Decode(mimeType string, data []byte) (*Decoded, error) {
	base := strings.TrimSpace(strings.ToLower(strings.SplitN(mimeType, ";", 2)[0]))

	switch base {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return DecodeWAV(data)
	case "audio/ogg":
		return DecodeOggOpus(data)
	default:
		return nil, fmt.Errorf("unsupported container for decoding: %s", mimeType)
	}
}
