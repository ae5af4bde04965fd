// ABOUTME: Encoder interface definition
// ABOUTME: Common contract for incremental encoders fed one PCM block at a time
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

// Supported software codecs
const (
	CodecOpus = "opus"
	CodecWAV  = "wav"
)

// Encoder incrementally encodes PCM blocks into a container byte stream.
//
// Encode may buffer internally and return no bytes for a call. Flush is
// called once after the last block and returns any remaining trailer bytes.
// Concatenating every returned chunk in call order yields the complete stream.
type Encoder interface {
	// Encode consumes one PCM block and returns the bytes that are ready
	Encode(block audio.PCMBlock) ([]byte, error)

	// Flush emits buffered audio and trailer bytes; no Encode calls may follow
	Flush() ([]byte, error)

	// MIMEType returns the container type of the produced stream
	MIMEType() string

	// Close releases encoder resources
	Close() error
}

// New creates an encoder for format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case CodecOpus:
		return NewOggOpus(format)
	case CodecWAV:
		return NewWAV(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %q (supported: %s, %s)", format.Codec, CodecOpus, CodecWAV)
	}
}

// MIMETypeFor returns the container type a codec produces
func MIMETypeFor(codec string) string {
	switch codec {
	case CodecOpus:
		return MIMEOggOpus
	case CodecWAV:
		return MIMEWAV
	default:
		return ""
	}
}

func validateFormat(format audio.Format) error {
	if format.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", format.SampleRate)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", format.Channels)
	}
	return nil
}

func checkBlock(block audio.PCMBlock, channels int) error {
	if block.NumChannels() != channels {
		return fmt.Errorf("block has %d channels, encoder expects %d", block.NumChannels(), channels)
	}
	n := block.Len()
	for i, ch := range block.Channels {
		if len(ch) != n {
			return fmt.Errorf("channel %d has %d samples, channel 0 has %d", i, len(ch), n)
		}
	}
	return nil
}
