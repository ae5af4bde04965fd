// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes a complete Ogg Opus stream through libopusfile
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48kHz
const opusDecodeRate = 48000

// DecodeOggOpus decodes an Ogg Opus stream. Pre-skip and end trimming
// follow the stream's header and granule positions.
func DecodeOggOpus(data []byte) (*Decoded, error) {
	channels, err := opusHeadChannels(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	// Max frame size (120ms at 48kHz) per channel
	buf := make([]int16, 5760*channels)
	var samples []int16
	for {
		n, err := stream.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("opus decode failed: %w", err)
		}
		if n == 0 {
			break
		}
		samples = append(samples, buf[:n*channels]...)
	}

	return &Decoded{
		Format: audio.Format{
			Codec:      "opus",
			SampleRate: opusDecodeRate,
			Channels:   channels,
			BitDepth:   16,
		},
		Samples: samples,
	}, nil
}

// opusHeadChannels reads the channel count from the OpusHead packet
func opusHeadChannels(data []byte) (int, error) {
	idx := bytes.Index(data, []byte("OpusHead"))
	if idx < 0 || idx+10 > len(data) {
		return 0, fmt.Errorf("not an Ogg Opus stream")
	}
	channels := int(data[idx+9])
	if channels == 0 {
		return 0, fmt.Errorf("invalid channel count in OpusHead")
	}
	return channels, nil
}
