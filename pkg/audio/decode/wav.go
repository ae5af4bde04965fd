// ABOUTME: WAV audio decoder
// ABOUTME: Parses RIFF/WAVE chunks and reads 16-bit PCM samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

const unknownChunkSize = 0xFFFFFFFF

// DecodeWAV decodes a 16-bit PCM WAV stream. A data chunk with an
// unknown (streaming) size extends to the end of the input.
func DecodeWAV(data []byte) (*Decoded, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var format audio.Format
	haveFormat := false
	pos := 12

	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, fmt.Errorf("truncated fmt chunk")
			}
			if tag := binary.LittleEndian.Uint16(data[body:]); tag != 1 {
				return nil, fmt.Errorf("unsupported WAV format tag: %d", tag)
			}
			format = audio.Format{
				Codec:      "wav",
				Channels:   int(binary.LittleEndian.Uint16(data[body+2:])),
				SampleRate: int(binary.LittleEndian.Uint32(data[body+4:])),
				BitDepth:   int(binary.LittleEndian.Uint16(data[body+14:])),
			}
			if format.BitDepth != 16 {
				return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
			}
			if format.Channels <= 0 {
				return nil, fmt.Errorf("invalid channel count: %d", format.Channels)
			}
			haveFormat = true

		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			end := len(data)
			if size != unknownChunkSize && body+int(size) < end {
				end = body + int(size)
			}
			pcm := data[body:end]
			frameBytes := 2 * format.Channels
			pcm = pcm[:len(pcm)/frameBytes*frameBytes]

			samples := make([]int16, len(pcm)/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
			}
			return &Decoded{Format: format, Samples: samples}, nil
		}

		if size == unknownChunkSize {
			break
		}
		// Chunks are word aligned
		pos = body + int(size) + int(size&1)
	}

	return nil, fmt.Errorf("no data chunk found")
}
