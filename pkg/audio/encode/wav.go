// ABOUTME: WAV audio encoder
// ABOUTME: Encodes PCM blocks to 16-bit little-endian RIFF/WAVE with a streaming header
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

const (
	// MIMEWAV is the container type produced by the WAV encoder
	MIMEWAV = "audio/wav"

	// WAVHeaderSize is the size of the canonical 44-byte header
	WAVHeaderSize = 44

	// wavUnknownSize marks RIFF and data sizes as unknown (streaming)
	wavUnknownSize = 0xFFFFFFFF
)

// WAVEncoder encodes 16-bit PCM into a WAV stream.
// Chunks are emitted as they arrive, so the header carries the
// conventional unknown-length markers instead of real sizes.
type WAVEncoder struct {
	sampleRate    int
	channels      int
	headerWritten bool
	flushed       bool
}

// NewWAV creates a new WAV encoder
func NewWAV(format audio.Format) (Encoder, error) {
	if format.Codec != CodecWAV {
		return nil, fmt.Errorf("invalid codec for WAV encoder: %s", format.Codec)
	}
	if err := validateFormat(format); err != nil {
		return nil, err
	}

	return &WAVEncoder{
		sampleRate: format.SampleRate,
		channels:   format.Channels,
	}, nil
}

// Encode converts one PCM block to little-endian sample bytes.
// The first chunk is prefixed with the WAV header.
func (e *WAVEncoder) Encode(block audio.PCMBlock) ([]byte, error) {
	if e.flushed {
		return nil, fmt.Errorf("wav encoder already flushed")
	}
	if err := checkBlock(block, e.channels); err != nil {
		return nil, err
	}

	samples := block.Interleaved()
	var output []byte
	if !e.headerWritten {
		output = make([]byte, 0, WAVHeaderSize+len(samples)*2)
		output = append(output, e.header()...)
		e.headerWritten = true
	} else {
		output = make([]byte, 0, len(samples)*2)
	}

	for _, sample := range samples {
		output = binary.LittleEndian.AppendUint16(output, uint16(sample))
	}
	return output, nil
}

// Flush has no trailer to write; it only emits the header when no block
// was ever encoded, so the stream is still a valid (empty) WAV file.
func (e *WAVEncoder) Flush() ([]byte, error) {
	if e.flushed {
		return nil, nil
	}
	e.flushed = true

	if !e.headerWritten {
		e.headerWritten = true
		return e.header(), nil
	}
	return nil, nil
}

// MIMEType returns the WAV container type
func (e *WAVEncoder) MIMEType() string {
	return MIMEWAV
}

// Close releases resources
func (e *WAVEncoder) Close() error {
	return nil
}

func (e *WAVEncoder) header() []byte {
	const bitsPerSample = 16
	blockAlign := e.channels * bitsPerSample / 8
	byteRate := e.sampleRate * blockAlign

	hdr := make([]byte, WAVHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], wavUnknownSize)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(e.channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(e.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], wavUnknownSize)
	return hdr
}
