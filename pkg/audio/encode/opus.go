// ABOUTME: Ogg Opus audio encoder
// ABOUTME: Encodes PCM blocks to 20ms Opus packets wrapped in Ogg pages
package encode

import (
	"bytes"
	"fmt"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/resample"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"
)

const (
	// MIMEOggOpus is the container type produced by the Opus encoder
	MIMEOggOpus = "audio/ogg;codecs=opus"

	// OpusSampleRate is the rate audio is encoded at
	OpusSampleRate = 48000

	// opusFrameSize is samples per channel in one 20ms frame at 48kHz
	opusFrameSize = OpusSampleRate / 50

	// oggPreSkip is the pre-skip the Ogg writer puts in the OpusHead header
	oggPreSkip = 3840

	// opusLookahead is the libopus algorithmic delay at 48kHz
	opusLookahead = 312

	// Max Opus packet size
	maxOpusPacket = 4000
)

// frameEncoder is the part of opus.Encoder used per frame
type frameEncoder interface {
	Encode(pcm []int16, data []byte) (int, error)
}

// OggOpusEncoder encodes Opus audio into an Ogg container
type OggOpusEncoder struct {
	encoder   frameEncoder
	resampler *resample.Resampler
	ogg       *oggwriter.OggWriter
	out       bytes.Buffer
	channels  int

	// interleaved 48kHz samples not yet making up a full frame
	pending []int16

	// primeLeft is how much priming silence, per channel, still leads pending
	primeLeft int

	sequence  uint16
	timestamp uint32
	frames    int    // packets written
	delivered uint64 // real samples per channel fed to the encoder
	flushed   bool
}

// NewOggOpus creates a new Ogg Opus encoder.
// Input at any sample rate is resampled to 48kHz.
func NewOggOpus(format audio.Format) (Encoder, error) {
	if format.Codec != CodecOpus {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}
	if err := validateFormat(format); err != nil {
		return nil, err
	}

	encoder, err := opus.NewEncoder(OpusSampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	// 64 kbps per channel
	if err := encoder.SetBitrate(64000 * format.Channels); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}

	e := &OggOpusEncoder{
		encoder:   encoder,
		resampler: resample.New(format.SampleRate, OpusSampleRate, format.Channels),
		channels:  format.Channels,
	}

	// Headers go into the buffer now and leave with the first chunk
	ogg, err := oggwriter.NewWith(&e.out, uint32(format.SampleRate), uint16(format.Channels))
	if err != nil {
		return nil, fmt.Errorf("failed to create ogg writer: %w", err)
	}
	e.ogg = ogg

	// The decoder discards oggPreSkip samples; the encoder itself only delays
	// by opusLookahead, so the difference is primed with silence.
	e.primeLeft = oggPreSkip - opusLookahead
	e.pending = make([]int16, e.primeLeft*format.Channels)

	return e, nil
}

// Encode converts one PCM block. It returns bytes only when at least one
// full 20ms frame could be encoded, plus the stream headers on first output.
func (e *OggOpusEncoder) Encode(block audio.PCMBlock) ([]byte, error) {
	if e.flushed {
		return nil, fmt.Errorf("opus encoder already flushed")
	}
	if err := checkBlock(block, e.channels); err != nil {
		return nil, err
	}

	samples := e.resampler.Process(block.Interleaved())
	e.delivered += uint64(len(samples) / e.channels)
	e.pending = append(e.pending, samples...)

	if err := e.encodeFrames(); err != nil {
		e.dropUnencoded()
		return nil, err
	}
	return e.drain(), nil
}

// dropUnencoded discards the audio left after a failed frame so it is never
// encoded twice. Priming silence stays so the pre-skip still lines up.
func (e *OggOpusEncoder) dropUnencoded() {
	dropped := len(e.pending)/e.channels - e.primeLeft
	if dropped > 0 {
		e.delivered -= uint64(min(dropped, int(e.delivered)))
	}
	e.pending = e.pending[:e.primeLeft*e.channels]
}

// Flush pads the final partial frame with silence and appends trailing
// silent frames until the last page's granule position covers every
// delivered sample.
func (e *OggOpusEncoder) Flush() ([]byte, error) {
	if e.flushed {
		return nil, nil
	}
	e.flushed = true

	frameLen := opusFrameSize * e.channels
	if rem := len(e.pending) % frameLen; rem != 0 {
		e.pending = append(e.pending, make([]int16, frameLen-rem)...)
	}
	if err := e.encodeFrames(); err != nil {
		return nil, err
	}

	// Page k carries granule k*frameSize, so the covered length is
	// (frames-1)*frameSize minus the pre-skip
	for int64(e.frames-1)*opusFrameSize-oggPreSkip < int64(e.delivered) {
		if err := e.encodeFrame(make([]int16, frameLen)); err != nil {
			return nil, err
		}
	}

	if err := e.ogg.Close(); err != nil {
		return nil, fmt.Errorf("failed to close ogg writer: %w", err)
	}
	return e.drain(), nil
}

// MIMEType returns the Ogg Opus container type
func (e *OggOpusEncoder) MIMEType() string {
	return MIMEOggOpus
}

// Close releases resources
func (e *OggOpusEncoder) Close() error {
	// opus.Encoder doesn't have a Close method, nothing to do
	e.pending = nil
	return nil
}

func (e *OggOpusEncoder) encodeFrames() error {
	frameLen := opusFrameSize * e.channels
	consumed := 0
	var err error
	for len(e.pending)-consumed >= frameLen {
		if err = e.encodeFrame(e.pending[consumed : consumed+frameLen]); err != nil {
			break
		}
		consumed += frameLen
		e.primeLeft = max(e.primeLeft-opusFrameSize, 0)
	}
	e.pending = append(e.pending[:0], e.pending[consumed:]...)
	return err
}

func (e *OggOpusEncoder) encodeFrame(pcm []int16) error {
	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.Encode(pcm, data)
	if err != nil {
		return fmt.Errorf("opus encode failed: %w", err)
	}

	// The Ogg writer derives granule positions from RTP timestamps
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SequenceNumber: e.sequence,
			Timestamp:      e.timestamp,
		},
		Payload: data[:n],
	}
	if err := e.ogg.WriteRTP(packet); err != nil {
		return fmt.Errorf("ogg write failed: %w", err)
	}

	e.sequence++
	e.timestamp += opusFrameSize
	e.frames++
	return nil
}

func (e *OggOpusEncoder) drain() []byte {
	if e.out.Len() == 0 {
		return nil
	}
	chunk := append([]byte(nil), e.out.Bytes()...)
	e.out.Reset()
	return chunk
}
