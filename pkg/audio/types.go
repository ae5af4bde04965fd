// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, captured float blocks and 16-bit PCM blocks
package audio

import (
	"fmt"
	"math"
)

const (
	// 16-bit PCM range constants
	MaxInt16 = 32767
	MinInt16 = -32768
)

// Format describes an audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// FrameBlock is one callback's worth of captured audio: one buffer of
// normalized float samples per channel, all the same length.
type FrameBlock struct {
	Channels [][]float32
}

// NewFrameBlock copies per-channel buffers into a new block.
// Capture backends reuse their buffers, so delivered blocks must own their memory.
func NewFrameBlock(channels [][]float32) FrameBlock {
	out := make([][]float32, len(channels))
	for i, ch := range channels {
		out[i] = append([]float32(nil), ch...)
	}
	return FrameBlock{Channels: out}
}

// Deinterleave splits interleaved float samples into a FrameBlock
func Deinterleave(samples []float32, channels int) FrameBlock {
	if channels <= 0 {
		return FrameBlock{}
	}

	frames := len(samples) / channels
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[ch][i] = samples[i*channels+ch]
		}
	}
	return FrameBlock{Channels: out}
}

// NumChannels returns the number of channel buffers
func (b FrameBlock) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of samples per channel
func (b FrameBlock) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Validate checks that the block has at least one channel and equal-length channels
func (b FrameBlock) Validate() error {
	if len(b.Channels) == 0 {
		return fmt.Errorf("frame block has no channels")
	}
	n := len(b.Channels[0])
	for i, ch := range b.Channels[1:] {
		if len(ch) != n {
			return fmt.Errorf("channel %d has %d samples, channel 0 has %d", i+1, len(ch), n)
		}
	}
	return nil
}

// PCMBlock holds signed 16-bit samples per channel
type PCMBlock struct {
	Channels [][]int16
}

// NumChannels returns the number of channel buffers
func (b PCMBlock) NumChannels() int {
	return len(b.Channels)
}

// Len returns the number of samples per channel
func (b PCMBlock) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Interleaved returns the samples interleaved frame by frame (L R L R ...)
func (b PCMBlock) Interleaved() []int16 {
	channels := len(b.Channels)
	frames := b.Len()
	out := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = b.Channels[ch][i]
		}
	}
	return out
}

// FloatToInt16 converts a normalized float sample to 16-bit PCM.
// Scaling is asymmetric around zero: negative values scale by 32768 and
// non-negative values by 32767. Out-of-range input is clamped, NaN maps to 0.
func FloatToInt16(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}

	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

// Int16ToFloat converts a 16-bit PCM sample back to a normalized float
func Int16ToFloat(s int16) float32 {
	if s < 0 {
		return float32(s) / 32768
	}
	return float32(s) / 32767
}
