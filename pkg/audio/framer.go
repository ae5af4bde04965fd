// ABOUTME: Sample framer converting captured float blocks into encoder PCM
// ABOUTME: Applies 16-bit conversion and maps input channels onto mono or stereo output
package audio

import "fmt"

// Framer converts FrameBlocks into PCMBlocks with a fixed output channel count.
//
// Channel mapping:
//   - mono output takes channel 0
//   - stereo output takes channel 0 as left and channel 1 as right, or
//     channel 0 again when only one channel is present
//
// Input channels beyond the second are not used.
type Framer struct {
	outChannels int
}

// NewFramer creates a framer producing outChannels (1 or 2) channels
func NewFramer(outChannels int) (*Framer, error) {
	if outChannels != 1 && outChannels != 2 {
		return nil, fmt.Errorf("unsupported output channel count: %d (supported: 1, 2)", outChannels)
	}
	return &Framer{outChannels: outChannels}, nil
}

// OutputChannels returns the number of channels in produced blocks
func (f *Framer) OutputChannels() int {
	return f.outChannels
}

// Frame converts one block. The block must pass Validate.
func (f *Framer) Frame(block FrameBlock) (PCMBlock, error) {
	if err := block.Validate(); err != nil {
		return PCMBlock{}, err
	}

	out := make([][]int16, f.outChannels)
	for ch := range out {
		src := block.Channels[0]
		if ch == 1 && len(block.Channels) > 1 {
			src = block.Channels[1]
		}
		out[ch] = convert(src)
	}
	return PCMBlock{Channels: out}, nil
}

func convert(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = FloatToInt16(s)
	}
	return out
}
