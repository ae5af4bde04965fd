// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries interpolation state across blocks so block boundaries are seamless
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It is stateful: consecutive calls to Process continue the same signal.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64

	// position of the next output frame, in input frames relative to the
	// first frame of the working buffer
	position float64

	// last input frame of the previous call, prepended to the next call
	lastFrame []int16
	primed    bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]int16, channels),
	}
}

// Passthrough reports whether input and output rates are equal
func (r *Resampler) Passthrough() bool {
	return r.inputRate == r.outputRate
}

// Process converts interleaved input samples at inputRate to interleaved
// output samples at outputRate. The final input frame of each call is held
// back as interpolation history for the next call.
func (r *Resampler) Process(input []int16) []int16 {
	if r.Passthrough() {
		return append([]int16(nil), input...)
	}

	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return nil
	}

	src := input[:inputFrames*r.channels]
	if r.primed {
		src = make([]int16, 0, (inputFrames+1)*r.channels)
		src = append(src, r.lastFrame...)
		src = append(src, input[:inputFrames*r.channels]...)
	}
	frames := len(src) / r.channels

	output := make([]int16, 0, (int(float64(frames)/r.ratio)+1)*r.channels)

	for {
		idx := int(r.position)
		if idx+1 >= frames {
			break
		}

		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			sample1 := float64(src[idx*r.channels+ch])
			sample2 := float64(src[(idx+1)*r.channels+ch])
			output = append(output, int16(sample1*(1.0-frac)+sample2*frac))
		}

		r.position += r.ratio
	}

	// The last frame becomes frame 0 of the next working buffer
	r.position -= float64(frames - 1)
	copy(r.lastFrame, src[(frames-1)*r.channels:])
	r.primed = true

	return output
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.primed = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputFramesFor estimates how many output frames inputFrames will produce
func (r *Resampler) OutputFramesFor(inputFrames int) int {
	return int(float64(inputFrames) / r.ratio)
}
