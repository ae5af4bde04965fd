// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts captured audio to the rate an encoder requires
// Package resample provides streaming audio sample rate conversion.
//
// Uses linear interpolation on interleaved 16-bit samples. State is kept
// between calls so a capture stream can be resampled block by block.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := r.Process(interleaved)
package resample
