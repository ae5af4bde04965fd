// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, FrameBlock, PCMBlock and the sample framer
// Package audio provides the fundamental audio types used by the recorder.
//
// This package defines the types that travel through the capture pipeline:
//   - FrameBlock: normalized float samples per channel, as delivered by a capture device
//   - PCMBlock: signed 16-bit samples per channel, as consumed by encoders
//   - Format: describes an encoded stream (codec, sample rate, channels, bit depth)
//
// The Framer converts FrameBlocks into PCMBlocks. Conversion is bit-exact:
// samples are clamped to [-1, 1], negative values scale by 32768 and
// non-negative values by 32767.
//
// Example:
//
//	framer, err := audio.NewFramer(2)
//	pcm, err := framer.Frame(block)
//	samples := pcm.Interleaved()
package audio
