// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output interface and an oto implementation
// Package output plays back finished recordings.
//
// Decoded 16-bit PCM is streamed to the oto player through a pipe.
//
// Example:
//
//	out := output.NewOto(logger)
//	err := out.Open(48000, 2)
//	err = out.Write(samples)
//	out.Drain()
package output
