// ABOUTME: Audio encoder package for encoding PCM to container formats
// ABOUTME: Provides Encoder interface and implementations for Ogg Opus and WAV
// Package encode provides incremental audio encoders.
//
// Supports: Ogg Opus (libopus, 20ms frames at 48kHz), WAV (16-bit PCM)
//
// Encoders accept audio.PCMBlock values one at a time and return whatever
// container bytes are ready. Flush finishes the stream.
//
// Example:
//
//	encoder, err := encode.New(audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2})
//	chunk, err := encoder.Encode(block)
//	trailer, err := encoder.Flush()
package encode
