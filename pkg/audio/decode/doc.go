// ABOUTME: Audio decoder package for reading finished recordings
// ABOUTME: Decodes WAV and Ogg Opus artifacts back to 16-bit PCM
// Package decode reads recorded containers back into PCM.
//
// Supports: WAV (16-bit PCM, including streaming headers), Ogg Opus
//
// Decoders produce interleaved int16 samples plus the stream format. They
// are used for playback and for verifying recordings.
//
// Example:
//
//	decoded, err := decode.Decode(artifact.MIMEType(), artifact.Bytes())
//	frames := decoded.Frames()
package decode
