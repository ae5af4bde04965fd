// ABOUTME: Platform recorder package
// ABOUTME: Delegates capture and container encoding to an ffmpeg child process
// Package platform records audio with a recorder the host already has.
//
// The FFmpeg recorder reads the input device itself and writes a finished
// container to its stdout. Container types are negotiated once against a
// preference list by probing the ffmpeg build for muxers and encoders.
//
// Example:
//
//	rec := platform.NewFFmpeg(platform.FFmpegConfig{}, logger)
//	mime, ok := rec.NegotiateMIME(ctx)
//	session, err := rec.Start(ctx, mime, func(chunk []byte) { ... })
//	err = session.Stop() // trailer bytes are delivered before Stop returns
package platform
