// ABOUTME: Recording session controller package
// ABOUTME: Drives capture, encoding and assembly through one session at a time
// Package recorder controls recording sessions.
//
// A Recorder moves through Idle, RequestingAccess, Capturing and Stopping.
// Start acquires the input device and picks an encoding strategy: either
// a delegated platform recorder that produces a finished container, or
// software encoding of captured frame blocks. Stop drains everything that
// was captured, flushes the encoder, seals the artifact and releases the
// device, in that order, and only once per session.
//
// Example:
//
//	rec, err := recorder.New(recorder.Config{
//		Device: capture.NewMalgo(capture.DeviceConfig{}, logger),
//		Logger: logger,
//	})
//	err = rec.Start(ctx)
//	...
//	art, err := rec.Stop()
package recorder
