// ABOUTME: Audio capture package
// ABOUTME: Provides capture devices and the bridge between audio threads and consumers
// Package capture acquires live audio from input devices.
//
// A Device grants access to a Stream. Opening the stream with a
// BlockHandler yields a Source whose callbacks deliver FrameBlocks on
// the device's own thread. Callbacks must not block, so they hand blocks
// to a Bridge, which a single consumer goroutine drains in order.
//
// Backends:
//   - NewMalgo: miniaudio via malgo (default)
//   - NewPortAudio: PortAudio (build with -tags portaudio)
//   - NewTone: synthetic sine or silence, paced in real time
//
// Example:
//
//	stream, err := capture.NewMalgo(capture.DeviceConfig{}).RequestAccess(ctx)
//	bridge := capture.NewBridge[audio.FrameBlock](capture.BridgeConfig{})
//	src, err := stream.Open(func(b audio.FrameBlock) { bridge.Deliver(b) })
//	err = src.Start()
package capture
