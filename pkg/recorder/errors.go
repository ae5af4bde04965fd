// ABOUTME: Recorder error categories
// ABOUTME: Sentinel errors callers test with errors.Is
package recorder

import "errors"

var (
	// ErrDeviceUnavailable means access to the input device was denied or failed
	ErrDeviceUnavailable = errors.New("input device unavailable")

	// ErrUnsupportedPlatform means the host cannot capture or record at all
	ErrUnsupportedPlatform = errors.New("recording not supported on this platform")

	// ErrEncoderInit means no encoder could be built for the session
	ErrEncoderInit = errors.New("encoder initialization failed")

	// ErrBlockEncode marks a single block that could not be encoded
	ErrBlockEncode = errors.New("block encode failed")

	// ErrTeardown means releasing session resources failed
	ErrTeardown = errors.New("session teardown failed")

	// ErrClosed means the recorder was closed and starts no more sessions
	ErrClosed = errors.New("recorder closed")
)
