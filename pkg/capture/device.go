// ABOUTME: Capture device abstractions
// ABOUTME: Device grants access to a Stream; a Stream opens a Source of frame blocks
package capture

import (
	"context"
	"errors"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

var (
	// ErrDeviceUnavailable means access was denied or no input device exists
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrUnsupportedPlatform means the host has no usable audio input facility
	ErrUnsupportedPlatform = errors.New("audio capture not supported on this platform")

	// ErrDisconnected means a running source stopped delivering unexpectedly
	ErrDisconnected = errors.New("capture source disconnected")
)

// Defaults applied to a zero DeviceConfig
const (
	DefaultSampleRate   = 48000
	DefaultChannels     = 1
	DefaultBufferFrames = 1024
)

// BlockHandler receives frame blocks on the device's thread. It must not block.
type BlockHandler func(block audio.FrameBlock)

// Device is an input device that can be asked for access
type Device interface {
	// RequestAccess acquires the device. It is the only call that may
	// wait on the user or the operating system.
	RequestAccess(ctx context.Context) (Stream, error)
}

// Stream is granted access to an input device
type Stream interface {
	Channels() int
	SampleRate() int
	DeviceName() string

	// Open attaches handler and returns the source feeding it
	Open(handler BlockHandler) (Source, error)

	// Close releases the device
	Close() error
}

// Source produces frame blocks once started
type Source interface {
	Start() error
	Stop() error

	// Err reports a failure after Start; nil errors are never sent
	Err() <-chan error
}

// DeviceConfig selects and configures a hardware input
type DeviceConfig struct {
	// Name matches a device by substring; empty selects the default input
	Name         string
	SampleRate   int
	Channels     int
	BufferFrames int
}

func (c DeviceConfig) withDefaults() DeviceConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = DefaultChannels
	}
	if c.BufferFrames <= 0 {
		c.BufferFrames = DefaultBufferFrames
	}
	return c
}

// DeviceInfo describes an available input device
type DeviceInfo struct {
	Name      string
	IsDefault bool
}
