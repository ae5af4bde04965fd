//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package capture

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// PortAudio capture device (stub)
type PortAudio struct{}

// NewPortAudio creates a PortAudio capture device
func NewPortAudio(config DeviceConfig, logger *zap.Logger) *PortAudio {
	return &PortAudio{}
}

// RequestAccess always fails without the portaudio build tag
func (p *PortAudio) RequestAccess(ctx context.Context) (Stream, error) {
	return nil, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrUnsupportedPlatform)
}
