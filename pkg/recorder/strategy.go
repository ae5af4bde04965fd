// ABOUTME: Encoding strategy contract and selection
// ABOUTME: Chooses between delegated platform recording and software encoding
package recorder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/platform"
)

// StrategyMode selects how a session encodes
type StrategyMode string

const (
	// StrategyAuto delegates when the platform recorder supports a
	// preferred container, and encodes in software otherwise
	StrategyAuto StrategyMode = "auto"

	// StrategyDelegated always uses the platform recorder
	StrategyDelegated StrategyMode = "delegated"

	// StrategySoftware always encodes captured blocks in software
	StrategySoftware StrategyMode = "software"
)

// ParseStrategyMode converts a configuration value to a StrategyMode
func ParseStrategyMode(s string) (StrategyMode, error) {
	switch StrategyMode(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyDelegated, StrategySoftware:
		return StrategyMode(s), nil
	default:
		return "", fmt.Errorf("unknown strategy: %q (supported: auto, delegated, software)", s)
	}
}

// ChunkSink receives encoded chunks in order
type ChunkSink func(chunk []byte)

// Strategy produces encoded chunks for one session
type Strategy interface {
	// Name identifies the strategy in logs and metrics
	Name() string

	// MIMEType is the container type of the produced bytes
	MIMEType() string

	// Start begins capturing
	Start(ctx context.Context) error

	// Run passes encoded chunks to sink until the capture side has been
	// disconnected and everything admitted before that has been handled
	Run(ctx context.Context, sink ChunkSink)

	// Disconnect stops admitting captured data. Data admitted before it
	// returns is still handled by Run.
	Disconnect()

	// Finalize returns trailing bytes once Run has returned
	Finalize() ([]byte, error)

	// Close releases strategy resources
	Close() error

	// Failed reports a capture failure while running
	Failed() <-chan error

	// Queue reports admitted-but-unhandled items and items dropped so far
	Queue() (pending int, dropped uint64)
}

// selectStrategy builds the strategy for a session on stream
func (r *Recorder) selectStrategy(ctx context.Context, stream capture.Stream, counters *counters) (Strategy, error) {
	rec := r.config.Platform

	switch r.config.Strategy {
	case StrategySoftware:
		return r.newSoftware(stream, counters)

	case StrategyDelegated:
		if rec == nil || !rec.Available() {
			return nil, fmt.Errorf("%w: no platform recorder available", ErrUnsupportedPlatform)
		}
		mimeType, ok := rec.NegotiateMIME(ctx)
		if !ok {
			r.logger.Warn("no preferred container supported, using platform default",
				zap.String("mime_type", platform.MIMEFallback))
			mimeType = platform.MIMEFallback
		}
		return r.newDelegated(rec, mimeType, counters), nil

	default:
		if rec != nil && rec.Available() {
			if mimeType, ok := rec.NegotiateMIME(ctx); ok {
				return r.newDelegated(rec, mimeType, counters), nil
			}
			r.logger.Info("platform recorder supports no preferred container, encoding in software")
		}
		return r.newSoftware(stream, counters)
	}
}

func (r *Recorder) bridgeConfig() capture.BridgeConfig {
	return capture.BridgeConfig{
		Policy:    r.config.Backpressure,
		Capacity:  r.config.QueueCapacity,
		HighWater: r.config.HighWater,
		OnHighWater: func(depth int) {
			r.logger.Warn("capture queue backing up", zap.Int("pending", depth))
		},
	}
}
