// ABOUTME: Delegated encoding strategy
// ABOUTME: Collects container chunks produced by the platform recorder
package recorder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/platform"
)

type delegatedStrategy struct {
	logger   *zap.Logger
	observer Observer
	counters *counters

	recorder platform.Recorder
	mimeType string
	bridge   *capture.Bridge[[]byte]
	session  platform.Session
	failed   chan error
}

func (r *Recorder) newDelegated(rec platform.Recorder, mimeType string, counters *counters) Strategy {
	r.logger.Info("delegating to platform recorder", zap.String("mime_type", mimeType))

	return &delegatedStrategy{
		logger:   r.logger,
		observer: r.observer,
		counters: counters,
		recorder: rec,
		mimeType: mimeType,
		bridge:   capture.NewBridge[[]byte](r.bridgeConfig()),
		failed:   make(chan error),
	}
}

func (d *delegatedStrategy) Name() string     { return string(StrategyDelegated) }
func (d *delegatedStrategy) MIMEType() string { return d.mimeType }

func (d *delegatedStrategy) Start(ctx context.Context) error {
	session, err := d.recorder.Start(ctx, d.mimeType, func(chunk []byte) {
		if d.bridge.Deliver(chunk) {
			d.observer.BlockReceived()
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
	}
	d.session = session
	return nil
}

func (d *delegatedStrategy) Run(ctx context.Context, sink ChunkSink) {
	for {
		chunk, ok := d.bridge.Receive(ctx)
		if !ok {
			return
		}
		d.counters.received.Add(1)
		d.counters.encoded.Add(1)
		d.observer.QueueDepth(d.bridge.Pending())
		d.observer.BlockEncoded(len(chunk))
		sink(chunk)
	}
}

// Disconnect stops the platform recorder, which delivers its trailer
// before returning, and only then closes the bridge
func (d *delegatedStrategy) Disconnect() {
	if d.session != nil {
		if err := d.session.Stop(); err != nil {
			d.logger.Warn("platform recorder stop failed", zap.Error(err))
		}
	}
	d.bridge.Disconnect()
}

// Finalize has nothing to add; the platform recorder wrote the trailer
func (d *delegatedStrategy) Finalize() ([]byte, error) {
	return nil, nil
}

func (d *delegatedStrategy) Close() error {
	return nil
}

func (d *delegatedStrategy) Failed() <-chan error {
	if d.session == nil {
		return d.failed
	}
	return d.session.Err()
}

func (d *delegatedStrategy) Queue() (int, uint64) {
	return d.bridge.Pending(), d.bridge.Dropped()
}
