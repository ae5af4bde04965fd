// ABOUTME: Software encoding strategy
// ABOUTME: Frames captured float blocks to PCM and feeds them to an incremental encoder
package recorder

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
)

type softwareStrategy struct {
	logger   *zap.Logger
	observer Observer
	counters *counters

	source  capture.Source
	bridge  *capture.Bridge[audio.FrameBlock]
	framer  *audio.Framer
	encoder encode.Encoder

	warnedExtra bool
}

func (r *Recorder) newSoftware(stream capture.Stream, counters *counters) (Strategy, error) {
	channels := r.config.Channels
	if channels == 0 {
		channels = min(stream.Channels(), 2)
	}

	framer, err := audio.NewFramer(channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderInit, err)
	}

	format := audio.Format{
		Codec:      r.config.Codec,
		SampleRate: stream.SampleRate(),
		Channels:   channels,
		BitDepth:   16,
	}
	encoder, err := r.config.NewEncoder(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderInit, err)
	}

	s := &softwareStrategy{
		logger:   r.logger,
		observer: r.observer,
		counters: counters,
		bridge:   capture.NewBridge[audio.FrameBlock](r.bridgeConfig()),
		framer:   framer,
		encoder:  encoder,
	}

	source, err := stream.Open(func(block audio.FrameBlock) {
		// Runs on the device thread; blocks after Disconnect are discarded
		if s.bridge.Deliver(block) {
			s.observer.BlockReceived()
		}
	})
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to open capture stream: %w", err)
	}
	s.source = source

	r.logger.Info("software encoding",
		zap.String("codec", format.Codec),
		zap.Int("input_channels", stream.Channels()),
		zap.Int("output_channels", channels),
		zap.Int("sample_rate", format.SampleRate))

	return s, nil
}

func (s *softwareStrategy) Name() string     { return string(StrategySoftware) }
func (s *softwareStrategy) MIMEType() string { return s.encoder.MIMEType() }

func (s *softwareStrategy) Start(ctx context.Context) error {
	return s.source.Start()
}

func (s *softwareStrategy) Run(ctx context.Context, sink ChunkSink) {
	for {
		block, ok := s.bridge.Receive(ctx)
		if !ok {
			return
		}
		s.counters.received.Add(1)
		s.observer.QueueDepth(s.bridge.Pending())

		chunk, err := s.encodeBlock(block)
		if err != nil {
			s.counters.faults.Add(1)
			s.observer.BlockFault()
			s.logger.Warn("skipping block", zap.Error(err))
			continue
		}
		s.counters.encoded.Add(1)
		s.observer.BlockEncoded(len(chunk))
		sink(chunk)
	}
}

func (s *softwareStrategy) encodeBlock(block audio.FrameBlock) ([]byte, error) {
	if block.NumChannels() > 2 && !s.warnedExtra {
		s.warnedExtra = true
		s.logger.Warn("input has more than two channels, extra channels are ignored",
			zap.Int("channels", block.NumChannels()))
	}

	pcm, err := s.framer.Frame(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockEncode, err)
	}
	chunk, err := s.encoder.Encode(pcm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockEncode, err)
	}
	return chunk, nil
}

func (s *softwareStrategy) Disconnect() {
	s.bridge.Disconnect()
}

func (s *softwareStrategy) Finalize() ([]byte, error) {
	chunk, err := s.encoder.Flush()
	if err != nil {
		return nil, fmt.Errorf("failed to flush encoder: %w", err)
	}
	return chunk, nil
}

func (s *softwareStrategy) Close() error {
	return multierr.Combine(
		s.source.Stop(),
		s.encoder.Close(),
	)
}

func (s *softwareStrategy) Failed() <-chan error {
	return s.source.Err()
}

func (s *softwareStrategy) Queue() (int, uint64) {
	return s.bridge.Pending(), s.bridge.Dropped()
}
