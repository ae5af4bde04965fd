//go:build portaudio

// ABOUTME: PortAudio capture device
// ABOUTME: Captures non-interleaved float32 audio through PortAudio callbacks
package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

// PortAudio is a capture device backed by PortAudio
type PortAudio struct {
	config DeviceConfig
	logger *zap.Logger
}

// NewPortAudio creates a PortAudio capture device
func NewPortAudio(config DeviceConfig, logger *zap.Logger) *PortAudio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortAudio{
		config: config.withDefaults(),
		logger: logger,
	}
}

// RequestAccess initializes PortAudio and opens the input stream
func (p *PortAudio) RequestAccess(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize portaudio: %v", ErrUnsupportedPlatform, err)
	}

	info, err := p.findDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	channels := p.config.Channels
	if info.MaxInputChannels < channels {
		channels = info.MaxInputChannels
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = channels
	params.SampleRate = float64(p.config.SampleRate)
	params.FramesPerBuffer = p.config.BufferFrames

	s := &portAudioStream{
		name:       info.Name,
		channels:   channels,
		sampleRate: p.config.SampleRate,
		errCh:      make(chan error, 1),
	}

	// Buffers are reused between callbacks, so each block is copied
	stream, err := portaudio.OpenStream(params, func(in [][]float32) {
		handler := s.handler.Load()
		if handler == nil {
			return
		}
		(*handler)(audio.NewFrameBlock(in))
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open input stream: %v", ErrDeviceUnavailable, err)
	}
	s.stream = stream

	p.logger.Info("capture device opened",
		zap.String("device", info.Name),
		zap.Int("sample_rate", s.sampleRate),
		zap.Int("channels", channels))

	return s, nil
}

func (p *PortAudio) findDevice() (*portaudio.DeviceInfo, error) {
	if p.config.Name == "" {
		info, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %v", ErrDeviceUnavailable, err)
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to enumerate devices: %v", ErrDeviceUnavailable, err)
	}
	for _, info := range devices {
		if info.MaxInputChannels > 0 && strings.Contains(strings.ToLower(info.Name), strings.ToLower(p.config.Name)) {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: no input device matching %q", ErrDeviceUnavailable, p.config.Name)
}

type portAudioStream struct {
	stream     *portaudio.Stream
	name       string
	channels   int
	sampleRate int

	handler atomic.Pointer[BlockHandler]
	errCh   chan error

	mu        sync.Mutex
	started   bool
	closeOnce sync.Once
	closeErr  error
}

func (s *portAudioStream) Channels() int      { return s.channels }
func (s *portAudioStream) SampleRate() int    { return s.sampleRate }
func (s *portAudioStream) DeviceName() string { return s.name }

func (s *portAudioStream) Open(handler BlockHandler) (Source, error) {
	if !s.handler.CompareAndSwap(nil, &handler) {
		return nil, fmt.Errorf("capture stream already open")
	}
	return s, nil
}

func (s *portAudioStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	s.started = true
	return nil
}

func (s *portAudioStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

func (s *portAudioStream) Err() <-chan error {
	return s.errCh
}

func (s *portAudioStream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.Stop(); err != nil {
			s.closeErr = err
		}
		if err := s.stream.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
		if err := portaudio.Terminate(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
