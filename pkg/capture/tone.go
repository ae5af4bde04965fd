// ABOUTME: Synthetic capture device generating a test tone
// ABOUTME: Paces sine or silent frame blocks in real time on its own goroutine
package capture

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

// ToneConfig configures a tone device
type ToneConfig struct {
	SampleRate  int
	Channels    int
	BlockFrames int

	// Frequency of the sine; zero means 440Hz
	Frequency float64

	// Amplitude in [0, 1]; zero with Silent unset means 0.5
	Amplitude float64
	Silent    bool

	// MaxBlocks stops producing after this many blocks; zero is unlimited
	MaxBlocks int

	// FailAfter reports ErrDisconnected after this many blocks; zero never fails
	FailAfter int

	// Deny makes RequestAccess fail with this error
	Deny error

	// Unpaced delivers blocks as fast as possible instead of in real time
	Unpaced bool
}

// Tone is a synthetic capture device
type Tone struct {
	config ToneConfig
}

// NewTone creates a tone device
func NewTone(config ToneConfig) *Tone {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.Channels <= 0 {
		config.Channels = DefaultChannels
	}
	if config.BlockFrames <= 0 {
		config.BlockFrames = DefaultBufferFrames
	}
	if config.Frequency <= 0 {
		config.Frequency = 440.0 // A4 note
	}
	if config.Amplitude <= 0 && !config.Silent {
		config.Amplitude = 0.5
	}
	return &Tone{config: config}
}

// RequestAccess grants a tone stream unless the device is configured to deny
func (t *Tone) RequestAccess(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.config.Deny != nil {
		return nil, t.config.Deny
	}
	return &toneStream{config: t.config}, nil
}

type toneStream struct {
	config ToneConfig

	mu     sync.Mutex
	source *toneSource
	closed bool
}

func (s *toneStream) Channels() int      { return s.config.Channels }
func (s *toneStream) SampleRate() int    { return s.config.SampleRate }
func (s *toneStream) DeviceName() string { return fmt.Sprintf("tone %.0fHz", s.config.Frequency) }

func (s *toneStream) Open(handler BlockHandler) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("tone stream closed")
	}
	if s.source != nil {
		return nil, fmt.Errorf("tone stream already open")
	}

	s.source = &toneSource{
		config:  s.config,
		handler: handler,
		errCh:   make(chan error, 1),
		stopCh:  make(chan struct{}),
	}
	return s.source, nil
}

func (s *toneStream) Close() error {
	s.mu.Lock()
	source := s.source
	s.closed = true
	s.mu.Unlock()

	if source != nil {
		return source.Stop()
	}
	return nil
}

type toneSource struct {
	config  ToneConfig
	handler BlockHandler
	errCh   chan error

	sampleIndex uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func (s *toneSource) Start() error {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
	return nil
}

func (s *toneSource) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	return nil
}

func (s *toneSource) Err() <-chan error {
	return s.errCh
}

func (s *toneSource) run() {
	defer s.wg.Done()

	interval := time.Duration(s.config.BlockFrames) * time.Second / time.Duration(s.config.SampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for blocks := 0; ; blocks++ {
		if s.config.MaxBlocks > 0 && blocks >= s.config.MaxBlocks {
			return
		}
		if s.config.FailAfter > 0 && blocks >= s.config.FailAfter {
			s.errCh <- ErrDisconnected
			return
		}

		if !s.config.Unpaced {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
			}
		} else {
			select {
			case <-s.stopCh:
				return
			default:
			}
		}

		s.handler(s.nextBlock())
	}
}

func (s *toneSource) nextBlock() audio.FrameBlock {
	frames := s.config.BlockFrames
	channels := make([][]float32, s.config.Channels)
	for ch := range channels {
		channels[ch] = make([]float32, frames)
	}

	if !s.config.Silent {
		for i := 0; i < frames; i++ {
			t := float64(s.sampleIndex+uint64(i)) / float64(s.config.SampleRate)
			sample := float32(s.config.Amplitude * math.Sin(2*math.Pi*s.config.Frequency*t))

			// Duplicate to all channels
			for ch := range channels {
				channels[ch][i] = sample
			}
		}
	}
	s.sampleIndex += uint64(frames)

	return audio.FrameBlock{Channels: channels}
}
