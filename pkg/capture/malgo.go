// ABOUTME: Malgo-based capture device
// ABOUTME: Captures float32 audio through miniaudio and deinterleaves it into frame blocks
package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
)

// Malgo is a capture device backed by miniaudio
type Malgo struct {
	config DeviceConfig
	logger *zap.Logger
}

// NewMalgo creates a malgo capture device
func NewMalgo(config DeviceConfig, logger *zap.Logger) *Malgo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Malgo{
		config: config.withDefaults(),
		logger: logger,
	}
}

// ListMalgoDevices returns the available capture devices
func ListMalgoDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// RequestAccess initializes the capture device. Opening the device is
// where the operating system enforces microphone permission.
func (m *Malgo) RequestAccess(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.logger.Debug("miniaudio", zap.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize malgo context: %v", ErrUnsupportedPlatform, err)
	}

	s := &malgoStream{
		logger:   m.logger,
		malgoCtx: malgoCtx,
		stopped:  make(chan struct{}),
		errCh:    make(chan error, 1),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(m.config.Channels)
	deviceConfig.SampleRate = uint32(m.config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.config.BufferFrames)
	deviceConfig.Alsa.NoMMap = 1

	name := "default"
	if m.config.Name != "" {
		info, err := findMalgoDevice(malgoCtx, m.config.Name)
		if err != nil {
			s.freeContext()
			return nil, err
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
		name = info.Name()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			s.dataCallback(input, frameCount)
		},
		Stop: s.stopCallback,
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		s.freeContext()
		return nil, fmt.Errorf("%w: failed to initialize capture device: %v", ErrDeviceUnavailable, err)
	}

	s.device = device
	s.name = name
	s.channels = int(device.CaptureChannels())
	s.sampleRate = int(device.SampleRate())

	m.logger.Info("capture device opened",
		zap.String("device", name),
		zap.Int("sample_rate", s.sampleRate),
		zap.Int("channels", s.channels))

	return s, nil
}

func findMalgoDevice(ctx *malgo.AllocatedContext, name string) (malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("%w: failed to enumerate capture devices: %v", ErrDeviceUnavailable, err)
	}
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(name)) {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("%w: no capture device matching %q", ErrDeviceUnavailable, name)
}

type malgoStream struct {
	logger   *zap.Logger
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	name       string
	channels   int
	sampleRate int

	handler  atomic.Pointer[BlockHandler]
	stopping atomic.Bool
	stopped  chan struct{}
	errCh    chan error

	mu        sync.Mutex
	started   bool
	closeOnce sync.Once
	closeErr  error
}

func (s *malgoStream) Channels() int      { return s.channels }
func (s *malgoStream) SampleRate() int    { return s.sampleRate }
func (s *malgoStream) DeviceName() string { return s.name }

func (s *malgoStream) Open(handler BlockHandler) (Source, error) {
	if !s.handler.CompareAndSwap(nil, &handler) {
		return nil, fmt.Errorf("capture stream already open")
	}
	return s, nil
}

// Start begins delivering blocks to the handler
func (s *malgoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	s.started = true
	return nil
}

// Stop halts the device; the handler receives no blocks after it returns
func (s *malgoStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.stopping.Store(true)
	s.started = false
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (s *malgoStream) Err() <-chan error {
	return s.errCh
}

// Close releases the device and the malgo context
func (s *malgoStream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.Stop(); err != nil {
			s.closeErr = err
		}
		s.device.Uninit()
		s.freeContext()
	})
	return s.closeErr
}

func (s *malgoStream) freeContext() {
	if err := s.malgoCtx.Uninit(); err != nil {
		s.logger.Warn("malgo context uninit error", zap.Error(err))
	}
	s.malgoCtx.Free()
}

// dataCallback runs on the audio thread
func (s *malgoStream) dataCallback(input []byte, frameCount uint32) {
	handler := s.handler.Load()
	if handler == nil || s.stopping.Load() {
		return
	}

	total := int(frameCount) * s.channels
	if len(input) < total*4 {
		total = len(input) / 4
	}
	samples := make([]float32, total)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
	}

	(*handler)(audio.Deinterleave(samples, s.channels))
}

// stopCallback runs when miniaudio stops the device, including on unplug
func (s *malgoStream) stopCallback() {
	if s.stopping.Load() {
		return
	}
	select {
	case s.errCh <- ErrDisconnected:
	default:
	}
}
