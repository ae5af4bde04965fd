// ABOUTME: Recorder application orchestration
// ABOUTME: Builds the device, platform recorder and session controller from config and runs them
package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/internal/config"
	"github.com/Resonate-Protocol/resonate-recorder/internal/export"
	"github.com/Resonate-Protocol/resonate-recorder/internal/metrics"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/platform"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/recorder"
)

// App wires one recorder to its collaborators
type App struct {
	config   *config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	recorder *recorder.Recorder
	exporter *export.File

	mu        sync.RWMutex
	sinks     []recorder.StatusSink
	listeners []func(*artifact.Artifact, string)
}

// New builds an App. device overrides the configured capture backend when
// non-nil, which tests use to inject a tone or fake device.
func New(cfg *config.Config, device capture.Device, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var err error
	if device == nil {
		if device, err = NewDevice(cfg.Capture, logger); err != nil {
			return nil, err
		}
	}

	a := &App{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}
	if cfg.Export.Save {
		a.exporter = export.NewFile(cfg.Export.Dir, logger)
	}

	rc := recorder.Config{
		Device:        device,
		Strategy:      cfg.Recorder.StrategyMode(),
		Codec:         cfg.Recorder.Codec,
		Channels:      cfg.Recorder.Channels,
		Backpressure:  cfg.Recorder.Policy(),
		QueueCapacity: cfg.Recorder.QueueCapacity,
		HighWater:     cfg.Recorder.HighWater,
		Status:        recorder.MultiStatus(recorder.LogStatus(logger), recorder.StatusFunc(a.broadcastStatus)),
		OnArtifact:    a.handleArtifact,
		Logger:        logger,
		Observer:      a.metrics,
	}
	if cfg.Platform.Enabled {
		rc.Platform = NewPlatform(cfg.Platform, cfg.Capture, logger)
	}

	if a.recorder, err = recorder.New(rc); err != nil {
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}
	return a, nil
}

// NewDevice builds the configured capture backend
func NewDevice(cfg config.CaptureConfig, logger *zap.Logger) (capture.Device, error) {
	dc := capture.DeviceConfig{
		Name:         cfg.Device,
		SampleRate:   cfg.SampleRate,
		Channels:     cfg.Channels,
		BufferFrames: cfg.BufferFrames,
	}

	switch cfg.Backend {
	case config.BackendMalgo:
		return capture.NewMalgo(dc, logger), nil
	case config.BackendPortAudio:
		return capture.NewPortAudio(dc, logger), nil
	case config.BackendTone:
		return capture.NewTone(capture.ToneConfig{
			SampleRate:  cfg.SampleRate,
			Channels:    cfg.Channels,
			BlockFrames: cfg.BufferFrames,
			Frequency:   cfg.ToneFrequency,
		}), nil
	default:
		return nil, fmt.Errorf("unknown capture backend: %q", cfg.Backend)
	}
}

// NewPlatform builds the delegated ffmpeg recorder
func NewPlatform(cfg config.PlatformConfig, capt config.CaptureConfig, logger *zap.Logger) *platform.FFmpeg {
	return platform.NewFFmpeg(platform.FFmpegConfig{
		Path:        cfg.FFmpegPath,
		InputFormat: cfg.InputFormat,
		InputDevice: cfg.InputDevice,
		SampleRate:  capt.SampleRate,
		Channels:    capt.Channels,
		StopTimeout: cfg.StopTimeout,
	}, logger)
}

// Recorder returns the session controller
func (a *App) Recorder() *recorder.Recorder {
	return a.recorder
}

// Metrics returns the metrics the recorder reports to
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// AddStatusSink subscribes sink to status messages
func (a *App) AddStatusSink(sink recorder.StatusSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, sink)
}

// OnArtifact subscribes fn to finished recordings. path is where the
// recording was saved, or "" when saving is off or failed.
func (a *App) OnArtifact(fn func(art *artifact.Artifact, path string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Close stops any active session
func (a *App) Close() error {
	return a.recorder.Close()
}

func (a *App) broadcastStatus(message string) {
	a.mu.RLock()
	sinks := append([]recorder.StatusSink(nil), a.sinks...)
	a.mu.RUnlock()

	for _, s := range sinks {
		s.SetStatus(message)
	}
}

func (a *App) handleArtifact(art *artifact.Artifact) {
	var path string
	if a.exporter != nil {
		saved, err := a.exporter.Save(art)
		if err != nil {
			a.logger.Error("failed to save recording", zap.Error(err))
		} else {
			path = saved
		}
	}

	a.mu.RLock()
	listeners := append([]func(*artifact.Artifact, string)(nil), a.listeners...)
	a.mu.RUnlock()

	for _, fn := range listeners {
		fn(art, path)
	}
}
