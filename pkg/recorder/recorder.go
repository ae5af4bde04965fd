// ABOUTME: Recording session controller
// ABOUTME: State machine that owns device access, encoding and artifact assembly
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/platform"
)

// DefaultHighWater is the pending-block depth that triggers a warning
const DefaultHighWater = 256

// Config configures a Recorder
type Config struct {
	// Device is the input device (required)
	Device capture.Device

	// Platform is an optional delegated recorder
	Platform platform.Recorder

	// Strategy defaults to StrategyAuto
	Strategy StrategyMode

	// Codec for software encoding; defaults to Opus
	Codec string

	// Channels is the software output channel count (1 or 2); zero
	// follows the device, capped at two
	Channels int

	Backpressure  capture.Policy
	QueueCapacity int
	HighWater     int

	// Status receives user-facing messages
	Status StatusSink

	// OnArtifact is called with every finished artifact
	OnArtifact func(*artifact.Artifact)

	Logger   *zap.Logger
	Observer Observer

	// NewEncoder builds software encoders; defaults to encode.New
	NewEncoder func(audio.Format) (encode.Encoder, error)
}

// Recorder runs one recording session at a time
type Recorder struct {
	config   Config
	logger   *zap.Logger
	observer Observer
	status   StatusSink

	mu        sync.Mutex
	state     State
	closed    bool
	session   *session
	last      *artifact.Artifact
	lastStats Stats
}

// session is the state of one recording from grant to teardown
type session struct {
	id        string
	stream    capture.Stream
	strategy  Strategy
	assembler *artifact.Assembler
	counters  *counters
	startedAt time.Time

	consumerDone chan struct{}
	stopping     chan struct{}
}

// New creates a Recorder
func New(config Config) (*Recorder, error) {
	if config.Device == nil {
		return nil, fmt.Errorf("capture device is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}
	if config.Status == nil {
		config.Status = StatusFunc(func(string) {})
	}
	if config.Strategy == "" {
		config.Strategy = StrategyAuto
	}
	if config.Codec == "" {
		config.Codec = encode.CodecOpus
	}
	if config.Channels < 0 || config.Channels > 2 {
		return nil, fmt.Errorf("unsupported output channel count: %d (supported: 1, 2)", config.Channels)
	}
	if config.HighWater == 0 {
		config.HighWater = DefaultHighWater
	}
	if config.NewEncoder == nil {
		config.NewEncoder = encode.New
	}

	return &Recorder{
		config:   config,
		logger:   config.Logger,
		observer: config.Observer,
		status:   config.Status,
		state:    StateIdle,
	}, nil
}

// State returns the current state
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SessionID returns the active session's ID, or "" when idle
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.id
}

// LastArtifact returns the most recent finished artifact
func (r *Recorder) LastArtifact() *artifact.Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Stats returns statistics for the active session, or the last one
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		stats := r.lastStats
		stats.State = r.state.String()
		return stats
	}
	return r.snapshot(r.session)
}

// snapshot must be called with r.mu held
func (r *Recorder) snapshot(s *session) Stats {
	pending, dropped := s.strategy.Queue()
	return Stats{
		SessionID:      s.id,
		State:          r.state.String(),
		Strategy:       s.strategy.Name(),
		MIMEType:       s.strategy.MIMEType(),
		StartedAt:      s.startedAt,
		Duration:       time.Since(s.startedAt),
		BlocksReceived: s.counters.received.Load(),
		BlocksEncoded:  s.counters.encoded.Load(),
		BlockFaults:    s.counters.faults.Load(),
		BlocksDropped:  dropped,
		Pending:        pending,
		BytesEncoded:   s.counters.bytes.Load(),
	}
}

// Start requests the input device and begins capturing. It does nothing
// unless the recorder is idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.state != StateIdle {
		state := r.state
		r.mu.Unlock()
		r.logger.Debug("start ignored", zap.Stringer("state", state))
		return nil
	}
	r.state = StateRequestingAccess
	r.mu.Unlock()

	r.status.SetStatus(StatusRequesting)

	stream, err := r.config.Device.RequestAccess(ctx)
	if err != nil {
		return r.abortStart(accessError(err), err)
	}
	if r.isClosed() {
		return r.abortClosed(stream.Close())
	}
	r.status.SetStatus(StatusGranted)

	counters := &counters{}
	strategy, err := r.selectStrategy(ctx, stream, counters)
	if err != nil {
		return r.abortStart(err, multierr.Append(err, stream.Close()))
	}

	if err := strategy.Start(ctx); err != nil {
		cause := multierr.Combine(err, strategy.Close(), stream.Close())
		if !errors.Is(err, ErrUnsupportedPlatform) {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		return r.abortStart(err, cause)
	}

	s := &session{
		id:           uuid.New().String(),
		stream:       stream,
		strategy:     strategy,
		assembler:    artifact.NewAssembler(strategy.MIMEType()),
		counters:     counters,
		startedAt:    time.Now(),
		consumerDone: make(chan struct{}),
		stopping:     make(chan struct{}),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		strategy.Disconnect()
		return r.abortClosed(multierr.Combine(strategy.Close(), stream.Close()))
	}
	r.session = s
	r.state = StateCapturing
	r.mu.Unlock()

	go r.consume(s)
	go r.watch(s)

	r.observer.SessionStarted(strategy.Name(), strategy.MIMEType())
	r.logger.Info("recording started",
		zap.String("session_id", s.id),
		zap.String("device", stream.DeviceName()),
		zap.String("strategy", strategy.Name()),
		zap.String("mime_type", strategy.MIMEType()))
	r.status.SetStatus(StatusRecording)

	return nil
}

// accessError maps a device error to a recorder error category
func accessError(err error) error {
	if errors.Is(err, capture.ErrUnsupportedPlatform) {
		return fmt.Errorf("%w: %v", ErrUnsupportedPlatform, err)
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}

// abortStart returns to Idle after a failed Start. cause carries the full
// detail for the log; err is what the caller receives.
func (r *Recorder) abortStart(err, cause error) error {
	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()

	r.logger.Error("failed to start recording", zap.Error(cause))

	switch {
	case errors.Is(err, ErrDeviceUnavailable):
		r.observer.AccessDenied("unavailable")
		r.status.SetStatus(StatusDenied)
	case errors.Is(err, ErrUnsupportedPlatform) && errors.Is(cause, capture.ErrUnsupportedPlatform):
		r.observer.AccessDenied("unsupported")
		r.status.SetStatus(StatusNoInput)
	default:
		r.status.SetStatus(StatusNoRecording)
	}
	return err
}

func (r *Recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// abortClosed returns to Idle when Close ran while device access was pending
func (r *Recorder) abortClosed(releaseErr error) error {
	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()

	r.logger.Info("recorder closed during start, device released")
	if releaseErr != nil {
		return multierr.Append(ErrClosed, fmt.Errorf("%w: %w", ErrTeardown, releaseErr))
	}
	return ErrClosed
}

// consume moves encoded chunks into the assembler until the strategy is drained
func (r *Recorder) consume(s *session) {
	defer close(s.consumerDone)

	s.strategy.Run(context.Background(), func(chunk []byte) {
		if len(chunk) == 0 {
			return
		}
		if err := s.assembler.Append(chunk); err != nil {
			r.logger.Error("failed to append chunk", zap.Error(err))
			return
		}
		s.counters.bytes.Add(int64(len(chunk)))
	})
}

// watch escalates a capture failure into the normal stop path
func (r *Recorder) watch(s *session) {
	select {
	case err, ok := <-s.strategy.Failed():
		if !ok || err == nil {
			return
		}
		r.logger.Error("capture failed, stopping session",
			zap.String("session_id", s.id),
			zap.Error(err))
		if r.beginStop(s) {
			r.finish(s, err)
		}
	case <-s.stopping:
	}
}

// Stop ends the session and returns its artifact. It does nothing unless
// the recorder is capturing; a call made while another Stop is in flight
// returns nil, nil.
func (r *Recorder) Stop() (*artifact.Artifact, error) {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()

	if s == nil || !r.beginStop(s) {
		r.logger.Debug("stop ignored", zap.Stringer("state", r.State()))
		return nil, nil
	}
	return r.finish(s, nil)
}

// beginStop moves s from Capturing to Stopping; only one caller wins
func (r *Recorder) beginStop(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCapturing || r.session != s {
		return false
	}
	r.state = StateStopping
	close(s.stopping)
	return true
}

// finish drains, seals and releases s. Resources are released even when
// draining or sealing fails.
func (r *Recorder) finish(s *session, cause error) (art *artifact.Artifact, err error) {
	defer func() {
		if terr := r.release(s); terr != nil {
			err = multierr.Append(err, terr)
		}
		if cause != nil {
			err = multierr.Append(err, cause)
		}

		r.mu.Lock()
		r.lastStats = r.snapshot(s)
		r.session = nil
		r.state = StateIdle
		if art != nil {
			r.last = art
		}
		r.mu.Unlock()

		r.publish(s, art, err)
	}()

	// No frames are admitted after this returns
	s.strategy.Disconnect()

	// Everything admitted has been encoded and appended
	<-s.consumerDone

	tail, ferr := s.strategy.Finalize()
	if ferr != nil {
		err = multierr.Append(err, ferr)
	} else if aerr := s.assembler.Append(tail); aerr != nil {
		err = multierr.Append(err, aerr)
	} else {
		s.counters.bytes.Add(int64(len(tail)))
	}

	art, aerr := s.assembler.Finalize()
	if aerr != nil {
		err = multierr.Append(err, fmt.Errorf("failed to finalize artifact: %w", aerr))
	}
	return art, err
}

// release frees the strategy and the device stream
func (r *Recorder) release(s *session) error {
	err := multierr.Combine(
		s.strategy.Close(),
		s.stream.Close(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTeardown, err)
	}
	return nil
}

func (r *Recorder) publish(s *session, art *artifact.Artifact, err error) {
	duration := time.Since(s.startedAt)
	_, dropped := s.strategy.Queue()
	if dropped > 0 {
		r.observer.BlocksDropped(dropped)
	}

	size := 0
	if art != nil {
		size = art.Size()
	}
	r.observer.SessionStopped(duration, size, err != nil)

	fields := []zap.Field{
		zap.String("session_id", s.id),
		zap.Duration("duration", duration),
		zap.Int("bytes", size),
		zap.Uint64("blocks", s.counters.received.Load()),
		zap.Uint64("faults", s.counters.faults.Load()),
		zap.Uint64("dropped", dropped),
	}
	if err != nil {
		r.logger.Error("recording stopped with errors", append(fields, zap.Error(err))...)
		r.status.SetStatus(StatusStoppedWithErrors)
	} else {
		r.logger.Info("recording saved", append(fields, zap.String("filename", art.Filename()))...)
		r.status.SetStatus(StatusSaved(art.HumanSize()))
	}

	if art != nil && r.config.OnArtifact != nil {
		r.config.OnArtifact(art)
	}
}

// Close stops an active session and refuses later starts. A Start still
// waiting for device access releases the device once access resolves.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	_, err := r.Stop()
	return err
}
