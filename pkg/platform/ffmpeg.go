// ABOUTME: FFmpeg platform recorder
// ABOUTME: Runs ffmpeg against the input device and streams its container output
package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultChunkSize   = 4096
	defaultStopTimeout = 5 * time.Second
)

// FFmpegConfig configures the ffmpeg recorder
type FFmpegConfig struct {
	// Path to the ffmpeg binary; defaults to "ffmpeg" on PATH
	Path string

	// InputFormat and InputDevice select the capture input; defaults
	// depend on the operating system
	InputFormat string
	InputDevice string

	SampleRate int
	Channels   int

	// ChunkSize caps the bytes per handler call
	ChunkSize int

	// StopTimeout bounds how long Stop waits before killing the process
	StopTimeout time.Duration
}

// commandFunc builds the process for a recording
type commandFunc func(name string, args ...string) *exec.Cmd

// runFunc runs a probe command and returns its stdout
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg records through an ffmpeg child process
type FFmpeg struct {
	config FFmpegConfig
	logger *zap.Logger

	command commandFunc
	run     runFunc
	look    func(file string) (string, error)

	mu     sync.Mutex
	caps   *capabilities
	probed bool
}

// NewFFmpeg creates an ffmpeg recorder
func NewFFmpeg(config FFmpegConfig, logger *zap.Logger) *FFmpeg {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Path == "" {
		config.Path = "ffmpeg"
	}
	if config.InputFormat == "" || config.InputDevice == "" {
		format, device := defaultInput()
		if config.InputFormat == "" {
			config.InputFormat = format
		}
		if config.InputDevice == "" {
			config.InputDevice = device
		}
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 48000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaultChunkSize
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = defaultStopTimeout
	}

	return &FFmpeg{
		config:  config,
		logger:  logger,
		command: exec.Command,
		run:     runCommand,
		look:    exec.LookPath,
	}
}

// defaultInput returns the capture input ffmpeg uses on this OS
func defaultInput() (format, device string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Available reports whether the ffmpeg binary can be found
func (f *FFmpeg) Available() bool {
	_, err := f.look(f.config.Path)
	return err == nil
}

// Supports reports whether this ffmpeg build can produce mimeType
func (f *FFmpeg) Supports(ctx context.Context, mimeType string) bool {
	caps, err := f.capabilities(ctx)
	if err != nil {
		return false
	}
	return caps.supports(mimeType)
}

// NegotiateMIME returns the first preferred container type this build supports
func (f *FFmpeg) NegotiateMIME(ctx context.Context) (string, bool) {
	caps, err := f.capabilities(ctx)
	if err != nil {
		f.logger.Warn("ffmpeg probe failed", zap.Error(err))
		return "", false
	}
	return caps.negotiate()
}

// capabilities probes muxers and encoders once and caches the result
func (f *FFmpeg) capabilities(ctx context.Context) (capabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.probed {
		if f.caps == nil {
			return capabilities{}, ErrUnavailable
		}
		return *f.caps, nil
	}

	if !f.Available() {
		f.probed = true
		return capabilities{}, fmt.Errorf("%w: %s not found", ErrUnavailable, f.config.Path)
	}

	muxers, err := f.run(ctx, f.config.Path, "-hide_banner", "-muxers")
	if err != nil {
		return capabilities{}, fmt.Errorf("failed to list ffmpeg muxers: %w", err)
	}
	encoders, err := f.run(ctx, f.config.Path, "-hide_banner", "-encoders")
	if err != nil {
		return capabilities{}, fmt.Errorf("failed to list ffmpeg encoders: %w", err)
	}

	caps := capabilities{
		muxers:   parseNames(muxers),
		encoders: parseNames(encoders),
	}
	f.caps = &caps
	f.probed = true

	f.logger.Debug("ffmpeg probed",
		zap.Int("muxers", len(caps.muxers)),
		zap.Int("encoders", len(caps.encoders)))

	return caps, nil
}

// parseNames reads the name column of `ffmpeg -muxers` / `-encoders` output.
// Rows look like " E webm   WebM" or " A....D libopus   libopus Opus".
func parseNames(output []byte) map[string]bool {
	names := make(map[string]bool)
	pastHeader := false

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "--") || line == "------" {
			pastHeader = true
			continue
		}
		if !pastHeader {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		for _, name := range strings.Split(fields[1], ",") {
			names[name] = true
		}
	}
	return names
}

// Args returns the ffmpeg arguments used to record mimeType
func (f *FFmpeg) Args(mimeType string) ([]string, error) {
	spec, ok := containers[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	args := []string{"-hide_banner", "-loglevel", "warning"}
	// ffmpeg on Windows stops gracefully on 'q' from stdin
	if runtime.GOOS != "windows" {
		args = append(args, "-nostdin")
	}
	args = append(args,
		"-f", f.config.InputFormat,
		"-i", f.config.InputDevice,
		"-vn",
		"-ac", strconv.Itoa(f.config.Channels),
		"-ar", strconv.Itoa(f.config.SampleRate),
	)
	if spec.encoder != "" {
		args = append(args, "-c:a", spec.encoder)
	}
	args = append(args,
		"-f", spec.muxer,
		"-flush_packets", "1",
		"pipe:1",
	)
	return args, nil
}

// Start launches ffmpeg recording mimeType
func (f *FFmpeg) Start(ctx context.Context, mimeType string, handler ChunkHandler) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args, err := f.Args(mimeType)
	if err != nil {
		return nil, err
	}

	// Not bound to ctx: cancellation would kill ffmpeg before it writes the trailer
	cmd := f.command(f.config.Path, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get ffmpeg stdout: %w", err)
	}
	var stdin io.WriteCloser
	if runtime.GOOS == "windows" {
		if stdin, err = cmd.StdinPipe(); err != nil {
			return nil, fmt.Errorf("failed to get ffmpeg stdin: %w", err)
		}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrUnavailable, err)
	}

	f.logger.Info("ffmpeg recording started",
		zap.String("mime_type", mimeType),
		zap.String("input", f.config.InputFormat+":"+f.config.InputDevice),
		zap.Int("pid", cmd.Process.Pid))

	s := &ffmpegSession{
		logger:      f.logger,
		cmd:         cmd,
		stdout:      stdout,
		stdin:       stdin,
		stderr:      &stderr,
		handler:     handler,
		chunkSize:   f.config.ChunkSize,
		stopTimeout: f.config.StopTimeout,
		done:        make(chan struct{}),
		errCh:       make(chan error, 1),
	}
	go s.readLoop()

	return s, nil
}

type ffmpegSession struct {
	logger      *zap.Logger
	cmd         *exec.Cmd
	stdout      io.ReadCloser
	stdin       io.WriteCloser
	stderr      *bytes.Buffer
	handler     ChunkHandler
	chunkSize   int
	stopTimeout time.Duration

	stopping atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
	errCh    chan error
	waitErr  error
}

// readLoop forwards stdout until EOF, then reaps the process
func (s *ffmpegSession) readLoop() {
	defer close(s.done)

	buf := make([]byte, s.chunkSize)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.handler(chunk)
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("ffmpeg read error", zap.Error(err))
			}
			break
		}
	}

	s.waitErr = s.cmd.Wait()
	if !s.stopping.Load() {
		detail := strings.TrimSpace(s.stderr.String())
		s.logger.Error("ffmpeg exited during recording",
			zap.NamedError("exit", s.waitErr),
			zap.String("stderr", detail))
		s.errCh <- fmt.Errorf("%w: %v", ErrExited, s.waitErr)
	}
}

// Stop interrupts ffmpeg so it finishes the container, then waits for
// every remaining byte to reach the handler
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)

		select {
		case <-s.done:
			return
		default:
		}

		if err := s.interrupt(); err != nil {
			s.logger.Warn("failed to interrupt ffmpeg", zap.Error(err))
		}

		select {
		case <-s.done:
		case <-time.After(s.stopTimeout):
			s.logger.Warn("ffmpeg did not exit in time, killing", zap.Duration("timeout", s.stopTimeout))
			_ = s.cmd.Process.Kill()
			<-s.done
		}

		// ffmpeg exits non-zero after an interrupt; that is a normal stop
		if s.waitErr != nil {
			s.logger.Debug("ffmpeg exited", zap.Error(s.waitErr))
		}
	})
	return nil
}

func (s *ffmpegSession) interrupt() error {
	if s.stdin != nil {
		_, err := io.WriteString(s.stdin, "q")
		s.stdin.Close()
		return err
	}
	return s.cmd.Process.Signal(os.Interrupt)
}

func (s *ffmpegSession) Err() <-chan error {
	return s.errCh
}
