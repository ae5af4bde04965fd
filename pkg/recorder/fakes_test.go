// ABOUTME: Test doubles for recorder tests
// ABOUTME: Fake capture device, encoder, platform recorder and status sink
package recorder

import (
	"context"
	"errors"
	"sync"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/platform"
)

type fakeDevice struct {
	mu       sync.Mutex
	stream   *fakeStream
	err      error
	requests int

	// gate holds RequestAccess until closed; entered is closed on arrival
	gate    chan struct{}
	entered chan struct{}
}

func newFakeDevice(channels, sampleRate int) *fakeDevice {
	return &fakeDevice{stream: &fakeStream{
		channels:   channels,
		sampleRate: sampleRate,
		errCh:      make(chan error, 1),
	}}
}

func (d *fakeDevice) RequestAccess(ctx context.Context) (capture.Stream, error) {
	d.mu.Lock()
	d.requests++
	gate, entered := d.gate, d.entered
	d.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if gate != nil {
		<-gate
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

func (d *fakeDevice) Requests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}

// fakeStream is its own Source; tests call emit to play the audio thread
type fakeStream struct {
	channels   int
	sampleRate int
	errCh      chan error
	closeErr   error
	startErr   error

	mu      sync.Mutex
	handler capture.BlockHandler
	started bool
	stops   int
	closes  int
}

func (s *fakeStream) Channels() int      { return s.channels }
func (s *fakeStream) SampleRate() int    { return s.sampleRate }
func (s *fakeStream) DeviceName() string { return "fake" }

func (s *fakeStream) Open(handler capture.BlockHandler) (capture.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	return s, nil
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeStream) Err() <-chan error { return s.errCh }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *fakeStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes > 0
}

// releases reports how often the source was stopped and the stream closed
func (s *fakeStream) releases() (stops, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops, s.closes
}

func (s *fakeStream) emit(block audio.FrameBlock) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	handler(block)
}

// monoBlock builds a one-channel block whose samples all equal v
func monoBlock(frames int, v float32) audio.FrameBlock {
	ch := make([]float32, frames)
	for i := range ch {
		ch[i] = v
	}
	return audio.FrameBlock{Channels: [][]float32{ch}}
}

// fakeEncoder emits two big-endian bytes per block: the first sample
type fakeEncoder struct {
	mu         sync.Mutex
	encodes    int
	flushes    int
	failOn     int // 1-based Encode call that fails; zero never fails
	closeErr   error
	flushGate  chan struct{}
	flushEnter chan struct{}
	format     audio.Format
}

func (e *fakeEncoder) Encode(block audio.PCMBlock) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encodes++
	if e.failOn != 0 && e.encodes == e.failOn {
		return nil, errors.New("corrupt block")
	}
	first := block.Channels[0][0]
	return []byte{byte(first >> 8), byte(first)}, nil
}

func (e *fakeEncoder) Flush() ([]byte, error) {
	if e.flushEnter != nil {
		close(e.flushEnter)
	}
	if e.flushGate != nil {
		<-e.flushGate
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushes++
	return []byte("END"), nil
}

func (e *fakeEncoder) MIMEType() string { return "audio/x-fake" }
func (e *fakeEncoder) Close() error     { return e.closeErr }

func (e *fakeEncoder) counts() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodes, e.flushes
}

func (e *fakeEncoder) factory(format audio.Format) (encode.Encoder, error) {
	e.format = format
	return e, nil
}

// statusLog records status messages
type statusLog struct {
	mu       sync.Mutex
	messages []string
}

func (l *statusLog) SetStatus(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
}

func (l *statusLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func (l *statusLog) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 {
		return ""
	}
	return l.messages[len(l.messages)-1]
}

// fakePlatform is a platform recorder producing fixed container bytes
type fakePlatform struct {
	available bool
	mime      string
	startErr  error

	mu      sync.Mutex
	session *fakePlatformSession
}

func (p *fakePlatform) Available() bool { return p.available }

func (p *fakePlatform) Supports(ctx context.Context, mimeType string) bool {
	return p.mime != "" && mimeType == p.mime
}

func (p *fakePlatform) NegotiateMIME(ctx context.Context) (string, bool) {
	return p.mime, p.mime != ""
}

func (p *fakePlatform) Start(ctx context.Context, mimeType string, handler platform.ChunkHandler) (platform.Session, error) {
	if p.startErr != nil {
		return nil, p.startErr
	}
	s := &fakePlatformSession{handler: handler, errCh: make(chan error, 1)}
	handler([]byte("HEAD"))

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
	return s, nil
}

func (p *fakePlatform) current() *fakePlatformSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

type fakePlatformSession struct {
	handler platform.ChunkHandler
	errCh   chan error
	once    sync.Once
}

func (s *fakePlatformSession) Stop() error {
	s.once.Do(func() { s.handler([]byte("TAIL")) })
	return nil
}

func (s *fakePlatformSession) Err() <-chan error { return s.errCh }

// artifactLog records published artifacts
type artifactLog struct {
	mu        sync.Mutex
	artifacts []*artifact.Artifact
}

func (l *artifactLog) add(a *artifact.Artifact) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.artifacts = append(l.artifacts, a)
}

func (l *artifactLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.artifacts)
}
