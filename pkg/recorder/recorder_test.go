// ABOUTME: Tests for the recording session controller
// ABOUTME: Tests state transitions, stop ordering, faults and strategy selection
package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/platform"
)

type testRig struct {
	rec       *Recorder
	device    *fakeDevice
	encoder   *fakeEncoder
	status    *statusLog
	artifacts *artifactLog
}

func newRig(t *testing.T, configure func(*Config)) *testRig {
	t.Helper()

	rig := &testRig{
		device:    newFakeDevice(1, 48000),
		encoder:   &fakeEncoder{},
		status:    &statusLog{},
		artifacts: &artifactLog{},
	}
	config := Config{
		Device:     rig.device,
		Strategy:   StrategySoftware,
		Status:     rig.status,
		OnArtifact: rig.artifacts.add,
		Logger:     zaptest.NewLogger(t),
		NewEncoder: rig.encoder.factory,
	}
	if configure != nil {
		configure(&config)
	}

	rec, err := New(config)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	rig.rec = rec
	t.Cleanup(func() { rec.Close() })
	return rig
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// samples decodes the fake encoder's two-byte chunks, ignoring the flush trailer
func samples(data []byte) []int16 {
	data = []byte(strings.TrimSuffix(string(data), "END"))
	out := make([]int16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		out = append(out, int16(binary.BigEndian.Uint16(data[i:])))
	}
	return out
}

func TestNewRequiresDevice(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without a device")
	}
	if _, err := New(Config{Device: newFakeDevice(1, 48000), Channels: 3}); err == nil {
		t.Error("expected error for three output channels")
	}
}

func TestThreeSilentBlocks(t *testing.T) {
	rig := newRig(t, nil)

	if err := rig.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if rig.rec.State() != StateCapturing {
		t.Fatalf("expected capturing, got %v", rig.rec.State())
	}
	if rig.rec.SessionID() == "" {
		t.Error("expected a session ID while capturing")
	}

	for i := 0; i < 3; i++ {
		rig.device.stream.emit(monoBlock(128, 0))
	}

	art, err := rig.rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if art == nil {
		t.Fatal("expected an artifact")
	}

	encodes, flushes := rig.encoder.counts()
	if encodes != 3 || flushes != 1 {
		t.Errorf("expected 3 encodes and 1 flush, got %d and %d", encodes, flushes)
	}
	if string(art.Bytes()) != "\x00\x00\x00\x00\x00\x00END" {
		t.Errorf("unexpected artifact bytes %q", art.Bytes())
	}
	if art.MIMEType() != "audio/x-fake" {
		t.Errorf("MIMEType() = %q", art.MIMEType())
	}
	if rig.encoder.format.Channels != 1 || rig.encoder.format.SampleRate != 48000 {
		t.Errorf("unexpected encoder format %+v", rig.encoder.format)
	}

	if rig.rec.State() != StateIdle {
		t.Errorf("expected idle after stop, got %v", rig.rec.State())
	}
	if rig.rec.LastArtifact() != art {
		t.Error("LastArtifact() does not return the stopped artifact")
	}
	if rig.artifacts.count() != 1 {
		t.Errorf("expected 1 published artifact, got %d", rig.artifacts.count())
	}
	if !rig.device.stream.Closed() {
		t.Error("expected device stream to be released")
	}

	want := []string{StatusRequesting, StatusGranted, StatusRecording, StatusSaved(art.HumanSize())}
	got := rig.status.all()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("status messages = %q, want %q", got, want)
	}

	stats := rig.rec.Stats()
	if stats.BlocksReceived != 3 || stats.BlocksEncoded != 3 || stats.BytesEncoded != int64(art.Size()) {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.State != StateIdle.String() {
		t.Errorf("stats state = %q", stats.State)
	}
}

func TestThreeSilentBlocksOpus(t *testing.T) {
	rig := newRig(t, func(c *Config) {
		c.NewEncoder = nil
		c.Codec = encode.CodecOpus
	})

	if err := rig.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		rig.device.stream.emit(monoBlock(128, 0))
	}

	art, err := rig.rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if art.MIMEType() != encode.MIMEOggOpus {
		t.Errorf("MIMEType() = %q, want %q", art.MIMEType(), encode.MIMEOggOpus)
	}
	if art.Extension() != "ogg" {
		t.Errorf("Extension() = %q", art.Extension())
	}

	decoded, err := decode.Decode(art.MIMEType(), art.Bytes())
	if err != nil {
		t.Fatalf("artifact does not decode: %v", err)
	}
	if decoded.Frames() < 384 {
		t.Errorf("decoded %d frames, want at least 384", decoded.Frames())
	}
}

func TestStartWhileCapturingIsIgnored(t *testing.T) {
	rig := newRig(t, nil)

	if err := rig.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	id := rig.rec.SessionID()

	if err := rig.rec.Start(context.Background()); err != nil {
		t.Errorf("second Start() returned %v, want nil", err)
	}
	if rig.device.Requests() != 1 {
		t.Errorf("expected 1 access request, got %d", rig.device.Requests())
	}
	if rig.rec.SessionID() != id {
		t.Error("second Start replaced the session")
	}
}

func TestStopWhileIdle(t *testing.T) {
	rig := newRig(t, nil)

	art, err := rig.rec.Stop()
	if art != nil || err != nil {
		t.Errorf("Stop() while idle = %v, %v; want nil, nil", art, err)
	}
	if rig.artifacts.count() != 0 {
		t.Error("artifact published without a session")
	}
}

func TestDoubleStop(t *testing.T) {
	rig := newRig(t, nil)
	rig.rec.Start(context.Background())
	rig.device.stream.emit(monoBlock(16, 0.5))

	first, err := rig.rec.Stop()
	if err != nil || first == nil {
		t.Fatalf("first Stop() = %v, %v", first, err)
	}

	second, err := rig.rec.Stop()
	if second != nil || err != nil {
		t.Errorf("second Stop() = %v, %v; want nil, nil", second, err)
	}
	if _, flushes := rig.encoder.counts(); flushes != 1 {
		t.Errorf("expected 1 flush, got %d", flushes)
	}
	if stops, closes := rig.device.stream.releases(); stops != 1 || closes != 1 {
		t.Errorf("source stopped %d times, stream closed %d times; want 1, 1", stops, closes)
	}
	if rig.artifacts.count() != 1 {
		t.Errorf("expected 1 published artifact, got %d", rig.artifacts.count())
	}
}

func TestConcurrentStopWhileStopping(t *testing.T) {
	rig := newRig(t, nil)
	rig.encoder.flushGate = make(chan struct{})
	rig.encoder.flushEnter = make(chan struct{})

	rig.rec.Start(context.Background())
	rig.device.stream.emit(monoBlock(16, 0))

	type result struct {
		art *artifact.Artifact
		err error
	}
	done := make(chan result, 1)
	go func() {
		art, err := rig.rec.Stop()
		done <- result{art, err}
	}()

	<-rig.encoder.flushEnter
	if rig.rec.State() != StateStopping {
		t.Errorf("expected stopping during flush, got %v", rig.rec.State())
	}

	art, err := rig.rec.Stop()
	if art != nil || err != nil {
		t.Errorf("Stop() during stopping = %v, %v; want nil, nil", art, err)
	}

	close(rig.encoder.flushGate)
	res := <-done
	if res.err != nil || res.art == nil {
		t.Errorf("first Stop() = %v, %v", res.art, res.err)
	}
	if rig.rec.State() != StateIdle {
		t.Errorf("expected idle, got %v", rig.rec.State())
	}
}

func TestAccessDenied(t *testing.T) {
	tests := []struct {
		name       string
		deviceErr  error
		wantErr    error
		wantStatus string
	}{
		{"denied", capture.ErrDeviceUnavailable, ErrDeviceUnavailable, StatusDenied},
		{"other failure", errors.New("device busy"), ErrDeviceUnavailable, StatusDenied},
		{"no input support", capture.ErrUnsupportedPlatform, ErrUnsupportedPlatform, StatusNoInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newRig(t, nil)
			rig.device.err = tt.deviceErr

			err := rig.rec.Start(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Start() error = %v, want %v", err, tt.wantErr)
			}
			if rig.rec.State() != StateIdle {
				t.Errorf("expected idle, got %v", rig.rec.State())
			}

			want := []string{StatusRequesting, tt.wantStatus}
			if got := rig.status.all(); strings.Join(got, "|") != strings.Join(want, "|") {
				t.Errorf("status messages = %q, want %q", got, want)
			}

			if encodes, _ := rig.encoder.counts(); encodes != 0 {
				t.Error("encoder used without access")
			}

			// The recorder is usable again
			rig.device.err = nil
			if err := rig.rec.Start(context.Background()); err != nil {
				t.Errorf("Start() after denial failed: %v", err)
			}
		})
	}
}

func TestEncoderInitFailure(t *testing.T) {
	rig := newRig(t, func(c *Config) {
		c.NewEncoder = func(audio.Format) (encode.Encoder, error) {
			return nil, errors.New("no codec")
		}
	})

	err := rig.rec.Start(context.Background())
	if !errors.Is(err, ErrEncoderInit) {
		t.Fatalf("Start() error = %v, want ErrEncoderInit", err)
	}
	if rig.rec.State() != StateIdle {
		t.Errorf("expected idle, got %v", rig.rec.State())
	}
	if !rig.device.stream.Closed() {
		t.Error("expected device stream to be released")
	}
	if rig.status.last() != StatusNoRecording {
		t.Errorf("last status = %q", rig.status.last())
	}
}

func TestSourceStartFailure(t *testing.T) {
	rig := newRig(t, nil)
	rig.device.stream.startErr = errors.New("stream start failed")

	err := rig.rec.Start(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDeviceUnavailable", err)
	}
	if rig.rec.State() != StateIdle || !rig.device.stream.Closed() {
		t.Error("expected idle with the stream released")
	}
}

func TestBlockFaultContinues(t *testing.T) {
	rig := newRig(t, nil)
	rig.encoder.failOn = 2

	rig.rec.Start(context.Background())
	rig.device.stream.emit(monoBlock(8, 0.1))
	rig.device.stream.emit(monoBlock(8, 0.2))
	rig.device.stream.emit(monoBlock(8, 0.3))

	art, err := rig.rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	got := samples(art.Bytes())
	want := []int16{audio.FloatToInt16(0.1), audio.FloatToInt16(0.3)}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("artifact samples = %v, want %v", got, want)
	}

	stats := rig.rec.Stats()
	if stats.BlockFaults != 1 || stats.BlocksReceived != 3 || stats.BlocksEncoded != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if rig.status.last() != StatusSaved(art.HumanSize()) {
		t.Errorf("last status = %q", rig.status.last())
	}
}

func TestTeardownFaultsAggregated(t *testing.T) {
	rig := newRig(t, nil)
	rig.device.stream.closeErr = errors.New("device busy")
	rig.encoder.closeErr = errors.New("encoder leak")

	rig.rec.Start(context.Background())
	rig.device.stream.emit(monoBlock(8, 0))

	art, err := rig.rec.Stop()
	if !errors.Is(err, ErrTeardown) {
		t.Fatalf("Stop() error = %v, want ErrTeardown", err)
	}
	if !strings.Contains(err.Error(), "device busy") || !strings.Contains(err.Error(), "encoder leak") {
		t.Errorf("error %q does not carry both faults", err)
	}
	if art == nil || art.Size() == 0 {
		t.Error("expected the artifact despite teardown faults")
	}
	if rig.rec.State() != StateIdle {
		t.Errorf("expected idle, got %v", rig.rec.State())
	}
	if rig.status.last() != StatusStoppedWithErrors {
		t.Errorf("last status = %q", rig.status.last())
	}
	if rig.artifacts.count() != 1 {
		t.Error("artifact not published")
	}
}

func emitRamp(stream *fakeStream, n int) {
	for i := 0; i < n; i++ {
		stream.emit(monoBlock(4, float32(i)/1000))
	}
}

func TestOrderingUnbounded(t *testing.T) {
	rig := newRig(t, nil)
	rig.rec.Start(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		emitRamp(rig.device.stream, 300)
	}()
	wg.Wait()

	art, err := rig.rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	got := samples(art.Bytes())
	if len(got) != 300 {
		t.Fatalf("expected 300 blocks, got %d", len(got))
	}
	for i, s := range got {
		if want := audio.FloatToInt16(float32(i) / 1000); s != want {
			t.Fatalf("block %d = %d, want %d", i, s, want)
		}
	}
	if dropped := rig.rec.Stats().BlocksDropped; dropped != 0 {
		t.Errorf("unbounded policy dropped %d blocks", dropped)
	}
}

func TestOrderingDropOldest(t *testing.T) {
	rig := newRig(t, func(c *Config) {
		c.Backpressure = capture.PolicyDropOldest
		c.QueueCapacity = 4
	})
	rig.rec.Start(context.Background())

	emitRamp(rig.device.stream, 300)

	art, err := rig.rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	got := samples(art.Bytes())
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("block %d (%d) not after block %d (%d)", i, got[i], i-1, got[i-1])
		}
	}

	stats := rig.rec.Stats()
	if stats.BlocksReceived+stats.BlocksDropped != 300 {
		t.Errorf("received %d + dropped %d != 300", stats.BlocksReceived, stats.BlocksDropped)
	}
	if int(stats.BlocksReceived) != len(got) {
		t.Errorf("received %d blocks but artifact holds %d", stats.BlocksReceived, len(got))
	}
	if len(got) == 0 || got[len(got)-1] != audio.FloatToInt16(0.299) {
		t.Error("newest block was not kept")
	}
}

func TestBlocksAfterStopAreRejected(t *testing.T) {
	rig := newRig(t, nil)
	rig.rec.Start(context.Background())
	rig.device.stream.emit(monoBlock(8, 0.1))

	art, _ := rig.rec.Stop()
	before := art.Size()

	// A late callback from the audio thread
	rig.device.stream.emit(monoBlock(8, 0.2))

	if encodes, _ := rig.encoder.counts(); encodes != 1 {
		t.Errorf("expected 1 encode, got %d", encodes)
	}
	if art.Size() != before {
		t.Error("artifact changed after stop")
	}
}

func TestCaptureFailureEscalatesToStop(t *testing.T) {
	rig := newRig(t, nil)
	rig.rec.Start(context.Background())
	rig.device.stream.emit(monoBlock(8, 0.1))

	rig.device.stream.errCh <- capture.ErrDisconnected

	waitFor(t, "idle after capture failure", func() bool {
		return rig.rec.State() == StateIdle && rig.artifacts.count() == 1
	})

	if !rig.device.stream.Closed() {
		t.Error("expected device stream to be released")
	}
	if rig.status.last() != StatusStoppedWithErrors {
		t.Errorf("last status = %q", rig.status.last())
	}
	if art := rig.rec.LastArtifact(); art == nil || len(samples(art.Bytes())) != 1 {
		t.Error("expected the partial recording to be kept")
	}

	// A user stop after the failure is a no-op
	if art, err := rig.rec.Stop(); art != nil || err != nil {
		t.Errorf("Stop() after failure = %v, %v", art, err)
	}
}

func TestStopReleasesOnceUnderRacingStops(t *testing.T) {
	for i := 0; i < 50; i++ {
		rig := newRig(t, nil)
		if err := rig.rec.Start(context.Background()); err != nil {
			t.Fatalf("Start() failed: %v", err)
		}
		rig.device.stream.emit(monoBlock(16, 0.25))

		var wg sync.WaitGroup
		var mu sync.Mutex
		returned := 0
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if art, _ := rig.rec.Stop(); art != nil {
					mu.Lock()
					returned++
					mu.Unlock()
				}
			}()
		}
		rig.device.stream.errCh <- capture.ErrDisconnected
		wg.Wait()

		waitFor(t, "session teardown", func() bool {
			return rig.rec.State() == StateIdle && rig.artifacts.count() == 1
		})

		if stops, closes := rig.device.stream.releases(); stops != 1 || closes != 1 {
			t.Fatalf("iteration %d: source stopped %d times, stream closed %d times; want 1, 1", i, stops, closes)
		}
		if _, flushes := rig.encoder.counts(); flushes != 1 {
			t.Fatalf("iteration %d: expected 1 flush, got %d", i, flushes)
		}
		if returned > 1 {
			t.Fatalf("iteration %d: %d Stop calls returned an artifact", i, returned)
		}
	}
}

func TestCloseDuringDeviceAccess(t *testing.T) {
	rig := newRig(t, nil)
	rig.device.gate = make(chan struct{})
	rig.device.entered = make(chan struct{})

	started := make(chan error, 1)
	go func() { started <- rig.rec.Start(context.Background()) }()

	<-rig.device.entered
	if state := rig.rec.State(); state != StateRequestingAccess {
		t.Fatalf("state while waiting for access = %s", state)
	}
	if err := rig.rec.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	close(rig.device.gate)

	if err := <-started; !errors.Is(err, ErrClosed) {
		t.Fatalf("Start() = %v, want ErrClosed", err)
	}
	if state := rig.rec.State(); state != StateIdle {
		t.Errorf("state after closed start = %s, want idle", state)
	}
	if _, closes := rig.device.stream.releases(); closes != 1 {
		t.Errorf("stream closed %d times, want 1", closes)
	}
	if encodes, _ := rig.encoder.counts(); encodes != 0 || rig.artifacts.count() != 0 {
		t.Error("no session should have run after Close")
	}

	if err := rig.rec.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close = %v, want ErrClosed", err)
	}
	if rig.device.Requests() != 1 {
		t.Errorf("device requested %d times, want 1", rig.device.Requests())
	}
}

func TestStereoOutput(t *testing.T) {
	tests := []struct {
		name           string
		deviceChannels int
		configChannels int
		wantChannels   int
	}{
		{"mono device follows", 1, 0, 1},
		{"stereo device follows", 2, 0, 2},
		{"extra channels capped", 4, 0, 2},
		{"mono duplicated to stereo", 1, 2, 2},
		{"stereo downmixed to first channel", 2, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newRig(t, func(c *Config) { c.Channels = tt.configChannels })
			rig.device.stream.channels = tt.deviceChannels

			if err := rig.rec.Start(context.Background()); err != nil {
				t.Fatalf("Start() failed: %v", err)
			}
			block := audio.FrameBlock{Channels: make([][]float32, tt.deviceChannels)}
			for ch := range block.Channels {
				block.Channels[ch] = []float32{float32(ch+1) / 10}
			}
			rig.device.stream.emit(block)

			art, err := rig.rec.Stop()
			if err != nil {
				t.Fatalf("Stop() failed: %v", err)
			}
			if rig.encoder.format.Channels != tt.wantChannels {
				t.Errorf("encoder channels = %d, want %d", rig.encoder.format.Channels, tt.wantChannels)
			}
			if got := samples(art.Bytes()); len(got) != 1 || got[0] != audio.FloatToInt16(0.1) {
				t.Errorf("first channel sample = %v", got)
			}
		})
	}
}

func TestDelegatedStrategy(t *testing.T) {
	plat := &fakePlatform{available: true, mime: platform.MIMEWebMOpus}
	rig := newRig(t, func(c *Config) {
		c.Strategy = StrategyAuto
		c.Platform = plat
	})

	if err := rig.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if s := rig.rec.Stats(); s.Strategy != string(StrategyDelegated) {
		t.Errorf("expected delegated strategy, got %q", s.Strategy)
	}

	plat.current().handler([]byte("DATA"))

	art, err := rig.rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if string(art.Bytes()) != "HEADDATATAIL" {
		t.Errorf("artifact = %q, want HEADDATATAIL", art.Bytes())
	}
	if art.MIMEType() != platform.MIMEWebMOpus || art.Extension() != "webm" {
		t.Errorf("unexpected type %q / %q", art.MIMEType(), art.Extension())
	}
	if encodes, _ := rig.encoder.counts(); encodes != 0 {
		t.Error("software encoder used by delegated session")
	}
	if !rig.device.stream.Closed() {
		t.Error("expected device stream to be released")
	}
}

func TestDelegatedFailureEscalates(t *testing.T) {
	plat := &fakePlatform{available: true, mime: platform.MIMEOgg}
	rig := newRig(t, func(c *Config) {
		c.Strategy = StrategyDelegated
		c.Platform = plat
	})

	rig.rec.Start(context.Background())
	plat.current().errCh <- platform.ErrExited

	waitFor(t, "idle after platform failure", func() bool {
		return rig.rec.State() == StateIdle && rig.artifacts.count() == 1
	})
	if rig.status.last() != StatusStoppedWithErrors {
		t.Errorf("last status = %q", rig.status.last())
	}
}

func TestStrategySelection(t *testing.T) {
	tests := []struct {
		name         string
		mode         StrategyMode
		platform     *fakePlatform
		wantStrategy string
		wantMIME     string
		wantErr      error
	}{
		{"auto without platform", StrategyAuto, nil, "software", "audio/x-fake", nil},
		{"auto with unavailable platform", StrategyAuto, &fakePlatform{mime: platform.MIMEOgg}, "software", "audio/x-fake", nil},
		{"auto with no preferred type", StrategyAuto, &fakePlatform{available: true}, "software", "audio/x-fake", nil},
		{"auto with ogg", StrategyAuto, &fakePlatform{available: true, mime: platform.MIMEOgg}, "delegated", platform.MIMEOgg, nil},
		{"software forced", StrategySoftware, &fakePlatform{available: true, mime: platform.MIMEOgg}, "software", "audio/x-fake", nil},
		{"delegated fallback type", StrategyDelegated, &fakePlatform{available: true}, "delegated", platform.MIMEFallback, nil},
		{"delegated without platform", StrategyDelegated, nil, "", "", ErrUnsupportedPlatform},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newRig(t, func(c *Config) {
				c.Strategy = tt.mode
				if tt.platform != nil {
					c.Platform = tt.platform
				}
			})

			err := rig.rec.Start(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Start() error = %v, want %v", err, tt.wantErr)
				}
				if rig.status.last() != StatusNoRecording {
					t.Errorf("last status = %q", rig.status.last())
				}
				if !rig.device.stream.Closed() {
					t.Error("expected device stream to be released")
				}
				return
			}
			if err != nil {
				t.Fatalf("Start() failed: %v", err)
			}

			stats := rig.rec.Stats()
			if stats.Strategy != tt.wantStrategy || stats.MIMEType != tt.wantMIME {
				t.Errorf("got %s/%s, want %s/%s", stats.Strategy, stats.MIMEType, tt.wantStrategy, tt.wantMIME)
			}
		})
	}
}

func TestDelegatedStartFailure(t *testing.T) {
	plat := &fakePlatform{available: true, mime: platform.MIMEOgg, startErr: platform.ErrUnavailable}
	rig := newRig(t, func(c *Config) {
		c.Strategy = StrategyDelegated
		c.Platform = plat
	})

	err := rig.rec.Start(context.Background())
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("Start() error = %v, want ErrUnsupportedPlatform", err)
	}
	if rig.rec.State() != StateIdle || !rig.device.stream.Closed() {
		t.Error("expected idle with the stream released")
	}
}

func TestToneDeviceEndToEnd(t *testing.T) {
	status := &statusLog{}
	rec, err := New(Config{
		Device:   capture.NewTone(capture.ToneConfig{SampleRate: 16000, BlockFrames: 160}),
		Strategy: StrategySoftware,
		Codec:    encode.CodecWAV,
		Status:   status,
		Logger:   zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitFor(t, "captured blocks", func() bool { return rec.Stats().BlocksEncoded >= 5 })

	art, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	decoded, err := decode.Decode(art.MIMEType(), art.Bytes())
	if err != nil {
		t.Fatalf("artifact does not decode: %v", err)
	}
	if decoded.Format.SampleRate != 16000 || decoded.Format.Channels != 1 {
		t.Errorf("unexpected format %+v", decoded.Format)
	}
	if decoded.Frames() < 5*160 || decoded.Frames()%160 != 0 {
		t.Errorf("decoded %d frames, want whole blocks of 160", decoded.Frames())
	}
}

func TestParseStrategyMode(t *testing.T) {
	for _, s := range []string{"", "auto", "delegated", "software"} {
		if _, err := ParseStrategyMode(s); err != nil {
			t.Errorf("ParseStrategyMode(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseStrategyMode("hardware"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:             "idle",
		StateRequestingAccess: "requesting_access",
		StateCapturing:        "capturing",
		StateStopping:         "stopping",
	}
	for state, want := range tests {
		if state.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(state), state.String(), want)
		}
	}
}
