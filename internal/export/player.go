// ABOUTME: Plays finished recordings through an audio output
// ABOUTME: Decodes WAV and Ogg Opus artifacts or files and streams them to the device
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/encode"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/audio/output"
)

// writeChunkMs is how much audio goes to the output per write, which is
// also how quickly cancellation is noticed
const writeChunkMs = 100

// Player plays recordings
type Player struct {
	out    output.Output
	logger *zap.Logger
}

// NewPlayer creates a player writing to out
func NewPlayer(out output.Output, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{out: out, logger: logger}
}

// PlayArtifact decodes and plays art
func (p *Player) PlayArtifact(ctx context.Context, art *artifact.Artifact) error {
	return p.play(ctx, art.MIMEType(), art.Bytes())
}

// PlayFile plays a saved recording, choosing the decoder by extension
func (p *Player) PlayFile(ctx context.Context, path string) error {
	mimeType, err := MIMETypeForPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read recording: %w", err)
	}
	return p.play(ctx, mimeType, data)
}

// MIMETypeForPath maps a recording's file extension to its container type
func MIMETypeForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return encode.MIMEWAV, nil
	case ".ogg", ".opus":
		return encode.MIMEOggOpus, nil
	default:
		return "", fmt.Errorf("unsupported recording file: %s (supported: .wav, .ogg)", path)
	}
}

func (p *Player) play(ctx context.Context, mimeType string, data []byte) error {
	decoded, err := decode.Decode(mimeType, data)
	if err != nil {
		return fmt.Errorf("failed to decode recording: %w", err)
	}

	format := decoded.Format
	if err := p.out.Open(format.SampleRate, format.Channels); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer func() {
		if err := p.out.Close(); err != nil {
			p.logger.Warn("failed to close output", zap.Error(err))
		}
	}()

	p.logger.Info("playing recording",
		zap.String("mime_type", mimeType),
		zap.Int("sample_rate", format.SampleRate),
		zap.Int("channels", format.Channels),
		zap.Int("frames", decoded.Frames()))

	chunk := format.SampleRate * format.Channels * writeChunkMs / 1000
	if chunk <= 0 {
		chunk = len(decoded.Samples)
	}

	for offset := 0; offset < len(decoded.Samples); offset += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(offset+chunk, len(decoded.Samples))
		if err := p.out.Write(decoded.Samples[offset:end]); err != nil {
			return fmt.Errorf("failed to write audio: %w", err)
		}
	}

	p.out.Drain()
	return nil
}
