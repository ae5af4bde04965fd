// ABOUTME: Writes finished recordings to a directory
// ABOUTME: Uses the artifact's download filename and an atomic rename
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
)

// File saves artifacts under a directory
type File struct {
	dir    string
	logger *zap.Logger
}

// NewFile creates a file exporter writing into dir
func NewFile(dir string, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "."
	}
	return &File{dir: dir, logger: logger}
}

// Dir returns the target directory
func (f *File) Dir() string {
	return f.dir
}

// Save writes art and returns the path it was written to. The file only
// appears under its final name once fully written.
func (f *File) Save(art *artifact.Artifact) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	path := filepath.Join(f.dir, art.Filename())

	tmp, err := os.CreateTemp(f.dir, ".recording-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		// No-op once renamed
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(art.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write recording: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync recording: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close recording: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move recording into place: %w", err)
	}

	f.logger.Info("recording saved",
		zap.String("path", path),
		zap.String("mime_type", art.MIMEType()),
		zap.Int("bytes", art.Size()))
	return path, nil
}
