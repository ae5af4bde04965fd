// ABOUTME: Immutable encoded recording
// ABOUTME: Exposes bytes, type and a download filename for a finished session
package artifact

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

// Artifact is a finished recording. It is never mutated after creation.
type Artifact struct {
	id        string
	mimeType  string
	data      []byte
	chunks    int
	createdAt time.Time
}

// ID returns the artifact's unique identifier
func (a *Artifact) ID() string { return a.id }

// MIMEType returns the container type of the bytes
func (a *Artifact) MIMEType() string { return a.mimeType }

// Size returns the artifact length in bytes
func (a *Artifact) Size() int { return len(a.data) }

// Chunks returns how many chunks were assembled
func (a *Artifact) Chunks() int { return a.chunks }

// CreatedAt returns when the artifact was finalized, in UTC
func (a *Artifact) CreatedAt() time.Time { return a.createdAt }

// Bytes returns a copy of the artifact bytes
func (a *Artifact) Bytes() []byte {
	return append([]byte(nil), a.data...)
}

// Reader returns a reader over the artifact bytes
func (a *Artifact) Reader() io.ReadSeeker {
	return bytes.NewReader(a.data)
}

// Extension returns the file extension for the artifact's type
func (a *Artifact) Extension() string {
	mime := strings.ToLower(a.mimeType)
	switch {
	case strings.Contains(mime, "ogg"):
		return "ogg"
	case strings.Contains(mime, "wav"):
		return "wav"
	default:
		return "webm"
	}
}

// Filename returns recording_<timestamp>.<ext>
func (a *Artifact) Filename() string {
	stamp := strings.ReplaceAll(a.createdAt.Format(time.RFC3339), ":", "-")
	return fmt.Sprintf("recording_%s.%s", stamp, a.Extension())
}

// HumanSize formats the artifact size for status messages
func (a *Artifact) HumanSize() string {
	return FormatSize(len(a.data))
}

// FormatSize formats a byte count as B, KB or MB
func FormatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
