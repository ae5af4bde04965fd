// ABOUTME: Platform recorder interface
// ABOUTME: A recorder that captures and encodes on its own and streams container chunks
package platform

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the platform recorder is not installed or usable
	ErrUnavailable = errors.New("platform recorder unavailable")

	// ErrUnsupportedType means the recorder cannot produce the requested type
	ErrUnsupportedType = errors.New("container type not supported")

	// ErrExited means the recorder process ended before it was stopped
	ErrExited = errors.New("platform recorder exited unexpectedly")
)

// ChunkHandler receives container bytes in stream order. It runs on the
// recorder's reader goroutine and must not block.
type ChunkHandler func(chunk []byte)

// Recorder captures from an input device and encodes into a container
type Recorder interface {
	// Available reports whether the recorder can run at all
	Available() bool

	// Supports reports whether mimeType can be produced
	Supports(ctx context.Context, mimeType string) bool

	// NegotiateMIME returns the first preferred type that is supported
	NegotiateMIME(ctx context.Context) (string, bool)

	// Start begins recording mimeType, sending chunks to handler
	Start(ctx context.Context, mimeType string, handler ChunkHandler) (Session, error)
}

// Session is a running platform recording
type Session interface {
	// Stop ends the recording. Every chunk, including the container
	// trailer, has been passed to the handler when Stop returns.
	Stop() error

	// Err reports an unexpected exit
	Err() <-chan error
}
