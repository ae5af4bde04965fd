// ABOUTME: Output assembler for encoded chunks
// ABOUTME: Appends chunks in order and finalizes them into an Artifact once
package artifact

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrFinalized is returned when an assembler is used after Finalize
var ErrFinalized = errors.New("assembler already finalized")

// Assembler accumulates encoded chunks for one session
type Assembler struct {
	mu        sync.Mutex
	mimeType  string
	chunks    [][]byte
	size      int
	finalized bool

	// now is replaced in tests
	now func() time.Time
}

// NewAssembler creates an assembler whose artifact carries mimeType
func NewAssembler(mimeType string) *Assembler {
	return &Assembler{
		mimeType: mimeType,
		now:      time.Now,
	}
}

// Append adds a chunk after all previously appended chunks.
// Empty chunks are ignored. The chunk is copied.
func (a *Assembler) Append(chunk []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return ErrFinalized
	}
	if len(chunk) == 0 {
		return nil
	}

	a.chunks = append(a.chunks, append([]byte(nil), chunk...))
	a.size += len(chunk)
	return nil
}

// Size returns the number of bytes appended so far
func (a *Assembler) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

// Chunks returns the number of chunks appended so far
func (a *Assembler) Chunks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chunks)
}

// MIMEType returns the type the artifact will carry
func (a *Assembler) MIMEType() string {
	return a.mimeType
}

// Finalize concatenates every chunk into an Artifact. It succeeds once;
// later calls return ErrFinalized.
func (a *Assembler) Finalize() (*Artifact, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return nil, ErrFinalized
	}
	a.finalized = true

	data := make([]byte, 0, a.size)
	for _, chunk := range a.chunks {
		data = append(data, chunk...)
	}
	if len(data) != a.size {
		return nil, fmt.Errorf("assembled %d bytes, expected %d", len(data), a.size)
	}

	art := &Artifact{
		id:        uuid.New().String(),
		mimeType:  a.mimeType,
		data:      data,
		chunks:    len(a.chunks),
		createdAt: a.now().UTC(),
	}
	a.chunks = nil
	return art, nil
}
