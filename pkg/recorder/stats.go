// ABOUTME: Session statistics
// ABOUTME: Counters updated by the consumer and snapshots returned to callers
package recorder

import (
	"sync/atomic"
	"time"
)

// counters are updated while a session runs
type counters struct {
	received atomic.Uint64
	encoded  atomic.Uint64
	faults   atomic.Uint64
	bytes    atomic.Int64
}

// Stats is a snapshot of the current or most recent session
type Stats struct {
	SessionID string        `json:"session_id,omitempty"`
	State     string        `json:"state"`
	Strategy  string        `json:"strategy,omitempty"`
	MIMEType  string        `json:"mime_type,omitempty"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Duration  time.Duration `json:"duration"`

	BlocksReceived uint64 `json:"blocks_received"`
	BlocksEncoded  uint64 `json:"blocks_encoded"`
	BlockFaults    uint64 `json:"block_faults"`
	BlocksDropped  uint64 `json:"blocks_dropped"`
	Pending        int    `json:"pending"`
	BytesEncoded   int64  `json:"bytes_encoded"`
}
