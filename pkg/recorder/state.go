// ABOUTME: Recorder state machine states
// ABOUTME: Idle, requesting access, capturing and stopping
package recorder

import "fmt"

// State is the recorder's lifecycle state
type State int

const (
	StateIdle State = iota
	StateRequestingAccess
	StateCapturing
	StateStopping
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestingAccess:
		return "requesting_access"
	case StateCapturing:
		return "capturing"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
