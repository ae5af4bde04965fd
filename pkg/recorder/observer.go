// ABOUTME: Session observation hooks
// ABOUTME: Lets a metrics collector follow sessions without the recorder depending on it
package recorder

import "time"

// Observer is notified of session activity. Methods may be called from
// the consumer goroutine and must not block.
type Observer interface {
	SessionStarted(strategy, mimeType string)
	SessionStopped(duration time.Duration, size int, failed bool)
	AccessDenied(reason string)
	BlockReceived()
	BlockEncoded(bytes int)
	BlockFault()
	BlocksDropped(n uint64)
	QueueDepth(depth int)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string, string)           {}
func (nopObserver) SessionStopped(time.Duration, int, bool) {}
func (nopObserver) AccessDenied(string)                     {}
func (nopObserver) BlockReceived()                          {}
func (nopObserver) BlockEncoded(int)                        {}
func (nopObserver) BlockFault()                             {}
func (nopObserver) BlocksDropped(uint64)                    {}
func (nopObserver) QueueDepth(int)                          {}
