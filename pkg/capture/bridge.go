// ABOUTME: Ordered hand-off between real-time producers and a single consumer
// ABOUTME: Deliver never blocks; Disconnect rejects all later deliveries
package capture

import (
	"context"
	"fmt"
	"sync"
)

// Policy selects what a Bridge does when its consumer falls behind
type Policy int

const (
	// PolicyUnbounded queues every item; nothing is ever lost
	PolicyUnbounded Policy = iota

	// PolicyDropOldest keeps at most Capacity items and evicts the oldest
	PolicyDropOldest
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case PolicyUnbounded:
		return "unbounded"
	case PolicyDropOldest:
		return "drop-oldest"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration value to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "unbounded":
		return PolicyUnbounded, nil
	case "drop-oldest":
		return PolicyDropOldest, nil
	default:
		return 0, fmt.Errorf("unknown back-pressure policy: %q (supported: unbounded, drop-oldest)", s)
	}
}

// BridgeConfig configures a Bridge
type BridgeConfig struct {
	Policy Policy

	// Capacity bounds the queue under PolicyDropOldest
	Capacity int

	// HighWater triggers OnHighWater once each time the pending depth
	// reaches it; zero disables the check
	HighWater   int
	OnHighWater func(depth int)
}

// Bridge carries items from producers running on audio threads to one
// consumer. Items are received in delivery order.
type Bridge[T any] struct {
	mu        sync.Mutex
	queue     []T
	closed    bool
	delivered uint64
	dropped   uint64
	aboveHigh bool

	policy      Policy
	capacity    int
	highWater   int
	onHighWater func(depth int)

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates a connected bridge
func NewBridge[T any](config BridgeConfig) *Bridge[T] {
	capacity := config.Capacity
	if config.Policy == PolicyDropOldest && capacity <= 0 {
		capacity = 1
	}

	return &Bridge[T]{
		policy:      config.Policy,
		capacity:    capacity,
		highWater:   config.HighWater,
		onHighWater: config.OnHighWater,
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Deliver admits item unless the bridge is disconnected. It never blocks
// on the consumer and reports whether the item was admitted.
func (b *Bridge[T]) Deliver(item T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}

	if b.policy == PolicyDropOldest && len(b.queue) >= b.capacity {
		var zero T
		b.queue[0] = zero
		b.queue = b.queue[1:]
		b.dropped++
	}
	b.queue = append(b.queue, item)
	b.delivered++

	depth := len(b.queue)
	crossed := false
	if b.highWater > 0 && depth >= b.highWater && !b.aboveHigh {
		b.aboveHigh = true
		crossed = true
	}
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}

	if crossed && b.onHighWater != nil {
		b.onHighWater(depth)
	}
	return true
}

// Receive returns the next item in delivery order. After Disconnect it
// keeps returning admitted items until the queue is empty, then reports
// false. It also returns false when ctx is done.
func (b *Bridge[T]) Receive(ctx context.Context) (T, bool) {
	var zero T
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			item := b.queue[0]
			b.queue[0] = zero
			b.queue = b.queue[1:]
			if b.aboveHigh && len(b.queue) < b.highWater/2 {
				b.aboveHigh = false
			}
			b.mu.Unlock()
			return item, true
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return zero, false
		}

		select {
		case <-b.notify:
		case <-b.done:
		case <-ctx.Done():
			return zero, false
		}
	}
}

// Disconnect stops admitting items. Every Deliver that starts after
// Disconnect returns reports false. Safe to call more than once.
func (b *Bridge[T]) Disconnect() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.done)
	})
}

// Disconnected reports whether Disconnect has been called
func (b *Bridge[T]) Disconnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Pending returns the number of admitted items not yet received
func (b *Bridge[T]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Delivered returns the number of items admitted so far
func (b *Bridge[T]) Delivered() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delivered
}

// Dropped returns the number of items evicted under PolicyDropOldest
func (b *Bridge[T]) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
