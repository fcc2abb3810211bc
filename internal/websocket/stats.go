package websocket

import (
	"context"
	"sync"

	"github.com/nfrund/unicorn/internal/pubsub"
)

// LifecycleSnapshot is a point-in-time copy of LifecycleStats.
type LifecycleSnapshot struct {
	Accepted    uint64            `json:"accepted"`
	Disconnects map[string]uint64 `json:"disconnects"`
}

// LifecycleStats counts connection lifecycle events read from the bus:
// accepted connections, and disconnects keyed by reason.
type LifecycleStats struct {
	mu          sync.Mutex
	accepted    uint64
	disconnects map[string]uint64
}

// NewLifecycleStats returns zeroed counters.
func NewLifecycleStats() *LifecycleStats {
	return &LifecycleStats{disconnects: make(map[string]uint64)}
}

// Subscribe starts counting events from sub until ctx is cancelled. Events
// published before Subscribe returns are not counted.
func (s *LifecycleStats) Subscribe(ctx context.Context, sub pubsub.Subscriber) error {
	if err := TopicClientReady.Subscribe(ctx, sub, func(_ context.Context, _ ClientEvent) error {
		s.mu.Lock()
		s.accepted++
		s.mu.Unlock()
		return nil
	}); err != nil {
		return err
	}

	return TopicClientDisconnected.Subscribe(ctx, sub, func(_ context.Context, e ClientEvent) error {
		reason := e.Reason
		if reason == "" {
			reason = "unknown"
		}
		s.mu.Lock()
		s.disconnects[reason]++
		s.mu.Unlock()
		return nil
	})
}

// Snapshot copies the current counters.
func (s *LifecycleStats) Snapshot() LifecycleSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	disconnects := make(map[string]uint64, len(s.disconnects))
	for reason, n := range s.disconnects {
		disconnects[reason] = n
	}
	return LifecycleSnapshot{Accepted: s.accepted, Disconnects: disconnects}
}
