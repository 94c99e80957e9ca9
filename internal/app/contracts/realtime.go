package contracts

import (
	"context"
	"labpulse-service/internal/pkg/lab_dto"
)

// RealtimePublisher fans an event out to every subscriber of a topic.
// Publishing never blocks on slow consumers; delivery is at-most-once.
type RealtimePublisher interface {
	Publish(topic string, event lab_dto.Event)
}

// SnapshotStore caches the current state sent to freshly subscribed
// clients in place of missed events.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, topic string, state interface{}) error
	LoadSnapshot(ctx context.Context, topic string) (string, error)
}
