package realtime

import (
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"time"
)

const snapshotTTL = 24 * time.Hour

type snapshotStore struct {
	redisRepo contracts.RedisRepository
}

// NewSnapshotStore keeps the latest per-topic state in Redis so new
// subscribers receive current data instead of waiting for the next event.
func NewSnapshotStore(repo contracts.RedisRepository) contracts.SnapshotStore {
	return &snapshotStore{redisRepo: repo}
}

func (s *snapshotStore) StoreSnapshot(ctx context.Context, topic string, state interface{}) error {
	return s.redisRepo.Set(ctx, snapshotKey(topic), state, snapshotTTL)
}

func (s *snapshotStore) LoadSnapshot(ctx context.Context, topic string) (string, error) {
	return s.redisRepo.Get(ctx, snapshotKey(topic))
}

func snapshotKey(topic string) string {
	return fmt.Sprintf("snapshot:%s", topic)
}
