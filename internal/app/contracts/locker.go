package contracts

import (
	"context"
	"time"
)

// LockerService serializes writers per entity id. Batch counters and
// session status are only mutated while holding the entity's lock.
type LockerService interface {
	TryLock(ctx context.Context, key string, expiration time.Duration) (bool, string, error)
	Unlock(ctx context.Context, key, lockValue string) error
}
