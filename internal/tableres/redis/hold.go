package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-library/internal/logger"
)

// Holds guards the gap between the overlap check and the reservation
// insert. A hold on a table's start slot is taken with SetNX before the
// transaction runs and released right after; if the service dies
// mid-flight the TTL clears it.
type Holds struct {
	Client  *redis.Client
	Logger  *logger.Logger
	HoldTTL time.Duration
}

func NewHolds(client *redis.Client, log *logger.Logger, ttl time.Duration) *Holds {
	return &Holds{Client: client, Logger: log, HoldTTL: ttl}
}

func holdKey(tableID string, start time.Time) string {
	return fmt.Sprintf("table_hold:%s:%s", tableID, start.UTC().Format("2006-01-02T15:04"))
}

// Acquire takes the hold for owner. Returns false when someone else
// already holds the slot.
func (h *Holds) Acquire(ctx context.Context, tableID string, start time.Time, owner string) (bool, error) {
	key := holdKey(tableID, start)
	ok, err := h.Client.SetNX(ctx, key, owner, h.HoldTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire hold %s: %w", key, err)
	}
	if !ok {
		h.Logger.Debug("REDIS", fmt.Sprintf("hold %s already taken", key))
	}
	return ok, nil
}

// Release drops the hold, but only if owner still holds it. An expired
// hold that another request re-acquired is left alone.
func (h *Holds) Release(ctx context.Context, tableID string, start time.Time, owner string) error {
	key := holdKey(tableID, start)
	val, err := h.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err = h.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
