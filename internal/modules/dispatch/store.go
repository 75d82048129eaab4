// README: Dispatch bookkeeping store backed by Redis sets and keys.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"gelis/internal/types"
)

const (
	excludedKeyPrefix   = "dispatch:order:%s:excluded"
	dispatchedKeyPrefix = "dispatch:order:%s:dispatched_at"
	// Keys outlive any plausible order lifetime, then expire on their own.
	keyTTL = 7 * 24 * time.Hour
)

// Store tracks per-order dispatch bookkeeping: which drivers already rejected
// or timed out, and when the order was first dispatched.
type Store interface {
	AddExcluded(ctx context.Context, orderID, driverID types.ID, cause Cause) error
	Excluded(ctx context.Context, orderID types.ID) (map[types.ID]Cause, error)
	RecordDispatch(ctx context.Context, orderID, driverID types.ID) error
}

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) AddExcluded(ctx context.Context, orderID, driverID types.ID, cause Cause) error {
	key := excludedKey(orderID)
	pipe := s.redis.Pipeline()
	pipe.SAdd(ctx, key, fmt.Sprintf("%s:%s", string(driverID), string(cause)))
	pipe.Expire(ctx, key, keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Excluded(ctx context.Context, orderID types.ID) (map[types.ID]Cause, error) {
	members, err := s.redis.SMembers(ctx, excludedKey(orderID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[types.ID]Cause, len(members))
	for _, m := range members {
		id, cause, ok := strings.Cut(m, ":")
		if !ok {
			continue
		}
		out[types.ID(id)] = Cause(cause)
	}
	return out, nil
}

func (s *RedisStore) RecordDispatch(ctx context.Context, orderID, driverID types.ID) error {
	return s.redis.Set(ctx, dispatchedKey(orderID), string(driverID)+"@"+time.Now().UTC().Format(time.RFC3339), keyTTL).Err()
}

func excludedKey(orderID types.ID) string {
	return fmt.Sprintf(excludedKeyPrefix, string(orderID))
}

func dispatchedKey(orderID types.ID) string {
	return fmt.Sprintf(dispatchedKeyPrefix, string(orderID))
}
