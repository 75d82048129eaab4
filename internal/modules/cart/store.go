// README: Cart persistence: Redis-backed JSON blobs keyed per customer.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gelis/internal/logger"
	"gelis/internal/types"
)

const (
	cartKeyPrefix = "cart:%s"
	// Carts linger for a month of inactivity before expiring.
	cartTTL = 30 * 24 * time.Hour
)

type Store interface {
	// Load returns the persisted lines; a missing or corrupt record loads as
	// an empty cart, never an error.
	Load(ctx context.Context, customerID types.ID) ([]Line, error)
	Save(ctx context.Context, customerID types.ID, lines []Line) error
	Clear(ctx context.Context, customerID types.ID) error
}

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) Load(ctx context.Context, customerID types.ID) ([]Line, error) {
	val, err := s.redis.Get(ctx, cartKey(customerID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeLines(customerID, []byte(val)), nil
}

// decodeLines parses a persisted cart. Corrupt data loads as an empty cart,
// never an error: the customer rebuilds the cart instead of being locked out.
func decodeLines(customerID types.ID, data []byte) []Line {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		logger.L().Warn("discarding corrupt cart", zap.String("customerId", string(customerID)))
		return nil
	}
	return lines
}

func (s *RedisStore) Save(ctx context.Context, customerID types.ID, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, cartKey(customerID), data, cartTTL).Err()
}

func (s *RedisStore) Clear(ctx context.Context, customerID types.ID) error {
	return s.redis.Del(ctx, cartKey(customerID)).Err()
}

func cartKey(customerID types.ID) string {
	return fmt.Sprintf(cartKeyPrefix, string(customerID))
}

// MemStore keeps carts in process memory for tests.
type MemStore struct {
	mu    sync.Mutex
	carts map[types.ID][]Line
}

func NewMemStore() *MemStore {
	return &MemStore{carts: make(map[types.ID][]Line)}
}

func (s *MemStore) Load(_ context.Context, customerID types.ID) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.carts[customerID]...), nil
}

func (s *MemStore) Save(_ context.Context, customerID types.ID, lines []Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = append([]Line(nil), lines...)
	return nil
}

func (s *MemStore) Clear(_ context.Context, customerID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
	return nil
}
