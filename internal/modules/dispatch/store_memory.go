// README: In-memory dispatch bookkeeping for tests.
package dispatch

import (
	"context"
	"sync"

	"gelis/internal/types"
)

type MemStore struct {
	mu         sync.Mutex
	excluded   map[types.ID]map[types.ID]Cause
	dispatched map[types.ID]types.ID
}

func NewMemStore() *MemStore {
	return &MemStore{
		excluded:   make(map[types.ID]map[types.ID]Cause),
		dispatched: make(map[types.ID]types.ID),
	}
}

func (s *MemStore) AddExcluded(_ context.Context, orderID, driverID types.ID, cause Cause) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.excluded[orderID] == nil {
		s.excluded[orderID] = make(map[types.ID]Cause)
	}
	s.excluded[orderID][driverID] = cause
	return nil
}

func (s *MemStore) Excluded(_ context.Context, orderID types.ID) (map[types.ID]Cause, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[types.ID]Cause, len(s.excluded[orderID]))
	for id, c := range s.excluded[orderID] {
		out[id] = c
	}
	return out, nil
}

func (s *MemStore) RecordDispatch(_ context.Context, orderID, driverID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched[orderID] = driverID
	return nil
}
