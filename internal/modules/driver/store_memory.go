// README: In-memory driver store mirroring the Postgres conditional updates.
package driver

import (
	"context"
	"sort"
	"sync"
	"time"

	"gelis/internal/types"
)

type MemStore struct {
	mu      sync.Mutex
	drivers map[types.ID]*Driver
}

func NewMemStore() *MemStore {
	return &MemStore{drivers: make(map[types.ID]*Driver)}
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemStore) Create(_ context.Context, d *Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.drivers[d.ID] = &cp
	return nil
}

func (s *MemStore) SetStatus(_ context.Context, id types.ID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.LastSeen = time.Now()
	return nil
}

func (s *MemStore) SetStatusIf(_ context.Context, id types.ID, from, to Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	d.LastSeen = time.Now()
	return true, nil
}

func (s *MemStore) Touch(_ context.Context, id types.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.drivers[id]; ok {
		d.LastSeen = at
	}
	return nil
}

func (s *MemStore) Penalize(_ context.Context, id types.ID, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.Reputation -= amount
	if d.Reputation < MinReputation {
		d.Reputation = MinReputation
	}
	return nil
}

func (s *MemStore) ListByRegionAndStatus(_ context.Context, wilayah string, status Status) ([]*Driver, error) {
	return s.list(func(d *Driver) bool { return d.Wilayah == wilayah && d.Status == status }), nil
}

func (s *MemStore) ListByStatus(_ context.Context, status Status) ([]*Driver, error) {
	return s.list(func(d *Driver) bool { return d.Status == status }), nil
}

func (s *MemStore) list(keep func(*Driver) bool) []*Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Driver
	for _, d := range s.drivers {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Reputation != b.Reputation {
			return a.Reputation > b.Reputation
		}
		if !a.LastSeen.Equal(b.LastSeen) {
			return a.LastSeen.Before(b.LastSeen)
		}
		return a.ID < b.ID
	})
	return out
}
