// README: Warung store port, PostgreSQL implementation, and memory double.
package warung

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gelis/internal/types"
)

type Store interface {
	Get(ctx context.Context, id types.ID) (*Warung, error)
	// OwnerOf resolves just the owning partner's id. Satisfies order.Owners.
	OwnerOf(ctx context.Context, id types.ID) (types.ID, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Warung, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, name, is_open, wilayah FROM warungs WHERE id = $1`, string(id))
	var w Warung
	err := row.Scan(&w.ID, &w.OwnerID, &w.Name, &w.IsOpen, &w.Wilayah)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PGStore) OwnerOf(ctx context.Context, id types.ID) (types.ID, error) {
	row := s.db.QueryRow(ctx, `SELECT owner_id FROM warungs WHERE id = $1`, string(id))
	var owner string
	err := row.Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return types.ID(owner), nil
}

type MemStore struct {
	mu      sync.Mutex
	warungs map[types.ID]*Warung
}

func NewMemStore() *MemStore {
	return &MemStore{warungs: make(map[types.ID]*Warung)}
}

func (s *MemStore) Put(w *Warung) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.warungs[w.ID] = &cp
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Warung, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.warungs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemStore) OwnerOf(_ context.Context, id types.ID) (types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.warungs[id]
	if !ok {
		return "", ErrNotFound
	}
	return w.OwnerID, nil
}
