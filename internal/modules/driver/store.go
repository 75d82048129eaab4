// README: Driver store port and its PostgreSQL implementation.
package driver

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gelis/internal/types"
)

type Store interface {
	Get(ctx context.Context, id types.ID) (*Driver, error)
	Create(ctx context.Context, d *Driver) error
	// SetStatus applies the status unconditionally and stamps lastSeen.
	SetStatus(ctx context.Context, id types.ID, status Status) error
	// SetStatusIf applies from -> to only when the current status is from.
	SetStatusIf(ctx context.Context, id types.ID, from, to Status) (bool, error)
	Touch(ctx context.Context, id types.ID, at time.Time) error
	Penalize(ctx context.Context, id types.ID, amount int) error
	ListByRegionAndStatus(ctx context.Context, wilayah string, status Status) ([]*Driver, error)
	ListByStatus(ctx context.Context, status Status) ([]*Driver, error)
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const driverColumns = `id, user_id, status, reputation, rating, wilayah, last_seen`

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, string(id))
	return scanDriver(row)
}

func (s *PGStore) Create(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, user_id, status, reputation, rating, wilayah, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(d.ID), string(d.UserID), string(d.Status), d.Reputation, d.Rating, d.Wilayah, d.LastSeen,
	)
	return err
}

func (s *PGStore) SetStatus(ctx context.Context, id types.ID, status Status) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers SET status = $1, last_seen = NOW() WHERE id = $2`,
		string(status), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetStatusIf(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers SET status = $1, last_seen = NOW()
		WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) Touch(ctx context.Context, id types.ID, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE drivers SET last_seen = $1 WHERE id = $2`, at, string(id))
	return err
}

func (s *PGStore) Penalize(ctx context.Context, id types.ID, amount int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers SET reputation = GREATEST(reputation - $1, $2) WHERE id = $3`,
		amount, MinReputation, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListByRegionAndStatus(ctx context.Context, wilayah string, status Status) ([]*Driver, error) {
	return s.list(ctx, `
		SELECT `+driverColumns+` FROM drivers
		WHERE wilayah = $1 AND status = $2
		ORDER BY reputation DESC, last_seen ASC, id ASC`,
		wilayah, string(status))
}

func (s *PGStore) ListByStatus(ctx context.Context, status Status) ([]*Driver, error) {
	return s.list(ctx, `
		SELECT `+driverColumns+` FROM drivers WHERE status = $1 ORDER BY id`,
		string(status))
}

func (s *PGStore) list(ctx context.Context, sql string, args ...any) ([]*Driver, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	err := row.Scan(&d.ID, &d.UserID, &d.Status, &d.Reputation, &d.Rating, &d.Wilayah, &d.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
