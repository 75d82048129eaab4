// README: Pricing store reads per-region delivery fee overrides.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gelis/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// DeliveryFeeForWarung resolves the fee override for the warung's region.
// ok is false when no override exists.
func (s *Store) DeliveryFeeForWarung(ctx context.Context, warungID types.ID) (types.Money, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT f.fee
		FROM delivery_fees f
		JOIN warungs w ON w.wilayah = f.wilayah
		WHERE w.id = $1`, string(warungID))
	var fee int64
	err := row.Scan(&fee)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Money{}, false, nil
	}
	if err != nil {
		return types.Money{}, false, err
	}
	return types.Rupiah(fee), true, nil
}
