// README: Order store port and its PostgreSQL implementation.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gelis/internal/types"
)

// Store is the persistence port for orders. Every conditional method returns
// (false, nil) when the precondition no longer holds; callers treat that as a
// lost race, not an error.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
	AssignDriver(ctx context.Context, orderID, driverID types.ID) (bool, error)
	AcceptAssignment(ctx context.Context, orderID, driverID types.ID) (bool, error)
	ReleaseDriver(ctx context.Context, orderID, driverID types.ID, rejected bool) (bool, error)
	ListByCustomer(ctx context.Context, customerID types.ID, limit int) ([]*Order, error)
	ListByWarung(ctx context.Context, warungID types.ID, limit int) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	// ListUnassigned returns confirmed orders with no driver, oldest first.
	// A non-zero cutoff restricts to orders last updated before it.
	ListUnassigned(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error)
	HasActiveByDriver(ctx context.Context, driverID types.ID) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
}

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, o *Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, warung_id, driver_id, status, status_version,
			total_amount, delivery_fee, service_fee, delivery_address,
			estimated_minutes, created_at, updated_at
		) VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		string(o.ID), string(o.CustomerID), string(o.WarungID),
		string(o.Status), o.StatusVersion,
		o.TotalAmount.Amount, o.DeliveryFee.Amount, o.ServiceFee.Amount,
		o.DeliveryAddress, o.EstimatedMinutes, o.CreatedAt,
	)
	if err != nil {
		return storeErr(err)
	}
	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, menu_id, quantity, unit_price, selected_options)
			VALUES ($1, $2, $3, $4, $5)`,
			string(o.ID), string(it.MenuID), it.Quantity, it.UnitPrice.Amount, it.SelectedOptions,
		)
		if err != nil {
			return storeErr(err)
		}
	}
	return storeErr(tx.Commit(ctx))
}

const orderColumns = `
	id, customer_id, warung_id, driver_id, status, status_version,
	total_amount, delivery_fee, service_fee, delivery_address,
	estimated_minutes, created_at, updated_at, driver_accepted_at, driver_rejected_at`

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT menu_id, quantity, unit_price, selected_options
		FROM order_items WHERE order_id = $1 ORDER BY id`, string(id))
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.MenuID, &it.Quantity, &it.UnitPrice.Amount, &it.SelectedOptions); err != nil {
			return nil, storeErr(err)
		}
		it.UnitPrice.Currency = "IDR"
		o.Items = append(o.Items, it)
	}
	return o, storeErr(rows.Err())
}

// UpdateStatus applies from -> to guarded by the current status and version.
// Moving to cancelled clears driver_id: terminal orders never hold a driver.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
		    status_version = status_version + 1,
		    driver_id = CASE WHEN $1 = 'cancelled' THEN NULL ELSE driver_id END,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version,
	)
	if err != nil {
		return false, storeErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) AssignDriver(ctx context.Context, orderID, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET driver_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'confirmed' AND driver_id IS NULL`,
		string(driverID), string(orderID),
	)
	if err != nil {
		return false, storeErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) AcceptAssignment(ctx context.Context, orderID, driverID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = 'preparing',
		    status_version = status_version + 1,
		    driver_accepted_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed' AND driver_id = $2`,
		string(orderID), string(driverID),
	)
	if err != nil {
		return false, storeErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ReleaseDriver(ctx context.Context, orderID, driverID types.ID, rejected bool) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET driver_id = NULL,
		    driver_rejected_at = CASE WHEN $3 THEN NOW() ELSE driver_rejected_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed' AND driver_id = $2`,
		string(orderID), string(driverID), rejected,
	)
	if err != nil {
		return false, storeErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ListByCustomer(ctx context.Context, customerID types.ID, limit int) ([]*Order, error) {
	return s.list(ctx, `SELECT`+orderColumns+` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2`, string(customerID), limit)
}

func (s *PGStore) ListByWarung(ctx context.Context, warungID types.ID, limit int) ([]*Order, error) {
	return s.list(ctx, `SELECT`+orderColumns+` FROM orders
		WHERE warung_id = $1 ORDER BY created_at DESC LIMIT $2`, string(warungID), limit)
}

func (s *PGStore) ListRecent(ctx context.Context, limit int) ([]*Order, error) {
	return s.list(ctx, `SELECT`+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *PGStore) ListUnassigned(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error) {
	if cutoff.IsZero() {
		return s.list(ctx, `SELECT`+orderColumns+` FROM orders
			WHERE status = 'confirmed' AND driver_id IS NULL
			ORDER BY created_at ASC LIMIT $1`, limit)
	}
	return s.list(ctx, `SELECT`+orderColumns+` FROM orders
		WHERE status = 'confirmed' AND driver_id IS NULL AND updated_at < $1
		ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
}

func (s *PGStore) HasActiveByDriver(ctx context.Context, driverID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE driver_id = $1
			  AND status IN ('confirmed','preparing','ready','picked_up')
		)`, string(driverID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, storeErr(err)
	}
	return exists, nil
}

func (s *PGStore) AppendEvent(ctx context.Context, e *Event) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_state_events (order_id, from_status, to_status, actor_type, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, actorID, e.CreatedAt,
	)
	return storeErr(err)
}

func (s *PGStore) list(ctx context.Context, sql string, args ...any) ([]*Order, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, storeErr(rows.Err())
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var driverID *string
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.WarungID, &driverID, &o.Status, &o.StatusVersion,
		&o.TotalAmount.Amount, &o.DeliveryFee.Amount, &o.ServiceFee.Amount,
		&o.DeliveryAddress, &o.EstimatedMinutes, &o.CreatedAt, &o.UpdatedAt,
		&o.DriverAcceptedAt, &o.DriverRejectedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	if driverID != nil {
		d := types.ID(*driverID)
		o.DriverID = &d
	}
	o.TotalAmount.Currency = "IDR"
	o.DeliveryFee.Currency = "IDR"
	o.ServiceFee.Currency = "IDR"
	return &o, nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrStoreUnavailable, err)
}
