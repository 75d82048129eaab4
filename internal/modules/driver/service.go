// README: Availability tracker and reputation ledger for drivers.
package driver

import (
	"context"
	"errors"
	"time"

	"gelis/internal/types"
)

var (
	ErrNotFound      = errors.New("driver not found")
	ErrConflict      = errors.New("driver has an active order")
	ErrInvalidStatus = errors.New("invalid driver status")
	ErrForbidden     = errors.New("driver may not request this status")
)

// ActiveOrders is the order-module port consulted before a driver may go
// offline. Implemented by order.Service.
type ActiveOrders interface {
	HasActiveByDriver(ctx context.Context, driverID types.ID) (bool, error)
}

type Service struct {
	store  Store
	orders ActiveOrders
}

func NewService(store Store, orders ActiveOrders) *Service {
	return &Service{store: store, orders: orders}
}

// SetAvailability handles the driver's own online/offline toggle. Busy is
// coordinator-owned and can never be requested here. Going offline while an
// active order is in flight is refused so the order is not orphaned.
func (s *Service) SetAvailability(ctx context.Context, driverID types.ID, online bool) error {
	d, err := s.store.Get(ctx, driverID)
	if err != nil {
		return err
	}
	// lastSeen is stamped on every call, including refused ones.
	if err := s.store.Touch(ctx, driverID, time.Now()); err != nil {
		return err
	}

	target := StatusOffline
	if online {
		target = StatusAvailable
	}
	if d.Status == target {
		return nil
	}
	if !online && d.Status == StatusBusy {
		active, err := s.orders.HasActiveByDriver(ctx, driverID)
		if err != nil {
			return err
		}
		if active {
			return ErrConflict
		}
	}
	return s.store.SetStatus(ctx, driverID, target)
}

// MarkBusy claims an available driver for an assignment. Coordinator-only.
func (s *Service) MarkBusy(ctx context.Context, driverID types.ID) (bool, error) {
	return s.store.SetStatusIf(ctx, driverID, StatusAvailable, StatusBusy)
}

// MarkAvailable returns a busy driver to the pool. Coordinator-only.
func (s *Service) MarkAvailable(ctx context.Context, driverID types.ID) (bool, error) {
	return s.store.SetStatusIf(ctx, driverID, StatusBusy, StatusAvailable)
}

// Penalize deducts from the driver's reputation, floored at MinReputation.
// There is deliberately no reward path: accepts and deliveries leave
// reputation untouched (kept asymmetric pending a product decision).
func (s *Service) Penalize(ctx context.Context, driverID types.ID, amount int) error {
	if amount <= 0 {
		return nil
	}
	return s.store.Penalize(ctx, driverID, amount)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.Get(ctx, id)
}

// ListAvailableByRegion returns the eligible pool for a warung's region,
// ordered reputation DESC, lastSeen ASC, id ASC so selection is deterministic.
func (s *Service) ListAvailableByRegion(ctx context.Context, wilayah string) ([]*Driver, error) {
	return s.store.ListByRegionAndStatus(ctx, wilayah, StatusAvailable)
}

// ListBusy feeds the reconciliation pass that repairs drivers stuck busy with
// no active order.
func (s *Service) ListBusy(ctx context.Context) ([]*Driver, error) {
	return s.store.ListByStatus(ctx, StatusBusy)
}
