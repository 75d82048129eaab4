// README: Order service: creation, role-checked transitions, and assignment writes.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gelis/internal/types"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrForbidden         = errors.New("actor not allowed for this transition")
	ErrConflict          = errors.New("order state conflict")
	ErrNotFound          = errors.New("order not found")
	ErrBadRequest        = errors.New("bad request")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// Pricing quotes the delivery and service fees for an order subtotal.
// Implemented by the pricing module.
type Pricing interface {
	Quote(ctx context.Context, warungID types.ID, subtotal types.Money) (deliveryFee, serviceFee types.Money, err error)
}

// Owners resolves which partner owns a warung. Implemented by the warung
// module's store; consulted on partner-driven transitions.
type Owners interface {
	OwnerOf(ctx context.Context, warungID types.ID) (types.ID, error)
}

type Service struct {
	store   Store
	pricing Pricing
	owners  Owners
}

func NewService(store Store, pricing Pricing, owners Owners) *Service {
	return &Service{store: store, pricing: pricing, owners: owners}
}

type CreateCommand struct {
	CustomerID       types.ID
	WarungID         types.ID
	Items            []Item
	DeliveryAddress  string
	EstimatedMinutes int
}

type TransitionCommand struct {
	OrderID types.ID
	Target  Status
	Actor   Actor
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.CustomerID == "" || cmd.WarungID == "" || len(cmd.Items) == 0 || cmd.DeliveryAddress == "" {
		return "", ErrBadRequest
	}
	for _, it := range cmd.Items {
		if it.Quantity <= 0 || it.UnitPrice.Amount < 0 {
			return "", ErrBadRequest
		}
	}

	subtotal := Subtotal(cmd.Items)
	deliveryFee := types.Rupiah(0)
	serviceFee := types.Rupiah(0)
	if s.pricing != nil {
		var err error
		deliveryFee, serviceFee, err = s.pricing.Quote(ctx, cmd.WarungID, subtotal)
		if err != nil {
			return "", err
		}
	}

	now := time.Now()
	o := &Order{
		ID:               types.ID(uuid.NewString()),
		CustomerID:       cmd.CustomerID,
		WarungID:         cmd.WarungID,
		Status:           StatusPending,
		StatusVersion:    0,
		Items:            cmd.Items,
		TotalAmount:      subtotal,
		DeliveryFee:      deliveryFee,
		ServiceFee:       serviceFee,
		DeliveryAddress:  cmd.DeliveryAddress,
		EstimatedMinutes: cmd.EstimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return "", err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  string(RoleCustomer),
		ActorID:    &cmd.CustomerID,
		CreatedAt:  now,
	})
	return o.ID, nil
}

// Transition validates the status graph first, then the actor capability and
// ownership, and applies the edge with an optimistic update. A lost race
// surfaces as ErrConflict; callers re-read and retry at their own level.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) error {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, cmd.Target) {
		return ErrInvalidTransition
	}
	if !RoleCanTransition(cmd.Actor.Role, o.Status, cmd.Target) {
		return ErrForbidden
	}
	if err := s.checkOwnership(ctx, o, cmd.Actor); err != nil {
		return err
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.Target, o.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	actorID := cmd.Actor.ID
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   cmd.Target,
		ActorType:  string(cmd.Actor.Role),
		ActorID:    &actorID,
		CreatedAt:  time.Now(),
	})
	return nil
}

// checkOwnership verifies the actor acts on their own order: customers on
// orders they placed, partners on orders for warungs they own, drivers on
// orders assigned to them. Admin and the dispatch coordinator are exempt.
func (s *Service) checkOwnership(ctx context.Context, o *Order, actor Actor) error {
	switch actor.Role {
	case RoleCustomer:
		if actor.ID != o.CustomerID {
			return ErrForbidden
		}
	case RolePartner:
		if s.owners == nil {
			return ErrForbidden
		}
		owner, err := s.owners.OwnerOf(ctx, o.WarungID)
		if err != nil {
			return err
		}
		if actor.ID != owner {
			return ErrForbidden
		}
	case RoleDriver:
		if o.DriverID == nil || *o.DriverID != actor.ID {
			return ErrForbidden
		}
	}
	return nil
}

// Assign binds a driver to a confirmed, unassigned order. Returns false when
// the precondition no longer holds (already assigned, cancelled, raced).
func (s *Service) Assign(ctx context.Context, orderID, driverID types.ID) (bool, error) {
	ok, err := s.store.AssignDriver(ctx, orderID, driverID)
	if err != nil || !ok {
		return false, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    orderID,
		FromStatus: StatusConfirmed,
		ToStatus:   StatusConfirmed,
		ActorType:  string(RoleDispatch),
		ActorID:    &driverID,
		CreatedAt:  time.Now(),
	})
	return true, nil
}

// AcceptAssignment moves confirmed -> preparing for the assigned driver and
// stamps driverAcceptedAt. The compare-and-swap on driverId decides the winner
// between a late accept and a concurrent expiry.
func (s *Service) AcceptAssignment(ctx context.Context, orderID, driverID types.ID) (bool, error) {
	ok, err := s.store.AcceptAssignment(ctx, orderID, driverID)
	if err != nil || !ok {
		return false, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    orderID,
		FromStatus: StatusConfirmed,
		ToStatus:   StatusPreparing,
		ActorType:  string(RoleDriver),
		ActorID:    &driverID,
		CreatedAt:  time.Now(),
	})
	return true, nil
}

// ReleaseAssignment clears driverId on a still-confirmed order so it can be
// re-dispatched. rejected stamps driverRejectedAt; a timeout leaves it null so
// the two causes stay distinguishable. Returns false when the assignment was
// already resolved, which makes duplicate rejects no-ops.
func (s *Service) ReleaseAssignment(ctx context.Context, orderID, driverID types.ID, rejected bool) (bool, error) {
	ok, err := s.store.ReleaseDriver(ctx, orderID, driverID, rejected)
	if err != nil || !ok {
		return false, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    orderID,
		FromStatus: StatusConfirmed,
		ToStatus:   StatusConfirmed,
		ActorType:  string(RoleDispatch),
		ActorID:    &driverID,
		CreatedAt:  time.Now(),
	})
	return true, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID types.ID, limit int) ([]*Order, error) {
	return s.store.ListByCustomer(ctx, customerID, limit)
}

func (s *Service) ListByWarung(ctx context.Context, warungID types.ID, limit int) ([]*Order, error) {
	return s.store.ListByWarung(ctx, warungID, limit)
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]*Order, error) {
	return s.store.ListRecent(ctx, limit)
}

func (s *Service) ListUnassigned(ctx context.Context, limit int) ([]*Order, error) {
	return s.store.ListUnassigned(ctx, time.Time{}, limit)
}

// ListAwaitingDriver returns confirmed orders that have sat unassigned since
// before the cutoff; the admin/partner UI shows these as "awaiting driver".
func (s *Service) ListAwaitingDriver(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error) {
	return s.store.ListUnassigned(ctx, cutoff, limit)
}

// HasActiveByDriver reports whether the driver holds a non-terminal order.
func (s *Service) HasActiveByDriver(ctx context.Context, driverID types.ID) (bool, error) {
	return s.store.HasActiveByDriver(ctx, driverID)
}
