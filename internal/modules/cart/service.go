// README: Cart service: merge-by-identity mutations, persistence, checkout.
package cart

import (
	"context"
	"errors"

	"gelis/internal/modules/order"
	"gelis/internal/modules/warung"
	"gelis/internal/types"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrWarungClosed = errors.New("warung is closed")
	ErrBadRequest   = errors.New("bad request")
)

// OrderCreator is the slice of order.Service checkout needs.
type OrderCreator interface {
	Create(ctx context.Context, cmd order.CreateCommand) (types.ID, error)
}

type Service struct {
	store   Store
	orders  OrderCreator
	warungs warung.Store
}

func NewService(store Store, orders OrderCreator, warungs warung.Store) *Service {
	return &Service{store: store, orders: orders, warungs: warungs}
}

// Add merges the quantity into an existing (product, options) line or appends
// a new one. Every mutation re-persists the whole cart.
func (s *Service) Add(ctx context.Context, customerID types.ID, line Line) ([]Line, error) {
	if line.ProductID == "" || line.Quantity <= 0 || line.UnitPrice.Amount < 0 {
		return nil, ErrBadRequest
	}
	lines, err := s.store.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	merged := false
	for i := range lines {
		if lines[i].sameEntry(line.ProductID, line.SelectedOptions) {
			lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, line)
	}
	return lines, s.store.Save(ctx, customerID, lines)
}

// SetQuantity replaces an entry's quantity; qty <= 0 removes the line.
func (s *Service) SetQuantity(ctx context.Context, customerID, productID types.ID, options string, qty int) ([]Line, error) {
	if qty <= 0 {
		return s.Remove(ctx, customerID, productID, options)
	}
	lines, err := s.store.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].sameEntry(productID, options) {
			lines[i].Quantity = qty
			break
		}
	}
	return lines, s.store.Save(ctx, customerID, lines)
}

func (s *Service) Remove(ctx context.Context, customerID, productID types.ID, options string) ([]Line, error) {
	lines, err := s.store.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	kept := lines[:0]
	for _, l := range lines {
		if !l.sameEntry(productID, options) {
			kept = append(kept, l)
		}
	}
	return kept, s.store.Save(ctx, customerID, kept)
}

func (s *Service) Lines(ctx context.Context, customerID types.ID) ([]Line, error) {
	return s.store.Load(ctx, customerID)
}

type CheckoutCommand struct {
	CustomerID       types.ID
	WarungID         types.ID
	DeliveryAddress  string
	EstimatedMinutes int
}

// Checkout converts the cart into a pending order and clears the cart only
// after the order exists.
func (s *Service) Checkout(ctx context.Context, cmd CheckoutCommand) (types.ID, error) {
	lines, err := s.store.Load(ctx, cmd.CustomerID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}
	w, err := s.warungs.Get(ctx, cmd.WarungID)
	if err != nil {
		return "", err
	}
	if !w.IsOpen {
		return "", ErrWarungClosed
	}

	items := make([]order.Item, len(lines))
	for i, l := range lines {
		items[i] = order.Item{
			MenuID:          l.ProductID,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			SelectedOptions: l.SelectedOptions,
		}
	}
	orderID, err := s.orders.Create(ctx, order.CreateCommand{
		CustomerID:       cmd.CustomerID,
		WarungID:         cmd.WarungID,
		Items:            items,
		DeliveryAddress:  cmd.DeliveryAddress,
		EstimatedMinutes: cmd.EstimatedMinutes,
	})
	if err != nil {
		return "", err
	}
	if err := s.store.Clear(ctx, cmd.CustomerID); err != nil {
		// The order exists; a stale cart is recoverable on the next mutation.
		return orderID, nil
	}
	return orderID, nil
}
