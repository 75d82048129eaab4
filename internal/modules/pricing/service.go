// README: Pricing service quotes delivery and service fees for an order.
package pricing

import (
	"context"

	"gelis/internal/types"
)

type Service struct {
	store *Store
}

// NewService builds a pricing service; a nil store quotes defaults only.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Quote returns the delivery fee for the warung's region and the platform
// service fee for the subtotal. Satisfies order.Pricing.
func (s *Service) Quote(ctx context.Context, warungID types.ID, subtotal types.Money) (types.Money, types.Money, error) {
	deliveryFee := types.Rupiah(defaultDeliveryFee)
	if s.store != nil {
		if fee, ok, err := s.store.DeliveryFeeForWarung(ctx, warungID); err != nil {
			return types.Money{}, types.Money{}, err
		} else if ok {
			deliveryFee = fee
		}
	}

	serviceFee := subtotal.Amount * serviceFeePercent / 100
	if serviceFee < minServiceFee {
		serviceFee = minServiceFee
	}
	return deliveryFee, types.Rupiah(serviceFee), nil
}
