// README: Fee policy constants for delivery and service charges.
package pricing

const (
	// defaultDeliveryFee applies when a region has no override row.
	defaultDeliveryFee = 10000
	// serviceFeePercent of the order subtotal, with a floor.
	serviceFeePercent = 10
	minServiceFee     = 5000
)
