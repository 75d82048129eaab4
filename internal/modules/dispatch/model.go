// README: Dispatch assignment payloads, resolution causes, and tuning defaults.
package dispatch

import (
	"time"

	"gelis/internal/modules/driver"
)

// Cause records why an assignment was released, so retry logic can still
// exclude the driver while keeping reject and no-response distinguishable.
type Cause string

const (
	CauseRejected Cause = "rejected"
	CauseTimeout  Cause = "timeout"
)

const (
	// DefaultAcceptWindow is how long an assigned driver has to respond.
	DefaultAcceptWindow = 30 * time.Second
	// DefaultRescanInterval matches the client-side poll the coordinator replaces.
	DefaultRescanInterval = 10 * time.Second
	// rescanBatch bounds how many parked orders one rescan tick retries.
	rescanBatch = 50
)

// Assignment is the notification emitted to the driver's client when an order
// is bound to them. Fire-and-forget; no delivery guarantee.
type Assignment struct {
	DriverID         string `json:"driverId"`
	OrderID          string `json:"orderId"`
	WarungName       string `json:"warungName"`
	DeliveryFee      int64  `json:"deliveryFee"`
	DeliveryAddress  string `json:"deliveryAddress"`
	EstimatedMinutes int    `json:"estimatedTimeMinutes"`
}

// SelectDriver picks one candidate from a non-empty eligible pool. Must be
// deterministic for identical inputs.
type SelectDriver func(candidates []*driver.Driver) *driver.Driver

// DefaultSelect takes the head of the pool, which arrives ordered by
// reputation DESC, lastSeen ASC, id ASC.
func DefaultSelect(candidates []*driver.Driver) *driver.Driver {
	return candidates[0]
}
