// README: Order aggregate, status graph, and role capability table.
package order

import (
	"time"

	"gelis/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusPickedUp  Status = "picked_up"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Role identifies who is requesting a mutation. RoleDispatch is internal: it
// marks writes performed by the dispatch coordinator, never by a client.
type Role string

const (
	RoleCustomer Role = "customer"
	RolePartner  Role = "partner"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
	RoleDispatch Role = "dispatch"
)

type Actor struct {
	Role Role
	ID   types.ID
}

type Item struct {
	MenuID          types.ID
	Quantity        int
	UnitPrice       types.Money
	SelectedOptions string
}

type Order struct {
	ID               types.ID
	CustomerID       types.ID
	WarungID         types.ID
	DriverID         *types.ID
	Status           Status
	StatusVersion    int
	Items            []Item
	TotalAmount      types.Money
	DeliveryFee      types.Money
	ServiceFee       types.Money
	DeliveryAddress  string
	EstimatedMinutes int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DriverAcceptedAt *time.Time
	DriverRejectedAt *time.Time
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the order state flow as code. Cancellation
// stops being possible once the courier holds the goods (picked_up onward).
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusPickedUp},
	StatusPickedUp:  {StatusDelivered},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether an order in this status is immutable.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// roleTransitions is the capability table: which actor role may drive which
// edge. Checked once here instead of being re-derived by every client.
var roleTransitions = map[Role]map[Status][]Status{
	RoleCustomer: {
		StatusPending: {StatusCancelled},
	},
	RolePartner: {
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusPreparing, StatusCancelled},
		StatusPreparing: {StatusReady, StatusCancelled},
	},
	RoleDriver: {
		StatusReady:    {StatusPickedUp},
		StatusPickedUp: {StatusDelivered},
	},
	RoleAdmin: {
		StatusPending:   {StatusCancelled},
		StatusConfirmed: {StatusCancelled},
		StatusPreparing: {StatusCancelled},
	},
	// The accept edge: confirmed -> preparing on behalf of the assigned driver.
	RoleDispatch: {
		StatusConfirmed: {StatusPreparing},
	},
}

func RoleCanTransition(role Role, from, to Status) bool {
	for _, s := range roleTransitions[role][from] {
		if s == to {
			return true
		}
	}
	return false
}

// Subtotal is the sum of quantity*unitPrice over all items. Delivery and
// service fees are tracked separately and never folded in.
func Subtotal(items []Item) types.Money {
	total := types.Rupiah(0)
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(int64(it.Quantity)))
	}
	return total
}
