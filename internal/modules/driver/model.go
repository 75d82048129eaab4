// README: Driver identity, availability status, and reputation bounds.
package driver

import (
	"time"

	"gelis/internal/types"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

const (
	// DefaultReputation is assigned at onboarding.
	DefaultReputation = 5
	// MinReputation is the floor; penalties never push below it.
	MinReputation = 0
)

// Driver is a dispatchable courier. Reputation is the internal dispatch
// scalar; Rating is the customer-facing score and is never touched here.
type Driver struct {
	ID         types.ID
	UserID     types.ID
	Status     Status
	Reputation int
	Rating     float64
	Wilayah    string
	LastSeen   time.Time
}

func ValidStatus(s Status) bool {
	return s == StatusAvailable || s == StatusBusy || s == StatusOffline
}
