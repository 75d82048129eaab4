// README: In-memory order store with the same conditional-update semantics as Postgres.
package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"gelis/internal/types"
)

// MemStore implements Store for tests and local development. A single mutex
// stands in for the row-level atomicity the SQL store gets from conditional
// UPDATEs.
type MemStore struct {
	mu     sync.Mutex
	orders map[types.ID]*Order
	events []Event
	nextID int64
}

func NewMemStore() *MemStore {
	return &MemStore{orders: make(map[types.ID]*Order)}
}

func (s *MemStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneOrder(o)
	s.orders[o.ID] = cp
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from || o.StatusVersion != version {
		return false, nil
	}
	o.Status = to
	o.StatusVersion++
	if to == StatusCancelled {
		o.DriverID = nil
	}
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) AssignDriver(_ context.Context, orderID, driverID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != StatusConfirmed || o.DriverID != nil {
		return false, nil
	}
	d := driverID
	o.DriverID = &d
	o.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) AcceptAssignment(_ context.Context, orderID, driverID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != StatusConfirmed || o.DriverID == nil || *o.DriverID != driverID {
		return false, nil
	}
	now := time.Now()
	o.Status = StatusPreparing
	o.StatusVersion++
	o.DriverAcceptedAt = &now
	o.UpdatedAt = now
	return true, nil
}

func (s *MemStore) ReleaseDriver(_ context.Context, orderID, driverID types.ID, rejected bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != StatusConfirmed || o.DriverID == nil || *o.DriverID != driverID {
		return false, nil
	}
	now := time.Now()
	o.DriverID = nil
	if rejected {
		o.DriverRejectedAt = &now
	}
	o.UpdatedAt = now
	return true, nil
}

func (s *MemStore) ListByCustomer(_ context.Context, customerID types.ID, limit int) ([]*Order, error) {
	return s.filter(limit, func(o *Order) bool { return o.CustomerID == customerID }), nil
}

func (s *MemStore) ListByWarung(_ context.Context, warungID types.ID, limit int) ([]*Order, error) {
	return s.filter(limit, func(o *Order) bool { return o.WarungID == warungID }), nil
}

func (s *MemStore) ListRecent(_ context.Context, limit int) ([]*Order, error) {
	return s.filter(limit, func(*Order) bool { return true }), nil
}

func (s *MemStore) ListUnassigned(_ context.Context, cutoff time.Time, limit int) ([]*Order, error) {
	out := s.filter(limit, func(o *Order) bool {
		if o.Status != StatusConfirmed || o.DriverID != nil {
			return false
		}
		return cutoff.IsZero() || o.UpdatedAt.Before(cutoff)
	})
	// oldest first, matching the SQL ordering for unassigned scans
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) HasActiveByDriver(_ context.Context, driverID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.DriverID != nil && *o.DriverID == driverID && !IsTerminal(o.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) AppendEvent(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *e
	cp.ID = s.nextID
	s.events = append(s.events, cp)
	return nil
}

// Events returns a snapshot of the state-event log for assertions in tests.
func (s *MemStore) Events(orderID types.ID) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemStore) filter(limit int, keep func(*Order) bool) []*Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	cloned := make([]*Order, len(out))
	for i, o := range out {
		cloned[i] = cloneOrder(o)
	}
	return cloned
}

func cloneOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	if o.DriverID != nil {
		d := *o.DriverID
		cp.DriverID = &d
	}
	if o.DriverAcceptedAt != nil {
		t := *o.DriverAcceptedAt
		cp.DriverAcceptedAt = &t
	}
	if o.DriverRejectedAt != nil {
		t := *o.DriverRejectedAt
		cp.DriverRejectedAt = &t
	}
	return &cp
}
