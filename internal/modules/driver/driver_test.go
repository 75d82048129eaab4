// README: Driver availability and reputation tests.
package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"gelis/internal/types"
)

type stubActiveOrders struct {
	active map[types.ID]bool
}

func (s stubActiveOrders) HasActiveByDriver(_ context.Context, driverID types.ID) (bool, error) {
	return s.active[driverID], nil
}

func seedDriver(t *testing.T, store *MemStore, id types.ID, status Status, reputation int) {
	t.Helper()
	err := store.Create(context.Background(), &Driver{
		ID:         id,
		UserID:     "u_" + id,
		Status:     status,
		Reputation: reputation,
		Wilayah:    "Cimahi",
	})
	if err != nil {
		t.Fatalf("seed driver %s: %v", id, err)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusAvailable, StatusBusy, StatusOffline} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	if ValidStatus("parked") || ValidStatus("") {
		t.Error("unknown statuses must be invalid")
	}
}

func TestSetAvailabilityToggle(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, stubActiveOrders{})
	ctx := context.Background()
	seedDriver(t, store, "d1", StatusOffline, DefaultReputation)

	if err := svc.SetAvailability(ctx, "d1", true); err != nil {
		t.Fatalf("go online: %v", err)
	}
	d, _ := svc.Get(ctx, "d1")
	if d.Status != StatusAvailable {
		t.Fatalf("status = %s, want available", d.Status)
	}

	if err := svc.SetAvailability(ctx, "d1", false); err != nil {
		t.Fatalf("go offline: %v", err)
	}
	d, _ = svc.Get(ctx, "d1")
	if d.Status != StatusOffline {
		t.Fatalf("status = %s, want offline", d.Status)
	}

	// Repeating the current state is a no-op, not an error.
	if err := svc.SetAvailability(ctx, "d1", false); err != nil {
		t.Fatalf("offline twice: %v", err)
	}
}

func TestSetAvailabilityBusyWithActiveOrder(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, stubActiveOrders{active: map[types.ID]bool{"d1": true}})
	ctx := context.Background()
	seedDriver(t, store, "d1", StatusBusy, DefaultReputation)

	err := svc.SetAvailability(ctx, "d1", false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	d, _ := svc.Get(ctx, "d1")
	if d.Status != StatusBusy {
		t.Fatalf("status = %s, refused toggle must not change it", d.Status)
	}
	if d.LastSeen.IsZero() {
		t.Error("refused toggle should still stamp lastSeen")
	}
}

func TestSetAvailabilityBusyWithoutActiveOrder(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, stubActiveOrders{})
	ctx := context.Background()
	seedDriver(t, store, "d1", StatusBusy, DefaultReputation)

	// Busy but idle (crash leftovers): offline is allowed.
	if err := svc.SetAvailability(ctx, "d1", false); err != nil {
		t.Fatalf("go offline: %v", err)
	}
	d, _ := svc.Get(ctx, "d1")
	if d.Status != StatusOffline {
		t.Fatalf("status = %s, want offline", d.Status)
	}
}

func TestMarkBusyOnlyFromAvailable(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, stubActiveOrders{})
	ctx := context.Background()
	seedDriver(t, store, "d_avail", StatusAvailable, DefaultReputation)
	seedDriver(t, store, "d_off", StatusOffline, DefaultReputation)
	seedDriver(t, store, "d_busy", StatusBusy, DefaultReputation)

	if ok, err := svc.MarkBusy(ctx, "d_avail"); err != nil || !ok {
		t.Fatalf("claim available: ok=%v err=%v", ok, err)
	}
	if ok, _ := svc.MarkBusy(ctx, "d_avail"); ok {
		t.Fatal("second claim of the same driver must lose")
	}
	if ok, _ := svc.MarkBusy(ctx, "d_off"); ok {
		t.Fatal("offline driver must not be claimable")
	}
	if ok, _ := svc.MarkBusy(ctx, "d_busy"); ok {
		t.Fatal("busy driver must not be claimable")
	}

	if ok, err := svc.MarkAvailable(ctx, "d_avail"); err != nil || !ok {
		t.Fatalf("release: ok=%v err=%v", ok, err)
	}
	if ok, _ := svc.MarkAvailable(ctx, "d_off"); ok {
		t.Fatal("releasing a non-busy driver must be a no-op")
	}
}

func TestPenalizeFloorsAtMinimum(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, stubActiveOrders{})
	ctx := context.Background()
	seedDriver(t, store, "d1", StatusAvailable, 2)

	for i := 0; i < 5; i++ {
		if err := svc.Penalize(ctx, "d1", 1); err != nil {
			t.Fatalf("penalize: %v", err)
		}
	}
	d, _ := svc.Get(ctx, "d1")
	if d.Reputation != MinReputation {
		t.Fatalf("reputation = %d, want floor %d", d.Reputation, MinReputation)
	}

	// Non-positive amounts are ignored.
	if err := svc.Penalize(ctx, "d1", 0); err != nil {
		t.Fatalf("penalize zero: %v", err)
	}
}

func TestListAvailableByRegionOrdering(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, stubActiveOrders{})
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	drivers := []*Driver{
		{ID: "d_low", Status: StatusAvailable, Reputation: 3, Wilayah: "Cimahi", LastSeen: base},
		{ID: "d_top", Status: StatusAvailable, Reputation: 5, Wilayah: "Cimahi", LastSeen: base.Add(time.Minute)},
		{ID: "d_tie_b", Status: StatusAvailable, Reputation: 4, Wilayah: "Cimahi", LastSeen: base.Add(time.Hour)},
		{ID: "d_tie_a", Status: StatusAvailable, Reputation: 4, Wilayah: "Cimahi", LastSeen: base},
		{ID: "d_other", Status: StatusAvailable, Reputation: 5, Wilayah: "Bogor", LastSeen: base},
		{ID: "d_offline", Status: StatusOffline, Reputation: 5, Wilayah: "Cimahi", LastSeen: base},
	}
	for _, d := range drivers {
		if err := store.Create(ctx, d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := svc.ListAvailableByRegion(ctx, "Cimahi")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []types.ID{"d_top", "d_tie_a", "d_tie_b", "d_low"}
	if len(got) != len(want) {
		t.Fatalf("got %d drivers, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}
