// README: Order service tests (state graph, role capabilities, creation).
package order

import (
	"context"
	"errors"
	"testing"

	"gelis/internal/types"
)

// TestCanTransition verifies the status graph without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusPickedUp, true},
		{StatusPickedUp, StatusDelivered, true},
		// cancels allowed until the courier holds the goods
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusReady, StatusCancelled, false},
		{StatusPickedUp, StatusCancelled, false},
		// terminal states have no outgoing edges
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		// skipping states
		{StatusPending, StatusPreparing, false},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusReady, false},
		{StatusPreparing, StatusPickedUp, false},
		// no backward edges
		{StatusPreparing, StatusConfirmed, false},
		{StatusReady, StatusPreparing, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRoleCanTransition(t *testing.T) {
	cases := []struct {
		role     Role
		from, to Status
		want     bool
	}{
		{RoleCustomer, StatusPending, StatusCancelled, true},
		{RoleCustomer, StatusConfirmed, StatusCancelled, false},
		{RoleCustomer, StatusPending, StatusConfirmed, false},
		{RolePartner, StatusPending, StatusConfirmed, true},
		{RolePartner, StatusPreparing, StatusReady, true},
		{RolePartner, StatusConfirmed, StatusCancelled, true},
		{RolePartner, StatusReady, StatusPickedUp, false},
		{RoleDriver, StatusReady, StatusPickedUp, true},
		{RoleDriver, StatusPickedUp, StatusDelivered, true},
		{RoleDriver, StatusPending, StatusConfirmed, false},
		{RoleDriver, StatusConfirmed, StatusPreparing, false}, // accept goes through dispatch
		{RoleAdmin, StatusPreparing, StatusCancelled, true},
		{RoleAdmin, StatusPending, StatusConfirmed, false},
		{RoleDispatch, StatusConfirmed, StatusPreparing, true},
		{RoleDispatch, StatusPending, StatusConfirmed, false},
	}
	for _, tc := range cases {
		got := RoleCanTransition(tc.role, tc.from, tc.to)
		if got != tc.want {
			t.Errorf("RoleCanTransition(%s, %s, %s) = %v, want %v", tc.role, tc.from, tc.to, got, tc.want)
		}
	}
}

type fixedPricing struct {
	delivery, service int64
}

func (p fixedPricing) Quote(context.Context, types.ID, types.Money) (types.Money, types.Money, error) {
	return types.Rupiah(p.delivery), types.Rupiah(p.service), nil
}

type stubOwners map[types.ID]types.ID

func (s stubOwners) OwnerOf(_ context.Context, warungID types.ID) (types.ID, error) {
	return s[warungID], nil
}

// testOwners matches the warung every test order is placed against.
var testOwners = stubOwners{"w1": "p1"}

func testItems() []Item {
	return []Item{
		{MenuID: "menu_nasi_goreng", Quantity: 2, UnitPrice: types.Rupiah(15000)},
		{MenuID: "menu_es_teh", Quantity: 1, UnitPrice: types.Rupiah(8000)},
	}
}

func TestCreateKeepsFeesSeparate(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, fixedPricing{delivery: 10000, service: 5000}, testOwners)
	ctx := context.Background()

	orderID, err := svc.Create(ctx, CreateCommand{
		CustomerID:      "c1",
		WarungID:        "w1",
		Items:           testItems(),
		DeliveryAddress: "Jl. Merdeka 1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	o, err := svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o.Status != StatusPending {
		t.Errorf("status = %s, want %s", o.Status, StatusPending)
	}
	if o.TotalAmount.Amount != 38000 {
		t.Errorf("totalAmount = %d, want 38000 (items only)", o.TotalAmount.Amount)
	}
	if o.DeliveryFee.Amount != 10000 {
		t.Errorf("deliveryFee = %d, want 10000", o.DeliveryFee.Amount)
	}
	if o.ServiceFee.Amount != 5000 {
		t.Errorf("serviceFee = %d, want 5000", o.ServiceFee.Amount)
	}
	if o.DriverID != nil {
		t.Errorf("new order has driverId %q, want nil", *o.DriverID)
	}

	events := store.Events(orderID)
	if len(events) != 1 || events[0].ToStatus != StatusPending {
		t.Errorf("expected single creation event to pending, got %+v", events)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()

	cases := []CreateCommand{
		{WarungID: "w1", Items: testItems(), DeliveryAddress: "a"},               // no customer
		{CustomerID: "c1", Items: testItems(), DeliveryAddress: "a"},             // no warung
		{CustomerID: "c1", WarungID: "w1", DeliveryAddress: "a"},                 // no items
		{CustomerID: "c1", WarungID: "w1", Items: testItems()},                   // no address
		{CustomerID: "c1", WarungID: "w1", DeliveryAddress: "a", Items: []Item{{MenuID: "m", Quantity: 0, UnitPrice: types.Rupiah(1)}}},
		{CustomerID: "c1", WarungID: "w1", DeliveryAddress: "a", Items: []Item{{MenuID: "m", Quantity: 1, UnitPrice: types.Rupiah(-1)}}},
	}
	for i, cmd := range cases {
		if _, err := svc.Create(ctx, cmd); !errors.Is(err, ErrBadRequest) {
			t.Errorf("case %d: err = %v, want ErrBadRequest", i, err)
		}
	}
}

func mustCreate(t *testing.T, svc *Service, customerID types.ID) types.ID {
	t.Helper()
	orderID, err := svc.Create(context.Background(), CreateCommand{
		CustomerID:      customerID,
		WarungID:        "w1",
		Items:           testItems(),
		DeliveryAddress: "Jl. Merdeka 1",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return orderID
}

func assertStatus(t *testing.T, svc *Service, orderID types.ID, want Status) {
	t.Helper()
	o, err := svc.Get(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if o.Status != want {
		t.Fatalf("status = %s, want %s", o.Status, want)
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()

	orderID := mustCreate(t, svc, "c_happy")
	assertStatus(t, svc, orderID, StatusPending)

	partner := Actor{Role: RolePartner, ID: "p1"}
	driver := Actor{Role: RoleDriver, ID: "d1"}

	if err := svc.Transition(ctx, TransitionCommand{OrderID: orderID, Target: StatusConfirmed, Actor: partner}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if ok, err := svc.Assign(ctx, orderID, "d1"); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}

	steps := []struct {
		target Status
		actor  Actor
	}{
		{StatusPreparing, Actor{Role: RoleDispatch, ID: "d1"}},
		{StatusReady, partner},
		{StatusPickedUp, driver},
		{StatusDelivered, driver},
	}
	for _, step := range steps {
		err := svc.Transition(ctx, TransitionCommand{OrderID: orderID, Target: step.target, Actor: step.actor})
		if err != nil {
			t.Fatalf("transition to %s: %v", step.target, err)
		}
		assertStatus(t, svc, orderID, step.target)
	}
}

func TestTransitionForbiddenRole(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()
	orderID := mustCreate(t, svc, "c_forbidden")

	// A driver cannot confirm a pending order.
	err := svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusConfirmed,
		Actor:   Actor{Role: RoleDriver, ID: "d1"},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	assertStatus(t, svc, orderID, StatusPending)
}

func TestTransitionInvalidEdge(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()
	orderID := mustCreate(t, svc, "c_invalid")

	err := svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusDelivered,
		Actor:   Actor{Role: RoleAdmin, ID: "a1"},
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionNotFound(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	err := svc.Transition(context.Background(), TransitionCommand{
		OrderID: "nope",
		Target:  StatusConfirmed,
		Actor:   Actor{Role: RolePartner, ID: "p1"},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancelClearsDriver(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()
	orderID := mustCreate(t, svc, "c_cancel")

	partner := Actor{Role: RolePartner, ID: "p1"}
	if err := svc.Transition(ctx, TransitionCommand{OrderID: orderID, Target: StatusConfirmed, Actor: partner}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if ok, err := svc.Assign(ctx, orderID, "d1"); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}

	if err := svc.Transition(ctx, TransitionCommand{OrderID: orderID, Target: StatusCancelled, Actor: partner}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	o, err := svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", o.Status)
	}
	if o.DriverID != nil {
		t.Fatalf("cancelled order still holds driverId %q", *o.DriverID)
	}
}

func TestTransitionOwnershipCustomer(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()
	orderID := mustCreate(t, svc, "c_owner")

	// A stranger cannot cancel someone else's pending order.
	err := svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusCancelled,
		Actor:   Actor{Role: RoleCustomer, ID: "c_stranger"},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	assertStatus(t, svc, orderID, StatusPending)

	// The placing customer can.
	err = svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusCancelled,
		Actor:   Actor{Role: RoleCustomer, ID: "c_owner"},
	})
	if err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
	assertStatus(t, svc, orderID, StatusCancelled)
}

func TestTransitionOwnershipPartner(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()
	orderID := mustCreate(t, svc, "c1")

	// A partner who does not own the warung cannot confirm its orders.
	err := svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusConfirmed,
		Actor:   Actor{Role: RolePartner, ID: "p_other"},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	assertStatus(t, svc, orderID, StatusPending)

	err = svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusConfirmed,
		Actor:   Actor{Role: RolePartner, ID: "p1"},
	})
	if err != nil {
		t.Fatalf("owner confirm: %v", err)
	}
	assertStatus(t, svc, orderID, StatusConfirmed)
}

func TestTransitionOwnershipDriver(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()
	orderID := mustCreate(t, svc, "c1")

	partner := Actor{Role: RolePartner, ID: "p1"}
	if err := svc.Transition(ctx, TransitionCommand{OrderID: orderID, Target: StatusConfirmed, Actor: partner}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if ok, err := svc.Assign(ctx, orderID, "d_assigned"); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	if ok, err := svc.AcceptAssignment(ctx, orderID, "d_assigned"); err != nil || !ok {
		t.Fatalf("accept: ok=%v err=%v", ok, err)
	}
	if err := svc.Transition(ctx, TransitionCommand{OrderID: orderID, Target: StatusReady, Actor: partner}); err != nil {
		t.Fatalf("ready: %v", err)
	}

	// Only the assigned driver may move the order forward.
	err := svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusPickedUp,
		Actor:   Actor{Role: RoleDriver, ID: "d_other"},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	assertStatus(t, svc, orderID, StatusReady)

	err = svc.Transition(ctx, TransitionCommand{
		OrderID: orderID,
		Target:  StatusPickedUp,
		Actor:   Actor{Role: RoleDriver, ID: "d_assigned"},
	})
	if err != nil {
		t.Fatalf("assigned driver pickup: %v", err)
	}
	assertStatus(t, svc, orderID, StatusPickedUp)
}

func TestMemStoreGetReturnsCopy(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()
	orderID := mustCreate(t, svc, "c_copy")

	o1, err := svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	o1.Status = StatusDelivered
	o1.Items[0].Quantity = 99

	o2, err := svc.Get(ctx, orderID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o2.Status != StatusPending {
		t.Errorf("mutating a returned order leaked into the store: status %s", o2.Status)
	}
	if o2.Items[0].Quantity != 2 {
		t.Errorf("mutating a returned item leaked into the store: quantity %d", o2.Items[0].Quantity)
	}
}

func TestReleaseStampsRejectionOnly(t *testing.T) {
	svc := NewService(NewMemStore(), nil, testOwners)
	ctx := context.Background()

	setup := func(customer types.ID) types.ID {
		orderID := mustCreate(t, svc, customer)
		err := svc.Transition(ctx, TransitionCommand{
			OrderID: orderID, Target: StatusConfirmed, Actor: Actor{Role: RolePartner, ID: "p1"},
		})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if ok, err := svc.Assign(ctx, orderID, "d1"); err != nil || !ok {
			t.Fatalf("assign: ok=%v err=%v", ok, err)
		}
		return orderID
	}

	rejected := setup("c_rej")
	if ok, err := svc.ReleaseAssignment(ctx, rejected, "d1", true); err != nil || !ok {
		t.Fatalf("release rejected: ok=%v err=%v", ok, err)
	}
	o, _ := svc.Get(ctx, rejected)
	if o.DriverRejectedAt == nil {
		t.Error("rejection did not stamp driverRejectedAt")
	}
	if o.DriverID != nil {
		t.Error("released order still assigned")
	}

	timedOut := setup("c_to")
	if ok, err := svc.ReleaseAssignment(ctx, timedOut, "d1", false); err != nil || !ok {
		t.Fatalf("release timeout: ok=%v err=%v", ok, err)
	}
	o, _ = svc.Get(ctx, timedOut)
	if o.DriverRejectedAt != nil {
		t.Error("timeout release must not stamp driverRejectedAt")
	}
}
