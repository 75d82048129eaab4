// README: Dispatch coordinator: driver selection, acceptance window, re-dispatch.
package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gelis/internal/config"
	"gelis/internal/logger"
	"gelis/internal/modules/driver"
	"gelis/internal/modules/order"
	"gelis/internal/modules/warung"
	"gelis/internal/types"
)

const rejectPenalty = 1

type Service struct {
	orders   *order.Service
	drivers  *driver.Service
	warungs  warung.Store
	store    Store
	notifier Notifier
	cfg      config.DispatchConfig
	pick     SelectDriver

	mu     sync.Mutex
	timers map[types.ID]*pendingAssignment
}

// pendingAssignment is the live acceptance timer for one order. The driverID
// acts as the timer token: a timer only resolves the assignment it was armed
// for, never a successor.
type pendingAssignment struct {
	driverID types.ID
	timer    *time.Timer
}

func NewService(
	orders *order.Service,
	drivers *driver.Service,
	warungs warung.Store,
	store Store,
	notifier Notifier,
	cfg config.DispatchConfig,
) *Service {
	if cfg.AcceptWindow <= 0 {
		cfg.AcceptWindow = DefaultAcceptWindow
	}
	if cfg.RescanInterval <= 0 {
		cfg.RescanInterval = DefaultRescanInterval
	}
	return &Service{
		orders:   orders,
		drivers:  drivers,
		warungs:  warungs,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		pick:     DefaultSelect,
		timers:   make(map[types.ID]*pendingAssignment),
	}
}

// SetSelector swaps the selection strategy. Must be called before dispatching.
func (s *Service) SetSelector(pick SelectDriver) {
	s.pick = pick
}

// ConfirmOrder applies the partner's pending -> confirmed edge and hands the
// order to dispatch. Dispatch failure is not the caller's problem: the rescan
// loop retries, so only the transition error propagates.
func (s *Service) ConfirmOrder(ctx context.Context, orderID types.ID, actor order.Actor) error {
	err := s.orders.Transition(ctx, order.TransitionCommand{
		OrderID: orderID,
		Target:  order.StatusConfirmed,
		Actor:   actor,
	})
	if err != nil {
		return err
	}
	if err := s.DispatchOrder(ctx, orderID); err != nil {
		logger.L().Warn("initial dispatch failed, rescan will retry",
			zap.String("orderId", string(orderID)), zap.Error(err))
	}
	return nil
}

// DispatchOrder binds at most one driver to a confirmed, unassigned order.
// No eligible driver is not an error: the order stays confirmed with a nil
// driverId until a rescan finds one or the order is cancelled.
func (s *Service) DispatchOrder(ctx context.Context, orderID types.ID) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != order.StatusConfirmed || o.DriverID != nil {
		return nil
	}
	w, err := s.warungs.Get(ctx, o.WarungID)
	if err != nil {
		return err
	}
	excluded, err := s.store.Excluded(ctx, orderID)
	if err != nil {
		return err
	}
	pool, err := s.drivers.ListAvailableByRegion(ctx, w.Wilayah)
	if err != nil {
		return err
	}

	eligible := make([]*driver.Driver, 0, len(pool))
	for _, d := range pool {
		if _, skip := excluded[d.ID]; skip {
			continue
		}
		if s.cfg.MinReputation > 0 && d.Reputation < s.cfg.MinReputation {
			continue
		}
		eligible = append(eligible, d)
	}

	for len(eligible) > 0 {
		cand := s.pick(eligible)

		// Claim the driver first; losing this CAS means another order got
		// them between the query and now.
		claimed, err := s.drivers.MarkBusy(ctx, cand.ID)
		if err != nil {
			return err
		}
		if !claimed {
			eligible = dropCandidate(eligible, cand.ID)
			continue
		}

		assigned, err := s.orders.Assign(ctx, orderID, cand.ID)
		if err != nil || !assigned {
			// Order was cancelled or assigned elsewhere; release the claim.
			if _, mErr := s.drivers.MarkAvailable(ctx, cand.ID); mErr != nil {
				logger.L().Error("failed to release claimed driver",
					zap.String("driverId", string(cand.ID)), zap.Error(mErr))
			}
			return err
		}

		if err := s.store.RecordDispatch(ctx, orderID, cand.ID); err != nil {
			logger.L().Warn("dispatch bookkeeping write failed", zap.Error(err))
		}
		if err := s.notifier.NotifyAssignment(ctx, Assignment{
			DriverID:         string(cand.ID),
			OrderID:          string(orderID),
			WarungName:       w.Name,
			DeliveryFee:      o.DeliveryFee.Amount,
			DeliveryAddress:  o.DeliveryAddress,
			EstimatedMinutes: o.EstimatedMinutes,
		}); err != nil {
			logger.L().Warn("assignment notification failed",
				zap.String("orderId", string(orderID)), zap.Error(err))
		}
		s.startTimer(orderID, cand.ID)
		logger.L().Info("order dispatched",
			zap.String("orderId", string(orderID)),
			zap.String("driverId", string(cand.ID)),
			zap.String("wilayah", w.Wilayah))
		return nil
	}

	logger.L().Info("no eligible driver, order awaiting dispatch",
		zap.String("orderId", string(orderID)), zap.String("wilayah", w.Wilayah))
	return nil
}

// Accept resolves the acceptance window in the driver's favour. The
// compare-and-swap on (order, driverId, status) picks exactly one winner
// between a late accept and a concurrent expiry; the loser sees Forbidden
// with no state change, whether it was stale, delayed, or duplicated.
func (s *Service) Accept(ctx context.Context, orderID, driverID types.ID) error {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return err
	}
	won, err := s.orders.AcceptAssignment(ctx, orderID, driverID)
	if err != nil {
		return err
	}
	if !won {
		return order.ErrForbidden
	}
	s.stopTimer(orderID, driverID)
	logger.L().Info("assignment accepted",
		zap.String("orderId", string(orderID)), zap.String("driverId", string(driverID)))
	return nil
}

// Reject resolves the window against the driver. Rejecting an assignment that
// was already resolved is a no-op, never a second penalty.
func (s *Service) Reject(ctx context.Context, orderID, driverID types.ID) error {
	if _, err := s.orders.Get(ctx, orderID); err != nil {
		return err
	}
	return s.resolve(ctx, orderID, driverID, CauseRejected)
}

// CancelOrder cancels through the state machine, then tears down any live
// assignment: the timer dies and the driver returns to the pool unpenalized.
func (s *Service) CancelOrder(ctx context.Context, orderID types.ID, actor order.Actor) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	err = s.orders.Transition(ctx, order.TransitionCommand{
		OrderID: orderID,
		Target:  order.StatusCancelled,
		Actor:   actor,
	})
	if err != nil {
		return err
	}
	// The cancel write nulled driver_id, so the timer map is the source of
	// truth for who was assigned, including a dispatch that landed after the
	// read above. The pre-read driver covers assignments with no timer left;
	// anything missed by both is repaired by the reconcile loop.
	driverID, assigned := s.takeTimer(orderID)
	if !assigned && o.DriverID != nil {
		driverID, assigned = *o.DriverID, true
	}
	if assigned {
		if _, err := s.drivers.MarkAvailable(ctx, driverID); err != nil {
			logger.L().Error("failed to release driver after cancel",
				zap.String("driverId", string(driverID)), zap.Error(err))
		}
	}
	return nil
}

// AdvanceStatus applies a lifecycle edge on behalf of a client actor and
// keeps driver availability consistent with it: delivery frees the driver.
func (s *Service) AdvanceStatus(ctx context.Context, orderID types.ID, target order.Status, actor order.Actor) error {
	if target == order.StatusCancelled {
		return s.CancelOrder(ctx, orderID, actor)
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	err = s.orders.Transition(ctx, order.TransitionCommand{
		OrderID: orderID,
		Target:  target,
		Actor:   actor,
	})
	if err != nil {
		return err
	}
	if target == order.StatusDelivered && o.DriverID != nil {
		if _, err := s.drivers.MarkAvailable(ctx, *o.DriverID); err != nil {
			logger.L().Error("failed to release driver after delivery",
				zap.String("driverId", string(*o.DriverID)), zap.Error(err))
		}
	}
	return nil
}

// AwaitingDriver lists confirmed orders that have waited for a driver past
// the configured threshold; surfaced to partner/admin instead of silently
// retrying forever.
func (s *Service) AwaitingDriver(ctx context.Context) ([]*order.Order, error) {
	cutoff := time.Now().Add(-s.cfg.AwaitingThreshold)
	return s.orders.ListAwaitingDriver(ctx, cutoff, rescanBatch)
}

// RunRescan periodically retries confirmed orders that have no driver yet.
func (s *Service) RunRescan(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			parked, err := s.orders.ListUnassigned(ctx, rescanBatch)
			if err != nil {
				logger.L().Warn("rescan query failed", zap.Error(err))
				continue
			}
			for _, o := range parked {
				if s.hasTimer(o.ID) {
					continue
				}
				if err := s.DispatchOrder(ctx, o.ID); err != nil {
					logger.L().Warn("rescan dispatch failed",
						zap.String("orderId", string(o.ID)), zap.Error(err))
				}
			}
		}
	}
}

// RunReconcile repairs drivers stuck busy with no active order, which can
// happen when the two-record update around an assignment is torn by a crash.
func (s *Service) RunReconcile(ctx context.Context) {
	if s.cfg.ReconcileInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			busy, err := s.drivers.ListBusy(ctx)
			if err != nil {
				logger.L().Warn("reconcile query failed", zap.Error(err))
				continue
			}
			for _, d := range busy {
				active, err := s.orders.HasActiveByDriver(ctx, d.ID)
				if err != nil || active {
					continue
				}
				if ok, _ := s.drivers.MarkAvailable(ctx, d.ID); ok {
					logger.L().Info("reconciled stranded busy driver",
						zap.String("driverId", string(d.ID)))
				}
			}
		}
	}
}

// Stop cancels all live acceptance timers. Called on shutdown; the rescan
// loop of the next process picks the orders back up.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, id)
	}
}

// resolve is the single funnel for reject and timeout. The ReleaseAssignment
// CAS picks one winner; only the winner excludes, penalizes, frees the
// driver, and re-dispatches.
func (s *Service) resolve(ctx context.Context, orderID, driverID types.ID, cause Cause) error {
	won, err := s.orders.ReleaseAssignment(ctx, orderID, driverID, cause == CauseRejected)
	s.stopTimer(orderID, driverID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	if err := s.store.AddExcluded(ctx, orderID, driverID, cause); err != nil {
		logger.L().Warn("failed to record exclusion", zap.Error(err))
	}
	if err := s.drivers.Penalize(ctx, driverID, rejectPenalty); err != nil {
		logger.L().Error("reputation penalty failed",
			zap.String("driverId", string(driverID)), zap.Error(err))
	}
	// A driver who never responded must still be freed here, or they stay
	// stranded busy and unreachable for new work.
	if _, err := s.drivers.MarkAvailable(ctx, driverID); err != nil {
		logger.L().Error("failed to free driver after "+string(cause),
			zap.String("driverId", string(driverID)), zap.Error(err))
	}
	logger.L().Info("assignment released",
		zap.String("orderId", string(orderID)),
		zap.String("driverId", string(driverID)),
		zap.String("cause", string(cause)))
	return s.DispatchOrder(ctx, orderID)
}

func (s *Service) handleTimeout(orderID, driverID types.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.resolve(ctx, orderID, driverID, CauseTimeout); err != nil {
		logger.L().Error("timeout resolution failed",
			zap.String("orderId", string(orderID)), zap.Error(err))
	}
}

func (s *Service) startTimer(orderID, driverID types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.timers[orderID]; ok {
		p.timer.Stop()
	}
	s.timers[orderID] = &pendingAssignment{
		driverID: driverID,
		timer: time.AfterFunc(s.cfg.AcceptWindow, func() {
			s.handleTimeout(orderID, driverID)
		}),
	}
}

// takeTimer disarms and removes the order's timer regardless of which driver
// it was armed for, returning that driver. Only valid once the order is
// terminal and can never be re-dispatched.
func (s *Service) takeTimer(orderID types.ID) (types.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.timers[orderID]
	if !ok {
		return "", false
	}
	p.timer.Stop()
	delete(s.timers, orderID)
	return p.driverID, true
}

func (s *Service) stopTimer(orderID, driverID types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.timers[orderID]; ok && p.driverID == driverID {
		p.timer.Stop()
		delete(s.timers, orderID)
	}
}

func (s *Service) hasTimer(orderID types.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[orderID]
	return ok
}

func dropCandidate(pool []*driver.Driver, id types.ID) []*driver.Driver {
	out := pool[:0]
	for _, d := range pool {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}
