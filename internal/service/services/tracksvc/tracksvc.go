package tracksvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/ordertrack/internal/service/models/guest"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/corray333/ordertrack/internal/worker/poller"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// dataService is the slice of the order service the tracker consumes.
type dataService interface {
	CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error)
	FetchOrderStatus(ctx context.Context, id uuid.UUID) (order.Status, error)
	FindActiveGuestOrder(ctx context.Context, fingerprint string) (*order.Order, error)
}

// NotifyFunc receives the user-facing notification side effects emitted by
// the reconciler. Delivery mechanics live outside this service.
type NotifyFunc func(fingerprint guest.Fingerprint, orderID uuid.UUID, status order.Status)

// tracking ties one tracked order to its session and its polling worker.
type tracking struct {
	session *Session
	poller  *poller.Worker
}

// TrackService hosts the per-device tracking sessions: it owns the session
// registry, routes push events into the reconciler, and supervises one
// polling worker per tracked order.
type TrackService struct {
	orders        dataService
	notify        NotifyFunc
	lookupTimeout time.Duration

	runCtx context.Context

	mu       sync.Mutex
	sessions map[guest.Fingerprint]*Session
	tracked  map[uuid.UUID]*tracking
}

// option is a function that configures the TrackService.
type option func(*TrackService)

// MustNewTrackService creates a new TrackService.
func MustNewTrackService(opts ...option) *TrackService {
	lookupTimeoutSeconds := viper.GetInt("tracker.lookup_timeout_seconds")
	if lookupTimeoutSeconds == 0 {
		lookupTimeoutSeconds = 3
	}

	s := &TrackService{
		lookupTimeout: time.Duration(lookupTimeoutSeconds) * time.Second,
		runCtx:        context.Background(),
		sessions:      make(map[guest.Fingerprint]*Session),
		tracked:       make(map[uuid.UUID]*tracking),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.notify == nil {
		s.notify = func(fingerprint guest.Fingerprint, orderID uuid.UUID, status order.Status) {
			slog.Info("Order status notification",
				"fingerprint", fingerprint,
				"order_id", orderID,
				"status", status,
			)
		}
	}

	return s
}

// WithOrderService sets the order service backing the tracker.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(orders dataService) option {
	return func(s *TrackService) {
		s.orders = orders
	}
}

// WithNotifier sets the notification hook.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithNotifier(notify NotifyFunc) option {
	return func(s *TrackService) {
		s.notify = notify
	}
}

// Start binds the lifetime of the tracker's polling workers to ctx.
func (s *TrackService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runCtx = ctx
}

// Shutdown stops every polling worker.
func (s *TrackService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tracked {
		t.poller.Stop()
	}
	s.tracked = make(map[uuid.UUID]*tracking)
}

// Session returns the session for a device, creating it on first use.
func (s *TrackService) Session(fingerprint guest.Fingerprint) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[fingerprint]
	if !ok {
		sess = newSession(fingerprint)
		s.sessions[fingerprint] = sess
	}

	return sess
}

// PlaceOrderCommand carries the customer details of a placement.
type PlaceOrderCommand struct {
	CustomerName    string
	CustomerPhone   string
	OrderType       order.Type
	DeliveryAddress *string
}

// PlaceOrder turns the session's cart into a new order. On success the cart
// is cleared, the GuestOrder snapshot is adopted and tracking starts; on
// failure the view reverts to reviewing with the cart preserved.
func (s *TrackService) PlaceOrder(ctx context.Context, fingerprint guest.Fingerprint, cmd PlaceOrderCommand) (Snapshot, error) {
	sess := s.Session(fingerprint)

	items, err := sess.beginPlacement()
	if err != nil {
		return sess.Snapshot(), err
	}

	o := &order.Order{
		Type:              cmd.OrderType,
		CustomerName:      cmd.CustomerName,
		CustomerPhone:     cmd.CustomerPhone,
		DeliveryAddress:   cmd.DeliveryAddress,
		DeviceFingerprint: string(fingerprint),
		Items:             items,
	}

	created, err := s.orders.CreateOrder(ctx, o)
	if err != nil {
		sess.failPlacement()
		slog.Error("Order placement failed", "fingerprint", fingerprint, "error", err)

		return sess.Snapshot(), fmt.Errorf("%w: %w", ErrCreateOrderFailed, err)
	}

	sess.completePlacement(created)
	s.track(sess, created.ID)

	slog.Info("Order placed",
		"fingerprint", fingerprint,
		"order_id", created.ID,
		"order_number", created.Number,
	)

	return sess.Snapshot(), nil
}

// RecoverSession looks up an abandoned active guest order for the device and
// seats it into the session. The lookup runs once per session: a conclusive
// result (found or nothing to recover) latches, so snapshot polls do not
// re-query; a transient lookup failure does not latch and fails open, since
// a failed recovery must never block ordering. It reports whether an order
// was recovered (the "welcome back" signal).
func (s *TrackService) RecoverSession(ctx context.Context, fingerprint guest.Fingerprint) bool {
	sess := s.Session(fingerprint)

	if sess.recoveryAttempted() {
		return false
	}
	if _, ok := sess.trackedOrder(); ok {
		return false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	o, err := s.orders.FindActiveGuestOrder(lookupCtx, string(fingerprint))
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			// Conclusive: nothing to recover, stop looking on later reads.
			sess.markRecoveryAttempted()
		} else {
			// Transient failure: fail open and retry on the next read.
			slog.Warn("Guest order lookup failed, continuing without recovery",
				"fingerprint", fingerprint,
				"error", err,
			)
		}

		return false
	}

	// A placement that raced this lookup wins; the recovered order is
	// discarded in that case.
	if !sess.adoptRecovered(o) {
		return false
	}

	s.track(sess, o.ID)
	slog.Info("Guest session recovered", "fingerprint", fingerprint, "order_id", o.ID)

	return true
}

// Dispatch feeds a push event into the reconciler of whichever session
// tracks the order. Events for untracked orders are dropped.
func (s *TrackService) Dispatch(ev statusevent.StatusEvent) {
	s.mu.Lock()
	t, ok := s.tracked[ev.OrderID]
	s.mu.Unlock()

	if !ok {
		slog.Debug("Status event for untracked order dropped", "order_id", ev.OrderID)

		return
	}

	s.applyEvent(t.session, ev)
}

// OpenReceipt clears the unread flag for the device's session.
func (s *TrackService) OpenReceipt(fingerprint guest.Fingerprint) error {
	return s.Session(fingerprint).OpenReceipt()
}

// Dismiss clears a terminal GuestOrder and tears down its tracking. A
// session left with no order and no cart is dropped from the registry so
// the registry only holds devices with live state.
func (s *TrackService) Dismiss(fingerprint guest.Fingerprint) error {
	sess := s.Session(fingerprint)

	orderID, tracked := sess.trackedOrder()
	if err := sess.dismiss(); err != nil {
		return err
	}
	if tracked {
		s.untrack(orderID)
	}

	if sess.idle() {
		s.mu.Lock()
		if s.sessions[fingerprint] == sess {
			delete(s.sessions, fingerprint)
		}
		s.mu.Unlock()
	}

	return nil
}

// track registers the order for push dispatch and starts its polling
// worker. At most one subscription per order id: a previous registration
// for the same order is torn down first.
func (s *TrackService) track(sess *Session, orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tracked[orderID]; ok {
		prev.poller.Stop()
	}

	w := poller.NewWorker(orderID, s.orders, func(ev statusevent.StatusEvent) bool {
		return s.applyEvent(sess, ev)
	})
	s.tracked[orderID] = &tracking{session: sess, poller: w}

	go w.Start(s.runCtx)
}

// untrack stops the polling worker and removes the push registration.
func (s *TrackService) untrack(orderID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tracked[orderID]; ok {
		t.poller.Stop()
		delete(s.tracked, orderID)
	}
}

// applyEvent reconciles one event and handles its side effects. It reports
// whether tracking is finished.
func (s *TrackService) applyEvent(sess *Session, ev statusevent.StatusEvent) bool {
	effects, done, err := sess.applyEvent(ev)
	if err != nil {
		// Expected under duplicate or out-of-order delivery; never
		// surfaced to the customer.
		slog.Warn("Status event rejected",
			"order_id", ev.OrderID,
			"source", ev.Source,
			"error", err,
		)

		return done
	}

	for _, effect := range effects {
		if effect.Kind == EffectNotify {
			s.notify(sess.fingerprint, ev.OrderID, effect.Status)
		}
	}

	if done {
		s.untrack(ev.OrderID)
	}

	return done
}
