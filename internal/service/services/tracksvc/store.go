package tracksvc

import (
	"errors"
	"sync"

	"github.com/corray333/ordertrack/internal/service/models/guest"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/google/uuid"
)

// ViewLifecycle is the customer-facing state of the ordering screen.
type ViewLifecycle string

const (
	ViewReviewing  ViewLifecycle = "reviewing"
	ViewProcessing ViewLifecycle = "processing"
	ViewReceipt    ViewLifecycle = "receipt"
)

var (
	ErrOrderInProgress   = errors.New("an active order already exists for this device")
	ErrPlacementPending  = errors.New("order placement already in progress")
	ErrNoActiveOrder     = errors.New("no active order for this device")
	ErrOrderStillActive  = errors.New("order has not reached a terminal status")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidItemIndex  = errors.New("cart item index out of range")
	ErrCreateOrderFailed = errors.New("order placement failed")
)

// Session is the per-device order state store: the working cart before an
// order exists, the single GuestOrder slot after placement, the view
// lifecycle and the unread-update flag. All mutation goes through its
// methods under the session lock; the GuestOrder status in particular is
// written only by applyEvent (the reconciler path) after creation.
type Session struct {
	mu sync.Mutex

	fingerprint guest.Fingerprint
	cart        []order.OrderItem
	guestOrder  *guest.GuestOrder
	lifecycle   ViewLifecycle
	unread      bool
	welcomeBack bool

	// recoveryDone latches after a conclusive recovery lookup so snapshot
	// polls stop re-querying for devices with no abandoned order.
	recoveryDone bool
}

// Snapshot is the reactive view of a session handed to UI layers.
type Snapshot struct {
	Fingerprint guest.Fingerprint `json:"fingerprint"`
	Cart        []order.OrderItem `json:"cart"`
	GuestOrder  *guest.GuestOrder `json:"guestOrder,omitempty"`
	Lifecycle   ViewLifecycle     `json:"lifecycle"`
	Unread      bool              `json:"unread"`
	WelcomeBack bool              `json:"welcomeBack,omitempty"`
}

func newSession(fingerprint guest.Fingerprint) *Session {
	return &Session{
		fingerprint: fingerprint,
		lifecycle:   ViewReviewing,
	}
}

// Snapshot returns a copy of the session state. The welcome-back signal is
// consumed by the read: it fires once per recovery.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := make([]order.OrderItem, len(s.cart))
	copy(cart, s.cart)

	var g *guest.GuestOrder
	if s.guestOrder != nil {
		cp := *s.guestOrder
		g = &cp
	}

	snap := Snapshot{
		Fingerprint: s.fingerprint,
		Cart:        cart,
		GuestOrder:  g,
		Lifecycle:   s.lifecycle,
		Unread:      s.unread,
		WelcomeBack: s.welcomeBack,
	}
	s.welcomeBack = false

	return snap
}

// AddItem appends an item to the working cart.
func (s *Session) AddItem(item order.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.Quantity < 1 {
		return errors.New("item quantity must be at least 1")
	}
	s.cart = append(s.cart, item)

	return nil
}

// RemoveItem removes the cart item at the given position.
func (s *Session) RemoveItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.cart) {
		return ErrInvalidItemIndex
	}
	s.cart = append(s.cart[:index], s.cart[index+1:]...)

	return nil
}

// beginPlacement moves the view to processing and hands back the cart
// contents. A second placement while a non-terminal GuestOrder exists is
// rejected, not overwritten.
func (s *Session) beginPlacement() ([]order.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guestOrder != nil && !s.guestOrder.IsTerminal() {
		return nil, ErrOrderInProgress
	}
	if s.lifecycle == ViewProcessing {
		return nil, ErrPlacementPending
	}
	if len(s.cart) == 0 {
		return nil, ErrEmptyCart
	}

	s.lifecycle = ViewProcessing
	items := make([]order.OrderItem, len(s.cart))
	copy(items, s.cart)

	return items, nil
}

// completePlacement adopts the created order as the session's GuestOrder,
// clears the cart and moves the view to the receipt.
func (s *Session) completePlacement(o *order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guestOrder = guest.FromOrder(o)
	s.cart = nil
	s.lifecycle = ViewReceipt
	s.unread = false
}

// failPlacement reverts the view to reviewing. The cart is untouched so the
// customer can retry.
func (s *Session) failPlacement() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lifecycle = ViewReviewing
}

// adoptRecovered seats a recovered order if, and only if, the slot is still
// empty: a placement that raced the recovery lookup wins, and the lookup
// result is discarded.
func (s *Session) adoptRecovered(o *order.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recoveryDone = true

	if s.guestOrder != nil {
		return false
	}

	s.guestOrder = guest.FromOrder(o)
	s.lifecycle = ViewReceipt
	s.welcomeBack = true

	return true
}

// recoveryAttempted reports whether a conclusive recovery lookup already ran.
func (s *Session) recoveryAttempted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.recoveryDone
}

// markRecoveryAttempted latches recovery after a conclusive lookup.
func (s *Session) markRecoveryAttempted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recoveryDone = true
}

// OpenReceipt marks the receipt view as opened, which is the one action
// that clears the unread flag.
func (s *Session) OpenReceipt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guestOrder == nil {
		return ErrNoActiveOrder
	}

	s.lifecycle = ViewReceipt
	s.unread = false

	return nil
}

// dismiss clears the GuestOrder. Only a terminal order may be dismissed;
// while the order is active the snapshot is the only client-side record of
// an anonymous order and must not be silently lost.
func (s *Session) dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guestOrder == nil {
		return ErrNoActiveOrder
	}
	if !s.guestOrder.IsTerminal() {
		return ErrOrderStillActive
	}

	s.guestOrder = nil
	s.lifecycle = ViewReviewing
	s.unread = false

	return nil
}

// applyEvent runs the reconciler against the session's GuestOrder under the
// session lock. This is the only writer of GuestOrder.Status after creation.
// It reports whether tracking is finished (order cleared or terminal).
func (s *Session) applyEvent(ev statusevent.StatusEvent) ([]Effect, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, effects, err := Merge(s.guestOrder, ev)
	if err != nil {
		return nil, s.guestOrder == nil || s.guestOrder.IsTerminal(), err
	}

	s.guestOrder = updated
	for _, effect := range effects {
		if effect.Kind == EffectUnread {
			s.unread = true
		}
	}

	done := s.guestOrder == nil || s.guestOrder.IsTerminal()

	return effects, done, nil
}

// idle reports whether the session holds no state worth retaining: no
// order, no cart, back on the ordering view.
func (s *Session) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.guestOrder == nil && len(s.cart) == 0 && s.lifecycle == ViewReviewing
}

// trackedOrder returns the id of the tracked order, if any.
func (s *Session) trackedOrder() (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guestOrder == nil {
		return uuid.UUID{}, false
	}

	return s.guestOrder.OrderID, true
}
