package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/corray333/ordertrack/internal/service/models/currency"
	"github.com/google/uuid"
)

// Type represents how an order is fulfilled.
type Type string

const (
	TypeDelivery Type = "delivery"
	TypePickup   Type = "pickup"
)

var (
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrInvalidIdentity  = errors.New("order must have exactly one of user id or guest contact")
	ErrOrderNotFound    = errors.New("order not found")
)

// Order represents an order in the system.
type Order struct {
	ID                 uuid.UUID         `json:"id"`
	Number             string            `json:"number"`
	Status             Status            `json:"status"`
	Type               Type              `json:"type"`
	TotalPriceCents    int64             `json:"totalPriceCents"`
	TotalPriceCurrency currency.Currency `json:"totalPriceCurrency"`

	// Exactly one of UserID or the guest contact fields is populated.
	UserID        *uuid.UUID `json:"userId,omitempty"`
	CustomerName  string     `json:"customerName,omitempty"`
	CustomerPhone string     `json:"customerPhone,omitempty"`

	// DeviceFingerprint links a guest order to the device that placed it,
	// for session recovery only. Empty for authenticated orders.
	DeviceFingerprint string `json:"deviceFingerprint,omitempty"`

	DeliveryAddress *string     `json:"deliveryAddress,omitempty"`
	Items           []OrderItem `json:"items"`

	CreatedAt    time.Time  `json:"createdAt"`
	ConfirmedAt  *time.Time `json:"confirmedAt,omitempty"`
	PreparingAt  *time.Time `json:"preparingAt,omitempty"`
	ReadyAt      *time.Time `json:"readyAt,omitempty"`
	DeliveringAt *time.Time `json:"deliveringAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
}

// OrderItem represents a line item of an order.
type OrderItem struct {
	ID             int64     `json:"id"`
	OrderID        uuid.UUID `json:"orderId"`
	ProductID      uuid.UUID `json:"productId"`
	VariantID      uuid.UUID `json:"variantId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Note           string    `json:"note,omitempty"`
}

// Validate applies the business invariants on a new order.
func (o *Order) Validate() error {
	if o.Type != TypeDelivery && o.Type != TypePickup {
		return ErrInvalidOrderType
	}

	hasUser := o.UserID != nil
	hasGuest := o.CustomerName != "" || o.CustomerPhone != ""
	if hasUser == hasGuest {
		return ErrInvalidIdentity
	}

	if o.Type == TypeDelivery && (o.DeliveryAddress == nil || *o.DeliveryAddress == "") {
		return errors.New("delivery address required for delivery orders")
	}

	if len(o.Items) == 0 {
		return errors.New("order must have at least one item")
	}
	for _, item := range o.Items {
		if item.Quantity < 1 {
			return errors.New("item quantity must be at least 1")
		}
		if item.UnitPriceCents < 0 {
			return errors.New("item price must be non-negative")
		}
	}

	if o.TotalPriceCents < 0 {
		return errors.New("total price must be non-negative")
	}

	return nil
}

// CalculateTotal recomputes the total from the line items.
func (o *Order) CalculateTotal() {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	o.TotalPriceCents = total
}

// IsGuest reports whether the order was placed without an authenticated user.
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// ApplyStatus transitions the order to next, stamping the transition
// timestamp for the entered status. Each timestamp is set at most once;
// a transition absent from the graph is rejected without side effects.
func (o *Order) ApplyStatus(next Status, now time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	// ready -> delivered is a pickup-only edge; a delivery order must pass
	// through out_for_delivery.
	if o.Status == StatusReady && next == StatusDelivered && o.Type == TypeDelivery {
		return fmt.Errorf("%w: %s -> %s for delivery orders", ErrInvalidTransition, o.Status, next)
	}

	o.Status = next

	switch next {
	case StatusConfirmed:
		if o.ConfirmedAt == nil {
			o.ConfirmedAt = &now
		}
	case StatusPreparing:
		if o.PreparingAt == nil {
			o.PreparingAt = &now
		}
	case StatusReady:
		if o.ReadyAt == nil {
			o.ReadyAt = &now
		}
	case StatusOutForDelivery:
		if o.DeliveringAt == nil {
			o.DeliveringAt = &now
		}
	case StatusDelivered:
		if o.CompletedAt == nil && o.CancelledAt == nil {
			o.CompletedAt = &now
		}
	case StatusCancelled:
		if o.CompletedAt == nil && o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}

	return nil
}

// StatusEnteredAt returns the timestamp at which the order entered its
// current status, falling back to CreatedAt when the specific transition
// timestamp is absent.
func (o *Order) StatusEnteredAt() time.Time {
	var ts *time.Time
	switch o.Status {
	case StatusConfirmed:
		ts = o.ConfirmedAt
	case StatusPreparing:
		ts = o.PreparingAt
	case StatusReady:
		ts = o.ReadyAt
	case StatusOutForDelivery:
		ts = o.DeliveringAt
	case StatusDelivered:
		ts = o.CompletedAt
	case StatusCancelled:
		ts = o.CancelledAt
	}
	if ts == nil {
		return o.CreatedAt
	}
	return *ts
}
