package guest

import (
	"errors"
	"time"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/google/uuid"
)

// Fingerprint is a stable device identifier used only to look up whether a
// device has an active order. It is never treated as a credential.
type Fingerprint string

var ErrEmptyFingerprint = errors.New("device fingerprint is empty")

func ParseFingerprint(v string) (Fingerprint, error) {
	if v == "" {
		return "", ErrEmptyFingerprint
	}
	return Fingerprint(v), nil
}

// GuestOrder is a device-held snapshot of one order, kept for customers who
// cannot re-query the server entity through an authenticated session.
type GuestOrder struct {
	OrderID         uuid.UUID         `json:"orderId"`
	OrderNumber     string            `json:"orderNumber"`
	Status          order.Status      `json:"status"`
	Type            order.Type        `json:"type"`
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	DeliveryAddress *string           `json:"deliveryAddress,omitempty"`
	Items           []order.OrderItem `json:"items"`
	TotalPriceCents int64             `json:"totalPriceCents"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// FromOrder builds the snapshot retained after placement or recovery.
func FromOrder(o *order.Order) *GuestOrder {
	items := make([]order.OrderItem, len(o.Items))
	copy(items, o.Items)

	return &GuestOrder{
		OrderID:         o.ID,
		OrderNumber:     o.Number,
		Status:          o.Status,
		Type:            o.Type,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		DeliveryAddress: o.DeliveryAddress,
		Items:           items,
		TotalPriceCents: o.TotalPriceCents,
		CreatedAt:       o.CreatedAt,
	}
}

// IsTerminal reports whether the snapshot's order reached a terminal status.
func (g *GuestOrder) IsTerminal() bool {
	return g.Status.IsTerminal()
}
