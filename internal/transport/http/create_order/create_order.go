package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/google/uuid"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error)
}

type createOrderRequest struct {
	OrderType       string        `json:"orderType"`
	UserID          *uuid.UUID    `json:"userId,omitempty"`
	CustomerName    string        `json:"customerName,omitempty"`
	CustomerPhone   string        `json:"customerPhone,omitempty"`
	DeliveryAddress *string       `json:"deliveryAddress,omitempty"`
	Fingerprint     string        `json:"deviceFingerprint,omitempty"`
	Items           []itemRequest `json:"items"`
}

type itemRequest struct {
	ProductID      uuid.UUID `json:"productId"`
	VariantID      uuid.UUID `json:"variantId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Note           string    `json:"note,omitempty"`
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	items := make([]order.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.OrderItem{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			Note:           item.Note,
		}
	}

	o := &order.Order{
		Type:              order.Type(req.OrderType),
		UserID:            req.UserID,
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		DeliveryAddress:   req.DeliveryAddress,
		DeviceFingerprint: req.Fingerprint,
		Items:             items,
	}

	created, err := service.CreateOrder(r.Context(), o)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error creating order", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		slog.Error("Error writing response for create order", "error", err)
	}
}
