package updatestatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// service is an interface for the service layer.
type service interface {
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, next order.Status, changedBy string) (*order.Order, error)
}

type updateStatusRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changedBy"`
}

// UpdateStatus handles the order status transition request.
func UpdateStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for update status", "error", err)

		return
	}

	next, err := order.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, "Unknown status", http.StatusBadRequest)

		return
	}

	o, err := service.UpdateOrderStatus(r.Context(), id, next, req.ChangedBy)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, order.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Failed to update order status", http.StatusInternalServerError)
			slog.Error("Error updating order status", "error", err)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(o); err != nil {
		slog.Error("Error writing response for update status", "error", err)
	}
}
