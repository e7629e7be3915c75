package getorder

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
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

// GetOrder handles the get order request.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		slog.Error("Error parsing order id", "error", err)

		return
	}

	o, err := service.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)

			return
		}
		http.Error(w, "Failed to get order", http.StatusInternalServerError)
		slog.Error("Error getting order", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(o); err != nil {
		slog.Error("Error writing response for get order", "error", err)
	}
}
