package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/services/dashboardsvc"
	"github.com/go-chi/chi/v5"
)

// service is an interface for the service layer.
type service interface {
	Board(ctx context.Context, category order.Category, todayOnly bool) ([]dashboardsvc.CategorizedOrder, error)
}

type boardResponse struct {
	Category string                          `json:"category"`
	Orders   []dashboardsvc.CategorizedOrder `json:"orders"`
}

// Board handles the kitchen dashboard listing for one category column.
func Board(w http.ResponseWriter, r *http.Request, service service) {
	category, err := order.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		if errors.Is(err, order.ErrInvalidCategory) {
			http.Error(w, "Unknown category", http.StatusBadRequest)

			return
		}
		http.Error(w, "Failed to parse category", http.StatusBadRequest)
		slog.Error("Error parsing dashboard category", "error", err)

		return
	}

	todayOnly := r.URL.Query().Get("today") == "1"

	orders, err := service.Board(r.Context(), category, todayOnly)
	if err != nil {
		http.Error(w, "Failed to list orders", http.StatusInternalServerError)
		slog.Error("Error listing dashboard orders", "error", err)

		return
	}
	if orders == nil {
		orders = []dashboardsvc.CategorizedOrder{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(boardResponse{
		Category: string(category),
		Orders:   orders,
	}); err != nil {
		slog.Error("Error writing response for dashboard", "error", err)
	}
}
