package dashboardsvc

import (
	"context"
	"time"

	"github.com/corray333/ordertrack/internal/service/models/order"
)

// CategorizedOrder is an order annotated with the derived dashboard fields.
type CategorizedOrder struct {
	order.Order
	Elapsed   time.Duration `json:"elapsedSeconds"`
	IsDelayed bool          `json:"isDelayed"`
}

// lister is the read side of the order service the dashboard consumes.
type lister interface {
	ListOrdersByCategory(ctx context.Context, category order.Category, todayOnly bool) ([]order.Order, error)
}

// DashboardService buckets orders into the operational queues shown on the
// kitchen, delivery and admin boards.
type DashboardService struct {
	orders lister
}

func NewDashboardService(orders lister) *DashboardService {
	return &DashboardService{
		orders: orders,
	}
}

// Board fetches one category view and annotates it. Called on every refresh
// tick of a dashboard.
func (s *DashboardService) Board(ctx context.Context, category order.Category, todayOnly bool) ([]CategorizedOrder, error) {
	orders, err := s.orders.ListOrdersByCategory(ctx, category, todayOnly)
	if err != nil {
		return nil, err
	}

	return Categorize(orders, time.Now())[category], nil
}

// Categorize partitions orders by status category and computes the elapsed
// time in the current status plus the delay flag. Pure: no stored state, so
// it is safe to call on every polling tick.
func Categorize(orders []order.Order, now time.Time) map[order.Category][]CategorizedOrder {
	result := make(map[order.Category][]CategorizedOrder)

	for _, o := range orders {
		annotated := CategorizedOrder{
			Order:   o,
			Elapsed: now.Sub(o.StatusEnteredAt()),
		}

		// Terminal orders are never flagged delayed, whatever their age.
		if threshold, ok := order.DelayThreshold(o.Status); ok {
			annotated.IsDelayed = annotated.Elapsed > threshold
		}

		category := o.Status.Category()
		result[category] = append(result[category], annotated)
	}

	return result
}
