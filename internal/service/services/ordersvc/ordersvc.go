package ordersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/corray333/ordertrack/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/ordertrack/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/ordertrack/internal/dal/postgres"
	"github.com/corray333/ordertrack/internal/dal/uow"
	"github.com/corray333/ordertrack/internal/service/models/currency"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/outbox"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

// OrderService is a service for managing orders and producing the status
// change feed.
type OrderService struct {
	pgClient *postgres.Client

	// newUnitOfWork is replaceable in tests; nil means the Postgres one.
	newUnitOfWork func() unitOfWork
}

func (s *OrderService) newUOW() unitOfWork {
	if s.newUnitOfWork != nil {
		return s.newUnitOfWork()
	}
	return uow.NewUnitOfWork(s.pgClient)
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// CreateOrder validates and stores a new order with its items in one
// transaction: either the order row and every item exist, or nothing does.
func (s *OrderService) CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	o.ID = uuid.New()
	o.Status = order.StatusPending
	o.CreatedAt = time.Now()
	if o.TotalPriceCurrency == "" {
		o.TotalPriceCurrency = currency.CurrencyUSD
	}
	o.CalculateTotal()

	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("order validation failed: %w", err)
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	number, err := work.OrderRepository().NextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}
	o.Number = number

	o, err = work.OrderRepository().Create(ctx, o)
	if err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}

// GetOrder retrieves an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return s.newUOW().OrderRepository().GetByID(ctx, id)
}

// FetchOrderStatus retrieves the authoritative current status of an order.
func (s *OrderService) FetchOrderStatus(ctx context.Context, id uuid.UUID) (order.Status, error) {
	return s.newUOW().OrderRepository().GetStatus(ctx, id)
}

// FindActiveGuestOrder returns the most recent non-terminal guest order for
// a device fingerprint, or order.ErrOrderNotFound.
func (s *OrderService) FindActiveGuestOrder(ctx context.Context, fingerprint string) (*order.Order, error) {
	return s.newUOW().OrderRepository().FindActiveGuestOrder(ctx, fingerprint)
}

// ListOrdersByCategory retrieves orders whose status belongs to the given
// dashboard category.
func (s *OrderService) ListOrdersByCategory(ctx context.Context, category order.Category, todayOnly bool) ([]order.Order, error) {
	filter := &order.QueryOrdersModel{
		Statuses:  order.CategoryStatuses(category),
		TodayOnly: todayOnly,
	}

	return s.newUOW().OrderRepository().Query(ctx, filter)
}

// UpdateOrderStatus is the staff-facing status command. The transition graph
// is enforced here, server-side, inside the transaction; the resulting status
// event is written to the outbox atomically with the update, so the change
// feed never observes a status the database does not hold.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, next order.Status, changedBy string) (*order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, err
	}
	defer work.Rollback(ctx)

	o, err := work.OrderRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := o.Status
	now := time.Now()
	if err := o.ApplyStatus(next, now); err != nil {
		return nil, err
	}

	if err := work.OrderRepository().UpdateStatus(ctx, o, oldStatus); err != nil {
		return nil, err
	}

	payload, err := statusevent.StatusEvent{
		OrderID:   o.ID,
		NewStatus: o.Status,
		OldStatus: oldStatus,
		ChangedBy: changedBy,
		Timestamp: now,
	}.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode status event: %w", err)
	}

	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 10
	}

	msg := outbox.OutboxMessage{
		ExchangeName: viper.GetString("rabbitmq.status_exchange"),
		RoutingKey:   "status." + o.ID.String(),
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}
	if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
		return nil, err
	}

	if err := work.Commit(ctx); err != nil {
		return nil, err
	}

	return o, nil
}
