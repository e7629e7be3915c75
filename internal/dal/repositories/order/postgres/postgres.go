package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/ordertrack/internal/dal/postgres"
	"github.com/corray333/ordertrack/internal/service/models/currency"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id",
	"number",
	"status",
	"order_type",
	"total_price_cents",
	"total_price_currency",
	"user_id",
	"customer_name",
	"customer_phone",
	"delivery_address",
	"device_fingerprint",
	"created_at",
	"confirmed_at",
	"preparing_at",
	"ready_at",
	"delivering_at",
	"completed_at",
	"cancelled_at",
}

// OrderDal represents the order data access layer model.
type OrderDal struct {
	Id                 uuid.UUID
	Number             string
	Status             string
	OrderType          string
	TotalPriceCents    int64
	TotalPriceCurrency string
	UserId             uuid.NullUUID
	CustomerName       string
	CustomerPhone      string
	DeliveryAddress    *string
	DeviceFingerprint  *string
	CreatedAt          time.Time
	ConfirmedAt        *time.Time
	PreparingAt        *time.Time
	ReadyAt            *time.Time
	DeliveringAt       *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return nil, err
	}
	cur, err := currency.ParseCurrency(o.TotalPriceCurrency)
	if err != nil {
		return nil, err
	}

	model := &order.Order{
		ID:                 o.Id,
		Number:             o.Number,
		Status:             status,
		Type:               order.Type(o.OrderType),
		TotalPriceCents:    o.TotalPriceCents,
		TotalPriceCurrency: cur,
		CustomerName:       o.CustomerName,
		CustomerPhone:      o.CustomerPhone,
		DeliveryAddress:    o.DeliveryAddress,
		CreatedAt:          o.CreatedAt,
		ConfirmedAt:        o.ConfirmedAt,
		PreparingAt:        o.PreparingAt,
		ReadyAt:            o.ReadyAt,
		DeliveringAt:       o.DeliveringAt,
		CompletedAt:        o.CompletedAt,
		CancelledAt:        o.CancelledAt,
		Items:              []order.OrderItem{},
	}
	if o.UserId.Valid {
		id := o.UserId.UUID
		model.UserID = &id
	}
	if o.DeviceFingerprint != nil {
		model.DeviceFingerprint = *o.DeviceFingerprint
	}

	return model, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.Id,
		&dal.Number,
		&dal.Status,
		&dal.OrderType,
		&dal.TotalPriceCents,
		&dal.TotalPriceCurrency,
		&dal.UserId,
		&dal.CustomerName,
		&dal.CustomerPhone,
		&dal.DeliveryAddress,
		&dal.DeviceFingerprint,
		&dal.CreatedAt,
		&dal.ConfirmedAt,
		&dal.PreparingAt,
		&dal.ReadyAt,
		&dal.DeliveringAt,
		&dal.CompletedAt,
		&dal.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	return dal.ToModel()
}

type PostgresOrderRepository struct {
	conn postgres.Querier
}

func NewPostgresOrderRepository(conn postgres.Querier) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Create inserts the order with its items and returns the stored order.
func (r *PostgresOrderRepository) Create(ctx context.Context, o *order.Order) (*order.Order, error) {
	var userID uuid.NullUUID
	if o.UserID != nil {
		userID = uuid.NullUUID{UUID: *o.UserID, Valid: true}
	}
	var fingerprint *string
	if o.DeviceFingerprint != "" {
		fingerprint = &o.DeviceFingerprint
	}

	query, args, err := sq.Insert("orders").
		Columns(orderColumns...).
		Values(
			o.ID,
			o.Number,
			o.Status,
			string(o.Type),
			o.TotalPriceCents,
			o.TotalPriceCurrency,
			userID,
			o.CustomerName,
			o.CustomerPhone,
			o.DeliveryAddress,
			fingerprint,
			o.CreatedAt,
			o.ConfirmedAt,
			o.PreparingAt,
			o.ReadyAt,
			o.DeliveringAt,
			o.CompletedAt,
			o.CancelledAt,
		).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range o.Items {
		o.Items[i].OrderID = o.ID

		itemQuery, itemArgs, err := sq.Insert("order_items").
			Columns("order_id", "product_id", "variant_id", "quantity", "unit_price_cents", "note").
			Values(
				o.Items[i].OrderID,
				o.Items[i].ProductID,
				o.Items[i].VariantID,
				o.Items[i].Quantity,
				o.Items[i].UnitPriceCents,
				o.Items[i].Note,
			).
			Suffix("RETURNING id").
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("failed to build insert item query: %w", err)
		}

		if err := r.conn.QueryRow(ctx, itemQuery, itemArgs...).Scan(&o.Items[i].ID); err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return o, nil
}

// GetByID retrieves an order with its items.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.queryItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// GetStatus retrieves just the current status of an order.
func (r *PostgresOrderRepository) GetStatus(ctx context.Context, id uuid.UUID) (order.Status, error) {
	query, args, err := sq.Select("status").
		From("orders").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build select query: %w", err)
	}

	var raw string
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", order.ErrOrderNotFound
		}

		return "", fmt.Errorf("failed to get order status: %w", err)
	}

	return order.ParseStatus(raw)
}

// FindActiveGuestOrder returns the most recent non-terminal guest order
// placed from the given device.
func (r *PostgresOrderRepository) FindActiveGuestOrder(ctx context.Context, fingerprint string) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"device_fingerprint": fingerprint}).
		Where(sq.Expr("user_id IS NULL")).
		Where(sq.NotEq{"status": []string{
			order.StatusDelivered.String(),
			order.StatusCancelled.String(),
		}}).
		OrderBy("created_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	o, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to find active guest order: %w", err)
	}

	items, err := r.queryItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// Query retrieves orders matching the filter, items included.
func (r *PostgresOrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	builder := sq.Select(orderColumns...).
		From("orders").
		OrderBy("created_at ASC").
		PlaceholderFormat(sq.Dollar)

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}
	if filter.TodayOnly {
		builder = builder.Where(sq.Expr("created_at >= date_trunc('day', now())"))
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	var ids []uuid.UUID
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(result) == 0 {
		return []order.Order{}, nil
	}

	items, err := r.queryItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		for _, item := range items {
			if item.OrderID == result[i].ID {
				result[i].Items = append(result[i].Items, item)
			}
		}
	}

	return result, nil
}

// UpdateStatus persists the order's status and transition timestamps. The
// write is guarded on the status the caller read: if a concurrent command
// changed the row in between, zero rows match and the command loses instead
// of overwriting the newer status.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, o *order.Order, previous order.Status) error {
	query, args, err := sq.Update("orders").
		Set("status", o.Status).
		Set("confirmed_at", o.ConfirmedAt).
		Set("preparing_at", o.PreparingAt).
		Set("ready_at", o.ReadyAt).
		Set("delivering_at", o.DeliveringAt).
		Set("completed_at", o.CompletedAt).
		Set("cancelled_at", o.CancelledAt).
		Where(sq.Eq{"id": o.ID}).
		Where(sq.Eq{"status": previous.String()}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: status changed concurrently from %s", order.ErrInvalidTransition, previous)
	}

	return nil
}

// NextOrderNumber allocates the next human-facing order number.
func (r *PostgresOrderRepository) NextOrderNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.conn.QueryRow(ctx, "SELECT nextval('order_number_seq')").Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}

	return fmt.Sprintf("ORD-%03d", seq), nil
}

func (r *PostgresOrderRepository) queryItems(ctx context.Context, orderIDs []uuid.UUID) ([]order.OrderItem, error) {
	query, args, err := sq.Select("id", "order_id", "product_id", "variant_id", "quantity", "unit_price_cents", "note").
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []order.OrderItem
	for rows.Next() {
		var item order.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.Quantity,
			&item.UnitPriceCents,
			&item.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}
