package ordersvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/ordertrack/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/ordertrack/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/outbox"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/google/uuid"
)

type fakeOrderRepo struct {
	stored      *order.Order
	updateErr   error
	updateCalls int
	gotPrevious order.Status
}

func (f *fakeOrderRepo) Create(_ context.Context, o *order.Order) (*order.Order, error) {
	return o, nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, _ uuid.UUID) (*order.Order, error) {
	if f.stored == nil {
		return nil, order.ErrOrderNotFound
	}
	cp := *f.stored
	return &cp, nil
}

func (f *fakeOrderRepo) GetStatus(_ context.Context, _ uuid.UUID) (order.Status, error) {
	return f.stored.Status, nil
}

func (f *fakeOrderRepo) FindActiveGuestOrder(_ context.Context, _ string) (*order.Order, error) {
	return nil, order.ErrOrderNotFound
}

func (f *fakeOrderRepo) Query(_ context.Context, _ *order.QueryOrdersModel) ([]order.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, _ *order.Order, previous order.Status) error {
	f.updateCalls++
	f.gotPrevious = previous
	return f.updateErr
}

func (f *fakeOrderRepo) NextOrderNumber(_ context.Context) (string, error) {
	return "ORD-001", nil
}

type fakeOutboxRepo struct {
	inserted []outbox.OutboxMessage
}

func (f *fakeOutboxRepo) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	f.inserted = append(f.inserted, msg)
	return nil
}

func (f *fakeOutboxRepo) GetPendingMessages(_ context.Context, _ int) ([]outbox.OutboxMessage, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) Delete(_ context.Context, _ int64) error { return nil }

func (f *fakeOutboxRepo) UpdateRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

type fakeUOW struct {
	orders    *fakeOrderRepo
	outbox    *fakeOutboxRepo
	committed bool
}

func (u *fakeUOW) Begin(_ context.Context) error    { return nil }
func (u *fakeUOW) Commit(_ context.Context) error   { u.committed = true; return nil }
func (u *fakeUOW) Rollback(_ context.Context) error { return nil }

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository    { return u.orders }
func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository { return u.outbox }

func newTestOrderService(stored *order.Order, updateErr error) (*OrderService, *fakeUOW) {
	work := &fakeUOW{
		orders: &fakeOrderRepo{stored: stored, updateErr: updateErr},
		outbox: &fakeOutboxRepo{},
	}

	svc := MustNewOrderService()
	svc.newUnitOfWork = func() unitOfWork { return work }

	return svc, work
}

func storedOrder(status order.Status, typ order.Type) *order.Order {
	return &order.Order{
		ID:            uuid.New(),
		Number:        "ORD-001",
		Status:        status,
		Type:          typ,
		CustomerName:  "Dana",
		CustomerPhone: "+15550100",
		CreatedAt:     time.Now(),
	}
}

func TestUpdateOrderStatusGuardsOnReadStatus(t *testing.T) {
	stored := storedOrder(order.StatusPending, order.TypePickup)
	svc, work := newTestOrderService(stored, nil)

	updated, err := svc.UpdateOrderStatus(context.Background(), stored.ID, order.StatusConfirmed, "kitchen")
	if err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}
	if updated.Status != order.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", updated.Status)
	}

	// The conditional write must be keyed on the status read in the same
	// transaction.
	if work.orders.gotPrevious != order.StatusPending {
		t.Errorf("update guard status = %s, want pending", work.orders.gotPrevious)
	}
	if !work.committed {
		t.Error("transaction not committed")
	}

	if len(work.outbox.inserted) != 1 {
		t.Fatalf("outbox inserts = %d, want 1", len(work.outbox.inserted))
	}
	msg := work.outbox.inserted[0]
	if msg.RoutingKey != "status."+stored.ID.String() {
		t.Errorf("routing key = %s, want status.%s", msg.RoutingKey, stored.ID)
	}
	ev, err := statusevent.Decode(msg.Payload)
	if err != nil {
		t.Fatalf("outbox payload does not decode: %v", err)
	}
	if ev.NewStatus != order.StatusConfirmed || ev.OldStatus != order.StatusPending {
		t.Errorf("event = %s -> %s, want pending -> confirmed", ev.OldStatus, ev.NewStatus)
	}
}

// Two staff commands racing on the same order: the one whose guard no longer
// matches must lose cleanly instead of overwriting the other's status.
func TestUpdateOrderStatusConcurrentChangeLoses(t *testing.T) {
	stored := storedOrder(order.StatusPending, order.TypePickup)
	conflict := errors.New("status changed concurrently from pending")
	svc, work := newTestOrderService(stored, conflict)

	_, err := svc.UpdateOrderStatus(context.Background(), stored.ID, order.StatusConfirmed, "kitchen")
	if !errors.Is(err, conflict) {
		t.Fatalf("UpdateOrderStatus error = %v, want the guard conflict", err)
	}
	if work.committed {
		t.Error("losing command committed its transaction")
	}
	if len(work.outbox.inserted) != 0 {
		t.Error("losing command wrote an outbox event")
	}
}

func TestUpdateOrderStatusRejectsDeliveryShortcut(t *testing.T) {
	addr := "12 Main St"
	stored := storedOrder(order.StatusReady, order.TypeDelivery)
	stored.DeliveryAddress = &addr
	svc, work := newTestOrderService(stored, nil)

	_, err := svc.UpdateOrderStatus(context.Background(), stored.ID, order.StatusDelivered, "kitchen")
	if !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("UpdateOrderStatus error = %v, want ErrInvalidTransition", err)
	}
	if work.orders.updateCalls != 0 {
		t.Error("rejected command reached the database write")
	}
	if work.committed {
		t.Error("rejected command committed its transaction")
	}

	// The two-step delivery path is unaffected.
	if _, err := svc.UpdateOrderStatus(context.Background(), stored.ID, order.StatusOutForDelivery, "kitchen"); err != nil {
		t.Fatalf("ready -> out_for_delivery error: %v", err)
	}
}
