package tracksvc

import (
	"errors"
	"testing"

	"github.com/corray333/ordertrack/internal/service/models/guest"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/google/uuid"
)

func trackedSnapshot(status order.Status) *guest.GuestOrder {
	return &guest.GuestOrder{
		OrderID:     uuid.New(),
		OrderNumber: "ORD-001",
		Status:      status,
		Type:        order.TypePickup,
	}
}

func event(id uuid.UUID, status order.Status, source statusevent.Source) statusevent.StatusEvent {
	return statusevent.StatusEvent{
		OrderID:   id,
		NewStatus: status,
		Source:    source,
	}
}

func TestMergeAdvancesStatus(t *testing.T) {
	current := trackedSnapshot(order.StatusPending)

	updated, effects, err := Merge(current, event(current.OrderID, order.StatusConfirmed, statusevent.SourcePush))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if updated.Status != order.StatusConfirmed {
		t.Errorf("merged status = %s, want confirmed", updated.Status)
	}
	if current.Status != order.StatusPending {
		t.Error("Merge mutated the current snapshot")
	}
	if len(effects) != 0 {
		t.Errorf("confirmed produced %d effects, want none", len(effects))
	}
}

func TestMergeDropsUntrackedOrder(t *testing.T) {
	current := trackedSnapshot(order.StatusPending)

	updated, effects, err := Merge(current, event(uuid.New(), order.StatusConfirmed, statusevent.SourcePush))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if updated != current {
		t.Error("event for another order changed the snapshot")
	}
	if effects != nil {
		t.Error("event for another order produced effects")
	}
}

func TestMergeNilSnapshotIsNoOp(t *testing.T) {
	updated, effects, err := Merge(nil, event(uuid.New(), order.StatusConfirmed, statusevent.SourcePoll))
	if err != nil || updated != nil || effects != nil {
		t.Errorf("Merge(nil) = (%v, %v, %v), want all nil", updated, effects, err)
	}
}

func TestMergeDuplicateIsIdempotent(t *testing.T) {
	current := trackedSnapshot(order.StatusPreparing)

	updated, effects, err := Merge(current, event(current.OrderID, order.StatusPreparing, statusevent.SourcePoll))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if updated != current || effects != nil {
		t.Error("duplicate event was not a no-op")
	}
}

func TestMergeRejectsRegression(t *testing.T) {
	current := trackedSnapshot(order.StatusConfirmed)

	updated, effects, err := Merge(current, event(current.OrderID, order.StatusPending, statusevent.SourcePush))
	if !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("Merge error = %v, want ErrInvalidTransition", err)
	}
	if updated.Status != order.StatusConfirmed {
		t.Error("rejected event regressed the status")
	}
	if effects != nil {
		t.Error("rejected event produced effects")
	}
}

func TestMergeAcceptsSkippedIntermediateStatuses(t *testing.T) {
	current := trackedSnapshot(order.StatusPending)

	updated, effects, err := Merge(current, event(current.OrderID, order.StatusDelivered, statusevent.SourcePoll))
	if err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if updated.Status != order.StatusDelivered {
		t.Errorf("merged status = %s, want delivered", updated.Status)
	}

	var kinds []EffectKind
	for _, e := range effects {
		kinds = append(kinds, e.Kind)
	}
	if len(kinds) != 2 || kinds[0] != EffectUnread || kinds[1] != EffectNotify {
		t.Errorf("delivered effects = %v, want [unread notify]", kinds)
	}
}

func TestMergeRejectsRevivalOfCancelledOrder(t *testing.T) {
	current := trackedSnapshot(order.StatusCancelled)

	_, _, err := Merge(current, event(current.OrderID, order.StatusConfirmed, statusevent.SourcePush))
	if !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("Merge error = %v, want ErrInvalidTransition", err)
	}
}

// A push event and a poll event reporting the same change must converge to
// the same state: the second becomes an idempotent no-op.
func TestMergeChannelsConverge(t *testing.T) {
	current := trackedSnapshot(order.StatusReady)

	fromPush, _, err := Merge(current, event(current.OrderID, order.StatusOutForDelivery, statusevent.SourcePush))
	if err != nil {
		t.Fatalf("push merge error: %v", err)
	}

	fromPoll, effects, err := Merge(fromPush, event(current.OrderID, order.StatusOutForDelivery, statusevent.SourcePoll))
	if err != nil {
		t.Fatalf("poll merge error: %v", err)
	}
	if fromPoll != fromPush || effects != nil {
		t.Error("second delivery of the same change was not a no-op")
	}
}
