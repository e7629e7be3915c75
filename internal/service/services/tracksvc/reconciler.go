package tracksvc

import (
	"fmt"

	"github.com/corray333/ordertrack/internal/service/models/guest"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
)

// EffectKind classifies side effects emitted by a merge.
type EffectKind string

const (
	// EffectNotify is a user-facing "your order moved" notification.
	EffectNotify EffectKind = "notify"
	// EffectUnread raises the unread-update flag on the session.
	EffectUnread EffectKind = "unread"
)

// Effect is a side effect the session must apply after a merge.
type Effect struct {
	Kind   EffectKind
	Status order.Status
}

// Merge reconciles an incoming status event with the current guest order
// snapshot. It is the single arbiter for status updates regardless of which
// channel delivered the event, and it is what makes running the push feed
// and the polling loop concurrently safe:
//
//   - events for an untracked or mismatched order are dropped;
//   - an event equal to the current status is an idempotent no-op;
//   - an event whose status is reachable from the current one advances the
//     snapshot;
//   - anything else is rejected with ErrInvalidTransition and no side
//     effects, so a stale or out-of-order event can never regress the
//     status or revive a cancelled order.
//
// The returned snapshot is a copy; current is never mutated.
func Merge(current *guest.GuestOrder, ev statusevent.StatusEvent) (*guest.GuestOrder, []Effect, error) {
	if current == nil || current.OrderID != ev.OrderID {
		return current, nil, nil
	}

	if ev.NewStatus == current.Status {
		return current, nil, nil
	}

	if !current.Status.Reachable(ev.NewStatus) {
		return current, nil, fmt.Errorf("%w: %s -> %s (source %s)",
			order.ErrInvalidTransition, current.Status, ev.NewStatus, ev.Source)
	}

	updated := *current
	updated.Status = ev.NewStatus

	var effects []Effect
	if ev.NewStatus == order.StatusOutForDelivery || ev.NewStatus == order.StatusDelivered {
		effects = append(effects,
			Effect{Kind: EffectUnread, Status: ev.NewStatus},
			Effect{Kind: EffectNotify, Status: ev.NewStatus},
		)
	}

	return &updated, effects, nil
}
