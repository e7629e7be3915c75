package statusevent

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/google/uuid"
)

// Source identifies which channel delivered a status event. The reconciler
// treats all sources identically; the tag exists for diagnostics.
type Source string

const (
	SourcePush Source = "push"
	SourcePoll Source = "poll"
)

var ErrMalformedEvent = errors.New("malformed status event")

// StatusEvent is the normalized input shape of the reconciler. Both the
// push feed and the polling loop produce this.
type StatusEvent struct {
	OrderID   uuid.UUID    `json:"order_id"`
	NewStatus order.Status `json:"new_status"`
	OldStatus order.Status `json:"old_status,omitempty"`
	ChangedBy string       `json:"changed_by,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Source    Source       `json:"-"`
}

// wireEvent mirrors the feed payload before validation.
type wireEvent struct {
	OrderID   string    `json:"order_id"`
	NewStatus string    `json:"new_status"`
	OldStatus string    `json:"old_status"`
	ChangedBy string    `json:"changed_by"`
	Timestamp time.Time `json:"timestamp"`
}

// Decode validates a raw feed payload and normalizes it into a StatusEvent.
// Unrecognized shapes are rejected here so they never reach the reconciler.
func Decode(body []byte) (StatusEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	id, err := uuid.Parse(w.OrderID)
	if err != nil {
		return StatusEvent{}, fmt.Errorf("%w: order_id %q", ErrMalformedEvent, w.OrderID)
	}

	status, err := order.ParseStatus(w.NewStatus)
	if err != nil {
		return StatusEvent{}, fmt.Errorf("%w: new_status %q", ErrMalformedEvent, w.NewStatus)
	}

	ev := StatusEvent{
		OrderID:   id,
		NewStatus: status,
		ChangedBy: w.ChangedBy,
		Timestamp: w.Timestamp,
		Source:    SourcePush,
	}
	if w.OldStatus != "" {
		if old, err := order.ParseStatus(w.OldStatus); err == nil {
			ev.OldStatus = old
		}
	}

	return ev, nil
}

// Encode marshals the event for the feed.
func (e StatusEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}
