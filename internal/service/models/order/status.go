package order

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// Status represents the lifecycle status of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"

	// Historical spellings still present in old records and feeds.
	statusCompleted  Status = "completed"
	statusDelivering Status = "delivering"
)

// Category is a coarse grouping of statuses used for dashboard views only.
type Category string

const (
	CategoryNew       Category = "new"
	CategoryActive    Category = "active"
	CategoryDelivery  Category = "delivery"
	CategoryCompleted Category = "completed"
)

var (
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidCategory   = errors.New("invalid status category")
)

// transitions is the forward-only transition graph. Cancel is handled
// separately in CanTransitionTo so a cancelled order can never be revived.
var transitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed},
	StatusConfirmed:      {StatusPreparing},
	StatusPreparing:      {StatusReady},
	StatusReady:          {StatusOutForDelivery, StatusDelivered},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// ParseStatus parses a wire or database value into a canonical Status.
// Historical aliases are normalized: "completed" means delivered,
// "delivering" means out_for_delivery.
func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return Status(v), nil
	case statusCompleted:
		return StatusDelivered, nil
	case statusDelivering:
		return StatusOutForDelivery, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
}

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether a single-step transition from s to next
// is present in the graph. Cancel is reachable from any non-terminal status.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusCancelled {
		return !s.IsTerminal()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reachable reports whether next can be reached from s through any number
// of forward transitions. Used by the reconciler to accept events that
// skipped intermediate statuses without ever accepting a regression.
func (s Status) Reachable(next Status) bool {
	if s.CanTransitionTo(next) {
		return true
	}
	for _, step := range transitions[s] {
		if step.Reachable(next) {
			return true
		}
	}
	return false
}

// Category maps a status to its dashboard bucket.
func (s Status) Category() Category {
	switch s {
	case StatusPending:
		return CategoryNew
	case StatusConfirmed, StatusPreparing, StatusReady:
		return CategoryActive
	case StatusOutForDelivery:
		return CategoryDelivery
	default:
		return CategoryCompleted
	}
}

// ParseCategory parses a dashboard category name.
func ParseCategory(v string) (Category, error) {
	switch Category(v) {
	case CategoryNew, CategoryActive, CategoryDelivery, CategoryCompleted:
		return Category(v), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, v)
	}
}

// CategoryStatuses returns the statuses belonging to a category, for
// building list queries.
func CategoryStatuses(c Category) []Status {
	switch c {
	case CategoryNew:
		return []Status{StatusPending}
	case CategoryActive:
		return []Status{StatusConfirmed, StatusPreparing, StatusReady}
	case CategoryDelivery:
		return []Status{StatusOutForDelivery}
	default:
		return []Status{StatusDelivered, StatusCancelled}
	}
}

// delayThresholds holds the per-status limit after which an order counts
// as delayed on the dashboards. Terminal statuses are never flagged.
var delayThresholds = map[Status]time.Duration{
	StatusPending:        5 * time.Minute,
	StatusConfirmed:      10 * time.Minute,
	StatusPreparing:      30 * time.Minute,
	StatusReady:          15 * time.Minute,
	StatusOutForDelivery: 45 * time.Minute,
}

// DelayThreshold returns the delay limit for a status and whether one exists.
func DelayThreshold(s Status) (time.Duration, bool) {
	d, ok := delayThresholds[s]
	return d, ok
}
