package order

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, true},
		{"confirmed to preparing", StatusConfirmed, StatusPreparing, true},
		{"preparing to ready", StatusPreparing, StatusReady, true},
		{"ready to out for delivery", StatusReady, StatusOutForDelivery, true},
		{"ready to delivered", StatusReady, StatusDelivered, true},
		{"out for delivery to delivered", StatusOutForDelivery, StatusDelivered, true},
		{"pending skips to preparing", StatusPending, StatusPreparing, false},
		{"confirmed back to pending", StatusConfirmed, StatusPending, false},
		{"delivered back to ready", StatusDelivered, StatusReady, false},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"out for delivery to cancelled", StatusOutForDelivery, StatusCancelled, true},
		{"delivered to cancelled", StatusDelivered, StatusCancelled, false},
		{"cancelled to confirmed", StatusCancelled, StatusConfirmed, false},
		{"cancelled to cancelled", StatusCancelled, StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestReachable(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to delivered across all steps", StatusPending, StatusDelivered, true},
		{"pending to preparing across one step", StatusPending, StatusPreparing, true},
		{"confirmed to out for delivery", StatusConfirmed, StatusOutForDelivery, true},
		{"preparing to cancelled", StatusPreparing, StatusCancelled, true},
		{"ready back to pending", StatusReady, StatusPending, false},
		{"delivered to anything", StatusDelivered, StatusPending, false},
		{"cancelled to delivered", StatusCancelled, StatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Reachable(tt.to); got != tt.want {
				t.Errorf("Reachable(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"out_for_delivery", StatusOutForDelivery, false},
		{"completed", StatusDelivered, false},
		{"delivering", StatusOutForDelivery, false},
		{"cancelled", StatusCancelled, false},
		{"", "", true},
		{"shipped", "", true},
		{"PENDING", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Fatalf("ParseStatus(%q) error = %v, want ErrInvalidStatus", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		status Status
		want   Category
	}{
		{StatusPending, CategoryNew},
		{StatusConfirmed, CategoryActive},
		{StatusPreparing, CategoryActive},
		{StatusReady, CategoryActive},
		{StatusOutForDelivery, CategoryDelivery},
		{StatusDelivered, CategoryCompleted},
		{StatusCancelled, CategoryCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.Category(); got != tt.want {
				t.Errorf("Category(%s) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestCategoryStatusesCoverEveryStatus(t *testing.T) {
	seen := map[Status]bool{}
	for _, c := range []Category{CategoryNew, CategoryActive, CategoryDelivery, CategoryCompleted} {
		for _, s := range CategoryStatuses(c) {
			if seen[s] {
				t.Errorf("status %s appears in more than one category", s)
			}
			seen[s] = true
			if s.Category() != c {
				t.Errorf("CategoryStatuses(%s) includes %s, but its category is %s", c, s, s.Category())
			}
		}
	}
	if len(seen) != 7 {
		t.Errorf("categories cover %d statuses, want 7", len(seen))
	}
}

func TestDelayThreshold(t *testing.T) {
	tests := []struct {
		status Status
		want   time.Duration
		ok     bool
	}{
		{StatusPending, 5 * time.Minute, true},
		{StatusConfirmed, 10 * time.Minute, true},
		{StatusPreparing, 30 * time.Minute, true},
		{StatusReady, 15 * time.Minute, true},
		{StatusOutForDelivery, 45 * time.Minute, true},
		{StatusDelivered, 0, false},
		{StatusCancelled, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			got, ok := DelayThreshold(tt.status)
			if ok != tt.ok || got != tt.want {
				t.Errorf("DelayThreshold(%s) = (%v, %v), want (%v, %v)", tt.status, got, ok, tt.want, tt.ok)
			}
		})
	}
}
