package order

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func validGuestOrder() *Order {
	return &Order{
		ID:            uuid.New(),
		Type:          TypePickup,
		CustomerName:  "Dana",
		CustomerPhone: "+15550100",
		Items: []OrderItem{
			{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 2, UnitPriceCents: 1250},
		},
		CreatedAt: time.Now(),
	}
}

func TestValidate(t *testing.T) {
	addr := "12 Main St"

	tests := []struct {
		name    string
		mutate  func(o *Order)
		wantErr error
	}{
		{
			name:   "valid guest pickup",
			mutate: func(o *Order) {},
		},
		{
			name: "valid delivery with address",
			mutate: func(o *Order) {
				o.Type = TypeDelivery
				o.DeliveryAddress = &addr
			},
		},
		{
			name: "unknown order type",
			mutate: func(o *Order) {
				o.Type = "drone"
			},
			wantErr: ErrInvalidOrderType,
		},
		{
			name: "both user and guest contact",
			mutate: func(o *Order) {
				id := uuid.New()
				o.UserID = &id
			},
			wantErr: ErrInvalidIdentity,
		},
		{
			name: "neither user nor guest contact",
			mutate: func(o *Order) {
				o.CustomerName = ""
				o.CustomerPhone = ""
			},
			wantErr: ErrInvalidIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validGuestOrder()
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateDeliveryRequiresAddress(t *testing.T) {
	o := validGuestOrder()
	o.Type = TypeDelivery
	if err := o.Validate(); err == nil {
		t.Fatal("Validate() accepted a delivery order without an address")
	}
}

func TestValidateRejectsEmptyItems(t *testing.T) {
	o := validGuestOrder()
	o.Items = nil
	if err := o.Validate(); err == nil {
		t.Fatal("Validate() accepted an order without items")
	}
}

func TestCalculateTotal(t *testing.T) {
	o := validGuestOrder()
	o.Items = []OrderItem{
		{Quantity: 2, UnitPriceCents: 1250},
		{Quantity: 1, UnitPriceCents: 300},
	}
	o.CalculateTotal()
	if o.TotalPriceCents != 2800 {
		t.Errorf("CalculateTotal() = %d, want 2800", o.TotalPriceCents)
	}
}

func TestApplyStatusStampsTimestamps(t *testing.T) {
	o := validGuestOrder()
	o.Status = StatusPending

	t1 := time.Now()
	if err := o.ApplyStatus(StatusConfirmed, t1); err != nil {
		t.Fatalf("ApplyStatus(confirmed) error: %v", err)
	}
	if o.ConfirmedAt == nil || !o.ConfirmedAt.Equal(t1) {
		t.Fatalf("ConfirmedAt = %v, want %v", o.ConfirmedAt, t1)
	}

	t2 := t1.Add(time.Minute)
	if err := o.ApplyStatus(StatusPreparing, t2); err != nil {
		t.Fatalf("ApplyStatus(preparing) error: %v", err)
	}
	if o.PreparingAt == nil || !o.PreparingAt.Equal(t2) {
		t.Fatalf("PreparingAt = %v, want %v", o.PreparingAt, t2)
	}
	if o.Status != StatusPreparing {
		t.Errorf("Status = %s, want %s", o.Status, StatusPreparing)
	}
}

func TestApplyStatusRejectsInvalidTransition(t *testing.T) {
	o := validGuestOrder()
	o.Status = StatusPending

	err := o.ApplyStatus(StatusReady, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ApplyStatus(pending -> ready) error = %v, want ErrInvalidTransition", err)
	}
	if o.Status != StatusPending {
		t.Errorf("rejected transition mutated status to %s", o.Status)
	}
	if o.ReadyAt != nil {
		t.Error("rejected transition stamped a timestamp")
	}
}

func TestApplyStatusReadyToDeliveredDependsOnOrderType(t *testing.T) {
	addr := "12 Main St"

	pickup := validGuestOrder()
	pickup.Status = StatusReady
	if err := pickup.ApplyStatus(StatusDelivered, time.Now()); err != nil {
		t.Fatalf("pickup ready -> delivered error: %v", err)
	}

	delivery := validGuestOrder()
	delivery.Type = TypeDelivery
	delivery.DeliveryAddress = &addr
	delivery.Status = StatusReady

	err := delivery.ApplyStatus(StatusDelivered, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("delivery ready -> delivered error = %v, want ErrInvalidTransition", err)
	}
	if delivery.Status != StatusReady {
		t.Errorf("rejected transition mutated status to %s", delivery.Status)
	}
	if delivery.CompletedAt != nil {
		t.Error("rejected transition stamped CompletedAt")
	}

	// The delivery path through out_for_delivery stays open.
	if err := delivery.ApplyStatus(StatusOutForDelivery, time.Now()); err != nil {
		t.Fatalf("delivery ready -> out_for_delivery error: %v", err)
	}
	if err := delivery.ApplyStatus(StatusDelivered, time.Now()); err != nil {
		t.Fatalf("delivery out_for_delivery -> delivered error: %v", err)
	}
}

func TestApplyStatusSingleTerminalTimestamp(t *testing.T) {
	o := validGuestOrder()
	o.Status = StatusOutForDelivery

	now := time.Now()
	if err := o.ApplyStatus(StatusDelivered, now); err != nil {
		t.Fatalf("ApplyStatus(delivered) error: %v", err)
	}
	if o.CompletedAt == nil {
		t.Fatal("CompletedAt not stamped")
	}
	if o.CancelledAt != nil {
		t.Error("CancelledAt stamped on a delivered order")
	}
}

func TestStatusEnteredAt(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	entered := time.Now().Add(-10 * time.Minute)

	o := validGuestOrder()
	o.CreatedAt = created
	o.Status = StatusPreparing
	o.PreparingAt = &entered

	if got := o.StatusEnteredAt(); !got.Equal(entered) {
		t.Errorf("StatusEnteredAt() = %v, want %v", got, entered)
	}

	o.PreparingAt = nil
	if got := o.StatusEnteredAt(); !got.Equal(created) {
		t.Errorf("StatusEnteredAt() fallback = %v, want CreatedAt %v", got, created)
	}
}
