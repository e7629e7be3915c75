package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/google/uuid"
)

// fakeFetcher returns a scripted sequence of statuses, then repeats the last.
type fakeFetcher struct {
	mu       sync.Mutex
	statuses []order.Status
	errs     []error
	calls    int
}

func (f *fakeFetcher) FetchOrderStatus(_ context.Context, _ uuid.UUID) (order.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func newTestWorker(orderID uuid.UUID, fetcher statusFetcher, apply ApplyFunc) *Worker {
	return &Worker{
		orderID:      orderID,
		fetcher:      fetcher,
		apply:        apply,
		pollInterval: 5 * time.Millisecond,
		fetchTimeout: 50 * time.Millisecond,
		stopCh:       make(chan struct{}),
	}
}

func TestWorkerStopsWhenApplyReportsDone(t *testing.T) {
	orderID := uuid.New()
	fetcher := &fakeFetcher{statuses: []order.Status{order.StatusPreparing, order.StatusDelivered}}

	var mu sync.Mutex
	var seen []order.Status
	w := newTestWorker(orderID, fetcher, func(ev statusevent.StatusEvent) bool {
		mu.Lock()
		defer mu.Unlock()

		if ev.OrderID != orderID {
			t.Errorf("event order id = %s, want %s", ev.OrderID, orderID)
		}
		if ev.Source != statusevent.SourcePoll {
			t.Errorf("event source = %s, want poll", ev.Source)
		}
		seen = append(seen, ev.NewStatus)

		return ev.NewStatus.IsTerminal()
	})

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after a terminal status")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[len(seen)-1] != order.StatusDelivered {
		t.Errorf("applied statuses = %v, want [... delivered]", seen)
	}
}

func TestWorkerSkipsFailedCycles(t *testing.T) {
	orderID := uuid.New()
	fetcher := &fakeFetcher{
		statuses: []order.Status{"", order.StatusDelivered},
		errs:     []error{errors.New("connection refused")},
	}

	w := newTestWorker(orderID, fetcher, func(ev statusevent.StatusEvent) bool {
		return ev.NewStatus.IsTerminal()
	})

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from a failed fetch")
	}
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{statuses: []order.Status{order.StatusPending}}
	w := newTestWorker(uuid.New(), fetcher, func(statusevent.StatusEvent) bool { return false })

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	w.Stop()
	w.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerHonorsContextCancellation(t *testing.T) {
	fetcher := &fakeFetcher{statuses: []order.Status{order.StatusPending}}
	w := newTestWorker(uuid.New(), fetcher, func(statusevent.StatusEvent) bool { return false })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
