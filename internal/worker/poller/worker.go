package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// statusFetcher is the authoritative status read used each cycle.
type statusFetcher interface {
	FetchOrderStatus(ctx context.Context, id uuid.UUID) (order.Status, error)
}

// ApplyFunc feeds one fetched status into the reconciler. It reports whether
// tracking is finished, which stops the loop.
type ApplyFunc func(ev statusevent.StatusEvent) bool

// Worker periodically re-fetches the authoritative status of one order and
// reconciles it. It runs concurrently with the push feed on purpose: the
// reconciler is idempotent and monotonic, so redundant delivery is safe, and
// the loop repairs events the push channel missed.
type Worker struct {
	orderID      uuid.UUID
	fetcher      statusFetcher
	apply        ApplyFunc
	pollInterval time.Duration
	fetchTimeout time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a polling worker for one order.
func NewWorker(orderID uuid.UUID, fetcher statusFetcher, apply ApplyFunc) *Worker {
	pollIntervalSeconds := viper.GetInt("tracker.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 5
	}

	fetchTimeoutSeconds := viper.GetInt("tracker.fetch_timeout_seconds")
	if fetchTimeoutSeconds == 0 {
		fetchTimeoutSeconds = 3
	}

	return &Worker{
		orderID:      orderID,
		fetcher:      fetcher,
		apply:        apply,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		fetchTimeout: time.Duration(fetchTimeoutSeconds) * time.Second,
		stopCh:       make(chan struct{}),
	}
}

// Start begins polling. It returns when the order reaches a terminal status,
// the tracked snapshot is cleared, or the worker is stopped.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Debug("Status poller started", "order_id", w.orderID, "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Status poller shutting down", "order_id", w.orderID)

			return
		case <-w.stopCh:
			slog.Debug("Status poller stopped", "order_id", w.orderID)

			return
		case <-ticker.C:
			if w.poll(ctx) {
				slog.Debug("Status poller finished", "order_id", w.orderID)

				return
			}
		}
	}
}

// Stop stops the worker. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// poll runs a single cycle. Fetch failures skip the cycle; transient network
// errors are expected here, not fatal.
func (w *Worker) poll(ctx context.Context) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	status, err := w.fetcher.FetchOrderStatus(fetchCtx, w.orderID)
	if err != nil {
		slog.Warn("Status poll failed, skipping cycle", "order_id", w.orderID, "error", err)

		return false
	}

	return w.apply(statusevent.StatusEvent{
		OrderID:   w.orderID,
		NewStatus: status,
		Timestamp: time.Now(),
		Source:    statusevent.SourcePoll,
	})
}
