package consumer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/ordertrack/internal/dal/rabbitmq"
	"github.com/corray333/ordertrack/internal/service/models/statusevent"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// ConnState is the observable connection state of the push channel. It is
// informational: correctness is covered by the polling fallback whenever the
// channel silently misses events.
type ConnState string

const (
	StateConnecting ConnState = "connecting"
	StateOpen       ConnState = "open"
	StateClosed     ConnState = "closed"
)

// dispatcher routes validated status events to their tracking sessions.
type dispatcher interface {
	Dispatch(ev statusevent.StatusEvent)
}

// Consumer subscribes to the order status change feed and normalizes its
// mutations into reconciler events. Payloads that do not parse into the
// expected shape are rejected here and never reach the reconciler.
type Consumer struct {
	client     *rabbitmq.Client
	dispatcher dispatcher
	queue      amqp.Queue
	stop       chan struct{}
	done       chan struct{}

	mu    sync.Mutex
	state ConnState
}

// NewConsumer creates a new Consumer bound to the status feed exchange.
func NewConsumer(client *rabbitmq.Client, dispatcher dispatcher) *Consumer {
	exchange := viper.GetString("rabbitmq.status_exchange")
	if exchange == "" {
		panic("rabbitmq.status_exchange is not set in config")
	}
	queueName := viper.GetString("rabbitmq.queue")
	if queueName == "" {
		panic("rabbitmq.queue is not set in config")
	}

	if err := client.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    exchange,
		Kind:    "topic",
		Durable: true,
	}); err != nil {
		panic(err)
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	if err := client.BindQueue(queue.Name, "status.#", exchange); err != nil {
		panic(err)
	}

	return &Consumer{
		client:     client,
		dispatcher: dispatcher,
		queue:      queue,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		state:      StateConnecting,
	}
}

// State returns the current connection state of the push channel.
func (c *Consumer) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Consumer) setState(state ConnState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Run starts consuming status events. A closed delivery channel is treated
// as a recoverable disconnect: the consumer retries while the fallback
// polling keeps the sessions correct.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.done)

	retryDelay := 5 * time.Second

	for {
		err := c.consume(ctx)
		if err == nil {
			return nil
		}

		c.setState(StateClosed)
		slog.Warn("Status feed disconnected, retrying", "error", err, "retry_in", retryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		case <-time.After(retryDelay):
		}
	}
}

// consume drains deliveries until the channel closes or the consumer stops.
func (c *Consumer) consume(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "ordertrack"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue.Name,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	c.setState(StateOpen)
	slog.Info("Status feed consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(50)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()

			return nil
		case <-c.stop:
			slog.Info("Stopping status feed consumer")
			_ = g.Wait()

			return nil
		case msg, ok := <-msgs:
			if !ok {
				_ = g.Wait()

				return amqp.ErrClosed
			}

			g.Go(func() error {
				c.processMessage(gctx, msg)

				return nil
			})
		}
	}
}

// processMessage validates and dispatches a single status event.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	_, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	ev, err := statusevent.Decode(msg.Body)
	if err != nil {
		slog.Error("Dropping malformed status event", "error", err)
		// Reject without requeuing: a malformed payload will not improve.
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	c.dispatcher.Dispatch(ev)

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)
	}
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down status feed consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Status feed consumer stopped")
	case <-time.After(10 * time.Second):
		slog.Warn("Status feed consumer shutdown timeout")
	}

	return nil
}
