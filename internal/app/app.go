package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/ordertrack/internal/dal/postgres"
	"github.com/corray333/ordertrack/internal/dal/rabbitmq"
	outboxrepo "github.com/corray333/ordertrack/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/ordertrack/internal/otel"
	"github.com/corray333/ordertrack/internal/service/services/dashboardsvc"
	"github.com/corray333/ordertrack/internal/service/services/ordersvc"
	"github.com/corray333/ordertrack/internal/service/services/tracksvc"
	"github.com/corray333/ordertrack/internal/transport/consumer"
	httptransport "github.com/corray333/ordertrack/internal/transport/http"
	outboxworker "github.com/corray333/ordertrack/internal/worker/outbox"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	dashboardSvc   *dashboardsvc.DashboardService
	trackSvc       *tracksvc.TrackService
	transport      *httptransport.HTTPTransport
	consumerTransp *consumer.Consumer
	outboxWorker   *outboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
	)

	dashboardSvc := dashboardsvc.NewDashboardService(orderSvc)

	trackSvc := tracksvc.MustNewTrackService(
		tracksvc.WithOrderService(orderSvc),
	)

	transport := httptransport.NewHTTPTransport(orderSvc, dashboardSvc, trackSvc)
	transport.RegisterRoutes()

	consumerTransp := consumer.NewConsumer(rabbitMqClient, trackSvc)

	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient.Pool())
	outboxWorker := outboxworker.NewWorker(outboxRepository, rabbitMqClient)

	return &App{
		orderSvc:       orderSvc,
		dashboardSvc:   dashboardSvc,
		trackSvc:       trackSvc,
		transport:      transport,
		consumerTransp: consumerTransp,
		outboxWorker:   outboxWorker,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.trackSvc.Start(ctx)

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting status event consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting outbox worker")
		a.outboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown performs graceful shutdown of all application components.
// It shuts down components sequentially: HTTP server, outbox worker, consumer,
// tracking sessions, RabbitMQ, PostgreSQL, and OpenTelemetry.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.outboxWorker.Stop()
	slog.Info("Outbox worker stopped gracefully")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	a.trackSvc.Shutdown()
	slog.Info("Tracking service stopped gracefully")

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
