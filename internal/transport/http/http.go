package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/ordertrack/internal/service/models/guest"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/services/dashboardsvc"
	"github.com/corray333/ordertrack/internal/service/services/tracksvc"
	createorder "github.com/corray333/ordertrack/internal/transport/http/create_order"
	dashboard "github.com/corray333/ordertrack/internal/transport/http/dashboard"
	getorder "github.com/corray333/ordertrack/internal/transport/http/get_order"
	sessionhandler "github.com/corray333/ordertrack/internal/transport/http/session"
	updatestatus "github.com/corray333/ordertrack/internal/transport/http/update_status"
	"github.com/corray333/ordertrack/pkg/http/middleware/trace"
	"github.com/corray333/ordertrack/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type orderService interface {
	CreateOrder(ctx context.Context, o *order.Order) (*order.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, next order.Status, changedBy string) (*order.Order, error)
}

type dashboardService interface {
	Board(ctx context.Context, category order.Category, todayOnly bool) ([]dashboardsvc.CategorizedOrder, error)
}

type trackService interface {
	Session(fingerprint guest.Fingerprint) *tracksvc.Session
	RecoverSession(ctx context.Context, fingerprint guest.Fingerprint) bool
	PlaceOrder(ctx context.Context, fingerprint guest.Fingerprint, cmd tracksvc.PlaceOrderCommand) (tracksvc.Snapshot, error)
	OpenReceipt(fingerprint guest.Fingerprint) error
	Dismiss(fingerprint guest.Fingerprint) error
}

type HTTPTransport struct {
	server    *http.Server
	router    *chi.Mux
	orders    orderService
	dashboard dashboardService
	tracker   trackService
}

func NewHTTPTransport(orders orderService, dashboard dashboardService, tracker trackService) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:    server,
		router:    router,
		orders:    orders,
		dashboard: dashboard,
		tracker:   tracker,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Post("/orders/{orderID}/status", h.updateStatus)

		r.Get("/dashboard/{category}", h.board)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.sessionSnapshot)
			r.Post("/cart/items", h.addCartItem)
			r.Delete("/cart/items/{index}", h.removeCartItem)
			r.Post("/order", h.placeOrder)
			r.Post("/receipt/open", h.openReceipt)
			r.Post("/dismiss", h.dismiss)
		})
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) updateStatus(w http.ResponseWriter, r *http.Request) {
	updatestatus.UpdateStatus(w, r, h.orders)
}

func (h *HTTPTransport) board(w http.ResponseWriter, r *http.Request) {
	dashboard.Board(w, r, h.dashboard)
}

func (h *HTTPTransport) sessionSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionhandler.Snapshot(w, r, h.tracker)
}

func (h *HTTPTransport) addCartItem(w http.ResponseWriter, r *http.Request) {
	sessionhandler.AddItem(w, r, h.tracker)
}

func (h *HTTPTransport) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sessionhandler.RemoveItem(w, r, h.tracker)
}

func (h *HTTPTransport) placeOrder(w http.ResponseWriter, r *http.Request) {
	sessionhandler.PlaceOrder(w, r, h.tracker)
}

func (h *HTTPTransport) openReceipt(w http.ResponseWriter, r *http.Request) {
	sessionhandler.OpenReceipt(w, r, h.tracker)
}

func (h *HTTPTransport) dismiss(w http.ResponseWriter, r *http.Request) {
	sessionhandler.Dismiss(w, r, h.tracker)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
