package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/corray333/ordertrack/internal/service/models/guest"
	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/corray333/ordertrack/internal/service/services/tracksvc"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// FingerprintHeader carries the device fingerprint that keys guest sessions.
const FingerprintHeader = "X-Device-Fingerprint"

// service is an interface for the service layer.
type service interface {
	Session(fingerprint guest.Fingerprint) *tracksvc.Session
	RecoverSession(ctx context.Context, fingerprint guest.Fingerprint) bool
	PlaceOrder(ctx context.Context, fingerprint guest.Fingerprint, cmd tracksvc.PlaceOrderCommand) (tracksvc.Snapshot, error)
	OpenReceipt(fingerprint guest.Fingerprint) error
	Dismiss(fingerprint guest.Fingerprint) error
}

func fingerprintFromRequest(r *http.Request) (guest.Fingerprint, error) {
	return guest.ParseFingerprint(r.Header.Get(FingerprintHeader))
}

// Snapshot handles the session read. Recovery runs first so a returning
// device picks its active order back up before the snapshot is taken.
func Snapshot(w http.ResponseWriter, r *http.Request, service service) {
	fingerprint, err := fingerprintFromRequest(r)
	if err != nil {
		http.Error(w, "Missing device fingerprint", http.StatusBadRequest)

		return
	}

	service.RecoverSession(r.Context(), fingerprint)

	writeSnapshot(w, service.Session(fingerprint).Snapshot())
}

type addItemRequest struct {
	ProductID      uuid.UUID `json:"productId"`
	VariantID      uuid.UUID `json:"variantId"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Note           string    `json:"note,omitempty"`
}

// AddItem handles appending an item to the session cart.
func AddItem(w http.ResponseWriter, r *http.Request, service service) {
	fingerprint, err := fingerprintFromRequest(r)
	if err != nil {
		http.Error(w, "Missing device fingerprint", http.StatusBadRequest)

		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for add cart item", "error", err)

		return
	}

	sess := service.Session(fingerprint)
	if err := sess.AddItem(order.OrderItem{
		ProductID:      req.ProductID,
		VariantID:      req.VariantID,
		Quantity:       req.Quantity,
		UnitPriceCents: req.UnitPriceCents,
		Note:           req.Note,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	writeSnapshot(w, sess.Snapshot())
}

// RemoveItem handles removing an item from the session cart by position.
func RemoveItem(w http.ResponseWriter, r *http.Request, service service) {
	fingerprint, err := fingerprintFromRequest(r)
	if err != nil {
		http.Error(w, "Missing device fingerprint", http.StatusBadRequest)

		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid item index", http.StatusBadRequest)

		return
	}

	sess := service.Session(fingerprint)
	if err := sess.RemoveItem(index); err != nil {
		if errors.Is(err, tracksvc.ErrInvalidItemIndex) {
			http.Error(w, "No cart item at that position", http.StatusNotFound)

			return
		}
		http.Error(w, "Failed to remove cart item", http.StatusInternalServerError)
		slog.Error("Error removing cart item", "error", err)

		return
	}

	writeSnapshot(w, sess.Snapshot())
}

type placeOrderRequest struct {
	CustomerName    string  `json:"customerName"`
	CustomerPhone   string  `json:"customerPhone"`
	OrderType       string  `json:"orderType"`
	DeliveryAddress *string `json:"deliveryAddress,omitempty"`
}

// PlaceOrder handles turning the session cart into an order.
func PlaceOrder(w http.ResponseWriter, r *http.Request, service service) {
	fingerprint, err := fingerprintFromRequest(r)
	if err != nil {
		http.Error(w, "Missing device fingerprint", http.StatusBadRequest)

		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		slog.Error("Error decoding request body for place order", "error", err)

		return
	}

	snap, err := service.PlaceOrder(r.Context(), fingerprint, tracksvc.PlaceOrderCommand{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		OrderType:       order.Type(req.OrderType),
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, tracksvc.ErrOrderInProgress), errors.Is(err, tracksvc.ErrPlacementPending):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, tracksvc.ErrEmptyCart):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, tracksvc.ErrCreateOrderFailed):
			http.Error(w, "Failed to place order", http.StatusBadGateway)
			slog.Error("Error placing order", "error", err)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
			slog.Error("Error placing order", "error", err)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		slog.Error("Error writing response for place order", "error", err)
	}
}

// OpenReceipt handles opening the receipt view, which clears the unread flag.
func OpenReceipt(w http.ResponseWriter, r *http.Request, service service) {
	fingerprint, err := fingerprintFromRequest(r)
	if err != nil {
		http.Error(w, "Missing device fingerprint", http.StatusBadRequest)

		return
	}

	if err := service.OpenReceipt(fingerprint); err != nil {
		if errors.Is(err, tracksvc.ErrNoActiveOrder) {
			http.Error(w, err.Error(), http.StatusConflict)

			return
		}
		http.Error(w, "Failed to open receipt", http.StatusInternalServerError)
		slog.Error("Error opening receipt", "error", err)

		return
	}

	writeSnapshot(w, service.Session(fingerprint).Snapshot())
}

// Dismiss handles dismissing a finished order and returning to ordering.
func Dismiss(w http.ResponseWriter, r *http.Request, service service) {
	fingerprint, err := fingerprintFromRequest(r)
	if err != nil {
		http.Error(w, "Missing device fingerprint", http.StatusBadRequest)

		return
	}

	if err := service.Dismiss(fingerprint); err != nil {
		switch {
		case errors.Is(err, tracksvc.ErrNoActiveOrder):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, tracksvc.ErrOrderStillActive):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "Failed to dismiss order", http.StatusInternalServerError)
			slog.Error("Error dismissing order", "error", err)
		}

		return
	}

	writeSnapshot(w, service.Session(fingerprint).Snapshot())
}

func writeSnapshot(w http.ResponseWriter, snap tracksvc.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		slog.Error("Error writing session snapshot", "error", err)
	}
}
