package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mvolkov/go_storefront/internal/domain"
	"github.com/mvolkov/go_storefront/internal/metrics"
	"github.com/mvolkov/go_storefront/internal/service"
)

type OrdersAPI interface {
	PlaceOrder(ctx context.Context, userID string) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	ListAllOrders(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error)
}

type OrderHandler struct {
	orders  OrdersAPI
	metrics *metrics.Metrics
}

func NewOrderHandler(orders OrdersAPI, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		metrics: m,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// PlaceOrder ignores any client-supplied body entirely: the order is built
// from the server-side cart and the total is recomputed from the snapshots.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), userID)
	if err != nil {
		var stockErr *service.InsufficientStockError
		if h.metrics != nil && errors.As(err, &stockErr) {
			h.metrics.InsufficientStock.Inc()
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.OrdersPlaced.Inc()
	}
	respondJSON(w, http.StatusCreated, order)
}

// GetOrder returns one of the caller's own orders. An order belonging to
// someone else reads as not found so existence is not leaked.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if order.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// ListAllOrders is mounted behind RequireAdmin.
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAllOrders(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// UpdateStatus is mounted behind RequireAdmin.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id is required")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !status.IsValid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, status)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
