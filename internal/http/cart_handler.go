package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mvolkov/go_storefront/internal/domain"
)

// CartAPI is what the handler needs from the cart engine.
// Consumers define this interface, not the service implementation.
type CartAPI interface {
	GetCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error)
	AddItem(ctx context.Context, owner domain.CartOwner, productID string, quantity int, priceHint *decimal.Decimal) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, owner domain.CartOwner, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.CartOwner, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error)
}

type MergeAPI interface {
	MergeGuestCart(ctx context.Context, userID, sessionID string) (*domain.Cart, error)
}

type CartHandler struct {
	cart  CartAPI
	merge MergeAPI
}

func NewCartHandler(cart CartAPI, merge MergeAPI) *CartHandler {
	return &CartHandler{
		cart:  cart,
		merge: merge,
	}
}

type AddItemRequestDTO struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity  int    `json:"quantity"`
	SessionID string `json:"session_id,omitempty"`
}

type MergeRequestDTO struct {
	SessionID string `json:"session_id"`
}

type ClearCartRequestDTO struct {
	SessionID string `json:"session_id,omitempty"`
}

// ownerFromRequest resolves who the cart belongs to: the authenticated user
// when a token was presented, otherwise the guest session id from the
// request. An identity must come from exactly one of the two.
func ownerFromRequest(r *http.Request, sessionID string) (domain.CartOwner, bool) {
	if userID := getUserIDFromContext(r.Context()); userID != "" {
		return domain.UserOwner(userID), true
	}
	if sessionID == "" {
		sessionID = r.URL.Query().Get("sessionId")
	}
	if sessionID != "" {
		return domain.GuestOwner(sessionID), true
	}
	return domain.CartOwner{}, false
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r, "")
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_identity", "no session or user ID provided")
		return
	}

	cart, err := h.cart.GetCart(r.Context(), owner)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	// Stock is the only upper bound; the service enforces it.
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
		return
	}

	owner, ok := ownerFromRequest(r, req.SessionID)
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_identity", "no session or user ID provided")
		return
	}

	cart, err := h.cart.AddItem(r.Context(), owner, req.ProductID, req.Quantity, req.Price)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	owner, ok := ownerFromRequest(r, req.SessionID)
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_identity", "no session or user ID provided")
		return
	}

	cart, err := h.cart.UpdateQuantity(r.Context(), owner, productID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	owner, ok := ownerFromRequest(r, "")
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_identity", "no session or user ID provided")
		return
	}

	cart, err := h.cart.RemoveItem(r.Context(), owner, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	var req ClearCartRequestDTO
	if r.Body != nil {
		// Body is optional for authenticated users.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	owner, ok := ownerFromRequest(r, req.SessionID)
	if !ok {
		respondError(w, http.StatusBadRequest, "missing_identity", "no session or user ID provided")
		return
	}

	cart, err := h.cart.ClearCart(r.Context(), owner)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// Merge folds the guest session cart into the authenticated user's cart.
// Requires authentication; the route is mounted behind RequireAuth.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req MergeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.merge.MergeGuestCart(r.Context(), userID, req.SessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}
