package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ElenaBezro/go-shop-api/internal/domain"
)

type CartAPI interface {
	List(ctx context.Context, userID int64) ([]*domain.CartItem, error)
	Add(ctx context.Context, userID, productID int64, quantity float64) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, cartItemID int64, quantity float64) (*domain.CartItem, error)
	Remove(ctx context.Context, userID, cartItemID int64) error
}

type CartHandler struct {
	cart CartAPI
}

func NewCartHandler(cart CartAPI) *CartHandler {
	return &CartHandler{cart: cart}
}

type addCartItemRequest struct {
	UserID    int64   `json:"user_id"`
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity float64 `json:"quantity"`
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	items, err := h.cart.List(r.Context(), principal.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID != 0 && req.UserID != principal.UserID {
		respondError(w, http.StatusBadRequest, "user id does not match the authenticated user")
		return
	}

	var messages []string
	if req.ProductID <= 0 {
		messages = append(messages, "product_id must be positive")
	}
	if req.Quantity <= 0 {
		messages = append(messages, "quantity must be positive")
	}
	if len(messages) > 0 {
		respondErrors(w, http.StatusBadRequest, messages)
		return
	}

	item, err := h.cart.Add(r.Context(), principal.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid cart item id")
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	item, err := h.cart.UpdateQuantity(r.Context(), principal.UserID, id, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid cart item id")
		return
	}

	if err := h.cart.Remove(r.Context(), principal.UserID, id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
