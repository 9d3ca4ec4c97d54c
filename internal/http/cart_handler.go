package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/soundpack-store/internal/catalog"
	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/pricing"
	"github.com/fjod/soundpack-store/internal/repository"
	"github.com/fjod/soundpack-store/internal/service"
	"github.com/go-chi/chi/v5"
)

type cartStore interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, item domain.CartItem) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error)
}

type CartHandler struct {
	carts   cartStore
	catalog productCatalog
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(carts cartStore, catalog productCatalog, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalog,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
	Subtotal string `json:"subtotal"`
}

type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	Total     string             `json:"total"`
	ItemCount int                `json:"item_count"`
	Currency  string             `json:"currency"`
	Version   int64              `json:"version"`
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, getSessionID(r.Context()))
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	// name and price always come from the catalog, never from the client
	product, err := h.catalog.GetByID(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	if err != nil {
		h.log.Error("product lookup failed", "product", req.ProductID, "err", err)
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "product catalog is unavailable")
		return
	}

	cart, err := h.carts.AddItem(ctx, getSessionID(r.Context()), product.CartItem(req.Quantity))
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCartResponse(cart))
}

// PUT /api/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, getSessionID(r.Context()), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.RemoveItem(ctx, getSessionID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.ClearCart(ctx, getSessionID(r.Context()))
	if err != nil {
		h.handleCartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}

func (h *CartHandler) handleCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidItem):
		respondError(w, http.StatusUnprocessableEntity, "invalid_item", err.Error())
	case errors.Is(err, repository.ErrConcurrentUpdate):
		respondError(w, http.StatusConflict, "concurrent_update", "cart was modified concurrently, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "cart storage timed out")
	default:
		h.log.Error("cart request failed", "err", err, "request_id", getRequestID(r.Context()))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func toCartResponse(c *domain.Cart) CartResponse {
	items := make([]CartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = CartItemResponse{
			ID:       it.ID,
			Name:     it.Name,
			Price:    pricing.Round(it.Price).StringFixed(2),
			Quantity: it.Quantity,
			Image:    it.Image,
			Subtotal: pricing.Round(it.Subtotal()).StringFixed(2),
		}
	}
	return CartResponse{
		Items:     items,
		Total:     pricing.Round(c.Total()).StringFixed(2),
		ItemCount: c.ItemCount(),
		Currency:  pricing.Currency,
		Version:   c.Version,
	}
}
