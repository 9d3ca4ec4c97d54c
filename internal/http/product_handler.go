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
	"github.com/go-chi/chi/v5"
)

type productCatalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type ProductHandler struct {
	catalog productCatalog
	timeout time.Duration
	log     *slog.Logger
}

func NewProductHandler(catalog productCatalog, timeout time.Duration, log *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
		log:     log,
	}
}

type ProductResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Slug    string   `json:"slug"`
	Price   string   `json:"price"`
	Image   string   `json:"image,omitempty"`
	Gallery []string `json:"gallery,omitempty"`
	YouTube string   `json:"youtube,omitempty"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		h.log.Error("list products failed", "err", err, "request_id", getRequestID(r.Context()))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "product catalog is unavailable")
		return
	}

	resp := ProductsResponse{Products: make([]ProductResponse, len(products))}
	for i := range products {
		resp.Products[i] = toProductResponse(&products[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// GET /api/products/{slug}
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	slug := chi.URLParam(r, "slug")
	product, err := h.catalog.GetBySlug(ctx, slug)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	if err != nil {
		h.log.Error("get product failed", "slug", slug, "err", err, "request_id", getRequestID(r.Context()))
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "product catalog is unavailable")
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(product))
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:      p.ID,
		Name:    p.Name,
		Slug:    p.Slug,
		Price:   pricing.Round(p.Price).StringFixed(2),
		Image:   p.Image,
		Gallery: p.Gallery,
		YouTube: p.YouTube,
	}
}
