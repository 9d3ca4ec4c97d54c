package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ProductsResponse](t, w)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "genos-pop", resp.Products[0].Slug)
	assert.Equal(t, "25.00", resp.Products[0].Price)
	assert.Equal(t, "10.50", resp.Products[1].Price)
}

func TestListProducts_CatalogDown(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.err = errors.New("timeout")

	w := env.do(t, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "catalog_unavailable", decode[ErrorResponse](t, w).Code)
}

func TestGetProductBySlug(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products/pa5x-jazz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p2", decode[ProductResponse](t, w).ID)

	w = env.do(t, http.MethodGet, "/api/products/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
