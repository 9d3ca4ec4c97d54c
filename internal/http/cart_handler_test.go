package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCart_EmptyForNewSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/cart", "")

	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[CartResponse](t, w)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Total)
	assert.Equal(t, "eur", cart.Currency)
}

func TestAddItem_UsesCatalogPriceAndMerges(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p1","quantity":1,"price":"0.01"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	cart := decode[CartResponse](t, w)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "25.00", cart.Items[0].Price)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "50.00", cart.Total)
	assert.Equal(t, 2, cart.ItemCount)
}

func TestAddItem_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/cart/items", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode[ErrorResponse](t, w).Code)

	w = env.do(t, http.MethodPost, "/api/cart/items", `{"quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_product_id", decode[ErrorResponse](t, w).Code)

	w = env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.catalog.err = errors.New("sanity down")
	w = env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p1"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUpdateQuantity_ClampsAndIgnoresUnknown(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p1","quantity":3}`)

	w := env.do(t, http.MethodPut, "/api/cart/items/p1", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[CartResponse](t, w)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	w = env.do(t, http.MethodPut, "/api/cart/items/unknown", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[CartResponse](t, w).ItemCount)
}

func TestRemoveAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p1"}`)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p2","quantity":2}`)

	w := env.do(t, http.MethodDelete, "/api/cart/items/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[CartResponse](t, w)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "21.00", cart.Total)

	w = env.do(t, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decode[CartResponse](t, w).Total)
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/cart/items", `{"product_id":"p1"}`)

	other := *env
	other.sessionID = "6f1c1a54-8a8e-4a4e-9d0b-0c7b1f0a9d11"
	w := other.do(t, http.MethodGet, "/api/cart", "")
	assert.Empty(t, decode[CartResponse](t, w).Items)
}
