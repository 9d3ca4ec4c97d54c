package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m     sync.Mutex
	carts map[string]*domain.Cart
	err   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: make(map[string]*domain.Cart)}
}

func (m *mockRepository) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *mockRepository) UpdateCart(_ context.Context, sessionID string, fn repository.MutateFunc) (*domain.Cart, bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	c, ok := m.carts[sessionID]
	if !ok {
		c = domain.NewCart(sessionID)
	} else {
		c = c.Clone()
	}
	changed := fn(c)
	if changed {
		m.carts[sessionID] = c
	}
	return c.Clone(), changed, nil
}

func (m *mockRepository) DeleteCart(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, sessionID)
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pack(id string, price int64, qty int) domain.CartItem {
	return domain.CartItem{ID: id, Name: "Pack " + id, Price: decimal.NewFromInt(price), Quantity: qty}
}

func TestGetCart_EmptyWhenMissing(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())

	cart, err := sut.GetCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, "s1", cart.SessionID)
	assert.True(t, cart.Total().IsZero())
}

func TestGetCart_RepositoryError(t *testing.T) {
	repo := newMockRepository()
	repo.err = errors.New("redis down")
	sut := NewCartService(repo, discardLogger())

	_, err := sut.GetCart(context.Background(), "s1")
	assert.EqualError(t, err, "redis down")
}

func TestAddItem_MergesAndTotals(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())
	ctx := context.Background()

	_, err := sut.AddItem(ctx, "s1", pack("a", 10, 2))
	require.NoError(t, err)
	_, err = sut.AddItem(ctx, "s1", pack("b", 5, 1))
	require.NoError(t, err)
	cart, err := sut.AddItem(ctx, "s1", pack("a", 10, 1))
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(35).Equal(cart.Total()))
}

func TestAddItem_Invalid(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())

	_, err := sut.AddItem(context.Background(), "s1", domain.CartItem{Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidItem)

	_, err = sut.AddItem(context.Background(), "s1", domain.CartItem{ID: "a", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidItem)
}

func TestUpdateQuantity_ClampsAndKeepsItem(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())
	ctx := context.Background()
	_, err := sut.AddItem(ctx, "s1", pack("a", 10, 4))
	require.NoError(t, err)

	cart, err := sut.UpdateQuantity(ctx, "s1", "a", -2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestRemoveItem_NonExistentLeavesCartUnchanged(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())
	ctx := context.Background()
	before, err := sut.AddItem(ctx, "s1", pack("a", 10, 2))
	require.NoError(t, err)

	after, err := sut.RemoveItem(ctx, "s1", "missing")
	require.NoError(t, err)
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Version, after.Version)
}

func TestClearCart_TotalZero(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())
	ctx := context.Background()
	_, err := sut.AddItem(ctx, "s1", pack("a", 10, 2))
	require.NoError(t, err)

	_, err = sut.ClearCart(ctx, "s1")
	require.NoError(t, err)

	cart, err := sut.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, cart.Total().IsZero())
}

func TestClearIfUnchanged(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())
	ctx := context.Background()
	cart, err := sut.AddItem(ctx, "s1", pack("a", 10, 2))
	require.NoError(t, err)
	paid := cart.Fingerprint()

	_, err = sut.AddItem(ctx, "s1", pack("b", 5, 1))
	require.NoError(t, err)

	cleared, err := sut.ClearIfUnchanged(ctx, "s1", paid)
	require.NoError(t, err)
	assert.False(t, cleared)

	cart, err = sut.RemoveItem(ctx, "s1", "b")
	require.NoError(t, err)
	require.Equal(t, paid, cart.Fingerprint())

	cleared, err = sut.ClearIfUnchanged(ctx, "s1", paid)
	require.NoError(t, err)
	assert.True(t, cleared)
}

func TestSubscribe_NotifiedOnEffectiveMutations(t *testing.T) {
	sut := NewCartService(newMockRepository(), discardLogger())
	ctx := context.Background()

	var calls []int64
	unsubscribe := sut.Subscribe(func(sessionID string, c *domain.Cart) {
		assert.Equal(t, "s1", sessionID)
		calls = append(calls, c.Version)
	})

	_, err := sut.AddItem(ctx, "s1", pack("a", 10, 2))
	require.NoError(t, err)
	_, err = sut.RemoveItem(ctx, "s1", "missing")
	require.NoError(t, err)
	_, err = sut.UpdateQuantity(ctx, "s1", "a", 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, calls)

	unsubscribe()
	_, err = sut.ClearCart(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, calls, 2)
}

func TestUpdate_RepositoryErrorNotNotified(t *testing.T) {
	repo := newMockRepository()
	repo.err = errors.New("redis down")
	sut := NewCartService(repo, discardLogger())

	notified := false
	sut.Subscribe(func(string, *domain.Cart) { notified = true })

	_, err := sut.AddItem(context.Background(), "s1", pack("a", 10, 1))
	require.Error(t, err)
	assert.False(t, notified)
}
