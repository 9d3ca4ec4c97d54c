package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisRepository instance
func setupTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	repo := NewRedisRepository(client, time.Hour)

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return repo, mr, cleanup
}

func addPack(id string, qty int) MutateFunc {
	return func(c *domain.Cart) bool {
		c.AddItem(domain.CartItem{ID: id, Name: "Pack", Price: decimal.NewFromInt(10), Quantity: qty})
		return true
	}
}

func TestGetCart_NotFound(t *testing.T) {
	repo, _, cleanup := setupTestRedis(t)
	defer cleanup()

	cart, err := repo.GetCart(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestGetCart_InvalidJSON(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(cartKey("s1"), `{"items":[`))

	_, err := repo.GetCart(context.Background(), "s1")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestUpdateCart_CreatesAndStores(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	cart, changed, err := repo.UpdateCart(ctx, "s1", addPack("a", 2))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "s1", cart.SessionID)

	stored, err := mr.Get(cartKey("s1"))
	require.NoError(t, err)
	var storedCart domain.Cart
	require.NoError(t, json.Unmarshal([]byte(stored), &storedCart))
	require.Len(t, storedCart.Items, 1)
	assert.Equal(t, 2, storedCart.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(storedCart.Items[0].Price))

	ttl := mr.TTL(cartKey("s1"))
	assert.Equal(t, time.Hour, ttl)
}

func TestUpdateCart_NoChangeDoesNotWrite(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	_, changed, err := repo.UpdateCart(context.Background(), "s1", func(*domain.Cart) bool { return false })
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, mr.Exists(cartKey("s1")))
}

func TestUpdateCart_ConcurrentAddsAreNotLost(t *testing.T) {
	repo, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, _, err := repo.UpdateCart(ctx, "s1", addPack("a", 1))
				if err == nil {
					return
				}
				// exhausted retries under contention, try again
				assert.ErrorIs(t, err, ErrConcurrentUpdate)
			}
		}()
	}
	wg.Wait()

	cart, err := repo.GetCart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
}

func TestDeleteCart(t *testing.T) {
	repo, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, _, err := repo.UpdateCart(ctx, "s1", addPack("a", 1))
	require.NoError(t, err)
	assert.True(t, mr.Exists(cartKey("s1")))

	require.NoError(t, repo.DeleteCart(ctx, "s1"))
	assert.False(t, mr.Exists(cartKey("s1")))

	// Deleting non-existent key should not error
	assert.NoError(t, repo.DeleteCart(ctx, "s1"))
}

func TestCartKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", cartKey("test123"))
}
