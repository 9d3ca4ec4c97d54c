package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.load(ctx, r.client, sessionID)
}

func (r *RedisRepository) UpdateCart(ctx context.Context, sessionID string, fn MutateFunc) (*domain.Cart, bool, error) {
	key := cartKey(sessionID)
	var (
		cart    *domain.Cart
		changed bool
	)

	txf := func(tx *redis.Tx) error {
		loaded, err := r.load(ctx, tx, sessionID)
		if errors.Is(err, ErrCartNotFound) {
			loaded = domain.NewCart(sessionID)
		} else if err != nil {
			return err
		}

		changed = fn(loaded)
		cart = loaded
		if !changed {
			return nil
		}

		data, err := json.Marshal(loaded)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return cart, changed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // another request for this session won, reload and reapply
		}
		return nil, false, fmt.Errorf("redis update failed: %w", err)
	}
	return nil, false, ErrConcurrentUpdate
}

func (r *RedisRepository) DeleteCart(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisRepository) load(ctx context.Context, c getter, sessionID string) (*domain.Cart, error) {
	data, err := c.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
