package cache

import (
	"context"
	"errors"

	"github.com/fjod/soundpack-store/internal/domain"
)

type ProductCache interface {
	GetProducts(ctx context.Context) ([]domain.Product, error)
	SetProducts(ctx context.Context, products []domain.Product) error
	GetProduct(ctx context.Context, key string) (*domain.Product, error)
	SetProduct(ctx context.Context, key string, product *domain.Product) error
}

var ErrCacheMiss = errors.New("cache miss")
