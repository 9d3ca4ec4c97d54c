package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/soundpack-store/internal/cache"
	"github.com/fjod/soundpack-store/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ProductSource is the headless content store.
type ProductSource interface {
	Products(ctx context.Context) ([]domain.Product, error)
	ProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ProductByID(ctx context.Context, id string) (*domain.Product, error)
}

type CatalogService struct {
	source ProductSource
	cache  cache.ProductCache
	log    *slog.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewCatalogService(source ProductSource, cache cache.ProductCache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		source: source,
		cache:  cache,
		log:    log,
	}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do("list", func() (interface{}, error) {
		products, err := s.cache.GetProducts(ctx)
		if err == nil {
			return products, nil
		}
		s.logCacheError(err)

		products, err = s.source.Products(ctx)
		if err != nil {
			return nil, err
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.SetProducts(ctx, products); err != nil {
				s.log.Warn("cache set error", "key", "list", "err", err)
			}
		}()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.getOne(ctx, "slug:"+slug, func() (*domain.Product, error) {
		return s.source.ProductBySlug(ctx, slug)
	})
}

func (s *CatalogService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.getOne(ctx, "id:"+id, func() (*domain.Product, error) {
		return s.source.ProductByID(ctx, id)
	})
}

func (s *CatalogService) getOne(ctx context.Context, key string, fetch func() (*domain.Product, error)) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		product, err := s.cache.GetProduct(ctx, key)
		if err == nil {
			return product, nil // product is in cache
		}
		s.logCacheError(err)

		product, err = fetch()
		if err != nil {
			return nil, err
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.SetProduct(ctx, key, product); err != nil {
				s.log.Warn("cache set error", "key", key, "err", err)
			}
		}()
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *CatalogService) logCacheError(err error) {
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("cache get error", "err", err) // log cache error but continue
	}
}
