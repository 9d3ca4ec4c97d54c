package repository

import (
	"context"
	"errors"

	"github.com/fjod/soundpack-store/internal/domain"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrConcurrentUpdate = errors.New("cart modified concurrently, retries exhausted")
)

// MutateFunc changes the cart in place and reports whether anything changed.
type MutateFunc func(cart *domain.Cart) bool

// CartRepository defines the interface for session cart storage
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	// UpdateCart loads the cart (or a new empty one), applies fn and stores
	// the result atomically when fn reports a change.
	UpdateCart(ctx context.Context, sessionID string, fn MutateFunc) (*domain.Cart, bool, error)
	DeleteCart(ctx context.Context, sessionID string) error
}
