package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/repository"
)

var ErrInvalidItem = errors.New("cart item requires an id and a non-negative price")

// Listener is notified after every effective cart mutation. It receives a
// copy of the cart and must not block.
type Listener func(sessionID string, cart *domain.Cart)

// CartService is the cart store handle shared by the HTTP handlers, the
// checkout registry and the payment event poller.
type CartService struct {
	repo repository.CartRepository
	log  *slog.Logger

	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func NewCartService(repo repository.CartRepository, log *slog.Logger) *CartService {
	return &CartService{
		repo:      repo,
		log:       log,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *CartService) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) { // not found cart return empty cart
		return domain.NewCart(sessionID), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, item domain.CartItem) (*domain.Cart, error) {
	if item.ID == "" || item.Price.IsNegative() {
		return nil, ErrInvalidItem
	}
	return s.update(ctx, sessionID, "add item", func(c *domain.Cart) bool {
		c.AddItem(item)
		return true
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error) {
	return s.update(ctx, sessionID, "update quantity", func(c *domain.Cart) bool {
		return c.UpdateQuantity(itemID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error) {
	return s.update(ctx, sessionID, "remove item", func(c *domain.Cart) bool {
		return c.RemoveItem(itemID)
	})
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.update(ctx, sessionID, "clear cart", func(c *domain.Cart) bool {
		return c.Clear()
	})
}

// ClearIfUnchanged empties the cart only while its contents still match
// fingerprint. It reports whether the cart was cleared.
func (s *CartService) ClearIfUnchanged(ctx context.Context, sessionID, fingerprint string) (bool, error) {
	var cleared bool
	_, err := s.update(ctx, sessionID, "clear paid cart", func(c *domain.Cart) bool {
		if c.IsEmpty() || c.Fingerprint() != fingerprint {
			return false
		}
		cleared = c.Clear()
		return cleared
	})
	return cleared, err
}

func (s *CartService) update(ctx context.Context, sessionID, op string, fn repository.MutateFunc) (*domain.Cart, error) {
	cart, changed, err := s.repo.UpdateCart(ctx, sessionID, fn)
	if err != nil {
		s.log.Error("cart update failed", "op", op, "session", sessionID, "err", err)
		return nil, err
	}
	if changed {
		s.notify(sessionID, cart)
	}
	return cart, nil
}

func (s *CartService) notify(sessionID string, cart *domain.Cart) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(sessionID, cart.Clone())
	}
}
