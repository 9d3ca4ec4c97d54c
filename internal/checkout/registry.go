package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/pricing"
)

// Registry keeps one Handshake per browser session.
type Registry struct {
	requester IntentRequester
	cart      CartClearer
	calc      pricing.Calculator
	ttl       time.Duration
	log       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Handshake
}

func NewRegistry(requester IntentRequester, cart CartClearer, calc pricing.Calculator, ttl time.Duration, log *slog.Logger) *Registry {
	return &Registry{
		requester: requester,
		cart:      cart,
		calc:      calc,
		ttl:       ttl,
		log:       log,
		sessions:  make(map[string]*Handshake),
	}
}

// Get returns the session's handshake, creating it on first use.
func (r *Registry) Get(sessionID string) *Handshake {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[sessionID]
	if !ok {
		h = NewHandshake(sessionID, r.requester, r.cart, r.calc, r.log)
		r.sessions[sessionID] = h
	}
	return h
}

func (r *Registry) Lookup(sessionID string) (*Handshake, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[sessionID]
	return h, ok
}

// Abandon is called when the shopper navigates away from checkout.
func (r *Registry) Abandon(sessionID string) {
	r.mu.Lock()
	h, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if ok {
		h.Abandon()
	}
}

// OnCartChanged is subscribed to the cart service.
func (r *Registry) OnCartChanged(sessionID string, cart *domain.Cart) {
	if h, ok := r.Lookup(sessionID); ok {
		h.CartChanged(cart)
	}
}

// Sweep drops handshakes unused for longer than the ttl. Sessions that are
// confirming a payment are kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, h := range r.sessions {
		lastSeen, confirming := h.idleSince()
		if confirming || now.Sub(lastSeen) < r.ttl {
			continue
		}
		h.Abandon()
		delete(r.sessions, id)
		removed++
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps expired sessions until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("checkout session sweeper stopped")
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.log.Debug("expired checkout sessions removed", "count", n)
			}
		}
	}
}
