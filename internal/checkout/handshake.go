package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/pricing"
	"github.com/google/uuid"
)

const defaultDeclineMessage = "Your payment was declined."

// CartClearer empties a session cart after a confirmed payment.
type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error)
}

// PaymentSession is the checkout state exposed to the browser.
type PaymentSession struct {
	ClientSecret string                 `json:"client_secret,omitempty"`
	Status       domain.CheckoutStatus  `json:"status"`
	Message      string                 `json:"message,omitempty"`
	Fingerprint  string                 `json:"-"`
	Totals       *pricing.DisplayTotals `json:"totals,omitempty"`
	OrderNumber  string                 `json:"order_number,omitempty"`
}

// Outcome is what the hosted payment UI reports after confirmation.
type Outcome struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message,omitempty"`
}

// Handshake drives one session's payment intent lifecycle. Requests are
// guarded by the cart fingerprint and an attempt counter so a mount that
// fires repeatedly yields a single request and a late response for an
// abandoned attempt is dropped.
type Handshake struct {
	sessionID string
	requester IntentRequester
	cart      CartClearer
	calc      pricing.Calculator
	log       *slog.Logger

	mu       sync.Mutex
	session  PaymentSession
	attempt  uint64
	lastSeen time.Time
}

func NewHandshake(sessionID string, requester IntentRequester, cart CartClearer, calc pricing.Calculator, log *slog.Logger) *Handshake {
	return &Handshake{
		sessionID: sessionID,
		requester: requester,
		cart:      cart,
		calc:      calc,
		log:       log.With("session", sessionID),
		session:   PaymentSession{Status: domain.CheckoutStatusIdle},
		lastSeen:  time.Now(),
	}
}

// Session returns a copy of the current state.
func (h *Handshake) Session() PaymentSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Begin is called when the checkout page mounts.
func (h *Handshake) Begin(ctx context.Context, cart *domain.Cart) (PaymentSession, error) {
	if cart == nil || cart.IsEmpty() {
		return h.Session(), ErrEmptyCart
	}
	fp := cart.Fingerprint()

	h.mu.Lock()
	h.lastSeen = time.Now()
	status := h.session.Status
	if status == domain.CheckoutStatusConfirming {
		s := h.session
		h.mu.Unlock()
		return s, ErrPaymentInProgress
	}
	if status != domain.CheckoutStatusIdle && status != domain.CheckoutStatusSucceeded && h.session.Fingerprint == fp {
		s := h.session
		h.mu.Unlock()
		return s, nil
	}
	return h.start(ctx, cart, fp)
}

// Retry requests a new intent after a failure. A failed confirmation that
// still holds a secret for the same cart is left as is: the shopper
// resubmits with that secret.
func (h *Handshake) Retry(ctx context.Context, cart *domain.Cart) (PaymentSession, error) {
	if cart == nil || cart.IsEmpty() {
		return h.Session(), ErrEmptyCart
	}
	fp := cart.Fingerprint()

	h.mu.Lock()
	h.lastSeen = time.Now()
	switch h.session.Status {
	case domain.CheckoutStatusFailed:
		if h.session.ClientSecret != "" && h.session.Fingerprint == fp {
			s := h.session
			h.mu.Unlock()
			return s, nil
		}
		return h.start(ctx, cart, fp)
	default:
		h.mu.Unlock()
		return h.Begin(ctx, cart)
	}
}

// start must be called with h.mu held; it releases it before the request.
func (h *Handshake) start(ctx context.Context, cart *domain.Cart, fp string) (PaymentSession, error) {
	totals, err := h.calc.Calculate(cart.Items)
	if err != nil {
		s := h.session
		h.mu.Unlock()
		return s, err
	}
	display := totals.Display()

	if h.session.Status == domain.CheckoutStatusSucceeded {
		// a completed checkout is final; buying again starts a new lifecycle
		h.session = PaymentSession{Status: domain.CheckoutStatusIdle}
	}
	if err := h.transition(domain.CheckoutStatusRequesting); err != nil {
		s := h.session
		h.mu.Unlock()
		return s, err
	}

	h.attempt++
	attempt := h.attempt
	h.session = PaymentSession{
		Status:      domain.CheckoutStatusRequesting,
		Fingerprint: fp,
		Totals:      &display,
	}
	snapshot := domain.NewCartSnapshot(cart)
	req := &domain.PaymentIntentRequest{
		Amount:      json.Number(display.GrandTotal),
		Currency:    pricing.Currency,
		Items:       snapshot.Items,
		SessionID:   h.sessionID,
		Fingerprint: fp,
		AttemptID:   uuid.NewString(),
	}
	h.mu.Unlock()

	h.log.Info("requesting payment intent", "attempt", attempt, "attempt_id", req.AttemptID, "amount", display.GrandTotal)
	secret, err := h.requester.RequestIntent(ctx, req)
	return h.finish(attempt, secret, err)
}

func (h *Handshake) finish(attempt uint64, secret string, err error) (PaymentSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if attempt != h.attempt {
		h.log.Info("discarding late payment intent response", "attempt", attempt)
		return h.session, ErrAttemptSuperseded
	}
	if errors.Is(err, context.Canceled) {
		// the page went away mid request; the next mount asks again
		h.session = PaymentSession{Status: domain.CheckoutStatusIdle}
		return h.session, err
	}
	if err != nil {
		h.log.Warn("payment intent request failed", "attempt", attempt, "err", err)
		if err := h.transition(domain.CheckoutStatusFailed); err != nil {
			return h.session, err
		}
		h.session.Message = UserMessage(err)
		return h.session, err
	}
	if err := h.transition(domain.CheckoutStatusReady); err != nil {
		return h.session, err
	}
	h.session.ClientSecret = secret
	return h.session, nil
}

// Submit validates the shipping details and hands over to the hosted UI.
func (h *Handshake) Submit(details Details) (PaymentSession, error) {
	if err := details.Validate(); err != nil {
		return h.Session(), err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSeen = time.Now()
	if h.session.ClientSecret == "" {
		return h.session, ErrNoClientSecret
	}
	if err := h.transition(domain.CheckoutStatusConfirming); err != nil {
		return h.session, err
	}
	h.session.Message = ""
	return h.session, nil
}

// Complete records the hosted UI's confirmation result.
func (h *Handshake) Complete(ctx context.Context, outcome Outcome) (PaymentSession, error) {
	h.mu.Lock()
	h.lastSeen = time.Now()
	if !outcome.Succeeded {
		defer h.mu.Unlock()
		if err := h.transition(domain.CheckoutStatusFailed); err != nil {
			return h.session, err
		}
		msg := outcome.Message
		if msg == "" {
			msg = defaultDeclineMessage
		}
		h.session.Message = msg
		h.log.Info("payment declined", "message", msg)
		return h.session, &DeclinedError{Message: msg}
	}

	if err := h.transition(domain.CheckoutStatusSucceeded); err != nil {
		s := h.session
		h.mu.Unlock()
		return s, err
	}
	h.session.ClientSecret = ""
	h.session.Message = ""
	h.session.OrderNumber = newOrderNumber()
	s := h.session
	h.mu.Unlock()

	h.log.Info("payment succeeded", "order", s.OrderNumber)
	// the succeeded status makes the resulting cart notification a no-op
	if _, err := h.cart.ClearCart(ctx, h.sessionID); err != nil {
		return s, fmt.Errorf("clear cart after payment: %w", err)
	}
	return s, nil
}

// Abandon drops the pending attempt when the shopper leaves checkout.
func (h *Handshake) Abandon() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempt++
	if h.session.Status == domain.CheckoutStatusConfirming {
		return
	}
	h.session = PaymentSession{Status: domain.CheckoutStatusIdle}
}

// CartChanged invalidates state tied to an older cart.
func (h *Handshake) CartChanged(cart *domain.Cart) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.session.Status {
	case domain.CheckoutStatusRequesting:
		h.attempt++
		h.session = PaymentSession{Status: domain.CheckoutStatusIdle}
	case domain.CheckoutStatusReady, domain.CheckoutStatusFailed:
		if cart.Fingerprint() != h.session.Fingerprint {
			h.session = PaymentSession{Status: domain.CheckoutStatusIdle}
		}
	}
}

// idleSince reports when the handshake was last used and whether a
// confirmation is in flight.
func (h *Handshake) idleSince() (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastSeen, h.session.Status == domain.CheckoutStatusConfirming
}

func (h *Handshake) transition(to domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(h.session.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, h.session.Status, to)
	}
	h.session.Status = to
	return nil
}

func newOrderNumber() string {
	return fmt.Sprintf("SP-%08d", rand.IntN(100000000))
}
