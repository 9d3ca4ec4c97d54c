package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/soundpack-store/internal/checkout"
	"github.com/fjod/soundpack-store/internal/domain"
)

type CheckoutHandler struct {
	carts     cartStore
	sessions  *checkout.Registry
	returnURL string
	timeout   time.Duration
	log       *slog.Logger
}

func NewCheckoutHandler(carts cartStore, sessions *checkout.Registry, returnURL string, timeout time.Duration, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		carts:     carts,
		sessions:  sessions,
		returnURL: returnURL,
		timeout:   timeout,
		log:       log,
	}
}

type CheckoutResponseDTO struct {
	checkout.PaymentSession
	ReturnURL string `json:"return_url,omitempty"`
}

// GET /api/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, (*checkout.Handshake).Begin)
}

// POST /api/checkout/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.start(w, r, (*checkout.Handshake).Retry)
}

type startFunc func(*checkout.Handshake, context.Context, *domain.Cart) (checkout.PaymentSession, error)

func (h *CheckoutHandler) start(w http.ResponseWriter, r *http.Request, fn startFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		h.log.Error("checkout cart read failed", "session", sessionID, "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	session, err := fn(h.sessions.Get(sessionID), ctx, cart)
	if err != nil {
		h.respondCheckoutError(w, session, err)
		return
	}
	h.respondSession(w, session)
}

// POST /api/checkout/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var details checkout.Details
	if err := decodeJSON(r, &details); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	session, err := h.sessions.Get(getSessionID(r.Context())).Submit(details)
	if err != nil {
		h.respondCheckoutError(w, session, err)
		return
	}
	h.respondSession(w, session)
}

// POST /api/checkout/complete
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var outcome checkout.Outcome
	if err := decodeJSON(r, &outcome); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sessionID := getSessionID(r.Context())
	session, err := h.sessions.Get(sessionID).Complete(ctx, outcome)
	if err != nil && session.Status == domain.CheckoutStatusSucceeded && !errors.Is(err, checkout.ErrIllegalTransition) {
		// paid; the payment event consumer clears the cart later
		h.log.Error("cart not cleared after payment", "session", sessionID, "err", err)
		err = nil
	}
	if err != nil {
		h.respondCheckoutError(w, session, err)
		return
	}
	h.respondSession(w, session)
}

// DELETE /api/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.sessions.Abandon(getSessionID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) respondSession(w http.ResponseWriter, s checkout.PaymentSession) {
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{PaymentSession: s, ReturnURL: h.returnURL})
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, s checkout.PaymentSession, err error) {
	var (
		validation *checkout.ValidationError
		declined   *checkout.DeclinedError
		rejected   *checkout.BackendRejectedError
	)
	status := string(s.Status)

	switch {
	case errors.As(err, &validation):
		respondErrorDetails(w, http.StatusBadRequest, "validation_failed", validation.Error(), strings.Join(validation.Fields, ","))
	case errors.As(err, &declined):
		respondErrorDetails(w, http.StatusPaymentRequired, "payment_declined", declined.Message, status)
	case errors.As(err, &rejected):
		respondErrorDetails(w, http.StatusUnprocessableEntity, "payment_rejected", rejected.Message, status)
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", checkout.UserMessage(err))
	case errors.Is(err, checkout.ErrPaymentInProgress):
		respondErrorDetails(w, http.StatusConflict, "payment_in_progress", err.Error(), status)
	case errors.Is(err, checkout.ErrAttemptSuperseded):
		respondErrorDetails(w, http.StatusConflict, "checkout_superseded", "your cart changed during checkout, please reload", status)
	case errors.Is(err, checkout.ErrNoClientSecret), errors.Is(err, checkout.ErrIllegalTransition):
		respondErrorDetails(w, http.StatusConflict, "invalid_checkout_state", err.Error(), status)
	case errors.Is(err, checkout.ErrBackendUnavailable), errors.Is(err, context.DeadlineExceeded):
		respondErrorDetails(w, http.StatusServiceUnavailable, "payment_backend_unavailable", checkout.ErrBackendUnavailable.Error(), status)
	default:
		h.log.Error("checkout failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
