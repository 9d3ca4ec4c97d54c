package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stripe/stripe-go/v82"
)

const maxRequestBody = 1 << 20

type intentCreator interface {
	Create(ctx context.Context, req *domain.PaymentIntentRequest) (*stripe.PaymentIntent, error)
}

type IntentHandler struct {
	intents intentCreator
	timeout time.Duration
	log     *slog.Logger
}

func NewIntentHandler(intents intentCreator, timeout time.Duration, log *slog.Logger) *IntentHandler {
	return &IntentHandler{
		intents: intents,
		timeout: timeout,
		log:     log,
	}
}

// POST /api/create-payment-intent
func (h *IntentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.PaymentIntentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	intent, err := h.intents.Create(ctx, &req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.PaymentIntentResponse{ClientSecret: intent.ClientSecret})
}

func (h *IntentHandler) handleError(w http.ResponseWriter, err error) {
	var stripeErr *stripe.Error
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrUnsupportedCurrency):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 && stripeErr.Msg != "":
		respondError(w, http.StatusBadRequest, stripeErr.Msg)
	default:
		respondError(w, http.StatusInternalServerError, "Failed to create payment intent")
	}
}

// NewRouter wires the payment service endpoints.
func NewRouter(intents *IntentHandler, webhooks *WebhookHandler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/create-payment-intent", intents.CreatePaymentIntent)
		r.Post("/webhooks", webhooks.ServeHTTP)
	})
	return r
}
