package payment

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/soundpack-store/internal/config"
	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBody = 65536

// WebhookHandler verifies Stripe deliveries and forwards payment outcomes.
type WebhookHandler struct {
	secret    string
	publisher EventPublisher
	log       *slog.Logger
}

// NewWebhookHandler fails without a signing secret. publisher may be nil.
func NewWebhookHandler(secret string, publisher EventPublisher, log *slog.Logger) (*WebhookHandler, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET", config.ErrConfigurationMissing)
	}
	return &WebhookHandler{
		secret:    secret,
		publisher: publisher,
		log:       log,
	}, nil
}

// POST /api/webhooks
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.log.Warn("webhook body read failed", "err", err)
		respondError(w, http.StatusBadRequest, "Webhook error")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.log.Warn("webhook signature verification failed", "err", err)
		respondError(w, http.StatusBadRequest, "Webhook error")
		return
	}

	switch string(event.Type) {
	case domain.PaymentEventSucceeded, domain.PaymentEventFailed:
		h.handleIntentEvent(r, &event)
	default:
		h.log.Info("unhandled webhook event", "type", event.Type, "event", event.ID)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) handleIntentEvent(r *http.Request, event *stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		h.log.Error("webhook payment intent decode failed", "event", event.ID, "err", err)
		return
	}

	pe := &domain.PaymentEvent{
		Type:        string(event.Type),
		EventID:     event.ID,
		IntentID:    intent.ID,
		SessionID:   intent.Metadata["session_id"],
		Fingerprint: intent.Metadata["fingerprint"],
		AmountMinor: intent.Amount,
		Currency:    string(intent.Currency),
		OccurredAt:  time.Unix(event.Created, 0).UTC(),
	}
	if intent.LastPaymentError != nil {
		pe.FailureMessage = intent.LastPaymentError.Msg
	}

	if pe.Type == domain.PaymentEventSucceeded {
		h.log.Info("payment succeeded", "intent", pe.IntentID, "amount", pe.AmountMinor, "session", pe.SessionID)
	} else {
		h.log.Warn("payment failed", "intent", pe.IntentID, "reason", pe.FailureMessage, "session", pe.SessionID)
	}

	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(r.Context(), pe); err != nil {
		h.log.Error("publish payment event failed", "event", event.ID, "err", err)
	}
}
