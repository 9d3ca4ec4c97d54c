package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/fjod/soundpack-store/internal/config"
	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// Stripe limits metadata values to 500 characters.
const maxMetadataValue = 500

var (
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// IntentCreator is the subset of the Stripe payment intent client we use.
type IntentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type IntentService struct {
	intents  IntentCreator
	currency string
	log      *slog.Logger
}

func NewIntentService(secretKey, currency string, log *slog.Logger) (*IntentService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("%w: STRIPE_SECRET_KEY", config.ErrConfigurationMissing)
	}
	client := paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return newIntentService(client, currency, log), nil
}

func newIntentService(intents IntentCreator, currency string, log *slog.Logger) *IntentService {
	return &IntentService{
		intents:  intents,
		currency: strings.ToLower(currency),
		log:      log,
	}
}

// Create validates req and opens a Stripe payment intent for it.
func (s *IntentService) Create(ctx context.Context, req *domain.PaymentIntentRequest) (*stripe.PaymentIntent, error) {
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	minor := pricing.ToMinor(amount)
	if minor <= 0 {
		return nil, ErrInvalidAmount
	}
	if !strings.EqualFold(req.Currency, s.currency) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, req.Currency)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minor),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.SessionID != "" {
		params.AddMetadata("session_id", req.SessionID)
	}
	if req.Fingerprint != "" {
		params.AddMetadata("fingerprint", req.Fingerprint)
	}
	if summary := itemSummary(req.Items); summary != "" {
		params.AddMetadata("items", summary)
	}
	if req.AttemptID != "" {
		params.AddMetadata("attempt_id", req.AttemptID)
	}
	if key := idempotencyKey(req); key != "" {
		params.SetIdempotencyKey(key)
	}

	intent, err := s.intents.New(params)
	if err != nil {
		s.log.Error("create payment intent failed", "amount", minor, "err", err)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	s.log.Info("payment intent created", "intent", intent.ID, "amount", minor, "session", req.SessionID)
	return intent, nil
}

// idempotencyKey dedupes retries of one checkout attempt. Without an
// attempt id a repeat purchase of the same cart would replay the earlier
// intent, so no key is set.
func idempotencyKey(req *domain.PaymentIntentRequest) string {
	if req.SessionID == "" || req.Fingerprint == "" || req.AttemptID == "" {
		return ""
	}
	return fmt.Sprintf("pi-%s-%s-%s", req.SessionID, req.Fingerprint, req.AttemptID)
}

func itemSummary(items []domain.CartSnapshotItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.ID, it.Quantity))
	}
	return truncateUTF8(strings.Join(parts, ", "), maxMetadataValue)
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
