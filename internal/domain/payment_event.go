package domain

import "time"

const (
	PaymentEventSucceeded = "payment_intent.succeeded"
	PaymentEventFailed    = "payment_intent.payment_failed"
)

// PaymentEvent is published to the payment-events topic for every verified
// payment webhook we act on.
type PaymentEvent struct {
	Type           string    `json:"type"`
	EventID        string    `json:"event_id"`
	IntentID       string    `json:"intent_id"`
	SessionID      string    `json:"session_id,omitempty"`
	Fingerprint    string    `json:"fingerprint,omitempty"`
	AmountMinor    int64     `json:"amount_minor"`
	Currency       string    `json:"currency"`
	FailureMessage string    `json:"failure_message,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
