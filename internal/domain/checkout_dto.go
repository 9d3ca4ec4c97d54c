package domain

import "encoding/json"

// PaymentIntentRequest is the body accepted by the payment backend.
// Amount is a decimal number in major units, e.g. 129.00.
// AttemptID is minted once per checkout attempt and reused when the same
// request is retried, so it can key idempotent intent creation.
type PaymentIntentRequest struct {
	Amount      json.Number        `json:"amount"`
	Currency    string             `json:"currency"`
	Items       []CartSnapshotItem `json:"items"`
	SessionID   string             `json:"session_id,omitempty"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	AttemptID   string             `json:"attempt_id,omitempty"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret,omitempty"`
	Error        string `json:"error,omitempty"`
}
