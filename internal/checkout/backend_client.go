package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fjod/soundpack-store/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBody bounds how much of a backend reply is read.
const maxResponseBody = 64 << 10

// IntentRequester obtains a client secret for a payment intent.
type IntentRequester interface {
	RequestIntent(ctx context.Context, req *domain.PaymentIntentRequest) (string, error)
}

// BackendClient calls the payment service's create-payment-intent endpoint.
type BackendClient struct {
	url  string
	http *http.Client
}

func NewBackendClient(url string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		url: url,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *BackendClient) RequestIntent(ctx context.Context, req *domain.PaymentIntentRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal payment intent request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrBackendUnavailable, err)
	}

	var payload domain.PaymentIntentResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 4xx with a message is a validation error the shopper can act on
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && decodeErr == nil && payload.Error != "" {
			return "", &BackendRejectedError{Message: payload.Error}
		}
		return "", fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: malformed body: %v", ErrBackendUnavailable, decodeErr)
	}
	if payload.ClientSecret == "" {
		return "", fmt.Errorf("%w: response carries no client secret", ErrBackendUnavailable)
	}
	return payload.ClientSecret, nil
}
