package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/soundpack-store/internal/pricing"
)

var (
	ErrEmptyCart          = pricing.ErrEmptyCart
	ErrBackendUnavailable = errors.New("payment service is unavailable, please try again")
	ErrIllegalTransition  = errors.New("illegal transition of checkout status")
	ErrNoClientSecret     = errors.New("payment session has no client secret")
	ErrPaymentInProgress  = errors.New("a payment is being confirmed for this checkout")
	ErrAttemptSuperseded  = errors.New("payment intent response arrived for an abandoned attempt")
)

// ValidationError lists missing or malformed checkout fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid required fields: %s", strings.Join(e.Fields, ", "))
}

// DeclinedError carries the processor's message for a declined payment.
type DeclinedError struct {
	Message string
}

func (e *DeclinedError) Error() string {
	return e.Message
}

// BackendRejectedError is a validation error reported by the payment backend.
type BackendRejectedError struct {
	Message string
}

func (e *BackendRejectedError) Error() string {
	return e.Message
}

// UserMessage is the text shown to the shopper for err.
func UserMessage(err error) string {
	var (
		validation *ValidationError
		declined   *DeclinedError
		rejected   *BackendRejectedError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &declined):
		return declined.Message
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty."
	default:
		return ErrBackendUnavailable.Error()
	}
}
