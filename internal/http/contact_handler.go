package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/soundpack-store/internal/contact"
)

type contactSender interface {
	Send(ctx context.Context, msg contact.Message) error
}

type ContactHandler struct {
	mailer  contactSender
	timeout time.Duration
	log     *slog.Logger
}

func NewContactHandler(mailer contactSender, timeout time.Duration, log *slog.Logger) *ContactHandler {
	return &ContactHandler{
		mailer:  mailer,
		timeout: timeout,
		log:     log,
	}
}

// POST /api/contact
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var msg contact.Message
	if err := decodeJSON(r, &msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	err := h.mailer.Send(ctx, msg)
	var validation *contact.ValidationError
	switch {
	case err == nil:
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	case errors.As(err, &validation):
		respondErrorDetails(w, http.StatusBadRequest, "validation_failed", validation.Error(), strings.Join(validation.Fields, ","))
	case errors.Is(err, contact.ErrDeliveryFailed):
		respondError(w, http.StatusBadGateway, "delivery_failed", contact.ErrDeliveryFailed.Error())
	default:
		h.log.Error("contact message failed", "err", err, "request_id", getRequestID(r.Context()))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
