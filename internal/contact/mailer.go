package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/fjod/soundpack-store/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

var ErrDeliveryFailed = errors.New("message could not be delivered, please try again later")

type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ValidationError lists the fields of a Message that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or invalid required fields: %s", strings.Join(e.Fields, ", "))
}

func (m Message) Validate() error {
	var invalid []string
	if strings.TrimSpace(m.Name) == "" {
		invalid = append(invalid, "name")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(m.Email)); err != nil {
		invalid = append(invalid, "email")
	}
	if strings.TrimSpace(m.Subject) == "" {
		invalid = append(invalid, "subject")
	}
	if strings.TrimSpace(m.Message) == "" {
		invalid = append(invalid, "message")
	}
	if len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}
	return nil
}

type Config struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Recipient  string
	Endpoint   string
}

// Mailer relays contact form messages through the EmailJS REST API.
type Mailer struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func NewMailer(cfg Config, httpClient *http.Client, log *slog.Logger) (*Mailer, error) {
	var missing []string
	if cfg.ServiceID == "" {
		missing = append(missing, "EMAILJS_SERVICE_ID")
	}
	if cfg.TemplateID == "" {
		missing = append(missing, "EMAILJS_TEMPLATE_ID")
	}
	if cfg.PublicKey == "" {
		missing = append(missing, "EMAILJS_PUBLIC_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Mailer{cfg: cfg, http: httpClient, log: log}, nil
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	params := map[string]string{
		"from_name":  strings.TrimSpace(msg.Name),
		"from_email": strings.TrimSpace(msg.Email),
		"reply_to":   strings.TrimSpace(msg.Email),
		"subject":    strings.TrimSpace(msg.Subject),
		"message":    msg.Message,
	}
	if m.cfg.Recipient != "" {
		params["to_email"] = m.cfg.Recipient
	}
	body, err := json.Marshal(sendRequest{
		ServiceID:      m.cfg.ServiceID,
		TemplateID:     m.cfg.TemplateID,
		UserID:         m.cfg.PublicKey,
		AccessToken:    m.cfg.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		m.log.Error("contact message delivery failed", "err", err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		m.log.Error("contact message rejected", "status", resp.StatusCode, "reason", string(reason))
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	m.log.Info("contact message sent", "subject", params["subject"])
	return nil
}
