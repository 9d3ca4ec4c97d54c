package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/segmentio/kafka-go"
)

const retryBackoff = time.Second

// CartClearer is satisfied by the cart service.
type CartClearer interface {
	ClearIfUnchanged(ctx context.Context, sessionID, fingerprint string) (bool, error)
}

// Poller consumes payment events and clears carts that were paid for
// outside the browser flow, e.g. when the shopper closed the tab before
// returning from the hosted payment page.
type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	log    *slog.Logger
}

func NewPoller(carts CartClearer, log *slog.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "storefront-cart-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			p.log.Error("error reading payment event", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
			continue
		}
		if err := p.handle(ctx, m.Value); err != nil {
			p.log.Warn("payment event skipped", "offset", m.Offset, "err", err)
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error("error closing reader", "err", err)
	}
}

func (p *Poller) handle(ctx context.Context, value []byte) error {
	var event domain.PaymentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("parse payment event: %w", err)
	}
	if event.Type != domain.PaymentEventSucceeded {
		return nil
	}
	if event.SessionID == "" || event.Fingerprint == "" {
		return fmt.Errorf("payment event %s has no session metadata", event.EventID)
	}

	cleared, err := p.carts.ClearIfUnchanged(ctx, event.SessionID, event.Fingerprint)
	if err != nil {
		return fmt.Errorf("clear cart for %s: %w", event.SessionID, err)
	}
	p.log.Info("payment event processed", "intent", event.IntentID, "session", event.SessionID, "cleared", cleared)
	return nil
}
