package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartSnapshotItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartSnapshot represents the cart state at checkout time
type CartSnapshot struct {
	SessionID   string             `json:"session_id"`
	Fingerprint string             `json:"fingerprint"`
	Items       []CartSnapshotItem `json:"items"`
	CapturedAt  time.Time          `json:"captured_at"`
}

func NewCartSnapshot(c *Cart) *CartSnapshot {
	snapshot := &CartSnapshot{
		SessionID:   c.SessionID,
		Fingerprint: c.Fingerprint(),
		Items:       make([]CartSnapshotItem, 0, len(c.Items)),
		CapturedAt:  time.Now(),
	}
	for _, item := range c.Items {
		snapshot.Items = append(snapshot.Items, CartSnapshotItem{
			ID:        item.ID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Subtotal:  item.Subtotal(),
		})
	}
	return snapshot
}
