package pricing

import (
	"errors"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/shopspring/decimal"
)

const Currency = "eur"

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

type Calculator struct {
	Shipping decimal.Decimal
	TaxRate  decimal.Decimal
}

// Default is the storefront policy: flat 10.00 EUR shipping and 19% VAT.
func Default() Calculator {
	return Calculator{
		Shipping: decimal.NewFromInt(10),
		TaxRate:  decimal.RequireFromString("0.19"),
	}
}

// Totals keep full precision. Use Display or AmountMinor to round.
type Totals struct {
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

type DisplayTotals struct {
	Subtotal   string `json:"subtotal"`
	Shipping   string `json:"shipping"`
	Tax        string `json:"tax"`
	GrandTotal string `json:"grand_total"`
	Currency   string `json:"currency"`
}

func (c Calculator) Calculate(items []domain.CartItem) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, ErrEmptyCart
	}
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	tax := subtotal.Mul(c.TaxRate)
	return Totals{
		Subtotal:   subtotal,
		Shipping:   c.Shipping,
		Tax:        tax,
		GrandTotal: subtotal.Add(c.Shipping).Add(tax),
	}, nil
}

func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		Subtotal:   Round(t.Subtotal).StringFixed(2),
		Shipping:   Round(t.Shipping).StringFixed(2),
		Tax:        Round(t.Tax).StringFixed(2),
		GrandTotal: Round(t.GrandTotal).StringFixed(2),
		Currency:   Currency,
	}
}

// AmountMinor is the grand total in cents, rounded once.
func (t Totals) AmountMinor() int64 {
	return ToMinor(t.GrandTotal)
}

// Round rounds half-up to the currency's minor unit. Amounts are never
// negative so away-from-zero equals half-up here.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func ToMinor(d decimal.Decimal) int64 {
	return Round(d).Shift(2).IntPart()
}
