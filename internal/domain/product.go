package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Slug    string          `json:"slug"`
	Price   decimal.Decimal `json:"price"`
	Image   string          `json:"image,omitempty"`
	Gallery []string        `json:"gallery,omitempty"`
	YouTube string          `json:"youtube,omitempty"`
}

// CartItem builds a line item from the catalog fields a cart keeps.
func (p *Product) CartItem(quantity int) CartItem {
	return CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: quantity,
		Image:    p.Image,
	}
}
