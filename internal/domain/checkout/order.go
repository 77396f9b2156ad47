package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

// BuildOrder assembles the gateway payload from the current line items and
// the captured customer data.
func BuildOrder(reference string, items []cart.LineItem, customer CustomerData, currency string) *Order {
	o := &Order{
		Reference: reference,
		Items:     make([]OrderItem, len(items)),
		Payer: Payer{
			Name:     customer.Name,
			Email:    customer.Email,
			Phone:    SplitPhone(customer.Phone),
			Document: digits(customer.Document),
		},
		Notes: customer.Notes,
		Total: decimal.Zero,
	}
	for i, it := range items {
		o.Items[i] = OrderItem{
			ID:          it.ID,
			Title:       it.Title,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Description: it.Description,
			PictureURL:  it.Image,
			CurrencyID:  currency,
		}
		o.Total = o.Total.Add(it.Total())
	}
	return o
}
