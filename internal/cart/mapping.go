package cart

import (
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/inventory"
	"github.com/shopspring/decimal"
)

// MapBackendCart converts a backend cart into local state.
func MapBackendCart(c *commerce.Cart) State {
	if c == nil {
		return State{Items: []Item{}}
	}

	items := make([]Item, 0, len(c.Items))
	for _, li := range c.Items {
		items = append(items, Item{
			ID:        li.ID,
			Title:     li.Title,
			Price:     li.UnitPrice,
			Image:     li.Thumbnail,
			Quantity:  li.Quantity,
			VariantID: li.VariantID,
			ProductID: li.ProductID,
		})
	}

	promotions := make([]Promotion, 0, len(c.Promotions))
	for _, p := range c.Promotions {
		promo := Promotion{Code: p.Code, ID: p.ID, IsAutomatic: p.IsAutomatic}
		if p.ApplicationMethod != nil {
			promo.Value = p.ApplicationMethod.Value
			promo.Type = p.ApplicationMethod.Type
		}
		promotions = append(promotions, promo)
	}

	subtotal := c.Subtotal
	if subtotal.IsZero() {
		subtotal = c.ItemTotal
	}

	return State{
		CartID: c.ID,
		Items:  items,
		Summary: Summary{
			Subtotal:      subtotal,
			TaxTotal:      c.TaxTotal,
			DeliveryFee:   c.ShippingTotal,
			ServiceFee:    decimal.Zero,
			TotalPayable:  c.Total,
			DiscountTotal: c.DiscountTotal,
			Currency:      c.CurrencyCode,
			Promotions:    promotions,
			Synced:        true,
		},
	}
}

// cartLines returns the variant/quantity pairs of items that carry a variant.
func cartLines(items []Item) []inventory.CartLine {
	lines := make([]inventory.CartLine, 0, len(items))
	for _, item := range items {
		if item.VariantID == "" {
			continue
		}
		lines = append(lines, inventory.CartLine{VariantID: item.VariantID, Quantity: item.Quantity})
	}
	return lines
}

// localTotal is the display fallback used before the backend has reported a
// total.
func localTotal(s State) decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.
		Add(s.Summary.TaxTotal).
		Add(s.Summary.DeliveryFee).
		Add(s.Summary.ServiceFee).
		Sub(s.Summary.DiscountTotal)
}
