package medusa

import "github.com/shopspring/decimal"

// Cart mirrors the store API cart payload fields the storefront consumes.
type Cart struct {
	ID            string          `json:"id"`
	CurrencyCode  string          `json:"currency_code"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ItemTotal     decimal.Decimal `json:"item_total"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Promotions    []Promotion     `json:"promotions"`
	Items         []LineItem      `json:"items"`
}

// LineItem is one cart row.
type LineItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Thumbnail string          `json:"thumbnail"`
	Quantity  int             `json:"quantity"`
	VariantID string          `json:"variant_id"`
	ProductID string          `json:"product_id"`
}

// Promotion is an applied promotion on the cart.
type Promotion struct {
	ID                string             `json:"id"`
	Code              string             `json:"code"`
	IsAutomatic       bool               `json:"is_automatic"`
	ApplicationMethod *ApplicationMethod `json:"application_method,omitempty"`
}

// ApplicationMethod carries how a promotion discounts the cart.
type ApplicationMethod struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// FindItem returns the line item with the given id from the cart payload.
func (c *Cart) FindItem(lineItemID string) (LineItem, bool) {
	if c == nil {
		return LineItem{}, false
	}
	for _, item := range c.Items {
		if item.ID == lineItemID {
			return item, true
		}
	}
	return LineItem{}, false
}

// CartResponse wraps store API responses shaped {"cart": {...}}.
type CartResponse struct {
	Cart *Cart `json:"cart"`
}

// DeleteResponse is returned by line item deletion.
type DeleteResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted *bool  `json:"deleted"`
	Parent  *Cart  `json:"parent"`
}
