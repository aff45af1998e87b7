// Package cart mirrors the commerce backend cart for one shopper session and
// keeps the inventory reservation layer in step with it.
package cart

import (
	"context"

	"github.com/angelmondragon/storefront/internal/inventory"
	"github.com/shopspring/decimal"
)

type Item struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	VariantID string          `json:"variant_id"`
	ProductID string          `json:"product_id"`
}

type Promotion struct {
	Code        string          `json:"code"`
	ID          string          `json:"id"`
	Value       decimal.Decimal `json:"value"`
	Type        string          `json:"type"`
	IsAutomatic bool            `json:"is_automatic"`
}

// Summary holds the monetary totals last reported by the backend. Synced is
// false until the first backend cart has been applied.
type Summary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	ServiceFee    decimal.Decimal `json:"service_fee"`
	TotalPayable  decimal.Decimal `json:"total_payable"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Currency      string          `json:"currency"`
	Promotions    []Promotion     `json:"promotions"`
	Synced        bool            `json:"synced"`
}

type State struct {
	CartID  string  `json:"cart_id,omitempty"`
	Items   []Item  `json:"items"`
	Summary Summary `json:"summary"`
}

// Reason explains why an operation did less than a full update.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNoCart             Reason = "no_cart"
	ReasonRemovalUnconfirmed Reason = "removal_unconfirmed"
	ReasonLineItemNotFound   Reason = "line_item_not_found"
)

// Result is returned by every cart operation. OK is false only when the
// backend returned no cart and local state was left unchanged.
type Result struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
	State  State  `json:"cart"`
}

// InventoryAdjuster is the part of the inventory store the cart drives.
type InventoryAdjuster interface {
	DecreaseInventory(variantID string, quantity int)
	IncreaseInventory(variantID string, quantity int)
	SyncWithCart(lines []inventory.CartLine)
	ResetAdjustments()
}

// Persister is the slice of session storage the cart writes through.
type Persister interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, value []byte) error
}
