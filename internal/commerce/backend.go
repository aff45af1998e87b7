// Package commerce defines the cart contract the storefront consumes from
// the commerce backend and binds it to the Medusa store API.
package commerce

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/medusa"
)

type (
	Cart      = medusa.Cart
	LineItem  = medusa.LineItem
	Promotion = medusa.Promotion
)

// RemovalOutcome tags whether the backend confirmed a line item deletion.
type RemovalOutcome int

const (
	RemovalUnconfirmed RemovalOutcome = iota
	RemovalConfirmed
)

func (o RemovalOutcome) String() string {
	if o == RemovalConfirmed {
		return "confirmed"
	}
	return "unconfirmed"
}

// Removal is the result of RemoveLineItem. Cart is set only when the backend
// returned the parent cart alongside the deletion.
type Removal struct {
	Outcome RemovalOutcome
	Cart    *Cart
}

// Backend is the cart surface of the commerce system. A nil cart with a nil
// error means the backend has no cart for the session.
type Backend interface {
	GetCart(ctx context.Context) (*Cart, error)
	AddToCart(ctx context.Context, variantID string, quantity int) (*Cart, error)
	UpdateLineItem(ctx context.Context, lineItemID string, quantity int) (*Cart, error)
	RemoveLineItem(ctx context.Context, lineItemID string) (Removal, error)
}
