package controllers

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/inventory"
)

type AddItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,max=128,excludesall=/?#"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=1000"`
}

type ChangeQuantityRequest struct {
	CurrentQuantity int `json:"current_quantity" validate:"gte=0,lte=1000"`
}

type AvailabilityRequest struct {
	Stock map[string]int `json:"stock" validate:"required,min=1,max=200,dive,keys,required,max=128,endkeys,gte=0"`
}

type CartResponse struct {
	OK           bool            `json:"ok"`
	Reason       cart.Reason     `json:"reason,omitempty"`
	Cart         cart.State      `json:"cart"`
	DisplayTotal decimal.Decimal `json:"display_total"`
}

type VariantInventoryResponse struct {
	VariantID string `json:"variant_id"`
	Original  int    `json:"original"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

type InventoryResponse struct {
	Adjustments inventory.Adjustments `json:"adjustments"`
	Revision    uint64                `json:"revision"`
}

type AvailabilityResponse struct {
	Variants  map[string]int `json:"variants"`
	Available int            `json:"available"`
}

func newCartResponse(res cart.Result, store *cart.Store) CartResponse {
	return CartResponse{
		OK:           res.OK,
		Reason:       res.Reason,
		Cart:         res.State,
		DisplayTotal: store.DisplayTotal(),
	}
}

func newInventoryResponse(store *inventory.Store) InventoryResponse {
	return InventoryResponse{
		Adjustments: store.Snapshot(),
		Revision:    store.Revision(),
	}
}
