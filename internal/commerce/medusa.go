package commerce

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/medusa"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// StoreAPI is the subset of the Medusa client used by MedusaBackend.
type StoreAPI interface {
	CreateCart(ctx context.Context, regionID string) (*medusa.Cart, error)
	GetCart(ctx context.Context, cartID string) (*medusa.Cart, error)
	AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (*medusa.Cart, error)
	UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int) (*medusa.Cart, error)
	DeleteLineItem(ctx context.Context, cartID, lineItemID string) (*medusa.DeleteResponse, error)
}

// MedusaBackend implements Backend for one session on top of the store API.
type MedusaBackend struct {
	api      StoreAPI
	ids      CartIDStore
	regionID string
	metrics  *metrics.CartMetrics
	logg     *logger.Logger
}

type BackendOption func(*MedusaBackend)

// WithRegion creates new carts in the given region.
func WithRegion(regionID string) BackendOption {
	return func(b *MedusaBackend) {
		b.regionID = regionID
	}
}

func WithBackendMetrics(m *metrics.CartMetrics) BackendOption {
	return func(b *MedusaBackend) {
		b.metrics = m
	}
}

func WithBackendLogger(logg *logger.Logger) BackendOption {
	return func(b *MedusaBackend) {
		if logg != nil {
			b.logg = logg
		}
	}
}

func NewMedusaBackend(api StoreAPI, ids CartIDStore, opts ...BackendOption) *MedusaBackend {
	b := &MedusaBackend{api: api, ids: ids, logg: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// GetCart returns the session cart, or nil when none exists. A cart id the
// backend no longer knows is forgotten.
func (b *MedusaBackend) GetCart(ctx context.Context) (*Cart, error) {
	cartID, err := b.ids.CartID(ctx)
	if err != nil || cartID == "" {
		return nil, err
	}
	start := time.Now()
	cart, err := b.api.GetCart(ctx, cartID)
	b.metrics.ObserveBackend("get_cart", time.Since(start))
	if err != nil {
		return nil, err
	}
	if cart == nil {
		b.logg.Warn(b.logg.WithCartID(ctx, cartID), "backend cart no longer exists")
		if err := b.ids.ClearCartID(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	b.touch(ctx, cartID)
	return cart, nil
}

// AddToCart adds a variant, creating the session cart first if needed.
func (b *MedusaBackend) AddToCart(ctx context.Context, variantID string, quantity int) (*Cart, error) {
	cartID, err := b.ensureCart(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	cart, err := b.api.AddLineItem(ctx, cartID, variantID, quantity)
	b.metrics.ObserveBackend("add_line_item", time.Since(start))
	if err != nil {
		return nil, err
	}
	b.touch(ctx, cartID)
	return cart, nil
}

func (b *MedusaBackend) UpdateLineItem(ctx context.Context, lineItemID string, quantity int) (*Cart, error) {
	cartID, err := b.ids.CartID(ctx)
	if err != nil || cartID == "" {
		return nil, err
	}
	start := time.Now()
	cart, err := b.api.UpdateLineItem(ctx, cartID, lineItemID, quantity)
	b.metrics.ObserveBackend("update_line_item", time.Since(start))
	if err != nil {
		return nil, err
	}
	b.touch(ctx, cartID)
	return cart, nil
}

// RemoveLineItem deletes a line. Only an explicit deleted=true from the
// backend counts as confirmed.
func (b *MedusaBackend) RemoveLineItem(ctx context.Context, lineItemID string) (Removal, error) {
	cartID, err := b.ids.CartID(ctx)
	if err != nil || cartID == "" {
		return Removal{Outcome: RemovalUnconfirmed}, err
	}
	start := time.Now()
	resp, err := b.api.DeleteLineItem(ctx, cartID, lineItemID)
	b.metrics.ObserveBackend("delete_line_item", time.Since(start))
	if err != nil {
		return Removal{}, err
	}
	b.touch(ctx, cartID)
	if resp == nil || resp.Deleted == nil || !*resp.Deleted {
		return Removal{Outcome: RemovalUnconfirmed}, nil
	}
	return Removal{Outcome: RemovalConfirmed, Cart: resp.Parent}, nil
}

func (b *MedusaBackend) ensureCart(ctx context.Context) (string, error) {
	cartID, err := b.ids.CartID(ctx)
	if err != nil {
		return "", err
	}
	if cartID != "" {
		return cartID, nil
	}

	start := time.Now()
	cart, err := b.api.CreateCart(ctx, b.regionID)
	b.metrics.ObserveBackend("create_cart", time.Since(start))
	if err != nil {
		return "", err
	}
	if err := b.ids.SetCartID(ctx, cart.ID); err != nil {
		return "", err
	}
	b.logg.Info(b.logg.WithCartID(ctx, cart.ID), "created backend cart")
	return cart.ID, nil
}

// touch re-saves the cart id so it expires with the rest of the session
// state instead of at a fixed age.
func (b *MedusaBackend) touch(ctx context.Context, cartID string) {
	if err := b.ids.SetCartID(ctx, cartID); err != nil {
		b.logg.Warn(b.logg.WithCartID(ctx, cartID), "cart id could not be refreshed")
	}
}
