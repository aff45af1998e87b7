package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/inventory"
	"github.com/angelmondragon/storefront/internal/persist"
	"github.com/angelmondragon/storefront/pkg/medusa"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	cart      *commerce.Cart
	removal   commerce.Removal
	err       error
	getCalls  int
	updateQty []int
}

func (f *fakeBackend) GetCart(context.Context) (*commerce.Cart, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.cart, nil
}

func (f *fakeBackend) AddToCart(_ context.Context, variantID string, quantity int) (*commerce.Cart, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cart == nil {
		return nil, nil
	}
	f.cart.Items = append(f.cart.Items, medusa.LineItem{
		ID:        "li_" + variantID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: decimal.NewFromInt(500),
	})
	return f.cart, nil
}

func (f *fakeBackend) UpdateLineItem(_ context.Context, lineItemID string, quantity int) (*commerce.Cart, error) {
	f.updateQty = append(f.updateQty, quantity)
	if f.err != nil {
		return nil, f.err
	}
	if f.cart == nil {
		return nil, nil
	}
	for i := range f.cart.Items {
		if f.cart.Items[i].ID == lineItemID {
			f.cart.Items[i].Quantity = quantity
		}
	}
	return f.cart, nil
}

func (f *fakeBackend) RemoveLineItem(_ context.Context, lineItemID string) (commerce.Removal, error) {
	if f.err != nil {
		return commerce.Removal{}, f.err
	}
	if f.removal.Outcome == commerce.RemovalConfirmed && f.cart != nil {
		kept := f.cart.Items[:0]
		for _, item := range f.cart.Items {
			if item.ID != lineItemID {
				kept = append(kept, item)
			}
		}
		f.cart.Items = kept
	}
	return f.removal, nil
}

func backendCart() *commerce.Cart {
	return &commerce.Cart{
		ID:            "cart_1",
		CurrencyCode:  "npr",
		Subtotal:      decimal.NewFromInt(1500),
		ShippingTotal: decimal.NewFromInt(100),
		TaxTotal:      decimal.NewFromInt(50),
		Total:         decimal.NewFromInt(1650),
		Items: []medusa.LineItem{
			{ID: "li_1", Title: "Topi", UnitPrice: decimal.NewFromInt(750), Quantity: 2, VariantID: "v1", ProductID: "p1"},
			{ID: "li_gift", Title: "Gift wrap", UnitPrice: decimal.Zero, Quantity: 1},
		},
	}
}

func newTestStore(backend commerce.Backend, opts ...Option) (*Store, *inventory.Store) {
	inv := inventory.NewStore()
	return NewStore(backend, inv, opts...), inv
}

func TestFetchCartReplacesStateAndSyncs(t *testing.T) {
	ctx := context.Background()
	store, inv := newTestStore(&fakeBackend{cart: backendCart()})
	inv.DecreaseInventory("stale", 3)

	res, err := store.FetchCart(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "cart_1", res.State.CartID)
	require.Len(t, res.State.Items, 2)
	assert.True(t, res.State.Summary.Synced)
	assert.Equal(t, inventory.Adjustments{"v1": 2}, inv.Snapshot())
}

func TestFetchCartNoCartLeavesState(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{cart: backendCart()}
	store, inv := newTestStore(backend)
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)

	backend.cart = nil
	res, err := store.FetchCart(ctx)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonNoCart, res.Reason)
	assert.Len(t, store.Snapshot().Items, 2)
	assert.Equal(t, 2, inv.Adjustment("v1"))
}

func TestFetchCartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, inv := newTestStore(&fakeBackend{cart: backendCart()})

	_, err := store.FetchCart(ctx)
	require.NoError(t, err)
	firstState, firstAdj := store.Snapshot(), inv.Snapshot()

	_, err = store.FetchCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstState, store.Snapshot())
	assert.Equal(t, firstAdj, inv.Snapshot())
}

func TestAddReservesQuantity(t *testing.T) {
	ctx := context.Background()
	store, inv := newTestStore(&fakeBackend{cart: backendCart()})

	res, err := store.Add(ctx, "v9", 3)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 3, inv.Adjustment("v9"))
	assert.Equal(t, 7, inv.GetAdjustedInventory("v9", 10))

	_, err = store.Add(ctx, "v8", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Adjustment("v8"))
}

func TestAddWithoutCartIsNoop(t *testing.T) {
	store, inv := newTestStore(&fakeBackend{})
	res, err := store.Add(context.Background(), "v1", 2)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonNoCart, res.Reason)
	assert.Empty(t, inv.Snapshot())
}

func TestIncreaseUsesBackendVariant(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{cart: backendCart()}
	store, inv := newTestStore(backend)

	res, err := store.Increase(ctx, "li_1", 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonNone, res.Reason)
	assert.Equal(t, []int{3}, backend.updateQty)
	assert.Equal(t, 1, inv.Adjustment("v1"))
}

func TestIncreaseMissingLineItem(t *testing.T) {
	store, inv := newTestStore(&fakeBackend{cart: backendCart()})
	res, err := store.Increase(context.Background(), "li_unknown", 1)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, ReasonLineItemNotFound, res.Reason)
	assert.Empty(t, inv.Snapshot())
}

func TestDecreaseAboveOneReleasesUnit(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{cart: backendCart()}
	store, inv := newTestStore(backend)
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)

	res, err := store.Decrease(ctx, "li_1", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, backend.updateQty)
	assert.Equal(t, 1, res.State.Items[0].Quantity)
	assert.Equal(t, 1, inv.Adjustment("v1"))
}

func TestDecreaseConfirmedRemovalRefetches(t *testing.T) {
	ctx := context.Background()
	cart := backendCart()
	cart.Items[0].Quantity = 1
	backend := &fakeBackend{cart: cart, removal: commerce.Removal{Outcome: commerce.RemovalConfirmed}}
	store, inv := newTestStore(backend)
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)
	inv.DecreaseInventory("v1", 4)

	res, err := store.Decrease(ctx, "li_1", 1)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, ReasonNone, res.Reason)
	assert.Equal(t, 2, backend.getCalls)
	require.Len(t, res.State.Items, 1)
	assert.Equal(t, "li_gift", res.State.Items[0].ID)
	// synced from the refetched cart, not decremented by one
	assert.Empty(t, inv.Snapshot())
}

func TestConfirmedRemovalCountsAsRemove(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	cart := backendCart()
	cart.Items[0].Quantity = 1
	backend := &fakeBackend{cart: cart, removal: commerce.Removal{Outcome: commerce.RemovalConfirmed}}
	store, _ := newTestStore(backend, WithMetrics(metrics.NewCartMetrics(reg)))

	_, err := store.FetchCart(ctx)
	require.NoError(t, err)
	_, err = store.Decrease(ctx, "li_1", 1)
	require.NoError(t, err)

	assert.Equal(t, float64(1), operationCount(t, reg, "fetch", "ok"))
	assert.Equal(t, float64(1), operationCount(t, reg, "remove", "ok"))
}

func operationCount(t *testing.T, reg *prometheus.Registry, op, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "storefront_cart_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["op"] == op && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestDecreaseUnconfirmedRemovalFallsBack(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{cart: backendCart(), removal: commerce.Removal{Outcome: commerce.RemovalUnconfirmed}}
	store, inv := newTestStore(backend)
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)

	res, err := store.Decrease(ctx, "li_1", 1)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, ReasonRemovalUnconfirmed, res.Reason)
	assert.Equal(t, 1, backend.getCalls)
	require.Len(t, res.State.Items, 1)
	assert.Equal(t, "li_gift", res.State.Items[0].ID)
	assert.Equal(t, 1, inv.Adjustment("v1"))
}

func TestBackendErrorLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{cart: backendCart()}
	store, inv := newTestStore(backend)
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)
	before, beforeAdj := store.Snapshot(), inv.Snapshot()

	backend.err = errors.New("upstream down")
	_, err = store.Add(ctx, "v2", 1)
	assert.Error(t, err)
	_, err = store.Decrease(ctx, "li_1", 1)
	assert.Error(t, err)

	assert.Equal(t, before, store.Snapshot())
	assert.Equal(t, beforeAdj, inv.Snapshot())
}

func TestClearLocalKeepsInventoryByDefault(t *testing.T) {
	ctx := context.Background()
	store, inv := newTestStore(&fakeBackend{cart: backendCart()})
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)

	res := store.ClearLocal()
	assert.Empty(t, res.State.Items)
	assert.False(t, res.State.Summary.Synced)
	assert.Equal(t, 2, inv.Adjustment("v1"))
}

func TestClearLocalCanResetInventory(t *testing.T) {
	ctx := context.Background()
	store, inv := newTestStore(&fakeBackend{cart: backendCart()}, WithClearResetsInventory(true))
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)

	store.ClearLocal()
	assert.Empty(t, inv.Snapshot())
}

func TestDisplayTotal(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(&fakeBackend{cart: backendCart()})
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)
	assert.True(t, store.DisplayTotal().Equal(decimal.NewFromInt(1650)))

	local := State{
		Items: []Item{{Price: decimal.NewFromInt(200), Quantity: 3}},
		Summary: Summary{
			TaxTotal:      decimal.NewFromInt(10),
			DeliveryFee:   decimal.NewFromInt(50),
			DiscountTotal: decimal.NewFromInt(60),
		},
	}
	assert.True(t, localTotal(local).Equal(decimal.NewFromInt(600)))
}

func TestMapBackendCart(t *testing.T) {
	c := backendCart()
	c.Subtotal = decimal.Zero
	c.ItemTotal = decimal.NewFromInt(1500)
	c.Promotions = []medusa.Promotion{{
		ID:                "promo_1",
		Code:              "DASHAIN",
		ApplicationMethod: &medusa.ApplicationMethod{Type: "percentage", Value: decimal.NewFromInt(10)},
	}}

	state := MapBackendCart(c)
	assert.True(t, state.Summary.Subtotal.Equal(decimal.NewFromInt(1500)))
	assert.True(t, state.Summary.DeliveryFee.Equal(decimal.NewFromInt(100)))
	assert.True(t, state.Summary.ServiceFee.IsZero())
	assert.Equal(t, "npr", state.Summary.Currency)
	require.Len(t, state.Summary.Promotions, 1)
	assert.Equal(t, "percentage", state.Summary.Promotions[0].Type)
	assert.Equal(t, "https://cdn/topi.png", MapBackendCart(&commerce.Cart{Items: []medusa.LineItem{{Thumbnail: "https://cdn/topi.png"}}}).Items[0].Image)
	assert.Empty(t, MapBackendCart(nil).Items)
}

func TestFlushAndHydrate(t *testing.T) {
	ctx := context.Background()
	scoped := persist.NewScoped(persist.NewMemoryStorage(), "sess-1")
	store, _ := newTestStore(&fakeBackend{cart: backendCart()}, WithPersister(scoped))
	_, err := store.FetchCart(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Flush(ctx))

	restored, _ := newTestStore(&fakeBackend{}, WithPersister(scoped))
	require.NoError(t, restored.Hydrate(ctx))
	got := restored.Snapshot()
	assert.Equal(t, "cart_1", got.CartID)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Summary.TotalPayable.Equal(decimal.NewFromInt(1650)))
	assert.True(t, restored.DisplayTotal().Equal(decimal.NewFromInt(1650)))
}
