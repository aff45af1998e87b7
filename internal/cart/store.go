package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/persist"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Store is the local mirror of one session's backend cart. Backend calls run
// outside the lock; the last response to arrive replaces the state.
type Store struct {
	backend   commerce.Backend
	inventory InventoryAdjuster

	mu    sync.Mutex
	state State
	dirty bool

	persister            Persister
	clearResetsInventory bool
	metrics              *metrics.CartMetrics
	logg                 *logger.Logger
}

type Option func(*Store)

// WithClearResetsInventory makes ClearLocal also drop inventory adjustments.
func WithClearResetsInventory(enabled bool) Option {
	return func(s *Store) {
		s.clearResetsInventory = enabled
	}
}

func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

func WithMetrics(m *metrics.CartMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(s *Store) {
		if logg != nil {
			s.logg = logg
		}
	}
}

func NewStore(backend commerce.Backend, inv InventoryAdjuster, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		inventory: inv,
		state:     State{Items: []Item{}},
		logg:      logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// FetchCart replaces local state with the backend cart and resyncs inventory
// adjustments from it.
func (s *Store) FetchCart(ctx context.Context) (Result, error) {
	return s.resync(ctx, "fetch")
}

func (s *Store) resync(ctx context.Context, op string) (Result, error) {
	cart, err := s.backend.GetCart(ctx)
	if err != nil {
		return s.fail(ctx, op, err)
	}
	if cart == nil {
		return s.noCart(op), nil
	}
	next := s.replace(cart)
	s.inventory.SyncWithCart(cartLines(next.Items))
	s.metrics.IncResync()
	return s.done(op, ReasonNone, next), nil
}

// Add puts quantity units of a variant in the cart and reserves them.
// Non-positive quantities are treated as 1.
func (s *Store) Add(ctx context.Context, variantID string, quantity int) (Result, error) {
	if quantity <= 0 {
		quantity = 1
	}
	cart, err := s.backend.AddToCart(ctx, variantID, quantity)
	if err != nil {
		return s.fail(ctx, "add", err)
	}
	if cart == nil {
		return s.noCart("add"), nil
	}
	next := s.replace(cart)
	s.inventory.DecreaseInventory(variantID, quantity)
	return s.done("add", ReasonNone, next), nil
}

// Increase bumps a line item by one and reserves one more unit of its
// variant as reported by the backend response.
func (s *Store) Increase(ctx context.Context, lineItemID string, currentQuantity int) (Result, error) {
	cart, err := s.backend.UpdateLineItem(ctx, lineItemID, currentQuantity+1)
	if err != nil {
		return s.fail(ctx, "increase", err)
	}
	if cart == nil {
		return s.noCart("increase"), nil
	}
	next := s.replace(cart)
	item, ok := cart.FindItem(lineItemID)
	if !ok || item.VariantID == "" {
		return s.done("increase", ReasonLineItemNotFound, next), nil
	}
	s.inventory.DecreaseInventory(item.VariantID, 1)
	return s.done("increase", ReasonNone, next), nil
}

// Decrease lowers a line item by one. At quantity one or below the line is
// removed instead.
func (s *Store) Decrease(ctx context.Context, lineItemID string, currentQuantity int) (Result, error) {
	if currentQuantity <= 1 {
		return s.remove(ctx, lineItemID)
	}

	cart, err := s.backend.UpdateLineItem(ctx, lineItemID, currentQuantity-1)
	if err != nil {
		return s.fail(ctx, "decrease", err)
	}
	if cart == nil {
		return s.noCart("decrease"), nil
	}
	next := s.replace(cart)
	item, ok := cart.FindItem(lineItemID)
	if !ok || item.VariantID == "" {
		return s.done("decrease", ReasonLineItemNotFound, next), nil
	}
	s.inventory.IncreaseInventory(item.VariantID, 1)
	return s.done("decrease", ReasonNone, next), nil
}

// remove deletes a line. A confirmed deletion refetches the cart, which
// resyncs inventory. Otherwise the line is dropped locally and one unit of
// the variant it had before the call is released.
func (s *Store) remove(ctx context.Context, lineItemID string) (Result, error) {
	variantID := s.localVariant(lineItemID)

	removal, err := s.backend.RemoveLineItem(ctx, lineItemID)
	if err != nil {
		return s.fail(ctx, "remove", err)
	}

	if removal.Outcome == commerce.RemovalConfirmed {
		return s.resync(ctx, "remove")
	}

	s.logg.Warn(s.logg.WithField(ctx, "line_item_id", lineItemID), "line item removal not confirmed; dropping locally")
	s.mu.Lock()
	kept := make([]Item, 0, len(s.state.Items))
	for _, item := range s.state.Items {
		if item.ID != lineItemID {
			kept = append(kept, item)
		}
	}
	s.state.Items = kept
	s.dirty = true
	next := s.copyLocked()
	s.mu.Unlock()

	if variantID != "" {
		s.inventory.IncreaseInventory(variantID, 1)
	}
	return s.done("remove", ReasonRemovalUnconfirmed, next), nil
}

// ClearLocal empties items and totals without calling the backend.
func (s *Store) ClearLocal() Result {
	s.mu.Lock()
	s.state.Items = []Item{}
	s.state.Summary = Summary{}
	s.dirty = true
	next := s.copyLocked()
	s.mu.Unlock()

	if s.clearResetsInventory {
		s.inventory.ResetAdjustments()
	}
	return s.done("clear", ReasonNone, next)
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// DisplayTotal is the backend total once synced, else a local estimate.
func (s *Store) DisplayTotal() decimal.Decimal {
	state := s.Snapshot()
	if state.Summary.Synced {
		return state.Summary.TotalPayable
	}
	return localTotal(state)
}

// Hydrate restores persisted state. Missing state leaves the cart empty.
func (s *Store) Hydrate(ctx context.Context) error {
	return s.load(ctx, false)
}

// Reload re-reads state written by any process sharing the storage. A store
// holding unflushed changes keeps them.
func (s *Store) Reload(ctx context.Context) error {
	return s.load(ctx, true)
}

func (s *Store) load(ctx context.Context, keepDirty bool) error {
	if s.persister == nil {
		return nil
	}
	state := State{Items: []Item{}}
	raw, err := s.persister.Load(ctx, persist.KeyCart)
	switch {
	case errors.Is(err, persist.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load cart state: %w", err)
	default:
		if state, err = decodeState(raw); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if keepDirty && s.dirty {
		return nil
	}
	s.state = state
	s.dirty = false
	return nil
}

func decodeState(raw []byte) (State, error) {
	env, err := persist.Decode(raw)
	if err != nil {
		return State{}, err
	}
	if env.Version > persist.CurrentVersion {
		return State{}, fmt.Errorf("unsupported cart state version %d", env.Version)
	}
	var state State
	if err := json.Unmarshal(env.State, &state); err != nil {
		return State{}, fmt.Errorf("decode cart state: %w", err)
	}
	if state.Items == nil {
		state.Items = []Item{}
	}
	return state, nil
}

// Flush persists state if it changed since the last flush.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	state := s.copyLocked()
	s.dirty = false
	s.mu.Unlock()

	data, err := persist.Encode(persist.CurrentVersion, state)
	if err != nil {
		return err
	}
	if err := s.persister.Save(ctx, persist.KeyCart, data); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("save cart state: %w", err)
	}
	return nil
}

func (s *Store) replace(c *commerce.Cart) State {
	next := MapBackendCart(c)
	s.mu.Lock()
	s.state = next
	s.dirty = true
	out := s.copyLocked()
	s.mu.Unlock()
	return out
}

func (s *Store) localVariant(lineItemID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.state.Items {
		if item.ID == lineItemID {
			return item.VariantID
		}
	}
	return ""
}

func (s *Store) copyLocked() State {
	out := s.state
	out.Items = append([]Item{}, s.state.Items...)
	out.Summary.Promotions = append([]Promotion{}, s.state.Summary.Promotions...)
	return out
}

func (s *Store) done(op string, reason Reason, state State) Result {
	outcome := "ok"
	if reason != ReasonNone {
		outcome = string(reason)
	}
	s.metrics.ObserveOperation(op, outcome)
	return Result{OK: true, Reason: reason, State: state}
}

func (s *Store) noCart(op string) Result {
	s.metrics.ObserveOperation(op, string(ReasonNoCart))
	return Result{OK: false, Reason: ReasonNoCart, State: s.Snapshot()}
}

func (s *Store) fail(ctx context.Context, op string, err error) (Result, error) {
	s.metrics.ObserveOperation(op, "error")
	s.logg.Error(s.logg.WithField(ctx, "cart_op", op), "cart backend call failed", err)
	return Result{State: s.Snapshot()}, err
}
