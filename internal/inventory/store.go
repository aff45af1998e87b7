// Package inventory keeps the optimistic per-variant reservation layer that
// sits on top of catalog inventory counts.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/angelmondragon/storefront/internal/persist"
)

// Adjustments maps variant id to the quantity reserved by the local cart.
type Adjustments map[string]int

// CartLine is the variant/quantity pair used to resync from a fetched cart.
type CartLine struct {
	VariantID string
	Quantity  int
}

// Persister is the slice of session storage the store writes through.
type Persister interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, value []byte) error
}

type persistedState struct {
	Adjustments Adjustments `json:"adjustments"`
}

// Store holds adjustments for one shopper session. It never knows the real
// inventory ceiling; callers supply catalog counts on read.
type Store struct {
	mu          sync.RWMutex
	adjustments Adjustments
	revision    uint64
	dirty       bool

	persister Persister

	listenerMu sync.Mutex
	listeners  map[int]func(Adjustments)
	nextID     int
}

// Option configures a Store.
type Option func(*Store)

// WithPersister writes the adjustment map to session storage on Flush.
func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		adjustments: Adjustments{},
		listeners:   map[int]func(Adjustments){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DecreaseInventory reserves quantity more units of the variant.
func (s *Store) DecreaseInventory(variantID string, quantity int) {
	if variantID == "" || quantity <= 0 {
		return
	}
	s.mutate(func(adj Adjustments) {
		adj[variantID] += quantity
	})
}

// IncreaseInventory releases quantity units of the variant, never below zero.
func (s *Store) IncreaseInventory(variantID string, quantity int) {
	if variantID == "" || quantity <= 0 {
		return
	}
	s.mutate(func(adj Adjustments) {
		next := adj[variantID] - quantity
		if next <= 0 {
			delete(adj, variantID)
			return
		}
		adj[variantID] = next
	})
}

// GetAdjustedInventory returns max(0, original - reserved).
func (s *Store) GetAdjustedInventory(variantID string, original int) int {
	s.mu.RLock()
	reserved := s.adjustments[variantID]
	s.mu.RUnlock()
	if adjusted := original - reserved; adjusted > 0 {
		return adjusted
	}
	return 0
}

// GetAdjustedTotal sums adjusted availability across a product's variants.
func (s *Store) GetAdjustedTotal(original map[string]int) int {
	total := 0
	for variantID, count := range original {
		total += s.GetAdjustedInventory(variantID, count)
	}
	return total
}

// ResetAdjustments drops every adjustment.
func (s *Store) ResetAdjustments() {
	s.mutate(func(adj Adjustments) {
		for k := range adj {
			delete(adj, k)
		}
	})
}

// SyncWithCart replaces the whole map with per-variant sums of the lines.
// Variants absent from lines end up with no adjustment.
func (s *Store) SyncWithCart(lines []CartLine) {
	next := Adjustments{}
	for _, line := range lines {
		if line.VariantID == "" || line.Quantity <= 0 {
			continue
		}
		next[line.VariantID] += line.Quantity
	}
	s.mutate(func(adj Adjustments) {
		for k := range adj {
			delete(adj, k)
		}
		for k, v := range next {
			adj[k] = v
		}
	})
}

// ForceRefresh notifies listeners without changing any adjustment.
func (s *Store) ForceRefresh() {
	s.mu.Lock()
	s.revision++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Adjustment returns the reserved quantity for one variant.
func (s *Store) Adjustment(variantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adjustments[variantID]
}

// Snapshot returns a copy of the adjustment map.
func (s *Store) Snapshot() Adjustments {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Revision increases on every mutation and refresh.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func removes the listener.
func (s *Store) Subscribe(fn func(Adjustments)) func() {
	if fn == nil {
		return func() {}
	}
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// Hydrate loads persisted adjustments, replacing in-memory state. Missing
// state leaves the store empty.
func (s *Store) Hydrate(ctx context.Context) error {
	_, err := s.load(ctx, false)
	return err
}

// Reload re-reads persisted adjustments written by any process sharing the
// storage. A store holding unflushed changes keeps them. Listeners are
// notified when the reloaded map differs.
func (s *Store) Reload(ctx context.Context) error {
	changed, err := s.load(ctx, true)
	if err != nil || !changed {
		return err
	}
	s.notify(s.Snapshot())
	return nil
}

func (s *Store) load(ctx context.Context, keepDirty bool) (bool, error) {
	if s.persister == nil {
		return false, nil
	}
	adj := Adjustments{}
	raw, err := s.persister.Load(ctx, persist.KeyInventory)
	switch {
	case errors.Is(err, persist.ErrNotFound):
	case err != nil:
		return false, fmt.Errorf("load inventory adjustments: %w", err)
	default:
		if adj, err = decodeAdjustments(raw); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if keepDirty && s.dirty {
		return false, nil
	}
	changed := !maps.Equal(s.adjustments, adj)
	s.adjustments = adj
	s.dirty = false
	if changed {
		s.revision++
	}
	return changed, nil
}

// Flush persists the adjustment map if it changed since the last flush.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	s.dirty = false
	s.mu.Unlock()

	data, err := persist.Encode(persist.CurrentVersion, persistedState{Adjustments: snap})
	if err != nil {
		return err
	}
	if err := s.persister.Save(ctx, persist.KeyInventory, data); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("save inventory adjustments: %w", err)
	}
	return nil
}

func decodeAdjustments(raw []byte) (Adjustments, error) {
	env, err := persist.Decode(raw)
	if err != nil {
		return nil, err
	}

	var adj Adjustments
	switch env.Version {
	case 0:
		if err := json.Unmarshal(env.State, &adj); err != nil {
			return nil, fmt.Errorf("decode legacy adjustments: %w", err)
		}
	case persist.CurrentVersion:
		var state persistedState
		if err := json.Unmarshal(env.State, &state); err != nil {
			return nil, fmt.Errorf("decode adjustments: %w", err)
		}
		adj = state.Adjustments
	default:
		return nil, fmt.Errorf("unsupported inventory adjustments version %d", env.Version)
	}

	clean := Adjustments{}
	for k, v := range adj {
		if k != "" && v > 0 {
			clean[k] = v
		}
	}
	return clean, nil
}

func (s *Store) mutate(fn func(Adjustments)) {
	s.mu.Lock()
	fn(s.adjustments)
	s.revision++
	s.dirty = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Store) snapshotLocked() Adjustments {
	out := make(Adjustments, len(s.adjustments))
	for k, v := range s.adjustments {
		out[k] = v
	}
	return out
}

func (s *Store) notify(snap Adjustments) {
	s.listenerMu.Lock()
	fns := make([]func(Adjustments), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
