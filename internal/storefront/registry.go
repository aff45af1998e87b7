// Package storefront assembles the per-session cart and inventory stores.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/inventory"
	"github.com/angelmondragon/storefront/internal/persist"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
)

const defaultCacheSize = 1024

// ErrInvalidSession is returned for session ids that are not UUIDs.
var ErrInvalidSession = errors.New("invalid session id")

// Session is one shopper's cart and inventory state.
type Session struct {
	ID        string
	Cart      *cart.Store
	Inventory *inventory.Store
}

// Flush persists both stores.
func (s *Session) Flush(ctx context.Context) error {
	return multierr.Combine(
		s.Cart.Flush(ctx),
		s.Inventory.Flush(ctx),
	)
}

// Reload pulls state other processes flushed to the shared storage.
func (s *Session) Reload(ctx context.Context) error {
	return multierr.Combine(
		s.Inventory.Reload(ctx),
		s.Cart.Reload(ctx),
	)
}

type Options struct {
	RegionID             string
	ClearResetsInventory bool
	CacheSize            int
	Metrics              *metrics.CartMetrics
	Logger               *logger.Logger
}

// Registry hands out sessions. Storage is the source of truth: cached
// sessions are reloaded on every Get so writes from other processes are seen.
type Registry struct {
	storage persist.Storage
	api     commerce.StoreAPI
	opts    Options
	logg    *logger.Logger

	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
}

func NewRegistry(storage persist.Storage, api commerce.StoreAPI, opts Options) (*Registry, error) {
	if storage == nil {
		return nil, errors.New("session storage is required")
	}
	if api == nil {
		return nil, errors.New("store api client is required")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	r := &Registry{storage: storage, api: api, opts: opts, logg: logg}
	cache, err := lru.NewWithEvict[string, *Session](size, func(string, *Session) {
		opts.Metrics.SetSessions(r.sessions.Len())
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	r.sessions = cache
	return r, nil
}

// NewSessionID issues a fresh session id.
func NewSessionID() string {
	return uuid.NewString()
}

// NormalizeSessionID validates a client supplied session id.
func NormalizeSessionID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidSession
	}
	return id.String(), nil
}

// Get returns the session, building and hydrating it when it is not cached
// and reloading it from storage when it is.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Session, error) {
	id, err := NormalizeSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if sess, ok := r.sessions.Get(id); ok {
		return r.reload(ctx, sess)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions.Get(id); ok {
		return r.reload(ctx, sess)
	}

	sess, err := r.build(ctx, id)
	if err != nil {
		return nil, err
	}
	r.sessions.Add(id, sess)
	r.opts.Metrics.SetSessions(r.sessions.Len())
	return sess, nil
}

// Evict drops a session from memory. Persisted state is kept.
func (r *Registry) Evict(sessionID string) {
	if id, err := NormalizeSessionID(sessionID); err == nil {
		r.sessions.Remove(id)
	}
}

func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) reload(ctx context.Context, sess *Session) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sess.Reload(ctx); err != nil {
		r.logg.Error(r.logg.WithSessionID(ctx, sess.ID), "session state could not be reloaded", err)
	}
	return sess, nil
}

func (r *Registry) build(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scoped := persist.NewScoped(r.storage, id)
	ctx = r.logg.WithSessionID(ctx, id)

	inv := inventory.NewStore(inventory.WithPersister(scoped))
	backend := commerce.NewMedusaBackend(r.api, commerce.NewPersistedCartID(scoped),
		commerce.WithRegion(r.opts.RegionID),
		commerce.WithBackendMetrics(r.opts.Metrics),
		commerce.WithBackendLogger(r.logg),
	)
	cartStore := cart.NewStore(backend, inv,
		cart.WithPersister(scoped),
		cart.WithClearResetsInventory(r.opts.ClearResetsInventory),
		cart.WithMetrics(r.opts.Metrics),
		cart.WithLogger(r.logg),
	)

	// unreadable state starts the session empty rather than locking the shopper out
	if err := multierr.Combine(inv.Hydrate(ctx), cartStore.Hydrate(ctx)); err != nil {
		r.logg.Error(ctx, "session state could not be restored", err)
	}
	r.logg.Debug(ctx, "session hydrated")
	return &Session{ID: id, Cart: cartStore, Inventory: inv}, nil
}
