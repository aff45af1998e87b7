package commerce

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront/internal/persist"
)

// CartIDStore remembers which backend cart belongs to a session.
type CartIDStore interface {
	CartID(ctx context.Context) (string, error)
	SetCartID(ctx context.Context, cartID string) error
	ClearCartID(ctx context.Context) error
}

// StateStorage is session-scoped state storage addressed by key name.
type StateStorage interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
}

// PersistedCartID keeps the cart id under the "cart-id" key of session storage.
type PersistedCartID struct {
	storage StateStorage
}

func NewPersistedCartID(storage StateStorage) *PersistedCartID {
	return &PersistedCartID{storage: storage}
}

func (p *PersistedCartID) CartID(ctx context.Context) (string, error) {
	raw, err := p.storage.Load(ctx, persist.KeyCartID)
	if errors.Is(err, persist.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (p *PersistedCartID) SetCartID(ctx context.Context, cartID string) error {
	return p.storage.Save(ctx, persist.KeyCartID, []byte(cartID))
}

func (p *PersistedCartID) ClearCartID(ctx context.Context) error {
	err := p.storage.Delete(ctx, persist.KeyCartID)
	if errors.Is(err, persist.ErrNotFound) {
		return nil
	}
	return err
}
