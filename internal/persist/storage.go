// Package persist stores the serialized client state of storefront sessions.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	KeyCart        = "global-cart"
	KeyInventory   = "inventory-adjustments"
	KeyCartID      = "cart-id"
	CurrentVersion = 1
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("persisted state not found")

// Storage is a flat key/value store for state blobs.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Envelope wraps persisted state with a schema version.
type Envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Encode marshals state inside a versioned envelope.
func Encode(version int, state any) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return json.Marshal(Envelope{Version: version, State: raw})
}

// Decode unmarshals an envelope. Payloads without a version field decode as
// version 0 with the whole payload as state.
func Decode(data []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if _, ok := fields["version"]; !ok {
		return Envelope{Version: 0, State: json.RawMessage(data)}, nil
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// Scoped prefixes every key with a session namespace.
type Scoped struct {
	storage Storage
	keyFn   func(name string) string
}

// NewScoped binds storage to one session using "sf:state:<session>:<name>" keys.
func NewScoped(storage Storage, sessionID string) *Scoped {
	return &Scoped{
		storage: storage,
		keyFn: func(name string) string {
			return "sf:state:" + sessionID + ":" + name
		},
	}
}

func (s *Scoped) Load(ctx context.Context, name string) ([]byte, error) {
	return s.storage.Load(ctx, s.keyFn(name))
}

func (s *Scoped) Save(ctx context.Context, name string, value []byte) error {
	return s.storage.Save(ctx, s.keyFn(name), value)
}

func (s *Scoped) Delete(ctx context.Context, name string) error {
	return s.storage.Delete(ctx, s.keyFn(name))
}
