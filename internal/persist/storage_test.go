package persist

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := Encode(CurrentVersion, map[string]int{"v1": 2})
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, env.Version)

	var state map[string]int
	require.NoError(t, json.Unmarshal(env.State, &state))
	assert.Equal(t, 2, state["v1"])
}

func TestDecodeWithoutVersionIsLegacy(t *testing.T) {
	env, err := Decode([]byte(`{"v1":3}`))
	require.NoError(t, err)
	assert.Equal(t, 0, env.Version)
	assert.JSONEq(t, `{"v1":3}`, string(env.State))

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestScopedNamespacesKeys(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()
	a := NewScoped(mem, "sess-a")
	b := NewScoped(mem, "sess-b")

	require.NoError(t, a.Save(ctx, KeyCart, []byte("a")))
	_, err := b.Load(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	raw, err := mem.Load(ctx, "sf:state:sess-a:global-cart")
	require.NoError(t, err)
	assert.Equal(t, "a", string(raw))

	require.NoError(t, a.Delete(ctx, KeyCart))
	assert.Equal(t, 0, mem.Len())
}

func TestMemoryStorageCopiesValues(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()
	buf := []byte("abc")
	require.NoError(t, mem.Save(ctx, "k", buf))
	buf[0] = 'z'

	got, err := mem.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestRedisStorage(t *testing.T) {
	ctx := context.Background()
	kv := &fakeRedis{data: map[string]string{}}
	store := NewRedisStorage(kv, time.Hour)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "k", []byte(`{"version":1}`)))
	assert.Equal(t, time.Hour, kv.lastTTL)

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(got))

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	kv.getErr = errors.New("conn reset")
	_, err = store.Load(ctx, "k")
	assert.EqualError(t, err, "conn reset")
}

func newSQLiteStorage(t *testing.T, ttl time.Duration) (*SQLStorage, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.ClientState{}))
	return NewSQLStorage(conn, ttl), conn
}

func TestSQLStorageUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	store, conn := newSQLiteStorage(t, 0)

	_, err := store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "k", []byte("one")))
	require.NoError(t, store.Save(ctx, "k", []byte("two")))

	var count int64
	require.NoError(t, conn.Model(&models.ClientState{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStorageExpiry(t *testing.T) {
	ctx := context.Background()
	store, _ := newSQLiteStorage(t, time.Minute)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	require.NoError(t, store.Save(ctx, "k", []byte("v")))
	_, err := store.Load(ctx, "k")
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = store.Load(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

type fakeRedis struct {
	data    map[string]string
	lastTTL time.Duration
	getErr  error
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.lastTTL = ttl
	f.data[key] = string(value.([]byte))
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) Ping(context.Context) error { return nil }
