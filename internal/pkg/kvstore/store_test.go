package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "k", []byte("v1"), 0))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	got[0] = 'x'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again, "returned slice must not alias stored data")

	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "forever", []byte("v"), 0))
	now = now.Add(24 * time.Hour)
	_, err = m.Get(ctx, "forever")
	require.NoError(t, err)
}

func TestScopeIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := Scope(m, "session:a")
	b := Scope(m, "session:b")

	require.NoError(t, a.Set(ctx, "shoppingCart", []byte("A"), 0))
	require.NoError(t, b.Set(ctx, "shoppingCart", []byte("B"), 0))

	got, err := a.Get(ctx, "shoppingCart")
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))

	raw, err := m.Get(ctx, "session:b:shoppingCart")
	require.NoError(t, err)
	assert.Equal(t, "B", string(raw))

	nested := Scope(a, "prefs")
	require.NoError(t, nested.Set(ctx, "theme", []byte("dark"), 0))
	_, err = m.Get(ctx, "session:a:prefs:theme")
	require.NoError(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type payload struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}

	require.NoError(t, PutJSON(ctx, m, "p", payload{Name: "margherita", N: 2}, 0))

	var out payload
	require.NoError(t, GetJSON(ctx, m, "p", &out))
	assert.Equal(t, payload{Name: "margherita", N: 2}, out)

	require.NoError(t, m.Set(ctx, "broken", []byte("{not json"), 0))
	err := GetJSON(ctx, m, "broken", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = GetJSON(ctx, m, "absent", &out)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := NewRedisFromClient(client, "storefront")
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(ctx))

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "order_1", []byte(`{"a":1}`), time.Hour))
	assert.True(t, srv.Exists("storefront:order_1"))
	assert.Equal(t, time.Hour, srv.TTL("storefront:order_1"))

	got, err := store.Get(ctx, "order_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	srv.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "order_1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))
	assert.False(t, srv.Exists("storefront:k"))
}
