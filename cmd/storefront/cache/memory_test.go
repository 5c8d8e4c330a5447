package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func newTestMemory(t *testing.T, cfg Config) (*Memory, *time.Time) {
	t.Helper()
	m := NewMemory(cfg, zerolog.Nop())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	t.Cleanup(func() { m.Close() })
	return m, &now
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, Config{DefaultTTL: time.Minute})

	var got item
	ok, err := m.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "a", item{Name: "Laptop", Price: 999.99}, 0))
	ok, err = m.Get(ctx, "a", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, item{Name: "Laptop", Price: 999.99}, got)
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(t, Config{DefaultTTL: time.Minute})

	require.NoError(t, m.Set(ctx, "a", 1, 30*time.Second))
	*now = now.Add(31 * time.Second)

	var got int
	ok, err := m.Get(ctx, "a", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryDeletePrefix(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, Config{DefaultTTL: time.Minute})

	require.NoError(t, m.Set(ctx, "products:1", 1, 0))
	require.NoError(t, m.Set(ctx, "products:2", 2, 0))
	require.NoError(t, m.Set(ctx, "revoked:x", true, 0))

	require.NoError(t, m.DeletePrefix(ctx, "products:"))
	assert.Equal(t, 1, m.Len())

	var revoked bool
	ok, _ := m.Get(ctx, "revoked:x", &revoked)
	assert.True(t, ok)
}

func TestMemoryCleanupEnforcesMaxSize(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(t, Config{DefaultTTL: time.Hour, MaxSize: 2})

	for i := 0; i < 4; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("k%d", i), i, 0))
		*now = now.Add(time.Second)
	}
	require.NoError(t, m.Set(ctx, "short", 0, time.Millisecond))
	*now = now.Add(time.Second)

	m.cleanup()
	assert.Equal(t, 2, m.Len())

	var v int
	ok, _ := m.Get(ctx, "k0", &v)
	assert.False(t, ok)
	ok, _ = m.Get(ctx, "k3", &v)
	assert.True(t, ok)
}

func TestMemoryCloseIsIdempotent(t *testing.T) {
	m := NewMemory(Config{DefaultTTL: time.Minute, CleanupInterval: time.Hour}, zerolog.Nop())
	require.NoError(t, m.Set(context.Background(), "a", 1, 0))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
}

func TestKeyIsStable(t *testing.T) {
	a := Key("products", "search=phone", "1", "15")
	b := Key("products", "search=phone", "1", "15")
	c := Key("products", "search=phone", "2", "15")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^products:[0-9a-f]{64}$`, a)
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, Config{DefaultTTL: time.Minute})

	calls := 0
	load := func(context.Context) ([]item, error) {
		calls++
		return []item{{Name: "Book"}}, nil
	}

	v, hit, err := Remember(ctx, m, "k", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, v, 1)

	v, hit, err = Remember(ctx, m, "k", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Book", v[0].Name)
	assert.Equal(t, 1, calls)
}

func TestRememberDoesNotStoreErrors(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, Config{DefaultTTL: time.Minute})

	_, _, err := Remember(ctx, m, "k", 0, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	require.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestRememberWithoutStore(t *testing.T) {
	v, hit, err := Remember[int](context.Background(), nil, "k", 0, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)
}

func TestRememberIfSkipsStaleLoads(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(t, Config{DefaultTTL: time.Minute})

	v, hit, err := RememberIf(ctx, m, "k", 0, func(context.Context) (int, error) {
		return 1, nil
	}, func() bool { return false })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, m.Len())

	checks := 0
	_, _, err = RememberIf(ctx, m, "k", 0, func(context.Context) (int, error) {
		return 2, nil
	}, func() bool {
		checks++
		return checks == 1
	})
	require.NoError(t, err)
	assert.Equal(t, 2, checks)
	assert.Equal(t, 0, m.Len())

	_, _, err = RememberIf(ctx, m, "k", 0, func(context.Context) (int, error) {
		return 3, nil
	}, func() bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}
