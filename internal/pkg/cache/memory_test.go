package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ExpiresKeys(t *testing.T) {
	m := NewMemory()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "sessao", "1", time.Minute))
	ok, _ := m.Exists(ctx, "sessao")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, err := m.Get(ctx, "sessao")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemory_CounterAndGetDel(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "rl", 1, time.Minute))
	n, err := m.Incr(ctx, "rl")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, err := m.GetInt(ctx, "rl")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	require.NoError(t, m.Set(ctx, "token", "user-1", 0))
	val, err := m.GetDel(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", val)

	_, err = m.GetDel(ctx, "token")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
