package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'x'

	out, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(out))

	out[0] = 'y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_QuotaAccountsForOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryWithQuota(10)

	require.NoError(t, m.Set(ctx, "k", []byte("12345")))
	// replacing the value frees the old bytes first
	require.NoError(t, m.Set(ctx, "k", []byte("123456789")))
	assert.ErrorIs(t, m.Set(ctx, "other", []byte("1")), ErrQuotaExceeded)

	require.NoError(t, m.Remove(ctx, "k"))
	require.NoError(t, m.Set(ctx, "other", []byte("1")))
}

func TestMemory_RemoveMissingKey(t *testing.T) {
	assert.NoError(t, NewMemory().Remove(context.Background(), "missing"))
}
