package main

import (
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/auth"
)

func TestSeedBatch(t *testing.T) {
	hash, err := auth.HashPassword("admin123")
	require.NoError(t, err)

	batch := seedBatch("admin", hash)
	require.Equal(t, len(sampleVendors)+1, batch.Len())

	last := batch.QueuedQueries[batch.Len()-1]
	require.Equal(t, insertAdminSQL, last.SQL)
	require.Equal(t, []any{"admin", hash}, last.Arguments)

	ok, err := argon2id.ComparePasswordAndHash("admin123", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSampleVendorsAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range sampleVendors {
		require.False(t, seen[v.Name], v.Name)
		seen[v.Name] = true
		require.NotEmpty(t, v.Location)
		require.Len(t, v.Phone, 10)
	}
	require.Len(t, seen, 3)
}
