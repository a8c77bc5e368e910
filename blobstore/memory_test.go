package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	payload := []byte("payload")
	require.NoError(t, store.Put(ctx, "b/1", payload))
	require.NoError(t, store.Put(ctx, "a/1", []byte("other")))

	// Mutating the caller's slice must not change stored data.
	payload[0] = 'X'

	got, err := ReadAll(ctx, store, "b/1")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	blob, err := store.Open(ctx, "b/1")
	require.NoError(t, err)
	buf := make([]byte, 10)
	n, err := blob.ReadAt(ctx, buf, 3)
	assert.Equal(t, 4, n)
	assert.Equal(t, io.EOF, err)
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "b/1"}, names)

	require.NoError(t, store.Delete(ctx, "b/1"))
	_, err = store.Open(ctx, "b/1")
	assert.ErrorIs(t, err, ErrNotFound)
}
