package minio

import (
	"context"
	"io"
	"testing"

	"github.com/hupe1980/flowsig/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Keys(t *testing.T) {
	s := NewStore(nil, "b", "sigsets/")

	assert.Equal(t, "sigsets/a.npy", s.key("a.npy"))
	assert.Equal(t, "sigsets", s.key(""))
	assert.Equal(t, "a.npy", s.relative("sigsets/a.npy"))
	assert.Equal(t, "manifests/v1.json", s.relative("sigsets/manifests/v1.json"))

	root := NewStore(nil, "b", "")
	assert.Equal(t, "a.npy", root.key("a.npy"))
	assert.Equal(t, "a.npy", root.relative("a.npy"))
}

func TestDial_Validation(t *testing.T) {
	_, err := Dial(Config{Bucket: "b"})
	assert.Error(t, err)

	_, err = Dial(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	s, err := Dial(Config{Endpoint: "localhost:9000", Bucket: "b", Prefix: "p/"})
	require.NoError(t, err)
	assert.Equal(t, "p/x", s.key("x"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	bucket := "test-flowsig"

	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.npy", data))

	blob, err := store.Open(ctx, "test.npy")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.npy")

	require.NoError(t, store.Delete(ctx, "test.npy"))
	_, err = store.Open(ctx, "test.npy")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "test.npy"))
}
