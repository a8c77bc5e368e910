package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/flowsig/blobstore"
	"github.com/hupe1980/flowsig/internal/hash"
	"github.com/hupe1980/flowsig/resource"
	"github.com/hupe1980/flowsig/sigset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	set := sigset.Of(10, 20, 30)

	stores := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}

	for kind, blobs := range stores {
		t.Run(kind, func(t *testing.T) {
			s := NewStore(blobs)

			for _, name := range []string{"sigset.npy", "models/sigset.roaring.zst", "sigset.npy.lz4"} {
				info, err := s.Save(ctx, name, set)
				require.NoError(t, err)
				assert.Equal(t, 3, info.Signatures)
				assert.Equal(t, uint64(10), info.Min)
				assert.Equal(t, uint64(30), info.Max)

				raw, err := blobstore.ReadAll(ctx, blobs, name)
				require.NoError(t, err)
				assert.Equal(t, int64(len(raw)), info.Size)
				assert.Equal(t, hash.CRC32C(raw), info.Checksum)

				got, err := s.Load(ctx, name)
				require.NoError(t, err)
				assert.True(t, set.Equal(got), name)
			}
		})
	}
}

func TestStore_LocalNPYFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(blobstore.NewLocalStore(dir))

	_, err := s.Save(context.Background(), "sigset.npy", sigset.Of(1, 2, 3))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "sigset.npy"))
	require.NoError(t, err)
	assert.Equal(t, numpySave3(), raw)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := NewStore(blobs)

	t.Run("not found", func(t *testing.T) {
		_, err := s.Load(ctx, "missing.npy")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("corrupt", func(t *testing.T) {
		require.NoError(t, blobs.Put(ctx, "bad.npy", []byte("garbage")))
		_, err := s.Load(ctx, "bad.npy")
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("empty blob", func(t *testing.T) {
		require.NoError(t, blobs.Put(ctx, "empty.npy", nil))
		_, err := s.Load(ctx, "empty.npy")
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := s.Save(ctx, "sigset.bin", sigset.Of(1))
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestStore_Controller(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   1 << 20,
		IOLimitBytesPerSec: 1 << 30,
	})
	s := NewStore(blobstore.NewMemoryStore(), WithController(rc))

	_, err := s.Save(ctx, "sigset.npy", sigset.Of(1, 2, 3))
	require.NoError(t, err)

	got, err := s.Load(ctx, "sigset.npy")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
	assert.Zero(t, rc.MemoryUsage())
}

func TestStore_Inspect(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore())

	_, err := s.Save(ctx, "sigset.roaring", sigset.Of(7, 3, 99))
	require.NoError(t, err)

	info, err := s.Inspect(ctx, "sigset.roaring")
	require.NoError(t, err)
	assert.Equal(t, Layout{FormatRoaring, CompressionNone}, info.Layout)
	assert.Equal(t, 3, info.Signatures)
	assert.Equal(t, uint64(3), info.Min)
	assert.Equal(t, uint64(99), info.Max)
}
