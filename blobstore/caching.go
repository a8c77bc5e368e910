package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/flowsig/internal/cache"
)

// DefaultCacheBlockSize is the block size of a CachingStore.
const DefaultCacheBlockSize = 64 << 10

// CachingStore wraps a BlobStore and caches blob blocks in memory.
// Writes and deletes through the store invalidate the cached blocks of
// that name; changes made by other writers are not observed until the
// blocks are evicted.
type CachingStore struct {
	inner     BlobStore
	cache     *cache.LRU
	blockSize int64
}

// NewCachingStore creates a new CachingStore.
// blockSize defaults to DefaultCacheBlockSize if <= 0.
func NewCachingStore(inner BlobStore, c *cache.LRU, blockSize int64) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultCacheBlockSize
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}
}

// Open implements BlobStore.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		inner:     b,
		cache:     s.cache,
		name:      name,
		blockSize: s.blockSize,
	}, nil
}

// Put implements BlobStore.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete implements BlobStore.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List implements BlobStore.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type cachingBlob struct {
	inner     Blob
	cache     *cache.LRU
	name      string
	blockSize int64
}

func (b *cachingBlob) Close() error {
	return b.inner.Close()
}

func (b *cachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	size := b.Size()
	if off >= size {
		return 0, io.EOF
	}

	end := min(off+int64(len(p)), size)
	startBlock := off / b.blockSize
	endBlock := (end - 1) / b.blockSize

	if err := b.fill(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		data, err := b.block(ctx, blk)
		if err != nil {
			return total, err
		}

		blkStart := blk * b.blockSize
		from := max(blkStart, off) - blkStart
		to := min(blkStart+int64(len(data)), end) - blkStart
		if to > from {
			total += copy(p[blkStart+from-off:], data[from:to])
		}
	}

	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fill loads the missing blocks of [startBlock, endBlock], reading each
// contiguous run of missing blocks with a single inner read.
func (b *cachingBlob) fill(ctx context.Context, startBlock, endBlock int64) error {
	runStart := int64(-1)
	for blk := startBlock; blk <= endBlock+1; blk++ {
		missing := false
		if blk <= endBlock {
			_, ok := b.cache.Get(cache.Key{Path: b.name, Block: blk})
			missing = !ok
		}

		switch {
		case missing && runStart < 0:
			runStart = blk
		case !missing && runStart >= 0:
			if err := b.load(ctx, runStart, blk-runStart); err != nil {
				return err
			}
			runStart = -1
		}
	}
	return nil
}

func (b *cachingBlob) load(ctx context.Context, start, count int64) error {
	byteStart := start * b.blockSize
	byteSize := min(count*b.blockSize, b.Size()-byteStart)
	if byteSize <= 0 {
		return nil
	}

	buf := make([]byte, byteSize)
	n, err := b.inner.ReadAt(ctx, buf, byteStart)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	buf = buf[:n]

	for i := int64(0); i < count; i++ {
		lo := i * b.blockSize
		if lo >= int64(len(buf)) {
			break
		}
		hi := min(lo+b.blockSize, int64(len(buf)))

		// Copy so a cached block does not pin the whole run.
		blk := make([]byte, hi-lo)
		copy(blk, buf[lo:hi])
		b.cache.Set(cache.Key{Path: b.name, Block: start + i}, blk)
	}
	return nil
}

// block returns a block from the cache or, if it was evicted or refused,
// from the inner blob.
func (b *cachingBlob) block(ctx context.Context, blk int64) ([]byte, error) {
	key := cache.Key{Path: b.name, Block: blk}
	if data, ok := b.cache.Get(key); ok {
		return data, nil
	}

	offset := blk * b.blockSize
	buf := make([]byte, min(b.blockSize, b.Size()-offset))
	n, err := b.inner.ReadAt(ctx, buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	buf = buf[:n]
	if n > 0 {
		b.cache.Set(key, buf)
	}
	return buf, nil
}

func (b *cachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	limit := min(off+length, b.Size())
	return io.NopCloser(&contextSectionReader{blob: b, ctx: ctx, off: off, limit: limit}), nil
}

// contextSectionReader adapts a context-aware ReadAt to io.Reader.
type contextSectionReader struct {
	blob  Blob
	ctx   context.Context
	off   int64
	limit int64
}

func (r *contextSectionReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, io.EOF
	}
	if remaining := r.limit - r.off; int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}
