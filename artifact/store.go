package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/flowsig/blobstore"
	"github.com/hupe1980/flowsig/internal/hash"
	"github.com/hupe1980/flowsig/resource"
	"github.com/hupe1980/flowsig/sigset"
)

// Info describes a stored artifact.
type Info struct {
	Name       string
	Layout     Layout
	Size       int64
	Checksum   uint32 // CRC32C of the stored bytes
	Signatures int
	Min        uint64
	Max        uint64
}

// Store reads and writes signature sets in a blob store.
// Controller and Logger are optional.
type Store struct {
	Blobs      blobstore.BlobStore
	Controller *resource.Controller
	Logger     *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithController throttles artifact IO through rc.
func WithController(rc *resource.Controller) StoreOption {
	return func(s *Store) { s.Controller = rc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.Logger = l }
}

// NewStore creates a Store over blobs.
func NewStore(blobs blobstore.BlobStore, opts ...StoreOption) *Store {
	s := &Store{Blobs: blobs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// Save encodes set in the layout implied by name and writes it.
func (s *Store) Save(ctx context.Context, name string, set sigset.Set) (*Info, error) {
	start := time.Now()

	l, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Encode(resource.NewRateLimitedWriter(ctx, &buf, s.Controller), set, l); err != nil {
		return nil, fmt.Errorf("artifact: encode %s: %w", name, err)
	}

	if err := s.Blobs.Put(ctx, name, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("artifact: write %s: %w", name, err)
	}

	info := describe(name, l, buf.Bytes(), set)
	s.logger().DebugContext(ctx, "signature set saved",
		"name", name,
		"layout", l.String(),
		"signatures", info.Signatures,
		"bytes", info.Size,
		"duration", time.Since(start),
	)
	return info, nil
}

// Load reads and decodes the named artifact.
func (s *Store) Load(ctx context.Context, name string) (sigset.Set, error) {
	set, _, err := s.LoadWithInfo(ctx, name)
	return set, err
}

// Inspect loads the named artifact and describes it.
func (s *Store) Inspect(ctx context.Context, name string) (*Info, error) {
	_, info, err := s.LoadWithInfo(ctx, name)
	return info, err
}

// LoadWithInfo is Load that also describes the stored bytes, so callers
// can check them against a recorded checksum.
func (s *Store) LoadWithInfo(ctx context.Context, name string) (sigset.Set, *Info, error) {
	start := time.Now()

	l, err := FormatFromName(name)
	if err != nil {
		return sigset.Set{}, nil, err
	}

	blob, err := s.Blobs.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return sigset.Set{}, nil, fmt.Errorf("%w: %s: %w", ErrNotFound, name, err)
		}
		return sigset.Set{}, nil, fmt.Errorf("artifact: open %s: %w", name, err)
	}
	defer blob.Close()

	size := blob.Size()
	if err := s.Controller.AcquireMemory(ctx, size); err != nil {
		return sigset.Set{}, nil, err
	}
	defer s.Controller.ReleaseMemory(size)

	data, err := s.read(ctx, blob)
	if err != nil {
		return sigset.Set{}, nil, fmt.Errorf("artifact: read %s: %w", name, err)
	}

	set, err := Decode(data, l)
	if err != nil {
		return sigset.Set{}, nil, fmt.Errorf("artifact: decode %s: %w", name, err)
	}

	info := describe(name, l, data, set)
	s.logger().DebugContext(ctx, "signature set loaded",
		"name", name,
		"layout", l.String(),
		"signatures", info.Signatures,
		"bytes", info.Size,
		"duration", time.Since(start),
	)
	return set, info, nil
}

// read returns the blob contents. Mapped blobs are used in place; the
// returned slice is only valid until the blob is closed.
func (s *Store) read(ctx context.Context, blob blobstore.Blob) ([]byte, error) {
	size := blob.Size()
	if size == 0 {
		return nil, nil
	}

	if m, ok := blob.(blobstore.Mappable); ok {
		data, err := m.Bytes()
		if err != nil {
			return nil, err
		}
		if err := s.Controller.AcquireIO(ctx, len(data)); err != nil {
			return nil, err
		}
		return data, nil
	}

	rc, err := blob.ReadRange(ctx, 0, size)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data := make([]byte, size)
	if _, err := io.ReadFull(resource.NewRateLimitedReader(ctx, rc, s.Controller), data); err != nil {
		return nil, err
	}
	return data, nil
}

func describe(name string, l Layout, data []byte, set sigset.Set) *Info {
	info := &Info{
		Name:       name,
		Layout:     l,
		Size:       int64(len(data)),
		Checksum:   hash.CRC32C(data),
		Signatures: set.Len(),
	}
	if sorted := set.Sorted(); len(sorted) > 0 {
		info.Min = sorted[0]
		info.Max = sorted[len(sorted)-1]
	}
	return info
}
