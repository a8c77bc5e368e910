package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hupe1980/flowsig/blobstore"
)

const (
	// CurrentFileName holds the path of the latest manifest.
	CurrentFileName = "CURRENT"
	manifestDir     = "manifests"
)

// BlobRegistry stores manifests as JSON blobs.
type BlobRegistry struct {
	blobs blobstore.BlobStore
	mu    sync.Mutex
	now   func() time.Time
}

// NewBlobRegistry creates a registry inside blobs.
func NewBlobRegistry(blobs blobstore.BlobStore) *BlobRegistry {
	return &BlobRegistry{
		blobs: blobs,
		now:   time.Now,
	}
}

func manifestName(version uint64) string {
	return fmt.Sprintf("%s/%06d.json", manifestDir, version)
}

// Commit implements Registry.
func (r *BlobRegistry) Commit(ctx context.Context, m *Manifest) (*Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next uint64 = 1
	latest, err := r.latest(ctx)
	switch {
	case err == nil:
		next = latest.Version + 1
	case errors.Is(err, ErrNoManifest):
	default:
		return nil, err
	}

	c, err := Prepare(m, next, r.now())
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}

	// 1. Write the manifest itself.
	name := manifestName(c.Version)
	if err := r.blobs.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("registry: write %s: %w", name, err)
	}

	// 2. Move the CURRENT pointer.
	if err := r.blobs.Put(ctx, CurrentFileName, []byte(name)); err != nil {
		return nil, fmt.Errorf("registry: write %s: %w", CurrentFileName, err)
	}
	return c, nil
}

// Latest implements Registry.
func (r *BlobRegistry) Latest(ctx context.Context) (*Manifest, error) {
	return r.latest(ctx)
}

func (r *BlobRegistry) latest(ctx context.Context) (*Manifest, error) {
	content, err := blobstore.ReadAll(ctx, r.blobs, CurrentFileName)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrNoManifest
	}
	if err != nil {
		return nil, err
	}
	return r.read(ctx, strings.TrimSpace(string(content)))
}

// Get implements Registry.
func (r *BlobRegistry) Get(ctx context.Context, version uint64) (*Manifest, error) {
	return r.read(ctx, manifestName(version))
}

// Versions lists the committed versions in ascending order.
func (r *BlobRegistry) Versions(ctx context.Context) ([]uint64, error) {
	names, err := r.blobs.List(ctx, manifestDir+"/")
	if err != nil {
		return nil, err
	}
	var versions []uint64
	for _, name := range names {
		var v uint64
		if _, err := fmt.Sscanf(name, manifestDir+"/%d.json", &v); err == nil {
			versions = append(versions, v)
		}
	}
	slices.Sort(versions)
	return versions, nil
}

func (r *BlobRegistry) read(ctx context.Context, name string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, r.blobs, name)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", name, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

var _ Registry = (*BlobRegistry)(nil)
