package flowsig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/flowsig/artifact"
	"github.com/hupe1980/flowsig/blobstore"
)

func (m *Model) artifactStore(store blobstore.BlobStore) *artifact.Store {
	return artifact.NewStore(store,
		artifact.WithController(m.opts.controller),
		artifact.WithLogger(m.opts.logger.Logger),
	)
}

func storageError(op, path string, err error) error {
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		err = fmt.Errorf("%w: %w", ErrStorageNotFound, err)
	case errors.Is(err, artifact.ErrCorrupt), errors.Is(err, artifact.ErrUnknownFormat):
		err = fmt.Errorf("%w: %w", ErrStorageCorrupt, err)
	}
	return &StorageError{Op: op, Path: path, Err: err}
}

// SaveModel persists the model's signature set as name in store.
// The layout follows the name's suffixes (see artifact.FormatFromName).
func SaveModel(ctx context.Context, store blobstore.BlobStore, name string, m *Model) (*artifact.Info, error) {
	start := time.Now()

	set := m.SignatureSet()
	info, err := m.artifactStore(store).Save(ctx, name, set)
	if err != nil {
		err = storageError("save", name, err)
	}

	m.opts.logger.LogSave(ctx, name, set.Len(), err)
	m.opts.metrics.OnSave(set.Len(), time.Since(start), err)
	return info, err
}

// LoadModel creates a model for base and loads its signature set from
// name in store.
//
// base must be the base the set was trained with; it is not recorded in
// the artifact.
func LoadModel(ctx context.Context, store blobstore.BlobStore, name string, base float64, optFns ...Option) (*Model, error) {
	m, err := New(base, optFns...)
	if err != nil {
		return nil, err
	}

	if err := m.Load(ctx, store, name); err != nil {
		return nil, err
	}
	return m, nil
}

// Load replaces the model's signature set with the one stored as name.
func (m *Model) Load(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()

	set, err := m.artifactStore(store).Load(ctx, name)
	if err != nil {
		err = storageError("load", name, err)
		m.opts.logger.LogLoad(ctx, name, 0, err)
		m.opts.metrics.OnLoad(0, time.Since(start), err)
		return err
	}

	m.replaceSet(set)

	m.opts.logger.LogLoad(ctx, name, set.Len(), nil)
	m.opts.metrics.OnLoad(set.Len(), time.Since(start), nil)
	return nil
}

// LoadVerified is Load with a check on the artifact's metadata. verify
// sees the Info of the exact bytes that were decoded; the model keeps its
// previous set when verify fails.
func (m *Model) LoadVerified(ctx context.Context, store blobstore.BlobStore, name string, verify func(*artifact.Info) error) error {
	start := time.Now()

	set, info, err := m.artifactStore(store).LoadWithInfo(ctx, name)
	if err != nil {
		err = storageError("load", name, err)
	} else if verify != nil {
		err = verify(info)
	}
	if err != nil {
		m.opts.logger.LogLoad(ctx, name, 0, err)
		m.opts.metrics.OnLoad(0, time.Since(start), err)
		return err
	}

	m.replaceSet(set)

	m.opts.logger.LogLoad(ctx, name, set.Len(), nil)
	m.opts.metrics.OnLoad(set.Len(), time.Since(start), nil)
	return nil
}
