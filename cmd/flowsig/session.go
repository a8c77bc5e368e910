package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/hupe1980/flowsig"
	"github.com/hupe1980/flowsig/blobstore"
	"github.com/hupe1980/flowsig/blobstore/minio"
	s3store "github.com/hupe1980/flowsig/blobstore/s3"
	"github.com/hupe1980/flowsig/discretize"
	"github.com/hupe1980/flowsig/internal/cache"
	"github.com/hupe1980/flowsig/internal/config"
	"github.com/hupe1980/flowsig/metrics/prom"
	"github.com/hupe1980/flowsig/registry"
	ddbregistry "github.com/hupe1980/flowsig/registry/dynamodb"
	"github.com/hupe1980/flowsig/resource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

// session holds everything a command needs, built from the configuration.
type session struct {
	cfg        *config.Config
	logger     *flowsig.Logger
	store      blobstore.BlobStore
	sigset     string
	registry   registry.Registry // nil when disabled
	controller *resource.Controller
	metrics    *prometheus.Registry
	observer   *prom.Observer
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(c.App.ErrWriter, cfg.Log)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		logger:  logger,
		sigset:  cfg.Sigset,
		metrics: prometheus.NewRegistry(),
		controller: resource.NewController(resource.Config{
			MaxWorkers:         int64(cfg.Workers),
			MemoryLimitBytes:   cfg.Limits.MemoryBytes,
			IOLimitBytesPerSec: cfg.Limits.IOBytesPerSec,
		}),
	}

	s.observer, err = prom.NewObserver(s.metrics)
	if err != nil {
		return nil, err
	}

	if err := s.openStore(c.Context); err != nil {
		return nil, err
	}
	if err := s.openRegistry(c.Context); err != nil {
		return nil, err
	}
	return s, nil
}

func newLogger(w io.Writer, cfg config.Log) (*flowsig.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	if w == nil {
		w = io.Discard
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return flowsig.NewLogger(slog.NewJSONHandler(w, opts)), nil
	}
	return flowsig.NewLogger(slog.NewTextHandler(w, opts)), nil
}

func (s *session) openStore(ctx context.Context) error {
	sc := s.cfg.Storage

	switch sc.Kind {
	case config.StorageLocal:
		root := sc.Dir
		// Absolute signature set paths root the store at their directory.
		if filepath.IsAbs(s.sigset) {
			root, s.sigset = filepath.Split(s.sigset)
		}
		s.store = blobstore.NewLocalStore(root)
	case config.StorageS3:
		opts := []s3store.Option{s3store.WithPrefix(sc.Prefix), s3store.WithRegion(sc.Region)}
		if sc.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(sc.Endpoint))
		}
		store, err := s3store.New(ctx, sc.Bucket, opts...)
		if err != nil {
			return err
		}
		s.store = s.cached(store)
	case config.StorageMinIO:
		store, err := minio.Dial(minio.Config{
			Endpoint:  sc.Endpoint,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
			Region:    sc.Region,
			Secure:    sc.Secure,
			Bucket:    sc.Bucket,
			Prefix:    sc.Prefix,
		})
		if err != nil {
			return err
		}
		s.store = s.cached(store)
	default:
		return fmt.Errorf("unknown storage kind %q", sc.Kind)
	}
	return nil
}

// cached wraps a remote store in a block cache.
func (s *session) cached(store blobstore.BlobStore) blobstore.BlobStore {
	if s.cfg.Storage.CacheBytes <= 0 {
		return store
	}
	return blobstore.NewCachingStore(store, cache.NewLRU(s.cfg.Storage.CacheBytes, nil), 0)
}

func (s *session) openRegistry(ctx context.Context) error {
	rc := s.cfg.Registry

	switch rc.Kind {
	case config.RegistryNone:
	case config.RegistryBlob:
		s.registry = registry.NewBlobRegistry(s.store)
	case config.RegistryDynamoDB:
		r, err := ddbregistry.NewFromConfig(ctx, rc.Table, rc.Name, s.cfg.Storage.Region)
		if err != nil {
			return err
		}
		s.registry = r
	default:
		return fmt.Errorf("unknown registry kind %q", rc.Kind)
	}
	return nil
}

func (s *session) modelOptions() []flowsig.Option {
	policy, _ := discretize.ParseDomainPolicy(s.cfg.DomainPolicy) // checked by Validate

	return []flowsig.Option{
		flowsig.WithLogger(s.logger),
		flowsig.WithMetricsObserver(s.observer),
		flowsig.WithResourceController(s.controller),
		flowsig.WithWorkers(s.cfg.Workers),
		flowsig.WithChunkSize(s.cfg.ChunkSize),
		flowsig.WithDomainPolicy(policy),
	}
}

// close writes the metrics text file, if configured.
func (s *session) close(runErr error) error {
	path := s.cfg.Metrics.Textfile
	if path == "" {
		return runErr
	}

	err := prometheus.WriteToTextfile(path, s.metrics)
	if err != nil {
		err = fmt.Errorf("write metrics: %w", err)
	}
	return errors.Join(runErr, err)
}

// withSession builds a session, runs fn, and closes the session.
func withSession(fn func(ctx context.Context, s *session, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := newSession(c)
		if err != nil {
			return err
		}
		return s.close(fn(c.Context, s, c))
	}
}
