package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 2.0, cfg.Base)
	assert.Equal(t, "sigset.npy", cfg.Sigset)
	assert.Equal(t, "predictions.csv", cfg.Result)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowsig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base: 4
sigset: models/campus.npy.zst
workers: 8
domain_policy: reject
log:
  level: debug
  format: json
storage:
  kind: minio
  endpoint: localhost:9000
  bucket: flowsig
  prefix: models
registry:
  kind: blob
columns:
  drop: [label]
metrics:
  textfile: /var/lib/node_exporter/flowsig.prom
limits:
  io_bytes_per_sec: 1048576
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4.0, cfg.Base)
	assert.Equal(t, "models/campus.npy.zst", cfg.Sigset)
	assert.Equal(t, "predictions.csv", cfg.Result, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, StorageMinIO, cfg.Storage.Kind)
	assert.Equal(t, "models", cfg.Storage.Prefix)
	assert.Equal(t, RegistryBlob, cfg.Registry.Kind)
	assert.Equal(t, "default", cfg.Registry.Name)
	assert.Equal(t, []string{"label"}, cfg.Columns.Drop)
	assert.Equal(t, "/var/lib/node_exporter/flowsig.prom", cfg.Metrics.Textfile)
	assert.Equal(t, int64(1<<20), cfg.Limits.IOBytesPerSec)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Parse([]byte("bse: 2\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Parse([]byte("base: [1\n"))
	assert.Error(t, err)

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"base one", func(c *Config) { c.Base = 1 }},
		{"base below one", func(c *Config) { c.Base = 0.5 }},
		{"empty sigset", func(c *Config) { c.Sigset = "" }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative limit", func(c *Config) { c.Limits.IOBytesPerSec = -1 }},
		{"domain policy", func(c *Config) { c.DomainPolicy = "clamp" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"storage kind", func(c *Config) { c.Storage.Kind = "ftp" }},
		{"s3 bucket", func(c *Config) { c.Storage.Kind = StorageS3 }},
		{"minio endpoint", func(c *Config) { c.Storage.Kind = StorageMinIO; c.Storage.Bucket = "b" }},
		{"registry kind", func(c *Config) { c.Registry.Kind = "etcd" }},
		{"dynamodb table", func(c *Config) { c.Registry.Kind = RegistryDynamoDB }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	t.Run("just above one", func(t *testing.T) {
		cfg := Default()
		cfg.Base = 1.0000001
		assert.NoError(t, cfg.Validate())
	})
}
