// Package config loads the flowsig CLI configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/flowsig/discretize"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultBase   = 2.0
	DefaultSigset = "sigset.npy"
	DefaultResult = "predictions.csv"

	DefaultCacheBytes = 64 << 20
)

// Storage kinds.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageMinIO = "minio"
)

// Registry kinds. The empty kind disables the registry.
const (
	RegistryNone     = ""
	RegistryBlob     = "blob"
	RegistryDynamoDB = "dynamodb"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the CLI configuration.
type Config struct {
	Base         float64  `yaml:"base"`
	Sigset       string   `yaml:"sigset"`
	Result       string   `yaml:"result"`
	Workers      int      `yaml:"workers"`
	ChunkSize    int      `yaml:"chunk_size"`
	DomainPolicy string   `yaml:"domain_policy"`
	Log          Log      `yaml:"log"`
	Storage      Storage  `yaml:"storage"`
	Registry     Registry `yaml:"registry"`
	Columns      Columns  `yaml:"columns"`
	Metrics      Metrics  `yaml:"metrics"`
	Limits       Limits   `yaml:"limits"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Storage selects where artifacts live.
type Storage struct {
	Kind      string `yaml:"kind"`
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`

	// CacheBytes bounds the in-memory block cache of remote stores.
	// Zero disables it.
	CacheBytes int64 `yaml:"cache_bytes"`
}

// Registry selects where manifests are committed.
type Registry struct {
	Kind  string `yaml:"kind"`
	Table string `yaml:"table"`
	Name  string `yaml:"name"`
}

// Columns selects feature columns of the input CSV.
type Columns struct {
	Select []string `yaml:"select"`
	Drop   []string `yaml:"drop"`
}

// Metrics configures the Prometheus text file written on exit.
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Limits bounds memory reserved for artifact decoding and artifact IO
// throughput. Zero means unlimited.
type Limits struct {
	MemoryBytes   int64 `yaml:"memory_bytes"`
	IOBytesPerSec int64 `yaml:"io_bytes_per_sec"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	return &Config{
		Base:   DefaultBase,
		Sigset: DefaultSigset,
		Result: DefaultResult,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Storage: Storage{
			Kind:       StorageLocal,
			Dir:        ".",
			CacheBytes: DefaultCacheBytes,
		},
		Registry: Registry{
			Name: "default",
		},
	}
}

// Load reads path on top of Default. An empty path returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.decode(b); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(b); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration before any work starts.
func (c *Config) Validate() error {
	if err := discretize.ValidateBase(c.Base); err != nil {
		return fmt.Errorf("%w: base must be greater than 1, got %v", ErrInvalid, c.Base)
	}
	if c.Sigset == "" {
		return fmt.Errorf("%w: sigset is empty", ErrInvalid)
	}
	if c.Workers < 0 || c.ChunkSize < 0 {
		return fmt.Errorf("%w: workers and chunk_size must not be negative", ErrInvalid)
	}
	if c.Limits.MemoryBytes < 0 || c.Limits.IOBytesPerSec < 0 || c.Storage.CacheBytes < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalid)
	}
	if _, err := discretize.ParseDomainPolicy(c.DomainPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}

	switch c.Storage.Kind {
	case StorageLocal:
	case StorageS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: storage.bucket is required for s3", ErrInvalid)
		}
	case StorageMinIO:
		if c.Storage.Bucket == "" || c.Storage.Endpoint == "" {
			return fmt.Errorf("%w: storage.bucket and storage.endpoint are required for minio", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage kind %q", ErrInvalid, c.Storage.Kind)
	}

	switch c.Registry.Kind {
	case RegistryNone, RegistryBlob:
	case RegistryDynamoDB:
		if c.Registry.Table == "" {
			return fmt.Errorf("%w: registry.table is required for dynamodb", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown registry kind %q", ErrInvalid, c.Registry.Kind)
	}
	return nil
}

// SlogLevel parses Level. Empty means info.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
