package main

import (
	"github.com/hupe1980/flowsig/internal/config"
	"github.com/urfave/cli/v2"
)

const envPrefix = "FLOWSIG_"

func env(name string) []string { return []string{envPrefix + name} }

func trainDataFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "train-data",
		Aliases:  []string{"train_data"},
		Usage:    "training data path (.csv)",
		Required: required,
	}
}

func testDataFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "test-data",
		Aliases:  []string{"test_data"},
		Usage:    "test data path (.csv)",
		Required: required,
	}
}

func withCommonFlags(extra ...cli.Flag) []cli.Flag {
	return append(extra, commonFlags()...)
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML configuration file",
			EnvVars: env("CONFIG"),
		},
		&cli.Float64Flag{
			Name:        "base",
			Usage:       "signature log base, must be greater than 1",
			DefaultText: "2",
			EnvVars:     env("BASE"),
		},
		&cli.StringFlag{
			Name:        "sigset",
			Usage:       "signature set name; the suffix selects the format (.npy, .roaring, optional .zst or .lz4)",
			DefaultText: config.DefaultSigset,
			EnvVars:     env("SIGSET"),
		},
		&cli.StringFlag{
			Name:        "result",
			Usage:       "path to save y_pred as CSV",
			DefaultText: config.DefaultResult,
			EnvVars:     env("RESULT"),
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "worker goroutines per batch",
			DefaultText: "GOMAXPROCS",
			EnvVars:     env("WORKERS"),
		},
		&cli.StringFlag{
			Name:        "domain-policy",
			Usage:       "handling of values with undefined logarithm: sentinel or reject",
			DefaultText: "sentinel",
			EnvVars:     env("DOMAIN_POLICY"),
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "debug, info, warn or error",
			DefaultText: "info",
			EnvVars:     env("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "text or json",
			DefaultText: "text",
			EnvVars:     env("LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:        "storage",
			Usage:       "artifact storage: local, s3 or minio",
			DefaultText: config.StorageLocal,
			EnvVars:     env("STORAGE"),
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "root directory of local storage",
			DefaultText: ".",
			EnvVars:     env("STORAGE_DIR"),
		},
		&cli.StringFlag{
			Name:    "bucket",
			Usage:   "bucket for s3 or minio storage",
			EnvVars: env("BUCKET"),
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "key prefix for s3 or minio storage",
			EnvVars: env("PREFIX"),
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "s3-compatible endpoint",
			EnvVars: env("ENDPOINT"),
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "storage and registry region",
			EnvVars: env("REGION"),
		},
		&cli.StringFlag{
			Name:    "access-key",
			Usage:   "minio access key",
			EnvVars: env("ACCESS_KEY"),
		},
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "minio secret key",
			EnvVars: env("SECRET_KEY"),
		},
		&cli.BoolFlag{
			Name:    "secure",
			Usage:   "use TLS for minio",
			EnvVars: env("SECURE"),
		},
		&cli.StringFlag{
			Name:    "registry",
			Usage:   "manifest registry: blob or dynamodb (disabled when empty)",
			EnvVars: env("REGISTRY"),
		},
		&cli.StringFlag{
			Name:    "registry-table",
			Usage:   "dynamodb table of the registry",
			EnvVars: env("REGISTRY_TABLE"),
		},
		&cli.StringFlag{
			Name:        "registry-name",
			Usage:       "registry partition for dynamodb",
			DefaultText: "default",
			EnvVars:     env("REGISTRY_NAME"),
		},
		&cli.StringSliceFlag{
			Name:    "select",
			Usage:   "feature columns to keep, in order",
			EnvVars: env("SELECT"),
		},
		&cli.StringSliceFlag{
			Name:    "drop",
			Usage:   "columns to drop (labels, identifiers)",
			EnvVars: env("DROP"),
		},
		&cli.StringFlag{
			Name:    "metrics-textfile",
			Usage:   "write Prometheus metrics to this file on exit",
			EnvVars: env("METRICS_TEXTFILE"),
		},
	}
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("base") {
		cfg.Base = c.Float64("base")
	}
	setString(c, "sigset", &cfg.Sigset)
	setString(c, "result", &cfg.Result)
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	setString(c, "domain-policy", &cfg.DomainPolicy)
	setString(c, "log-level", &cfg.Log.Level)
	setString(c, "log-format", &cfg.Log.Format)
	setString(c, "storage", &cfg.Storage.Kind)
	setString(c, "storage-dir", &cfg.Storage.Dir)
	setString(c, "bucket", &cfg.Storage.Bucket)
	setString(c, "prefix", &cfg.Storage.Prefix)
	setString(c, "endpoint", &cfg.Storage.Endpoint)
	setString(c, "region", &cfg.Storage.Region)
	setString(c, "access-key", &cfg.Storage.AccessKey)
	setString(c, "secret-key", &cfg.Storage.SecretKey)
	if c.IsSet("secure") {
		cfg.Storage.Secure = c.Bool("secure")
	}
	setString(c, "registry", &cfg.Registry.Kind)
	setString(c, "registry-table", &cfg.Registry.Table)
	setString(c, "registry-name", &cfg.Registry.Name)
	if c.IsSet("select") {
		cfg.Columns.Select = c.StringSlice("select")
	}
	if c.IsSet("drop") {
		cfg.Columns.Drop = c.StringSlice("drop")
	}
	setString(c, "metrics-textfile", &cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}
