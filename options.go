package flowsig

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/flowsig/discretize"
	"github.com/hupe1980/flowsig/resource"
)

// DefaultChunkSize is the number of rows handed to a worker at a time.
const DefaultChunkSize = 1024

// DomainPolicy re-exports discretize.DomainPolicy.
type DomainPolicy = discretize.DomainPolicy

const (
	// DomainSentinel encodes undefined features as discretize.UndefinedCode
	// and reports the row in DomainWarnings.
	DomainSentinel = discretize.DomainSentinel
	// DomainReject fails the operation with a *DomainError.
	DomainReject = discretize.DomainReject
)

type options struct {
	workers    int
	chunkSize  int
	policy     DomainPolicy
	logger     *Logger
	metrics    MetricsObserver
	controller *resource.Controller
}

// Option configures a Model.
type Option func(*options)

// WithWorkers sets the maximum number of goroutines working on one batch.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithChunkSize sets the number of rows per work item.
// Values <= 0 select DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = DefaultChunkSize
		}
		o.chunkSize = n
	}
}

// WithDomainPolicy selects how undefined feature values are handled.
func WithDomainPolicy(p DomainPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := flowsig.NewJSONLogger(slog.LevelInfo)
//	model, _ := flowsig.New(2, flowsig.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsObserver configures a metrics observer.
// Pass nil to disable metrics collection.
//
//	metrics := &flowsig.BasicMetricsObserver{}
//	model, _ := flowsig.New(2, flowsig.WithMetricsObserver(metrics))
//	// ... use model ...
//	stats := metrics.GetStats()
func WithMetricsObserver(mo MetricsObserver) Option {
	return func(o *options) {
		if mo == nil {
			mo = NoopMetricsObserver{}
		}
		o.metrics = mo
	}
}

// WithResourceController shares a worker budget with other models.
// Every chunk holds one worker slot of rc while it runs.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		workers:   runtime.GOMAXPROCS(0),
		chunkSize: DefaultChunkSize,
		policy:    DomainSentinel,
		logger:    NoopLogger(),
		metrics:   NoopMetricsObserver{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
