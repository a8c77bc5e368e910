package flowsig

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/flowsig/discretize"
	"github.com/hupe1980/flowsig/fingerprint"
	"github.com/hupe1980/flowsig/sigset"
)

// Verdict is the classification of one flow.
type Verdict uint8

const (
	// Normal means the flow's signature was seen in training.
	Normal Verdict = 0
	// Anomalous means the flow's signature is not in the set.
	Anomalous Verdict = 1
)

func (v Verdict) String() string {
	switch v {
	case Normal:
		return "normal"
	case Anomalous:
		return "anomalous"
	default:
		return fmt.Sprintf("Verdict(%d)", uint8(v))
	}
}

// FitReport summarizes a training run.
type FitReport struct {
	Rows       int
	Features   int
	Signatures int
	// DomainWarnings lists, ascending, the rows with undefined feature values.
	DomainWarnings []int
	Duration       time.Duration
}

// PredictReport summarizes an inference run.
type PredictReport struct {
	Rows      int
	Anomalies int
	// DomainWarnings lists, ascending, the rows with undefined feature values.
	DomainWarnings []int
	Duration       time.Duration
}

// Model is a signature set together with the base it was built with.
//
// Predict, PredictOne and Signatures are safe for concurrent use.
// Fit and LoadSignatureSet take an exclusive lock.
type Model struct {
	mu       sync.RWMutex
	disc     *discretize.Discretizer
	set      sigset.Set
	features int // 0 when unknown
	trained  bool
	opts     options
}

// New creates an untrained model for the given logarithm base.
func New(base float64, optFns ...Option) (*Model, error) {
	opts := applyOptions(optFns)

	d, err := discretize.New(base, func(o *discretize.Options) {
		o.Policy = opts.policy
	})
	if err != nil {
		return nil, &InvalidBaseError{Base: base, cause: err}
	}

	opts.logger = opts.logger.WithBase(base)

	return &Model{
		disc: d,
		opts: opts,
	}, nil
}

// Base returns the logarithm base.
func (m *Model) Base() float64 { return m.disc.Base() }

// Len returns the number of signatures in the set.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.Len()
}

// Trained reports whether the model was fitted or loaded.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// Features returns the feature count recorded by Fit, or 0 when unknown.
func (m *Model) Features() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.features
}

// Fit replaces the signature set with the signatures of every row of x.
func (m *Model) Fit(ctx context.Context, x Matrix) (*FitReport, error) {
	start := time.Now()
	report, err := m.fit(ctx, x)
	if report != nil {
		report.Duration = time.Since(start)
	}

	m.opts.logger.LogFit(ctx, report, err)
	if err == nil {
		m.opts.metrics.OnFit(report.Rows, report.Signatures, report.Duration, nil)
		if n := len(report.DomainWarnings); n > 0 {
			m.opts.metrics.OnDomainWarning("fit", n)
		}
	} else {
		m.opts.metrics.OnFit(len(x), 0, time.Since(start), err)
	}
	return report, err
}

func (m *Model) fit(ctx context.Context, x Matrix) (*FitReport, error) {
	features, err := x.Validate()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := numChunks(len(x), m.opts.chunkSize)
	locals := make([]sigset.Set, n)
	results := make([]chunkResult, n)

	err = m.forEachChunk(ctx, len(x), func(chunk, lo, hi int) {
		p := newRowPipeline(m.disc, features)
		local := sigset.New(hi - lo)
		res := &results[chunk]
		for i := lo; i < hi; i++ {
			sig, undefined, err := p.signature(i, x[i])
			if err != nil {
				res.err = err
				return
			}
			if undefined {
				res.warnings = append(res.warnings, i)
			}
			local.Add(sig)
		}
		locals[chunk] = local
	})
	if err != nil {
		return nil, err
	}

	warnings, err := reduce(results)
	if err != nil {
		return nil, err
	}

	set := sigset.New(len(x))
	for _, local := range locals {
		set.Merge(local)
	}

	m.set = set
	m.features = features
	m.trained = true

	return &FitReport{
		Rows:           len(x),
		Features:       features,
		Signatures:     set.Len(),
		DomainWarnings: warnings,
	}, nil
}

// Predict classifies every row of x. verdicts[i] belongs to x[i].
//
// An empty matrix yields no verdicts. Predicting with an untrained model
// classifies every row as Anomalous.
func (m *Model) Predict(ctx context.Context, x Matrix) ([]Verdict, *PredictReport, error) {
	start := time.Now()
	verdicts, report, err := m.predict(ctx, x)
	if report != nil {
		report.Duration = time.Since(start)
	}

	m.opts.logger.LogPredict(ctx, report, err)
	if err == nil {
		m.opts.metrics.OnPredict(report.Rows, report.Anomalies, report.Duration, nil)
		if n := len(report.DomainWarnings); n > 0 {
			m.opts.metrics.OnDomainWarning("predict", n)
		}
	} else {
		m.opts.metrics.OnPredict(len(x), 0, time.Since(start), err)
	}
	return verdicts, report, err
}

func (m *Model) predict(ctx context.Context, x Matrix) ([]Verdict, *PredictReport, error) {
	if len(x) == 0 {
		return []Verdict{}, &PredictReport{}, nil
	}

	features, err := x.Validate()
	if err != nil {
		return nil, nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.features != 0 && m.features != features {
		return nil, nil, &ColumnMismatchError{Expected: m.features, Actual: features}
	}

	verdicts := make([]Verdict, len(x))
	results := make([]chunkResult, numChunks(len(x), m.opts.chunkSize))

	err = m.forEachChunk(ctx, len(x), func(chunk, lo, hi int) {
		p := newRowPipeline(m.disc, features)
		res := &results[chunk]
		for i := lo; i < hi; i++ {
			sig, undefined, err := p.signature(i, x[i])
			if err != nil {
				res.err = err
				return
			}
			if undefined {
				res.warnings = append(res.warnings, i)
			}
			if !m.set.Contains(sig) {
				verdicts[i] = Anomalous
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}

	warnings, err := reduce(results)
	if err != nil {
		return nil, nil, err
	}

	report := &PredictReport{Rows: len(x), DomainWarnings: warnings}
	for _, v := range verdicts {
		if v == Anomalous {
			report.Anomalies++
		}
	}
	return verdicts, report, nil
}

// PredictOne classifies a single feature vector.
func (m *Model) PredictOne(v []float64) (Verdict, error) {
	start := time.Now()
	verdict, err := m.predictOne(v)

	anomalies := 0
	if err == nil && verdict == Anomalous {
		anomalies = 1
	}
	m.opts.metrics.OnPredict(1, anomalies, time.Since(start), err)
	return verdict, err
}

func (m *Model) predictOne(v []float64) (Verdict, error) {
	if len(v) == 0 {
		return Anomalous, fmt.Errorf("%w: feature vector is empty", ErrInvalidInput)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.features != 0 && m.features != len(v) {
		return Anomalous, &ColumnMismatchError{Expected: m.features, Actual: len(v)}
	}

	sig, undefined, err := newRowPipeline(m.disc, len(v)).signature(0, v)
	if err != nil {
		return Anomalous, err
	}
	if undefined {
		m.opts.metrics.OnDomainWarning("predict", 1)
	}
	if m.set.Contains(sig) {
		return Normal, nil
	}
	return Anomalous, nil
}

// Signatures returns the signature of every row of x in row order.
// The model's set is not consulted.
func (m *Model) Signatures(ctx context.Context, x Matrix) ([]fingerprint.Signature, error) {
	if len(x) == 0 {
		return []fingerprint.Signature{}, nil
	}

	features, err := x.Validate()
	if err != nil {
		return nil, err
	}

	sigs := make([]fingerprint.Signature, len(x))
	results := make([]chunkResult, numChunks(len(x), m.opts.chunkSize))

	err = m.forEachChunk(ctx, len(x), func(chunk, lo, hi int) {
		p := newRowPipeline(m.disc, features)
		res := &results[chunk]
		for i := lo; i < hi; i++ {
			sig, undefined, err := p.signature(i, x[i])
			if err != nil {
				res.err = err
				return
			}
			if undefined {
				res.warnings = append(res.warnings, i)
			}
			sigs[i] = sig
		}
	})
	if err != nil {
		return nil, err
	}

	warnings, err := reduce(results)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		m.opts.logger.WarnContext(ctx, "signatures encountered undefined feature values",
			"rows", len(warnings),
			"first_row", warnings[0],
		)
		m.opts.metrics.OnDomainWarning("signatures", len(warnings))
	}
	return sigs, nil
}

// LoadSignatureSet replaces the signature set with a copy of s.
//
// The feature count becomes unknown, so Predict accepts any width.
// The caller is responsible for s having been built with the same base.
func (m *Model) LoadSignatureSet(s sigset.Set) {
	m.replaceSet(s.Clone())
}

func (m *Model) replaceSet(s sigset.Set) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set = s
	m.features = 0
	m.trained = true
}

// ExportSignatureSet returns the signatures sorted ascending.
func (m *Model) ExportSignatureSet() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.Sorted()
}

// SignatureSet returns a copy of the signature set.
func (m *Model) SignatureSet() sigset.Set {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.Clone()
}

// SetFeatures records the expected feature count, e.g. from a registry
// manifest, after LoadSignatureSet. n = 0 disables the check.
func (m *Model) SetFeatures(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative feature count %d", ErrInvalidConfiguration, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features = n
	return nil
}

// IsNormal reports whether a precomputed signature is in the set.
func (m *Model) IsNormal(sig fingerprint.Signature) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.Contains(sig)
}
