package flowsig

import (
	"sync/atomic"
	"time"
)

// MetricsObserver receives operational metrics from a Model.
// Implement this interface to integrate with monitoring systems;
// metrics/prom provides a Prometheus implementation.
type MetricsObserver interface {
	// OnFit is called after each Fit. signatures is the size of the new set.
	OnFit(rows, signatures int, duration time.Duration, err error)

	// OnPredict is called after each Predict or PredictOne.
	OnPredict(rows, anomalies int, duration time.Duration, err error)

	// OnDomainWarning is called when rows of an operation ("fit",
	// "predict", "signatures") contained undefined feature values.
	OnDomainWarning(op string, rows int)

	// OnLoad is called after LoadModel.
	OnLoad(signatures int, duration time.Duration, err error)

	// OnSave is called after SaveModel.
	OnSave(signatures int, duration time.Duration, err error)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnFit(int, int, time.Duration, error)     {}
func (NoopMetricsObserver) OnPredict(int, int, time.Duration, error) {}
func (NoopMetricsObserver) OnDomainWarning(string, int)              {}
func (NoopMetricsObserver) OnLoad(int, time.Duration, error)         {}
func (NoopMetricsObserver) OnSave(int, time.Duration, error)         {}

// BasicMetricsObserver provides simple in-memory metrics collection.
type BasicMetricsObserver struct {
	FitCount          atomic.Int64
	FitErrors         atomic.Int64
	FitRows           atomic.Int64
	Signatures        atomic.Int64
	PredictCount      atomic.Int64
	PredictErrors     atomic.Int64
	PredictRows       atomic.Int64
	Anomalies         atomic.Int64
	PredictTotalNanos atomic.Int64
	DomainWarnings    atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
	SaveCount         atomic.Int64
	SaveErrors        atomic.Int64
}

// OnFit implements MetricsObserver.
func (b *BasicMetricsObserver) OnFit(rows, signatures int, _ time.Duration, err error) {
	b.FitCount.Add(1)
	if err != nil {
		b.FitErrors.Add(1)
		return
	}
	b.FitRows.Add(int64(rows))
	b.Signatures.Store(int64(signatures))
}

// OnPredict implements MetricsObserver.
func (b *BasicMetricsObserver) OnPredict(rows, anomalies int, duration time.Duration, err error) {
	b.PredictCount.Add(1)
	b.PredictTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PredictErrors.Add(1)
		return
	}
	b.PredictRows.Add(int64(rows))
	b.Anomalies.Add(int64(anomalies))
}

// OnDomainWarning implements MetricsObserver.
func (b *BasicMetricsObserver) OnDomainWarning(_ string, rows int) {
	b.DomainWarnings.Add(int64(rows))
}

// OnLoad implements MetricsObserver.
func (b *BasicMetricsObserver) OnLoad(signatures int, _ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
		return
	}
	b.Signatures.Store(int64(signatures))
}

// OnSave implements MetricsObserver.
func (b *BasicMetricsObserver) OnSave(_ int, _ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsObserver) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		FitCount:       b.FitCount.Load(),
		FitErrors:      b.FitErrors.Load(),
		FitRows:        b.FitRows.Load(),
		Signatures:     b.Signatures.Load(),
		PredictCount:   b.PredictCount.Load(),
		PredictErrors:  b.PredictErrors.Load(),
		PredictRows:    b.PredictRows.Load(),
		Anomalies:      b.Anomalies.Load(),
		DomainWarnings: b.DomainWarnings.Load(),
		LoadCount:      b.LoadCount.Load(),
		LoadErrors:     b.LoadErrors.Load(),
		SaveCount:      b.SaveCount.Load(),
		SaveErrors:     b.SaveErrors.Load(),
	}
	if s.PredictCount > 0 {
		s.PredictAvgNanos = b.PredictTotalNanos.Load() / s.PredictCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsObserver state.
type BasicMetricsStats struct {
	FitCount        int64
	FitErrors       int64
	FitRows         int64
	Signatures      int64
	PredictCount    int64
	PredictErrors   int64
	PredictRows     int64
	Anomalies       int64
	PredictAvgNanos int64
	DomainWarnings  int64
	LoadCount       int64
	LoadErrors      int64
	SaveCount       int64
	SaveErrors      int64
}
