// Package prom exports flowsig model metrics to Prometheus.
package prom

import (
	"time"

	"github.com/hupe1980/flowsig"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "flowsig"

// Observer implements flowsig.MetricsObserver.
type Observer struct {
	opLatency      *prometheus.HistogramVec
	operations     *prometheus.CounterVec
	rows           *prometheus.CounterVec
	anomalies      prometheus.Counter
	domainWarnings *prometheus.CounterVec
	signatures     prometheus.Gauge
}

// NewObserver creates an Observer and registers its collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of model operations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"op", "status"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total model operations",
		}, []string{"op", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rows_total",
			Help:      "Total feature rows processed",
		}, []string{"op"}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "anomalies_total",
			Help:      "Total rows predicted anomalous",
		}),
		domainWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "domain_warning_rows_total",
			Help:      "Total rows with undefined feature values",
		}, []string{"op"}),
		signatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "signatures",
			Help:      "Size of the current signature set",
		}),
	}

	for _, c := range []prometheus.Collector{
		o.opLatency, o.operations, o.rows, o.anomalies, o.domainWarnings, o.signatures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustNewObserver is like NewObserver but panics on registration errors.
func MustNewObserver(reg prometheus.Registerer) *Observer {
	o, err := NewObserver(reg)
	if err != nil {
		panic(err)
	}
	return o
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (o *Observer) observe(op string, d time.Duration, err error) {
	s := status(err)
	o.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	o.operations.WithLabelValues(op, s).Inc()
}

// OnFit implements flowsig.MetricsObserver.
func (o *Observer) OnFit(rows, signatures int, d time.Duration, err error) {
	o.observe("fit", d, err)
	if err != nil {
		return
	}
	o.rows.WithLabelValues("fit").Add(float64(rows))
	o.signatures.Set(float64(signatures))
}

// OnPredict implements flowsig.MetricsObserver.
func (o *Observer) OnPredict(rows, anomalies int, d time.Duration, err error) {
	o.observe("predict", d, err)
	if err != nil {
		return
	}
	o.rows.WithLabelValues("predict").Add(float64(rows))
	o.anomalies.Add(float64(anomalies))
}

// OnDomainWarning implements flowsig.MetricsObserver.
func (o *Observer) OnDomainWarning(op string, rows int) {
	o.domainWarnings.WithLabelValues(op).Add(float64(rows))
}

// OnLoad implements flowsig.MetricsObserver.
func (o *Observer) OnLoad(signatures int, d time.Duration, err error) {
	o.observe("load", d, err)
	if err == nil {
		o.signatures.Set(float64(signatures))
	}
}

// OnSave implements flowsig.MetricsObserver.
func (o *Observer) OnSave(signatures int, d time.Duration, err error) {
	o.observe("save", d, err)
}

var _ flowsig.MetricsObserver = (*Observer)(nil)
