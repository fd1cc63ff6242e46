// Package metrics exposes sync engine counters to Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iudanet/fieldsync/internal/models"
)

const (
	namespace = "fieldsync"
	subsystem = "sync"
)

// Cycle outcomes
const (
	ResultOK           = "ok"
	ResultUnauthorized = "unauthorized"
	ResultError        = "error"
)

// Sync holds the sync engine collectors. A nil *Sync records nothing.
type Sync struct {
	pushed    *prometheus.CounterVec
	failed    *prometheus.CounterVec
	pulled    *prometheus.CounterVec
	conflicts prometheus.Counter
	cycles    *prometheus.CounterVec
	pending   prometheus.Gauge
	duration  prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Sync, error) {
	m := &Sync{
		pushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pushed_documents_total",
			Help:      "Documents accepted by the authority.",
		}, []string{"entity_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "push_failures_total",
			Help:      "Documents left pending after a failed push.",
		}, []string{"entity_type"}),
		pulled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "merged_documents_total",
			Help:      "Remote records that changed local state.",
		}, []string{"entity_type"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conflicts_total",
			Help:      "Conflicts raised by pull.",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_total",
			Help:      "Sync cycles by outcome.",
		}, []string{"result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pending_documents",
			Help:      "Documents waiting to be pushed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of sync cycles.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	collectors := []prometheus.Collector{m.pushed, m.failed, m.pulled, m.conflicts, m.cycles, m.pending, m.duration}
	var errs []error
	for _, c := range collectors {
		errs = append(errs, reg.Register(c))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Sync) Pushed(t models.EntityType) {
	if m == nil {
		return
	}
	m.pushed.WithLabelValues(string(t)).Inc()
}

func (m *Sync) Failed(t models.EntityType) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(string(t)).Inc()
}

func (m *Sync) Merged(t models.EntityType, n int) {
	if m == nil || n == 0 {
		return
	}
	m.pulled.WithLabelValues(string(t)).Add(float64(n))
}

func (m *Sync) Conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Sync) Pending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// Cycle records a finished cycle.
func (m *Sync) Cycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.duration.Observe(d.Seconds())
}
