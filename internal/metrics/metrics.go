package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homeclock"

// Recorder records coordinator metrics into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	promotions    *prometheus.CounterVec
	reactivations prometheus.Counter
	fatals        prometheus.Counter
	discards      prometheus.Counter
	pending       prometheus.Gauge
	deleting      prometheus.Gauge
	frozen        prometheus.Gauge
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "widget",
				Name:      "operations_total",
				Help:      "Family operations by name and result.",
			},
			[]string{"operation", "result"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "notifications_total",
				Help:      "Provider notifications by kind and status.",
			},
			[]string{"kind", "status"},
		),
		promotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "widget",
				Name:      "promotions_total",
				Help:      "Pending instances completed by trigger.",
			},
			[]string{"trigger"},
		),
		reactivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "reactivations_total",
			Help:      "Faulted providers reactivated in place.",
		}),
		fatals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fatal_total",
			Help:      "Providers that exhausted their retry budget.",
		}),
		discards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "first_instance_discards_total",
			Help:      "First-instance cache entries discarded on id mismatch.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "pending_creations",
			Help:      "Instances waiting for provider readiness.",
		}),
		deleting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "pending_deletions",
			Help:      "Embedded provider ids that have not reported deletion.",
		}),
		frozen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "widget",
			Name:      "frozen_instances",
			Help:      "Instances whose visibility thaws on the next resume.",
		}),
	}

	r.registry.MustRegister(
		r.operations,
		r.notifications,
		r.promotions,
		r.reactivations,
		r.fatals,
		r.discards,
		r.pending,
		r.deleting,
		r.frozen,
	)
	return r
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's metrics in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Operation counts a family operation ("prepare", "create", ...) and its result.
func (r *Recorder) Operation(op, result string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, result).Inc()
}

// Notification counts a provider notification ("create" or "delete").
func (r *Recorder) Notification(kind, status string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(kind, status).Inc()
}

// Promotion counts a completed countdown by trigger ("refresh" or "force").
func (r *Recorder) Promotion(trigger string) {
	if r == nil {
		return
	}
	r.promotions.WithLabelValues(trigger).Inc()
}

// Reactivation counts an in-place reactivation of a faulted provider.
func (r *Recorder) Reactivation() {
	if r == nil {
		return
	}
	r.reactivations.Inc()
}

// Fatal counts a provider that ran out of retries.
func (r *Recorder) Fatal() {
	if r == nil {
		return
	}
	r.fatals.Inc()
}

// Discard counts a first-instance cache entry dropped on mismatch.
func (r *Recorder) Discard() {
	if r == nil {
		return
	}
	r.discards.Inc()
}

// SetSizes publishes the current sizes of the coordinator's pending sets.
func (r *Recorder) SetSizes(pending, deleting, frozen int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(pending))
	r.deleting.Set(float64(deleting))
	r.frozen.Set(float64(frozen))
}
