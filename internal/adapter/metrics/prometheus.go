package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Bucket boundaries in milliseconds.
var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000}

// PrometheusRecorder implements the metrics recorder port on top of a
// Prometheus registry.
type PrometheusRecorder struct {
	holdCreated    prometheus.Counter
	holdRejected   prometheus.Counter
	confirmSuccess prometheus.Counter
	holdLatency    prometheus.Histogram
	confirmLatency prometheus.Histogram
}

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		holdCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_lock_created_total",
			Help: "Total holds created.",
		}),
		holdRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_lock_rejected_total",
			Help: "Total hold attempts rejected by an existing lock.",
		}),
		confirmSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_confirm_success_total",
			Help: "Total successful confirmations.",
		}),
		holdLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reservation_hold_latency_ms",
			Help:    "Hold latency in milliseconds.",
			Buckets: latencyBuckets,
		}),
		confirmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reservation_confirm_latency_ms",
			Help:    "Confirm latency in milliseconds.",
			Buckets: latencyBuckets,
		}),
	}

	reg.MustRegister(r.holdCreated, r.holdRejected, r.confirmSuccess, r.holdLatency, r.confirmLatency)
	return r
}

func (r *PrometheusRecorder) HoldCreated()      { r.holdCreated.Inc() }
func (r *PrometheusRecorder) HoldRejected()     { r.holdRejected.Inc() }
func (r *PrometheusRecorder) ConfirmSucceeded() { r.confirmSuccess.Inc() }

func (r *PrometheusRecorder) ObserveHoldLatency(d time.Duration) {
	r.holdLatency.Observe(float64(d.Milliseconds()))
}

func (r *PrometheusRecorder) ObserveConfirmLatency(d time.Duration) {
	r.confirmLatency.Observe(float64(d.Milliseconds()))
}
