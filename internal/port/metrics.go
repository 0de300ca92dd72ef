package port

import "time"

// MetricsRecorder receives protocol outcomes after each operation. Counters
// and latencies are observability side effects only; implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	HoldCreated()
	HoldRejected()
	ConfirmSucceeded()
	ObserveHoldLatency(d time.Duration)
	ObserveConfirmLatency(d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) HoldCreated()                        {}
func (nopMetrics) HoldRejected()                       {}
func (nopMetrics) ConfirmSucceeded()                   {}
func (nopMetrics) ObserveHoldLatency(time.Duration)    {}
func (nopMetrics) ObserveConfirmLatency(time.Duration) {}

// NopMetrics returns a recorder that discards everything.
func NopMetrics() MetricsRecorder { return nopMetrics{} }
