package scheduler

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type sweepMetrics struct {
	dispatchRuns      prometheus.Counter
	dispatchMessages  *prometheus.CounterVec
	dispatchDurations prometheus.Observer
	sweepRuns         prometheus.Counter
	sweepDurations    prometheus.Observer
}

var (
	sweepMetricsOnce sync.Once
	sweepMetricsInst *sweepMetrics
)

func globalSweepMetrics() *sweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetricsInst = newSweepMetrics()
	})
	return sweepMetricsInst
}

func newSweepMetrics() *sweepMetrics {
	return &sweepMetrics{
		dispatchRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ticketero",
			Subsystem: "scheduler",
			Name:      "dispatch_runs_total",
			Help:      "Total message dispatch executions",
		}),
		dispatchMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketero",
			Subsystem: "scheduler",
			Name:      "dispatch_messages_total",
			Help:      "Messages handled by the dispatcher, labeled by result",
		}, []string{"result"}),
		dispatchDurations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ticketero",
			Subsystem: "scheduler",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of message dispatch executions",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "ticketero",
			Subsystem: "scheduler",
			Name:      "queue_sweep_runs_total",
			Help:      "Total queue sweep executions",
		}),
		sweepDurations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ticketero",
			Subsystem: "scheduler",
			Name:      "queue_sweep_duration_seconds",
			Help:      "Duration of queue sweep executions",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *sweepMetrics) recordDispatchRun() func() {
	if m == nil {
		return func() {}
	}
	m.dispatchRuns.Inc()
	timer := prometheus.NewTimer(m.dispatchDurations)
	return func() {
		timer.ObserveDuration()
	}
}

func (m *sweepMetrics) recordDispatchResults(sent, failed int) {
	if m == nil {
		return
	}
	m.dispatchMessages.WithLabelValues("sent").Add(float64(sent))
	m.dispatchMessages.WithLabelValues("failed").Add(float64(failed))
}

func (m *sweepMetrics) recordSweepRun() func() {
	if m == nil {
		return func() {}
	}
	m.sweepRuns.Inc()
	timer := prometheus.NewTimer(m.sweepDurations)
	return func() {
		timer.ObserveDuration()
	}
}
