package processing

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSucceeded = "succeeded"
	resultFailed    = "failed"
)

type metrics struct {
	stepDuration    *prometheus.HistogramVec
	stepsTotal      *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nya",
				Subsystem: "runtime",
				Name:      "step_duration_seconds",
				Help:      "Duration of schema steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27min
			},
			[]string{"step"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nya",
				Subsystem: "runtime",
				Name:      "steps_total",
				Help:      "Total number of executed schema steps by result",
			},
			[]string{"step", "result"},
		),
		handlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nya",
				Subsystem: "runtime",
				Name:      "handler_failures_total",
				Help:      "Total number of failed handlers by step and owning service",
			},
			[]string{"step", "owner"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.stepDuration, m.stepsTotal, m.handlerFailures)
	}
	return m
}
