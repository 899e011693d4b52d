// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports solver statistics to Prometheus. One Metrics may be
// shared by many solvers; a nil *Metrics records nothing.
type Metrics struct {
	solves       *prometheus.CounterVec
	iterations   prometheus.Histogram
	solveSeconds prometheus.Histogram
	scaleUpdates prometheus.Counter
	accelSteps   *prometheus.CounterVec
}

// NewMetrics creates the solver collectors under namespace and registers
// them with reg. A nil reg uses a private registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "conic"
	}
	m := &Metrics{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scs",
			Name:      "solves_total",
			Help:      "Completed solves by terminal status.",
		}, []string{"status"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scs",
			Name:      "iterations",
			Help:      "Iterations performed per solve.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		solveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scs",
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock time per solve.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
		scaleUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scs",
			Name:      "scale_updates_total",
			Help:      "Adaptive scale updates across all solves.",
		}),
		accelSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scs",
			Name:      "acceleration_steps_total",
			Help:      "Acceleration steps by safeguard outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.solves, m.iterations, m.solveSeconds, m.scaleUpdates, m.accelSteps)
	return m
}

func (m *Metrics) observe(info *Info) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(info.Status.String()).Inc()
	m.iterations.Observe(float64(info.Iter))
	m.solveSeconds.Observe(info.SolveTime.Seconds())
	m.scaleUpdates.Add(float64(info.ScaleUpdates))
	m.accelSteps.WithLabelValues("accepted").Add(float64(info.AcceptedAccelSteps))
	m.accelSteps.WithLabelValues("rejected").Add(float64(info.RejectedAccelSteps))
}
