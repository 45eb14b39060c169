/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics holds the counters of a verification run. Every Metrics owns a private
// registry so runs and tests never share state.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "redeemverify"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Metrics struct {
	Registry *prometheus.Registry

	JobsStarted    prometheus.Counter
	ResultsWritten *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	VerifyDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		JobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Records dispatched to the verification workers.",
		}),
		ResultsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_written_total",
			Help:      "Outcomes written to a ledger.",
		}, []string{"outcome"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected records by reason.",
		}, []string{"reason"}),
		VerifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verify_duration_seconds",
			Help:      "Time spent verifying one record.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}
	m.Registry.MustRegister(m.JobsStarted, m.ResultsWritten, m.Rejections, m.VerifyDuration)
	return m
}

// The methods below accept a nil receiver so callers can run without metrics.

func (m *Metrics) JobStarted() {
	if m != nil {
		m.JobsStarted.Inc()
	}
}

func (m *Metrics) ResultWritten(verified bool, reason string) {
	if m == nil {
		return
	}
	if verified {
		m.ResultsWritten.WithLabelValues(OutcomeSuccess).Inc()
		return
	}
	m.ResultsWritten.WithLabelValues(OutcomeFailure).Inc()
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveVerify(d time.Duration) {
	if m != nil {
		m.VerifyDuration.Observe(d.Seconds())
	}
}

// Push sends the registry to a Pushgateway, grouped by run id.
func (m *Metrics) Push(url, job, runID string) error {
	if m == nil || len(url) == 0 {
		return nil
	}
	err := push.New(url, job).
		Gatherer(m.Registry).
		Grouping("run_id", runID).
		Push()
	return errors.Wrapf(err, "failed pushing metrics to [%s]", url)
}
