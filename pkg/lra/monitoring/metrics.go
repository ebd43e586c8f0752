// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package monitoring provides Prometheus metrics integration for the LRA
// coordinator.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// PrometheusCollector implements lra.MetricsCollector on a set of Prometheus
// metrics. All metrics live under the "lra/coordinator" namespace.
type PrometheusCollector struct {
	startedTotal     *prometheus.CounterVec
	finishedTotal    *prometheus.CounterVec
	timedOutTotal    prometheus.Counter
	durationSeconds  prometheus.Histogram
	participantTotal *prometheus.CounterVec
	callbackSeconds  *prometheus.HistogramVec
	recoveryScans    prometheus.Counter
	recoveryActions  *prometheus.CounterVec
	recoverySeconds  prometheus.Histogram
}

// NewPrometheusCollector creates a collector with all metrics initialized.
// Call Register before use.
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		startedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "started_total",
				Help:      "Total number of LRAs started",
			},
			[]string{"nested"},
		),
		finishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "finished_total",
				Help:      "Total number of LRAs reaching a terminal status",
			},
			[]string{"status"},
		),
		timedOutTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "timed_out_total",
				Help:      "Total number of LRAs cancelled by deadline expiry",
			},
		),
		durationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "duration_seconds",
				Help:      "Time from start to terminal status in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0},
			},
		),
		participantTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "participant_notifications_total",
				Help:      "Total number of participant termination callbacks",
			},
			[]string{"kind", "outcome"},
		),
		callbackSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "participant_callback_seconds",
				Help:      "Duration of participant termination callbacks in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"kind"},
		),
		recoveryScans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "recovery_scans_total",
				Help:      "Total number of recovery passes over the log",
			},
		),
		recoveryActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "recovery_actions_total",
				Help:      "Total number of LRAs reconstructed or redriven by recovery",
			},
			[]string{"kind"},
		),
		recoverySeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "lra",
				Subsystem: "coordinator",
				Name:      "recovery_scan_seconds",
				Help:      "Duration of recovery passes in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
			},
		),
	}
}

// Register registers all metrics with the given registry. A nil registry
// uses the default registerer.
func (pc *PrometheusCollector) Register(registry prometheus.Registerer) error {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		pc.startedTotal,
		pc.finishedTotal,
		pc.timedOutTotal,
		pc.durationSeconds,
		pc.participantTotal,
		pc.callbackSeconds,
		pc.recoveryScans,
		pc.recoveryActions,
		pc.recoverySeconds,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordStarted implements lra.MetricsCollector.
func (pc *PrometheusCollector) RecordStarted(nested bool) {
	label := "false"
	if nested {
		label = "true"
	}
	pc.startedTotal.WithLabelValues(label).Inc()
}

// RecordFinished implements lra.MetricsCollector.
func (pc *PrometheusCollector) RecordFinished(status lra.Status, duration time.Duration) {
	pc.finishedTotal.WithLabelValues(status.String()).Inc()
	pc.durationSeconds.Observe(duration.Seconds())
}

// RecordTimedOut implements lra.MetricsCollector.
func (pc *PrometheusCollector) RecordTimedOut() {
	pc.timedOutTotal.Inc()
}

// RecordParticipantNotified implements lra.MetricsCollector.
func (pc *PrometheusCollector) RecordParticipantNotified(kind string, success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	pc.participantTotal.WithLabelValues(kind, outcome).Inc()
	pc.callbackSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRecoveryScan implements lra.MetricsCollector.
func (pc *PrometheusCollector) RecordRecoveryScan(recovered, redriven int, duration time.Duration) {
	pc.recoveryScans.Inc()
	pc.recoveryActions.WithLabelValues("reconstructed").Add(float64(recovered))
	pc.recoveryActions.WithLabelValues("redriven").Add(float64(redriven))
	pc.recoverySeconds.Observe(duration.Seconds())
}

// MetricsExporter wraps a Prometheus registry and serves metrics over HTTP.
type MetricsExporter struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
}

// NewMetricsExporter creates an exporter over the given registry. If registry
// is nil the default registerer and gatherer are used.
func NewMetricsExporter(registry prometheus.Registerer) *MetricsExporter {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	var gatherer prometheus.Gatherer
	if reg, ok := registry.(*prometheus.Registry); ok {
		gatherer = reg
	} else {
		gatherer = prometheus.DefaultGatherer
	}
	return &MetricsExporter{registry: registry, gatherer: gatherer}
}

// HTTPHandler returns a handler serving metrics in Prometheus text format.
// It can be mounted directly or via gin.WrapH.
func (me *MetricsExporter) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(me.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Registry returns the underlying registerer for additional registrations.
func (me *MetricsExporter) Registry() prometheus.Registerer {
	return me.registry
}
