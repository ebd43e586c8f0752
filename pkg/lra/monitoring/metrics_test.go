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

package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/lracoord/pkg/lra"
)

func TestCollectorRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewPrometheusCollector()
	require.NoError(t, collector.Register(registry))

	// Registering the same metrics twice is a duplicate registration.
	assert.Error(t, collector.Register(registry))
}

func TestCollectorRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewPrometheusCollector()
	require.NoError(t, collector.Register(registry))

	collector.RecordStarted(false)
	collector.RecordStarted(true)
	collector.RecordFinished(lra.StatusClosed, 250*time.Millisecond)
	collector.RecordTimedOut()
	collector.RecordParticipantNotified("complete", true, 10*time.Millisecond)
	collector.RecordParticipantNotified("compensate", false, 20*time.Millisecond)
	collector.RecordRecoveryScan(3, 1, 5*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"lra_coordinator_started_total",
		"lra_coordinator_finished_total",
		"lra_coordinator_timed_out_total",
		"lra_coordinator_duration_seconds",
		"lra_coordinator_participant_notifications_total",
		"lra_coordinator_participant_callback_seconds",
		"lra_coordinator_recovery_scans_total",
		"lra_coordinator_recovery_actions_total",
		"lra_coordinator_recovery_scan_seconds",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestCollectorImplementsMetricsCollector(t *testing.T) {
	var _ lra.MetricsCollector = NewPrometheusCollector()
}

func TestMetricsExporterServesHTTP(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewPrometheusCollector()
	require.NoError(t, collector.Register(registry))
	collector.RecordStarted(false)

	exporter := NewMetricsExporter(registry)
	assert.NotNil(t, exporter.Registry())

	srv := httptest.NewServer(exporter.HTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 64*1024)
	n, _ := resp.Body.Read(buf)
	assert.Contains(t, string(buf[:n]), "lra_coordinator_started_total")
}
