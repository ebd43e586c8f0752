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

package lra

import (
	"time"
)

// MetricsCollector defines the interface for collecting coordinator metrics.
// Implementations can send metrics to Prometheus or other monitoring
// systems; see the monitoring subpackage for the Prometheus collector.
type MetricsCollector interface {
	// RecordStarted increments the count of started LRAs.
	RecordStarted(nested bool)

	// RecordFinished records an LRA reaching the given terminal status.
	RecordFinished(status Status, duration time.Duration)

	// RecordTimedOut increments the count of deadline-fired cancellations.
	RecordTimedOut()

	// RecordParticipantNotified records one termination callback delivery.
	RecordParticipantNotified(kind string, success bool, duration time.Duration)

	// RecordRecoveryScan records one recovery pass and how many actions it
	// reconstructed or redrove.
	RecordRecoveryScan(recovered, redriven int, duration time.Duration)
}

// noOpMetricsCollector is used when no collector is configured.
type noOpMetricsCollector struct{}

func (noOpMetricsCollector) RecordStarted(bool)                                {}
func (noOpMetricsCollector) RecordFinished(Status, time.Duration)              {}
func (noOpMetricsCollector) RecordTimedOut()                                   {}
func (noOpMetricsCollector) RecordParticipantNotified(string, bool, time.Duration) {}
func (noOpMetricsCollector) RecordRecoveryScan(int, int, time.Duration)        {}
