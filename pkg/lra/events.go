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
	"context"
	"time"
)

// EventType identifies one LRA lifecycle event.
type EventType string

const (
	// EventStarted is published when a new LRA is created.
	EventStarted EventType = "lra.started"

	// EventJoined is published when a participant enlists.
	EventJoined EventType = "lra.joined"

	// EventLeft is published when a participant is removed before termination.
	EventLeft EventType = "lra.left"

	// EventFinished is published when an LRA reaches a terminal status.
	EventFinished EventType = "lra.finished"

	// EventTimedOut is published when the timeout scheduler cancels an LRA.
	EventTimedOut EventType = "lra.timed_out"

	// EventRecovered is published when a recovery scan reconstructs an LRA
	// from the durable log.
	EventRecovered EventType = "lra.recovered"
)

// Event is one LRA lifecycle event, published for observability. Delivery is
// best-effort: a failed publish is logged and never fails the operation that
// produced it.
type Event struct {
	Type      EventType `json:"type"`
	LRAID     ActionID  `json:"lraId"`
	ParentID  ActionID  `json:"parentId,omitempty"`
	ClientID  string    `json:"clientId,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher publishes LRA lifecycle events.
// Implementations can forward events to NATS or another broker; the
// coordinator defaults to a no-op publisher so the core never requires one.
type EventPublisher interface {
	// Publish delivers a single lifecycle event.
	Publish(ctx context.Context, event *Event) error

	// Close releases publisher resources.
	Close() error
}

// NoopEventPublisher is an EventPublisher that discards every event.
type NoopEventPublisher struct{}

// Publish implements EventPublisher.
func (NoopEventPublisher) Publish(ctx context.Context, event *Event) error { return nil }

// Close implements EventPublisher.
func (NoopEventPublisher) Close() error { return nil }
