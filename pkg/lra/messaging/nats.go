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

// Package messaging provides broker-backed implementations of the
// coordinator's lifecycle event publisher.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("nats event publisher is closed")

// NATSConfig holds the connection settings for the NATS event publisher.
type NATSConfig struct {
	// URL is the NATS server URL, e.g. nats://localhost:4222.
	URL string `json:"url" yaml:"url"`
	// SubjectPrefix is prepended to the event type to form the subject.
	// Defaults to "lra.events".
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// Validate checks the configuration for required fields.
func (c *NATSConfig) Validate() error {
	if c == nil || c.URL == "" {
		return errors.New("nats url is required")
	}
	return nil
}

func (c *NATSConfig) subjectPrefix() string {
	if c.SubjectPrefix == "" {
		return "lra.events"
	}
	return c.SubjectPrefix
}

func (c *NATSConfig) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ConnectTimeout
}

// NATSEventPublisher publishes coordinator lifecycle events to NATS subjects.
// The subject is derived from the event type, so consumers can subscribe to
// individual lifecycle transitions or use a wildcard for the whole stream.
type NATSEventPublisher struct {
	conn   *nats.Conn
	config *NATSConfig
	mu     sync.RWMutex
	closed bool
}

// NewNATSEventPublisher connects to the configured NATS server and returns a
// publisher over the connection.
func NewNATSEventPublisher(config *NATSConfig) (*NATSEventPublisher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid nats config: %w", err)
	}
	conn, err := nats.Connect(config.URL,
		nats.Timeout(config.connectTimeout()),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSEventPublisher{conn: conn, config: config}, nil
}

// Publish serializes the event as JSON and publishes it on
// "<prefix>.<event type suffix>". Event types already carry the "lra."
// prefix, so lra.started maps to lra.events.started with the defaults.
func (p *NATSEventPublisher) Publish(ctx context.Context, event *lra.Event) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}
	if event == nil {
		return errors.New("event must not be nil")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if err := p.conn.Publish(p.subject(event.Type), payload); err != nil {
		return fmt.Errorf("nats publish failed: %w", err)
	}
	return nil
}

func (p *NATSEventPublisher) subject(t lra.EventType) string {
	suffix := string(t)
	if i := lastDot(suffix); i >= 0 {
		suffix = suffix[i+1:]
	}
	return p.config.subjectPrefix() + "." + suffix
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// Close flushes pending messages and drops the connection.
func (p *NATSEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.conn.Flush()
	p.conn.Close()
	return nil
}
