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
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/innovationmech/lracoord/pkg/logger"
)

var (
	// ErrLogStoreNotConfigured indicates the LogStore is missing from the config.
	ErrLogStoreNotConfigured = errors.New("log store not configured")

	// ErrBaseURINotConfigured indicates the coordinator base URI is missing.
	ErrBaseURINotConfigured = errors.New("coordinator base URI not configured")
)

// Config contains the dependencies and tunables of a Coordinator.
type Config struct {
	// Store is required: the durable log every state transition is written to.
	Store LogStore

	// BaseURI is required: the coordinator's externally reachable base
	// address. Every minted ActionID is rooted here.
	BaseURI string

	// EventPublisher receives lifecycle events. Defaults to a no-op publisher.
	EventPublisher EventPublisher

	// MetricsCollector receives runtime metrics. Defaults to a no-op collector.
	MetricsCollector MetricsCollector

	// CallTimeout bounds each participant callback. Defaults to 10s.
	CallTimeout time.Duration

	// HTTPClient is the client used for participant callbacks. Defaults to
	// http.DefaultClient. Tests inject their own.
	HTTPClient *http.Client
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Store == nil {
		return ErrLogStoreNotConfigured
	}
	if c.BaseURI == "" {
		return ErrBaseURINotConfigured
	}
	return nil
}

// Coordinator is the LRA registry: it owns the set of live actions, maps ids
// to their records, serializes concurrent operations per action, and is the
// entry point for every lifecycle operation.
//
// Responsibilities:
//  1. LRA lifecycle management (start, join, leave, renew, close, cancel).
//  2. Termination fan-out in reverse enlistment order, treating nested
//     actions and remote participants uniformly.
//  3. Durable logging of every crash-relevant transition.
//  4. Deadline scheduling and timeout-driven auto-cancellation.
//  5. Supplying the recovery scanner with reconstruction and redrive hooks.
type Coordinator struct {
	store      LogStore
	events     EventPublisher
	metrics    MetricsCollector
	baseURI    string
	httpClient *http.Client

	callTimeout time.Duration

	// actions tracks live LRAs. Insertion and removal are atomic with
	// respect to concurrent lookups; LoadOrStore is what keeps concurrent
	// recovery scans from reconstructing duplicates.
	actions sync.Map

	// timers schedules one deadline per active action.
	timers *timeoutScheduler

	// closed indicates the coordinator has been shut down.
	closed bool
	mu     sync.RWMutex
}

// NewCoordinator creates a Coordinator from the given configuration.
func NewCoordinator(config *Config) (*Coordinator, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	events := config.EventPublisher
	if events == nil {
		events = NoopEventPublisher{}
	}
	metrics := config.MetricsCollector
	if metrics == nil {
		metrics = noOpMetricsCollector{}
	}
	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	c := &Coordinator{
		store:       config.Store,
		events:      events,
		metrics:     metrics,
		baseURI:     config.BaseURI,
		httpClient:  client,
		callTimeout: config.CallTimeout,
	}
	c.timers = newTimeoutScheduler(c)
	return c, nil
}

// StartLRA creates a new Active LRA and persists its first log record.
//
// If parentID is given the parent must exist and be Active; the new action
// is then enrolled in the parent as a synthetic participant, making it a
// nested LRA subject to the parent's cascade. A negative time limit is a
// BadRequest; zero means no timeout.
func (c *Coordinator) StartLRA(ctx context.Context, parentID ActionID, clientID string, timeLimit time.Duration) (ActionID, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	if timeLimit < 0 {
		return "", NewBadRequestError("time limit cannot be negative")
	}

	id := NewActionID(c.baseURI)
	a := newAction(id, parentID, clientID, timeLimit)

	if parentID != "" {
		parent, ok := c.lookup(parentID)
		if !ok {
			return "", NewNotFoundError(parentID)
		}
		// Parent lock first; the child is not visible to anyone yet.
		parent.mu.Lock()
		defer parent.mu.Unlock()

		if _, err := parent.enlistNested(id); err != nil {
			return "", err
		}
		if err := c.persist(ctx, a); err != nil {
			parent.removeParticipant(parent.nestedEntry(id).RecoveryID)
			parent.children = parent.children[:len(parent.children)-1]
			return "", NewStoreError("start", err).WithDiagnostic(DiagStartNothingChanged).WithRetryable(true)
		}
		if err := c.persist(ctx, parent); err != nil {
			parent.removeParticipant(parent.nestedEntry(id).RecoveryID)
			parent.children = parent.children[:len(parent.children)-1]
			_ = c.store.Delete(ctx, id)
			return "", NewStoreError("start", err).WithDiagnostic(DiagStartNothingChanged).WithRetryable(true)
		}
	} else if err := c.persist(ctx, a); err != nil {
		return "", NewStoreError("start", err).WithDiagnostic(DiagStartNothingChanged).WithRetryable(true)
	}

	c.actions.Store(id, a)
	if !a.deadline.IsZero() {
		c.timers.schedule(id, a.deadline)
	}

	c.metrics.RecordStarted(parentID != "")
	c.publish(ctx, &Event{Type: EventStarted, LRAID: id, ParentID: parentID, ClientID: clientID, Timestamp: time.Now()})
	logger.GetLogger().Info("LRA started",
		zap.String("lra_id", string(id)),
		zap.String("client_id", clientID),
		zap.Duration("time_limit", timeLimit),
		zap.String("parent_id", string(parentID)))
	return id, nil
}

// Join enlists a participant in the LRA and returns its recovery id.
//
// Joining an LRA that has begun terminating is rejected with
// PreconditionFailed ("too late to join"); joining an id the coordinator no
// longer recognizes is rejected with Gone. Enlistment is all-or-nothing: if
// the log write fails, no partial participant record survives in memory.
func (c *Coordinator) Join(ctx context.Context, id ActionID, callbacks CallbackURIs, timeLimit time.Duration, data []byte) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}
	if timeLimit < 0 {
		return "", NewBadRequestError("time limit cannot be negative")
	}
	if callbacks.Complete == "" && callbacks.Compensate == "" {
		return "", NewBadRequestError("participant must provide a complete or compensate callback")
	}

	a, ok := c.lookup(id)
	if !ok {
		return "", NewGoneError(id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	before := len(a.participants)
	existing := a.matchedParticipant(callbacks)
	var prior Participant
	if existing != nil {
		prior = *existing
	}

	p, err := a.enlist(callbacks, timeLimit, data)
	if err != nil {
		return "", err
	}
	if err := c.persist(ctx, a); err != nil {
		// Enlistment is all-or-nothing: undo the in-place update on
		// re-enlistment, or drop the appended entry.
		if existing != nil {
			*existing = prior
		} else if len(a.participants) > before {
			a.participants = a.participants[:before]
		}
		return "", NewStoreError("join", err).WithDiagnostic(DiagEnlistRolledBack).WithRetryable(true)
	}

	c.publish(ctx, &Event{Type: EventJoined, LRAID: id, Timestamp: time.Now()})
	return p.RecoveryID, nil
}

// Leave removes a participant before termination. Removing a participant
// that is already gone is a no-op; an unknown LRA id is NotFound; an LRA
// that has begun terminating rejects the leave with PreconditionFailed.
func (c *Coordinator) Leave(ctx context.Context, id ActionID, participantRef string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	a, ok := c.lookup(id)
	if !ok {
		return NewNotFoundError(id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.status.IsActive() {
		return NewError(ErrCodePreconditionFailed,
			"cannot leave LRA "+string(id)+": termination already started")
	}
	if !a.removeParticipant(participantRef) {
		return nil
	}
	if err := c.persist(ctx, a); err != nil {
		return NewStoreError("leave", err).WithRetryable(true)
	}
	c.publish(ctx, &Event{Type: EventLeft, LRAID: id, Timestamp: time.Now()})
	return nil
}

// Renew extends the LRA's deadline. The deadline only ever moves later: a
// value at or before the current deadline is silently ignored and the call
// still succeeds. A negative limit is a BadRequest; an unknown id is NotFound.
func (c *Coordinator) Renew(ctx context.Context, id ActionID, newLimit time.Duration) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if newLimit < 0 {
		return NewBadRequestError("time limit cannot be negative")
	}
	a, ok := c.lookup(id)
	if !ok {
		return NewNotFoundError(id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	deadline, extended := a.renew(newLimit)
	if !extended {
		return nil
	}
	c.timers.schedule(id, deadline)
	if err := c.persist(ctx, a); err != nil {
		return NewStoreError("renew", err).WithRetryable(true)
	}
	return nil
}

// Close triggers the termination protocol with target outcome Closed.
// Participants are told to complete in reverse enlistment order; Active
// nested children are closed depth-first before the LRA's own status is
// finalized. Repeating the call on a terminal LRA returns the final status
// without re-notifying anyone.
func (c *Coordinator) Close(ctx context.Context, id ActionID) (Status, error) {
	return c.finish(ctx, id, StatusClosed)
}

// Cancel triggers the termination protocol with target outcome Cancelled.
// Participants are told to compensate in reverse enlistment order; Active
// nested children are cancelled depth-first.
func (c *Coordinator) Cancel(ctx context.Context, id ActionID) (Status, error) {
	return c.finish(ctx, id, StatusCancelled)
}

// GetStatus returns the LRA's current status. Read-only.
// A NotFound may mean the LRA finished and was forgotten.
func (c *Coordinator) GetStatus(ctx context.Context, id ActionID) (Status, error) {
	a, ok := c.lookup(id)
	if !ok {
		return StatusActive, NewNotFoundError(id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status, nil
}

// GetInfo returns a full snapshot of the LRA. Read-only.
func (c *Coordinator) GetInfo(ctx context.Context, id ActionID) (*ActionInfo, error) {
	a, ok := c.lookup(id)
	if !ok {
		return nil, NewNotFoundError(id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot(), nil
}

// GetAllLRAs returns snapshots of every live LRA, optionally filtered by
// status name. Read-only.
func (c *Coordinator) GetAllLRAs(ctx context.Context, statusFilter string) ([]*ActionInfo, error) {
	var filter *Status
	if statusFilter != "" {
		s, err := ParseStatus(statusFilter)
		if err != nil {
			return nil, NewBadRequestError(err.Error())
		}
		filter = &s
	}

	var infos []*ActionInfo
	c.actions.Range(func(_, value any) bool {
		a := value.(*Action)
		a.mu.Lock()
		if filter == nil || a.status == *filter {
			infos = append(infos, a.snapshot())
		}
		a.mu.Unlock()
		return true
	})
	return infos, nil
}

// NestedStatus reports a nested LRA in the participant-status vocabulary,
// the way its parent sees it.
func (c *Coordinator) NestedStatus(ctx context.Context, id ActionID) (ParticipantStatus, error) {
	status, err := c.GetStatus(ctx, id)
	if err != nil {
		return ParticipantActive, err
	}
	return status.participantView(), nil
}

// NestedComplete closes a nested LRA directly and reports the result in the
// participant-status vocabulary. Completing a child this way does not affect
// its parent, which will observe the entry as terminal during its own cascade.
func (c *Coordinator) NestedComplete(ctx context.Context, id ActionID) (ParticipantStatus, error) {
	status, err := c.Close(ctx, id)
	if err != nil {
		return ParticipantActive, err
	}
	return status.participantView(), nil
}

// NestedCompensate cancels a nested LRA directly and reports the result in
// the participant-status vocabulary.
func (c *Coordinator) NestedCompensate(ctx context.Context, id ActionID) (ParticipantStatus, error) {
	status, err := c.Cancel(ctx, id)
	if err != nil {
		return ParticipantActive, err
	}
	return status.participantView(), nil
}

// NestedForget discards a terminal nested LRA: its log record is deleted and
// it is dropped from the registry. Forgetting a live LRA is a
// PreconditionFailed.
func (c *Coordinator) NestedForget(ctx context.Context, id ActionID) error {
	a, ok := c.lookup(id)
	if !ok {
		return NewNotFoundError(id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.status.IsTerminal() {
		return NewError(ErrCodePreconditionFailed, "cannot forget a live LRA")
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return NewStoreError("forget", err).WithRetryable(true)
	}
	c.actions.Delete(id)
	return nil
}

// ReplaceParticipant re-addresses an enlisted participant's callbacks by its
// recovery id, supporting migration of a participant to a new endpoint.
func (c *Coordinator) ReplaceParticipant(ctx context.Context, recoveryID string, callbacks CallbackURIs) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	a, p := c.findByRecoveryID(recoveryID)
	if p == nil {
		return NewError(ErrCodeNotFound, "no participant with recovery id "+recoveryID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Re-check under the lock: the participant may have been removed while
	// we were searching.
	p = a.findParticipant(recoveryID)
	if p == nil {
		return NewError(ErrCodeNotFound, "no participant with recovery id "+recoveryID)
	}
	p.Callbacks = callbacks
	if err := c.persist(ctx, a); err != nil {
		return NewStoreError("replace participant", err).WithRetryable(true)
	}
	return nil
}

// GetParticipant looks an enlisted participant up by its recovery id.
func (c *Coordinator) GetParticipant(ctx context.Context, recoveryID string) (*ParticipantInfo, error) {
	a, p := c.findByRecoveryID(recoveryID)
	if p == nil {
		return nil, NewError(ErrCodeNotFound, "no participant with recovery id "+recoveryID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	p = a.findParticipant(recoveryID)
	if p == nil {
		return nil, NewError(ErrCodeNotFound, "no participant with recovery id "+recoveryID)
	}
	info := p.Info()
	return &info, nil
}

// ListRecovering returns the participants that still owe the coordinator an
// acknowledgement: pending terminations, unacknowledged forgets and after
// notifications. This is the listing behind the recovery sub-resource.
func (c *Coordinator) ListRecovering(ctx context.Context) []ParticipantInfo {
	var out []ParticipantInfo
	c.actions.Range(func(_, value any) bool {
		a := value.(*Action)
		a.mu.Lock()
		for _, p := range a.participants {
			if p.Status.IsPending() || p.ForgetPending || p.AfterPending {
				out = append(out, p.Info())
			}
		}
		a.mu.Unlock()
		return true
	})
	return out
}

// Shutdown stops the timers and marks the coordinator stopped. In-flight
// operations finish; new lifecycle operations fail with CoordinatorStopped.
// The durable log is left as-is so a restart recovers every live action.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.timers.stop()
	if err := c.events.Close(); err != nil {
		logger.GetLogger().Warn("event publisher close failed", zap.Error(err))
	}
	logger.GetLogger().Info("coordinator stopped")
	return nil
}

// BaseURI returns the coordinator's externally reachable base address.
func (c *Coordinator) BaseURI() string { return c.baseURI }

func (c *Coordinator) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return NewCoordinatorStoppedError()
	}
	return nil
}

func (c *Coordinator) lookup(id ActionID) (*Action, bool) {
	v, ok := c.actions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Action), true
}

func (c *Coordinator) findByRecoveryID(recoveryID string) (*Action, *Participant) {
	var fa *Action
	var fp *Participant
	c.actions.Range(func(_, value any) bool {
		a := value.(*Action)
		a.mu.Lock()
		p := a.findParticipant(recoveryID)
		a.mu.Unlock()
		if p != nil {
			fa, fp = a, p
			return false
		}
		return true
	})
	return fa, fp
}

// persist writes the action's durable projection.
// Caller must hold the action lock.
func (c *Coordinator) persist(ctx context.Context, a *Action) error {
	return c.store.Put(ctx, a.id, a.toRecord())
}

func (c *Coordinator) publish(ctx context.Context, event *Event) {
	if err := c.events.Publish(ctx, event); err != nil {
		logger.GetLogger().Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("lra_id", string(event.LRAID)),
			zap.Error(err))
	}
}
