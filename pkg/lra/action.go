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
	"sync"
	"time"
)

// Action is the in-memory state machine for one LRA.
//
// All mutating access goes through the action's mutex, which the coordinator
// acquires for the duration of each lifecycle operation. This serializes
// start, join, leave, renew, close, cancel and recovery redrive per action
// while letting operations on different actions proceed fully in parallel.
// Cascade is the one place two action locks are held at once, and it always
// acquires parent before child.
//
// Status transitions are monotonic toward a terminal state. A terminal
// action accepts no new participants and no further termination requests
// other than idempotent status queries.
type Action struct {
	mu sync.Mutex

	id        ActionID
	parentID  ActionID
	clientID  string
	status    Status
	startTime time.Time

	// timeLimit is the requested limit; zero means the action never times
	// out. deadline is the resolved wall-clock expiry, maintained so a
	// reconstructed action can rearm its timer after a crash.
	timeLimit time.Duration
	deadline  time.Time

	// participants in insertion order. The order is semantically
	// significant: termination notifies in reverse enlistment order.
	participants []*Participant

	// children holds the ids of nested actions enrolled as synthetic
	// participants of this action.
	children []ActionID
}

// newAction creates a new Active action.
func newAction(id, parentID ActionID, clientID string, timeLimit time.Duration) *Action {
	now := time.Now()
	a := &Action{
		id:        id,
		parentID:  parentID,
		clientID:  clientID,
		status:    StatusActive,
		startTime: now,
		timeLimit: timeLimit,
	}
	if timeLimit > 0 {
		a.deadline = now.Add(timeLimit)
	}
	return a
}

// ID returns the action's id. Immutable, safe without the lock.
func (a *Action) ID() ActionID { return a.id }

// ParentID returns the parent id, or "" for a top-level action.
func (a *Action) ParentID() ActionID { return a.parentID }

// enlist appends a remote participant, or updates an existing entry matched
// by identity for re-enlistment and endpoint migration.
// Caller must hold the lock.
func (a *Action) enlist(callbacks CallbackURIs, timeLimit time.Duration, data []byte) (*Participant, error) {
	if a.status != StatusActive {
		if a.status.IsFinishing() || a.status.IsTerminal() {
			return nil, NewTooLateToJoinError(a.id, a.status)
		}
		return nil, NewGoneError(a.id)
	}

	if p := a.matchedParticipant(callbacks); p != nil {
		p.Callbacks = callbacks
		p.TimeLimit = timeLimit
		if data != nil {
			p.Data = data
		}
		return p, nil
	}

	p := newRemoteParticipant(callbacks, timeLimit, data)
	a.participants = append(a.participants, p)
	return p, nil
}

// matchedParticipant returns the existing entry an enlist with the given
// callbacks would update in place, or nil when enlist would append.
// Caller must hold the lock.
func (a *Action) matchedParticipant(callbacks CallbackURIs) *Participant {
	for _, p := range a.participants {
		if p.matches(callbacks) {
			return p
		}
	}
	return nil
}

// enlistNested records a child action as a synthetic participant.
// Caller must hold the lock.
func (a *Action) enlistNested(child ActionID) (*Participant, error) {
	if a.status != StatusActive {
		return nil, NewTooLateToJoinError(a.id, a.status)
	}
	p := newNestedParticipant(child)
	a.participants = append(a.participants, p)
	a.children = append(a.children, child)
	return p, nil
}

// removeParticipant removes the entry with the given recovery id or
// compensate endpoint. Returns false when no such entry exists, which the
// registry treats as an idempotent no-op.
// Caller must hold the lock.
func (a *Action) removeParticipant(ref string) bool {
	for i, p := range a.participants {
		if p.RecoveryID == ref || (ref != "" && !p.IsNested() && p.Callbacks.Compensate == ref) {
			a.participants = append(a.participants[:i], a.participants[i+1:]...)
			return true
		}
	}
	return false
}

// findParticipant looks an entry up by recovery id.
// Caller must hold the lock.
func (a *Action) findParticipant(recoveryID string) *Participant {
	for _, p := range a.participants {
		if p.RecoveryID == recoveryID {
			return p
		}
	}
	return nil
}

// nestedEntry returns the synthetic participant representing the given
// child, or nil. Caller must hold the lock.
func (a *Action) nestedEntry(child ActionID) *Participant {
	for _, p := range a.participants {
		if p.NestedID == child {
			return p
		}
	}
	return nil
}

// renew extends the deadline to now+newLimit if and only if that is strictly
// later than the current deadline. The time limit may only ever be extended;
// a shorter or equal value is a silent no-op, not an error.
// Caller must hold the lock. Returns the new deadline and whether it moved.
func (a *Action) renew(newLimit time.Duration) (time.Time, bool) {
	if newLimit <= 0 || !a.status.IsActive() {
		return a.deadline, false
	}
	candidate := time.Now().Add(newLimit)
	if !a.deadline.IsZero() && !candidate.After(a.deadline) {
		return a.deadline, false
	}
	a.deadline = candidate
	a.timeLimit = newLimit
	return a.deadline, true
}

// pendingParticipants returns the entries that were notified but have not
// resolved. Caller must hold the lock.
func (a *Action) pendingParticipants() []*Participant {
	var pending []*Participant
	for _, p := range a.participants {
		if p.Status.IsPending() {
			pending = append(pending, p)
		}
	}
	return pending
}

// hasUnfinishedWork reports whether the action still needs recovery
// attention: an in-flight termination, an unacknowledged forget, or an
// unacknowledged after notification. Caller must hold the lock.
func (a *Action) hasUnfinishedWork() bool {
	if a.status.IsFinishing() {
		return true
	}
	for _, p := range a.participants {
		if p.ForgetPending || p.AfterPending {
			return true
		}
	}
	return false
}

// fullyForgotten reports whether the action is terminal with every
// participant acknowledgement in, meaning its log record can be deleted and
// the action dropped from the registry. Failed outcomes are retained for
// inspection and are never auto-forgotten.
// Caller must hold the lock.
func (a *Action) fullyForgotten() bool {
	if a.status != StatusClosed && a.status != StatusCancelled {
		return false
	}
	return !a.hasUnfinishedWork()
}

// snapshot produces a consistent read-only view.
// Caller must hold the lock.
func (a *Action) snapshot() *ActionInfo {
	info := &ActionInfo{
		ID:         a.id,
		ParentID:   a.parentID,
		ClientID:   a.clientID,
		Status:     a.status,
		StatusName: a.status.String(),
		StartTime:  a.startTime,
		TimeLimit:  a.timeLimit,
		Children:   append([]ActionID(nil), a.children...),
	}
	for _, p := range a.participants {
		info.Participants = append(info.Participants, p.Info())
	}
	return info
}

// participantView maps the action's own status onto the participant-status
// vocabulary, for when this action is a child observed through its parent's
// participant list.
func (s Status) participantView() ParticipantStatus {
	switch s {
	case StatusClosing:
		return ParticipantCompleting
	case StatusClosed:
		return ParticipantCompleted
	case StatusFailedToClose:
		return ParticipantFailedToComplete
	case StatusCancelling:
		return ParticipantCompensating
	case StatusCancelled:
		return ParticipantCompensated
	case StatusFailedToCancel:
		return ParticipantFailedToCompensate
	default:
		return ParticipantActive
	}
}
