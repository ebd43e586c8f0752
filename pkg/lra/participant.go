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

	"github.com/google/uuid"
)

// CallbackURIs holds the resolved callback endpoints of one participant.
// Each URI is optional, but a participant is only useful when at least one
// of Complete or Compensate is present. Discovery of these URIs (annotation
// scanning, link headers, and so on) is an adapter concern; the core only
// ever sees the resolved struct.
type CallbackURIs struct {
	Complete   string `json:"complete,omitempty"`
	Compensate string `json:"compensate,omitempty"`
	Status     string `json:"status,omitempty"`
	Forget     string `json:"forget,omitempty"`
	After      string `json:"after,omitempty"`
}

// IsZero returns true when no callback endpoint is set.
func (c CallbackURIs) IsZero() bool {
	return c == CallbackURIs{}
}

// Participant is one enrolled entry in an LRA's ordered participant list.
//
// A participant is either remote (notified over HTTP via its callback URIs)
// or a nested LRA (NestedID set), in which case complete and compensate
// recursively invoke the child's own close and cancel logic. The two cases
// are dispatched uniformly through the invoker interface so the termination
// fan-out never needs to distinguish them.
//
// Participants are owned exclusively by their action and are only mutated
// while the action's lock is held.
type Participant struct {
	// RecoveryID is the opaque token returned to the caller at enlistment.
	// It is the stable handle for re-addressing the participant's callbacks
	// later, for example when the participant migrates to a new endpoint.
	RecoveryID string `json:"recoveryId"`

	// Callbacks are the participant's resolved callback endpoints. Empty for
	// nested entries, which dispatch internally instead.
	Callbacks CallbackURIs `json:"callbacks"`

	// NestedID is set when this entry represents a nested LRA enrolled in
	// its parent.
	NestedID ActionID `json:"nestedId,omitempty"`

	// Status is the participant-side status of the entry.
	Status ParticipantStatus `json:"status"`

	// TimeLimit is the participant-specific deadline, distinct from the
	// action's own time limit. Zero means none.
	TimeLimit time.Duration `json:"timeLimit,omitempty"`

	// Data is opaque participant data supplied at enlistment and echoed
	// back on request.
	Data []byte `json:"data,omitempty"`

	// ForgetPending is set once the participant completed and declared a
	// forget URI; it is cleared when the forget call is acknowledged.
	ForgetPending bool `json:"forgetPending,omitempty"`

	// AfterPending is set when the action reaches a terminal outcome and the
	// participant declared an after URI; it is cleared on acknowledgement.
	// Unacknowledged after notifications are redelivered on every recovery
	// scan, but never gate the action's own termination.
	AfterPending bool `json:"afterPending,omitempty"`
}

// newRemoteParticipant creates a remote participant with a fresh recovery id.
func newRemoteParticipant(callbacks CallbackURIs, timeLimit time.Duration, data []byte) *Participant {
	return &Participant{
		RecoveryID: uuid.NewString(),
		Callbacks:  callbacks,
		Status:     ParticipantActive,
		TimeLimit:  timeLimit,
		Data:       data,
	}
}

// newNestedParticipant creates the synthetic participant entry representing
// a child LRA inside its parent.
func newNestedParticipant(child ActionID) *Participant {
	return &Participant{
		RecoveryID: uuid.NewString(),
		NestedID:   child,
		Status:     ParticipantActive,
	}
}

// IsNested returns true when the entry represents a nested LRA.
func (p *Participant) IsNested() bool { return p.NestedID != "" }

// matches reports whether the entry is the same logical participant as one
// enlisting with the given callbacks. Identity is the compensate endpoint
// when present, otherwise the complete endpoint; re-enlistment with the same
// identity updates the existing entry instead of appending a duplicate.
func (p *Participant) matches(callbacks CallbackURIs) bool {
	if p.IsNested() {
		return false
	}
	if p.Callbacks.Compensate != "" || callbacks.Compensate != "" {
		return p.Callbacks.Compensate == callbacks.Compensate && callbacks.Compensate != ""
	}
	return p.Callbacks.Complete != "" && p.Callbacks.Complete == callbacks.Complete
}

// Info returns a read-only snapshot of the participant.
func (p *Participant) Info() ParticipantInfo {
	return ParticipantInfo{
		RecoveryID: p.RecoveryID,
		Status:     p.Status,
		StatusName: p.Status.String(),
		Callbacks:  p.Callbacks,
		NestedID:   p.NestedID,
	}
}
