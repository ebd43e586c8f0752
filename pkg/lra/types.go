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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an LRA.
//
// The status names are part of the external contract: callers compare the
// textual form returned by status queries, so String() must produce the
// canonical names rather than lowercased variants.
type Status int

const (
	// StatusActive indicates the LRA is running and accepts new participants.
	StatusActive Status = iota

	// StatusClosing indicates close has been requested and participants are
	// being told to complete.
	StatusClosing

	// StatusClosed indicates every participant completed successfully.
	StatusClosed

	// StatusCancelling indicates cancel has been requested and participants
	// are being told to compensate.
	StatusCancelling

	// StatusCancelled indicates every participant compensated successfully.
	StatusCancelled

	// StatusFailedToClose indicates the close decision was taken but at least
	// one participant could not complete.
	StatusFailedToClose

	// StatusFailedToCancel indicates the cancel decision was taken but at
	// least one participant could not compensate.
	StatusFailedToCancel
)

// String returns the canonical name of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusClosing:
		return "Closing"
	case StatusClosed:
		return "Closed"
	case StatusCancelling:
		return "Cancelling"
	case StatusCancelled:
		return "Cancelled"
	case StatusFailedToClose:
		return "FailedToClose"
	case StatusFailedToCancel:
		return "FailedToCancel"
	default:
		return "Unknown"
	}
}

// IsTerminal returns true if no further state transition is possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusClosed, StatusCancelled, StatusFailedToClose, StatusFailedToCancel:
		return true
	default:
		return false
	}
}

// IsFinishing returns true if a termination outcome has been fixed but not
// every participant has acknowledged it yet.
func (s Status) IsFinishing() bool {
	return s == StatusClosing || s == StatusCancelling
}

// IsActive returns true if the LRA still accepts participants and
// termination requests.
func (s Status) IsActive() bool {
	return s == StatusActive
}

// ParseStatus converts a canonical status name back into a Status.
func ParseStatus(name string) (Status, error) {
	for s := StatusActive; s <= StatusFailedToCancel; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return StatusActive, fmt.Errorf("unknown LRA status %q", name)
}

// ParticipantStatus represents the state of one enrolled participant.
//
// This is a different vocabulary from Status: a nested LRA is one entity
// viewed from two sides, and both vocabularies are exposed at the external
// boundary.
type ParticipantStatus int

const (
	// ParticipantActive indicates the participant is enlisted and has not
	// been told to finish.
	ParticipantActive ParticipantStatus = iota

	// ParticipantCompleting indicates complete was delivered and the
	// participant reported it is still working on it.
	ParticipantCompleting

	// ParticipantCompleted indicates the participant completed.
	ParticipantCompleted

	// ParticipantFailedToComplete indicates the participant reported it
	// cannot complete.
	ParticipantFailedToComplete

	// ParticipantCompensating indicates compensate was delivered and the
	// participant reported it is still working on it.
	ParticipantCompensating

	// ParticipantCompensated indicates the participant compensated.
	ParticipantCompensated

	// ParticipantFailedToCompensate indicates the participant reported it
	// cannot compensate.
	ParticipantFailedToCompensate
)

// String returns the canonical name of the participant status.
func (s ParticipantStatus) String() string {
	switch s {
	case ParticipantActive:
		return "Active"
	case ParticipantCompleting:
		return "Completing"
	case ParticipantCompleted:
		return "Completed"
	case ParticipantFailedToComplete:
		return "FailedToComplete"
	case ParticipantCompensating:
		return "Compensating"
	case ParticipantCompensated:
		return "Compensated"
	case ParticipantFailedToCompensate:
		return "FailedToCompensate"
	default:
		return "Unknown"
	}
}

// IsTerminal returns true if the participant needs no further notification.
func (s ParticipantStatus) IsTerminal() bool {
	switch s {
	case ParticipantCompleted, ParticipantFailedToComplete,
		ParticipantCompensated, ParticipantFailedToCompensate:
		return true
	default:
		return false
	}
}

// IsPending returns true if a termination callback was delivered but the
// participant has not resolved yet. Pending participants gate the action's
// own terminal status and are redriven by the recovery scanner.
func (s ParticipantStatus) IsPending() bool {
	return s == ParticipantCompleting || s == ParticipantCompensating
}

// ParseParticipantStatus converts a canonical name back into a ParticipantStatus.
func ParseParticipantStatus(name string) (ParticipantStatus, error) {
	for s := ParticipantActive; s <= ParticipantFailedToCompensate; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return ParticipantActive, fmt.Errorf("unknown participant status %q", name)
}

// ActionID identifies one LRA. It is a URI rooted at the owning coordinator's
// base address with a UUID leaf, so the id alone is sufficient to route a
// callback to the right coordinator instance.
type ActionID string

// NewActionID mints a fresh ActionID under the given coordinator base URI.
func NewActionID(baseURI string) ActionID {
	return ActionID(strings.TrimRight(baseURI, "/") + "/" + uuid.NewString())
}

// UID returns the unique leaf segment of the id.
func (id ActionID) UID() string {
	s := string(id)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// String implements fmt.Stringer.
func (id ActionID) String() string { return string(id) }

// ActionInfo is a read-only snapshot of one LRA, as returned by status and
// listing queries.
type ActionInfo struct {
	ID           ActionID          `json:"lraId"`
	ParentID     ActionID          `json:"parentId,omitempty"`
	ClientID     string            `json:"clientId"`
	Status       Status            `json:"-"`
	StatusName   string            `json:"status"`
	StartTime    time.Time         `json:"startTime"`
	TimeLimit    time.Duration     `json:"timeLimit"`
	Participants []ParticipantInfo `json:"participants,omitempty"`
	Children     []ActionID        `json:"children,omitempty"`
}

// ParticipantInfo is a read-only snapshot of one enrolled participant.
type ParticipantInfo struct {
	RecoveryID string            `json:"recoveryId"`
	Status     ParticipantStatus `json:"-"`
	StatusName string            `json:"status"`
	Callbacks  CallbackURIs      `json:"callbacks"`
	NestedID   ActionID          `json:"nestedId,omitempty"`
}
