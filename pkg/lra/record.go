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

// LogRecord is the durable projection of one LRA: everything needed to
// reconstruct the action after a crash and resume an unfinished termination.
// It is written on every state transition that must survive a restart
// (enlistment, status change, termination outcome) and deleted once the
// action is fully forgotten.
type LogRecord struct {
	ID           ActionID       `json:"id"`
	ParentID     ActionID       `json:"parentId,omitempty"`
	ClientID     string         `json:"clientId"`
	Status       string         `json:"status"`
	StartTime    time.Time      `json:"startTime"`
	TimeLimit    time.Duration  `json:"timeLimit"`
	Deadline     time.Time      `json:"deadline,omitempty"`
	Participants []*Participant `json:"participants,omitempty"`
	Children     []ActionID     `json:"children,omitempty"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// toRecord builds the durable projection of the action.
// Caller must hold the action lock.
func (a *Action) toRecord() *LogRecord {
	participants := make([]*Participant, len(a.participants))
	for i, p := range a.participants {
		cp := *p
		participants[i] = &cp
	}
	children := make([]ActionID, len(a.children))
	copy(children, a.children)

	return &LogRecord{
		ID:           a.id,
		ParentID:     a.parentID,
		ClientID:     a.clientID,
		Status:       a.status.String(),
		StartTime:    a.startTime,
		TimeLimit:    a.timeLimit,
		Deadline:     a.deadline,
		Participants: participants,
		Children:     children,
		UpdatedAt:    time.Now(),
	}
}

// actionFromRecord reconstructs an in-memory action from its durable
// projection. Unknown status names fail the reconstruction rather than
// silently resurrecting the action as Active.
func actionFromRecord(rec *LogRecord) (*Action, error) {
	status, err := ParseStatus(rec.Status)
	if err != nil {
		return nil, err
	}

	a := &Action{
		id:        rec.ID,
		parentID:  rec.ParentID,
		clientID:  rec.ClientID,
		status:    status,
		startTime: rec.StartTime,
		timeLimit: rec.TimeLimit,
		deadline:  rec.Deadline,
		children:  append([]ActionID(nil), rec.Children...),
	}
	for _, p := range rec.Participants {
		cp := *p
		a.participants = append(a.participants, &cp)
	}
	return a, nil
}
