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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	all := []Status{
		StatusActive, StatusClosing, StatusClosed,
		StatusCancelling, StatusCancelled,
		StatusFailedToClose, StatusFailedToCancel,
	}
	for _, s := range all {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("Unknown")
	assert.Error(t, err)
	_, err = ParseStatus("closed")
	assert.Error(t, err, "status names are case sensitive")
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusActive.IsActive())
	assert.False(t, StatusActive.IsTerminal())
	assert.False(t, StatusActive.IsFinishing())

	for _, s := range []Status{StatusClosing, StatusCancelling} {
		assert.True(t, s.IsFinishing(), s.String())
		assert.False(t, s.IsTerminal(), s.String())
		assert.False(t, s.IsActive(), s.String())
	}

	for _, s := range []Status{StatusClosed, StatusCancelled, StatusFailedToClose, StatusFailedToCancel} {
		assert.True(t, s.IsTerminal(), s.String())
		assert.False(t, s.IsFinishing(), s.String())
	}
}

func TestParticipantStatusRoundTrip(t *testing.T) {
	all := []ParticipantStatus{
		ParticipantActive, ParticipantCompleting, ParticipantCompleted,
		ParticipantFailedToComplete, ParticipantCompensating,
		ParticipantCompensated, ParticipantFailedToCompensate,
	}
	for _, s := range all {
		parsed, err := ParseParticipantStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseParticipantStatus("Closing")
	assert.Error(t, err, "the two vocabularies do not mix")
}

func TestParticipantStatusPredicates(t *testing.T) {
	assert.True(t, ParticipantCompleting.IsPending())
	assert.True(t, ParticipantCompensating.IsPending())
	assert.False(t, ParticipantActive.IsPending())
	assert.False(t, ParticipantCompleted.IsPending())

	for _, s := range []ParticipantStatus{
		ParticipantCompleted, ParticipantFailedToComplete,
		ParticipantCompensated, ParticipantFailedToCompensate,
	} {
		assert.True(t, s.IsTerminal(), s.String())
	}
	assert.False(t, ParticipantCompleting.IsTerminal())
}

func TestNewActionID(t *testing.T) {
	id := NewActionID("http://localhost:8080/lra-coordinator/")
	assert.True(t, strings.HasPrefix(string(id), "http://localhost:8080/lra-coordinator/"))
	assert.NotContains(t, string(id), "//lra", "trailing slash on the base is trimmed")

	other := NewActionID("http://localhost:8080/lra-coordinator")
	assert.NotEqual(t, id, other)

	assert.Equal(t, string(id), id.String())
	assert.NotEmpty(t, id.UID())
	assert.NotContains(t, id.UID(), "/")
	assert.Equal(t, "bare", ActionID("bare").UID())
}
