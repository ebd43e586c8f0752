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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutCancelsAndCompensates(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)

	id, err := c.StartLRA(ctx, "", "timeout-test", 100*time.Millisecond)
	require.NoError(t, err)

	p := newStubParticipant(t, nil, "p1")
	_, err = c.Join(ctx, id, p.callbacks(), 0, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, compensate, _, _ := p.counts()
		return compensate == 1
	}, 5*time.Second, 10*time.Millisecond, "expired LRA must be compensated")

	complete, _, _, _ := p.counts()
	assert.Zero(t, complete)
	_, err = c.GetStatus(ctx, id)
	assert.True(t, IsNotFound(err), "a cleanly cancelled LRA is forgotten")
}

func TestTimeoutWithoutParticipants(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)

	id, err := c.StartLRA(ctx, "", "empty-timeout", 50*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := c.GetStatus(ctx, id)
		return IsNotFound(err)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRenewExtendsDeadline(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)

	id, err := c.StartLRA(ctx, "", "renew-test", 150*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Renew(ctx, id, 5*time.Second))

	// Well past the original deadline the LRA must still be active.
	time.Sleep(400 * time.Millisecond)
	status, err := c.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)

	_, err = c.Close(ctx, id)
	require.NoError(t, err)
}

func TestRenewNeverShortens(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)

	id, err := c.StartLRA(ctx, "", "renew-shorten", 5*time.Second)
	require.NoError(t, err)

	// A shorter renewal is ignored: renew only ever extends.
	require.NoError(t, c.Renew(ctx, id, 50*time.Millisecond))

	time.Sleep(300 * time.Millisecond)
	status, err := c.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)
}

func TestCloseDisarmsTimeout(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)

	id, err := c.StartLRA(ctx, "", "close-vs-timeout", 200*time.Millisecond)
	require.NoError(t, err)

	p := newStubParticipant(t, nil, "p1")
	_, err = c.Join(ctx, id, p.callbacks(), 0, nil)
	require.NoError(t, err)

	status, err := c.Close(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, status)

	// Give the original deadline ample time to fire if it were still armed.
	time.Sleep(400 * time.Millisecond)
	complete, compensate, _, _ := p.counts()
	assert.Equal(t, 1, complete)
	assert.Zero(t, compensate, "a closed LRA must never be compensated by a stale timer")
}

func TestSchedulerStopDisarmsPendingDeadlines(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	c := newTestCoordinator(t, store)

	id, err := c.StartLRA(ctx, "", "stop-test", 100*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Shutdown(ctx))

	// Shutdown stops the scheduler before the deadline fires; the record
	// stays Active in the log for the next incarnation to recover.
	time.Sleep(300 * time.Millisecond)
	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive.String(), rec.Status)
}
