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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/innovationmech/lracoord/pkg/logger"
)

// timeoutScheduler tracks at most one pending deadline per active action and
// cancels the action when the deadline elapses.
//
// Deadlines are best-effort wall-clock timers: firing slightly late is
// acceptable, firing early is not. A fired deadline is a one-shot event; a
// client close or cancel racing the timeout is resolved by whichever
// acquires the action's lock first, and the loser observes the termination
// already in progress.
type timeoutScheduler struct {
	c *Coordinator

	// timers maps ActionID to *time.Timer.
	timers sync.Map

	stopped bool
	stopMu  sync.RWMutex
}

func newTimeoutScheduler(c *Coordinator) *timeoutScheduler {
	return &timeoutScheduler{c: c}
}

// schedule arms (or re-arms, for renew) the deadline for the given action.
func (s *timeoutScheduler) schedule(id ActionID, deadline time.Time) {
	s.stopMu.RLock()
	defer s.stopMu.RUnlock()
	if s.stopped {
		return
	}

	delay := time.Until(deadline)
	if delay < 0 {
		delay = 0
	}

	if v, ok := s.timers.Load(id); ok {
		v.(*time.Timer).Reset(delay)
		return
	}

	timer := time.AfterFunc(delay, func() { s.fire(id) })
	if _, loaded := s.timers.LoadOrStore(id, timer); loaded {
		// Lost a schedule race for the same id; the stored timer wins.
		timer.Stop()
	}
}

// cancel consumes the pending deadline for the given action, if any.
func (s *timeoutScheduler) cancel(id ActionID) {
	if v, ok := s.timers.LoadAndDelete(id); ok {
		v.(*time.Timer).Stop()
	}
}

// fire handles an elapsed deadline by cancelling the action. If the action
// already started terminating (or is gone), the fired deadline is a no-op.
func (s *timeoutScheduler) fire(id ActionID) {
	s.timers.Delete(id)

	s.stopMu.RLock()
	if s.stopped {
		s.stopMu.RUnlock()
		return
	}
	s.stopMu.RUnlock()

	a, ok := s.c.lookup(id)
	if !ok {
		return
	}
	a.mu.Lock()
	active := a.status.IsActive()
	a.mu.Unlock()
	if !active {
		return
	}

	logger.GetLogger().Info("LRA deadline elapsed, cancelling",
		zap.String("lra_id", string(id)))
	s.c.metrics.RecordTimedOut()

	ctx := context.Background()
	s.c.publish(ctx, &Event{Type: EventTimedOut, LRAID: id, Timestamp: time.Now()})
	if _, err := s.c.Cancel(ctx, id); err != nil && !IsNotFound(err) {
		logger.GetLogger().Warn("timeout cancellation failed",
			zap.String("lra_id", string(id)),
			zap.Error(err))
	}
}

// stop disarms every pending deadline. Used at shutdown.
func (s *timeoutScheduler) stop() {
	s.stopMu.Lock()
	s.stopped = true
	s.stopMu.Unlock()

	s.timers.Range(func(key, value any) bool {
		value.(*time.Timer).Stop()
		s.timers.Delete(key)
		return true
	})
}
