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
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/innovationmech/lracoord/pkg/logger"
)

// RecoveryStats holds counters about recovery activity.
type RecoveryStats struct {
	// TotalScans is the number of completed scan passes.
	TotalScans int64 `json:"total_scans"`

	// Reconstructed is the number of actions rebuilt from the log.
	Reconstructed int64 `json:"reconstructed"`

	// Redriven is the number of termination passes re-run by recovery.
	Redriven int64 `json:"redriven"`

	// Forgotten is the number of fully finished records deleted by scans.
	Forgotten int64 `json:"forgotten"`
}

// RecoveryScanner periodically sweeps the durable log, reconstructs actions
// that are not live in memory, and redrives unfinished terminations.
//
// A scan is re-entrant: it is safe to run many scans concurrently with each
// other and with live traffic. Safety rests entirely on the registry's
// LoadOrStore insertion (a scan that finds an action already live skips
// reconstruction) and on the per-action lock (a redrive serializes with any
// concurrent client operation on the same action). Recovery makes no
// ordering promise across actions but preserves reverse enlistment order
// within each action's redrive.
type RecoveryScanner struct {
	c        *Coordinator
	interval time.Duration

	stats struct {
		totalScans    atomic.Int64
		reconstructed atomic.Int64
		redriven      atomic.Int64
		forgotten     atomic.Int64
	}

	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewRecoveryScanner creates a scanner sweeping at the given interval.
// A non-positive interval disables the periodic sweep; Scan can still be
// invoked directly.
func NewRecoveryScanner(c *Coordinator, interval time.Duration) *RecoveryScanner {
	return &RecoveryScanner{
		c:        c,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the periodic sweep.
func (s *RecoveryScanner) Start() {
	if s.interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				if err := s.Scan(context.Background()); err != nil {
					logger.GetLogger().Warn("recovery scan failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the periodic sweep and waits for an in-flight pass to finish.
func (s *RecoveryScanner) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Stats returns a snapshot of the recovery counters.
func (s *RecoveryScanner) Stats() RecoveryStats {
	return RecoveryStats{
		TotalScans:    s.stats.totalScans.Load(),
		Reconstructed: s.stats.reconstructed.Load(),
		Redriven:      s.stats.redriven.Load(),
		Forgotten:     s.stats.forgotten.Load(),
	}
}

// Scan runs one full recovery pass. Safe to call concurrently with other
// scans and with live traffic.
func (s *RecoveryScanner) Scan(ctx context.Context) error {
	started := time.Now()

	ids, err := s.c.store.ListIDs(ctx)
	if err != nil {
		return NewStoreError("recovery scan", err).WithRetryable(true)
	}

	var reconstructed, redriven int
	for _, id := range ids {
		rebuilt, redrove, err := s.recoverOne(ctx, id)
		if err != nil {
			logger.GetLogger().Warn("recovery of LRA failed",
				zap.String("lra_id", string(id)),
				zap.Error(err))
			continue
		}
		if rebuilt {
			reconstructed++
		}
		if redrove {
			redriven++
		}
	}

	s.stats.totalScans.Add(1)
	s.stats.reconstructed.Add(int64(reconstructed))
	s.stats.redriven.Add(int64(redriven))
	s.c.metrics.RecordRecoveryScan(reconstructed, redriven, time.Since(started))
	return nil
}

// recoverOne reconstructs a single id if it is not live and redrives any
// unfinished termination on it.
func (s *RecoveryScanner) recoverOne(ctx context.Context, id ActionID) (rebuilt, redrove bool, err error) {
	a, live := s.c.lookup(id)
	if !live {
		rec, gerr := s.c.store.Get(ctx, id)
		if gerr != nil {
			if errors.Is(gerr, ErrRecordNotFound) {
				// Deleted between ListIDs and Get; nothing to recover.
				return false, false, nil
			}
			return false, false, gerr
		}
		candidate, cerr := actionFromRecord(rec)
		if cerr != nil {
			return false, false, cerr
		}
		actual, loaded := s.c.actions.LoadOrStore(id, candidate)
		a = actual.(*Action)
		if !loaded {
			// This scan won the reconstruction race.
			rebuilt = true
			s.c.publish(ctx, &Event{Type: EventRecovered, LRAID: id, Status: rec.Status, Timestamp: time.Now()})
			logger.GetLogger().Info("LRA reconstructed from log",
				zap.String("lra_id", string(id)),
				zap.String("status", rec.Status))

			a.mu.Lock()
			if a.status.IsActive() && !a.deadline.IsZero() {
				// Rearm the deadline; one already past fires immediately.
				s.c.timers.schedule(id, a.deadline)
			}
			a.mu.Unlock()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fullyForgotten() {
		if derr := s.c.store.Delete(ctx, id); derr == nil {
			s.c.actions.Delete(id)
			s.stats.forgotten.Add(1)
		}
		return rebuilt, false, nil
	}

	if !a.needsRedrive() {
		return rebuilt, false, nil
	}

	if _, terr := s.c.terminationPass(ctx, a, true); terr != nil {
		return rebuilt, true, terr
	}
	return rebuilt, true, nil
}
