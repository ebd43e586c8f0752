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
	"time"

	"go.uber.org/zap"

	"github.com/innovationmech/lracoord/pkg/logger"
)

// finish drives the termination protocol toward the target outcome
// (StatusClosed or StatusCancelled).
//
// Once Closing or Cancelling is entered the outcome is fixed: a concurrent
// call requesting the opposite outcome simply observes the termination
// already in progress and gets that status back, never a mixed outcome.
// Repeating the call on a terminal LRA returns the final status without
// re-notifying participants.
func (c *Coordinator) finish(ctx context.Context, id ActionID, target Status) (Status, error) {
	a, ok := c.lookup(id)
	if !ok {
		return StatusActive, NewNotFoundError(id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status.IsTerminal() {
		return a.status, nil
	}
	if a.status.IsFinishing() {
		// Another caller (or a fired deadline) won the race; report the
		// outcome already in progress.
		return a.status, nil
	}

	// Fix the outcome. The deadline is consumed here: a timeout firing
	// after this point observes the action already terminating.
	if target == StatusCancelled {
		a.status = StatusCancelling
	} else {
		a.status = StatusClosing
	}
	c.timers.cancel(id)

	if err := c.persist(ctx, a); err != nil {
		// The decision is taken in memory; the recovery scanner will
		// redrive it. The caller must not blindly retry.
		return a.status, NewStoreError("terminate", err).WithDiagnostic(DiagTerminationPending)
	}

	return c.terminationPass(ctx, a, false)
}

// terminationPass notifies participants of the fixed outcome and finalizes
// the action when possible. It is the single fan-out used by close, cancel,
// timeout cancellation and recovery redrive, so the reverse-enlistment-order
// guarantee holds on every path.
//
// Caller must hold the action lock and a.status must be Closing, Cancelling
// or terminal (terminal passes only run the cleanup phase: forget and after
// notifications, then forget-on-disk once everything is acknowledged).
func (c *Coordinator) terminationPass(ctx context.Context, a *Action, redrive bool) (Status, error) {
	if a.status.IsFinishing() {
		compensate := a.status == StatusCancelling
		kind := "complete"
		if compensate {
			kind = "compensate"
		}

		failed := false
		pending := false

		// Last joined, first notified. Nested entries recurse into the
		// child's own close/cancel here, which is what makes the cascade
		// depth-first: the child subtree is fully resolved before the loop
		// moves on.
		for i := len(a.participants) - 1; i >= 0; i-- {
			p := a.participants[i]
			if p.Status.IsTerminal() {
				if p.Status == ParticipantFailedToComplete || p.Status == ParticipantFailedToCompensate {
					failed = true
				}
				continue
			}

			inv := c.invokerFor(a.id, p)

			// On redrive, a pending participant is polled before the
			// callback is re-sent: a participant that reported Completing
			// may have finished on its own since.
			if redrive && p.Status.IsPending() {
				cctx, cancel := c.callCtx(ctx)
				status, ok := inv.PollStatus(cctx)
				cancel()
				if ok && status.IsTerminal() {
					p.Status = status
					if status == ParticipantFailedToComplete || status == ParticipantFailedToCompensate {
						failed = true
					} else if status == ParticipantCompleted && p.Callbacks.Forget != "" {
						p.ForgetPending = true
					}
					continue
				}
			}

			started := time.Now()
			cctx, cancel := c.callCtx(ctx)
			status := inv.Finish(cctx, compensate)
			cancel()
			p.Status = status
			c.metrics.RecordParticipantNotified(kind, status.IsTerminal() && !isFailedStatus(status), time.Since(started))

			switch {
			case status.IsPending():
				pending = true
			case isFailedStatus(status):
				failed = true
			case status == ParticipantCompleted && p.Callbacks.Forget != "":
				// Compensating participants are never asked to forget:
				// compensation already implies cleanup on their side.
				p.ForgetPending = true
			}
		}

		if pending {
			// The outcome stays fixed but not final; the recovery scanner
			// owns convergence from here.
			if err := c.persist(ctx, a); err != nil {
				return a.status, NewStoreError("terminate", err).WithDiagnostic(DiagTerminationPending)
			}
			return a.status, nil
		}

		final := terminalStatus(compensate, failed)
		a.status = final
		c.metrics.RecordFinished(final, time.Since(a.startTime))
		c.publish(ctx, &Event{Type: EventFinished, LRAID: a.id, Status: final.String(), Timestamp: time.Now()})
		logger.GetLogger().Info("LRA finished",
			zap.String("lra_id", string(a.id)),
			zap.String("status", final.String()))

		for _, p := range a.participants {
			if p.Callbacks.After != "" {
				p.AfterPending = true
			}
		}
	}

	c.cleanupPass(ctx, a)

	if a.fullyForgotten() {
		if err := c.store.Delete(ctx, a.id); err != nil {
			// Keep the record; the next recovery scan deletes it.
			if perr := c.persist(ctx, a); perr != nil {
				return a.status, NewStoreError("terminate", perr).WithDiagnostic(DiagTerminationPending)
			}
			return a.status, nil
		}
		c.actions.Delete(a.id)
		return a.status, nil
	}

	if err := c.persist(ctx, a); err != nil {
		return a.status, NewStoreError("terminate", err).WithDiagnostic(DiagTerminationPending)
	}
	return a.status, nil
}

// cleanupPass delivers forget and after notifications for a terminal action.
// Forget is only issued after a successful outcome. Neither notification
// gates the terminal status itself; unacknowledged ones are redelivered on
// every recovery scan. Caller must hold the action lock.
func (c *Coordinator) cleanupPass(ctx context.Context, a *Action) {
	success := a.status == StatusClosed || a.status == StatusCancelled

	for _, p := range a.participants {
		if p.ForgetPending && success {
			cctx, cancel := c.callCtx(ctx)
			err := c.invokerFor(a.id, p).Forget(cctx)
			cancel()
			if err != nil {
				logger.GetLogger().Warn("forget not acknowledged",
					zap.String("lra_id", string(a.id)),
					zap.String("recovery_id", p.RecoveryID),
					zap.Error(err))
			} else {
				p.ForgetPending = false
			}
		}
		if p.AfterPending {
			cctx, cancel := c.callCtx(ctx)
			err := c.invokerFor(a.id, p).After(cctx, a.status)
			cancel()
			if err != nil {
				logger.GetLogger().Warn("after notification not acknowledged",
					zap.String("lra_id", string(a.id)),
					zap.String("recovery_id", p.RecoveryID),
					zap.Error(err))
			} else {
				p.AfterPending = false
			}
		}
	}
}

// needsRedrive reports whether a recovery scan should run a termination pass
// on the action. Caller must hold the lock.
func (a *Action) needsRedrive() bool {
	if a.status.IsFinishing() {
		return true
	}
	if !a.status.IsTerminal() {
		return false
	}
	success := a.status == StatusClosed || a.status == StatusCancelled
	for _, p := range a.participants {
		if p.AfterPending {
			return true
		}
		if p.ForgetPending && success {
			return true
		}
	}
	return false
}

func isFailedStatus(s ParticipantStatus) bool {
	return s == ParticipantFailedToComplete || s == ParticipantFailedToCompensate
}

func terminalStatus(compensate, failed bool) Status {
	switch {
	case compensate && failed:
		return StatusFailedToCancel
	case compensate:
		return StatusCancelled
	case failed:
		return StatusFailedToClose
	default:
		return StatusClosed
	}
}
