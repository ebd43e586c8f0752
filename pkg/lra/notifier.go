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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ContextHeader carries the LRA id on every callback request so the
// participant can correlate the notification with its enlistment.
const ContextHeader = "Long-Running-Action"

// participantInvoker delivers termination callbacks to one participant.
//
// There are exactly two implementations: remoteInvoker, which issues HTTP
// requests to the participant's callback URIs, and nestedInvoker, which
// recursively invokes a child LRA's own close/cancel logic. The termination
// fan-out treats both uniformly, which is what makes nested cascade and leaf
// notification one algorithm.
type participantInvoker interface {
	// Finish delivers complete (compensate=false) or compensate
	// (compensate=true) and returns the participant status that resulted.
	// A pending status means the callback was delivered but the participant
	// has not resolved; an unreachable participant also stays pending so
	// the recovery scanner redrives it.
	Finish(ctx context.Context, compensate bool) ParticipantStatus

	// PollStatus asks the participant for its current status. ok is false
	// when the participant offers no status endpoint.
	PollStatus(ctx context.Context) (status ParticipantStatus, ok bool)

	// Forget tells the participant it can discard state for this LRA.
	Forget(ctx context.Context) error

	// After informs the participant of the final LRA outcome.
	After(ctx context.Context, final Status) error
}

// remoteInvoker notifies a participant over HTTP.
//
// Response mapping for complete/compensate:
//   - 200 with a status name in the body adopts that status; an empty body
//     means the participant finished synchronously.
//   - 202 means the participant accepted the request and is still working.
//   - 4xx means the participant cannot honour the request (FailedTo*).
//   - 5xx and transport errors leave the participant pending for redrive.
type remoteInvoker struct {
	client *http.Client
	lraID  ActionID
	p      *Participant
}

func (r *remoteInvoker) Finish(ctx context.Context, compensate bool) ParticipantStatus {
	uri := r.p.Callbacks.Complete
	pending, done, failed := ParticipantCompleting, ParticipantCompleted, ParticipantFailedToComplete
	if compensate {
		uri = r.p.Callbacks.Compensate
		pending, done, failed = ParticipantCompensating, ParticipantCompensated, ParticipantFailedToCompensate
	}
	if uri == "" {
		// Nothing to call for this direction; the participant has no work
		// to do and the outcome is trivially successful.
		return done
	}

	status, code, err := r.do(ctx, http.MethodPut, uri, "")
	switch {
	case err != nil:
		return pending
	case code == http.StatusOK || code == http.StatusNoContent:
		if status != nil {
			return *status
		}
		return done
	case code == http.StatusAccepted:
		return pending
	case code >= 400 && code < 500:
		return failed
	default:
		return pending
	}
}

func (r *remoteInvoker) PollStatus(ctx context.Context) (ParticipantStatus, bool) {
	uri := r.p.Callbacks.Status
	if uri == "" {
		return ParticipantActive, false
	}
	status, code, err := r.do(ctx, http.MethodGet, uri, "")
	if err != nil || code != http.StatusOK || status == nil {
		return ParticipantActive, false
	}
	return *status, true
}

func (r *remoteInvoker) Forget(ctx context.Context) error {
	_, code, err := r.do(ctx, http.MethodDelete, r.p.Callbacks.Forget, "")
	if err != nil {
		return err
	}
	if code != http.StatusOK && code != http.StatusNoContent {
		return fmt.Errorf("forget not acknowledged: participant returned %d", code)
	}
	return nil
}

func (r *remoteInvoker) After(ctx context.Context, final Status) error {
	_, code, err := r.do(ctx, http.MethodPut, r.p.Callbacks.After, final.String())
	if err != nil {
		return err
	}
	if code != http.StatusOK && code != http.StatusNoContent {
		return fmt.Errorf("after notification not acknowledged: participant returned %d", code)
	}
	return nil
}

// do issues one callback request and parses an optional participant status
// from the response body.
func (r *remoteInvoker) do(ctx context.Context, method, uri, body string) (*ParticipantStatus, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, strings.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set(ContextHeader, string(r.lraID))
	req.Header.Set("Content-Type", "text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return nil, resp.StatusCode, nil
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		if status, perr := ParseParticipantStatus(text); perr == nil {
			return &status, resp.StatusCode, nil
		}
	}
	return nil, resp.StatusCode, nil
}

// nestedInvoker drives a child LRA through the participant interface.
// Complete and compensate recurse into the coordinator's own close/cancel
// logic and report the result in the participant-status vocabulary.
type nestedInvoker struct {
	c     *Coordinator
	child ActionID
}

func (n *nestedInvoker) Finish(ctx context.Context, compensate bool) ParticipantStatus {
	var status Status
	var err error
	if compensate {
		status, err = n.c.Cancel(ctx, n.child)
	} else {
		status, err = n.c.Close(ctx, n.child)
	}
	if err != nil {
		if IsNotFound(err) {
			// Already terminal and forgotten: the child finished on its own
			// before the cascade reached it.
			if compensate {
				return ParticipantCompensated
			}
			return ParticipantCompleted
		}
		if compensate {
			return ParticipantCompensating
		}
		return ParticipantCompleting
	}
	return status.participantView()
}

func (n *nestedInvoker) PollStatus(ctx context.Context) (ParticipantStatus, bool) {
	status, err := n.c.GetStatus(ctx, n.child)
	if err != nil {
		return ParticipantActive, false
	}
	return status.participantView(), true
}

func (n *nestedInvoker) Forget(ctx context.Context) error {
	// A nested child cleans itself up once it is fully terminal; there is
	// no remote state to discard.
	return nil
}

func (n *nestedInvoker) After(ctx context.Context, final Status) error {
	return nil
}

// invokerFor selects the invoker implementation for a participant entry.
func (c *Coordinator) invokerFor(id ActionID, p *Participant) participantInvoker {
	if p.IsNested() {
		return &nestedInvoker{c: c, child: p.NestedID}
	}
	return &remoteInvoker{client: c.httpClient, lraID: id, p: p}
}

// callTimeout bounds one callback delivery so an unreachable participant
// cannot hold its action's lock indefinitely.
func (c *Coordinator) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.callTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
