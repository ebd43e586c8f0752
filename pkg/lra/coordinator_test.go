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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore is an in-memory LogStore with injectable failures.
type testStore struct {
	mu      sync.Mutex
	records map[ActionID]*LogRecord
	putErr  error
	listErr error
}

func newTestStore() *testStore {
	return &testStore{records: make(map[ActionID]*LogRecord)}
}

func (s *testStore) Put(ctx context.Context, id ActionID, record *LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	cp := *record
	s.records[id] = &cp
	return nil
}

func (s *testStore) Get(ctx context.Context, id ActionID) (*LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *testStore) Delete(ctx context.Context, id ActionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *testStore) ListIDs(ctx context.Context) ([]ActionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]ActionID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *testStore) Close() error { return nil }

func (s *testStore) setPutErr(err error) {
	s.mu.Lock()
	s.putErr = err
	s.mu.Unlock()
}

func (s *testStore) has(id ActionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

// callOrder records the order of callback deliveries across participants.
type callOrder struct {
	mu    sync.Mutex
	calls []string
}

func (o *callOrder) record(call string) {
	o.mu.Lock()
	o.calls = append(o.calls, call)
	o.mu.Unlock()
}

func (o *callOrder) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

// stubParticipant is an httptest-backed participant. Response codes and
// bodies are mutable so a test can flip a participant from pending to done
// between passes.
type stubParticipant struct {
	srv   *httptest.Server
	order *callOrder
	name  string

	mu              sync.Mutex
	completeCode    int
	compensateCode  int
	statusCode      int
	statusBody      string
	forgetCode      int
	afterCode       int
	completeCalls   int
	compensateCalls int
	statusCalls     int
	forgetCalls     int
	afterCalls      int
	lastContext     string
	lastAfterBody   string
}

func newStubParticipant(t *testing.T, order *callOrder, name string) *stubParticipant {
	p := &stubParticipant{
		order:          order,
		name:           name,
		completeCode:   http.StatusOK,
		compensateCode: http.StatusOK,
		statusCode:     http.StatusOK,
		forgetCode:     http.StatusOK,
		afterCode:      http.StatusOK,
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *stubParticipant) handle(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastContext = r.Header.Get(ContextHeader)

	switch {
	case strings.HasSuffix(r.URL.Path, "/complete"):
		p.completeCalls++
		if p.order != nil {
			p.order.record(p.name + ".complete")
		}
		w.WriteHeader(p.completeCode)
	case strings.HasSuffix(r.URL.Path, "/compensate"):
		p.compensateCalls++
		if p.order != nil {
			p.order.record(p.name + ".compensate")
		}
		w.WriteHeader(p.compensateCode)
	case strings.HasSuffix(r.URL.Path, "/status"):
		p.statusCalls++
		w.WriteHeader(p.statusCode)
		_, _ = w.Write([]byte(p.statusBody))
	case strings.HasSuffix(r.URL.Path, "/forget"):
		p.forgetCalls++
		w.WriteHeader(p.forgetCode)
	case strings.HasSuffix(r.URL.Path, "/after"):
		p.afterCalls++
		body := make([]byte, 64)
		n, _ := r.Body.Read(body)
		p.lastAfterBody = string(body[:n])
		w.WriteHeader(p.afterCode)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// callbacks returns the participant's full callback set.
func (p *stubParticipant) callbacks() CallbackURIs {
	return CallbackURIs{
		Complete:   p.srv.URL + "/complete",
		Compensate: p.srv.URL + "/compensate",
	}
}

func (p *stubParticipant) callbacksWith(status, forget, after bool) CallbackURIs {
	cb := p.callbacks()
	if status {
		cb.Status = p.srv.URL + "/status"
	}
	if forget {
		cb.Forget = p.srv.URL + "/forget"
	}
	if after {
		cb.After = p.srv.URL + "/after"
	}
	return cb
}

func (p *stubParticipant) set(f func(*stubParticipant)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(p)
}

func (p *stubParticipant) counts() (complete, compensate, forget, after int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completeCalls, p.compensateCalls, p.forgetCalls, p.afterCalls
}

const testBaseURI = "http://coordinator.test/lra-coordinator"

func newTestCoordinator(t *testing.T, store LogStore) *Coordinator {
	if store == nil {
		store = newTestStore()
	}
	c, err := NewCoordinator(&Config{
		Store:       store,
		BaseURI:     testBaseURI,
		CallTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c
}

func TestNewCoordinatorValidation(t *testing.T) {
	_, err := NewCoordinator(nil)
	assert.Error(t, err)

	_, err = NewCoordinator(&Config{BaseURI: testBaseURI})
	assert.ErrorIs(t, err, ErrLogStoreNotConfigured)

	_, err = NewCoordinator(&Config{Store: newTestStore()})
	assert.ErrorIs(t, err, ErrBaseURINotConfigured)
}

func TestStartLRA(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	c := newTestCoordinator(t, store)

	id, err := c.StartLRA(ctx, "", "order-service", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(id), testBaseURI+"/"))
	assert.True(t, store.has(id), "start must persist a log record")

	status, err := c.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, status)

	info, err := c.GetInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "order-service", info.ClientID)
	assert.Equal(t, "Active", info.StatusName)
	assert.Empty(t, info.Participants)
}

func TestStartLRANegativeTimeLimit(t *testing.T) {
	c := newTestCoordinator(t, nil)
	_, err := c.StartLRA(context.Background(), "", "client", -time.Second)
	assert.True(t, IsBadRequest(err))
}

func TestStartNestedUnknownParent(t *testing.T) {
	c := newTestCoordinator(t, nil)
	_, err := c.StartLRA(context.Background(), ActionID(testBaseURI+"/no-such-parent"), "client", 0)
	assert.True(t, IsNotFound(err))
}

func TestJoinUnknownLRAIsGone(t *testing.T) {
	c := newTestCoordinator(t, nil)
	p := newStubParticipant(t, nil, "p")
	_, err := c.Join(context.Background(), ActionID(testBaseURI+"/vanished"), p.callbacks(), 0, nil)
	assert.True(t, IsGone(err))
}

func TestJoinRequiresCallback(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	_, err = c.Join(ctx, id, CallbackURIs{Status: "http://example.com/status"}, 0, nil)
	assert.True(t, IsBadRequest(err))
}

func TestJoinReturnsRecoveryID(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	p := newStubParticipant(t, nil, "p")
	recoveryID, err := c.Join(ctx, id, p.callbacks(), 0, []byte("compensator-state"))
	require.NoError(t, err)
	assert.NotEmpty(t, recoveryID)

	info, err := c.GetParticipant(ctx, recoveryID)
	require.NoError(t, err)
	assert.Equal(t, recoveryID, info.RecoveryID)
	assert.Equal(t, "Active", info.StatusName)
}

func TestJoinSameIdentityUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	p := newStubParticipant(t, nil, "p")
	first, err := c.Join(ctx, id, p.callbacks(), 0, nil)
	require.NoError(t, err)
	second, err := c.Join(ctx, id, p.callbacks(), time.Minute, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-enlisting the same identity must not mint a new entry")

	info, err := c.GetInfo(ctx, id)
	require.NoError(t, err)
	assert.Len(t, info.Participants, 1)
}

func TestJoinStoreFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	c := newTestCoordinator(t, store)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	store.setPutErr(errors.New("disk full"))
	p := newStubParticipant(t, nil, "p")
	_, err = c.Join(ctx, id, p.callbacks(), 0, nil)
	require.True(t, IsStoreFailed(err))
	assert.Equal(t, DiagEnlistRolledBack, Diagnostic(err))
	store.setPutErr(nil)

	info, err := c.GetInfo(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, info.Participants, "failed enlistment must leave no partial entry")
}

func TestReenlistStoreFailureRestoresEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	c := newTestCoordinator(t, store)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	old := CallbackURIs{
		Complete:   "http://old/complete",
		Compensate: "http://svc/compensate",
	}
	recoveryID, err := c.Join(ctx, id, old, 0, []byte("v1"))
	require.NoError(t, err)

	// A migration to new endpoints hits a store failure mid-enlistment;
	// the existing entry must come back untouched, not half-updated.
	store.setPutErr(errors.New("disk full"))
	migrated := CallbackURIs{
		Complete:   "http://new/complete",
		Compensate: "http://svc/compensate",
	}
	_, err = c.Join(ctx, id, migrated, time.Minute, []byte("v2"))
	require.True(t, IsStoreFailed(err))
	assert.Equal(t, DiagEnlistRolledBack, Diagnostic(err))
	store.setPutErr(nil)

	kept, err := c.GetParticipant(ctx, recoveryID)
	require.NoError(t, err)
	assert.Equal(t, "http://old/complete", kept.Callbacks.Complete)

	info, err := c.GetInfo(ctx, id)
	require.NoError(t, err)
	assert.Len(t, info.Participants, 1)
}

func TestStartStoreFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	c := newTestCoordinator(t, store)

	store.setPutErr(errors.New("disk full"))
	_, err := c.StartLRA(ctx, "", "client", 0)
	require.True(t, IsStoreFailed(err))
	assert.Equal(t, DiagStartNothingChanged, Diagnostic(err))
	store.setPutErr(nil)

	infos, err := c.GetAllLRAs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	p := newStubParticipant(t, nil, "p")
	recoveryID, err := c.Join(ctx, id, p.callbacks(), 0, nil)
	require.NoError(t, err)

	require.NoError(t, c.Leave(ctx, id, recoveryID))
	// Removing an already removed participant is a no-op, not an error.
	require.NoError(t, c.Leave(ctx, id, recoveryID))

	status, err := c.Close(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, status)

	complete, compensate, _, _ := p.counts()
	assert.Zero(t, complete, "a departed participant must not be notified")
	assert.Zero(t, compensate)
}

func TestLeaveByCompensateURI(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	p := newStubParticipant(t, nil, "p")
	_, err = c.Join(ctx, id, p.callbacks(), 0, nil)
	require.NoError(t, err)

	require.NoError(t, c.Leave(ctx, id, p.callbacks().Compensate))
	info, err := c.GetInfo(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, info.Participants)
}

func TestLeaveAfterTerminationStarted(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	pending := newStubParticipant(t, nil, "pending")
	pending.set(func(p *stubParticipant) { p.completeCode = http.StatusAccepted })
	recoveryID, err := c.Join(ctx, id, pending.callbacks(), 0, nil)
	require.NoError(t, err)

	status, err := c.Close(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusClosing, status)

	err = c.Leave(ctx, id, recoveryID)
	assert.True(t, IsPreconditionFailed(err))
}

func TestRenewValidation(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)

	err := c.Renew(ctx, ActionID(testBaseURI+"/unknown"), time.Minute)
	assert.True(t, IsNotFound(err))

	id, err := c.StartLRA(ctx, "", "client", time.Minute)
	require.NoError(t, err)
	err = c.Renew(ctx, id, -time.Second)
	assert.True(t, IsBadRequest(err))
}

func TestGetAllLRAsFilter(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	_, err := c.StartLRA(ctx, "", "a", 0)
	require.NoError(t, err)
	_, err = c.StartLRA(ctx, "", "b", 0)
	require.NoError(t, err)

	infos, err := c.GetAllLRAs(ctx, "Active")
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	infos, err = c.GetAllLRAs(ctx, "Cancelled")
	require.NoError(t, err)
	assert.Empty(t, infos)

	_, err = c.GetAllLRAs(ctx, "Bogus")
	assert.True(t, IsBadRequest(err))
}

func TestReplaceParticipant(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	old := newStubParticipant(t, nil, "old")
	replacement := newStubParticipant(t, nil, "new")
	recoveryID, err := c.Join(ctx, id, old.callbacks(), 0, nil)
	require.NoError(t, err)

	require.NoError(t, c.ReplaceParticipant(ctx, recoveryID, replacement.callbacks()))

	status, err := c.Close(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, status)

	oldComplete, _, _, _ := old.counts()
	newComplete, _, _, _ := replacement.counts()
	assert.Zero(t, oldComplete, "replaced endpoint must no longer be called")
	assert.Equal(t, 1, newComplete)
}

func TestReplaceParticipantUnknown(t *testing.T) {
	c := newTestCoordinator(t, nil)
	err := c.ReplaceParticipant(context.Background(), "no-such-recovery-id", CallbackURIs{Compensate: "http://example.com/c"})
	assert.True(t, IsNotFound(err))
}

func TestShutdownRejectsNewWork(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t, nil)
	require.NoError(t, c.Shutdown(ctx))
	// Shutdown is idempotent.
	require.NoError(t, c.Shutdown(ctx))

	_, err := c.StartLRA(ctx, "", "client", 0)
	require.Error(t, err)
	var coded *Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, ErrCodeCoordinatorStopped, coded.Code)
}

func TestShutdownLeavesLogIntact(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	c := newTestCoordinator(t, store)
	id, err := c.StartLRA(ctx, "", "client", 0)
	require.NoError(t, err)

	require.NoError(t, c.Shutdown(ctx))
	assert.True(t, store.has(id), "shutdown must not delete live records")
}
