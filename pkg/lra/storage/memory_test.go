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

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/lracoord/pkg/lra"
)

func testRecord(id lra.ActionID) *lra.LogRecord {
	return &lra.LogRecord{
		ID:        id,
		ClientID:  "test-client",
		Status:    lra.StatusActive.String(),
		StartTime: time.Now().UTC(),
		Participants: []*lra.Participant{
			{
				RecoveryID: "rec-1",
				Callbacks: lra.CallbackURIs{
					Complete:   "http://svc/complete",
					Compensate: "http://svc/compensate",
				},
			},
		},
	}
}

func TestMemoryLogStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLogStore()
	id := lra.ActionID("http://c/lra/1")

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, lra.ErrRecordNotFound)

	require.NoError(t, store.Put(ctx, id, testRecord(id)))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "test-client", got.ClientID)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, "rec-1", got.Participants[0].RecoveryID)

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []lra.ActionID{id}, ids)

	// Overwrite is a plain replace.
	updated := testRecord(id)
	updated.Status = lra.StatusClosing.String()
	require.NoError(t, store.Put(ctx, id, updated))
	got, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lra.StatusClosing.String(), got.Status)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, lra.ErrRecordNotFound)

	// Deleting an absent record is a no-op.
	assert.NoError(t, store.Delete(ctx, id))
}

func TestMemoryLogStoreValidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLogStore()

	assert.ErrorIs(t, store.Put(ctx, "", testRecord("x")), ErrInvalidRecord)
	assert.ErrorIs(t, store.Put(ctx, "x", nil), ErrInvalidRecord)
}

func TestMemoryLogStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLogStore()
	id := lra.ActionID("http://c/lra/1")

	rec := testRecord(id)
	require.NoError(t, store.Put(ctx, id, rec))

	// Mutating the caller's record after Put must not leak into the store.
	rec.Status = lra.StatusCancelled.String()
	rec.Participants[0].RecoveryID = "tampered"

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lra.StatusActive.String(), got.Status)
	assert.Equal(t, "rec-1", got.Participants[0].RecoveryID)

	// Mutating a returned record must not affect a later read.
	got.Status = lra.StatusClosed.String()
	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lra.StatusActive.String(), again.Status)
}

func TestMemoryLogStoreClosed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLogStore()
	id := lra.ActionID("http://c/lra/1")
	require.NoError(t, store.Put(ctx, id, testRecord(id)))

	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Put(ctx, id, testRecord(id)), lra.ErrStoreClosed)
	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, lra.ErrStoreClosed)
	assert.ErrorIs(t, store.Delete(ctx, id), lra.ErrStoreClosed)
	_, err = store.ListIDs(ctx)
	assert.ErrorIs(t, err, lra.ErrStoreClosed)

	// Close is idempotent.
	assert.NoError(t, store.Close())
}

func TestMemoryLogStoreContextCancelled(t *testing.T) {
	store := NewMemoryLogStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "x", testRecord("x")), context.Canceled)
	_, err := store.Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
