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
	"encoding/json"
	"errors"
	"sync"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// ErrInvalidRecord is returned when a Put is attempted with an empty id or
// nil record.
var ErrInvalidRecord = errors.New("invalid log record")

// MemoryLogStore provides an in-memory implementation of lra.LogStore.
// Records are deep-copied through JSON on both write and read so callers
// never share mutable state with the store. Suitable for development and
// testing; durability across restarts is obviously not provided.
//
// The store is thread-safe and supports concurrent access from multiple
// goroutines.
type MemoryLogStore struct {
	// mu protects concurrent access to the records map
	mu sync.RWMutex

	// records stores serialized log records indexed by action id
	records map[lra.ActionID][]byte

	// closed indicates whether the store has been closed
	closed bool
}

// NewMemoryLogStore creates a new in-memory log store.
func NewMemoryLogStore() *MemoryLogStore {
	return &MemoryLogStore{
		records: make(map[lra.ActionID][]byte),
	}
}

// Put writes or overwrites the record for the given id.
func (m *MemoryLogStore) Put(ctx context.Context, id lra.ActionID, record *lra.LogRecord) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if id == "" || record == nil {
		return ErrInvalidRecord
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return lra.ErrStoreClosed
	}
	m.records[id] = data
	return nil
}

// Get retrieves the record for the given id.
func (m *MemoryLogStore) Get(ctx context.Context, id lra.ActionID) (*lra.LogRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, lra.ErrStoreClosed
	}

	data, ok := m.records[id]
	if !ok {
		return nil, lra.ErrRecordNotFound
	}
	var record lra.LogRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes the record for the given id. Absent records are a no-op.
func (m *MemoryLogStore) Delete(ctx context.Context, id lra.ActionID) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return lra.ErrStoreClosed
	}
	delete(m.records, id)
	return nil
}

// ListIDs returns the ids of every stored record.
func (m *MemoryLogStore) ListIDs(ctx context.Context) ([]lra.ActionID, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, lra.ErrStoreClosed
	}

	ids := make([]lra.ActionID, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close marks the store closed. Further operations fail with ErrStoreClosed.
func (m *MemoryLogStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}
