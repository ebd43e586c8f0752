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
)

var (
	// ErrRecordNotFound is returned by LogStore.Get for an unknown id.
	ErrRecordNotFound = errors.New("log record not found")

	// ErrStoreClosed is returned by LogStore operations after Close.
	ErrStoreClosed = errors.New("log store is closed")
)

// LogStore is the durable key-value log the coordinator writes LRA state to.
// The key is the ActionID, the value is a LogRecord snapshot of the action
// and its participants.
//
// Implementations must be safe for concurrent use and crash-consistent:
// a Put either lands completely or not at all, ListIDs observes a consistent
// key set for recovery scans, and Delete is atomic with respect to
// concurrent reads. Any KV engine, embedded or networked, satisfies this;
// see the storage subpackage for memory, Redis and SQL backends.
type LogStore interface {
	// Put writes or overwrites the record for the given id.
	Put(ctx context.Context, id ActionID, record *LogRecord) error

	// Get retrieves the record for the given id.
	// Returns ErrRecordNotFound if no record exists.
	Get(ctx context.Context, id ActionID) (*LogRecord, error)

	// Delete removes the record for the given id. Deleting an absent record
	// is not an error.
	Delete(ctx context.Context, id ActionID) error

	// ListIDs returns the ids of every stored record. Recovery scans use
	// this to find actions that are not live in memory.
	ListIDs(ctx context.Context) ([]ActionID, error)

	// Close releases any resources held by the store.
	Close() error
}
