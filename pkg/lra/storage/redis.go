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
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// recordKeyPattern is the pattern for log record keys: {prefix}record:{uid}
const recordKeyPattern = "%srecord:%s"

// RedisLogStore provides a Redis-based implementation of lra.LogStore.
//
// Key design:
//   - Log records: {prefix}record:{actionID}
//
// ListIDs walks the record keyspace with SCAN so recovery never blocks the
// server the way KEYS would. The store is safe for concurrent use from
// multiple processes; per-record atomicity comes from SET/GET/DEL being
// single-key operations.
type RedisLogStore struct {
	client *redis.Client
	config *RedisConfig
	closed bool
}

// NewRedisLogStore creates a Redis log store and verifies connectivity with
// a ping.
func NewRedisLogStore(config *RedisConfig) (*RedisLogStore, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.dialTimeout(),
		PoolSize:    config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.dialTimeout())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisLogStore{client: client, config: config}, nil
}

func (r *RedisLogStore) key(id lra.ActionID) string {
	return fmt.Sprintf(recordKeyPattern, r.config.keyPrefix(), id.UID())
}

// Put writes or overwrites the record for the given id.
func (r *RedisLogStore) Put(ctx context.Context, id lra.ActionID, record *lra.LogRecord) error {
	if r.closed {
		return lra.ErrStoreClosed
	}
	if id == "" || record == nil {
		return ErrInvalidRecord
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize log record: %w", err)
	}
	if err := r.client.Set(ctx, r.key(id), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get retrieves the record for the given id.
func (r *RedisLogStore) Get(ctx context.Context, id lra.ActionID) (*lra.LogRecord, error) {
	if r.closed {
		return nil, lra.ErrStoreClosed
	}

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, lra.ErrRecordNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var record lra.LogRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to deserialize log record: %w", err)
	}
	return &record, nil
}

// Delete removes the record for the given id. Absent records are a no-op.
func (r *RedisLogStore) Delete(ctx context.Context, id lra.ActionID) error {
	if r.closed {
		return lra.ErrStoreClosed
	}
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// ListIDs returns the id of every stored record using SCAN.
func (r *RedisLogStore) ListIDs(ctx context.Context) ([]lra.ActionID, error) {
	if r.closed {
		return nil, lra.ErrStoreClosed
	}

	pattern := fmt.Sprintf(recordKeyPattern, r.config.keyPrefix(), "*")
	prefix := fmt.Sprintf(recordKeyPattern, r.config.keyPrefix(), "")

	var ids []lra.ActionID
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan failed: %w", err)
		}
		for _, key := range keys {
			uid := strings.TrimPrefix(key, prefix)
			// The key only holds the UID; the full id lives inside the
			// record, so fetch it to return routable ids.
			rec, gerr := r.Get(ctx, lra.ActionID(uid))
			if gerr != nil {
				continue
			}
			ids = append(ids, rec.ID)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// Close releases the Redis client.
func (r *RedisLogStore) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

// Ping verifies connectivity, for health checks.
func (r *RedisLogStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}
