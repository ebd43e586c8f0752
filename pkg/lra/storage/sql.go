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
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// logRecordRow is the table shape of one durable log record: the record is
// stored whole as a JSON document, with the status denormalized for
// filtering queries.
type logRecordRow struct {
	ActionID  string    `gorm:"column:action_id;primaryKey;size:255"`
	Status    string    `gorm:"column:status;size:32;index"`
	Document  []byte    `gorm:"column:document;type:longblob"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName sets the table name for GORM.
func (logRecordRow) TableName() string { return "lra_log_records" }

// SQLLogStore provides a relational implementation of lra.LogStore on GORM.
// Every Put is a single-row upsert, so records are crash-consistent without
// explicit transactions.
type SQLLogStore struct {
	db     *gorm.DB
	closed bool
}

// NewSQLLogStore creates a SQL log store over an existing GORM handle and
// migrates the log table.
func NewSQLLogStore(db *gorm.DB) (*SQLLogStore, error) {
	if db == nil {
		return nil, errors.New("gorm db handle is required")
	}
	if err := db.AutoMigrate(&logRecordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate log table: %w", err)
	}
	return &SQLLogStore{db: db}, nil
}

// NewMySQLLogStore opens a MySQL connection with the given DSN and returns a
// store over it.
func NewMySQLLogStore(dsn string) (*SQLLogStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	return NewSQLLogStore(db)
}

// Put writes or overwrites the record for the given id.
func (s *SQLLogStore) Put(ctx context.Context, id lra.ActionID, record *lra.LogRecord) error {
	if s.closed {
		return lra.ErrStoreClosed
	}
	if id == "" || record == nil {
		return ErrInvalidRecord
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize log record: %w", err)
	}
	row := &logRecordRow{
		ActionID:  string(id),
		Status:    record.Status,
		Document:  data,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

// Get retrieves the record for the given id.
func (s *SQLLogStore) Get(ctx context.Context, id lra.ActionID) (*lra.LogRecord, error) {
	if s.closed {
		return nil, lra.ErrStoreClosed
	}

	var row logRecordRow
	err := s.db.WithContext(ctx).First(&row, "action_id = ?", string(id)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lra.ErrRecordNotFound
		}
		return nil, err
	}

	var record lra.LogRecord
	if err := json.Unmarshal(row.Document, &record); err != nil {
		return nil, fmt.Errorf("failed to deserialize log record: %w", err)
	}
	return &record, nil
}

// Delete removes the record for the given id. Absent records are a no-op.
func (s *SQLLogStore) Delete(ctx context.Context, id lra.ActionID) error {
	if s.closed {
		return lra.ErrStoreClosed
	}
	return s.db.WithContext(ctx).Delete(&logRecordRow{}, "action_id = ?", string(id)).Error
}

// ListIDs returns the id of every stored record.
func (s *SQLLogStore) ListIDs(ctx context.Context) ([]lra.ActionID, error) {
	if s.closed {
		return nil, lra.ErrStoreClosed
	}

	var raw []string
	if err := s.db.WithContext(ctx).Model(&logRecordRow{}).Pluck("action_id", &raw).Error; err != nil {
		return nil, err
	}
	ids := make([]lra.ActionID, len(raw))
	for i, r := range raw {
		ids[i] = lra.ActionID(r)
	}
	return ids, nil
}

// Close releases the underlying connection pool.
func (s *SQLLogStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
