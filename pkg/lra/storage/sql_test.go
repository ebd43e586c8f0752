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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/innovationmech/lracoord/pkg/lra"
)

// newMockedStore builds a store over a sqlmock connection, bypassing the
// migration that the public constructor runs.
func newMockedStore(t *testing.T) (*SQLLogStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &SQLLogStore{db: gdb}, mock
}

func TestSQLLogStorePut(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedStore(t)
	id := lra.ActionID("http://c/lra/1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `lra_log_records`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Put(ctx, id, testRecord(id)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLogStorePutValidation(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedStore(t)

	assert.ErrorIs(t, store.Put(ctx, "", testRecord("x")), ErrInvalidRecord)
	assert.ErrorIs(t, store.Put(ctx, "x", nil), ErrInvalidRecord)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLogStoreGet(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedStore(t)
	id := lra.ActionID("http://c/lra/1")

	doc, err := json.Marshal(testRecord(id))
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `lra_log_records`").
		WillReturnRows(sqlmock.NewRows(
			[]string{"action_id", "status", "document", "updated_at"}).
			AddRow(string(id), lra.StatusActive.String(), doc, time.Now()))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, lra.StatusActive.String(), got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLogStoreGetNotFound(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedStore(t)

	mock.ExpectQuery("SELECT \\* FROM `lra_log_records`").
		WillReturnRows(sqlmock.NewRows(
			[]string{"action_id", "status", "document", "updated_at"}))

	_, err := store.Get(ctx, "http://c/lra/missing")
	assert.ErrorIs(t, err, lra.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLogStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `lra_log_records`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Delete(ctx, "http://c/lra/1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLogStoreListIDs(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedStore(t)

	mock.ExpectQuery("SELECT `action_id` FROM `lra_log_records`").
		WillReturnRows(sqlmock.NewRows([]string{"action_id"}).
			AddRow("http://c/lra/1").
			AddRow("http://c/lra/2"))

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []lra.ActionID{"http://c/lra/1", "http://c/lra/2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLogStoreClosed(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockedStore(t)

	mock.ExpectClose()
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close(), "close is idempotent")

	assert.ErrorIs(t, store.Put(ctx, "x", testRecord("x")), lra.ErrStoreClosed)
	_, err := store.Get(ctx, "x")
	assert.ErrorIs(t, err, lra.ErrStoreClosed)
	assert.ErrorIs(t, store.Delete(ctx, "x"), lra.ErrStoreClosed)
	_, err = store.ListIDs(ctx)
	assert.ErrorIs(t, err, lra.ErrStoreClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
