// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
)

// Minimal fake SQL driver to exercise PostgresPersister's transaction and
// Exec paths without a real database.

type fakeDB struct {
	execs          []string
	failBegin      error
	failCommit     error
	failExecAt     map[int]error // 1-based index of exec call -> error
	rowsAffectedAt map[int]int64 // 1-based index of exec call -> RowsAffected override (default 1)
	commitCount    int
	rollbackCount  int
}

type fakeDriver struct{}

type fakeConn struct{ db *fakeDB }

type fakeTx struct {
	db     *fakeDB
	closed bool
}

type fakeResult int64

func (fakeResult) LastInsertId() (int64, error)   { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

func (fakeDriver) Open(name string) (driver.Conn, error) { return &fakeConn{db: testFakeDB}, nil }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("not supported")
}
func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}
func (c *fakeConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if c.db.failBegin != nil {
		return nil, c.db.failBegin
	}
	return &fakeTx{db: c.db}, nil
}
func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.db.execs = append(c.db.execs, query)
	idx := len(c.db.execs)
	if c.db.failExecAt != nil {
		if err, ok := c.db.failExecAt[idx]; ok {
			return nil, err
		}
	}
	affected := int64(1)
	if c.db.rowsAffectedAt != nil {
		if n, ok := c.db.rowsAffectedAt[idx]; ok {
			affected = n
		}
	}
	return fakeResult(affected), nil
}

func (t *fakeTx) Commit() error {
	if t.closed {
		return errors.New("already closed")
	}
	t.db.commitCount++
	t.closed = true
	if t.db.failCommit != nil {
		return t.db.failCommit
	}
	return nil
}
func (t *fakeTx) Rollback() error {
	if t.closed {
		return nil
	}
	t.db.rollbackCount++
	t.closed = true
	return nil
}

var testFakeDB *fakeDB

func init() {
	sql.Register("fakesql", fakeDriver{})
}

func newSQLDBWithFake(db *fakeDB) *sql.DB {
	testFakeDB = db
	d, _ := sql.Open("fakesql", "")
	return d
}

func TestPostgresPersister_Empty(t *testing.T) {
	db := newSQLDBWithFake(&fakeDB{})
	p := NewPostgresPersister(db)
	if err := p.CommitBatch(context.Background(), nil); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestPostgresPersister_MissingSnapshotID_RollsBack(t *testing.T) {
	f := &fakeDB{}
	db := newSQLDBWithFake(f)
	p := NewPostgresPersister(db)
	err := p.CommitBatch(context.Background(), []SnapshotEntry{{Operator: "op", Key: "a"}})
	if err == nil || err.Error() != "SnapshotEntry.SnapshotID must be set" {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.rollbackCount != 1 {
		t.Fatalf("expected rollback=1, got %d", f.rollbackCount)
	}
	if f.commitCount != 0 {
		t.Fatalf("expected commit=0")
	}
	if len(f.execs) != 0 {
		t.Fatalf("no execs expected, got %d", len(f.execs))
	}
}

func TestPostgresPersister_InsertThenUpsert(t *testing.T) {
	f := &fakeDB{}
	db := newSQLDBWithFake(f)
	p := NewPostgresPersister(db)
	entries := []SnapshotEntry{
		{Operator: "op", Key: "k1", Collection: []byte(`[{"Value":"v","Weight":1}]`), SnapshotID: "s1"},
		{Operator: "op", Key: "k2", Collection: []byte(`[{"Value":"w","Weight":-2}]`), SnapshotID: "s2"},
	}
	if err := p.CommitBatch(context.Background(), entries); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if f.commitCount != 1 || f.rollbackCount != 0 {
		t.Fatalf("commit/rollback mismatch: %d/%d", f.commitCount, f.rollbackCount)
	}
	if len(f.execs) != 4 {
		t.Fatalf("expected 4 execs (insert+upsert per entry), got %d: %v", len(f.execs), f.execs)
	}
	var hasApplied, hasUpsert int
	for _, q := range f.execs {
		if strings.Contains(q, "INSERT INTO applied_snapshots") {
			hasApplied++
		}
		if strings.Contains(q, "INSERT INTO operator_snapshots") && strings.Contains(q, "ON CONFLICT") {
			hasUpsert++
		}
	}
	if hasApplied != 2 || hasUpsert != 2 {
		t.Fatalf("expected 2 applied_snapshots inserts and 2 operator_snapshots upserts, got %d/%d: %v", hasApplied, hasUpsert, f.execs)
	}
}

func TestPostgresPersister_AlreadyApplied_SkipsUpsert(t *testing.T) {
	// The first exec (the applied_snapshots insert) reports 0 rows
	// affected, meaning this snapshot_id was already applied; the
	// operator_snapshots upsert must then be skipped entirely.
	f := &fakeDB{rowsAffectedAt: map[int]int64{1: 0}}
	db := newSQLDBWithFake(f)
	p := NewPostgresPersister(db)
	err := p.CommitBatch(context.Background(), []SnapshotEntry{{Operator: "op", Key: "k", Collection: []byte(`[]`), SnapshotID: "dup"}})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if len(f.execs) != 1 {
		t.Fatalf("expected only the applied_snapshots insert to run, got %d: %v", len(f.execs), f.execs)
	}
	if f.commitCount != 1 || f.rollbackCount != 0 {
		t.Fatalf("commit/rollback mismatch: %d/%d", f.commitCount, f.rollbackCount)
	}
}

func TestPostgresPersister_ExecError_Rollback(t *testing.T) {
	f := &fakeDB{failExecAt: map[int]error{1: errors.New("boom")}}
	db := newSQLDBWithFake(f)
	p := NewPostgresPersister(db)
	err := p.CommitBatch(context.Background(), []SnapshotEntry{{Operator: "op", Key: "k", Collection: []byte(`[]`), SnapshotID: "c"}})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.rollbackCount != 1 || f.commitCount != 0 {
		t.Fatalf("expected rollback only, got c=%d r=%d", f.commitCount, f.rollbackCount)
	}
}

func TestPostgresPersister_CommitError(t *testing.T) {
	f := &fakeDB{failCommit: errors.New("commit-fail")}
	db := newSQLDBWithFake(f)
	p := NewPostgresPersister(db)
	err := p.CommitBatch(context.Background(), []SnapshotEntry{{Operator: "op", Key: "k", Collection: []byte(`[]`), SnapshotID: "c"}})
	if err == nil || err.Error() != "commit-fail" {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.commitCount != 1 {
		t.Fatalf("expected one commit attempt")
	}
}
