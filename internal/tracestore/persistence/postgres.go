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
	"errors"
	"fmt"
	"time"
)

// Postgres schema (reference):
//
// CREATE TABLE IF NOT EXISTS operator_snapshots (
//   operator TEXT NOT NULL,
//   key TEXT NOT NULL,
//   collection JSONB NOT NULL,
//   PRIMARY KEY (operator, key)
// );
//
// CREATE TABLE IF NOT EXISTS applied_snapshots (
//   snapshot_id TEXT PRIMARY KEY,
//   operator TEXT NOT NULL,
//   key TEXT NOT NULL,
//   ts TIMESTAMPTZ NOT NULL DEFAULT now()
// );
// CREATE INDEX IF NOT EXISTS idx_applied_snapshots_op_key ON applied_snapshots(operator, key);
//
// Idempotent transaction per snapshot entry:
//   INSERT INTO applied_snapshots(snapshot_id, operator, key) VALUES ($1,$2,$3)
//     ON CONFLICT DO NOTHING;
//   -- if the above affected zero rows, skip the write below: this snapshot_id
//   -- was already applied.
//   INSERT INTO operator_snapshots(operator, key, collection) VALUES ($1,$2,$3)
//     ON CONFLICT (operator, key) DO UPDATE SET collection = EXCLUDED.collection;

// PostgresPersister applies snapshots idempotently using the safe pattern
// above.
type PostgresPersister struct {
	db             *sql.DB
	defaultTimeout time.Duration
}

// NewPostgresPersister creates a persister.
func NewPostgresPersister(db *sql.DB) *PostgresPersister {
	return &PostgresPersister{db: db, defaultTimeout: 10 * time.Second}
}

// CommitBatch applies the provided entries within a single transaction.
// Each entry remains idempotent: if the snapshot_id already exists, its
// effects are skipped.
func (p *PostgresPersister) CommitBatch(ctx context.Context, entries []SnapshotEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && p.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.defaultTimeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, e := range entries {
		if e.SnapshotID == "" {
			return errors.New("SnapshotEntry.SnapshotID must be set")
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO applied_snapshots(snapshot_id, operator, key) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`,
			e.SnapshotID, e.Operator, e.Key)
		if err != nil {
			return fmt.Errorf("insert applied_snapshots(%s): %w", e.SnapshotID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected applied_snapshots(%s): %w", e.SnapshotID, err)
		}
		if n == 0 {
			// Already applied under this snapshot id; skip the state write.
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO operator_snapshots(operator, key, collection) VALUES ($1,$2,$3)
               ON CONFLICT (operator, key) DO UPDATE SET collection = EXCLUDED.collection`,
			e.Operator, e.Key, e.Collection); err != nil {
			return fmt.Errorf("upsert operator_snapshots(%s,%s): %w", e.Operator, e.Key, err)
		}
	}

	return tx.Commit()
}
