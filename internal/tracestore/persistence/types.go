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

// Package persistence provides idempotent snapshot adapters for Postgres,
// Redis, and Kafka. A snapshot is the materialized collection for one
// (operator, key) pair at the time the background worker observed it —
// recomputing trace.Store.GetCollection from scratch on every process
// restart would be correct but slow for operators with long chains, so the
// worker periodically checkpoints dirty operators to one of these backends.
//
// These adapters implement a common entry shape that includes an
// idempotency key (snapshot_id) so that a retried snapshot (crash, timeout,
// duplicate delivery) applying it again is a no-op.
package persistence

import "context"

// SnapshotEntry is the adapter-facing shape for one operator/key's
// materialized collection at a point in logical time.
//
// Fields:
//   - Operator: the dataflow operator (trace store) this snapshot belongs to.
//   - Key: the trace key being snapshotted.
//   - Time: the logical time the collection was reconstructed at.
//   - Collection: the JSON-encoded []trace.Pair[string] as of Time.
//   - SnapshotID: globally unique idempotency key for this snapshot.
//     Re-using the same id for a retried snapshot makes the write a no-op.
//
// Callers are responsible for generating stable SnapshotIDs across retries;
// a monotonic (operator, key, time) tuple is a natural choice.
type SnapshotEntry struct {
	Operator   string
	Key        string
	Time       int64
	Collection []byte
	SnapshotID string
}

// IdempotentPersister defines the minimal API supported by all adapters.
// Implementations must apply each entry atomically with respect to its
// idempotency key, and the operation must be safe to retry. A duplicate
// SnapshotID for the same (Operator, Key) must become a no-op.
type IdempotentPersister interface {
	CommitBatch(ctx context.Context, entries []SnapshotEntry) error
}
