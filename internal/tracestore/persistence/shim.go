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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"tracestore/internal/tracestore/runtime"
)

// IdemShim adapts an IdempotentPersister to the runtime.Persister
// interface used by the background worker. It generates idempotency
// SnapshotIDs for each entry and JSON-encodes each entry's collection.
//
// Note: in production you should provide stable ids across retries (e.g.
// derived from operator+key+time). This shim generates fresh random ids
// per call, which is sufficient for the demo wiring.
type IdemShim struct {
	impl IdempotentPersister
}

func NewIdemShim(impl IdempotentPersister) *IdemShim { return &IdemShim{impl: impl} }

// CommitBatch maps runtime.Snapshot -> SnapshotEntry and forwards to the
// idempotent persister.
func (s *IdemShim) CommitBatch(snaps []runtime.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	entries := make([]SnapshotEntry, len(snaps))
	for i, sn := range snaps {
		b, err := json.Marshal(sn.Collection)
		if err != nil {
			return fmt.Errorf("marshal collection for %s/%s: %w", sn.Operator, sn.Key, err)
		}
		entries[i] = SnapshotEntry{
			Operator:   sn.Operator,
			Key:        sn.Key,
			Time:       int64(sn.Time),
			Collection: b,
			SnapshotID: randomID(),
		}
	}
	return s.impl.CommitBatch(context.Background(), entries)
}

// PrintFinalMetrics is a no-op for the shim; real adapters can hook their
// own summaries if desired.
func (s *IdemShim) PrintFinalMetrics() {}

func randomID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	dst := make([]byte, 32)
	hex.Encode(dst, b[:])
	return string(dst)
}
