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

package runtime

import (
	"fmt"
	"sync"
	"time"

	"tracestore/pkg/trace"
)

// Snapshot is one operator/key's materialized collection as observed by
// the background worker at a point in logical time.
type Snapshot struct {
	Operator   string
	Key        string
	Time       trace.IntTime
	Collection []trace.Pair[Value]
}

// Persister is the interface for any snapshot storage implementation.
// This allows the worker to swap backends (e.g., for a real database)
// without changing its scan logic.
type Persister interface {
	CommitBatch(snapshots []Snapshot) error
	// PrintFinalMetrics prints a single, end-of-process summary.
	// Implementations should ensure this is safe to call after all
	// snapshots are done.
	PrintFinalMetrics()
}

// NewMockPersister creates a simple persister that prints snapshots to the
// console. Used for the demo and for tests that don't need a real backend.
func NewMockPersister() Persister {
	return &mockPersister{}
}

type mockPersister struct {
	mu             sync.Mutex
	totalKeys      int64
	totalBatches   int64
	totalOperators map[string]struct{}
}

// CommitBatch simulates writing a batch of snapshots to a database.
func (p *mockPersister) CommitBatch(snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	fmt.Printf("[%s] Persisting batch of %d snapshots...\n", time.Now().Format(time.RFC3339), len(snaps))
	for _, s := range snaps {
		fmt.Printf("  - OPERATOR: %-16s KEY: %-20s TIME: %v COLLECTION: %v\n", s.Operator, s.Key, s.Time, s.Collection)
	}

	p.mu.Lock()
	if p.totalOperators == nil {
		p.totalOperators = make(map[string]struct{})
	}
	for _, s := range snaps {
		p.totalOperators[s.Operator] = struct{}{}
	}
	p.totalKeys += int64(len(snaps))
	p.totalBatches++
	p.mu.Unlock()

	RecordSnapshot(int64(len(snaps)))
	return nil
}

// PrintFinalMetrics prints a single summary at the end of the process.
func (p *mockPersister) PrintFinalMetrics() {
	p.mu.Lock()
	totalKeys := p.totalKeys
	totalBatches := p.totalBatches
	operators := len(p.totalOperators)
	p.mu.Unlock()

	installsN, setCollectsN, snapshotsN := getEventTotals()

	fmt.Println("Final persistence metrics")
	fmt.Printf("  Installs:           %d\n", installsN)
	fmt.Printf("  SetCollections:     %d\n", setCollectsN)
	fmt.Printf("  Snapshot entries:   %d\n", snapshotsN)
	fmt.Printf("  Snapshot keys:      %d\n", totalKeys)
	fmt.Printf("  Snapshot batches:   %d\n", totalBatches)
	fmt.Printf("  Distinct operators: %d\n", operators)
	fmt.Println("Pending state: any operator dirtied after the last scan is flushed on graceful shutdown.")
}
