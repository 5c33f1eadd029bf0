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
	"sync"
	"sync/atomic"
	"testing"

	"tracestore/pkg/trace"
)

type recordingPersister struct {
	mu    sync.Mutex
	calls [][]Snapshot
}

func (p *recordingPersister) CommitBatch(snaps []Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Snapshot, len(snaps))
	copy(cp, snaps)
	p.calls = append(p.calls, cp)
	return nil
}

func (p *recordingPersister) PrintFinalMetrics() {}

func TestWorkerSnapshotCycleOnlyPersistsDirtyOperators(t *testing.T) {
	reg := NewRegistry()
	clean := reg.GetOrCreate("clean")
	clean.InstallDifferences(1, []Key{"x"}, []trace.Pair[Value]{{Value: "v", Weight: 1}})

	dirty := reg.GetOrCreate("dirty")
	dirty.InstallDifferences(1, []Key{"y"}, []trace.Pair[Value]{{Value: "w", Weight: 1}})
	reg.MarkDirty("dirty")

	p := &recordingPersister{}
	w := NewWorker(reg, p, 0, 0, 0)
	w.runSnapshotCycle()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) != 1 {
		t.Fatalf("expected exactly one commit batch, got %d", len(p.calls))
	}
	batch := p.calls[0]
	if len(batch) != 1 || batch[0].Operator != "dirty" || batch[0].Key != "y" {
		t.Fatalf("unexpected snapshot batch: %v", batch)
	}
}

func TestWorkerSnapshotCycleClearsDirtyFlag(t *testing.T) {
	reg := NewRegistry()
	store := reg.GetOrCreate("op")
	store.InstallDifferences(1, []Key{"x"}, []trace.Pair[Value]{{Value: "v", Weight: 1}})
	reg.MarkDirty("op")

	p := &recordingPersister{}
	w := NewWorker(reg, p, 0, 0, 0)
	w.runSnapshotCycle()
	w.runSnapshotCycle()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) != 1 {
		t.Fatalf("expected the second cycle to find no dirty operators, got %d total batches", len(p.calls))
	}
}

func TestWorkerEvictionCycleRemovesStaleOperators(t *testing.T) {
	reg := NewRegistry()
	reg.GetOrCreate("stale")

	w := NewWorker(reg, &recordingPersister{}, 0, 0, 0)
	w.evictionAge = -1 // force every operator to look stale regardless of timing
	w.runEvictionCycle()

	count := 0
	reg.ForEach(func(name string, _ *trace.Store[Key, trace.IntTime, Value], _ *atomic.Bool, _ *int64) {
		count++
	})
	if count != 0 {
		t.Fatalf("expected stale operator to be evicted, got %d remaining", count)
	}
}
