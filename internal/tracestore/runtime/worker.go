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

// Package runtime implements the background worker responsible for
// periodic snapshotting and idle-operator eviction.
package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tracestore/pkg/trace"
)

// Worker manages the background tasks for a Registry: periodically
// checkpointing dirty operators and evicting operators that have gone
// untouched for too long.
type Worker struct {
	registry         *Registry
	persister        Persister
	snapshotInterval time.Duration
	evictionAge      time.Duration
	evictionInterval time.Duration
	stopChan         chan struct{}
	wg               sync.WaitGroup
	stopped          uint32

	// OnSnapshotError, if set, is called with the size of a snapshot batch
	// that failed to persist. Left nil by default so this package never
	// has to import a telemetry module itself; callers (e.g. cmd/tracestore-demo)
	// wire it to their metrics of choice.
	OnSnapshotError func(n int)

	// OnOperatorsTracked, if set, is called after every snapshot cycle with
	// the number of operators currently held by the registry.
	OnOperatorsTracked func(n int)
}

// NewWorker creates and configures a new background worker.
//
// snapshotInterval: how often we scan operators for dirty keys to
// checkpoint.
// evictionAge: how long an operator can sit untouched before we drop it
// from memory (after a final snapshot).
// evictionInterval: how often we scan for idle operators.
func NewWorker(registry *Registry, persister Persister, snapshotInterval, evictionAge, evictionInterval time.Duration) *Worker {
	return &Worker{
		registry:         registry,
		persister:        persister,
		snapshotInterval: snapshotInterval,
		evictionAge:      evictionAge,
		evictionInterval: evictionInterval,
		stopChan:         make(chan struct{}),
	}
}

// Start launches the background goroutines for the worker.
func (w *Worker) Start() {
	fmt.Println("Starting background worker...")
	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.snapshotLoop()
	}()
	go func() {
		defer w.wg.Done()
		w.evictionLoop()
	}()
}

// Stop gracefully stops the background worker.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	fmt.Println("Stopping background worker...")
	close(w.stopChan)
	w.wg.Wait()
}

// snapshotLoop periodically checkpoints dirty operators.
func (w *Worker) snapshotLoop() {
	ticker := time.NewTicker(w.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runSnapshotCycle()
		case <-w.stopChan:
			// On stop, perform a final flush of every dirty operator.
			w.runSnapshotCycle()
			return
		}
	}
}

// runSnapshotCycle reconstructs the current collection for every key of
// every dirty operator and persists them as a batch.
func (w *Worker) runSnapshotCycle() {
	var snaps []Snapshot
	var dirtyFlags []*atomic.Bool
	var operatorCount int

	w.registry.ForEach(func(name string, store *trace.Store[Key, trace.IntTime, Value], dirty *atomic.Bool, _ *int64) {
		operatorCount++
		if !dirty.Load() {
			return
		}
		keys := store.Keys()
		at := currentTime(store, keys)
		for _, key := range keys {
			var target []trace.Pair[Value]
			store.GetCollection(key, at, &target)
			snaps = append(snaps, Snapshot{Operator: name, Key: key, Time: at, Collection: target})
		}
		dirtyFlags = append(dirtyFlags, dirty)
	})

	if w.OnOperatorsTracked != nil {
		w.OnOperatorsTracked(operatorCount)
	}

	if len(snaps) == 0 {
		return
	}

	if err := w.persister.CommitBatch(snaps); err != nil {
		fmt.Printf("ERROR: Failed to commit snapshot batch: %v\n", err)
		if w.OnSnapshotError != nil {
			w.OnSnapshotError(len(snaps))
		}
		return
	}
	for _, d := range dirtyFlags {
		d.Store(false)
	}
}

// currentTime returns the latest time an operator's store has observed
// across the given keys; GetCollection is called at this time so the
// snapshot reflects every installed difference.
func currentTime(store *trace.Store[Key, trace.IntTime, Value], keys []Key) trace.IntTime {
	var latest trace.IntTime
	for _, key := range keys {
		it := store.Trace(key)
		if t, _, ok := it.Next(); ok && t > latest {
			latest = t
		}
	}
	return latest
}

// evictionLoop periodically removes idle operators from the registry.
func (w *Worker) evictionLoop() {
	ticker := time.NewTicker(w.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runEvictionCycle()
		case <-w.stopChan:
			return
		}
	}
}

// runEvictionCycle finds and removes stale operators.
func (w *Worker) runEvictionCycle() {
	var namesToEvict []string
	now := time.Now()

	w.registry.ForEach(func(name string, _ *trace.Store[Key, trace.IntTime, Value], _ *atomic.Bool, lastAccessed *int64) {
		last := atomic.LoadInt64(lastAccessed)
		if now.Sub(time.Unix(0, last)) > w.evictionAge {
			namesToEvict = append(namesToEvict, name)
		}
	})

	if len(namesToEvict) == 0 {
		return
	}

	// Persist any dirty operator before dropping it from memory.
	w.runSnapshotCycle()

	fmt.Printf("Evicting %d stale operators...\n", len(namesToEvict))
	for _, name := range namesToEvict {
		w.registry.Delete(name)
	}
}
