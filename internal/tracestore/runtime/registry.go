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

// Package runtime provides the in-memory management of trace.Store instances
// for a dataflow engine that runs many independent operators, each owning
// its own single-threaded trace store. This file handles operator lifecycle:
// lazy creation, last-touch tracking, and eviction.
package runtime

import (
	"sync"
	"sync/atomic"
	"time"

	"tracestore/pkg/trace"
)

// Key is the key type trace stores managed by this registry are indexed
// by. Time is fixed to trace.IntTime: a dataflow engine's operators share
// one global logical-time lattice, so the registry does not need to be
// generic over T the way pkg/trace is.
type Key = string

// Value is the weighted-value type carried by managed stores.
type Value = string

// managedTrace wraps one operator's trace.Store with metadata needed to
// manage its lifecycle: last access time for idle eviction, and a dirty
// flag so the background worker only snapshots operators that changed
// since the last scan.
//
// lastAccessed is updated on every hot-path touch and read by the eviction
// scan; it is only written by GetOrCreate and only read by background
// routines.
type managedTrace struct {
	store        *trace.Store[Key, trace.IntTime, Value]
	lastAccessed int64
	dirty        atomic.Bool
}

// Registry manages a collection of named trace-store operators in memory.
// It is safe for concurrent use: operator lookup and creation use sync.Map,
// but each individual trace.Store is itself single-owner (spec.md §5) —
// callers must not call two Store methods for the same operator
// concurrently. In a real dataflow engine this is naturally satisfied
// because each operator runs on its own worker goroutine.
type Registry struct {
	operators sync.Map // name -> *managedTrace
}

// NewRegistry creates an empty operator registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// GetOrCreate returns the trace store for the named operator, creating an
// empty one on first use.
//
// Optimization: avoid allocating on the common case where the operator
// already exists. We first try a plain Load (no allocation). Only on a
// miss do we allocate the managedTrace + Store and attempt a
// LoadOrStore. In a race where another goroutine creates the operator
// first, the extra allocation is rare and immediately discarded.
func (r *Registry) GetOrCreate(name string) *trace.Store[Key, trace.IntTime, Value] {
	if actual, ok := r.operators.Load(name); ok {
		managed := actual.(*managedTrace)
		atomic.StoreInt64(&managed.lastAccessed, time.Now().UnixNano())
		return managed.store
	}

	now := time.Now().UnixNano()
	newManaged := &managedTrace{
		store:        trace.NewMapStore[Key, trace.IntTime, Value](),
		lastAccessed: now,
	}

	if actual, loaded := r.operators.LoadOrStore(name, newManaged); loaded {
		managed := actual.(*managedTrace)
		atomic.StoreInt64(&managed.lastAccessed, now)
		return managed.store
	}
	return newManaged.store
}

// MarkDirty flags name's operator as having unpersisted changes since the
// last snapshot. Called after InstallDifferences/SetCollection.
func (r *Registry) MarkDirty(name string) {
	if actual, ok := r.operators.Load(name); ok {
		actual.(*managedTrace).dirty.Store(true)
	}
}

// ForEach iterates over every managed operator. f must not retain the
// *trace.Store beyond the call if the registry may concurrently evict it.
func (r *Registry) ForEach(f func(name string, store *trace.Store[Key, trace.IntTime, Value], dirty *atomic.Bool, lastAccessed *int64)) {
	r.operators.Range(func(key, value interface{}) bool {
		m := value.(*managedTrace)
		f(key.(string), m.store, &m.dirty, &m.lastAccessed)
		return true
	})
}

// Delete removes name's operator from the registry. Used by the eviction
// worker once an operator has been idle past its retention window.
func (r *Registry) Delete(name string) {
	r.operators.Delete(name)
}
