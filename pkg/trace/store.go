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

// Package trace implements a time-indexed, per-key collection-difference
// store (a "trace store") for an incremental/differential dataflow engine.
// For each key it records a partially ordered history of weighted-value
// batches at logical times; downstream consumers reconstruct the
// accumulated collection for a key at any time by summing every batch
// whose time is less-than-or-equal in the time lattice.
//
// A Store is logically equivalent to map[K][]struct{Time T; Values []Pair[V]}.
// For efficiency, weighted values are co-located by time in a single
// growable array, and each key threads a singly-linked, newest-first chain
// of link records through that array. See DESIGN.md for how this mirrors
// github.com/tokenrove/differential-dataflow's original Rust CollectionTrace.
package trace

import "fmt"

// link is the (time_index, value_lower, next) triple of spec.md's Link
// record (§3 invariant 1): the batch slice it denotes is
// times[timeIndex].values[lower:upper], where upper is either the next
// link's lower bound (if that link addresses the same time) or the end of
// the values slice.
type link struct {
	timeIndex uint32
	lower     uint32
	next      Offset
	hasNext   bool
}

// timeEntry is one element of the time array: a distinct logical time and
// the full set of weighted values received at it. Only the last element
// may still be appended to (spec.md §3 invariant 4); every earlier element
// is frozen.
type timeEntry[T any, V Ordered] struct {
	time   T
	values []Pair[V]
}

// Store is the trace store itself: CollectionTrace<K,T,V,L> from the
// original. It owns the link array (append-only), the time array
// (append-mostly), a Lookup from key to the Offset of that key's newest
// link, and a reusable scratch buffer for SetCollection.
//
// Store is single-owner and not safe for concurrent use (spec.md §5);
// callers that need many independently-owned stores under concurrent
// access should look at internal/tracestore/runtime.Registry instead of
// adding locking here.
type Store[K comparable, T LeastUpperBound[T], V Ordered] struct {
	links []link
	times []timeEntry[T, V]
	keys  Lookup[K]

	scratch []Pair[V]
}

// NewStore constructs an empty trace store using the given Lookup
// collaborator for the key map.
func NewStore[K comparable, T LeastUpperBound[T], V Ordered](keys Lookup[K]) *Store[K, T, V] {
	return &Store[K, T, V]{keys: keys}
}

// NewMapStore is a convenience constructor using the default map-backed
// Lookup.
func NewMapStore[K comparable, T LeastUpperBound[T], V Ordered]() *Store[K, T, V] {
	return NewStore[K, T, V](NewMapLookup[K]())
}

// spliceLink appends one link record for key, addressing timeIndex
// starting at lower, and makes it the head of key's chain. It is
// shared by InstallDifferences and SetCollection (spec.md §4.5 describes
// both as "append a link record ... and update the key map").
func (s *Store[K, T, V]) spliceLink(key K, timeIndex int, lower int) {
	nextPosition := NewOffset(len(s.links))
	prior, wasInserted := s.keys.GetOrInsert(key, nextPosition)
	if wasInserted {
		s.links = append(s.links, link{timeIndex: uint32(timeIndex), lower: uint32(lower)})
		return
	}
	s.links = append(s.links, link{timeIndex: uint32(timeIndex), lower: uint32(lower), next: prior, hasNext: true})
	s.keys.Set(key, nextPosition)
}

// InstallDifferences appends a new time-batch and threads each affected
// key's new entry onto the head of that key's chain (spec.md §4.5).
//
// keysSortedGrouped must have equal keys adjacent (contiguous runs); a
// run's length is how many entries of values belong to that key. values
// is the batch's weighted values, already sorted-and-coalesced within
// each key's run, laid out end-to-end in the same order as the runs.
// Passing unsorted runs or a values slice whose length doesn't match
// keysSortedGrouped is a programming-contract violation (spec.md §7).
//
// If the store's active time already equals time, the per-key runs are
// still spliced onto their chains, but values is not used to extend the
// active time's batch — matching the original's documented-but-odd
// behavior of silently discarding values in that case (spec.md §9 open
// question #1; SPEC_FULL.md §9.1 records this port's resolution: callers
// must not repeat a time with different backing values).
func (s *Store[K, T, V]) InstallDifferences(time T, keysSortedGrouped []K, values []Pair[V]) {
	lower := 0
	for lower < len(keysSortedGrouped) {
		upper := lower + 1
		for upper < len(keysSortedGrouped) && keysSortedGrouped[lower] == keysSortedGrouped[upper] {
			upper++
		}
		if upper > len(values) {
			panic(fmt.Sprintf("trace: InstallDifferences key run [%d:%d) exceeds values length %d", lower, upper, len(values)))
		}
		s.spliceLink(keysSortedGrouped[lower], len(s.times), lower)
		lower = upper
	}

	if len(s.times) == 0 || !s.times[len(s.times)-1].time.Equal(time) {
		if n := len(s.times); n > 0 {
			s.times[n-1].values = s.times[n-1].values[:len(s.times[n-1].values):len(s.times[n-1].values)]
		}
		s.times = append(s.times, timeEntry[T, V]{time: time, values: values})
	}
}

// SetCollection replaces the accumulated collection for key at time so
// that walking the chain up to and including time reproduces collection
// exactly (spec.md §4.5). It assumes every strictly earlier time is
// already frozen; violating that yields silently incorrect accumulations
// (spec.md §9 open question #3 — a documented caller contract, not
// something this method detects).
func (s *Store[K, T, V]) SetCollection(key K, time T, collection []Pair[V]) {
	collection = Coalesce(collection)

	if len(s.times) == 0 || !s.times[len(s.times)-1].time.Equal(time) {
		if n := len(s.times); n > 0 {
			s.times[n-1].values = s.times[n-1].values[:len(s.times[n-1].values):len(s.times[n-1].values)]
		}
		s.times = append(s.times, timeEntry[T, V]{time: time})
	}

	scratch := s.scratch
	s.scratch = nil

	scratch = scratch[:0]
	scratch = s.getCollectionInto(key, time, scratch)
	for i := range scratch {
		scratch[i].Weight = -scratch[i].Weight
	}

	activeIndex := len(s.times) - 1
	offset := len(s.times[activeIndex].values)

	merge([][]Pair[V]{scratch, collection}, &s.times[activeIndex].values)

	if len(s.times[activeIndex].values) > offset {
		s.spliceLink(key, activeIndex, offset)
	}

	s.scratch = scratch[:0]
}

// getRange returns the batch slice a link record denotes, per spec.md §3
// invariant 1: no allocation, no copy, just a reslice of the owning time
// entry's values.
func (s *Store[K, T, V]) getRange(position Offset) []Pair[V] {
	l := s.links[position.Value()]
	index := int(l.timeIndex)
	lower := int(l.lower)

	upper := len(s.times[index].values)
	if p := position.Value() + 1; p < len(s.links) && int(s.links[p].timeIndex) == index {
		upper = int(s.links[p].lower)
	}
	return s.times[index].values[lower:upper]
}

// GetRange is the public form of getRange (spec.md §4.5).
func (s *Store[K, T, V]) GetRange(position Offset) []Pair[V] {
	return s.getRange(position)
}

// GetDifference returns the first batch in key's chain whose time equals
// time, or an empty slice if none (spec.md §4.5).
func (s *Store[K, T, V]) GetDifference(key K, time T) []Pair[V] {
	it := s.Trace(key)
	for {
		t, batch, ok := it.Next()
		if !ok {
			return nil
		}
		if t.Equal(time) {
			return batch
		}
	}
}

// getCollectionInto is the shared implementation behind GetCollection and
// SetCollection's internal reconstruction step: it merges every batch in
// key's chain whose time is <= time into target (which must start empty)
// and returns the (possibly reallocated) target.
func (s *Store[K, T, V]) getCollectionInto(key K, time T, target []Pair[V]) []Pair[V] {
	if len(target) != 0 {
		panic("trace: get_collection target must be empty")
	}
	var slices [][]Pair[V]
	it := s.Trace(key)
	for {
		t, batch, ok := it.Next()
		if !ok {
			break
		}
		if t.LessEqual(time) {
			slices = append(slices, batch)
		}
	}
	merge(slices, &target)
	return target
}

// GetCollection collects every batch in key's chain whose time is <= time
// (under the lattice's partial order, not a total order — times
// incomparable with time are excluded) and merges them into target, which
// must be empty on entry (spec.md §4.5, §7). Output is sorted and
// coalesced when every batch in the chain is in canonical form; merge
// copies the last remaining batch's tail as is, so a non-canonical batch
// (see TestScenarioS4) appears in the output uncoalesced.
func (s *Store[K, T, V]) GetCollection(key K, time T, target *[]Pair[V]) {
	*target = s.getCollectionInto(key, time, *target)
}

// GetCollectionIterator returns a lazy, coalesced, merged stream
// equivalent to GetCollection but without materializing the result
// (spec.md §4.5). Restartability is not required and not provided.
func (s *Store[K, T, V]) GetCollectionIterator(key K, time T) ValueIter[V] {
	var sources []ValueIter[V]
	it := s.Trace(key)
	for {
		t, batch, ok := it.Next()
		if !ok {
			break
		}
		if t.LessEqual(time) {
			sources = append(sources, NewSliceIter(batch))
		}
	}
	return NewCoalesceIter[V](NewMergeIter[V](sources))
}

// InterestingTimes computes the set of times at which key's accumulation
// may change as a function of index: for each time t in key's chain, add
// lub(t, index) to result if not already present, then close the result
// under LUB (spec.md §4.5). Order within result is unspecified.
func (s *Store[K, T, V]) InterestingTimes(key K, index T, result []T) []T {
	it := s.Trace(key)
	for {
		t, _, ok := it.Next()
		if !ok {
			break
		}
		joined := t.LUB(index)
		if !containsLattice(result, joined) {
			result = append(result, joined)
		}
	}
	return CloseUnderLUB(result)
}

// Trace returns an iterator over key's chain, newest-first. If key is
// unknown, the returned iterator yields nothing (spec.md §4.5).
func (s *Store[K, T, V]) Trace(key K) *TraceIterator[K, T, V] {
	head, ok := s.keys.GetRef(key)
	return &TraceIterator[K, T, V]{store: s, next: head, hasNext: ok}
}

// Keys returns every key the store has ever seen a difference for, in
// unspecified order. Not part of spec.md's CORE API; added so the ambient
// runtime layer can enumerate a store's keys when checkpointing it.
func (s *Store[K, T, V]) Keys() []K {
	return s.keys.Keys()
}
