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

package trace

// ValueIter is the pull-iterator shape every adapter in this file
// implements: a finite, non-restartable stream of (value, weight) pairs.
// It stands in for the Rust original's Iterator<Item=(&V,i32)>; Go has no
// borrowed-reference iterator sugar, so values are handed out by copy
// (cheap, since V is an Ordered scalar per spec.md §3).
type ValueIter[V Ordered] interface {
	// Next returns the next pair and true, or the zero value and false
	// once the stream is exhausted.
	Next() (V, int32, bool)
}

// SliceIter yields the entries of a single borrowed batch slice in order.
// It is the direct analogue of the Rust original's SliceIterator.
type SliceIter[V Ordered] struct {
	slice []Pair[V]
	pos   int
}

// NewSliceIter wraps slice, which must already be in canonical form
// (spec.md invariant 3): strictly increasing values, non-zero weights.
func NewSliceIter[V Ordered](slice []Pair[V]) *SliceIter[V] {
	return &SliceIter[V]{slice: slice}
}

func (s *SliceIter[V]) Next() (V, int32, bool) {
	if s.pos >= len(s.slice) {
		var zero V
		return zero, 0, false
	}
	p := s.slice[s.pos]
	s.pos++
	return p.Value, p.Weight, true
}

// peeked lets MergeIter/CoalesceIter look one item ahead per source
// without the source itself needing to support peeking.
type peeked[V Ordered] struct {
	value V
	weight int32
	ok    bool
}

func peek[V Ordered](it ValueIter[V]) peeked[V] {
	v, w, ok := it.Next()
	return peeked[V]{value: v, weight: w, ok: ok}
}

// MergeIter is a streaming k-way merge by Value across several already
// sorted, coalesced sources, summing weights of equal values as it goes
// (but, unlike the batch merge function, without dropping zero sums —
// that is CoalesceIter's job, matching the Rust original's Merge/Coalesce
// being two separate iterator adapters composed together).
type MergeIter[V Ordered] struct {
	sources []ValueIter[V]
	heads   []peeked[V]
}

// NewMergeIter constructs a streaming merge over sources. Sources are
// consumed lazily; get_collection_iterator's "restartability is not
// required" (spec.md §4.5) holds because MergeIter never rewinds them.
func NewMergeIter[V Ordered](sources []ValueIter[V]) *MergeIter[V] {
	m := &MergeIter[V]{sources: sources, heads: make([]peeked[V], len(sources))}
	for i, s := range sources {
		m.heads[i] = peek(s)
	}
	return m
}

func (m *MergeIter[V]) Next() (V, int32, bool) {
	minIdx := -1
	for i, h := range m.heads {
		if !h.ok {
			continue
		}
		if minIdx == -1 || h.value < m.heads[minIdx].value {
			minIdx = i
		}
	}
	if minIdx == -1 {
		var zero V
		return zero, 0, false
	}
	value := m.heads[minIdx].value
	var sum int32
	for i, h := range m.heads {
		if h.ok && h.value == value {
			sum += h.weight
			m.heads[i] = peek(m.sources[i])
		}
	}
	return value, sum, true
}

// CoalesceIter collapses adjacent equal-value runs from an already
// value-sorted (but not necessarily weight-summed) source and drops runs
// that sum to zero, producing the canonical stream get_collection_iterator
// promises (spec.md §4.5, tested by property 7 in spec.md §8).
type CoalesceIter[V Ordered] struct {
	src  ValueIter[V]
	next peeked[V]
}

// NewCoalesceIter wraps src.
func NewCoalesceIter[V Ordered](src ValueIter[V]) *CoalesceIter[V] {
	return &CoalesceIter[V]{src: src, next: peek(src)}
}

func (c *CoalesceIter[V]) Next() (V, int32, bool) {
	for c.next.ok {
		value := c.next.value
		sum := c.next.weight
		c.next = peek(c.src)
		for c.next.ok && c.next.value == value {
			sum += c.next.weight
			c.next = peek(c.src)
		}
		if sum != 0 {
			return value, sum, true
		}
	}
	var zero V
	return zero, 0, false
}
