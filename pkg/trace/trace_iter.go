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

// TraceIterator walks one key's chain newest-first, yielding each batch's
// time paired with the batch slice itself (spec.md §4.4). It holds no
// ownership: the slices it hands out are borrowed directly from the
// store's time array and are only valid as long as the store isn't
// mutated.
type TraceIterator[K comparable, T LeastUpperBound[T], V Ordered] struct {
	store   *Store[K, T, V]
	next    Offset
	hasNext bool
}

// Next advances the iterator, returning the next (time, batch) pair and
// true, or the zero values and false once the chain is exhausted.
func (it *TraceIterator[K, T, V]) Next() (T, []Pair[V], bool) {
	if !it.hasNext {
		var zeroT T
		return zeroT, nil, false
	}
	position := it.next
	link := it.store.links[position.Value()]
	result := it.store.times[link.timeIndex].time
	batch := it.store.getRange(position)
	it.next = link.next
	it.hasNext = link.hasNext
	return result, batch, true
}
