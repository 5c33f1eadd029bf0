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

import "sort"

// Pair is a weighted value: a positive Weight denotes insertion
// multiplicity, negative denotes retraction, and zero is canonically
// absent (spec.md §3).
type Pair[V any] struct {
	Value  V
	Weight int32
}

// Coalesce sorts vals by Value and sums the weights of equal values,
// dropping any whose summed weight is zero. This is the "coalesce"
// primitive spec.md §6 calls an external collaborator; it underlies
// TraceStore.SetCollection's contract to install exactly collection minus
// the previous accumulation.
func Coalesce[V Ordered](vals []Pair[V]) []Pair[V] {
	if len(vals) == 0 {
		return vals
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i].Value < vals[j].Value })

	out := vals[:0]
	i := 0
	for i < len(vals) {
		j := i + 1
		sum := vals[i].Weight
		for j < len(vals) && vals[j].Value == vals[i].Value {
			sum += vals[j].Weight
			j++
		}
		if sum != 0 {
			out = append(out, Pair[V]{Value: vals[i].Value, Weight: sum})
		}
		i = j
	}
	return out
}

// Ordered is the totally-ordered, copyable value constraint spec.md §3
// requires of V. Go's ordered basic types are already copy-by-value, so
// no separate Clone method is needed the way the Rust original needed
// V: Clone.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~string
}
