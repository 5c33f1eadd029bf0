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

// TODO: doing a fairly primitive merge here, re-reading every remaining
// slice's head on every step; a heap would improve the asymptotics (see
// spec.md §4.3) but isn't required and would complicate this port.
//
// merge appends to target the coalesced multiset sum of slices: drop
// empty slices, then repeatedly find the minimum leading value across all
// remaining slices, sum the weights of every slice whose head equals that
// value, advance those slices, and emit the sum if non-zero. Once only one
// slice remains its tail is copied verbatim, which relies on every input
// already being canonical (spec.md §9 open question: merge does not
// defend against non-coalesced input).
func merge[V Ordered](slices [][]Pair[V], target *[]Pair[V]) {
	live := make([][]Pair[V], 0, len(slices))
	for _, s := range slices {
		if len(s) > 0 {
			live = append(live, s)
		}
	}

	for len(live) > 1 {
		value := live[0][0].Value
		for _, s := range live[1:] {
			if s[0].Value < value {
				value = s[0].Value
			}
		}

		var sum int32
		for i, s := range live {
			if s[0].Value == value {
				sum += s[0].Weight
				live[i] = s[1:]
			}
		}
		if sum != 0 {
			*target = append(*target, Pair[V]{Value: value, Weight: sum})
		}

		kept := live[:0]
		for _, s := range live {
			if len(s) > 0 {
				kept = append(kept, s)
			}
		}
		live = kept
	}

	if len(live) == 1 {
		*target = append(*target, live[0]...)
	}
}
