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

import (
	"reflect"
	"testing"
)

func pairs(vw ...any) []Pair[string] {
	out := make([]Pair[string], 0, len(vw)/2)
	for i := 0; i < len(vw); i += 2 {
		out = append(out, Pair[string]{Value: vw[i].(string), Weight: int32(vw[i+1].(int))})
	}
	return out
}

func TestMerge(t *testing.T) {
	cases := []struct {
		name   string
		slices [][]Pair[string]
		want   []Pair[string]
	}{
		{
			name:   "empty",
			slices: nil,
			want:   nil,
		},
		{
			name:   "single slice copied verbatim",
			slices: [][]Pair[string]{pairs("a", 1, "b", 2)},
			want:   pairs("a", 1, "b", 2),
		},
		{
			name:   "disjoint slices interleave",
			slices: [][]Pair[string]{pairs("a", 1, "c", 1), pairs("b", 1)},
			want:   pairs("a", 1, "b", 1, "c", 1),
		},
		{
			name:   "overlapping values sum weights",
			slices: [][]Pair[string]{pairs("x", 1, "y", 1), pairs("x", 1)},
			want:   pairs("x", 2, "y", 1),
		},
		{
			name:   "zero sum is dropped",
			slices: [][]Pair[string]{pairs("x", 1), pairs("x", -1, "y", 1)},
			want:   pairs("y", 1),
		},
		{
			name:   "empty slices are skipped",
			slices: [][]Pair[string]{{}, pairs("a", 1), {}},
			want:   pairs("a", 1),
		},
		{
			name:   "three-way tie sums all",
			slices: [][]Pair[string]{pairs("a", 1), pairs("a", 1), pairs("a", -3)},
			want:   pairs("a", -1),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var target []Pair[string]
			merge(tc.slices, &target)
			if !reflect.DeepEqual(target, tc.want) {
				t.Errorf("merge(%v) = %v, want %v", tc.slices, target, tc.want)
			}
		})
	}
}

func TestMergeIterAndCoalesceIterMatchBatchMerge(t *testing.T) {
	slices := [][]Pair[string]{
		pairs("a", 1, "c", 1, "e", 2),
		pairs("b", 1, "c", -1, "d", 1),
		pairs("a", -1, "f", 1),
	}

	var want []Pair[string]
	merge(slices, &want)

	sources := make([]ValueIter[string], len(slices))
	for i, s := range slices {
		sources[i] = NewSliceIter(s)
	}
	stream := NewCoalesceIter[string](NewMergeIter[string](sources))

	var got []Pair[string]
	for {
		v, w, ok := stream.Next()
		if !ok {
			break
		}
		got = append(got, Pair[string]{Value: v, Weight: w})
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("streaming merge = %v, want %v (batch merge)", got, want)
	}
}

func TestCoalesce(t *testing.T) {
	in := pairs("b", 1, "a", 1, "a", -1, "c", 2, "b", 1)
	got := Coalesce(in)
	want := pairs("b", 2, "c", 2)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Coalesce(%v) = %v, want %v", in, got, want)
	}
}
