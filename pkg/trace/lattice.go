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

// LeastUpperBound is the time-lattice collaborator the trace store relies
// on (spec.md §6). T is a join-semilattice: LessEqual is its partial
// order and LUB is its binary join. Equal is specified separately because
// a general lattice element need not be a comparable Go type.
type LeastUpperBound[T any] interface {
	Equal(other T) bool
	LessEqual(other T) bool
	LUB(other T) T
}

// CloseUnderLUB extends elems, in place, to the smallest superset closed
// under pairwise LUB: every join of two elements already present is added
// if it is not already present, repeated until a full pass adds nothing.
// This is the "close_under_lub" collaborator spec.md §6 and §4.5 call out
// by name but leave external; it is implemented here because, unlike
// Lookup, it has no meaningful alternative backing store to abstract over.
func CloseUnderLUB[T LeastUpperBound[T]](elems []T) []T {
	for {
		grew := false
		n := len(elems)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				candidate := elems[i].LUB(elems[j])
				if !containsLattice(elems, candidate) {
					elems = append(elems, candidate)
					grew = true
				}
			}
		}
		if !grew {
			return elems
		}
	}
}

func containsLattice[T LeastUpperBound[T]](elems []T, x T) bool {
	for _, e := range elems {
		if e.Equal(x) {
			return true
		}
	}
	return false
}

// IntTime is the simplest lattice: the naturals under their usual total
// order, LUB = max. Used for scenarios S1-S4 and S6 of spec.md §8.
type IntTime int64

func (t IntTime) Equal(other IntTime) bool    { return t == other }
func (t IntTime) LessEqual(other IntTime) bool { return t <= other }
func (t IntTime) LUB(other IntTime) IntTime {
	if t >= other {
		return t
	}
	return other
}

// ProductTime is the product order on N×N with LUB = pointwise max, the
// lattice spec.md §8 scenario S5 uses to demonstrate that interesting_times
// closure is genuine LUB closure, not just "insert and sort".
type ProductTime struct {
	X, Y int64
}

func (t ProductTime) Equal(other ProductTime) bool {
	return t.X == other.X && t.Y == other.Y
}

func (t ProductTime) LessEqual(other ProductTime) bool {
	return t.X <= other.X && t.Y <= other.Y
}

func (t ProductTime) LUB(other ProductTime) ProductTime {
	return ProductTime{X: maxInt64(t.X, other.X), Y: maxInt64(t.Y, other.Y)}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
