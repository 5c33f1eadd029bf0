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

import "testing"

func TestIntTimeLattice(t *testing.T) {
	if !IntTime(3).LessEqual(IntTime(5)) {
		t.Errorf("3 <= 5 should hold")
	}
	if IntTime(5).LessEqual(IntTime(3)) {
		t.Errorf("5 <= 3 should not hold")
	}
	if got := IntTime(3).LUB(IntTime(5)); got != 5 {
		t.Errorf("LUB(3,5) = %d, want 5", got)
	}
}

func TestProductTimeLattice(t *testing.T) {
	a := ProductTime{X: 1, Y: 0}
	b := ProductTime{X: 0, Y: 1}
	if a.LessEqual(b) || b.LessEqual(a) {
		t.Errorf("(1,0) and (0,1) must be incomparable")
	}
	lub := a.LUB(b)
	if lub != (ProductTime{X: 1, Y: 1}) {
		t.Errorf("LUB((1,0),(0,1)) = %v, want (1,1)", lub)
	}
}

// TestCloseUnderLUB exercises spec.md §8 scenario S5: after install at
// (1,0) and (0,1), interesting_times from (0,0) must contain (1,0), (0,1),
// and their LUB (1,1), closed under further LUB.
func TestCloseUnderLUB(t *testing.T) {
	seeds := []ProductTime{{X: 1, Y: 0}, {X: 0, Y: 1}}
	closed := CloseUnderLUB(seeds)

	want := []ProductTime{{1, 0}, {0, 1}, {1, 1}}
	for _, w := range want {
		if !containsLattice(closed, w) {
			t.Errorf("closure %v missing %v", closed, w)
		}
	}
	// Closed under LUB: every pairwise join must already be present.
	for _, a := range closed {
		for _, b := range closed {
			if !containsLattice(closed, a.LUB(b)) {
				t.Errorf("closure %v not closed: LUB(%v,%v)=%v missing", closed, a, b, a.LUB(b))
			}
		}
	}
}
