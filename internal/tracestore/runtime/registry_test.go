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

package runtime

import (
	"sync/atomic"
	"testing"

	"tracestore/pkg/trace"
)

func TestRegistryGetOrCreateReturnsStableInstance(t *testing.T) {
	r := NewRegistry()
	s1 := r.GetOrCreate("demo")
	s2 := r.GetOrCreate("demo")
	if s1 != s2 {
		t.Fatal("expected same *trace.Store for the same operator name")
	}
}

func TestRegistryGetOrCreateIsolatesOperators(t *testing.T) {
	r := NewRegistry()
	a := r.GetOrCreate("a")
	b := r.GetOrCreate("b")
	a.InstallDifferences(1, []Key{"x"}, []trace.Pair[Value]{{Value: "v", Weight: 1}})

	var target []trace.Pair[Value]
	b.GetCollection("x", 1, &target)
	if len(target) != 0 {
		t.Fatalf("operator b should not see operator a's differences, got %v", target)
	}
}

func TestRegistryMarkDirtyAndForEach(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("demo")
	r.MarkDirty("demo")

	var sawDirty bool
	r.ForEach(func(name string, _ *trace.Store[Key, trace.IntTime, Value], dirty *atomic.Bool, _ *int64) {
		if name == "demo" && dirty.Load() {
			sawDirty = true
		}
	})
	if !sawDirty {
		t.Fatal("expected demo operator to be marked dirty")
	}
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("demo")
	r.Delete("demo")

	count := 0
	r.ForEach(func(name string, _ *trace.Store[Key, trace.IntTime, Value], _ *atomic.Bool, _ *int64) {
		count++
	})
	if count != 0 {
		t.Fatalf("expected registry to be empty after delete, got %d entries", count)
	}
}
