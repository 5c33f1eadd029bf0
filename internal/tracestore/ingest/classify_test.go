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

package ingest

import (
	"reflect"
	"testing"

	"tracestore/pkg/trace"
)

func TestClassifyGroupsByOperatorAndTime(t *testing.T) {
	envs := []Envelope{
		{Operator: "a", Key: "k1", Time: 1, Value: "x", Weight: 1},
		{Operator: "a", Key: "k1", Time: 1, Value: "y", Weight: 1},
		{Operator: "a", Key: "k2", Time: 1, Value: "x", Weight: 1},
		{Operator: "a", Key: "k1", Time: 2, Value: "x", Weight: -1},
		{Operator: "b", Key: "k1", Time: 1, Value: "z", Weight: 1},
	}

	batches, err := Classify(envs)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("expected 3 (operator,time) groups, got %d: %v", len(batches), batches)
	}

	var a1 *Batch
	for i := range batches {
		if batches[i].Operator == "a" && batches[i].Time == 1 {
			a1 = &batches[i]
		}
	}
	if a1 == nil {
		t.Fatal("missing operator a, time 1 batch")
	}
	wantKeys := []string{"k1", "k1", "k2"}
	if !reflect.DeepEqual(a1.Keys, wantKeys) {
		t.Errorf("keys = %v, want %v", a1.Keys, wantKeys)
	}
	wantValues := []trace.Pair[string]{{Value: "x", Weight: 1}, {Value: "y", Weight: 1}, {Value: "x", Weight: 1}}
	if !reflect.DeepEqual(a1.Values, wantValues) {
		t.Errorf("values = %v, want %v", a1.Values, wantValues)
	}
}

func TestClassifyCoalescesWithinKeyRun(t *testing.T) {
	envs := []Envelope{
		{Operator: "a", Key: "k1", Time: 1, Value: "x", Weight: 1},
		{Operator: "a", Key: "k1", Time: 1, Value: "x", Weight: -1},
		{Operator: "a", Key: "k1", Time: 1, Value: "y", Weight: 2},
	}

	batches, err := Classify(envs)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	b := batches[0]
	wantKeys := []string{"k1"}
	wantValues := []trace.Pair[string]{{Value: "y", Weight: 2}}
	if !reflect.DeepEqual(b.Keys, wantKeys) {
		t.Errorf("keys = %v, want %v (zero-weight x should have been dropped)", b.Keys, wantKeys)
	}
	if !reflect.DeepEqual(b.Values, wantValues) {
		t.Errorf("values = %v, want %v", b.Values, wantValues)
	}
}

func TestClassifyRejectsMissingKeyOrOperator(t *testing.T) {
	if _, err := Classify([]Envelope{{Operator: "a", Key: "", Time: 1, Value: "x", Weight: 1}}); err != ErrNoKey {
		t.Errorf("expected ErrNoKey, got %v", err)
	}
	if _, err := Classify([]Envelope{{Operator: "", Key: "k", Time: 1, Value: "x", Weight: 1}}); err != ErrNoOperator {
		t.Errorf("expected ErrNoOperator, got %v", err)
	}
}
