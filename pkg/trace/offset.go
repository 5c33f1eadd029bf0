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

import "fmt"

// maxOffset is the largest index an Offset may address. The value is kept
// one below the full uint32 range so the all-zero encoding (the zero
// Offset{}) remains free to act as a distinguishable sentinel.
const maxOffset = ^uint32(0) - 1

// Offset is an opaque, cheaply-copyable handle to a position in a
// TraceStore's link array. It is stored complemented (data = ^uint32(0) -
// index) purely so the zero Offset{} is distinguishable from Offset.New(0);
// callers must treat it as opaque and never rely on the encoding.
type Offset struct {
	data uint32
}

// NewOffset wraps index as an Offset. It panics if index would not survive
// the round trip (index >= 2^32-1), a programming-contract violation per
// spec.md §7.
func NewOffset(index int) Offset {
	if index < 0 || uint64(index) > uint64(maxOffset) {
		panic(fmt.Sprintf("trace: offset index %d out of range", index))
	}
	return Offset{data: ^uint32(0) - uint32(index)}
}

// Value returns the index this Offset denotes.
func (o Offset) Value() int {
	return int(^uint32(0) - o.data)
}
