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

// Package ingest turns raw, arbitrarily-ordered weighted updates into the
// sorted-and-grouped shape trace.Store.InstallDifferences requires: equal
// keys adjacent, with each key's values already sorted and coalesced.
package ingest

// Envelope is one raw weighted update bound for a single operator.
type Envelope struct {
	Operator string `json:"operator"`
	Key      string `json:"key"`
	Time     int64  `json:"time"`
	Value    string `json:"value"`
	Weight   int32  `json:"weight"`
}
