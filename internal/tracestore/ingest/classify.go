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
	"errors"
	"sort"

	"tracestore/pkg/trace"
)

var ErrNoKey = errors.New("envelope missing key")
var ErrNoOperator = errors.New("envelope missing operator")

// Batch is one operator's ready-to-install difference: keys is sorted with
// equal keys adjacent, and values is sorted-and-coalesced within each
// key's run, laid out end-to-end in the same order as keys — exactly the
// shape trace.Store.InstallDifferences requires.
type Batch struct {
	Operator string
	Time     trace.IntTime
	Keys     []string
	Values   []trace.Pair[string]
}

// Classify groups raw envelopes by (Operator, Time), sorts each group by
// (Key, Value), and coalesces each key's run. The result is one Batch per
// distinct (Operator, Time) pair found in envs, in unspecified order.
func Classify(envs []Envelope) ([]Batch, error) {
	type groupKey struct {
		operator string
		time     int64
	}
	groups := make(map[groupKey][]Envelope)
	order := make([]groupKey, 0)
	for _, e := range envs {
		if e.Operator == "" {
			return nil, ErrNoOperator
		}
		if e.Key == "" {
			return nil, ErrNoKey
		}
		gk := groupKey{operator: e.Operator, time: e.Time}
		if _, ok := groups[gk]; !ok {
			order = append(order, gk)
		}
		groups[gk] = append(groups[gk], e)
	}

	batches := make([]Batch, 0, len(order))
	for _, gk := range order {
		members := groups[gk]
		sort.Slice(members, func(i, j int) bool {
			if members[i].Key != members[j].Key {
				return members[i].Key < members[j].Key
			}
			return members[i].Value < members[j].Value
		})

		var keys []string
		var values []trace.Pair[string]

		lower := 0
		for lower < len(members) {
			upper := lower + 1
			for upper < len(members) && members[upper].Key == members[lower].Key {
				upper++
			}
			run := make([]trace.Pair[string], 0, upper-lower)
			for _, m := range members[lower:upper] {
				run = append(run, trace.Pair[string]{Value: m.Value, Weight: m.Weight})
			}
			run = trace.Coalesce(run)
			for range run {
				keys = append(keys, members[lower].Key)
			}
			values = append(values, run...)
			lower = upper
		}

		batches = append(batches, Batch{
			Operator: gk.operator,
			Time:     trace.IntTime(gk.time),
			Keys:     keys,
			Values:   values,
		})
	}
	return batches, nil
}
