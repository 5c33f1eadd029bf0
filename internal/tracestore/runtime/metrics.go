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

// Package runtime contains shared, process-level counters used for the
// final end-of-process summary in the mock persister. These are kept
// lightweight and use atomic counters to avoid allocation and locks on
// the hot path.
package runtime

import "sync/atomic"

var (
	installs    atomic.Int64
	setCollects atomic.Int64
	snapshots   atomic.Int64
)

// RecordInstall counts an InstallDifferences call.
func RecordInstall() { installs.Add(1) }

// RecordSetCollection counts a SetCollection call.
func RecordSetCollection() { setCollects.Add(1) }

// RecordSnapshot counts a successfully persisted snapshot entry.
func RecordSnapshot(n int64) {
	if n > 0 {
		snapshots.Add(n)
	}
}

// getEventTotals provides a snapshot of current counters.
func getEventTotals() (installsN, setCollectsN, snapshotsN int64) {
	return installs.Load(), setCollects.Load(), snapshots.Load()
}

// resetEventTotals resets counters to zero. Intended for tests only.
func resetEventTotals() {
	installs.Store(0)
	setCollects.Store(0)
	snapshots.Store(0)
}
