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

// Package sinks provides append-only file sinks for trace store output.
package sinks

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"tracestore/internal/tracestore/runtime"
)

// BatchFileSink is a buffered JSONL sink for runtime.Snapshot batches. It
// is safe for concurrent use and optimized for append-only workloads.
type BatchFileSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string

	lastFlush time.Time
}

// NewBatchFileSink opens (or creates) the file at path in append mode with
// a buffered writer. Call Close() when done.
func NewBatchFileSink(path string) (*BatchFileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	s := &BatchFileSink{f: f, w: bufio.NewWriterSize(f, 1<<20 /*1MiB*/), path: path, lastFlush: time.Now()}
	return s, nil
}

// OnSnapshots writes the snapshots as JSON lines. It implements
// runtime.Persister so it can stand in for (or chain before) a real
// backend while replaying demo traffic.
func (s *BatchFileSink) OnSnapshots(snaps []runtime.Snapshot) {
	if len(snaps) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	enc := json.NewEncoder(s.w)
	for _, sn := range snaps {
		if err := enc.Encode(&sn); err != nil {
			// best effort: on error, try to flush and retry once
			_ = s.w.Flush()
			_ = enc.Encode(&sn)
		}
	}
	// Flush periodically to bound data loss on crash and for visibility
	// in any tailing consumer.
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		_ = s.w.Flush()
		s.lastFlush = time.Now()
	}
}

// CommitBatch implements runtime.Persister by forwarding to OnSnapshots.
func (s *BatchFileSink) CommitBatch(snaps []runtime.Snapshot) error {
	s.OnSnapshots(snaps)
	return nil
}

// PrintFinalMetrics is a no-op for the file sink.
func (s *BatchFileSink) PrintFinalMetrics() {}

// Flush forces buffered data to be written to disk.
func (s *BatchFileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFlush = time.Now()
	return s.w.Flush()
}

// Close flushes and closes the underlying file.
func (s *BatchFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}

// ReadAllSnapshots reads the entire snapshot log file as a slice. Intended
// for demo/replay use.
func ReadAllSnapshots(path string) ([]runtime.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []runtime.Snapshot
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		var sn runtime.Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &sn); err == nil {
			out = append(out, sn)
		}
	}
	return out, scanner.Err()
}
