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

package persistence

import (
	"fmt"
	"time"

	"tracestore/internal/sinks"
	"tracestore/internal/tracestore/runtime"
)

// BuildPersister constructs a runtime.Persister for the demo based on a
// string selector. Supported adapters:
//   - "mock": in-process logger (default)
//   - "file": buffered append-only JSONL file, via opts.FilePath
//   - "redis": idempotent Redis adapter; uses a logging client unless
//     opts.RedisAddr is set
//   - "kafka": idempotent Kafka adapter using a logging producer (no
//     broker)
//   - "postgres": not wired for the demo binary (returns an error to
//     avoid hidden nil-DB usage)
//
// The purpose is to let users try different idempotent adapters in the
// demo without requiring infrastructure. For production, supply a real
// *sql.DB or Kafka client and wire it directly rather than going through
// this selector.
func BuildPersister(adapter string, opts DemoOptions) (runtime.Persister, error) {
	switch adapter {
	case "", "mock":
		return runtime.NewMockPersister(), nil
	case "file":
		path := opts.FilePath
		if path == "" {
			path = "tracestore-snapshots.jsonl"
		}
		return sinks.NewBatchFileSink(path)
	case "redis":
		ttl := opts.RedisMarkerTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		var evaler RedisEvaler
		if opts.RedisAddr != "" {
			evaler = NewGoRedisEvaler(opts.RedisAddr)
		} else {
			evaler = LoggingRedisEvaler{}
		}
		r := NewRedisPersister(evaler, ttl)
		return NewIdemShim(r), nil
	case "kafka":
		topic := opts.KafkaTopic
		if topic == "" {
			topic = "tracestore-snapshots"
		}
		k := NewKafkaPersister(LoggingKafkaProducer{}, topic)
		return NewIdemShim(k), nil
	case "postgres":
		return nil, fmt.Errorf("postgres adapter is not enabled in the demo build; wire a real *sql.DB via NewPostgresPersister and NewIdemShim")
	default:
		return nil, fmt.Errorf("unknown persistence adapter: %s", adapter)
	}
}
