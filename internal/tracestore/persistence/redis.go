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
	"context"
	"errors"
	"fmt"
	"time"
)

// RedisEvaler abstracts the minimal surface we need from a Redis client.
// Implementations may wrap github.com/redis/go-redis/v9 (Cmdable.Eval) or
// any equivalent.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisPersister applies snapshots idempotently using a Lua script:
//  1. SETNX snapshot:<operator>:<key>:<snapshot_id> 1
//  2. If set -> SET operator:<operator>:<key> <collection>
//  3. EXPIRE the marker (TTL) for leak protection
//
// If SETNX fails (already applied), returns OK and makes no changes.
type RedisPersister struct {
	client    RedisEvaler
	markerTTL time.Duration
}

// NewRedisPersister returns a persister with the given client and marker
// TTL. markerTTL guards against unbounded growth of snapshot markers;
// choose a duration comfortably larger than your maximum retry window.
func NewRedisPersister(client RedisEvaler, markerTTL time.Duration) *RedisPersister {
	if markerTTL <= 0 {
		markerTTL = 24 * time.Hour
	}
	return &RedisPersister{client: client, markerTTL: markerTTL}
}

// redisLuaScript performs the idempotent write. It returns 1 if applied, 0
// if already applied.
const redisLuaScript = `
local stateKey = KEYS[1]
local markerKey = KEYS[2]
local collection = ARGV[1]
local ttlSeconds = tonumber(ARGV[2])
local set = redis.call('SETNX', markerKey, 1)
if set == 1 then
  redis.call('SET', stateKey, collection)
  if ttlSeconds and ttlSeconds > 0 then
    redis.call('EXPIRE', markerKey, ttlSeconds)
  end
  return 1
else
  return 0
end
`

// Keys layout helpers (public for interoperability with other components).
func RedisStateKey(operator, key string) string {
	return fmt.Sprintf("operator:%s:%s", operator, key)
}

func RedisSnapshotMarkerKey(operator, key, snapshotID string) string {
	return fmt.Sprintf("snapshot:%s:%s:%s", operator, key, snapshotID)
}

// CommitBatch applies entries using one EVAL per entry to reduce RTT via
// scripting. Some clients support pipelining; callers can wrap batching
// externally if needed.
func (r *RedisPersister) CommitBatch(ctx context.Context, entries []SnapshotEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.SnapshotID == "" {
			return errors.New("SnapshotEntry.SnapshotID must be set")
		}
		keys := []string{RedisStateKey(e.Operator, e.Key), RedisSnapshotMarkerKey(e.Operator, e.Key, e.SnapshotID)}
		args := []interface{}{string(e.Collection), int(r.markerTTL.Seconds())}
		if _, err := r.client.Eval(ctx, redisLuaScript, keys, args...); err != nil {
			return fmt.Errorf("redis eval operator=%s key=%s snapshot=%s: %w", e.Operator, e.Key, e.SnapshotID, err)
		}
	}
	return nil
}
