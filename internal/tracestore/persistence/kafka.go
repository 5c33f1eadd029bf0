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
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// KafkaProducer is a minimal abstraction over a Kafka client.
// Implementations should enable idempotent production and use SnapshotID
// as the Kafka message key so broker dedup + per-key ordering are
// preserved.
//
// We intentionally avoid importing a specific Kafka library here; wire a
// real client (e.g. segmentio/kafka-go or confluent-kafka-go) behind this
// interface.
type KafkaProducer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// KafkaPersister publishes snapshots as Kafka messages (a write-ahead log
// for operator state). It does not apply state locally; it delegates
// materialization to downstream consumers, which must track the last
// applied snapshot id per (operator, key) and ignore duplicates.
type KafkaPersister struct {
	producer       KafkaProducer
	topic          string
	defaultTimeout time.Duration
}

func NewKafkaPersister(p KafkaProducer, topic string) *KafkaPersister {
	return &KafkaPersister{producer: p, topic: topic, defaultTimeout: 10 * time.Second}
}

// SnapshotMessage is the serialized payload sent to Kafka.
type SnapshotMessage struct {
	Operator   string          `json:"operator"`
	Key        string          `json:"key"`
	Time       int64           `json:"time"`
	Collection json.RawMessage `json:"collection"`
	SnapshotID string          `json:"snapshot_id"`
	TsUnixMs   int64           `json:"ts_unix_ms"`
}

func (k *KafkaPersister) CommitBatch(ctx context.Context, entries []SnapshotEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok && k.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.defaultTimeout)
		defer cancel()
	}
	nowMs := time.Now().UnixMilli()
	for _, e := range entries {
		if e.SnapshotID == "" {
			return errors.New("SnapshotEntry.SnapshotID must be set")
		}
		msg := SnapshotMessage{
			Operator:   e.Operator,
			Key:        e.Key,
			Time:       e.Time,
			Collection: e.Collection,
			SnapshotID: e.SnapshotID,
			TsUnixMs:   nowMs,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal kafka message: %w", err)
		}
		headers := map[string]string{"content-type": "application/json"}
		if err := k.producer.Produce(ctx, k.topic, []byte(e.SnapshotID), b, headers); err != nil {
			return fmt.Errorf("kafka produce operator=%s key=%s snapshot=%s: %w", e.Operator, e.Key, e.SnapshotID, err)
		}
	}
	return nil
}
