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

// Package main provides the entry point for the trace store demo
// application.
//
// This application is a concrete, runnable demonstration of the core
// trace store library (pkg/trace). Its job is to show how a
// differential-dataflow engine installs per-time weighted differences for
// many keys and reconstructs a key's accumulated collection at any time,
// while a background worker periodically checkpoints changed operators to
// a pluggable persistence backend.
//
// This file orchestrates the whole service:
//  1. Initializing the core components (Registry, Worker, Persister).
//  2. Starting the background worker for snapshotting and eviction.
//  3. Starting the API server to handle live traffic.
//  4. Managing graceful shutdown so no dirty operator is lost.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tracestore/internal/tracestore/api"
	"tracestore/internal/tracestore/persistence"
	"tracestore/internal/tracestore/runtime"
	telemetry "tracestore/internal/tracestore/telemetry/trace"
)

func main() {
	// 1. Parse configuration flags.
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address (e.g., :8080)")
	snapshotInterval := flag.Duration("snapshot_interval", 100*time.Millisecond, "How often the background worker checks for dirty operators to snapshot")
	evictionAge := flag.Duration("eviction_age", time.Hour, "Evict operators that haven't been touched for this long")
	evictionInterval := flag.Duration("eviction_interval", 10*time.Minute, "How often to scan for idle operators")
	persistAdapter := flag.String("persist_adapter", "mock", "Snapshot persistence adapter: mock|file|redis|kafka|postgres")
	snapshotFile := flag.String("snapshot_file", "tracestore-snapshots.jsonl", "Output path for the file adapter")
	redisAddr := flag.String("redis_addr", "", "Redis address for the redis adapter (empty uses a logging stand-in)")
	redisMarkerTTL := flag.Duration("redis_marker_ttl", 24*time.Hour, "TTL for redis idempotency markers")
	kafkaTopic := flag.String("kafka_topic", "tracestore-snapshots", "Kafka topic for the kafka adapter")
	telemetryEnabled := flag.Bool("telemetry", false, "Enable in-process Prometheus telemetry (opt-in)")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g., :9090)")
	flag.Parse()

	telemetry.Enable(telemetry.Config{
		Enabled:     *telemetryEnabled,
		MetricsAddr: *metricsAddr,
	})

	persister, err := persistence.BuildPersister(*persistAdapter, persistence.DemoOptions{
		RedisAddr:      *redisAddr,
		RedisMarkerTTL: *redisMarkerTTL,
		KafkaTopic:     *kafkaTopic,
		FilePath:       *snapshotFile,
	})
	if err != nil {
		log.Fatalf("could not build persistence adapter %q: %v", *persistAdapter, err)
	}

	// 2. Initialize the operator registry.
	registry := runtime.NewRegistry()

	// 3. Create and start the background worker. It handles the critical
	// tasks of snapshotting dirty operators to persistent storage and
	// evicting idle operators from memory.
	worker := runtime.NewWorker(
		registry,
		persister,
		*snapshotInterval,
		*evictionAge,
		*evictionInterval,
	)
	worker.OnSnapshotError = telemetry.ObserveSnapshotError
	worker.OnOperatorsTracked = telemetry.SetOperatorsTracked
	worker.Start()

	// 4. Create the API server and set up the HTTP server and routes.
	// Using api.Server.ListenAndServe directly isn't ideal for graceful
	// shutdown, so we configure the http.Server instance here in main.
	apiServer := api.NewServer(registry)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: mux,
	}

	// 5. Start the HTTP server in a separate goroutine so it doesn't block.
	go func() {
		fmt.Printf("Trace store API server listening on %s\n", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", *httpAddr, err)
		}
	}()

	// 6. Wait for an OS signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nShutting down server...")

	// 7. Stop the background worker first. This triggers a final
	// snapshot of any dirty operators so no state is lost.
	worker.Stop()
	persister.PrintFinalMetrics()

	// 8. Gracefully shut down the HTTP server with a timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	fmt.Println("Server gracefully stopped.")
}
