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

// Package trace provides opt-in, low-overhead Prometheus telemetry for
// the trace store's operators: chain length, batch size, and snapshot
// errors. It is designed to be safe to call from hot paths: when
// disabled, all public functions are no-ops.
package trace

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls the behavior of the telemetry module.
type Config struct {
	Enabled     bool
	MetricsAddr string // e.g., ":9090". Empty to disable the standalone metrics endpoint.
}

var (
	modEnabled atomic.Bool

	installsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracestore_installs_total",
		Help: "Total InstallDifferences calls across all operators",
	})
	setCollectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracestore_set_collections_total",
		Help: "Total SetCollection calls across all operators",
	})
	batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracestore_batch_size",
		Help:    "Distribution of batch sizes passed to InstallDifferences",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
	})
	chainLength = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracestore_chain_length",
		Help:    "Distribution of per-key chain lengths observed during GetCollection",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})
	operatorsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracestore_operators_tracked",
		Help: "Number of operators currently tracked in the runtime registry",
	})
	snapshotErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracestore_snapshot_errors_total",
		Help: "Total number of snapshot batch errors (failed persistence attempts)",
	})
)

func init() {
	// Register metrics eagerly. If no Prometheus endpoint is exposed, the
	// registration is harmless.
	prometheus.MustRegister(installsTotal, setCollectionsTotal, batchSize, chainLength, operatorsTracked, snapshotErrorsTotal)
}

// Enable configures the module. Safe to call multiple times; subsequent
// calls replace config.
func Enable(cfg Config) {
	modEnabled.Store(cfg.Enabled)
	if cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether the telemetry module is active.
func Enabled() bool { return modEnabled.Load() }

// ObserveInstall records an InstallDifferences call and the size of the
// batch it carried.
func ObserveInstall(batchLen int) {
	if !modEnabled.Load() {
		return
	}
	installsTotal.Inc()
	if batchLen > 0 {
		batchSize.Observe(float64(batchLen))
	}
}

// ObserveSetCollection records a SetCollection call.
func ObserveSetCollection() {
	if !modEnabled.Load() {
		return
	}
	setCollectionsTotal.Inc()
}

// ObserveChainLength records the number of links walked to answer a
// GetCollection or GetDifference query.
func ObserveChainLength(n int) {
	if !modEnabled.Load() || n <= 0 {
		return
	}
	chainLength.Observe(float64(n))
}

// SetOperatorsTracked reports the current operator count.
func SetOperatorsTracked(n int) {
	if !modEnabled.Load() {
		return
	}
	operatorsTracked.Set(float64(n))
}

// ObserveSnapshotError increments the snapshot error counter when a batch
// fails to persist.
func ObserveSnapshotError(n int) {
	if !modEnabled.Load() || n <= 0 {
		return
	}
	snapshotErrorsTotal.Add(float64(n))
}

// startMetricsEndpoint exposes /metrics on the given addr in a background
// goroutine.
func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
